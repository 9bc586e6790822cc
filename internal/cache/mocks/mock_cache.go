package mocks

import (
	"context"
	"time"

	"pagelink/internal/cache"

	"github.com/stretchr/testify/mock"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, id string) (*cache.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.Entry), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, id string, entry *cache.Entry, ttl time.Duration) error {
	args := m.Called(ctx, id, entry, ttl)
	return args.Error(0)
}

func (m *MockCache) Del(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
