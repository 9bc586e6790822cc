package mocks

import (
	"context"
	"io"

	"pagelink/internal/model"
	"pagelink/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockPageService struct {
	mock.Mock
}

func (m *MockPageService) Upload(ctx context.Context, content []byte, expirationClass int) (*service.UploadResult, error) {
	args := m.Called(ctx, content, expirationClass)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockPageService) Get(ctx context.Context, id string) (io.ReadCloser, *model.Page, error) {
	args := m.Called(ctx, id)
	var rc io.ReadCloser
	if args.Get(0) != nil {
		rc = args.Get(0).(io.ReadCloser)
	}
	var page *model.Page
	if args.Get(1) != nil {
		page = args.Get(1).(*model.Page)
	}
	return rc, page, args.Error(2)
}

func (m *MockPageService) Info(ctx context.Context, id string) (*model.Page, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Page), args.Error(1)
}

func (m *MockPageService) PurgeExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPageService) Stats(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
