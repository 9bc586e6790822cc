package cache

import (
	"context"
	"errors"
	"time"

	"pagelink/internal/model"
)

// Package cache provides an optional read-through cache for page content on
// the retrieval path. Entries carry their own metadata so callers can re-check
// expiry; TTLs are capped at the page's remaining lifetime, so a cached entry
// can never outlive its page.

// ErrMiss signals that no entry exists for the id. A miss is a normal outcome,
// not a failure.
var ErrMiss = errors.New("cache miss")

// Entry is a fully materialized page: metadata plus content bytes.
type Entry struct {
	Page    model.Page
	Content []byte
}

// Cache stores materialized pages keyed by link id.
type Cache interface {
	// Get returns the cached entry for id, or ErrMiss.
	Get(ctx context.Context, id string) (*Entry, error)
	// Set stores an entry with the given TTL. A non-positive TTL is a no-op.
	Set(ctx context.Context, id string, entry *Entry, ttl time.Duration) error
	// Del drops the entry for id, if present.
	Del(ctx context.Context, id string) error
}
