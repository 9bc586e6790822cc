package storage

import (
	"context"
	"io"
	"time"
)

// Package storage contains the content blob store abstraction for uploaded
// pages, backed by an S3-compatible object store. Implementations must rely
// on streaming I/O only; no local disk.

// PutObjectOptions define optional parameters for uploading blobs.
// Size should be the exact number of bytes if known; if unknown, set to -1 and
// the implementation will buffer/chunk as supported by the backend.
type PutObjectOptions struct {
	Size        int64
	ContentType string
}

// ObjectInfo contains basic information about a stored blob.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// Storage stores page content blobs keyed by an opaque object key. A blob is
// never referenced except through its page row, so blob writes need no
// coordination beyond the row insert that publishes them.
type Storage interface {
	// Put uploads a blob under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves a blob's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes a blob by key.
	Delete(ctx context.Context, key string) error
}
