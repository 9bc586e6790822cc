package repository

import (
	"context"
	"errors"
	"time"

	"pagelink/internal/model"
)

// ErrConflict signals that a page id is already taken. The caller is expected
// to regenerate the id and retry.
var ErrConflict = errors.New("page id already exists")

// PageRepository defines data access for page metadata rows using SQL only.
// No business logic here — expiry interpretation belongs to the service layer;
// FindByID returns expired rows unfiltered.
type PageRepository interface {
	// Create inserts a new page row atomically: either the full row is visible
	// to subsequent reads or nothing is. Returns ErrConflict if the id exists.
	Create(ctx context.Context, page *model.Page) (*model.Page, error)

	// FindByID returns a page by id, expired or not (sql.ErrNoRows on miss).
	FindByID(ctx context.Context, id string) (*model.Page, error)

	// DeleteExpired removes every row with a non-null expires_at at or before
	// now and returns the deleted rows so callers can reap content blobs.
	// Rows with null expires_at are never touched.
	DeleteExpired(ctx context.Context, now time.Time) ([]model.Page, error)

	// Delete removes a single row by id. Returns nil if the row did not exist.
	Delete(ctx context.Context, id string) error

	// Exists reports whether a row with the given id is present.
	Exists(ctx context.Context, id string) (bool, error)

	// Count returns the total number of stored pages.
	Count(ctx context.Context) (int, error)
}
