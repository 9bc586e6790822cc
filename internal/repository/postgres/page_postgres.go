package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"pagelink/internal/model"
	"pagelink/internal/repository"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// PagePostgres is a PostgreSQL implementation of repository.PageRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type PagePostgres struct {
	db *sql.DB
}

// NewPagePostgres creates a new PagePostgres repository.
func NewPagePostgres(db *sql.DB) *PagePostgres {
	return &PagePostgres{db: db}
}

var _ repository.PageRepository = (*PagePostgres)(nil)

// Create inserts a new page row and returns the stored record.
// A primary-key violation on id is mapped to repository.ErrConflict.
func (r *PagePostgres) Create(ctx context.Context, page *model.Page) (*model.Page, error) {
	const q = `
		INSERT INTO html_pages (id, storage_path, size, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, storage_path, size, created_at, expires_at
	`
	row := r.db.QueryRowContext(ctx, q,
		page.ID,
		page.StoragePath,
		page.Size,
		page.CreatedAt,
		page.ExpiresAt,
	)
	var out model.Page
	if err := row.Scan(
		&out.ID,
		&out.StoragePath,
		&out.Size,
		&out.CreatedAt,
		&out.ExpiresAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single page by its id. Expired rows are returned as-is;
// expiry is the caller's concern.
func (r *PagePostgres) FindByID(ctx context.Context, id string) (*model.Page, error) {
	const q = `
		SELECT id, storage_path, size, created_at, expires_at
		FROM html_pages
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)
	var p model.Page
	if err := row.Scan(
		&p.ID,
		&p.StoragePath,
		&p.Size,
		&p.CreatedAt,
		&p.ExpiresAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteExpired removes all rows whose expires_at is at or before now and
// returns them. Rows with null expires_at never expire and are left alone.
func (r *PagePostgres) DeleteExpired(ctx context.Context, now time.Time) ([]model.Page, error) {
	const q = `
		DELETE FROM html_pages
		WHERE expires_at IS NOT NULL AND expires_at <= $1
		RETURNING id, storage_path, size, created_at, expires_at
	`
	rows, err := r.db.QueryContext(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deleted := make([]model.Page, 0)
	for rows.Next() {
		var p model.Page
		if err := rows.Scan(
			&p.ID,
			&p.StoragePath,
			&p.Size,
			&p.CreatedAt,
			&p.ExpiresAt,
		); err != nil {
			return nil, err
		}
		deleted = append(deleted, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return deleted, nil
}

// Delete removes a page row by id. It does not return an error if the row does not exist.
func (r *PagePostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM html_pages WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

// Exists reports whether a page row with the given id is present.
func (r *PagePostgres) Exists(ctx context.Context, id string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM html_pages WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Count returns the total number of page rows.
func (r *PagePostgres) Count(ctx context.Context) (int, error) {
	const q = `SELECT COUNT(*) FROM html_pages`
	var total int
	if err := r.db.QueryRowContext(ctx, q).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
