package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"pagelink/internal/cache"
	"pagelink/internal/model"
	"pagelink/internal/repository"
	"pagelink/internal/storage"
	"pagelink/internal/token"
)

var (
	ErrIDRequired      = errors.New("id is required")
	ErrNotFound        = errors.New("page not found")
	ErrExpired         = errors.New("page has expired")
	ErrEmptyContent    = errors.New("no HTML content provided")
	ErrContentTooLarge = errors.New("content exceeds maximum upload size")
	ErrInvalidEncoding = errors.New("content must be valid UTF-8 text")
	ErrIDExhausted     = errors.New("could not allocate a unique page id")

	// ErrStoreUnavailable classifies transient backend failures (database or
	// blob store unreachable) so handlers can answer 503 instead of 500.
	ErrStoreUnavailable = errors.New("store temporarily unavailable")
)

// createAttempts caps id-collision retries during upload. With ~95 bits of
// token entropy, exhausting this indicates a systemic problem, not bad luck.
const createAttempts = 5

const htmlContentType = "text/html; charset=utf-8"

// UploadResult is returned on a successful upload.
type UploadResult struct {
	Page *model.Page
	Link string
}

// Config carries the service-level knobs resolved from the environment.
type Config struct {
	// BaseURL is prepended to "/link/{id}" when building shareable links.
	BaseURL string
	// MaxUploadSize is the hard cap on content bytes.
	MaxUploadSize int64
	// CacheTTL caps how long retrieved pages stay cached.
	CacheTTL time.Duration
	// CacheMaxEntry is the largest page written through to the cache.
	CacheMaxEntry int64
}

// PageService defines the use cases for sharing HTML pages.
type PageService interface {
	// Upload validates the content, computes its expiry and persists a new
	// page under a fresh unguessable id. Id collisions are retried internally;
	// no partially visible record remains on failure.
	Upload(ctx context.Context, content []byte, expirationClass int) (*UploadResult, error)

	// Get returns the page content stream and metadata for a live page.
	// Misses and expired pages yield ErrNotFound / ErrExpired; callers must
	// present both identically.
	Get(ctx context.Context, id string) (io.ReadCloser, *model.Page, error)

	// Info returns page metadata without content, same classification as Get.
	Info(ctx context.Context, id string) (*model.Page, error)

	// PurgeExpired deletes every expired page and returns how many were removed.
	PurgeExpired(ctx context.Context) (int64, error)

	// Stats returns the number of stored pages.
	Stats(ctx context.Context) (int, error)
}

// pageService is a concrete implementation of PageService.
type pageService struct {
	store   storage.Storage
	repo    repository.PageRepository
	gen     token.Generator
	cache   cache.Cache // nil when caching is disabled
	cfg     Config
	nowFunc func() time.Time
}

// NewPageService constructs a new PageService. pages may be nil to disable caching.
func NewPageService(store storage.Storage, repo repository.PageRepository, gen token.Generator, pages cache.Cache, cfg Config) PageService {
	return &pageService{
		store:   store,
		repo:    repo,
		gen:     gen,
		cache:   pages,
		cfg:     cfg,
		nowFunc: time.Now,
	}
}

func (s *pageService) Upload(ctx context.Context, content []byte, expirationClass int) (*UploadResult, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptyContent
	}
	if int64(len(content)) > s.cfg.MaxUploadSize {
		return nil, ErrContentTooLarge
	}
	if !utf8.Valid(content) {
		return nil, ErrInvalidEncoding
	}

	now := s.nowFunc().UTC()

	// Resolve the expiry before any store mutation.
	expiresAt, err := ComputeExpiry(expirationClass, now)
	if err != nil {
		return nil, err
	}

	// The blob key is independent of the link id, so collision retries below
	// only re-attempt the row insert; the content is uploaded once.
	key := path.Join("pages", uuid.New().String()+".html")
	if _, err := s.store.Put(ctx, key, bytes.NewReader(content), storage.PutObjectOptions{
		Size:        int64(len(content)),
		ContentType: htmlContentType,
	}); err != nil {
		return nil, fmt.Errorf("store content: %w: %w", ErrStoreUnavailable, err)
	}

	page := &model.Page{
		StoragePath: key,
		Size:        int64(len(content)),
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}

	// The row insert publishes the page: until it succeeds, nothing is
	// visible to readers. Retry with a fresh id on conflict.
	var stored *model.Page
	for attempt := 0; attempt < createAttempts; attempt++ {
		id, err := s.gen.Generate(ctx)
		if err != nil {
			return nil, s.rollbackBlob(ctx, key, fmt.Errorf("generate id: %w", err))
		}
		page.ID = id

		stored, err = s.repo.Create(ctx, page)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrConflict) {
			stored = nil
			continue
		}
		return nil, s.rollbackBlob(ctx, key, fmt.Errorf("save page: %w: %w", ErrStoreUnavailable, err))
	}
	if stored == nil {
		return nil, s.rollbackBlob(ctx, key, ErrIDExhausted)
	}

	return &UploadResult{
		Page: stored,
		Link: s.cfg.BaseURL + "/link/" + stored.ID,
	}, nil
}

// rollbackBlob deletes the orphaned content blob after a failed upload.
func (s *pageService) rollbackBlob(ctx context.Context, key string, cause error) error {
	if delErr := s.store.Delete(ctx, key); delErr != nil {
		return fmt.Errorf("%w; rollback delete failed: %v", cause, delErr)
	}
	return cause
}

func (s *pageService) Get(ctx context.Context, id string) (io.ReadCloser, *model.Page, error) {
	if id == "" {
		return nil, nil, ErrIDRequired
	}
	now := s.nowFunc().UTC()

	if s.cache != nil {
		if entry, err := s.cache.Get(ctx, id); err == nil {
			// Entry TTLs are capped at expiry, but re-check: the boundary
			// instant itself must not be served.
			if entry.Page.ExpiredAt(now) {
				_ = s.cache.Del(ctx, id)
			} else {
				return io.NopCloser(bytes.NewReader(entry.Content)), &entry.Page, nil
			}
		}
		// Misses and cache errors fall through to the store.
	}

	page, err := s.lookup(ctx, id, now)
	if err != nil {
		return nil, nil, err
	}

	rc, _, err := s.store.Get(ctx, page.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("load content: %w: %w", ErrStoreUnavailable, err)
	}

	if s.cache != nil && page.Size <= s.cfg.CacheMaxEntry {
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("load content: %w: %w", ErrStoreUnavailable, err)
		}
		// Best effort: a failed cache write only costs the next read a trip
		// to the store.
		_ = s.cache.Set(ctx, id, &cache.Entry{Page: *page, Content: content}, s.cacheTTL(page, now))
		return io.NopCloser(bytes.NewReader(content)), page, nil
	}

	return rc, page, nil
}

func (s *pageService) Info(ctx context.Context, id string) (*model.Page, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	return s.lookup(ctx, id, s.nowFunc().UTC())
}

// lookup fetches a page row and enforces expiry at read time, independent of
// whether the reaper has physically deleted it yet. Expired rows are lazily
// removed on the way out.
func (s *pageService) lookup(ctx context.Context, id string, now time.Time) (*model.Page, error) {
	page, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find page: %w: %w", ErrStoreUnavailable, err)
	}
	if page.ExpiredAt(now) {
		s.removeExpired(ctx, page)
		return nil, ErrExpired
	}
	return page, nil
}

// removeExpired lazily deletes an expired page encountered on the read path.
// Best effort only: the reaper picks up anything left behind.
func (s *pageService) removeExpired(ctx context.Context, page *model.Page) {
	if err := s.repo.Delete(ctx, page.ID); err != nil {
		return
	}
	_ = s.store.Delete(ctx, page.StoragePath)
	if s.cache != nil {
		_ = s.cache.Del(ctx, page.ID)
	}
}

func (s *pageService) cacheTTL(page *model.Page, now time.Time) time.Duration {
	ttl := s.cfg.CacheTTL
	if page.ExpiresAt != nil {
		if remaining := page.ExpiresAt.Sub(now); remaining < ttl {
			ttl = remaining
		}
	}
	return ttl
}

func (s *pageService) PurgeExpired(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx, s.nowFunc().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w: %w", ErrStoreUnavailable, err)
	}
	for i := range deleted {
		// Rows are already gone, so these blobs are unreachable; removal is
		// best effort and a failure only leaks storage until the bucket is
		// cleaned up out of band.
		_ = s.store.Delete(ctx, deleted[i].StoragePath)
		if s.cache != nil {
			_ = s.cache.Del(ctx, deleted[i].ID)
		}
	}
	return int64(len(deleted)), nil
}

func (s *pageService) Stats(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w: %w", ErrStoreUnavailable, err)
	}
	return n, nil
}
