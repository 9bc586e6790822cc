package model

import "time"

// Page represents an uploaded HTML document reachable through a short link.
// This is a pure domain model with no database-specific dependencies or tags.
// The content bytes themselves live in the object store under StoragePath;
// a page is visible to readers if and only if its row exists.
type Page struct {
	ID          string     `json:"id"`
	StoragePath string     `json:"-"`
	Size        int64      `json:"size_bytes"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the page is expired at the given instant.
// The boundary is inclusive: a page whose ExpiresAt equals now must not be served.
// A nil ExpiresAt means the page never expires.
func (p *Page) ExpiredAt(now time.Time) bool {
	if p.ExpiresAt == nil {
		return false
	}
	return !now.Before(*p.ExpiresAt)
}
