package service

import (
	"errors"
	"time"
)

// ErrInvalidExpiration is returned for an unrecognized expiration class.
// This is caller input validation; it is surfaced before any store mutation.
var ErrInvalidExpiration = errors.New("invalid expiration option")

const day = 24 * time.Hour

// ComputeExpiry maps a user-selected expiration class to an absolute expiry
// timestamp. Recognized classes: 1, 7 and 30 days, and 0 for "never expires"
// (nil). Pure and deterministic given now.
func ComputeExpiry(class int, now time.Time) (*time.Time, error) {
	switch class {
	case 0:
		return nil, nil
	case 1, 7, 30:
		t := now.Add(time.Duration(class) * day)
		return &t, nil
	default:
		return nil, ErrInvalidExpiration
	}
}
