package token

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
)

// DefaultLength yields ~95 bits of entropy, enough that birthday collisions
// stay negligible at any realistic page count. Collisions are still handled
// by the caller via retry-on-conflict.
const DefaultLength = 16

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

var base = big.NewInt(int64(len(alphabet)))

// Generator produces link identifiers. Implementations must be safe for
// concurrent use.
type Generator interface {
	Generate(ctx context.Context) (string, error)
}

// Alphanumeric generates fixed-length identifiers over [0-9A-Za-z] from a
// cryptographically-strong random source, so links cannot be enumerated.
type Alphanumeric struct {
	length int
}

// NewAlphanumeric creates a generator with the given length (DefaultLength if <= 0).
func NewAlphanumeric(length int) *Alphanumeric {
	if length <= 0 {
		length = DefaultLength
	}
	return &Alphanumeric{length: length}
}

var _ Generator = (*Alphanumeric)(nil)

// Generate returns a new random identifier.
func (g *Alphanumeric) Generate(_ context.Context) (string, error) {
	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		idx, err := rand.Int(rand.Reader, base) // uniform in [0,62)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// Alphabet exposes the identifier alphabet (useful for tests).
func Alphabet() string { return alphabet }
