// Package password implements password hashing and verification with bcrypt.
//
// # Cost
//
// The work factor is configurable; the default is cost 12. Hashing happens
// exactly once per password set or change — callers never pass an already
// hashed value back through [Hasher.Hash].
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length,
// character classes) is enforced by the Engine's pluggable predicate.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other authcore package.
//   - Log plaintext passwords at runtime.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when the config leaves it unset.
const DefaultCost = 12

// ErrMalformedHash indicates a stored hash that bcrypt cannot parse. This is
// the only verification failure surfaced as an error; a plain mismatch is
// reported as (false, nil).
var ErrMalformedHash = errors.New("malformed password hash")

// Config holds hasher tuning parameters.
type Config struct {
	Cost int
}

// Hasher is a bcrypt password hasher. The zero value is not usable; build
// one with [New].
type Hasher struct {
	cost int
}

// New creates a [Hasher], applying the default cost when cfg.Cost is zero.
func New(cfg Config) (*Hasher, error) {
	cost := cfg.Cost
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt cost out of range")
	}
	return &Hasher{cost: cost}, nil
}

// Hash derives a salted one-way hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored hash. A mismatch is
// (false, nil); only a malformed stored hash produces an error.
func (h *Hasher) Verify(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrMalformedHash
	}
}
