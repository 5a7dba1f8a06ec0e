package tokenstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Read when no token is stored. Absence is an expected
	// outcome, not a failure of the backend.
	ErrNotFound = errors.New("token not found")

	// ErrReadOnly is returned by Write on backends that cannot persist tokens.
	ErrReadOnly = errors.New("token storage is read-only")
)

// TokenStore reads and writes tokens to persistent storage.
type TokenStore interface {
	// Read returns the stored token. Returns ErrNotFound if no token is stored.
	Read(ctx context.Context) (string, error)

	// Write persists the token to storage, replacing any previous value.
	Write(ctx context.Context, token string) error
}

// Redact returns a form of token that is safe to log.
func Redact(token string) string {
	const visible = 4
	if len(token) <= visible {
		return "…"
	}
	return token[:visible] + "…"
}
