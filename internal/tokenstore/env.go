package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultEnvKey is the environment variable that overrides any cached token.
const DefaultEnvKey = "GITHUB_TOKEN"

// EnvStore exposes a token supplied through an environment variable.
// It only reads; a token set by the user is never overwritten by a login.
type EnvStore struct {
	key string
}

var _ TokenStore = (*EnvStore)(nil)

// NewEnvStore returns a store reading key. The variable is looked up on every
// Read, so it may be set after construction.
func NewEnvStore(key string) (*EnvStore, error) {
	if key == "" {
		return nil, errors.New("environment key cannot be empty")
	}
	return &EnvStore{key: key}, nil
}

// Key returns the environment variable name.
func (e *EnvStore) Key() string {
	return e.key
}

func (e *EnvStore) String() string {
	return "environment variable " + e.key
}

// Read returns the trimmed variable value. Unset or blank yields ErrNotFound.
func (e *EnvStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	value, ok := os.LookupEnv(e.key)
	if !ok {
		return "", ErrNotFound
	}
	if value = strings.TrimSpace(value); value == "" {
		return "", ErrNotFound
	}
	return value, nil
}

// Write always fails with ErrReadOnly.
func (e *EnvStore) Write(context.Context, string) error {
	return fmt.Errorf("%s: %w", e, ErrReadOnly)
}
