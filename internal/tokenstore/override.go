package tokenstore

import (
	"context"
	"errors"
	"fmt"
)

// Source identifies where a token was read from.
type Source string

const (
	SourceNone     Source = "none"
	SourceOverride Source = "override"
	SourceCache    Source = "cache"
)

// OverrideStore reads from an override store first and falls back to a writable cache.
// The override is never written to.
type OverrideStore struct {
	override TokenStore
	cache    TokenStore
}

// Compile-time check to ensure OverrideStore implements TokenStore
var _ TokenStore = (*OverrideStore)(nil)

// NewOverrideStore layers override over cache. A nil override disables the override lookup.
func NewOverrideStore(override, cache TokenStore) (*OverrideStore, error) {
	if cache == nil {
		return nil, fmt.Errorf("missing cache store")
	}

	return &OverrideStore{
		override: override,
		cache:    cache,
	}, nil
}

// Read returns the override token if present, otherwise the cached token.
func (o *OverrideStore) Read(ctx context.Context) (string, error) {
	token, _, err := o.Lookup(ctx)
	return token, err
}

// Lookup is Read that also reports which store produced the token.
func (o *OverrideStore) Lookup(ctx context.Context) (string, Source, error) {
	if o.override != nil {
		token, err := o.override.Read(ctx)
		if err == nil {
			return token, SourceOverride, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", SourceNone, fmt.Errorf("reading token override: %w", err)
		}
	}

	token, err := o.cache.Read(ctx)
	if err != nil {
		return "", SourceNone, err
	}
	return token, SourceCache, nil
}

// Describe names the backing store for source, for display to the user.
func (o *OverrideStore) Describe(source Source) string {
	var store TokenStore
	switch source {
	case SourceOverride:
		store = o.override
	case SourceCache:
		store = o.cache
	default:
		return string(SourceNone)
	}
	if s, ok := store.(fmt.Stringer); ok {
		return s.String()
	}
	return string(source)
}

// Write persists the token to the cache.
func (o *OverrideStore) Write(ctx context.Context, token string) error {
	return o.cache.Write(ctx, token)
}
