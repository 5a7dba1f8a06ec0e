package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/florianilch/gitbruv/internal/tokenstore"
)

// LoginFunc runs an interactive login. *Coordinator.Login satisfies it.
type LoginFunc func(ctx context.Context) (string, error)

// Resolver is the entry point for obtaining a token: stored token first, interactive
// login second. The interactive login runs at most once per Resolver.
type Resolver struct {
	store tokenstore.TokenStore
	login LoginFunc

	mu     sync.Mutex
	flight *loginFlight
}

// loginFlight is the one-shot result of the interactive login.
type loginFlight struct {
	done  chan struct{}
	token string
	err   error
}

// Compile-time check to ensure Resolver implements oauth2.TokenSource
var _ oauth2.TokenSource = (*Resolver)(nil)

// NewResolver creates a Resolver. No I/O is performed until the first Resolve call.
func NewResolver(store tokenstore.TokenStore, login LoginFunc) (*Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("missing token store")
	}
	if login == nil {
		return nil, fmt.Errorf("missing login func")
	}

	return &Resolver{
		store: store,
		login: login,
	}, nil
}

// Resolve returns a usable token.
//
// A stored token is returned without network access. Otherwise the interactive login
// runs; concurrent and later callers share its single outcome instead of starting a
// second listener on the same port. The outcome is not retried.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	token, err := r.store.Read(ctx)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, tokenstore.ErrNotFound) {
		return "", fmt.Errorf("reading stored token: %w", err)
	}

	r.mu.Lock()
	flight := r.flight
	if flight != nil {
		r.mu.Unlock()
		slog.DebugContext(ctx, "joining in-flight login")
		select {
		case <-flight.done:
			return flight.token, flight.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	flight = &loginFlight{done: make(chan struct{})}
	r.flight = flight
	r.mu.Unlock()

	slog.DebugContext(ctx, "no stored token, starting interactive login")
	// Stays set if login panics, so joined callers are released with an error
	flight.err = fmt.Errorf("%w: interactive login aborted", ErrUnavailable)
	defer close(flight.done)
	flight.token, flight.err = r.login(ctx)

	return flight.token, flight.err
}

// Token implements oauth2.TokenSource. The returned token has no expiry.
func (r *Resolver) Token() (*oauth2.Token, error) {
	// oauth2.TokenSource.Token() has no context parameter (legacy interface limitation)
	token, err := r.Resolve(context.Background())
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}, nil
}
