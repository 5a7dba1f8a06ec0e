// Package callback implements the single-use local HTTP listener that receives the
// identity provider's OAuth redirect.
//
// A Listener binds a fixed local address, serves exactly one terminal request on its
// callback path, exchanges the authorization code synchronously and then shuts itself
// down. Requests to any other path get 404 and leave the listener running.
package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

var (
	// ErrPortInUse is returned by Listen when the callback address is already bound.
	ErrPortInUse = errors.New("callback port already in use")
	// ErrMissingCode means the callback arrived without a code query parameter.
	ErrMissingCode = errors.New("callback request has no authorization code")
	// ErrCallbackFailed means handling the callback request failed unexpectedly.
	ErrCallbackFailed = errors.New("callback request failed")
	// ErrClosed means the listener was closed before a callback arrived.
	ErrClosed = errors.New("callback listener closed")
)

// ExchangeFunc trades an authorization code for an access token. redirectURI is the
// exact URI the listener was started for.
type ExchangeFunc func(ctx context.Context, code, redirectURI string) (string, error)

// Listener is a single-use OAuth redirect target.
type Listener struct {
	redirectURI string
	exchange    ExchangeFunc

	listener net.Listener
	server   *http.Server

	// claimed flips on the first callback request; only that request is terminal
	claimed atomic.Bool

	finishOnce sync.Once
	done       chan struct{}
	token      string
	err        error
}

// Listen binds addr and starts serving the callback path taken from redirectURI.
// Bind failures are returned immediately; a bound port is reported as ErrPortInUse.
func Listen(ctx context.Context, addr, redirectURI string, exchange ExchangeFunc) (*Listener, error) {
	if exchange == nil {
		return nil, fmt.Errorf("missing exchange func")
	}
	redirect, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}
	path := redirect.Path
	if path == "" {
		path = "/"
	}

	// Bind synchronously so port conflicts surface before the user is sent anywhere
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("%w: %s", ErrPortInUse, addr)
		}
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	l := &Listener{
		redirectURI: redirectURI,
		exchange:    exchange,
		listener:    listener,
		done:        make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+path, applyMiddlewares(http.HandlerFunc(l.handleCallback),
		Logging(slog.Default()),
		l.recovery,
	))
	mux.Handle("/", Logging(slog.Default())(http.NotFoundHandler()))

	l.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second, // Inbound: bounds slow clients, not the login itself
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		err := l.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "callback listener stopped", "error", err)
			l.finish("", fmt.Errorf("%w: %w", ErrCallbackFailed, err), false)
		}
	}()

	slog.DebugContext(ctx, "callback listener ready", "address", listener.Addr().String(), "redirect_uri", redirectURI)

	return l, nil
}

// Addr returns the bound network address.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// RedirectURI returns the redirect URI passed to the exchange.
func (l *Listener) RedirectURI() string {
	return l.redirectURI
}

// Done is closed once the listener has released its port and has a result.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the listener has a result. There is no timeout: if the user never
// completes the browser flow, Wait returns only when ctx is cancelled.
func (l *Listener) Wait(ctx context.Context) (string, error) {
	select {
	case <-l.done:
		return l.token, l.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close releases the port immediately. Safe to call more than once and after completion.
func (l *Listener) Close() error {
	l.finish("", ErrClosed, true)
	<-l.done
	return nil
}

func (l *Listener) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !l.claimed.CompareAndSwap(false, true) {
		http.Error(w, "login already completed", http.StatusGone)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		renderPage(ctx, w, http.StatusBadRequest, failurePage, "No code found in callback URL.")
		l.finish("", ErrMissingCode, false)
		return
	}

	token, err := l.exchange(ctx, code, l.redirectURI)
	if err != nil {
		slog.WarnContext(ctx, "authorization code exchange failed", "error", err)
		renderPage(ctx, w, http.StatusBadGateway, failurePage, "GitHub login could not be completed. Return to your terminal for details.")
		l.finish("", err, false)
		return
	}

	renderPage(ctx, w, http.StatusOK, successPage, "")
	l.finish(token, nil, false)
}

// recovery turns a panicking callback into a 500 and a terminal failure.
func (l *Listener) recovery(next http.Handler) http.Handler {
	return Recovery(next, func(ctx context.Context, v any) {
		slog.ErrorContext(ctx, "callback handler panicked", "panic", v)
		l.claimed.Store(true)
		l.finish("", ErrCallbackFailed, false)
	})
}

// finish records the first result and shuts the server down. With immediate set the
// server is closed without waiting for in-flight responses to drain.
func (l *Listener) finish(token string, err error, immediate bool) {
	l.finishOnce.Do(func() {
		l.token, l.err = token, err

		release := func() {
			if immediate {
				_ = l.server.Close()
			} else if shutdownErr := l.server.Shutdown(context.Background()); shutdownErr != nil {
				_ = l.server.Close()
			}
			// Serve may not have tracked the listener yet
			_ = l.listener.Close()
			close(l.done)
		}

		if immediate {
			release()
			return
		}
		// Called from a handler: let the response flush before the server goes away
		go release()
	})
}
