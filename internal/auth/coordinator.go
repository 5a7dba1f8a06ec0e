package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/florianilch/gitbruv/internal/callback"
	"github.com/florianilch/gitbruv/internal/tokenstore"
)

// ErrUnavailable means no token could be obtained: the broker was unreachable, the user
// abandoned the browser flow, or the provider sent no usable code.
var ErrUnavailable = errors.New("github token unavailable")

const tracerName = "github.com/florianilch/gitbruv/internal/auth"

// Broker issues login URLs and exchanges authorization codes.
type Broker interface {
	LoginURL(ctx context.Context) (string, error)
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)
}

// CoordinatorConfig holds the fixed parameters of the interactive login.
type CoordinatorConfig struct {
	// ListenAddress is the local address the callback listener binds, e.g. 127.0.0.1:8765.
	ListenAddress string
	// RedirectURI is sent to the broker along with the code, e.g. http://localhost:8765/callback.
	RedirectURI string
	// Output receives the instructions shown to the user. Defaults to io.Discard.
	Output io.Writer
}

// Coordinator runs the interactive browser login.
type Coordinator struct {
	broker Broker
	store  tokenstore.TokenStore
	opener URLOpener
	cfg    CoordinatorConfig
	tracer trace.Tracer
}

// NewCoordinator creates a Coordinator. store receives the token after a successful login.
func NewCoordinator(broker Broker, store tokenstore.TokenStore, opener URLOpener, cfg CoordinatorConfig) (*Coordinator, error) {
	if broker == nil {
		return nil, fmt.Errorf("missing broker")
	}
	if store == nil {
		return nil, fmt.Errorf("missing token store")
	}
	if opener == nil {
		return nil, fmt.Errorf("missing url opener")
	}
	if cfg.ListenAddress == "" {
		return nil, fmt.Errorf("missing listen address")
	}
	if _, err := url.ParseRequestURI(cfg.RedirectURI); err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}

	return &Coordinator{
		broker: broker,
		store:  store,
		opener: opener,
		cfg:    cfg,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// Login runs one interactive login and returns the access token.
//
// Failures inside the flow are reported as ErrUnavailable. A bound callback port is
// reported as callback.ErrPortInUse. Failing to cache the token is logged and does not
// fail the login. There is no timeout; only ctx cancellation aborts the wait.
func (c *Coordinator) Login(ctx context.Context) (token string, err error) {
	ctx, span := c.tracer.Start(ctx, "auth.Login",
		trace.WithAttributes(attribute.String("auth.redirect_uri", c.cfg.RedirectURI)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "login failed")
		}
		span.End()
	}()

	loginURL, err := c.broker.LoginURL(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get login url from broker", "error", err)
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	// Listener must be ready before the user can be redirected to it
	listener, err := callback.Listen(ctx, c.cfg.ListenAddress, c.cfg.RedirectURI, c.broker.ExchangeCode)
	if err != nil {
		return "", err
	}
	defer func() { _ = listener.Close() }()

	_, _ = fmt.Fprintf(c.cfg.Output, "\nPlease login to GitHub:\n%s\n\n", loginURL)
	if err := c.opener.OpenURL(loginURL); err != nil {
		slog.WarnContext(ctx, "could not open browser, open the url manually", "error", err)
	}

	slog.InfoContext(ctx, "waiting for login callback", "address", listener.Addr().String())

	token, err = listener.Wait(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		slog.ErrorContext(ctx, "login did not produce a token", "error", err)
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if err := c.store.Write(ctx, token); err != nil {
		// Token is still good for this run; next run will log in again
		slog.WarnContext(ctx, "failed to cache token", "error", err)
	}

	slog.InfoContext(ctx, "login completed", "token", tokenstore.Redact(token))
	return token, nil
}
