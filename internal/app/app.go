package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/florianilch/gitbruv/internal/auth"
	"github.com/florianilch/gitbruv/internal/broker"
	"github.com/florianilch/gitbruv/internal/github"
	"github.com/florianilch/gitbruv/internal/tokenstore"
)

// App wires token resolution and the GitHub client from configuration.
type App struct {
	cfg      *Config
	store    *tokenstore.OverrideStore
	resolver *auth.Resolver

	// ghAuthStatus probes the gh CLI; replaced in tests
	ghAuthStatus func(ctx context.Context) bool
}

// Options holds the collaborators an App is built with. Zero values select the defaults.
type Options struct {
	// Output receives login instructions (the URL to visit).
	Output io.Writer
	// Opener presents the login URL. Defaults to the system browser.
	Opener auth.URLOpener
}

// New creates a new App instance. No I/O is performed until a token is needed.
func New(cfg *Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := cfg.Auth.NewTokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	brokerClient, err := broker.New(cfg.Broker.BaseURL, broker.WithProvider(cfg.Broker.Provider))
	if err != nil {
		return nil, fmt.Errorf("failed to create broker client: %w", err)
	}

	opener := opts.Opener
	if opener == nil {
		opener = auth.BrowserOpener{Disabled: cfg.Auth.NoBrowser}
	}

	coordinator, err := auth.NewCoordinator(brokerClient, store, opener, auth.CoordinatorConfig{
		ListenAddress: cfg.Auth.ListenAddress(),
		RedirectURI:   cfg.Auth.RedirectURI(),
		Output:        opts.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create login coordinator: %w", err)
	}

	resolver, err := auth.NewResolver(store, coordinator.Login)
	if err != nil {
		return nil, fmt.Errorf("failed to create token resolver: %w", err)
	}

	return &App{
		cfg:          cfg,
		store:        store,
		resolver:     resolver,
		ghAuthStatus: ghCLIAuthenticated,
	}, nil
}

// Token resolves a token, running the interactive login if nothing is stored.
func (a *App) Token(ctx context.Context) (string, error) {
	return a.resolver.Resolve(ctx)
}

// GitHub resolves a token and returns a GitHub client authenticated with it.
func (a *App) GitHub(ctx context.Context) (*github.Client, error) {
	token, err := a.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	// Seeded with the resolved token; the resolver is only consulted again if it is cleared
	ts := oauth2.ReuseTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}, a.resolver)
	return github.New(ts, a.cfg.GitHub.APIBaseURL)
}

// Status describes the current authentication state.
type Status struct {
	Source tokenstore.Source
	// Location names the store the token was read from.
	Location string
	// Token is redacted.
	Token string
	// Login is the GitHub user the token belongs to, empty if it could not be verified.
	Login       string
	VerifyError error
	// GHCLI reports whether the gh CLI is authenticated as well.
	GHCLI bool
}

// Status inspects stored credentials without starting an interactive login.
// Token verification and the gh CLI probe run concurrently.
func (a *App) Status(ctx context.Context) (Status, error) {
	token, source, err := a.store.Lookup(ctx)
	if err != nil && !errors.Is(err, tokenstore.ErrNotFound) {
		return Status{}, fmt.Errorf("reading stored token: %w", err)
	}
	status := Status{Source: source, Location: a.store.Describe(source)}

	g, gCtx := errgroup.WithContext(ctx)

	if token != "" {
		status.Token = tokenstore.Redact(token)
		g.Go(func() error {
			client, err := github.New(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}), a.cfg.GitHub.APIBaseURL)
			if err != nil {
				return err
			}
			login, err := client.CurrentUser(gCtx)
			if err != nil {
				slog.DebugContext(gCtx, "token verification failed", "error", err)
				status.VerifyError = err
				return nil
			}
			status.Login = login
			return nil
		})
	}

	g.Go(func() error {
		status.GHCLI = a.ghAuthStatus(gCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return Status{}, err
	}
	return status, nil
}

// ghCLIAuthenticated reports whether `gh auth status` succeeds.
func ghCLIAuthenticated(ctx context.Context) bool {
	if _, err := exec.LookPath("gh"); err != nil {
		return false
	}
	return exec.CommandContext(ctx, "gh", "auth", "status").Run() == nil
}
