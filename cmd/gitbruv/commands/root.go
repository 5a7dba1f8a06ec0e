package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/gitbruv/internal/app"
	"github.com/florianilch/gitbruv/internal/auth"
	"github.com/florianilch/gitbruv/internal/callback"
	"github.com/florianilch/gitbruv/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	return newRootCommand(os.Stdout, os.Stderr).Run(ctx, args)
}

func newRootCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "gitbruv",
		Usage:     "GitHub from your terminal",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: app.DefaultConfigLogLevel.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:  "telemetry--exporter",
				Usage: "telemetry exporter (none|stdout|otlp-grpc|otlp-http)",
				Value: string(app.DefaultConfigTelemetryExporter),
			},
			&cli.StringFlag{
				Name:  "auth--storage",
				Usage: "token cache (file|keyring)",
				Value: string(app.DefaultConfigAuthStorage),
			},
			&cli.StringFlag{
				Name:  "auth--file",
				Usage: "token cache file (default ~/.gitbruv_token)",
			},
			&cli.BoolFlag{
				Name:  "auth--no-browser",
				Usage: "print the login URL without opening a browser",
			},
			&cli.IntFlag{
				Name:  "auth--callback--port",
				Usage: "local port receiving the OAuth redirect",
				Value: app.DefaultConfigCallbackPort,
			},
			&cli.StringFlag{
				Name:  "broker--base-url",
				Usage: "authorization broker base URL",
				Value: app.DefaultConfigBrokerBaseURL,
			},
		},
		Commands: []*cli.Command{
			authCommand(),
			repoCommand(),
			pullRequestCommand(),
		},
	}
}

// setup loads configuration, installs logging and builds the App.
// The returned cleanup flushes telemetry and must always be called.
func setup(ctx context.Context, cmd *cli.Command) (*app.App, func(), error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	shutdown, err := observability.Instrument(ctx, observability.Options{
		Level:    cfg.LogLevel,
		Format:   string(cfg.LogFormat),
		Exporter: cfg.Telemetry.Exporter,
		Writer:   cmd.Root().ErrWriter,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Shutdown.Timeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "telemetry shutdown failed", "error", err)
		}
	}

	application, err := app.New(cfg, app.Options{
		// Login instructions are diagnostics; stdout carries only command results
		Output: cmd.Root().ErrWriter,
		Opener: auth.BrowserOpener{Disabled: cfg.Auth.NoBrowser || !interactive()},
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create app: %w", err)
	}

	return application, cleanup, nil
}

// interactive reports whether a user is at the terminal to follow a browser login.
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// tokenError turns a failed token resolution into an actionable message.
func tokenError(err error) error {
	switch {
	case errors.Is(err, callback.ErrPortInUse):
		return fmt.Errorf("the login callback port is in use by another process, free it and run `gitbruv auth login`: %w", err)
	case errors.Is(err, auth.ErrUnavailable):
		return fmt.Errorf("GitHub access token not found or could not be retrieved. Please run `gitbruv auth login` to authenticate: %w", err)
	default:
		return err
	}
}
