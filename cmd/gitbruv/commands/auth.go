package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/gitbruv/internal/tokenstore"
)

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with GitHub",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Log in to GitHub in the browser",
				Action: authLoginAction,
			},
			{
				Name:   "status",
				Usage:  "Show authentication status",
				Action: authStatusAction,
			},
			{
				Name:   "token",
				Usage:  "Print the GitHub access token",
				Action: authTokenAction,
			},
		},
	}
}

func authLoginAction(ctx context.Context, cmd *cli.Command) error {
	application, cleanup, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	token, err := application.Token(ctx)
	if err != nil {
		return fmt.Errorf("GitHub login failed: %w", tokenError(err))
	}

	_, _ = fmt.Fprintf(cmd.Root().Writer, "✓ Logged in to GitHub (token %s)\n", tokenstore.Redact(token))
	return nil
}

func authStatusAction(ctx context.Context, cmd *cli.Command) error {
	application, cleanup, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	status, err := application.Status(ctx)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	switch status.Source {
	case tokenstore.SourceNone:
		_, _ = fmt.Fprintln(out, "✗ Not logged in to GitHub. Run `gitbruv auth login` to authenticate.")
	default:
		_, _ = fmt.Fprintf(out, "Token: %s (from %s)\n", status.Token, status.Location)
		if status.VerifyError != nil {
			_, _ = fmt.Fprintf(out, "✗ Token was rejected: %v\n", status.VerifyError)
		} else {
			_, _ = fmt.Fprintf(out, "✓ Logged in to GitHub as %s\n", status.Login)
		}
	}

	if status.GHCLI {
		_, _ = fmt.Fprintln(out, "✓ gh CLI is authenticated")
	} else {
		_, _ = fmt.Fprintln(out, "- gh CLI is not authenticated")
	}

	return nil
}

func authTokenAction(ctx context.Context, cmd *cli.Command) error {
	application, cleanup, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	token, err := application.Token(ctx)
	if err != nil {
		return tokenError(err)
	}

	_, _ = fmt.Fprintln(cmd.Root().Writer, token)
	return nil
}
