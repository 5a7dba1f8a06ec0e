package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/gitbruv/internal/github"
)

func repoCommand() *cli.Command {
	return &cli.Command{
		Name:  "repo",
		Usage: "Manage GitHub repositories",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a repository for the authenticated user",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "public",
						Usage: "create a public repository (private by default)",
					},
				},
				Action: repoCreateAction,
			},
		},
	}
}

func pullRequestCommand() *cli.Command {
	return &cli.Command{
		Name:  "pr",
		Usage: "Manage pull requests",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Open a pull request",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Usage: "repository owner (user or organization)", Required: true},
					&cli.StringFlag{Name: "repo", Usage: "repository name", Required: true},
					&cli.StringFlag{Name: "head", Usage: "branch containing the changes", Required: true},
					&cli.StringFlag{Name: "base", Usage: "branch to merge into", Value: "main"},
					&cli.StringFlag{Name: "title", Usage: "pull request title", Required: true},
					&cli.StringFlag{Name: "body", Usage: "pull request description"},
				},
				Action: pullRequestCreateAction,
			},
		},
	}
}

func repoCreateAction(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return errors.New("repository name is required")
	}

	application, cleanup, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	client, err := application.GitHub(ctx)
	if err != nil {
		return tokenError(err)
	}

	htmlURL, err := client.CreateRepo(ctx, name, !cmd.Bool("public"))
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.Root().Writer, "✓ Created repository %s\n", htmlURL)
	return nil
}

func pullRequestCreateAction(ctx context.Context, cmd *cli.Command) error {
	application, cleanup, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	client, err := application.GitHub(ctx)
	if err != nil {
		return tokenError(err)
	}

	htmlURL, err := client.CreatePullRequest(ctx, github.PullRequest{
		Owner: cmd.String("owner"),
		Repo:  cmd.String("repo"),
		Head:  cmd.String("head"),
		Base:  cmd.String("base"),
		Title: cmd.String("title"),
		Body:  cmd.String("body"),
	})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.Root().Writer, "✓ Created pull request %s\n", htmlURL)
	return nil
}
