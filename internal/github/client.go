// Package github is a minimal GitHub REST client for the operations the CLI performs
// once a token has been resolved.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

// DefaultAPIBaseURL is the public GitHub REST API.
const DefaultAPIBaseURL = "https://api.github.com"

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api responded with status %d: %s", e.StatusCode, e.Message)
}

// errorBody is the error document GitHub sends with non-2xx responses.
type errorBody struct {
	Message string `json:"message"`
}

// Client calls the GitHub REST API with a bearer token.
type Client struct {
	http *resty.Client
}

// New creates a Client that authenticates every request with tokens from ts.
func New(ts oauth2.TokenSource, baseURL string) (*Client, error) {
	if ts == nil {
		return nil, fmt.Errorf("missing token source")
	}
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid api base URL: %w", err)
	}

	rc := resty.NewWithClient(&http.Client{Transport: &oauth2.Transport{Source: ts}}).
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetRetryCount(0).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("X-GitHub-Api-Version", "2022-11-28")

	return &Client{http: rc}, nil
}

// PullRequest describes a pull request to open.
type PullRequest struct {
	Owner string
	Repo  string
	// Head is the branch containing the changes, Base the branch to merge into.
	Head  string
	Base  string
	Title string
	Body  string
}

type htmlURLResponse struct {
	HTMLURL string `json:"html_url"`
}

// CreateRepo creates a repository for the authenticated user and returns its web URL.
func (c *Client) CreateRepo(ctx context.Context, name string, private bool) (string, error) {
	if name == "" {
		return "", errors.New("repository name is required")
	}

	body := map[string]any{
		"name":    name,
		"private": private,
	}
	var out htmlURLResponse
	if err := c.do(ctx, http.MethodPost, "/user/repos", body, &out); err != nil {
		return "", fmt.Errorf("creating repository: %w", err)
	}
	return out.HTMLURL, nil
}

// CreatePullRequest opens a pull request and returns its web URL.
func (c *Client) CreatePullRequest(ctx context.Context, pr PullRequest) (string, error) {
	if pr.Owner == "" || pr.Repo == "" {
		return "", errors.New("owner and repository name must be provided to create a pull request")
	}
	if pr.Head == "" || pr.Base == "" || pr.Title == "" {
		return "", errors.New("head, base and title are required")
	}

	body := map[string]any{
		"title": pr.Title,
		"head":  pr.Head,
		"base":  pr.Base,
		"body":  pr.Body,
	}
	path := "/repos/" + url.PathEscape(pr.Owner) + "/" + url.PathEscape(pr.Repo) + "/pulls"

	var out htmlURLResponse
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return "", fmt.Errorf("creating pull request: %w", err)
	}
	return out.HTMLURL, nil
}

// CurrentUser returns the login of the token's owner.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	var out struct {
		Login string `json:"login"`
	}
	if err := c.do(ctx, http.MethodGet, "/user", nil, &out); err != nil {
		return "", fmt.Errorf("fetching current user: %w", err)
	}
	return out.Login, nil
}

// do sends one request; resty decodes JSON bodies into out or into an errorBody.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	req := c.http.R().
		SetContext(ctx).
		SetResult(out).
		SetError(&errorBody{})
	if in != nil {
		req.SetBody(in)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}

	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode()}
		if body, ok := resp.Error().(*errorBody); ok && body.Message != "" {
			apiErr.Message = body.Message
		} else {
			apiErr.Message = strings.TrimSpace(resp.String())
		}
		return apiErr
	}
	return nil
}
