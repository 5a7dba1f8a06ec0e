// Package broker is a client for the external authorization broker that holds the
// OAuth client secret on behalf of the CLI. The broker issues provider login URLs and
// exchanges authorization codes for access tokens.
//
// Calls are made exactly once; there is no retry and no client-side timeout.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is the public gitbruv authorization broker.
	DefaultBaseURL = "https://api.gitbruv.byorello.space/api/v1"
	// DefaultProvider is the identity provider the broker authenticates against.
	DefaultProvider = "github"

	requestIDHeader = "X-Request-ID"
)

var (
	// ErrMissingLoginURL is returned when the broker answers without a login URL.
	ErrMissingLoginURL = errors.New("broker response has no login url")
	// ErrMissingAccessToken is returned when the exchange succeeds but carries no token.
	ErrMissingAccessToken = errors.New("broker response has no access_token")
)

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	httpClient *http.Client
	provider   string
}

// WithHTTPClient sets the underlying HTTP client (e.g., for custom transports in tests).
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) {
		cfg.httpClient = c
	}
}

// WithProvider overrides the provider path segment (defaults to "github").
func WithProvider(provider string) Option {
	return func(cfg *clientConfig) {
		cfg.provider = provider
	}
}

// Client talks to the authorization broker.
type Client struct {
	http     *resty.Client
	provider string
}

// New creates a Client for the broker at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid broker URL: %w", err)
	}

	cfg := &clientConfig{
		httpClient: &http.Client{},
		provider:   DefaultProvider,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.provider == "" {
		return nil, fmt.Errorf("provider cannot be empty")
	}

	rc := resty.NewWithClient(cfg.httpClient).
		SetBaseURL(baseURL).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetLogger(slogLogger{})

	return &Client{
		http:     rc,
		provider: cfg.provider,
	}, nil
}

type loginURLResponse struct {
	URL string `json:"url"`
}

type exchangeRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

type exchangeResponse struct {
	AccessToken string `json:"access_token"`
}

// LoginURL asks the broker for the provider's login URL.
func (c *Client) LoginURL(ctx context.Context) (string, error) {
	var out loginURLResponse
	if err := c.do(ctx, http.MethodGet, "/auth/with/"+c.provider, nil, &out); err != nil {
		return "", fmt.Errorf("requesting login url: %w", err)
	}
	if out.URL == "" {
		return "", ErrMissingLoginURL
	}
	return out.URL, nil
}

// ExchangeCode trades an authorization code for an access token. redirectURI must be
// the exact redirect URI the code was issued for.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	body := exchangeRequest{Code: code, RedirectURI: redirectURI}

	var out exchangeResponse
	if err := c.do(ctx, http.MethodPost, "/"+c.provider+"/oauth", body, &out); err != nil {
		return "", fmt.Errorf("exchanging authorization code: %w", err)
	}
	if out.AccessToken == "" {
		return "", ErrMissingAccessToken
	}
	return out.AccessToken, nil
}

// do performs a single request and decodes a JSON response body into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	requestID := uuid.NewString()
	logger := slog.Default().With("request_id", requestID, "method", method, "path", path)

	req := c.http.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, requestID)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		logger.WarnContext(ctx, "broker request failed", "error", err)
		return err
	}

	logger.DebugContext(ctx, "broker responded", "status", resp.StatusCode(), "duration", resp.Time())

	if resp.IsError() {
		logger.WarnContext(ctx, "broker returned error status", "status", resp.StatusCode())
		return fmt.Errorf("broker responded with status %d", resp.StatusCode())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decoding broker response: %w", err)
	}
	return nil
}

// slogLogger routes resty's internal diagnostics to slog.
type slogLogger struct{}

// Compile-time check that slogLogger implements resty.Logger.
var _ resty.Logger = slogLogger{}

func (slogLogger) Errorf(format string, v ...any) { slog.Error(fmt.Sprintf(format, v...)) }
func (slogLogger) Warnf(format string, v ...any)  { slog.Warn(fmt.Sprintf(format, v...)) }
func (slogLogger) Debugf(format string, v ...any) { slog.Debug(fmt.Sprintf(format, v...)) }
