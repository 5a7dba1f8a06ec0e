package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/florianilch/gitbruv/internal/auth"
	"github.com/florianilch/gitbruv/internal/tokenstore"
)

// newTestConfig returns a valid config whose token file lives in a temp dir.
func newTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	cfg.Auth.File = filepath.Join(t.TempDir(), tokenstore.DefaultFileName)
	cfg.Auth.EnvKey = "GITBRUV_TEST_GITHUB_TOKEN"
	return cfg
}

func newGitHubServer(t *testing.T, wantToken string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if r.Header.Get("Authorization") != "Bearer "+wantToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
			return
		}
		switch r.URL.Path {
		case "/user":
			_ = json.NewEncoder(w).Encode(map[string]string{"login": "octocat"})
		case "/user/repos":
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]string{"html_url": "https://github.com/octocat/hello"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAppTokenFromOverride(t *testing.T) {
	cfg := newTestConfig(t)
	t.Setenv(cfg.Auth.EnvKey, "env_tok")

	a, err := New(cfg, Options{Opener: auth.URLOpenerFunc(func(string) error {
		t.Fatal("browser must not open")
		return nil
	})})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	token, err := a.Token(context.Background())
	if err != nil || token != "env_tok" {
		t.Fatalf("expected env_tok, got %q, %v", token, err)
	}
	if _, err := os.Stat(cfg.Auth.File); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("override must not be written to the cache, stat err: %v", err)
	}
}

func TestAppGitHubUsesCachedToken(t *testing.T) {
	cfg := newTestConfig(t)
	server := newGitHubServer(t, "cached_tok")
	cfg.GitHub.APIBaseURL = server.URL
	if err := os.WriteFile(cfg.Auth.File, []byte("cached_tok\n"), 0o600); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	a, err := New(cfg, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	client, err := a.GitHub(context.Background())
	if err != nil {
		t.Fatalf("GitHub: %v", err)
	}
	got, err := client.CreateRepo(context.Background(), "hello", true)
	if err != nil {
		t.Fatalf("CreateRepo: %v", err)
	}
	if got != "https://github.com/octocat/hello" {
		t.Errorf("unexpected url %q", got)
	}
}

func TestAppGitHubUnavailable(t *testing.T) {
	cfg := newTestConfig(t)
	// Broker is unreachable, so the interactive login fails before binding the port
	server := httptest.NewServer(http.NotFoundHandler())
	cfg.Broker.BaseURL = server.URL
	server.Close()

	a, err := New(cfg, Options{Opener: auth.BrowserOpener{Disabled: true}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := a.GitHub(context.Background()); !errors.Is(err, auth.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestAppStatus(t *testing.T) {
	tests := []struct {
		name       string
		envToken   string
		cacheToken string
		wantSource tokenstore.Source
		wantLogin  string
		wantVerify bool
	}{
		{name: "nothing stored", wantSource: tokenstore.SourceNone},
		{name: "cached token", cacheToken: "good_token", wantSource: tokenstore.SourceCache, wantLogin: "octocat"},
		{name: "override token", envToken: "good_token", wantSource: tokenstore.SourceOverride, wantLogin: "octocat"},
		{name: "rejected token", cacheToken: "bad_token", wantSource: tokenstore.SourceCache, wantVerify: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			cfg.GitHub.APIBaseURL = newGitHubServer(t, "good_token").URL
			t.Setenv(cfg.Auth.EnvKey, tt.envToken)
			if tt.cacheToken != "" {
				if err := os.WriteFile(cfg.Auth.File, []byte(tt.cacheToken), 0o600); err != nil {
					t.Fatalf("seeding cache: %v", err)
				}
			}

			a, err := New(cfg, Options{})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			a.ghAuthStatus = func(context.Context) bool { return true }

			status, err := a.Status(context.Background())
			if err != nil {
				t.Fatalf("Status: %v", err)
			}
			if status.Source != tt.wantSource {
				t.Errorf("expected source %q, got %q", tt.wantSource, status.Source)
			}
			if status.Login != tt.wantLogin {
				t.Errorf("expected login %q, got %q", tt.wantLogin, status.Login)
			}
			if (status.VerifyError != nil) != tt.wantVerify {
				t.Errorf("unexpected verify error: %v", status.VerifyError)
			}
			if !status.GHCLI {
				t.Error("expected gh CLI probe result")
			}
			if status.Token == "good_token" || status.Token == "bad_token" {
				t.Errorf("token must be redacted, got %q", status.Token)
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Auth.Storage = "env"
	if _, err := New(cfg, Options{}); err == nil {
		t.Fatal("expected error")
	}
}
