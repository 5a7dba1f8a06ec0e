package broker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New(server.URL + "/api/v1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestLoginURL(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/v1/auth/with/github" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get(requestIDHeader) == "" {
			t.Error("missing request id header")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://provider/login?x=1"})
	})

	got, err := c.LoginURL(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://provider/login?x=1" {
		t.Errorf("expected login url, got %q", got)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
}

func TestLoginURLFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "server error is not retried",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "missing url field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			},
			wantErr: ErrMissingLoginURL,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				tt.handler(w, r)
			})

			_, err := c.LoginURL(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if calls != 1 {
				t.Errorf("expected exactly 1 call, got %d", calls)
			}
		})
	}
}

func TestLoginURLNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	c, err := New(baseURL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.LoginURL(context.Background()); err == nil {
		t.Fatal("expected network error")
	}
}

func TestExchangeCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/v1/github/oauth" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body exchangeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if body.Code != "abc123" {
			t.Errorf("expected code abc123, got %q", body.Code)
		}
		if body.RedirectURI != "http://localhost:8765/callback" {
			t.Errorf("unexpected redirect_uri %q", body.RedirectURI)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok_999"})
	})

	got, err := c.ExchangeCode(context.Background(), "abc123", "http://localhost:8765/callback")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "tok_999" {
		t.Errorf("expected tok_999, got %q", got)
	}
}

func TestExchangeCodeMissingToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
	})

	_, err := c.ExchangeCode(context.Background(), "abc123", "http://localhost:8765/callback")
	if !errors.Is(err, ErrMissingAccessToken) {
		t.Fatalf("expected ErrMissingAccessToken, got %v", err)
	}
}

func TestNewRejectsInvalidURL(t *testing.T) {
	if _, err := New("not a url"); err == nil {
		t.Fatal("expected error for invalid base url")
	}
	if _, err := New(DefaultBaseURL, WithProvider("")); err == nil {
		t.Fatal("expected error for empty provider")
	}
}
