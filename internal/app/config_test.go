package app

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/florianilch/gitbruv/internal/tokenstore"
)

func TestDefault(t *testing.T) {
	t.Setenv("HOME", "/home/octocat")

	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must be valid: %v", err)
	}

	if cfg.Auth.File != filepath.Join("/home/octocat", tokenstore.DefaultFileName) {
		t.Errorf("unexpected default token file %q", cfg.Auth.File)
	}
	if cfg.Auth.EnvKey != "GITHUB_TOKEN" {
		t.Errorf("unexpected env key %q", cfg.Auth.EnvKey)
	}
	if got := cfg.Auth.ListenAddress(); got != "127.0.0.1:8765" {
		t.Errorf("unexpected listen address %q", got)
	}
	if got := cfg.Auth.RedirectURI(); got != "http://localhost:8765/callback" {
		t.Errorf("unexpected redirect URI %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown storage",
			mutate:  func(c *Config) { c.Auth.Storage = "env" },
			wantErr: "Storage",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: "LogFormat",
		},
		{
			name:    "bad broker url",
			mutate:  func(c *Config) { c.Broker.BaseURL = "not a url" },
			wantErr: "BaseURL",
		},
		{
			name:    "callback path without slash",
			mutate:  func(c *Config) { c.Auth.Callback.Path = "callback" },
			wantErr: "Path",
		},
		{
			name:    "bad exporter",
			mutate:  func(c *Config) { c.Telemetry.Exporter = "zipkin" },
			wantErr: "Exporter",
		},
		{
			name:    "keyring without user",
			mutate:  func(c *Config) { c.Auth.Storage = TokenStorageTypeKeyring; c.Auth.KeyringUser = "" },
			wantErr: "keyring_user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Default()
			if err != nil {
				t.Fatalf("Default: %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Auth.Storage = TokenStorageTypeKeyring
	cfg.Auth.KeyringUser = "octocat"
	cfg.Auth.Callback.Port = 9999

	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults: %v", err)
	}
	if cfg.Auth.KeyringUser != "octocat" {
		t.Errorf("keyring user overwritten: %q", cfg.Auth.KeyringUser)
	}
	if cfg.Auth.File != "" {
		t.Errorf("file default applied for keyring storage: %q", cfg.Auth.File)
	}
	if got := cfg.Auth.RedirectURI(); got != "http://localhost:9999/callback" {
		t.Errorf("unexpected redirect URI %q", got)
	}
}
