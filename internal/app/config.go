package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/gitbruv/internal/broker"
	"github.com/florianilch/gitbruv/internal/github"
	"github.com/florianilch/gitbruv/internal/observability"
	"github.com/florianilch/gitbruv/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// TokenStorageType represents the different storage types supported for the cached token.
type TokenStorageType string

const (
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
)

// Default configuration values
const (
	DefaultConfigLogLevel          = slog.LevelWarn
	DefaultConfigLogFormat         = LogFormatText
	DefaultConfigTelemetryExporter = observability.ExporterNone
	DefaultConfigShutdownTimeout   = 5 * time.Second
	DefaultConfigAuthStorage       = TokenStorageTypeFile
	DefaultConfigAuthEnvKey        = tokenstore.DefaultEnvKey
	DefaultConfigCallbackHost      = "127.0.0.1"
	DefaultConfigCallbackPort      = 8765
	DefaultConfigCallbackPath      = "/callback"
	DefaultConfigBrokerBaseURL     = broker.DefaultBaseURL
	DefaultConfigBrokerProvider    = broker.DefaultProvider
	DefaultConfigGitHubAPIBaseURL  = github.DefaultAPIBaseURL
)

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	Exporter observability.Exporter `json:"exporter" validate:"oneof=none stdout otlp-grpc otlp-http"`
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for flushing telemetry on exit.
	Timeout time.Duration `json:"timeout"`
}

// CallbackConfig describes the local OAuth redirect target. The port must match the
// redirect URI registered with the OAuth app behind the broker.
type CallbackConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port" validate:"required"`
	Path string `json:"path" validate:"required,startswith=/"`
}

// AuthConfig describes where tokens come from and how the interactive login runs.
type AuthConfig struct {
	// Storage is the writable cache for tokens obtained by the interactive login
	Storage TokenStorageType `json:"storage" validate:"required,oneof=file keyring"`

	// Storage-specific settings
	File        string `json:"file,omitempty"`         // For file storage: path to token file
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier

	// EnvKey names the environment variable that overrides any cached token
	EnvKey string `json:"env_key" validate:"required"`

	// NoBrowser prints the login URL without launching a browser
	NoBrowser bool `json:"no_browser"`

	Callback CallbackConfig `json:"callback"`
}

// ListenAddress is the address the callback listener binds.
func (a *AuthConfig) ListenAddress() string {
	return net.JoinHostPort(a.Callback.Host, strconv.FormatUint(uint64(a.Callback.Port), 10))
}

// RedirectURI is the redirect URI sent to the broker.
func (a *AuthConfig) RedirectURI() string {
	return "http://" + net.JoinHostPort("localhost", strconv.FormatUint(uint64(a.Callback.Port), 10)) + a.Callback.Path
}

// NewTokenStore creates the token store: the env override layered over the configured cache.
func (a *AuthConfig) NewTokenStore() (*tokenstore.OverrideStore, error) {
	var cache tokenstore.TokenStore
	var err error

	switch a.Storage {
	case TokenStorageTypeFile:
		cache, err = tokenstore.NewFileStore(a.File)
	case TokenStorageTypeKeyring:
		cache, err = tokenstore.NewKeyringStore(tokenstore.DefaultKeyringService, a.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", a.Storage)
	}
	if err != nil {
		return nil, err
	}

	override, err := tokenstore.NewEnvStore(a.EnvKey)
	if err != nil {
		return nil, err
	}

	return tokenstore.NewOverrideStore(override, cache)
}

// BrokerConfig holds authorization broker configuration.
type BrokerConfig struct {
	BaseURL  string `json:"base_url" validate:"required,url"`
	Provider string `json:"provider" validate:"required,alphanum"`
}

// GitHubConfig holds GitHub REST API configuration.
type GitHubConfig struct {
	APIBaseURL string `json:"api_base_url" validate:"required,url"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Warn if unset).
	LogLevel  slog.Level      `json:"log_level"`
	LogFormat LogFormat       `json:"log_format" validate:"oneof=text json"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Shutdown  ShutdownConfig  `json:"shutdown"`
	Auth      AuthConfig      `json:"auth"`
	Broker    BrokerConfig    `json:"broker"`
	GitHub    GitHubConfig    `json:"github"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{LogLevel: DefaultConfigLogLevel}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Telemetry.Exporter == "" {
		c.Telemetry.Exporter = DefaultConfigTelemetryExporter
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}
	if c.Auth.Storage == "" {
		c.Auth.Storage = DefaultConfigAuthStorage
	}
	if c.Auth.EnvKey == "" {
		c.Auth.EnvKey = DefaultConfigAuthEnvKey
	}
	if c.Auth.Callback.Host == "" {
		c.Auth.Callback.Host = DefaultConfigCallbackHost
	}
	if c.Auth.Callback.Port == 0 {
		c.Auth.Callback.Port = DefaultConfigCallbackPort
	}
	if c.Auth.Callback.Path == "" {
		c.Auth.Callback.Path = DefaultConfigCallbackPath
	}
	if c.Broker.BaseURL == "" {
		c.Broker.BaseURL = DefaultConfigBrokerBaseURL
	}
	if c.Broker.Provider == "" {
		c.Broker.Provider = DefaultConfigBrokerProvider
	}
	if c.GitHub.APIBaseURL == "" {
		c.GitHub.APIBaseURL = DefaultConfigGitHubAPIBaseURL
	}

	// Dynamic defaults based on storage type
	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.File == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("auth.file required (auto-detect failed: %w)", err)
			}
			c.Auth.File = filepath.Join(home, tokenstore.DefaultFileName)
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("auth.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Auth.KeyringUser = currentUser.Username
		}
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.File == "" {
			return errors.New("file path required for file storage")
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	return nil
}
