package app

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/leadwire/ghl-relay/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// LogExporter selects where log records go beyond the default handler.
type LogExporter string

const (
	LogExporterNone     LogExporter = "none"
	LogExporterStdout   LogExporter = "stdout"
	LogExporterOTLPHTTP LogExporter = "otlp-http"
	LogExporterOTLPGRPC LogExporter = "otlp-grpc"
)

// StoreBackend represents the different storage backends supported for the
// token pair.
type StoreBackend string

const (
	StoreBackendSQLite  StoreBackend = "sqlite"
	StoreBackendFile    StoreBackend = "file"
	StoreBackendKeyring StoreBackend = "keyring"
)

// Default configuration values
const (
	DefaultConfigLogLevel        = "info"
	DefaultConfigLogFormat       = LogFormatText
	DefaultConfigLogExporter     = LogExporterNone
	DefaultConfigServerHost      = "0.0.0.0"
	DefaultConfigServerPort      = 8000
	DefaultConfigShutdownTimeout = 5 * time.Second
	DefaultConfigStoreBackend    = StoreBackendSQLite
	DefaultConfigGHLBaseURL      = "https://services.leadconnectorhq.com"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"` // Port range 0-65535 handled by uint16 type
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown, including draining in-flight webhook
	// processing.
	Timeout time.Duration `json:"timeout"`
}

// GHLConfig holds the GoHighLevel OAuth client credentials and API location.
type GHLConfig struct {
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
	RedirectURI  string `json:"redirect_uri" validate:"required,url"`
	BaseURL      string `json:"base_url" validate:"required,url"`
}

// TokenURL returns the refresh-token endpoint on the business API. The
// one-time code exchange uses the marketplace endpoint instead (ghl.Endpoint).
func (g *GHLConfig) TokenURL() string {
	return g.BaseURL + "/oauth/token"
}

// StoreConfig describes where the token pair is persisted.
type StoreConfig struct {
	Backend StoreBackend `json:"backend" validate:"required,oneof=sqlite file keyring"`

	// Backend-specific settings (mutually exclusive based on Backend type)
	Path        string `json:"path,omitempty"`         // For sqlite: database file; for file: token file
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier
}

// NewStore creates a tokenstore.Store from the storage configuration.
func (s *StoreConfig) NewStore() (tokenstore.Store, error) {
	switch s.Backend {
	case StoreBackendSQLite:
		return tokenstore.NewSQLiteStore(s.Path)
	case StoreBackendFile:
		return tokenstore.NewFileStore(s.Path)
	case StoreBackendKeyring:
		return tokenstore.NewKeyringStore("ghl-relay-tokens", s.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", s.Backend)
	}
}

// Config holds the application's configuration.
type Config struct {
	LogLevel    string         `json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   LogFormat      `json:"log_format" validate:"oneof=text json"`
	LogExporter LogExporter    `json:"log_exporter" validate:"oneof=none stdout otlp-http otlp-grpc"`
	Server      ServerConfig   `json:"server"`
	Shutdown    ShutdownConfig `json:"shutdown"`
	GHL         GHLConfig      `json:"ghl"`
	Store       StoreConfig    `json:"store"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogLevel == "" {
		c.LogLevel = DefaultConfigLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.LogExporter == "" {
		c.LogExporter = DefaultConfigLogExporter
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}
	if c.GHL.BaseURL == "" {
		c.GHL.BaseURL = DefaultConfigGHLBaseURL
	}
	if c.Store.Backend == "" {
		c.Store.Backend = DefaultConfigStoreBackend
	}

	// Dynamic defaults based on storage backend
	switch c.Store.Backend {
	case StoreBackendSQLite:
		if c.Store.Path == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("store.path required (auto-detect failed: %w)", err)
			}
			c.Store.Path = filepath.Join(configDir, "ghl-relay", "tokens.db")
		}
	case StoreBackendFile:
		if c.Store.Path == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("store.path required (auto-detect failed: %w)", err)
			}
			c.Store.Path = filepath.Join(configDir, "ghl-relay", "tokens.json")
		}
	case StoreBackendKeyring:
		if c.Store.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("store.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Store.KeyringUser = currentUser.Username
		}
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Store.Backend {
	case StoreBackendSQLite, StoreBackendFile:
		if c.Store.Path == "" {
			return errors.New("path required for sqlite and file storage")
		}
	case StoreBackendKeyring:
		if c.Store.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	return nil
}
