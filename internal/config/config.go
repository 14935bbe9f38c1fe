package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Feed     FeedConfig     `mapstructure:"feed"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// RemoteConfig holds the remote invoice service endpoints
type RemoteConfig struct {
	APIURL     string        `mapstructure:"api_url"`
	InvoiceURL string        `mapstructure:"invoice_url"`
	DiscardURL string        `mapstructure:"discard_url"`
	Passphrase string        `mapstructure:"passphrase"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// UpstreamConfig holds the extraction socket settings. An empty URL disables it.
type UpstreamConfig struct {
	URL            string        `mapstructure:"url"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// SyncConfig holds the remote sync poller settings. A zero interval disables it.
type SyncConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	ClientID  string        `mapstructure:"client_id"`
	InvoiceID string        `mapstructure:"invoice_id"`
}

// FeedConfig holds live feed settings
type FeedConfig struct {
	LogSize int `mapstructure:"log_size"`
}

// Load loads configuration from file and environment variables. A missing
// file is not an error when configPath is empty.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ResolvePath returns the CONFIG_PATH override or fallback when the file exists,
// and "" when neither does.
func ResolvePath(fallback string) string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	if _, err := os.Stat(fallback); err == nil {
		return fallback
	}
	return ""
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("database.path", "data/facturas.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("remote.timeout", 15*time.Second)

	v.SetDefault("upstream.reconnect_delay", 5*time.Second)

	v.SetDefault("sync.interval", 0)

	v.SetDefault("feed.log_size", 50)
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	_ = v.BindEnv("remote.passphrase", "REMOTE_PASSPHRASE")
	_ = v.BindEnv("remote.api_url", "REMOTE_API_URL")
	_ = v.BindEnv("remote.invoice_url", "REMOTE_INVOICE_URL")
	_ = v.BindEnv("remote.discard_url", "REMOTE_DISCARD_URL")
	_ = v.BindEnv("upstream.url", "UPSTREAM_WS_URL")
	_ = v.BindEnv("sync.client_id", "SYNC_CLIENT_ID")
	_ = v.BindEnv("sync.invoice_id", "SYNC_INVOICE_ID")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	switch c.Logger.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format))
	}

	if c.Sync.Interval > 0 {
		if c.Remote.InvoiceURL == "" {
			errs = append(errs, errors.New("remote.invoice_url is required when sync is enabled"))
		}
		if c.Remote.Passphrase == "" {
			errs = append(errs, errors.New("remote.passphrase is required when sync is enabled"))
		}
	}
	if c.Sync.Interval < 0 {
		errs = append(errs, errors.New("sync.interval must not be negative"))
	}
	if c.Feed.LogSize <= 0 {
		errs = append(errs, errors.New("feed.log_size must be positive"))
	}

	return errors.Join(errs...)
}
