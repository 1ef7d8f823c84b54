package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	List     ListConfig     `koanf:"list"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string          `koanf:"host"`
	Port           int             `koanf:"port"`
	Mode           string          `koanf:"mode"`
	Timeout        string          `koanf:"timeout"`
	TrustRequestID bool            `koanf:"trust_request_id"`
	CORS           CORSConfig      `koanf:"cors"`
	RateLimit      RateLimitConfig `koanf:"rate_limit"`
}

// CORSConfig holds CORS middleware settings.
type CORSConfig struct {
	AllowOrigins     []string `koanf:"allow_origins"`
	AllowMethods     []string `koanf:"allow_methods"`
	AllowHeaders     []string `koanf:"allow_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           string   `koanf:"max_age"`
}

// RateLimitConfig holds per-client rate limiting settings.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `koanf:"driver"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`
	Pool     PoolConfig     `koanf:"pool"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime string `koanf:"conn_max_lifetime"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// GatewayConfig points the client commands at a users API.
type GatewayConfig struct {
	BaseURL string `koanf:"base_url"`
	Timeout string `koanf:"timeout"`
}

// ListConfig tunes the incremental user list.
type ListConfig struct {
	PageSize         int    `koanf:"page_size"`
	Debounce         string `koanf:"debounce"`
	ScrollMargin     int    `koanf:"scroll_margin"`
	MaxCachedQueries int    `koanf:"max_cached_queries"`
}

// Defaults for values left empty in the file and environment.
const (
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 8000
	DefaultSQLitePath       = "data/userdesk.db"
	DefaultGatewayBaseURL   = "http://localhost:8000"
	DefaultGatewayTimeout   = "10s"
	DefaultListPageSize     = 20
	DefaultListDebounce     = "1s"
	DefaultScrollMargin     = 400
	DefaultMaxCachedQueries = 64
)

// Load reads configuration from a YAML file and overlays environment variables.
// Environment variables use the prefix "APP__" and double-underscore as the
// hierarchy separator. Single underscores are preserved as part of the key name.
// For example, APP__GATEWAY__BASE_URL overrides gateway.base_url and
// APP__DATABASE__POOL__MAX_IDLE_CONNS=20 overrides database.pool.max_idle_conns.
// A .env file in the working directory is loaded into the process
// environment first; variables already set win.
func Load(configPath string) (*Config, error) {
	return load(configPath, false)
}

// LoadOptional is Load for callers that can run on defaults: a missing file
// is skipped instead of failing.
func LoadOptional(configPath string) (*Config, error) {
	return load(configPath, true)
}

func load(configPath string, optional bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	skipFile := false
	if optional {
		if configPath == "" {
			skipFile = true
		} else if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
			skipFile = true
		}
	}
	if !skipFile {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// APP__SERVER__PORT -> server.port
	// APP__DATABASE__POOL__MAX_IDLE_CONNS -> database.pool.max_idle_conns
	if err := k.Load(env.Provider("APP__", ".", func(s string) string {
		key := strings.TrimPrefix(s, "APP__")
		key = strings.ToLower(key)
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate fills defaults, normalises values and checks supported values.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateLog(); err != nil {
		return err
	}
	if err := c.validateGateway(); err != nil {
		return err
	}
	return c.validateList()
}

func (c *Config) validateServer() error {
	mode := strings.TrimSpace(c.Server.Mode)
	if mode == "" {
		mode = gin.ReleaseMode
	}
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		c.Server.Mode = mode
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", c.Server.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}

	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}

	c.Server.Host = strings.TrimSpace(c.Server.Host)
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}

	c.Server.Timeout = strings.TrimSpace(c.Server.Timeout)
	if err := checkDuration("server.timeout", c.Server.Timeout); err != nil {
		return err
	}
	c.Server.CORS.MaxAge = strings.TrimSpace(c.Server.CORS.MaxAge)
	if err := checkDuration("server.cors.max_age", c.Server.CORS.MaxAge); err != nil {
		return err
	}

	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RPS <= 0 {
			return fmt.Errorf("invalid server.rate_limit.rps %v: must be positive when rate limiting is enabled", c.Server.RateLimit.RPS)
		}
		if c.Server.RateLimit.Burst <= 0 {
			return fmt.Errorf("invalid server.rate_limit.burst %d: must be positive when rate limiting is enabled", c.Server.RateLimit.Burst)
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	c.Database.Driver = strings.TrimSpace(c.Database.Driver)
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}

	switch c.Database.Driver {
	case "sqlite":
		c.Database.SQLite.Path = strings.TrimSpace(c.Database.SQLite.Path)
		if c.Database.SQLite.Path == "" {
			c.Database.SQLite.Path = DefaultSQLitePath
		}
	case "postgres":
		pg := &c.Database.Postgres
		pg.Host = strings.TrimSpace(pg.Host)
		pg.User = strings.TrimSpace(pg.User)
		pg.DBName = strings.TrimSpace(pg.DBName)
		pg.SSLMode = strings.TrimSpace(pg.SSLMode)

		if pg.Host == "" {
			return fmt.Errorf("database.postgres.host is required when driver is postgres")
		}
		if pg.Port < 1 || pg.Port > 65535 {
			return fmt.Errorf("invalid database.postgres.port %d: must be between 1 and 65535", pg.Port)
		}
		if pg.User == "" {
			return fmt.Errorf("database.postgres.user is required when driver is postgres")
		}
		if pg.DBName == "" {
			return fmt.Errorf("database.postgres.dbname is required when driver is postgres")
		}
		switch pg.SSLMode {
		case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		default:
			return fmt.Errorf("invalid database.postgres.sslmode %q: must be one of %q, %q, %q, %q, %q, %q", pg.SSLMode, "disable", "allow", "prefer", "require", "verify-ca", "verify-full")
		}
		if c.Server.Mode == gin.ReleaseMode && pg.SSLMode != "require" && pg.SSLMode != "verify-ca" && pg.SSLMode != "verify-full" {
			return fmt.Errorf("invalid database.postgres.sslmode %q for server.mode %q: must be one of %q, %q, %q", pg.SSLMode, gin.ReleaseMode, "require", "verify-ca", "verify-full")
		}
	default:
		return fmt.Errorf("invalid database.driver %q: must be one of %q, %q", c.Database.Driver, "sqlite", "postgres")
	}

	c.Database.Pool.ConnMaxLifetime = strings.TrimSpace(c.Database.Pool.ConnMaxLifetime)
	return checkDuration("database.pool.conn_max_lifetime", c.Database.Pool.ConnMaxLifetime)
}

func (c *Config) validateLog() error {
	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	if level == "" {
		level = "info"
	}
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	if format == "" {
		format = "text"
	}
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}
	return nil
}

func (c *Config) validateGateway() error {
	base := strings.TrimRight(strings.TrimSpace(c.Gateway.BaseURL), "/")
	if base == "" {
		base = DefaultGatewayBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid gateway.base_url %q: must be an absolute http(s) URL", c.Gateway.BaseURL)
	}
	c.Gateway.BaseURL = base

	c.Gateway.Timeout = strings.TrimSpace(c.Gateway.Timeout)
	if c.Gateway.Timeout == "" {
		c.Gateway.Timeout = DefaultGatewayTimeout
	}
	return checkDuration("gateway.timeout", c.Gateway.Timeout)
}

func (c *Config) validateList() error {
	if c.List.PageSize == 0 {
		c.List.PageSize = DefaultListPageSize
	}
	if c.List.PageSize < 1 || c.List.PageSize > 100 {
		return fmt.Errorf("invalid list.page_size %d: must be between 1 and 100", c.List.PageSize)
	}

	c.List.Debounce = strings.TrimSpace(c.List.Debounce)
	if c.List.Debounce == "" {
		c.List.Debounce = DefaultListDebounce
	}
	if err := checkDuration("list.debounce", c.List.Debounce); err != nil {
		return err
	}

	if c.List.ScrollMargin == 0 {
		c.List.ScrollMargin = DefaultScrollMargin
	}
	if c.List.ScrollMargin < 0 {
		return fmt.Errorf("invalid list.scroll_margin %d: must not be negative", c.List.ScrollMargin)
	}

	if c.List.MaxCachedQueries == 0 {
		c.List.MaxCachedQueries = DefaultMaxCachedQueries
	}
	if c.List.MaxCachedQueries < 1 {
		return fmt.Errorf("invalid list.max_cached_queries %d: must be positive", c.List.MaxCachedQueries)
	}
	return nil
}

// checkDuration accepts an empty value or a positive Go duration.
func checkDuration(name, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q: must be greater than 0", name, value)
	}
	return nil
}

// Duration parses a value already accepted by Validate. Empty yields 0.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
