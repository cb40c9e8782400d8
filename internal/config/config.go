// Package config loads service settings from the environment.
//
// Each section is processed by envconfig and then validated on its own, so
// an error message always names the section it came from.
package config

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	App           AppConfig
	Observability ObservabilityConfig
	Redis         RedisConfig
	NATS          NATSConfig
	Links         LinksConfig
	Clicks        ClicksConfig
	Analytics     AnalyticsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"SERVER_PORT" required:"true"`
	Host            string        `envconfig:"SERVER_HOST" required:"true"`
	BaseURL         string        `envconfig:"SERVER_BASE_URL" required:"true"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" required:"true"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" required:"true"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" required:"true"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" required:"true"`
	// TrustedProxies lists addresses or CIDR prefixes whose forwarding
	// headers are believed. Empty means client IPs come from the socket.
	TrustedProxies []string `envconfig:"SERVER_TRUSTED_PROXIES"`
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base URL must be absolute, got %q", c.BaseURL)
	}
	for name, d := range map[string]time.Duration{
		"read timeout":     c.ReadTimeout,
		"write timeout":    c.WriteTimeout,
		"idle timeout":     c.IdleTimeout,
		"shutdown timeout": c.ShutdownTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is treated as
// a single-host prefix.
func (c *ServerConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host          string `envconfig:"DB_HOST" required:"true"`
	Port          string `envconfig:"DB_PORT" required:"true"`
	User          string `envconfig:"DB_USER" required:"true"`
	Password      string `envconfig:"DB_PASSWORD" required:"true"`
	Name          string `envconfig:"DB_NAME" required:"true"`
	SSLMode       string `envconfig:"DB_SSLMODE" required:"true"`
	MaxConns      int32  `envconfig:"DB_MAX_CONNS" required:"true"`
	MinConns      int32  `envconfig:"DB_MIN_CONNS" required:"true"`
	RunMigrations bool   `envconfig:"DB_RUN_MIGRATIONS" default:"true"`
}

var validSSLModes = map[string]bool{
	"disable":     true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.User == "" {
		return fmt.Errorf("user cannot be empty")
	}
	if c.Password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if c.MaxConns <= 0 || c.MinConns <= 0 {
		return fmt.Errorf("connection limits must be positive")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("min connections (%d) cannot be greater than max connections (%d)", c.MinConns, c.MaxConns)
	}
	if !validSSLModes[c.SSLMode] {
		return fmt.Errorf("invalid SSL mode: %s (must be one of: disable, require, verify-ca, verify-full)", c.SSLMode)
	}
	return nil
}

// ConnectionString returns the keyword/value DSN used by pgxpool.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// URL returns the postgres:// form golang-migrate expects.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" required:"true"`   // development, staging, production, test
	LogLevel    string `envconfig:"LOG_LEVEL" required:"true"` // debug, info, warn, error
}

func (c *AppConfig) Validate() error {
	switch c.Environment {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Environment)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// ObservabilityConfig names the service in logs and health output.
type ObservabilityConfig struct {
	Enabled           bool    `envconfig:"OTEL_ENABLED" required:"true"`
	ServiceName       string  `envconfig:"OTEL_SERVICE_NAME" default:"linkmetrics"`
	ServiceVersion    string  `envconfig:"OTEL_SERVICE_VERSION" default:"dev"`
	OTelEndpoint      string  `envconfig:"OTEL_ENDPOINT"`
	TracingSampleRate float64 `envconfig:"OTEL_TRACING_SAMPLE_RATE"`
}

func (c *ObservabilityConfig) Validate() error {
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("tracing sample rate must be between 0 and 1, got %f", c.TracingSampleRate)
	}
	if c.Enabled && c.OTelEndpoint == "" {
		return fmt.Errorf("OTEL endpoint is required when observability is enabled")
	}
	return nil
}

// RedisConfig enables the resolve cache and the unique-visitor window store.
type RedisConfig struct {
	Enabled  bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Addr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL time.Duration `envconfig:"REDIS_CACHE_TTL" default:"10m"`
}

func (c *RedisConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("addr is required when redis is enabled")
	}
	if c.DB < 0 {
		return fmt.Errorf("db index cannot be negative")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	return nil
}

// NATSConfig switches click dispatch to a JetStream stream.
type NATSConfig struct {
	Enabled  bool   `envconfig:"NATS_ENABLED" default:"false"`
	URL      string `envconfig:"NATS_URL" default:"nats://localhost:4222"`
	Stream   string `envconfig:"NATS_STREAM" default:"CLICKS"`
	Subject  string `envconfig:"NATS_SUBJECT" default:"clicks.recorded"`
	Consumer string `envconfig:"NATS_CONSUMER" default:"click-recorder"`
}

func (c *NATSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.URL == "" || c.Stream == "" || c.Subject == "" || c.Consumer == "" {
		return fmt.Errorf("url, stream, subject and consumer are required when nats is enabled")
	}
	return nil
}

// LinksConfig tunes code allocation and registry limits.
type LinksConfig struct {
	CodeLength            int `envconfig:"LINKS_CODE_LENGTH" default:"7"`
	MaxAllocationAttempts int `envconfig:"LINKS_MAX_ALLOCATION_ATTEMPTS" default:"10"`
	OwnerQuota            int `envconfig:"LINKS_OWNER_QUOTA" default:"20"`
	MaxURLLength          int `envconfig:"LINKS_MAX_URL_LENGTH" default:"2048"`
	MaxExpiresInDays      int `envconfig:"LINKS_MAX_EXPIRES_IN_DAYS" default:"3650"`
	PopularDefaultDays    int `envconfig:"LINKS_POPULAR_DAYS" default:"7"`
	ListMaxLimit          int `envconfig:"LINKS_LIST_MAX_LIMIT" default:"100"`
}

func (c *LinksConfig) Validate() error {
	if c.CodeLength < 3 || c.CodeLength > 30 {
		return fmt.Errorf("code length must be between 3 and 30, got %d", c.CodeLength)
	}
	if c.MaxAllocationAttempts <= 0 {
		return fmt.Errorf("max allocation attempts must be positive")
	}
	if c.OwnerQuota <= 0 {
		return fmt.Errorf("owner quota must be positive")
	}
	if c.MaxURLLength <= 0 {
		return fmt.Errorf("max URL length must be positive")
	}
	if c.MaxExpiresInDays <= 0 {
		return fmt.Errorf("max expiry days must be positive")
	}
	if c.PopularDefaultDays <= 0 || c.ListMaxLimit <= 0 {
		return fmt.Errorf("listing defaults must be positive")
	}
	return nil
}

// ClicksConfig tunes click recording.
type ClicksConfig struct {
	UniqueWindow  time.Duration `envconfig:"CLICKS_UNIQUE_WINDOW" default:"24h"`
	Workers       int           `envconfig:"CLICKS_WORKERS" default:"4"`
	QueueSize     int           `envconfig:"CLICKS_QUEUE_SIZE" default:"1024"`
	RecordTimeout time.Duration `envconfig:"CLICKS_RECORD_TIMEOUT" default:"5s"`
	GeoIPDBPath   string        `envconfig:"GEOIP_DB_PATH"`
}

func (c *ClicksConfig) Validate() error {
	if c.UniqueWindow <= 0 {
		return fmt.Errorf("unique window must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive")
	}
	if c.RecordTimeout <= 0 {
		return fmt.Errorf("record timeout must be positive")
	}
	return nil
}

// AnalyticsConfig bounds aggregation cost.
type AnalyticsConfig struct {
	MaxRangeDays int           `envconfig:"ANALYTICS_MAX_RANGE_DAYS" default:"366"`
	QueryTimeout time.Duration `envconfig:"ANALYTICS_QUERY_TIMEOUT" default:"10s"`
	MaxGroups    int           `envconfig:"ANALYTICS_MAX_GROUPS" default:"50"`
	MaxSummary   int           `envconfig:"ANALYTICS_MAX_SUMMARY_ITEMS" default:"50"`
}

func (c *AnalyticsConfig) Validate() error {
	if c.MaxRangeDays <= 0 {
		return fmt.Errorf("max range days must be positive")
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("query timeout must be positive")
	}
	if c.MaxGroups <= 0 || c.MaxSummary <= 0 {
		return fmt.Errorf("result caps must be positive")
	}
	return nil
}

type validator interface {
	Validate() error
}

// Load loads configuration from environment variables only.
// .env handling belongs to the app bootstrap.
func Load() (*Config, error) {
	cfg := &Config{}

	sections := []struct {
		name   string
		target validator
	}{
		{"Server", &cfg.Server},
		{"Database", &cfg.Database},
		{"App", &cfg.App},
		{"Observability", &cfg.Observability},
		{"Redis", &cfg.Redis},
		{"NATS", &cfg.NATS},
		{"Links", &cfg.Links},
		{"Clicks", &cfg.Clicks},
		{"Analytics", &cfg.Analytics},
	}

	for _, s := range sections {
		if err := envconfig.Process("", s.target); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", s.name, err)
		}
		if err := s.target.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", s.name, err)
		}
	}

	return cfg, nil
}
