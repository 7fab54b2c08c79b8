package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Provider  ProviderConfig
	AutoReply AutoReplyConfig
	Session   SessionConfig
	Realtime  RealtimeConfig
	Dedupe    DedupeConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// ProviderConfig holds telephony provider settings
type ProviderConfig struct {
	// Backend selects the provider implementation: "twilio" or "mock"
	Backend    string
	AccountSID string
	AuthToken  string
	BaseURL    string
	Timeout    time.Duration
	// WebhookBaseURL is the public URL webhooks are served under; the
	// provider signs callbacks against it
	WebhookBaseURL string
	// ValidateSignatures turns webhook signature verification on.
	// Development setups without a public URL leave it off.
	ValidateSignatures bool
}

// AutoReplyConfig holds automated reply settings
type AutoReplyConfig struct {
	Enabled bool
	// Backend selects the generator: "http" calls an external chat
	// service, "mock" answers from canned keyword responses
	Backend  string
	Endpoint string
	ActorID  string
	Delay    time.Duration
	Timeout  time.Duration
}

// SessionConfig holds conversation continuity settings
type SessionConfig struct {
	// IdleWindow is how long after its last message a session still
	// absorbs new inbound traffic from the same remote number
	IdleWindow time.Duration
}

// RealtimeConfig holds realtime broadcast settings
type RealtimeConfig struct {
	// Backend selects the broadcaster: "memory" keeps subscriptions in
	// process, "redis" fans out over Redis pub/sub for multi-instance
	// deployments
	Backend string
}

// DedupeConfig holds webhook deduplication settings
type DedupeConfig struct {
	// Backend selects the idempotency store: "memory" or "redis"
	Backend string
	TTL     time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CHATRELAY_ prefix (e.g., CHATRELAY_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CHATRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Provider: ProviderConfig{
			Backend:    v.GetString("provider.backend"),
			AccountSID: v.GetString("provider.account_sid"),
			AuthToken:  v.GetString("provider.auth_token"),
			BaseURL:    v.GetString("provider.base_url"),
			Timeout:    v.GetDuration("provider.timeout"),

			WebhookBaseURL:     v.GetString("provider.webhook_base_url"),
			ValidateSignatures: v.GetBool("provider.validate_signatures"),
		},
		AutoReply: AutoReplyConfig{
			Enabled:  v.GetBool("autoreply.enabled"),
			Backend:  v.GetString("autoreply.backend"),
			Endpoint: v.GetString("autoreply.endpoint"),
			ActorID:  v.GetString("autoreply.actor_id"),
			Delay:    v.GetDuration("autoreply.delay"),
			Timeout:  v.GetDuration("autoreply.timeout"),
		},
		Session: SessionConfig{
			IdleWindow: v.GetDuration("session.idle_window"),
		},
		Realtime: RealtimeConfig{
			Backend: v.GetString("realtime.backend"),
		},
		Dedupe: DedupeConfig{
			Backend: v.GetString("dedupe.backend"),
			TTL:     v.GetDuration("dedupe.ttl"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "chatrelay-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "chatrelay"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB; webhook bodies are small
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Provider.Backend == "" {
		cfg.Provider.Backend = "mock"
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://api.twilio.com"
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = 15 * time.Second
	}
	if cfg.AutoReply.Backend == "" {
		cfg.AutoReply.Backend = "mock"
	}
	if cfg.AutoReply.Endpoint == "" {
		cfg.AutoReply.Endpoint = "http://127.0.0.1:8100/chat"
	}
	if cfg.AutoReply.Timeout == 0 {
		cfg.AutoReply.Timeout = 30 * time.Second
	}
	if cfg.Session.IdleWindow == 0 {
		cfg.Session.IdleWindow = 5 * time.Minute
	}
	if cfg.Realtime.Backend == "" {
		cfg.Realtime.Backend = "memory"
	}
	if cfg.Dedupe.Backend == "" {
		cfg.Dedupe.Backend = "memory"
	}
	if cfg.Dedupe.TTL == 0 {
		cfg.Dedupe.TTL = 24 * time.Hour
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Provider.Backend {
	case "twilio", "mock":
	default:
		return fmt.Errorf("provider.backend must be 'twilio' or 'mock', got %q", c.Provider.Backend)
	}
	switch c.AutoReply.Backend {
	case "http", "mock":
	default:
		return fmt.Errorf("autoreply.backend must be 'http' or 'mock', got %q", c.AutoReply.Backend)
	}
	switch c.Realtime.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("realtime.backend must be 'memory' or 'redis', got %q", c.Realtime.Backend)
	}
	switch c.Dedupe.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("dedupe.backend must be 'memory' or 'redis', got %q", c.Dedupe.Backend)
	}

	if c.Session.IdleWindow < 0 {
		return fmt.Errorf("session.idle_window cannot be negative")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Provider.Backend == "twilio" {
			if c.Provider.AccountSID == "" || c.Provider.AuthToken == "" {
				return fmt.Errorf("provider.account_sid and provider.auth_token are required with the twilio backend in production")
			}
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis address in host:port form
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
