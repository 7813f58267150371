package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Data backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
}

// DSN returns the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL returns the connection string in URL form, as golang-migrate expects.
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type FXConfig struct {
	ProviderURL string
	Timeout     time.Duration
	CacheTTL    time.Duration
	CacheSize   int
}

type Config struct {
	Port            string
	LogLevel        string
	LogFormat       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	DataBackend string
	Database    DatabaseConfig
	Redis       RedisConfig

	JWTSecret   string
	FX          FXConfig
	DueSoonDays int
}

var envBindings = map[string]string{
	"server.port":                "PORT",
	"server.read_timeout":        "SERVER_READ_TIMEOUT",
	"server.write_timeout":       "SERVER_WRITE_TIMEOUT",
	"server.shutdown_timeout":    "SERVER_SHUTDOWN_TIMEOUT",
	"server.allowed_origins":     "CORS_ALLOWED_ORIGINS",
	"log.level":                  "LOG_LEVEL",
	"log.format":                 "LOG_FORMAT",
	"data.backend":               "DATA_BACKEND",
	"database.host":              "DATABASE_HOST",
	"database.port":              "DATABASE_PORT",
	"database.user":              "DATABASE_USER",
	"database.password":          "DATABASE_PASSWORD",
	"database.name":              "DATABASE_NAME",
	"database.ssl_mode":          "DATABASE_SSL_MODE",
	"database.max_open_conns":    "DATABASE_MAX_OPEN_CONNS",
	"database.max_idle_conns":    "DATABASE_MAX_IDLE_CONNS",
	"database.conn_max_lifetime": "DATABASE_CONN_MAX_LIFETIME",
	"database.migrate":           "DATABASE_MIGRATE",
	"redis.enabled":              "REDIS_ENABLED",
	"redis.host":                 "REDIS_HOST",
	"redis.port":                 "REDIS_PORT",
	"redis.password":             "REDIS_PASSWORD",
	"redis.db":                   "REDIS_DB",
	"jwt.secret_key":             "JWT_SECRET_KEY",
	"fx.provider_url":            "FX_PROVIDER_URL",
	"fx.timeout":                 "FX_TIMEOUT",
	"fx.cache_ttl":               "FX_CACHE_TTL",
	"fx.cache_size":              "FX_CACHE_SIZE",
	"bills.due_soon_days":        "BILLS_DUE_SOON_DAYS",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", "https://*,http://*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("data.backend", BackendMemory)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "ledgerly")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("fx.provider_url", "https://api.frankfurter.app")
	v.SetDefault("fx.timeout", 5*time.Second)
	v.SetDefault("fx.cache_ttl", 5*time.Minute)
	v.SetDefault("fx.cache_size", 256)
	v.SetDefault("bills.due_soon_days", 3)
}

// Load reads .env (when present) and the environment into a Config.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	// A missing .env is fine; the environment and defaults still apply.
	_ = v.ReadInConfig()

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:            v.GetString("server.port"),
		LogLevel:        v.GetString("log.level"),
		LogFormat:       v.GetString("log.format"),
		ReadTimeout:     v.GetDuration("server.read_timeout"),
		WriteTimeout:    v.GetDuration("server.write_timeout"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		AllowedOrigins:  splitList(v.GetString("server.allowed_origins")),
		DataBackend:     strings.ToLower(v.GetString("data.backend")),
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			MigrateOnStart:  v.GetBool("database.migrate"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWTSecret: v.GetString("jwt.secret_key"),
		FX: FXConfig{
			ProviderURL: v.GetString("fx.provider_url"),
			Timeout:     v.GetDuration("fx.timeout"),
			CacheTTL:    v.GetDuration("fx.cache_ttl"),
			CacheSize:   v.GetInt("fx.cache_size"),
		},
		DueSoonDays: v.GetInt("bills.due_soon_days"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.Host == "" {
			errs = append(errs, "database host is required when using postgres backend")
		}
		if c.Database.Name == "" {
			errs = append(errs, "database name is required when using postgres backend")
		}
		if c.Database.MaxOpenConns < 1 {
			errs = append(errs, fmt.Sprintf("invalid max open conns %d: must be at least 1", c.Database.MaxOpenConns))
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendMemory, BackendPostgres))
	}

	if c.Redis.Enabled && c.Redis.Host == "" {
		errs = append(errs, "redis host is required when redis is enabled")
	}

	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET_KEY is required")
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET_KEY must be at least 32 characters")
	}

	if c.FX.ProviderURL != "" {
		if u, err := url.Parse(c.FX.ProviderURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Sprintf("invalid FX provider URL '%s': must be http(s)", c.FX.ProviderURL))
		}
	}
	if c.FX.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("invalid FX timeout %v: must be positive", c.FX.Timeout))
	}
	if c.FX.CacheTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid FX cache TTL %v: must be at least 1 second", c.FX.CacheTTL))
	}
	if c.FX.CacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid FX cache size %d: must be at least 1", c.FX.CacheSize))
	}

	if c.DueSoonDays < 0 || c.DueSoonDays > 31 {
		errs = append(errs, fmt.Sprintf("invalid due-soon window %d: must be between 0 and 31", c.DueSoonDays))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
