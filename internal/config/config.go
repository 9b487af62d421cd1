// Package config loads application configuration from defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Supported database drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

const envPrefix = "PARTS_"

// legacyEnv maps variables used by earlier deployments onto config keys.
var legacyEnv = map[string]string{
	"PORT":                "server.port",
	"ACCESS_TOKEN_SECRET": "jwt.secret_key",
	"STRIPE_SECRET_KEY":   "payments.stripe_secret_key",
	"DB_USER":             "mongo.username",
	"DB_PASS":             "mongo.password",
	"MONGO_URI":           "mongo.uri",
	"DATABASE_URL":        "postgres.url",
}

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Mongo    MongoConfig    `koanf:"mongo"`
	Postgres PostgresConfig `koanf:"postgres"`
	JWT      JWTConfig      `koanf:"jwt"`
	Payments PaymentsConfig `koanf:"payments"`
	Cache    CacheConfig    `koanf:"cache"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	CORS     CORSConfig     `koanf:"cors"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	// RequestTimeout bounds handler work. It must end before WriteTimeout so
	// the timeout response can still be written.
	RequestTimeout time.Duration `koanf:"request_timeout"`
	// LoginRateLimit is the sustained token issuance rate per client IP (requests/second).
	LoginRateLimit float64 `koanf:"login_rate_limit"`
	LoginRateBurst int     `koanf:"login_rate_burst"`
}

// DatabaseConfig selects the document store backend.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
}

// MongoConfig holds MongoDB settings.
type MongoConfig struct {
	URI         string `koanf:"uri"`
	Database    string `koanf:"database"`
	Username    string `koanf:"username"`
	Password    string `koanf:"password"`
	MaxPoolSize uint64 `koanf:"max_pool_size"`
	// Transactions enables multi-document transactions (requires a replica set).
	Transactions bool `koanf:"transactions"`
}

// PostgresConfig holds PostgreSQL settings.
type PostgresConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// JWTConfig holds bearer token settings.
type JWTConfig struct {
	SecretKey string `koanf:"secret_key"`
	Issuer    string `koanf:"issuer"`
	// AccessTokenDuration of zero issues tokens without an expiry claim.
	AccessTokenDuration time.Duration `koanf:"access_token_duration"`
}

// PaymentsConfig holds payment processor settings.
type PaymentsConfig struct {
	StripeSecretKey string `koanf:"stripe_secret_key"`
	StripeAPIURL    string `koanf:"stripe_api_url"`
	Currency        string `koanf:"currency"`
}

// CacheConfig holds Redis cache settings.
type CacheConfig struct {
	Enabled       bool          `koanf:"enabled"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	TTL           time.Duration `koanf:"ttl"`
}

// CatalogConfig holds part listing settings.
type CatalogConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
	// LegacyPageSkip uses the raw page index as the skip count.
	LegacyPageSkip bool `koanf:"legacy_page_skip"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "5000",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			RequestTimeout:    25 * time.Second,
			LoginRateLimit:    5,
			LoginRateBurst:    10,
		},
		Database: DatabaseConfig{
			Driver:          DriverMongo,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
		},
		Mongo: MongoConfig{
			URI:         "mongodb://localhost:27017",
			Database:    "partsBd",
			MaxPoolSize: 50,
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		JWT: JWTConfig{
			Issuer: "parts-server",
		},
		Payments: PaymentsConfig{
			Currency: "usd",
		},
		Cache: CacheConfig{
			RedisAddr: "localhost:6379",
			TTL:       5 * time.Minute,
		},
		Catalog: CatalogConfig{
			DefaultPageSize: 10,
			MaxPageSize:     100,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. Values from the YAML file at path (optional)
// override defaults, and environment variables override the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envKey maps PARTS_SECTION__KEY and legacy variable names to config keys.
// Unrelated variables get an empty key and are skipped.
func envKey(key, value string) (string, interface{}) {
	if k, ok := legacyEnv[key]; ok {
		return k, value
	}
	if !strings.HasPrefix(key, envPrefix) || key == envPrefix+"CONFIG" {
		return "", nil
	}
	k := strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return strings.ReplaceAll(k, "__", "."), value
}

// Validate checks required settings.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.SecretKey == "" {
		errs = append(errs, errors.New("jwt.secret_key is required"))
	}

	switch c.Database.Driver {
	case DriverMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("mongo.uri is required for the mongo driver"))
		}
		if c.Mongo.Database == "" {
			errs = append(errs, errors.New("mongo.database is required for the mongo driver"))
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("postgres.url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q, got %q", DriverMongo, DriverPostgres, c.Database.Driver))
	}

	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be positive"))
	} else if c.Server.WriteTimeout > 0 && c.Server.RequestTimeout >= c.Server.WriteTimeout {
		errs = append(errs, errors.New("server.request_timeout must be shorter than server.write_timeout"))
	}

	if c.Catalog.DefaultPageSize < 1 || c.Catalog.MaxPageSize < c.Catalog.DefaultPageSize {
		errs = append(errs, errors.New("catalog page sizes must satisfy 1 <= default_page_size <= max_page_size"))
	}

	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		errs = append(errs, errors.New("cache.redis_addr is required when cache is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
