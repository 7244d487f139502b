// Package config loads server and CLI settings from TASKBOARD_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config is the server configuration.
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Server     ServerConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	SelfHosted bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// RateLimitConfig bounds requests per client. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type LogConfig struct {
	Level  string // zerolog level name
	Format string // "json" or "text"
}

// ClientConfig is what the CLI needs to reach a server.
type ClientConfig struct {
	URL   string
	Token string //nolint:gosec // G117: bearer token config
}

// Load reads the server configuration. Defaults suit local development only;
// the JWT secret has no default.
func Load() (*Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	dbPort, err := getEnvInt("TASKBOARD_DB_PORT", 5432)
	collect(err)
	dbMaxConns, err := getEnvInt("TASKBOARD_DB_MAX_CONNS", 25)
	collect(err)
	redisDB, err := getEnvInt("TASKBOARD_REDIS_DB", 0)
	collect(err)
	accessTTL, err := getEnvDuration("TASKBOARD_JWT_ACCESS_TTL", 15*time.Minute)
	collect(err)
	refreshTTL, err := getEnvDuration("TASKBOARD_JWT_REFRESH_TTL", 7*24*time.Hour)
	collect(err)
	readTimeout, err := getEnvDuration("TASKBOARD_SERVER_READ_TIMEOUT", 10*time.Second)
	collect(err)
	// Websocket feeds are long-lived; the write timeout applies to plain requests only.
	writeTimeout, err := getEnvDuration("TASKBOARD_SERVER_WRITE_TIMEOUT", 30*time.Second)
	collect(err)
	rps, err := getEnvFloat("TASKBOARD_RATE_LIMIT_RPS", 20)
	collect(err)
	burst, err := getEnvInt("TASKBOARD_RATE_LIMIT_BURST", 40)
	collect(err)
	selfHosted, err := getEnvBool("TASKBOARD_SELF_HOSTED", false)
	collect(err)

	if len(errs) > 0 {
		return nil, fmt.Errorf("config.Load: %w", errors.Join(errs...))
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("TASKBOARD_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("TASKBOARD_DB_USER", "taskboard"),
			Password: getEnv("TASKBOARD_DB_PASSWORD", ""),
			DBName:   getEnv("TASKBOARD_DB_NAME", "taskboard_dev"),
			SSLMode:  getEnv("TASKBOARD_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("TASKBOARD_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("TASKBOARD_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:     getEnv("TASKBOARD_JWT_SECRET", ""),
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("TASKBOARD_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  getEnvList("TASKBOARD_CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		RateLimit: RateLimitConfig{RPS: rps, Burst: burst},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("TASKBOARD_LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("TASKBOARD_LOG_FORMAT", "json")),
		},
		SelfHosted: selfHosted,
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// LoadClient reads the CLI settings. Flags override both values.
func LoadClient() ClientConfig {
	return ClientConfig{
		URL:   strings.TrimRight(getEnv("TASKBOARD_URL", "http://localhost:8080"), "/"),
		Token: getEnv("TASKBOARD_TOKEN", ""),
	}
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errors.New("TASKBOARD_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("TASKBOARD_JWT_SECRET must be at least 32 characters")
	}

	if c.Database.SSLMode == "disable" && !c.SelfHosted {
		log.Warn().Msg("TASKBOARD_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	switch {
	case c.Database.Port < 1 || c.Database.Port > 65535:
		return fmt.Errorf("TASKBOARD_DB_PORT must be 1-65535, got %d", c.Database.Port)
	case c.Database.MaxConns < 1:
		return fmt.Errorf("TASKBOARD_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	case c.JWT.AccessTTL <= 0:
		return fmt.Errorf("TASKBOARD_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	case c.JWT.RefreshTTL < c.JWT.AccessTTL:
		return fmt.Errorf("TASKBOARD_JWT_REFRESH_TTL must be >= access TTL, got %s", c.JWT.RefreshTTL)
	case c.Server.ReadTimeout <= 0:
		return fmt.Errorf("TASKBOARD_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	case c.Server.WriteTimeout <= 0:
		return fmt.Errorf("TASKBOARD_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	case c.RateLimit.RPS < 0:
		return fmt.Errorf("TASKBOARD_RATE_LIMIT_RPS must be >= 0, got %g", c.RateLimit.RPS)
	case c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1:
		return fmt.Errorf("TASKBOARD_RATE_LIMIT_BURST must be >= 1, got %d", c.RateLimit.Burst)
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("TASKBOARD_LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var result []string
	for p := range strings.SplitSeq(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
