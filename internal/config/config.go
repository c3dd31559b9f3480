package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	AppPort    string
	AppVersion string

	StoreDriver string
	DatabaseURL string
	SQLitePath  string
	AutoMigrate bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	CORSOrigin    string
	APIRateLimit  int
	APIRateWindow time.Duration

	LogLevel string
	LogJSON  bool

	ShutdownTimeout time.Duration
}

// Load reads env files (missing files are ignored, like godotenv's default
// .env) and then the process environment. Variables already set in the
// environment win over the files.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	}

	cfg := &Config{
		AppPort:       getenv("APP_PORT", "8080"),
		AppVersion:    getenv("APP_VERSION", "dev"),
		StoreDriver:   strings.ToLower(getenv("STORE_DRIVER", DriverPostgres)),
		SQLitePath:    getenv("SQLITE_PATH", "todo.db"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CORSOrigin:    getenv("CORS_ORIGIN", "*"),
		LogLevel:      strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogJSON:       strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"),
	}

	var err error
	if cfg.AutoMigrate, err = boolEnv("AUTO_MIGRATE", false); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0, false); err != nil {
		return nil, err
	}
	if cfg.APIRateLimit, err = intEnv("API_RATE_LIMIT", 120, true); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = secondsEnv("CACHE_TTL_SECONDS", 30); err != nil {
		return nil, err
	}
	if cfg.APIRateWindow, err = secondsEnv("API_RATE_WINDOW_SECONDS", 60); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = secondsEnv("SHUTDOWN_TIMEOUT_SECONDS", 10); err != nil {
		return nil, err
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = postgresURLFromParts()
		}
	case DriverSQLite, DriverMemory:
	default:
		return nil, fmt.Errorf("STORE_DRIVER %q: must be one of %s, %s, %s", cfg.StoreDriver, DriverPostgres, DriverSQLite, DriverMemory)
	}

	return cfg, nil
}

// postgresURLFromParts assembles a DSN from DB_HOST, DB_PORT, DB_NAME,
// DB_USER and DB_PASSWORD.
func postgresURLFromParts() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getenv("DB_USER", "todo_user"), getenv("DB_PASSWORD", "todo_password")),
		Host:     net.JoinHostPort(getenv("DB_HOST", "db"), getenv("DB_PORT", "5432")),
		Path:     "/" + getenv("DB_NAME", "todo_app"),
		RawQuery: "sslmode=" + getenv("DB_SSLMODE", "disable"),
	}
	return u.String()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int, positive bool) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || (positive && n == 0) {
		return 0, fmt.Errorf("%s: invalid value %q", key, v)
	}
	return n, nil
}

func secondsEnv(key string, def int) (time.Duration, error) {
	n, err := intEnv(key, def, true)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid value %q", key, v)
	}
	return b, nil
}
