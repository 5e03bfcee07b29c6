package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// Пустые значения отключают соответствующую интеграцию
	RedisURL      string
	EventsChannel string
	SentryDSN     string
	Environment   string

	R2 R2Config

	MatchesPerDay     int
	MatchSlotInterval time.Duration
	OperationTimeout  time.Duration
	StatusCron        string

	RateLimitRPS   float64
	RateLimitBurst int

	CORSAllowedOrigins []string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
	Endpoint        string
}

// Enabled reports whether bracket archiving has enough settings to run.
func (c R2Config) Enabled() bool {
	return c.BucketName != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" &&
		(c.AccountID != "" || c.Endpoint != "")
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	dbURL := getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intVar(getenv, "SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	cfg := &Config{
		DatabaseURL:   dbURL,
		JWTSecretKey:  jwtKey,
		ServerPort:    port,
		RedisURL:      getenv("REDIS_URL"),
		EventsChannel: stringVar(getenv, "EVENTS_CHANNEL", "tournament-events"),
		SentryDSN:     getenv("SENTRY_DSN"),
		Environment:   stringVar(getenv, "APP_ENV", "development"),
		R2: R2Config{
			AccountID:       getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   getenv("R2_PUBLIC_BASE_URL"),
			Endpoint:        getenv("R2_ENDPOINT"),
		},
		StatusCron:         stringVar(getenv, "STATUS_CRON", "@every 1m"),
		CORSAllowedOrigins: listVar(getenv, "CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	if cfg.MatchesPerDay, err = intVar(getenv, "MATCHES_PER_DAY", 4); err != nil {
		return nil, err
	}
	if cfg.MatchesPerDay <= 0 {
		return nil, fmt.Errorf("MATCHES_PER_DAY must be positive, got %d", cfg.MatchesPerDay)
	}
	if cfg.MatchSlotInterval, err = durationVar(getenv, "MATCH_SLOT_INTERVAL", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.OperationTimeout, err = durationVar(getenv, "OPERATION_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = intVar(getenv, "RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}
	rps := stringVar(getenv, "RATE_LIMIT_RPS", "10")
	if cfg.RateLimitRPS, err = strconv.ParseFloat(rps, 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS environment variable: %w", err)
	}

	return cfg, nil
}

func stringVar(getenv func(string) string, key, fallback string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intVar(getenv func(string) string, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func durationVar(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return v, nil
}

func listVar(getenv func(string) string, key string, fallback []string) []string {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
