package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string

	RedisAddr string
	RedisDB   int

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	WorkerConcurrency     int
	WorkerRateLimit       int
	WorkerRateWindow      time.Duration
	WorkerPollInterval    time.Duration
	JobDelay              time.Duration
	JobMaxAttempts        int
	JobBackoffBase        time.Duration
	JobRetention          time.Duration
	JobEventChannel       string
	AllowedOrigins        []string
	HTTPReadTimeout       time.Duration
	HTTPWriteTimeout      time.Duration
	HTTPIdleTimeout       time.Duration
	RateLimitPerMin       int
	ExpectedDelayResponse time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 5),
		WorkerRateLimit:    getEnvInt("WORKER_RATE_LIMIT", 10),
		WorkerRateWindow:   time.Second * time.Duration(getEnvInt("WORKER_RATE_WINDOW_SECONDS", 60)),
		WorkerPollInterval: time.Millisecond * time.Duration(getEnvInt("WORKER_POLL_INTERVAL_MS", 2000)),
		JobDelay:           time.Millisecond * time.Duration(getEnvInt("JOB_DELAY_MS", 60000)),
		JobMaxAttempts:     getEnvInt("JOB_MAX_ATTEMPTS", 3),
		JobBackoffBase:     time.Millisecond * time.Duration(getEnvInt("JOB_BACKOFF_BASE_MS", 2000)),
		JobRetention:       time.Hour * time.Duration(getEnvInt("JOB_RETENTION_HOURS", 24)),
		JobEventChannel:    getEnv("JOB_EVENT_CHANNEL", "content:job-events"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}
	cfg.ExpectedDelayResponse = cfg.JobDelay

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitAndTrim(origins)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
