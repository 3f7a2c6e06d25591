package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AnswerDispatch selects how remote answer writes are issued.
type AnswerDispatch string

const (
	// AnswerDispatchDirect fires one unordered background write per answer change.
	AnswerDispatchDirect AnswerDispatch = "direct"
	// AnswerDispatchOutbox queues writes in Redis and persists them FIFO from a single worker.
	AnswerDispatchOutbox AnswerDispatch = "outbox"
)

// Config holds all application configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string
	RedisURL   string

	// ExamAPIURL is the base URL of the remote exam store (generation + attempts + themes).
	ExamAPIURL   string
	ExamAPIToken string
	// ExamAPITimeout bounds generate/start/results/finish/theme calls.
	// Answer writes are never bounded by it.
	ExamAPITimeout time.Duration

	AnswerDispatch      AnswerDispatch
	ThemeCacheTTL       time.Duration
	GenerateRatePerMin  int
	OutboxRetryInterval time.Duration
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // Ignore error — .env is optional

	return &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		GinMode:             getEnv("GIN_MODE", "debug"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "pretty"),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
		ExamAPIURL:          getEnv("EXAM_API_URL", "http://localhost:8001"),
		ExamAPIToken:        getEnv("EXAM_API_TOKEN", ""),
		ExamAPITimeout:      time.Duration(getEnvInt("EXAM_API_TIMEOUT_SECONDS", 15)) * time.Second,
		AnswerDispatch:      parseDispatch(getEnv("ANSWER_DISPATCH", string(AnswerDispatchDirect))),
		ThemeCacheTTL:       time.Duration(getEnvInt("THEME_CACHE_TTL_SECONDS", 300)) * time.Second,
		GenerateRatePerMin:  getEnvInt("GENERATE_RATE_LIMIT_PER_MINUTE", 20),
		OutboxRetryInterval: time.Duration(getEnvInt("OUTBOX_RETRY_SECONDS", 5)) * time.Second,
		AllowedOrigins:      parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseDispatch falls back to direct dispatch for unknown values.
func parseDispatch(raw string) AnswerDispatch {
	switch AnswerDispatch(strings.ToLower(strings.TrimSpace(raw))) {
	case AnswerDispatchOutbox:
		return AnswerDispatchOutbox
	default:
		return AnswerDispatchDirect
	}
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
