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
	AppEnv string
	Port   string

	OpenRouterAPIKey  string
	OpenRouterBaseURL string

	CaptionModel       string
	CaptionMaxTokens   int
	CaptionTemperature float64
	CaptionTimeout     time.Duration

	StoryModel       string
	StoryMaxTokens   int
	StoryTemperature float64
	StoryTimeout     time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	WorkflowTTL    time.Duration
	MaxUploadBytes int64
	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),

		CaptionModel:       getEnv("CAPTION_MODEL", "openai/gpt-4o-mini"),
		CaptionMaxTokens:   getEnvInt("CAPTION_MAX_TOKENS", 300),
		CaptionTemperature: getEnvFloat("CAPTION_TEMPERATURE", 0.2),
		CaptionTimeout:     time.Second * time.Duration(getEnvInt("CAPTION_TIMEOUT_SECONDS", 10)),

		StoryModel:       getEnv("STORY_MODEL", "openai/gpt-4o"),
		StoryMaxTokens:   getEnvInt("STORY_MAX_TOKENS", 4000),
		StoryTemperature: getEnvFloat("STORY_TEMPERATURE", 0.8),
		// Kept under the 60s end-to-end write timeout so marshalling still fits.
		StoryTimeout: time.Second * time.Duration(getEnvInt("STORY_TIMEOUT_SECONDS", 45)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),

		WorkflowTTL:    time.Minute * time.Duration(getEnvInt("WORKFLOW_TTL_MINUTES", 30)),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 64)) * 1024 * 1024,
		AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
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

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
