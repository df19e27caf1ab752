package infra

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when OPENROUTER_API_KEY is unset")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.OpenRouterBaseURL != "https://openrouter.ai/api/v1" {
		t.Fatalf("OpenRouterBaseURL = %q", cfg.OpenRouterBaseURL)
	}
	if cfg.CaptionTimeout != 10*time.Second {
		t.Fatalf("CaptionTimeout = %s, want 10s", cfg.CaptionTimeout)
	}
	if cfg.StoryTimeout != 45*time.Second {
		t.Fatalf("StoryTimeout = %s, want 45s", cfg.StoryTimeout)
	}
	if cfg.StoryTimeout >= cfg.HTTPWriteTimeout {
		t.Fatalf("story timeout %s must stay under write timeout %s", cfg.StoryTimeout, cfg.HTTPWriteTimeout)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("CAPTION_TIMEOUT_SECONDS", "5")
	t.Setenv("STORY_MODEL", "anthropic/claude-3.5-sonnet")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.CaptionTimeout != 5*time.Second {
		t.Fatalf("CaptionTimeout = %s, want 5s", cfg.CaptionTimeout)
	}
	if cfg.StoryModel != "anthropic/claude-3.5-sonnet" {
		t.Fatalf("StoryModel = %q", cfg.StoryModel)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}
