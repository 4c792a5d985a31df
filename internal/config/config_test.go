package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "PORT", "LLM_PROVIDER", "LLM_TIMEOUT", "LLM_MAX_RETRIES", "CORS_ALLOWED_ORIGINS", "UPLOAD_MAX_BYTES")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "3001" {
		t.Fatalf("expected default port 3001, got %q", cfg.Server.Port)
	}
	if cfg.LLM.Timeout != 30*time.Second {
		t.Fatalf("expected default timeout 30s, got %s", cfg.LLM.Timeout)
	}
	if cfg.LLM.MaxRetries != 2 {
		t.Fatalf("expected default retries 2, got %d", cfg.LLM.MaxRetries)
	}
	if diff := cmp.Diff([]string{"http://localhost:3000"}, cfg.Server.AllowedOrigins); diff != "" {
		t.Fatalf("unexpected allowed origins (-want +got):\n%s", diff)
	}
	if cfg.Server.UploadMaxBytes != 10<<20 {
		t.Fatalf("expected 10MB upload limit, got %d", cfg.Server.UploadMaxBytes)
	}
}

func TestLoadOverridesAndBounds(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_TIMEOUT", "8s")
	t.Setenv("LLM_MAX_RETRIES", "99")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.LLM.Provider != "openai" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.LLM.Timeout != 8*time.Second {
		t.Fatalf("expected timeout 8s, got %s", cfg.LLM.Timeout)
	}
	if cfg.LLM.MaxRetries != maxLLMRetries {
		t.Fatalf("expected retries capped at %d, got %d", maxLLMRetries, cfg.LLM.MaxRetries)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Fatalf("expected two origins, got %v", cfg.Server.AllowedOrigins)
	}
	if !cfg.Env().IsProduction() {
		t.Fatalf("expected production environment")
	}
}

func TestGeminiKeyFallsBackToGoogleKey(t *testing.T) {
	cfg := LLMConfig{GoogleAPIKey: "google-key"}
	if cfg.GeminiKey() != "google-key" {
		t.Fatalf("expected google key fallback, got %q", cfg.GeminiKey())
	}
	cfg.GeminiAPIKey = "gemini-key"
	if cfg.GeminiKey() != "gemini-key" {
		t.Fatalf("expected gemini key, got %q", cfg.GeminiKey())
	}
}

// unsetEnv removes keys for the duration of the test. envconfig treats a
// set but empty variable as a value, so t.Setenv(key, "") is not enough.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}
