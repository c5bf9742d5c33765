package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	unsetCoreEnv(t)

	cfg, err := LoadWithDotEnv("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want :8080", cfg.BindAddr)
	}
	if cfg.GatewayTimeout != 30*time.Second {
		t.Fatalf("GatewayTimeout = %s, want 30s", cfg.GatewayTimeout)
	}
	if cfg.GeneratorMode != "auto" || cfg.GeneratorHTTPURL != "" {
		t.Fatalf("generator defaults = %q %q", cfg.GeneratorMode, cfg.GeneratorHTTPURL)
	}
	if cfg.SubmitBurst != 5 || cfg.SubmitRate != 1 {
		t.Fatalf("submit limit = %v/%d", cfg.SubmitRate, cfg.SubmitBurst)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	unsetCoreEnv(t)
	t.Setenv("APP_BIND_ADDR", ":9191")
	t.Setenv("GENERATOR_MODE", " HTTP ")
	t.Setenv("GENERATOR_HTTP_URL", "http://localhost:7777/reply")
	t.Setenv("GATEWAY_TIMEOUT", "10s")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "true")

	cfg, err := LoadWithDotEnv("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9191" || cfg.GeneratorMode != "http" || cfg.GatewayTimeout != 10*time.Second || !cfg.AllowAnyOrigin {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	unsetCoreEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("OPENAI_MODEL=from-file\nAPP_BIND_ADDR=:7000\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("APP_BIND_ADDR", ":9000")

	cfg, err := LoadWithDotEnv(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OpenAIModel != "from-file" {
		t.Fatalf("OpenAIModel = %q, want from-file", cfg.OpenAIModel)
	}
	if cfg.BindAddr != ":9000" {
		t.Fatalf("BindAddr = %q, environment should win", cfg.BindAddr)
	}

	if _, err := LoadWithDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing dotenv should be ignored, got %v", err)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"APP_SESSION_INACTIVITY_TIMEOUT": "1s",
		"GATEWAY_TIMEOUT":                "0s",
		"GENERATOR_MODE":                 "magic",
		"APP_SUBMIT_BURST":               "0",
		"APP_LOG_FORMAT":                 "xml",
		"APP_SHUTDOWN_TIMEOUT":           "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			unsetCoreEnv(t)
			t.Setenv(key, value)
			if _, err := LoadWithDotEnv(""); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

// unsetCoreEnv clears every key Load reads; t.Setenv restores them afterwards.
func unsetCoreEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_LOG_LEVEL",
		"APP_LOG_FORMAT",
		"APP_SUBMIT_RATE",
		"APP_SUBMIT_BURST",
		"PROFILE_PATH",
		"GENERATOR_MODE",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"OPENAI_MODEL",
		"GENERATOR_HTTP_URL",
		"GATEWAY_TIMEOUT",
		"GENERATOR_MAX_TOOL_ROUNDS",
		"GENERATOR_RETRIES",
		"DATABASE_URL",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}
