package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(envFileVar, "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.Matching.RadiusKm != 25 || cfg.Matching.SmartMatchCount != 3 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.AI.Provider != "none" || cfg.AI.Timeout() != 15*time.Second || cfg.AI.MonthlyQuota != 100 {
		t.Fatalf("unexpected ai defaults %+v", cfg.AI)
	}
	if cfg.DB.DSN != "" || cfg.Redis.Addr != "" || cfg.Auth.Mode != "dev" {
		t.Fatalf("storage should default to memory: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(envFileVar, "")
	t.Setenv("LIFELINK_HTTP__ADDR", ":9090")
	t.Setenv("LIFELINK_MATCHING__RADIUS_KM", "12.5")
	t.Setenv("LIFELINK_MATCHING__SMART_MATCH_COUNT", "5")
	t.Setenv("LIFELINK_DB__DSN", "postgres://localhost/lifelink")
	t.Setenv("LIFELINK_LOG__LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" || cfg.Matching.RadiusKm != 12.5 || cfg.Matching.SmartMatchCount != 5 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.DB.DSN != "postgres://localhost/lifelink" || cfg.Log.Level != "debug" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Log.Format != "json" {
		t.Fatalf("untouched keys keep defaults, got %q", cfg.Log.Format)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lifelink.yaml")
	yaml := `
http:
  addr: ":7070"
ai:
  provider: gemini
  gemini_key: from-file
redis:
  addr: localhost:6379
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(envFileVar, path)
	t.Setenv("LIFELINK_HTTP__ADDR", ":6060")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":6060" {
		t.Fatalf("env must win over file, got %q", cfg.HTTP.Addr)
	}
	if cfg.AI.Provider != "gemini" || cfg.AI.GeminiKey != "from-file" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("file not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv(envFileVar, "")
	t.Setenv("LIFELINK_AI__PROVIDER", "openai")
	t.Setenv("LIFELINK_AUTH__MODE", "magic")
	t.Setenv("LIFELINK_MATCHING__RADIUS_KM", "0")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, want := range []string{"openai_key", "auth.mode", "radius_km"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(envFileVar, filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}
