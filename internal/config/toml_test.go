package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Quiz.Difficulty != nil || cfg.Market.APIKey != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigSections(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	path := writeConfig(t, `
[quiz]
difficulty = "hard"
load-delay = "250ms"
chart-height = 18

[market]
api-key = "file-key"
offline = true
cache-ttl = "1h"

[log]
level = "debug"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if *cfg.Quiz.Difficulty != "hard" || *cfg.Quiz.LoadDelay != "250ms" || *cfg.Quiz.ChartHeight != 18 {
		t.Fatalf("unexpected quiz section %+v", cfg.Quiz)
	}
	if *cfg.Market.APIKey != "file-key" || !*cfg.Market.Offline || *cfg.Market.CacheTTL != "1h" {
		t.Fatalf("unexpected market section %+v", cfg.Market)
	}
	if cfg.Market.Cache != nil || cfg.Market.BaseURL != nil {
		t.Fatalf("unset keys should stay nil")
	}
	if *cfg.Log.Level != "debug" || cfg.Log.File != nil {
		t.Fatalf("unexpected log section %+v", cfg.Log)
	}
}

func TestLoadConfigEnvOverridesAPIKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "env-key")
	path := writeConfig(t, "[market]\napi-key = \"file-key\"\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Market.APIKey == nil || *cfg.Market.APIKey != "env-key" {
		t.Fatalf("expected env key to win")
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "[quiz]\nlevel = \"easy\"\n")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "quiz.level") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadConfigRejectsBadTOML(t *testing.T) {
	path := writeConfig(t, "[quiz\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestDefaultPathsFollowXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "marketquiz", "config.toml") {
		t.Fatalf("config path %q", got)
	}
	if got := DefaultCacheDBPath(); got != filepath.Join("/data", "marketquiz", "cache.db") {
		t.Fatalf("cache path %q", got)
	}
	if got := DefaultLogPath(); got != filepath.Join("/data", "marketquiz", "marketquiz.log") {
		t.Fatalf("log path %q", got)
	}
}
