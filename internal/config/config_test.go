package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PANDALS_SUPABASE_URL", "PANDALS_SUPABASE_ANON_KEY", "PANDALS_ACCESS_TOKEN",
		"PANDALS_DATABASE_URL", "PANDALS_BACKEND", "PANDALS_LOG_LEVEL", "PANDALS_REQUESTS_PER_SECOND",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigUsesDefaultsAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)
	t.Setenv("PANDALS_SUPABASE_URL", "https://demo.supabase.co")
	t.Setenv("PANDALS_SUPABASE_ANON_KEY", "anon")

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend != BackendREST {
		t.Fatalf("Backend = %q, want %q", cfg.Backend, BackendREST)
	}
	if cfg.FreshnessWindow != 5*time.Minute || cfg.LocationInterval != 2*time.Minute || cfg.ImageCacheTTL != 30*time.Minute {
		t.Fatalf("durations = %v/%v/%v, want 5m/2m/30m", cfg.FreshnessWindow, cfg.LocationInterval, cfg.ImageCacheTTL)
	}
	wantLog, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath: %v", err)
	}
	if cfg.LogFile != wantLog {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, wantLog)
	}
	if cfg.SupabaseURL != "https://demo.supabase.co" || cfg.AnonKey != "anon" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	path := writeConfig(t, `
backend = " REST "
supabase_url = "  https://x.supabase.co  "
anon_key = " key "
requests_per_second = 4
freshness_window = "90s"
location_interval = "30s"
image_cache_ttl = "10m"
latitude = 22.5726
longitude = 88.3639
log_file = "~/pandals.log"
log_level = "DEBUG"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend != BackendREST || cfg.SupabaseURL != "https://x.supabase.co" || cfg.AnonKey != "key" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.RequestsPerSecond != 4 {
		t.Fatalf("RequestsPerSecond = %v, want 4", cfg.RequestsPerSecond)
	}
	if cfg.FreshnessWindow != 90*time.Second || cfg.LocationInterval != 30*time.Second || cfg.ImageCacheTTL != 10*time.Minute {
		t.Fatalf("durations = %v/%v/%v", cfg.FreshnessWindow, cfg.LocationInterval, cfg.ImageCacheTTL)
	}
	lat, lon, ok := cfg.FixedPosition()
	if !ok || lat != 22.5726 || lon != 88.3639 {
		t.Fatalf("FixedPosition() = %v, %v, %v", lat, lon, ok)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)
	t.Setenv("PANDALS_BACKEND", "postgres")
	t.Setenv("PANDALS_DATABASE_URL", "postgres://localhost/pandals")
	t.Setenv("PANDALS_REQUESTS_PER_SECOND", "2.5")

	path := writeConfig(t, `
backend = "rest"
supabase_url = "https://x.supabase.co"
anon_key = "key"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend != BackendPostgres || cfg.DatabaseURL != "postgres://localhost/pandals" {
		t.Fatalf("cfg = %+v, want postgres override", cfg)
	}
	if cfg.RequestsPerSecond != 2.5 {
		t.Fatalf("RequestsPerSecond = %v, want 2.5", cfg.RequestsPerSecond)
	}
}

func TestLoad_StdErrLogFileKeptVerbatim(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)
	path := writeConfig(t, `
supabase_url = "https://x.supabase.co"
anon_key = "key"
log_file = "-"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LogFile != "-" {
		t.Fatalf("LogFile = %q, want -", cfg.LogFile)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid toml", "not = [valid", "parse config"},
		{"bad duration", "supabase_url = \"u\"\nanon_key = \"k\"\nfreshness_window = \"soon\"", "freshness_window"},
		{"missing url", "anon_key = \"k\"", "supabase_url is required"},
		{"missing dsn", "backend = \"postgres\"", "database_url is required"},
		{"unknown backend", "backend = \"mongo\"", "unknown backend"},
		{"half position", "supabase_url = \"u\"\nanon_key = \"k\"\nlatitude = 1.0", "set together"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/pandals")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "pandals") {
		t.Fatalf("expandPath = %q, want %q", got, filepath.Join(home, "pandals"))
	}
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath(empty) error = nil")
	}
}
