package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	appLog "uaoagenda/internal/log"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestLoadWritesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Rewards.InitialPoints != 255 || cfg.Query.DisplayCap != 12 || cfg.Share.BaseURL != "http://127.0.0.1:8080" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "listen: 0.0.0.0:9000\nweek_start: MONDAY\nstorage:\n  backend: bogus\nquery:\n  display_cap: 0\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" || cfg.WeekStart != "monday" {
		t.Fatalf("listen/week_start: %q %q", cfg.Listen, cfg.WeekStart)
	}
	if cfg.Storage.Backend != "file" || cfg.Query.DisplayCap != 12 || cfg.Rewards.SharePoints != 5 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Share.BaseURL != "http://0.0.0.0:9000" {
		t.Fatalf("base url %q", cfg.Share.BaseURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("UAO_LISTEN", "127.0.0.1:7000")
	t.Setenv("UAO_STORAGE_BACKEND", "redis")
	t.Setenv("UAO_CATALOG_URL", "https://example.org/events.json")
	t.Setenv("UAO_QUERY_DISPLAY_CAP", "20")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: 0.0.0.0:9000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:7000" || cfg.Storage.Backend != "redis" || cfg.Catalog.URL != "https://example.org/events.json" || cfg.Query.DisplayCap != 20 {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Location().String(); got != "America/Bogota" {
		t.Fatalf("got %s", got)
	}
	cfg.Timezone = "Nowhere/Land"
	if cfg.Location() != time.Local {
		t.Fatal("expected fallback to time.Local")
	}
	if cfg.Query.FeaturedWindow() != 7*24*time.Hour {
		t.Fatalf("window %v", cfg.Query.FeaturedWindow())
	}
}
