package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "s3cret")
	t.Setenv("ADMIN_TOKEN_TTL_MINUTES", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("NATS_SUBJECT_PREFIX", "poker.rooms.")
	t.Setenv("DB_MAX_OPEN_CONNS", "-3")

	cfg := Load()
	if cfg.AdminPassword != "s3cret" {
		t.Fatalf("expected admin password override, got %q", cfg.AdminPassword)
	}
	if cfg.AdminTokenTTL != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %s", cfg.AdminTokenTTL)
	}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Fatalf("unexpected origins: %#v", cfg.CORSAllowedOrigins)
	}
	if cfg.NATSSubjectPrefix != "poker.rooms" {
		t.Fatalf("expected trailing dot trimmed, got %q", cfg.NATSSubjectPrefix)
	}
	if cfg.DBMaxOpenConns != Default().DBMaxOpenConns {
		t.Fatalf("expected invalid pool size ignored, got %d", cfg.DBMaxOpenConns)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("DEFAULT_SESSION=from-file\nLOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("DEFAULT_SESSION", "from-env")
	t.Setenv("LOG_LEVEL", "")
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv("DEFAULT_SESSION"); got != "from-env" {
		t.Fatalf("expected existing env kept, got %q", got)
	}
}
