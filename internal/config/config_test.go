package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
database:
  dsn: "postgres://localhost/voltaccess"
auth:
  token_secret: "file-secret"
  token_validity_minutes: 30
cors:
  allowed_origins:
    - "https://portal.example.org"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Auth.TokenValidity() != 30*time.Minute {
		t.Fatalf("unexpected validity: %v", cfg.Auth.TokenValidity())
	}
	// Values absent from the file keep their defaults.
	if cfg.RateLimit.Burst != 20 || cfg.RateLimit.PerSecond != 10 {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 {
		t.Fatalf("unexpected origins: %v", cfg.CORS.AllowedOrigins)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  token_secret: "file-secret"
`)
	t.Setenv("VOLTACCESS_AUTH_TOKEN_SECRET", "env-secret")
	t.Setenv("VOLTACCESS_SERVER_ADDR", ":7070")
	t.Setenv("VOLTACCESS_CORS_ALLOWED_ORIGINS", "https://a.example.org, https://b.example.org")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.TokenSecret != "env-secret" {
		t.Fatalf("env override lost: %s", cfg.Auth.TokenSecret)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("env override lost: %s", cfg.Server.Addr)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 {
		t.Fatalf("unexpected origins: %v", cfg.CORS.AllowedOrigins)
	}
}

func TestValidateRejectsMissingSecret(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error without token secret")
	}
}
