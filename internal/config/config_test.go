package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Missing(t *testing.T) {
	res := Load(filepath.Join(t.TempDir(), "executive.toml"))
	if res.Found {
		t.Fatalf("expected not found")
	}
	if res.ParseError != nil {
		t.Fatalf("unexpected parse error: %v", res.ParseError)
	}

	def := Default()
	if res.Config.Server.Port != def.Server.Port {
		t.Fatalf("unexpected default port: %d", res.Config.Server.Port)
	}
	if !res.Config.Auth.TrustLoopback {
		t.Fatalf("loopback trust not on by default")
	}
	if !res.Config.Features.ManualTasks {
		t.Fatalf("manual tasks not on by default")
	}
	if res.Config.SessionsEnabled() {
		t.Fatalf("sessions enabled without credentials")
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executive.toml")
	content := `
[server]
port = 7778
data_dir = "/var/lib/executive"

[auth]
trust_loopback = false
password_hash = "$2b$12$abcdefghijklmnopqrstuv"
cookie_secret = "s3cret"

[features]
manual_tasks = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	res := Load(path)
	if !res.Found {
		t.Fatalf("expected found")
	}
	if res.ParseError != nil {
		t.Fatalf("unexpected parse error: %v", res.ParseError)
	}

	cfg := res.Config
	if cfg.Server.Port != 7778 {
		t.Fatalf("port not applied: %d", cfg.Server.Port)
	}
	if cfg.Server.DataDir != "/var/lib/executive" {
		t.Fatalf("data dir not applied: %q", cfg.Server.DataDir)
	}
	// fields absent from the file keep defaults
	if cfg.Server.Host != Default().Server.Host {
		t.Fatalf("host default lost: %q", cfg.Server.Host)
	}
	if cfg.Auth.TrustLoopback {
		t.Fatalf("trust_loopback override lost")
	}
	if cfg.Features.ManualTasks {
		t.Fatalf("manual_tasks override lost")
	}
	if !cfg.SessionsEnabled() {
		t.Fatalf("sessions not enabled with hash and secret set")
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executive.toml")
	if err := os.WriteFile(path, []byte("[server\nport="), 0o644); err != nil {
		t.Fatal(err)
	}

	res := Load(path)
	if res.ParseError == nil {
		t.Fatalf("expected parse error")
	}
	// broken file falls back to defaults
	if res.Config.Server.Port != Default().Server.Port {
		t.Fatalf("defaults not restored after parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("EXECUTIVE_PORT", "9999")
	t.Setenv("EXECUTIVE_API_KEY", "env-key")
	t.Setenv("EXECUTIVE_PASSWORD_HASH", "env-hash")
	t.Setenv("EXECUTIVE_COOKIE_SECRET", "env-secret")

	cfg := Default()
	cfg.Auth.APIKey = "file-key"
	ApplyEnv(&cfg)

	if cfg.Server.Port != 9999 {
		t.Fatalf("port env not applied: %d", cfg.Server.Port)
	}
	if cfg.Auth.APIKey != "env-key" {
		t.Fatalf("env did not win over file: %q", cfg.Auth.APIKey)
	}
	if !cfg.SessionsEnabled() {
		t.Fatalf("sessions not enabled from env")
	}
}

func TestApplyEnv_IgnoresBadPort(t *testing.T) {
	t.Setenv("EXECUTIVE_PORT", "not-a-number")

	cfg := Default()
	ApplyEnv(&cfg)
	if cfg.Server.Port != Default().Server.Port {
		t.Fatalf("bad port applied: %d", cfg.Server.Port)
	}
}
