package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CLIPRELAY_AUTH_MASTER_SECRET", "x")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Server.Mode != "release" {
		t.Fatalf("expected default mode release, got %q", cfg.Server.Mode)
	}
	if cfg.Pairing.TTLSeconds != 120 {
		t.Fatalf("expected pairing ttl 120, got %d", cfg.Pairing.TTLSeconds)
	}
	if cfg.Relay.MaxFileBytes != 5<<20 {
		t.Fatalf("expected 5 MiB cap, got %d", cfg.Relay.MaxFileBytes)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("server:\n  port: 8080\nauth:\n  master_secret: filesecret\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Auth.MasterSecret != "filesecret" {
		t.Fatalf("expected secret from file, got %q", cfg.Auth.MasterSecret)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CLIPRELAY_AUTH_MASTER_SECRET", "x")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("server:\n  port: -1\nauth:\n  master_secret: x\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error")
	}
}
