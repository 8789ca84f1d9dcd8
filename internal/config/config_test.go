package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.DataDir != "data" {
		t.Errorf("expected default data dir, got %q", cfg.DataDir)
	}
	if len(cfg.Uploads.Allowed) == 0 {
		t.Error("expected default upload patterns")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".taskhive.yml")
	content := "server:\n  port: 9000\nauth:\n  secret: testing\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Auth.Secret != "testing" {
		t.Errorf("expected secret from file, got %q", cfg.Auth.Secret)
	}
	// Defaults survive partial files.
	if cfg.Auth.AccessTTLMinutes != 15 {
		t.Errorf("expected default access TTL, got %d", cfg.Auth.AccessTTLMinutes)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TASKHIVE_SERVER_PORT", "7777")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("expected env override 7777, got %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.Secret = "s"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	cfg.Auth.Secret = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing secret")
	}

	cfg = DefaultConfig()
	cfg.Auth.Secret = "s"
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid port")
	}

	cfg = DefaultConfig()
	cfg.Auth.Secret = "s"
	cfg.Log.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".taskhive.yml")

	cfg := DefaultConfig()
	cfg.Auth.Secret = "roundtrip"
	cfg.Server.Port = 9999
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Server.Port != 9999 || loaded.Auth.Secret != "roundtrip" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}
