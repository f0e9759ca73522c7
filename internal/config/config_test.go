package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_WithDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	if cfg.Server.Port != 8098 {
		t.Errorf("Server.Port = %d, want 8098", cfg.Server.Port)
	}

	if cfg.Server.WriteTimeout != 120*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want 120s", cfg.Server.WriteTimeout)
	}

	if !cfg.Attempts.Enabled {
		t.Error("Attempts.Enabled should be true by default")
	}

	if cfg.Attempts.ScryptCost != "16384$8$1$" {
		t.Errorf("Attempts.ScryptCost = %q, want %q", cfg.Attempts.ScryptCost, "16384$8$1$")
	}

	if cfg.Attempts.DigestCacheTTL != 48*time.Hour {
		t.Errorf("Attempts.DigestCacheTTL = %v, want 48h", cfg.Attempts.DigestCacheTTL)
	}

	if cfg.Attempts.ServeFromArchive {
		t.Error("Attempts.ServeFromArchive should be false by default")
	}

	if !cfg.Attempts.StreamEnabled {
		t.Error("Attempts.StreamEnabled should be true by default")
	}

	if cfg.Attempts.StreamChunkSize != 1048576 {
		t.Errorf("Attempts.StreamChunkSize = %d, want 1048576", cfg.Attempts.StreamChunkSize)
	}

	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("Redis.URL = %q, want %q", cfg.Redis.URL, "redis://localhost:6379/0")
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  port: 9100
attempts:
  client_id: csp1
  auth_tokens:
    - abc
    - def
  serve_from_archive: true
  stream_chunk_size: 4096
object_store:
  url: http://localhost:9000
  bucket: attempts-archive
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}

	if cfg.Attempts.ClientID != "csp1" {
		t.Errorf("Attempts.ClientID = %q, want %q", cfg.Attempts.ClientID, "csp1")
	}

	if len(cfg.Attempts.AuthTokens) != 2 || cfg.Attempts.AuthTokens[0] != "abc" {
		t.Errorf("Attempts.AuthTokens = %v, want [abc def]", cfg.Attempts.AuthTokens)
	}

	if !cfg.Attempts.ServeFromArchive {
		t.Error("Attempts.ServeFromArchive should be true from file")
	}

	if cfg.Attempts.StreamChunkSize != 4096 {
		t.Errorf("Attempts.StreamChunkSize = %d, want 4096", cfg.Attempts.StreamChunkSize)
	}

	if cfg.ObjectStore.Bucket != "attempts-archive" {
		t.Errorf("ObjectStore.Bucket = %q, want %q", cfg.ObjectStore.Bucket, "attempts-archive")
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config file")
	}
}
