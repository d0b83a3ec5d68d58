package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	settings := Default()
	if err := settings.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Cache.MaxEntries != 100 {
		t.Errorf("expected 100 cache entries, got %d", settings.Cache.MaxEntries)
	}
	if settings.Limits.MaxDownloadBytes != 100*1024*1024 {
		t.Errorf("expected 100MiB download limit, got %d", settings.Limits.MaxDownloadBytes)
	}
	if settings.Security.AllowPrivate {
		t.Error("expected private addresses blocked by default")
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfmcp.yaml")
	content := `
security:
  roots: ["/srv/docs", "/tmp/out"]
  allow_private: true
cache:
  max_entries: 7
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(settings.Security.Roots) != 2 || settings.Security.Roots[1] != "/tmp/out" {
		t.Errorf("unexpected roots: %v", settings.Security.Roots)
	}
	if !settings.Security.AllowPrivate {
		t.Error("expected allow_private from file")
	}
	if settings.Cache.MaxEntries != 7 {
		t.Errorf("expected 7 entries, got %d", settings.Cache.MaxEntries)
	}
	// Unset fields keep defaults.
	if settings.Cache.MaxBytes != 512*1024*1024 {
		t.Errorf("expected default max bytes, got %d", settings.Cache.MaxBytes)
	}
	if settings.Log.Level != "debug" {
		t.Errorf("expected debug level, got %q", settings.Log.Level)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfmcp.toml")
	content := `
[limits]
max_download_bytes = 2048
download_rps = 2.5

[engine]
workers = 3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Limits.MaxDownloadBytes != 2048 {
		t.Errorf("expected 2048, got %d", settings.Limits.MaxDownloadBytes)
	}
	if settings.Limits.DownloadRPS != 2.5 {
		t.Errorf("expected 2.5 rps, got %g", settings.Limits.DownloadRPS)
	}
	if settings.Engine.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", settings.Engine.Workers)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfmcp.json")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PDFMCP_ROOTS", "/a,/b")
	t.Setenv("PDFMCP_ALLOW_PRIVATE", "true")
	t.Setenv("PDFMCP_CACHE_MAX_BYTES", "4096")
	t.Setenv("PDFMCP_LOG_LEVEL", "warn")

	settings, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(settings.Security.Roots) != 2 || settings.Security.Roots[0] != "/a" {
		t.Errorf("unexpected roots: %v", settings.Security.Roots)
	}
	if !settings.Security.AllowPrivate {
		t.Error("expected allow_private from env")
	}
	if settings.Cache.MaxBytes != 4096 {
		t.Errorf("expected 4096, got %d", settings.Cache.MaxBytes)
	}
	if settings.Log.Level != "warn" {
		t.Errorf("expected warn, got %q", settings.Log.Level)
	}
}

func TestEnvInvalidValue(t *testing.T) {
	t.Setenv("PDFMCP_CACHE_MAX_ENTRIES", "lots")
	if _, err := Load(""); err == nil {
		t.Error("expected error for invalid integer")
	}
}

func TestValidateRejectsZeroCapacity(t *testing.T) {
	t.Setenv("PDFMCP_CACHE_MAX_ENTRIES", "0")
	if _, err := Load(""); err == nil {
		t.Error("expected error for zero cache entries")
	}
}

func TestMustLoadPanics(t *testing.T) {
	t.Setenv("PDFMCP_ENGINE_WORKERS", "-1")
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustLoad("")
}
