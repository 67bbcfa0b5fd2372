package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, "CONFIG_FILE", "CACHE_TTL_DAYS", "STORAGE_BACKEND", "RECOGNITION_BACKEND", "LOOKUP_MAX_IN_FLIGHT", "IMAGE_MAX_BYTES", "BREAKER_ENABLED")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CacheTTLDays != 7 {
		t.Fatalf("expected default ttl 7, got %d", cfg.CacheTTLDays)
	}
	if cfg.StorageBackend != StorageFile || cfg.RecognitionBackend != RecognitionOCRSpace {
		t.Fatalf("unexpected backends %q %q", cfg.StorageBackend, cfg.RecognitionBackend)
	}
	if cfg.LookupMaxInFlight != 1 || cfg.ImageMaxBytes != 800*1024 || !cfg.BreakerEnabled {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CACHE_TTL_DAYS", "14")
	t.Setenv("STORAGE_BACKEND", "Postgres")
	t.Setenv("BREAKER_FAILURE_RATIO", "0.25")
	t.Setenv("BREAKER_ENABLED", "false")
	t.Setenv("API_MAX_CONNECTIONS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CacheTTLDays != 14 || cfg.StorageBackend != StoragePostgres {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.BreakerFailureRatio != 0.25 || cfg.BreakerEnabled {
		t.Fatalf("breaker overrides not applied: %+v", cfg)
	}
	if cfg.APIMaxConnections != 64 {
		t.Fatalf("invalid int must fall back to default, got %d", cfg.APIMaxConnections)
	}
}

func TestLoadFileSitsBetweenDefaultsAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := strings.Join([]string{
		"vehicle_lookup_url: https://proxy.example.workers.dev",
		"cache_ttl_days: 21",
		"recognition_backend: ollama",
		"breaker_enabled: false",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	clearEnv(t, "VEHICLE_LOOKUP_URL", "BREAKER_ENABLED")
	t.Setenv("CACHE_TTL_DAYS", "3")
	t.Setenv("RECOGNITION_BACKEND", "")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.VehicleLookupURL != "https://proxy.example.workers.dev" {
		t.Fatalf("file value not applied: %q", cfg.VehicleLookupURL)
	}
	if cfg.CacheTTLDays != 3 {
		t.Fatalf("environment must override the file, got %d", cfg.CacheTTLDays)
	}
	if cfg.RecognitionBackend != RecognitionOllama || cfg.BreakerEnabled {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}

func TestLoadFileRejectsNestedValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  backend: file\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected error for nested keys")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Config{
		CacheTTLDays:        31,
		StorageBackend:      "redis",
		RecognitionBackend:  "tesseract",
		LookupMaxInFlight:   0,
		ImageMaxBytes:       1,
		ImageMaxWidth:       1,
		BreakerFailureRatio: 2,
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, fragment := range []string{"CACHE_TTL_DAYS", "STORAGE_BACKEND", "RECOGNITION_BACKEND", "LOOKUP_MAX_IN_FLIGHT", "BREAKER_FAILURE_RATIO"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %s in %v", fragment, err)
		}
	}
}
