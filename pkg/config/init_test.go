package config

import (
	"path/filepath"
	"testing"
)

func TestInitConfigToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := InitConfigToPath(path, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}

	// The generated sample must load and validate.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Generated sample config does not load: %v", err)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected sample level INFO, got %q", cfg.Logging.Level)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Expected sample backend memory, got %q", cfg.Store.Backend)
	}
}

func TestInitConfigToPath_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := InitConfigToPath(path, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}
	if err := InitConfigToPath(path, false); err == nil {
		t.Error("Expected error when overwriting without --force")
	}
	if err := InitConfigToPath(path, true); err != nil {
		t.Errorf("Expected --force to overwrite, got error: %v", err)
	}
}
