package config

import "testing"

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config, got error: %v", err)
	}
}

func TestValidate_NilConfig(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "VERBOSE"

	if err := Validate(cfg); err == nil {
		t.Error("Expected error for invalid log level")
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Error("Expected error for invalid log format")
	}
}

func TestValidate_InvalidAPIPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.Port = 70000

	if err := Validate(cfg); err == nil {
		t.Error("Expected error for out-of-range API port")
	}
}

func TestValidate_InvalidBackend(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Backend = "postgres"

	if err := Validate(cfg); err == nil {
		t.Error("Expected error for unsupported store backend")
	}
}

func TestValidate_BadgerRequiresPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Backend = "badger"

	if err := Validate(cfg); err == nil {
		t.Error("Expected error for badger backend without path")
	}

	cfg.Store.Badger = map[string]any{"path": "/tmp/peerdrive-db"}
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid badger config, got error: %v", err)
	}
}

func TestValidate_ZeroShutdownTimeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.ShutdownTimeout = 0

	if err := Validate(cfg); err == nil {
		t.Error("Expected error for zero shutdown timeout")
	}
}
