package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// sampleConfig is the commented configuration written by `peerdrived init`.
const sampleConfig = `# peerdrive daemon configuration
#
# Every value can be overridden with an environment variable:
#   PEERDRIVE_<SECTION>_<KEY>  (underscores for nested keys)
# Example: PEERDRIVE_LOGGING_LEVEL=DEBUG

logging:
  # Minimum log level: DEBUG, INFO, WARN, ERROR
  level: "INFO"
  # Log format: text or json
  format: "text"
  # Where logs are written: stdout, stderr, or a file path
  output: "stdout"

# Maximum time to wait for graceful shutdown
shutdown_timeout: 30s

store:
  # Storage backend drives live on: memory or badger
  backend: "memory"
  # Uncomment for durable storage:
  # backend: "badger"
  # badger:
  #   path: "/var/lib/peerdrive/db"
  #   sync_writes: false

api:
  # Control API HTTP server
  enabled: true
  port: 8080

metrics:
  # Prometheus metrics HTTP server
  enabled: false
  port: 9090
`

// InitConfig creates a sample configuration file at the default location.
// Returns the path the file was written to.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath creates a sample configuration file at the given path.
// Refuses to overwrite an existing file unless force is set.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
