package app

import (
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
)

// Config holds the application runtime configuration
type Config struct {
	// Debug settings
	Debug bool

	// Silent suppresses all log output. Used by CLI commands that render
	// their own result, and by tests.
	Silent bool

	// ConfigPath is the directory holding config.yaml. When empty, the
	// default user config directory is used.
	ConfigPath string

	// Loaded gateway configuration, populated during bootstrap
	GatewayConfig *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug, silent bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Silent:     silent,
		ConfigPath: configPath,
	}
}
