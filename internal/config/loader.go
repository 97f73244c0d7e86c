package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/openconductor"
	configFileName = "config.yaml"
)

// Environment overrides for secrets that must not live in config files.
const (
	EnvPostgresDSN   = "OPENCONDUCTOR_POSTGRES_DSN"
	EnvRedisAddr     = "OPENCONDUCTOR_REDIS_ADDR"
	EnvRedisPassword = "OPENCONDUCTOR_REDIS_PASSWORD"
	EnvRegistryURL   = "OPENCONDUCTOR_REGISTRY_URL"
	EnvHostingURL    = "OPENCONDUCTOR_HOSTING_URL"
)

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads configuration from a single specified directory.
// The directory should contain config.yaml; a missing file means defaults.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig() // Start with default config

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Config", "No config.yaml found at %s, using defaults", configFilePath)
			applyEnvOverrides(&config)
			return config, nil
		}
		logging.Info("Config", "Error loading config.yaml from %s: %s", configFilePath, err)
		return Config{}, err
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		// config malformed
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	applyEnvOverrides(&config)
	logging.Info("Config", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// applyEnvOverrides lets the environment win over file values so secrets
// stay out of config files and container deployments can rewire endpoints.
func applyEnvOverrides(config *Config) {
	if dsn := os.Getenv(EnvPostgresDSN); dsn != "" {
		config.Ledger.PostgresDSN = dsn
	}
	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		config.Cache.Redis.Addr = addr
		config.RateLimit.Redis.Addr = addr
	}
	if password := os.Getenv(EnvRedisPassword); password != "" {
		config.Cache.Redis.Password = password
		config.RateLimit.Redis.Password = password
	}
	if url := os.Getenv(EnvRegistryURL); url != "" {
		config.Registry.BaseURL = url
	}
	if url := os.Getenv(EnvHostingURL); url != "" {
		config.Hosting.BaseURL = url
	}
}
