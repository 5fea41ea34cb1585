package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"pagecms/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/pagecms"
	configFileName = "config.yaml"
)

// Environment variables that override the config file.
const (
	EnvClientID = "PAGECMS_CLIENT_ID"
	EnvOwner    = "PAGECMS_OWNER"
	EnvRepo     = "PAGECMS_REPO"
	EnvBranch   = "PAGECMS_BRANCH"
)

// osUserHomeDir is replaced in tests.
var osUserHomeDir = os.UserHomeDir

// GetDefaultConfigPath returns ~/.config/pagecms.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads config.yaml from configPath on top of the defaults and
// applies environment overrides. An empty configPath selects the default
// directory. A missing file is not an error.
func LoadConfig(configPath string) (Config, error) {
	if configPath == "" {
		var err error
		configPath, err = GetDefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
	}

	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return Config{}, fmt.Errorf("error reading config from %s: %w", configFilePath, err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, NewConfigurationError(configFilePath, "", ErrorTypeParse, err.Error())
		}
		logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	applyEnvOverrides(&config)

	if config.Credentials.Dir == "" {
		config.Credentials.Dir = configPath
	}
	return config, nil
}

func applyEnvOverrides(config *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{EnvClientID, &config.OAuth.ClientID},
		{EnvOwner, &config.Repository.Owner},
		{EnvRepo, &config.Repository.Repo},
		{EnvBranch, &config.Repository.Branch},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			logging.Debug("ConfigLoader", "Using %s from environment", o.env)
			*o.target = v
		}
	}
}

// SaveConfig writes config as config.yaml into configPath.
func SaveConfig(configPath string, config Config) error {
	if err := os.MkdirAll(configPath, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configPath, err)
	}
	data, err := yaml.Marshal(&config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(configPath, configFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config to %s: %w", path, err)
	}
	return nil
}
