package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/declarative-routeros/rosexec/internal/constants"
)

// GetGlobalConfigPath returns the path to the global config file
func GetGlobalConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return constants.ConfigPath(configDir), nil
}

// LoadGlobalConfig loads the global configuration from path, or from the
// default location when path is empty. A missing default file yields the
// defaults; a missing explicit file is an error.
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = GetGlobalConfigPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return DefaultGlobalConfig(), nil
		}
		return nil, fmt.Errorf("failed to read global config: %w", err)
	}

	var config GlobalConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse global config: %w", err)
	}

	if errs := ValidateGlobalConfig(&config); errs.HasErrors() {
		return nil, fmt.Errorf("invalid global config %s: %w", path, errs)
	}

	return &config, nil
}
