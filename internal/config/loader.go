package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"adbforward/pkg/logging"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/adbforward"
	projectConfigDir = ".adbforward"
	configFileName   = "config.yaml"
)

// LoadConfig loads the configuration by layering default, user, and project
// settings, then validates the result.
func LoadConfig() (AdbforwardConfig, error) {
	// 1. Start with the default configuration
	config := GetDefaultConfig()

	// 2. User-specific configuration
	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// User config is optional
		logging.Warn("Config", "Could not determine user config path: %v", err)
	} else if config, err = overlayIfExists(config, userConfigPath); err != nil {
		return AdbforwardConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
	}

	// 3. Project-specific configuration
	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		logging.Warn("Config", "Could not determine project config path: %v", err)
	} else if config, err = overlayIfExists(config, projectConfigPath); err != nil {
		return AdbforwardConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
	}

	if err := config.Validate(); err != nil {
		return AdbforwardConfig{}, err
	}
	return config, nil
}

// LoadConfigFromPath loads defaults overlaid with a single explicit file.
// Unlike the layered loader, a missing file is an error.
func LoadConfigFromPath(path string) (AdbforwardConfig, error) {
	config, err := overlayFromFile(GetDefaultConfig(), path)
	if err != nil {
		return AdbforwardConfig{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return AdbforwardConfig{}, err
	}
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

func overlayIfExists(base AdbforwardConfig, path string) (AdbforwardConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return base, nil
	}
	merged, err := overlayFromFile(base, path)
	if err != nil {
		return base, err
	}
	logging.Debug("Config", "Applied configuration overlay %s", path)
	return merged, nil
}

// overlayFromFile decodes the YAML file on top of base. Keys absent from the
// file keep their base values; lists present in the file replace the base list.
func overlayFromFile(base AdbforwardConfig, filePath string) (AdbforwardConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return base, err
	}

	merged := base
	merged.AllowList = append([]string(nil), base.AllowList...)
	merged.ForwardPorts = append([]ForwardRule(nil), base.ForwardPorts...)
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return base, err
	}
	return merged, nil
}
