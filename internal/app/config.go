package app

import (
	"io"
	"os"

	"adbforward/internal/config"
	"adbforward/pkg/logging"
)

// Config holds the application configuration
type Config struct {
	// Debug settings. Debug wins over LogLevel.
	Debug    bool
	LogLevel logging.LogLevel

	// ConfigPath selects a single configuration file instead of the layered lookup.
	ConfigPath string

	// Console receives device status lines and shell output.
	Console io.Writer

	// Loaded configuration
	AdbforwardConfig *config.AdbforwardConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		LogLevel:   logging.LevelInfo,
		ConfigPath: configPath,
		Console:    os.Stdout,
	}
}
