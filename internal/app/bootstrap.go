package app

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"adbforward/internal/color"
	"adbforward/internal/config"
	"adbforward/pkg/logging"
)

// Application is the main application structure that bootstraps and runs adbforward
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance
func NewApplication(cfg *Config) (*Application, error) {
	appLogLevel := cfg.LogLevel
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}
	logging.Init(appLogLevel, os.Stdout)
	color.Initialize(lipgloss.HasDarkBackground())

	if cfg.AdbforwardConfig == nil {
		loaded, err := loadConfig(cfg.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg.AdbforwardConfig = &loaded
	}

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

func loadConfig(path string) (config.AdbforwardConfig, error) {
	if path != "" {
		cfg, err := config.LoadConfigFromPath(path)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from path: %s", path)
			return cfg, fmt.Errorf("failed to load configuration from path %s: %w", path, err)
		}
		logging.Debug("Bootstrap", "Loaded configuration from custom path: %s", path)
		return cfg, nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration")
		return cfg, fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.Debug("Bootstrap", "Loaded configuration using layered approach")
	return cfg, nil
}

// Services exposes the wired service graph.
func (a *Application) Services() *Services {
	return a.services
}

// Run serves device events until ctx is cancelled or the process is interrupted.
func (a *Application) Run(ctx context.Context) error {
	return runService(ctx, a.config, a.services)
}
