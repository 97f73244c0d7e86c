package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/epicmotionSD/openconductor-sub010/internal/config"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// Application bootstraps and runs the gateway. It encapsulates the loaded
// configuration and every wired component required for the daemon lifecycle.
//
// Initialization happens in two phases:
//  1. Bootstrap: configure logging, load configuration, wire components
//  2. Execution: Run starts the transports and blocks until shutdown
//
// Example usage:
//
//	app, err := app.NewApplication(app.NewConfig(false, false, ""))
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return app.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes an application instance: it
// configures logging from the debug flag, loads config.yaml from the
// configured directory (or the user default), validates it, and wires all
// components with their api adapters registered.
//
// The returned application holds live backends. Callers that do not
// proceed to Run must call Close to release them.
func NewApplication(cfg *Config) (*Application, error) {
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}

	var logOutput io.Writer = os.Stderr
	if cfg.Silent {
		logOutput = io.Discard
	}
	logging.InitForDaemon(appLogLevel, logOutput)

	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}

	gatewayCfg, err := config.LoadConfig(configPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration from %s", configPath)
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	if err := gatewayCfg.Validate(); err != nil {
		logging.Error("Bootstrap", err, "Configuration is invalid")
		return nil, fmt.Errorf("configuration is invalid: %w", err)
	}

	cfg.ConfigPath = configPath
	cfg.GatewayConfig = &gatewayCfg

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

// Run executes the application until the context is canceled or a
// termination signal arrives, then drains and closes every component.
func (a *Application) Run(ctx context.Context) error {
	return runDaemon(ctx, a.services)
}

// Services exposes the wired components, for integration tests that
// drive the router without starting the gateway transport.
func (a *Application) Services() *Services {
	return a.services
}

// Close releases every backend without running the daemon. Run performs
// the same cleanup itself.
func (a *Application) Close() {
	a.services.Close()
}
