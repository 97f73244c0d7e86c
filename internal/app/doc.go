// Package app provides application bootstrap, service wiring, and daemon
// lifecycle management for openconductor.
//
// The package has three components:
//
//  1. Bootstrap (bootstrap.go): logging setup, configuration loading and
//     validation, service initialization
//  2. Services (services.go): construction and API registration of every
//     component in dependency order
//  3. Daemon loop (run.go): signal handling, systemd readiness
//     notification, and graceful drain
//
// # Initialization Sequence
//
// NewApplication loads configuration from the config directory (flag
// value or ~/.config/openconductor), validates it, and calls
// InitializeServices, which wires components strictly in dependency
// order: metrics and the event bus first, then the backend stores
// (cache, ledger, rate limiter, deployment records), then the registry
// client and the validation and deployment pipelines, then the router,
// and finally the gateway and metrics servers. Each component registers
// its handler with the central API layer as it comes up, so the router
// never resolves a handler that is not yet in place.
//
// Backends that need external infrastructure (Redis, Postgres) verify
// connectivity during initialization and fail the bootstrap with a
// descriptive error rather than limping into serving traffic.
//
// # Execution
//
// Run starts the gateway on the configured transport, the metrics
// endpoint when enabled, and the pricing watcher, then blocks until the
// context is cancelled or SIGINT/SIGTERM arrives. Under systemd with
// Type=notify the daemon reports READY after startup and STOPPING when
// the drain begins. Shutdown stops the servers with a bounded timeout
// and releases every backend.
//
// # Usage
//
// The serve command is the only production caller:
//
//	cfg := app.NewConfig(debug, silent, configPath)
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// CLI operation commands do not bootstrap an application; they connect
// to a running gateway over MCP so that billing, caching, and rate
// limiting always flow through the same serving path. Services and
// Close exist for integration tests that drive the router directly.
package app
