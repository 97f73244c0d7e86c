package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/epicmotionSD/openconductor-sub010/internal/app"
)

// serveDebug enables verbose logging across the application.
// This helps troubleshoot gateway behavior and backend connectivity.
var serveDebug bool

// serveSilent suppresses all log output. Useful under process managers
// that capture stdout separately.
var serveSilent bool

// serveConfigPath specifies a custom configuration directory path.
// The directory should contain config.yaml; a missing file means defaults.
var serveConfigPath string

// serveCmd defines the serve command structure. This is the main command
// of openconductor: it starts the gateway and everything behind it.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the openconductor gateway",
	Long: `Starts the openconductor gateway and serves the plugin operations
over the configured MCP transport.

The gateway exposes four tools to connected MCP clients: plugin search,
plugin configuration lookup, sandboxed validation, and hosted deployment.
Every call is billed against the caller's ledger, rate limited per
caller, and cached where the operation allows it.

When metrics are enabled, Prometheus metrics and a health probe are
served on a separate port.

Configuration:
  openconductor loads config.yaml from the user config directory
  (~/.config/openconductor) by default. Use --config-path to point at a
  different directory. A missing config.yaml means built-in defaults;
  environment variables such as OPENCONDUCTOR_POSTGRES_DSN and
  OPENCONDUCTOR_REDIS_ADDR override the file.

The gateway must be running before the search, config, validate, deploy,
and agent commands can be used.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, serveSilent, serveConfigPath)

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

// init registers the serve command and its flags with the root command.
// This is called automatically when the package is imported.
func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&serveSilent, "silent", false, "Suppress all log output")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Custom configuration directory path")
}
