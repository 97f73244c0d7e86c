package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/epicmotionSD/openconductor-sub010/internal/cli"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// Exit codes for CLI commands. Gateway error kinds map onto these so
// scripts can tell a rejected request from an infrastructure failure.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, gateway
	// unreachable, internal fault).
	ExitCodeError = 1
	// ExitCodeInput indicates the request was rejected before execution
	// (malformed input or unknown plugin).
	ExitCodeInput = 2
	// ExitCodeRateLimited indicates the per-key rate limit was exceeded.
	ExitCodeRateLimited = 3
	// ExitCodeCredential indicates a missing or rejected hosting credential.
	ExitCodeCredential = 4
)

// rootLogLevel controls diagnostic verbosity for CLI commands. The serve
// command replaces this with its own daemon logging during bootstrap.
var rootLogLevel string

// rootCmd represents the base command for the openconductor application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "openconductor",
	Short: "Discovery and deployment gateway for MCP plugins",
	Long: `openconductor runs a gateway that lets MCP clients search a plugin
registry, inspect plugin configuration, validate plugins in isolated
sandboxes, and deploy them to a hosting platform, with metered billing,
caching, and rate limiting on every operation.

Start the gateway with 'openconductor serve', then use the search,
config, validate, and deploy commands (or any MCP client) against it.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
	// Diagnostics go to stderr so command output on stdout stays parseable.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.InitForCLI(logging.ParseLevel(rootLogLevel), os.Stderr)
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the
// application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application. It initializes
// and executes the root command, which in turn handles subcommands and
// flags. This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "openconductor version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var opErr *cli.OperationFailedError
	if errors.As(err, &opErr) {
		switch opErr.Kind {
		case "input", "not_found":
			return ExitCodeInput
		case "rate_limit":
			return ExitCodeRateLimited
		case "credential":
			return ExitCodeCredential
		}
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "info", "Diagnostic log level (debug, info, warn, error)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
