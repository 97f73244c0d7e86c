package cli

import (
	"github.com/spf13/cobra"

	"github.com/epicmotionSD/openconductor-sub010/internal/config"
)

// CommandFlags holds the common flag values used across CLI commands
// that connect to a running gateway. This consolidates the repetitive
// flag pattern shared by search, config, validate, and deploy.
type CommandFlags struct {
	// OutputFormat specifies the desired output format (table, json, yaml)
	OutputFormat string
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
	// Debug enables verbose logging of MCP protocol messages
	Debug bool
	// ConfigPath specifies a custom configuration directory path
	ConfigPath string
	// Endpoint overrides the gateway endpoint URL for remote connections
	Endpoint string
}

// RegisterCommonFlags registers the common flags used by CLI commands
// that connect to a gateway. This keeps flag naming and descriptions
// consistent across command files.
//
// The registered flags are:
//   - --output/-o: Output format (table, json, yaml), default: "table"
//   - --no-headers: Suppress header row in table output
//   - --quiet/-q: Suppress non-essential output
//   - --debug: Enable debug logging (show MCP protocol messages)
//   - --config-path: Configuration directory
//   - --endpoint: Gateway endpoint URL (env: OPENCONDUCTOR_ENDPOINT)
func RegisterCommonFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", "table", "Output format (table, json, yaml)")
	cmd.Flags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.Flags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging (show MCP protocol messages)")
	cmd.Flags().StringVar(&flags.ConfigPath, "config-path", config.GetDefaultConfigPathOrPanic(), "Configuration directory")
	cmd.Flags().StringVar(&flags.Endpoint, "endpoint", "", "Gateway endpoint URL (env: OPENCONDUCTOR_ENDPOINT)")
}

// ToExecutorOptions converts CommandFlags to ExecutorOptions for use
// with NewToolExecutor, validating the output format on the way.
func (f *CommandFlags) ToExecutorOptions() (ExecutorOptions, error) {
	if err := ValidateOutputFormat(f.OutputFormat); err != nil {
		return ExecutorOptions{}, err
	}

	return ExecutorOptions{
		Format:     OutputFormat(f.OutputFormat),
		NoHeaders:  f.NoHeaders,
		Quiet:      f.Quiet,
		Debug:      f.Debug,
		ConfigPath: f.ConfigPath,
		Endpoint:   f.Endpoint,
	}, nil
}
