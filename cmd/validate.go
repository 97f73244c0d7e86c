package cmd

import (
	"github.com/spf13/cobra"

	"github.com/epicmotionSD/openconductor-sub010/internal/agent"
	"github.com/epicmotionSD/openconductor-sub010/internal/cli"
)

var validateFlags cli.CommandFlags

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <slug>",
	Short: "Validate a plugin in an isolated sandbox",
	Long: `Run the validation pipeline for a plugin: probe the declared source,
install the artifact into an isolated sandbox, perform the MCP handshake,
and enumerate the tools the plugin actually exposes.

A failed check is a normal, billed outcome and shows which step failed;
later checks that never ran are reported as skipped. Recent verdicts may
be served from the gateway's cache.

Examples:
  openconductor validate github-mcp
  openconductor validate github-mcp --output json

Note: The gateway must be running (use 'openconductor serve') before
using this command.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	cli.RegisterCommonFlags(validateCmd, &validateFlags)
}

func runValidate(cmd *cobra.Command, args []string) error {
	options, err := validateFlags.ToExecutorOptions()
	if err != nil {
		return err
	}

	executor, err := cli.NewToolExecutor(options)
	if err != nil {
		return err
	}
	defer executor.Close()

	ctx := cmd.Context()
	if err := executor.Connect(ctx); err != nil {
		return err
	}

	return executor.ExecuteOperation(ctx, agent.OpValidate, map[string]interface{}{
		"slug": args[0],
	})
}
