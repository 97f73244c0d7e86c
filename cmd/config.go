package cmd

import (
	"github.com/spf13/cobra"

	"github.com/epicmotionSD/openconductor-sub010/internal/agent"
	"github.com/epicmotionSD/openconductor-sub010/internal/cli"
)

var configFlags cli.CommandFlags

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config <slug>",
	Short: "Show a plugin's configuration",
	Long: `Show the registry descriptor for a plugin together with its latest
validation verdict and deployment record, when those exist.

Examples:
  openconductor config github-mcp
  openconductor config github-mcp --output yaml

Note: The gateway must be running (use 'openconductor serve') before
using this command.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)

	cli.RegisterCommonFlags(configCmd, &configFlags)
}

func runConfig(cmd *cobra.Command, args []string) error {
	options, err := configFlags.ToExecutorOptions()
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

	return executor.ExecuteOperation(ctx, agent.OpConfig, map[string]interface{}{
		"slug": args[0],
	})
}
