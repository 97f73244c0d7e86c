package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/epicmotionSD/openconductor-sub010/internal/agent"
	"github.com/epicmotionSD/openconductor-sub010/internal/cli"
)

var searchFlags cli.CommandFlags

// searchFilters holds repeated --filter key=value pairs.
var searchFilters []string

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the plugin registry",
	Long: `Search the plugin registry for MCP plugins matching a query.

Filters narrow the result set by registry fields, for example
--filter category=devops or --filter verified=true. The operation is
billed per call and results may be served from the gateway's cache.

Examples:
  openconductor search github
  openconductor search "issue tracker" --filter verified=true
  openconductor search weather --output json

Note: The gateway must be running (use 'openconductor serve') before
using this command.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	cli.RegisterCommonFlags(searchCmd, &searchFlags)
	searchCmd.Flags().StringArrayVar(&searchFilters, "filter", nil, "Registry filter as key=value (repeatable)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	toolArgs := map[string]interface{}{
		"query": args[0],
	}

	if len(searchFilters) > 0 {
		filters := make(map[string]interface{}, len(searchFilters))
		for _, raw := range searchFilters {
			key, value, ok := strings.Cut(raw, "=")
			if !ok || key == "" {
				return fmt.Errorf("invalid filter %q: expected key=value", raw)
			}
			filters[key] = value
		}
		toolArgs["filters"] = filters
	}

	options, err := searchFlags.ToExecutorOptions()
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

	return executor.ExecuteOperation(ctx, agent.OpSearch, toolArgs)
}
