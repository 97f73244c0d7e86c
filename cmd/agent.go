package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/epicmotionSD/openconductor-sub010/internal/agent"
	"github.com/epicmotionSD/openconductor-sub010/internal/cli"
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
)

var (
	agentEndpoint   string
	agentVerbose    bool
	agentNoColor    bool
	agentJSONRPC    bool
	agentREPL       bool
	agentTransport  string
	agentConfigPath string
)

// agentCmd represents the agent command
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "MCP client for the openconductor gateway",
	Long: `The agent command connects to the gateway as an MCP client, logs the
JSON-RPC exchange, and follows dynamic tool updates.

It can run in two modes:
1. Normal mode (default): connects, lists the gateway tools, and waits
   for tool list change notifications
2. REPL mode (--repl): provides an interactive interface to explore and
   execute the gateway tools

Transport options:
- streamable-http (default): HTTP-based transport, matches the default
  gateway configuration
- sse: Server-Sent Events transport with real-time notification support

In REPL mode, you can:
- List the gateway tools and describe their schemas
- Run search, config, validate, and deploy without knowing the
  configured tool prefix
- Execute any tool with JSON or key=value arguments

By default, the agent connects to the endpoint in your openconductor
configuration file. You can override this with the --endpoint flag or
the OPENCONDUCTOR_ENDPOINT environment variable.

Note: The gateway must be running (use 'openconductor serve') before
using this command.`,
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(agentCmd)

	agentCmd.Flags().StringVar(&agentEndpoint, "endpoint", "", "Gateway MCP endpoint URL (default: from config)")
	agentCmd.Flags().BoolVar(&agentVerbose, "verbose", false, "Enable verbose logging (show keepalive messages)")
	agentCmd.Flags().BoolVar(&agentNoColor, "no-color", false, "Disable colored output")
	agentCmd.Flags().BoolVar(&agentJSONRPC, "json-rpc", false, "Enable full JSON-RPC message logging")
	agentCmd.Flags().BoolVar(&agentREPL, "repl", false, "Start interactive REPL mode")
	agentCmd.Flags().StringVar(&agentTransport, "transport", string(agent.TransportStreamableHTTP), "Transport to use (streamable-http, sse)")
	agentCmd.Flags().StringVar(&agentConfigPath, "config-path", config.GetDefaultConfigPathOrPanic(), "Configuration directory")
}

func runAgent(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	logger := agent.NewLogger(agentVerbose, !agentNoColor, agentJSONRPC)

	// Handle interrupts gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("\nReceived interrupt signal, shutting down gracefully...")
		cancel()
	}()

	// Endpoint precedence: --endpoint flag, environment, configuration.
	endpoint := agentEndpoint
	if endpoint == "" {
		endpoint = os.Getenv(cli.EndpointEnvVar)
	}
	if endpoint == "" {
		cfg, err := config.LoadConfig(agentConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		endpoint = cli.GatewayEndpoint(&cfg)
	}

	var transport agent.TransportType
	switch agentTransport {
	case "sse":
		transport = agent.TransportSSE
	case "streamable-http":
		transport = agent.TransportStreamableHTTP
	default:
		return fmt.Errorf("unsupported transport: %s (supported: streamable-http, sse)", agentTransport)
	}

	client := agent.NewClient(endpoint, logger, transport)

	if agentREPL {
		if err := connectWithRetry(ctx, client, logger, endpoint, transport); err != nil {
			return err
		}
		defer client.Close()

		repl := agent.NewREPL(client, logger)
		if err := repl.Run(ctx); err != nil {
			return fmt.Errorf("REPL error: %w", err)
		}
		return nil
	}

	// Normal agent mode: connect, list tools, follow notifications.
	return client.Run(ctx)
}

// connectWithRetry connects to the gateway, retrying a few times so the
// agent survives a gateway that is still starting up.
func connectWithRetry(ctx context.Context, client *agent.Client, logger *agent.Logger, endpoint string, transport agent.TransportType) error {
	const maxRetries = 3

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}

		logger.Info("Connecting to gateway at: %s using %s transport (attempt %d/%d)", endpoint, transport, attempt+1, maxRetries)

		err := client.Connect(ctx)
		if err == nil {
			if err := client.LoadTools(ctx); err != nil {
				if attempt < maxRetries-1 {
					logger.Info("Tool listing failed, retrying: %v", err)
					continue
				}
				return fmt.Errorf("failed to load the gateway tools: %w", err)
			}
			return nil
		}

		if attempt < maxRetries-1 {
			logger.Info("Connection attempt %d failed, retrying: %v", attempt+1, err)
			continue
		}

		return fmt.Errorf("failed to connect to the gateway: %w", err)
	}

	return fmt.Errorf("failed to connect to the gateway after %d attempts", maxRetries)
}
