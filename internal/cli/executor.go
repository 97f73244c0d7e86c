package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/epicmotionSD/openconductor-sub010/internal/agent"
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
)

// OutputFormat represents the supported output formats for CLI commands.
type OutputFormat string

const (
	// OutputFormatTable formats output as a styled table
	OutputFormatTable OutputFormat = "table"
	// OutputFormatJSON formats output as the raw response envelope
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML formats output as YAML converted from the envelope
	OutputFormatYAML OutputFormat = "yaml"
)

// ValidOutputFormats contains all valid output format values.
var ValidOutputFormats = []OutputFormat{
	OutputFormatTable,
	OutputFormatJSON,
	OutputFormatYAML,
}

// ValidateOutputFormat validates that the given format string is a
// supported output format.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (valid: table, json, yaml)", format)
	}
}

// ExecutorOptions contains configuration options for tool execution.
type ExecutorOptions struct {
	// Format specifies the desired output format (table, json, yaml)
	Format OutputFormat
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
	// Debug enables verbose logging of MCP protocol messages
	Debug bool
	// ConfigPath specifies the configuration directory used for
	// endpoint resolution when no endpoint is given
	ConfigPath string
	// Endpoint overrides the gateway endpoint URL
	Endpoint string
}

// ToolExecutor executes gateway operations over MCP and formats the
// results. It is the backbone of every CLI command that talks to a
// running gateway.
type ToolExecutor struct {
	client    *agent.Client
	options   ExecutorOptions
	formatter *Formatter
	endpoint  string
	isRemote  bool
}

// NewToolExecutor creates a tool executor, resolving the endpoint from
// the options, the environment, or the configuration directory, in that
// order. Local endpoints are probed before connecting so a stopped
// gateway produces a clear message instead of an MCP handshake failure.
func NewToolExecutor(options ExecutorOptions) (*ToolExecutor, error) {
	// Protocol chatter is suppressed unless debug output was asked for.
	var logger *agent.Logger
	if options.Debug {
		logger = agent.NewLogger(true, true, false)
	} else {
		logger = agent.NewDevNullLogger()
	}

	endpoint := options.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv(EndpointEnvVar)
	}

	var transport agent.TransportType
	if endpoint != "" {
		// Infer transport from the URL path.
		if strings.HasSuffix(endpoint, "/sse") {
			transport = agent.TransportSSE
		} else {
			transport = agent.TransportStreamableHTTP
		}
	} else {
		if options.ConfigPath == "" {
			return nil, fmt.Errorf("no endpoint given and no configuration path to resolve one from")
		}

		cfg, err := config.LoadConfig(options.ConfigPath)
		if err != nil {
			return nil, err
		}

		switch cfg.Gateway.Transport {
		case config.MCPTransportSSE:
			transport = agent.TransportSSE
		case config.MCPTransportStreamableHTTP, "":
			transport = agent.TransportStreamableHTTP
		default:
			return nil, fmt.Errorf("transport %s cannot be dialed remotely; point --endpoint at a running gateway", cfg.Gateway.Transport)
		}

		endpoint = GatewayEndpoint(&cfg)
	}

	isRemote := IsRemoteEndpoint(endpoint)
	if !isRemote {
		if err := CheckServerRunning(endpoint); err != nil {
			return nil, err
		}
	}

	client := agent.NewClient(endpoint, logger, transport)

	// Drain notifications so the channel never blocks the transport.
	go func() {
		for notification := range client.NotificationChan {
			if options.Debug {
				logger.Debug("MCP Notification: %s", notification.Method)
			}
		}
	}()

	return &ToolExecutor{
		client:    client,
		options:   options,
		formatter: NewFormatter(options),
		endpoint:  endpoint,
		isRemote:  isRemote,
	}, nil
}

// GetClient returns the underlying agent client, for commands that need
// direct protocol access.
func (e *ToolExecutor) GetClient() *agent.Client {
	return e.client
}

// GetOptions returns the executor options.
func (e *ToolExecutor) GetOptions() ExecutorOptions {
	return e.options
}

// Endpoint returns the resolved gateway endpoint.
func (e *ToolExecutor) Endpoint() string {
	return e.endpoint
}

// Connect establishes the MCP session and loads the tool list, showing
// a progress spinner unless quiet mode is enabled.
func (e *ToolExecutor) Connect(ctx context.Context) error {
	connect := func() error {
		if err := e.client.Connect(ctx); err != nil {
			return err
		}
		return e.client.LoadTools(ctx)
	}

	if e.options.Quiet {
		if err := connect(); err != nil {
			return ClassifyConnectionError(err, e.endpoint)
		}
		return nil
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Connecting to the gateway..."
	s.Start()
	defer s.Stop()

	if err := connect(); err != nil {
		s.FinalMSG = text.FgRed.Sprint("Failed to connect to the gateway") + "\n"
		return ClassifyConnectionError(err, e.endpoint)
	}

	return nil
}

// ExecuteOperation resolves a canonical operation suffix against the
// gateway's advertised tools and executes it. Connect must have been
// called first.
func (e *ToolExecutor) ExecuteOperation(ctx context.Context, op string, args map[string]interface{}) error {
	name, ok := e.client.FindOperationTool(op)
	if !ok {
		return fmt.Errorf("the gateway at %s does not advertise a %s tool", e.endpoint, op)
	}
	return e.Execute(ctx, name, args)
}

// Execute executes a tool and formats the output according to the
// configured options.
func (e *ToolExecutor) Execute(ctx context.Context, toolName string, args map[string]interface{}) error {
	var s *spinner.Spinner
	if !e.options.Quiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Executing command..."
		s.Start()
	}

	result, err := e.client.CallTool(ctx, toolName, args)

	if s != nil {
		s.Stop()
	}

	if err != nil {
		if s != nil {
			fmt.Fprintf(os.Stderr, "%s\n", text.FgRed.Sprint("Command failed"))
		}
		return fmt.Errorf("failed to execute tool %s: %w", toolName, err)
	}

	if result.IsError {
		return e.formatFailure(result)
	}

	return e.formatOutput(result)
}

// ExecuteJSON executes a tool and returns the result as parsed JSON,
// for callers that consume the data instead of displaying it.
func (e *ToolExecutor) ExecuteJSON(ctx context.Context, toolName string, args map[string]interface{}) (interface{}, error) {
	return e.client.CallToolJSON(ctx, toolName, args)
}

// Close closes the connection to the gateway.
func (e *ToolExecutor) Close() error {
	return e.client.Close()
}

// formatFailure handles an error result. A structured failure envelope
// still goes to stdout in json and yaml modes so scripts can parse it,
// while the returned error carries the kind for the exit code.
func (e *ToolExecutor) formatFailure(result *mcp.CallToolResult) error {
	payload := firstTextContent(result)

	env, err := parseEnvelope(payload)
	if err != nil || env.Error == nil {
		// Plain rejection text, for example a missing argument.
		return fmt.Errorf("%s", payload)
	}

	switch e.options.Format {
	case OutputFormatJSON:
		fmt.Println(payload)
	case OutputFormatYAML:
		if err := e.outputYAML(payload); err != nil {
			return err
		}
	}

	return &OperationFailedError{
		Event:   env.Event,
		Kind:    env.Error.Kind,
		Message: env.Error.Message,
	}
}

// formatOutput formats a successful result according to the configured
// output format.
func (e *ToolExecutor) formatOutput(result *mcp.CallToolResult) error {
	payload := firstTextContent(result)
	if payload == "" {
		if !e.options.Quiet {
			fmt.Println("No results")
		}
		return nil
	}

	switch e.options.Format {
	case OutputFormatJSON:
		fmt.Println(payload)
		return nil
	case OutputFormatYAML:
		return e.outputYAML(payload)
	case OutputFormatTable:
		return e.formatter.RenderEnvelope(payload)
	default:
		return fmt.Errorf("unsupported output format: %s", e.options.Format)
	}
}

// outputYAML converts a JSON payload to YAML and prints it.
func (e *ToolExecutor) outputYAML(jsonData string) error {
	var data interface{}
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to convert to YAML: %w", err)
	}

	fmt.Print(string(yamlData))
	return nil
}

// firstTextContent extracts the first text content from a tool result.
func firstTextContent(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			return textContent.Text
		}
	}
	return ""
}
