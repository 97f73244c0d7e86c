package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// TransportType defines the transport type for MCP connections
type TransportType string

const (
	TransportSSE            TransportType = "sse"
	TransportStreamableHTTP TransportType = "streamable-http"
)

// Canonical operation suffixes as the gateway registers them, before the
// configured tool prefix is applied.
const (
	OpSearch   = "search_plugins"
	OpConfig   = "get_plugin_config"
	OpValidate = "validate_plugin"
	OpDeploy   = "deploy_plugin"
)

// Client is an MCP client for the gateway, shared by the CLI commands
// and the interactive REPL.
type Client struct {
	endpoint         string
	transport        TransportType
	logger           *Logger
	client           client.MCPClient
	toolCache        []mcp.Tool
	mu               sync.RWMutex
	timeout          time.Duration
	NotificationChan chan mcp.JSONRPCNotification
}

// NewClient creates a new client with the specified transport
func NewClient(endpoint string, logger *Logger, transport TransportType) *Client {
	return &Client{
		endpoint:         endpoint,
		transport:        transport,
		logger:           logger,
		toolCache:        []mcp.Tool{},
		timeout:          30 * time.Second,
		NotificationChan: make(chan mcp.JSONRPCNotification, 10),
	}
}

// GetEndpoint returns the endpoint the client was created for.
func (c *Client) GetEndpoint() string {
	return c.endpoint
}

// SupportsNotifications returns whether the transport delivers server
// notifications. Only SSE pushes tool list changes.
func (c *Client) SupportsNotifications() bool {
	return c.transport == TransportSSE
}

// Run executes the plain agent workflow: connect, handshake, list the
// gateway tools, then keep printing notifications until the context ends.
func (c *Client) Run(ctx context.Context) error {
	c.logger.Info("Connecting to gateway at %s using %s transport...", c.endpoint, c.transport)

	mcpClient, err := c.createAndConnectClient(ctx)
	if err != nil {
		return err
	}
	defer mcpClient.Close()

	c.client = mcpClient

	if err := c.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := c.listTools(ctx, true); err != nil {
		return fmt.Errorf("initial tool listing failed: %w", err)
	}

	if !c.SupportsNotifications() {
		c.logger.Info("Connected and listed the gateway tools. The %s transport does not deliver notifications.", c.transport)
		return nil
	}

	c.logger.Info("Waiting for notifications (press Ctrl+C to exit)...")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Shutting down...")
			return nil

		case notification := <-c.NotificationChan:
			if err := c.handleNotification(ctx, notification); err != nil {
				c.logger.Error("Failed to handle notification: %v", err)
			}
		}
	}
}

// handleNotification processes an incoming notification. A tool list
// change refreshes the cache so completion and suffix lookup stay
// accurate.
func (c *Client) handleNotification(ctx context.Context, notification mcp.JSONRPCNotification) error {
	if c.logger != nil {
		c.logger.Notification(notification.Method, notification.Params)
	}

	if notification.Method == "notifications/tools/list_changed" {
		return c.listTools(ctx, false)
	}

	return nil
}

// createAndConnectClient creates and starts the transport-specific MCP client
func (c *Client) createAndConnectClient(ctx context.Context) (client.MCPClient, error) {
	if c.transport != TransportSSE && c.transport != TransportStreamableHTTP {
		return nil, fmt.Errorf("unsupported transport type: %s", c.transport)
	}

	var mcpClient client.MCPClient
	switch c.transport {
	case TransportSSE:
		sseClient, err := client.NewSSEMCPClient(c.endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create SSE client: %w", err)
		}

		if err := sseClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start SSE client: %w", err)
		}

		sseClient.OnNotification(func(notification mcp.JSONRPCNotification) {
			select {
			case c.NotificationChan <- notification:
			case <-ctx.Done():
			}
		})

		mcpClient = sseClient

	case TransportStreamableHTTP:
		httpClient, err := client.NewStreamableHttpClient(c.endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create streamable-http client: %w", err)
		}

		if err := httpClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start streamable-http client: %w", err)
		}

		httpClient.OnNotification(func(notification mcp.JSONRPCNotification) {
			select {
			case c.NotificationChan <- notification:
			case <-ctx.Done():
			}
		})

		mcpClient = httpClient
	}

	return mcpClient, nil
}

// Connect establishes the connection and performs the handshake, for
// CLI-style request/response use.
func (c *Client) Connect(ctx context.Context) error {
	mcpClient, err := c.createAndConnectClient(ctx)
	if err != nil {
		return err
	}

	c.client = mcpClient

	if err := c.initialize(ctx); err != nil {
		c.client.Close()
		c.client = nil
		return fmt.Errorf("initialization failed: %w", err)
	}

	return nil
}

// initialize performs the MCP protocol handshake
func (c *Client) initialize(ctx context.Context) error {
	req := mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: "2024-11-05",
			ClientInfo: mcp.Implementation{
				Name: func() string {
					if c.logger != nil {
						return "openconductor-agent"
					}
					return "openconductor-cli"
				}(),
				Version: "1.0.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	}

	if c.logger != nil {
		c.logger.Request("initialize", req.Params)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.client.Initialize(timeoutCtx, req)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("Initialize failed: %v", err)
		}
		return err
	}

	if c.logger != nil {
		c.logger.Response("initialize", result)
	}

	return nil
}

// LoadTools performs the initial tool listing after Connect. Operation
// name resolution and tab completion both need the cache populated.
func (c *Client) LoadTools(ctx context.Context) error {
	return c.listTools(ctx, true)
}

// RefreshTools re-fetches the tool list and reports the differences.
func (c *Client) RefreshTools(ctx context.Context) error {
	return c.listTools(ctx, false)
}

// listTools fetches the advertised tools and updates the cache. On a
// refresh the diff against the previous list is shown.
func (c *Client) listTools(ctx context.Context, initial bool) error {
	req := mcp.ListToolsRequest{}

	if c.logger != nil {
		c.logger.Request("tools/list", req.Params)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.client.ListTools(timeoutCtx, req)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("ListTools failed: %v", err)
		}
		return err
	}

	if c.logger != nil {
		c.logger.Response("tools/list", result)
	}

	if !initial {
		c.mu.RLock()
		oldTools := c.toolCache
		c.mu.RUnlock()

		c.mu.Lock()
		c.toolCache = result.Tools
		c.mu.Unlock()

		if c.logger != nil {
			c.showToolDiff(oldTools, result.Tools)
		}
	} else {
		c.mu.Lock()
		c.toolCache = result.Tools
		c.mu.Unlock()
	}

	return nil
}

// Tools returns a copy of the cached tool list.
func (c *Client) Tools() []mcp.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tools := make([]mcp.Tool, len(c.toolCache))
	copy(tools, c.toolCache)
	return tools
}

// GetToolByName returns the cached tool with the given name, or nil.
func (c *Client) GetToolByName(name string) *mcp.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.toolCache {
		if c.toolCache[i].Name == name {
			return &c.toolCache[i]
		}
	}
	return nil
}

// FindOperationTool resolves an operation suffix such as search_plugins
// to the full advertised tool name. The gateway registers its tools
// behind an operator-configured prefix, so clients match by suffix
// instead of assuming one.
func (c *Client) FindOperationTool(op string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.toolCache {
		name := c.toolCache[i].Name
		if name == op || strings.HasSuffix(name, "_"+op) {
			return name, true
		}
	}
	return "", false
}

// showToolDiff logs which tools appeared and disappeared between two
// tool list snapshots.
func (c *Client) showToolDiff(oldTools, newTools []mcp.Tool) {
	oldMap := make(map[string]mcp.Tool)
	for _, tool := range oldTools {
		oldMap[tool.Name] = tool
	}

	newMap := make(map[string]mcp.Tool)
	for _, tool := range newTools {
		newMap[tool.Name] = tool
	}

	var added []string
	var removed []string

	for name := range newMap {
		if _, exists := oldMap[name]; !exists {
			added = append(added, name)
		}
	}
	for name := range oldMap {
		if _, exists := newMap[name]; !exists {
			removed = append(removed, name)
		}
	}

	if len(added) == 0 && len(removed) == 0 {
		c.logger.Info("No tool changes detected")
		return
	}

	c.logger.Info("Tool changes detected:")
	for _, name := range added {
		c.logger.Success("  + Added: %s", name)
	}
	for _, name := range removed {
		c.logger.Error("  - Removed: %s", name)
	}
}

// CallTool executes a tool and returns the raw result
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not connected")
	}

	req := mcp.CallToolRequest{
		Params: struct {
			Name      string    `json:"name"`
			Arguments any       `json:"arguments,omitempty"`
			Meta      *mcp.Meta `json:"_meta,omitempty"`
		}{
			Name:      name,
			Arguments: args,
		},
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.client.CallTool(timeoutCtx, req)
	if err != nil {
		return nil, fmt.Errorf("tool call failed: %w", err)
	}

	return result, nil
}

// CallToolSimple executes a tool and returns the first text content.
// The gateway wraps every operation response in a JSON envelope, so an
// IsError result still carries the envelope text; it is returned along
// with the error so callers can render the structured failure.
func (c *Client) CallToolSimple(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	result, err := c.CallTool(ctx, name, args)
	if err != nil {
		return "", err
	}

	var output []string
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			output = append(output, textContent.Text)
		}
	}

	text := ""
	if len(output) > 0 {
		text = output[0]
	}

	if result.IsError {
		return text, fmt.Errorf("tool %s returned an error", name)
	}

	return text, nil
}

// CallToolJSON executes a tool and returns the decoded JSON payload.
// Non-JSON text comes back unchanged.
func (c *Client) CallToolJSON(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	textResult, err := c.CallToolSimple(ctx, name, args)
	if err != nil {
		return nil, err
	}

	var jsonResult interface{}
	if err := json.Unmarshal([]byte(textResult), &jsonResult); err != nil {
		return textResult, nil
	}

	return jsonResult, nil
}

// Close closes the connection
func (c *Client) Close() error {
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	return nil
}

// PrettyJSON pretty-prints a value as indented JSON for display
func PrettyJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
