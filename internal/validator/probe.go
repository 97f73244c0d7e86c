package validator

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// stdioProbe launches the installed plugin, performs the protocol
// handshake over stdio, and asks for its tool list. Closing the client
// kills the child process, so a plugin that never answers cannot outlive
// the probe.
func stdioProbe(ctx context.Context, installation *api.Installation) ([]api.Tool, error) {
	mcpClient, err := client.NewStdioMCPClient(installation.Command, installation.Env, installation.Args...)
	if err != nil {
		return nil, fmt.Errorf("start plugin process: %w", err)
	}
	defer func() {
		if err := mcpClient.Close(); err != nil {
			logging.Debug(subsystem, "Error closing plugin client: %v", err)
		}
	}()

	_, err = mcpClient.Initialize(ctx, mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: "2024-11-05",
			ClientInfo: mcp.Implementation{
				Name:    "openconductor",
				Version: "1.0.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("protocol handshake: %w", err)
	}

	listed, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	tools := make([]api.Tool, 0, len(listed.Tools))
	for _, tool := range listed.Tools {
		tools = append(tools, api.Tool{
			Name:        tool.Name,
			InputSchema: toolSchemaMap(tool.InputSchema),
		})
	}
	return tools, nil
}

// toolSchemaMap flattens the reported parameter schema into the neutral
// map shape stored on validation results.
func toolSchemaMap(schema mcp.ToolInputSchema) map[string]interface{} {
	out := map[string]interface{}{"type": schema.Type}
	if len(schema.Properties) > 0 {
		out["properties"] = schema.Properties
	}
	if len(schema.Required) > 0 {
		out["required"] = schema.Required
	}
	return out
}
