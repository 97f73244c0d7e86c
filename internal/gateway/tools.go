package gateway

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// Canonical tool names before the configured prefix is applied.
const (
	toolSearch   = "search_plugins"
	toolConfig   = "get_plugin_config"
	toolValidate = "validate_plugin"
	toolDeploy   = "deploy_plugin"
)

// Argument names shared by the schemas and the handlers.
const (
	argQuery          = "query"
	argFilters        = "filters"
	argSlug           = "slug"
	argCredential     = "credential"
	argIdempotencyKey = "idempotency_key"
)

var slugProperty = map[string]interface{}{
	"type":        "string",
	"description": "Registry identifier of the plugin, for example acme/web-scraper.",
}

var idempotencyKeyProperty = map[string]interface{}{
	"type":        "string",
	"description": "Optional caller-chosen key. Reusing a key makes retries of this exact request free instead of charged again.",
}

// buildTools returns the four operation tools with their schemas and
// handlers, named with the configured prefix.
func (s *Server) buildTools() []mcpserver.ServerTool {
	return []mcpserver.ServerTool{
		{
			Tool: mcp.Tool{
				Name:        s.toolName(toolSearch),
				Description: "Search the plugin registry. Identical searches are served from cache without a new charge while the entry is fresh.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						argQuery: map[string]interface{}{
							"type":        "string",
							"description": "Free-text search over plugin names and descriptions.",
						},
						argFilters: map[string]interface{}{
							"type":                 "object",
							"description":          "Optional exact-match filters, for example {\"category\": \"scraping\"}.",
							"additionalProperties": map[string]interface{}{"type": "string"},
						},
						argIdempotencyKey: idempotencyKeyProperty,
					},
					Required: []string{argQuery},
				},
			},
			Handler: s.handleOperation(api.EventSearch),
		},
		{
			Tool: mcp.Tool{
				Name:        s.toolName(toolConfig),
				Description: "Fetch a plugin's descriptor together with its latest validation verdict and deployment status, when either exists.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						argSlug:           slugProperty,
						argIdempotencyKey: idempotencyKeyProperty,
					},
					Required: []string{argSlug},
				},
			},
			Handler: s.handleOperation(api.EventConfig),
		},
		{
			Tool: mcp.Tool{
				Name:        s.toolName(toolValidate),
				Description: "Run the validation pipeline against a plugin in an isolated sandbox and publish the verdict. A failed verdict is a successful, billed operation.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						argSlug:           slugProperty,
						argIdempotencyKey: idempotencyKeyProperty,
					},
					Required: []string{argSlug},
				},
			},
			Handler: s.handleOperation(api.EventValidate),
		},
		{
			Tool: mcp.Tool{
				Name:        s.toolName(toolDeploy),
				Description: "Deploy a verified plugin to the managed hosting platform. The credential authenticates the hosting account; it is never logged or stored, only a one-way fingerprint is kept for audit.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						argSlug: slugProperty,
						argCredential: map[string]interface{}{
							"type":        "string",
							"description": "Hosting platform service credential of the deploying account.",
						},
						argIdempotencyKey: idempotencyKeyProperty,
					},
					Required: []string{argSlug, argCredential},
				},
			},
			Handler: s.handleOperation(api.EventDeploy),
		},
	}
}

// toolName applies the configured prefix, if any.
func (s *Server) toolName(name string) string {
	if s.config.ToolPrefix == "" {
		return name
	}
	return s.config.ToolPrefix + "_" + name
}

// handleOperation returns the MCP handler for one operation. The handler
// extracts the arguments, dispatches into the router, and returns the full
// response envelope as JSON text. An envelope with success false is marked
// as an error result so agents notice without parsing.
func (s *Server) handleOperation(event api.Event) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		request, opErr := requestFromArgs(event, args)
		if opErr != nil {
			logging.Debug(subsystem, "Rejected %s arguments: %v", event, redactArgs(args))
			return mcp.NewToolResultError(opErr.Message), nil
		}

		router := api.GetRouter()
		if router == nil {
			return mcp.NewToolResultError("operation router not available"), nil
		}

		resp := router.Execute(ctx, *request)
		payload, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			logging.Error(subsystem, err, "Could not serialize %s response", event)
			return mcp.NewToolResultError("could not serialize the response"), nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(payload))},
			IsError: !resp.Success,
		}, nil
	}
}

// requestFromArgs extracts a typed request from raw tool arguments. Only
// presence and primitive types are checked here; slug shape and credential
// syntax belong to the router.
func requestFromArgs(event api.Event, args map[string]interface{}) (*api.Request, *api.OperationError) {
	req := &api.Request{Event: event}

	if event == api.EventSearch {
		query, ok := args[argQuery].(string)
		if !ok || query == "" {
			return nil, api.NewOperationError(api.ErrorKindInput, "query is required")
		}
		req.Query = query

		if raw, present := args[argFilters]; present {
			rawMap, ok := raw.(map[string]interface{})
			if !ok {
				return nil, api.NewOperationError(api.ErrorKindInput, "filters must be an object of string values")
			}
			filters := make(map[string]string, len(rawMap))
			for name, value := range rawMap {
				text, ok := value.(string)
				if !ok {
					return nil, api.NewOperationError(api.ErrorKindInput, "filters must be an object of string values")
				}
				filters[name] = text
			}
			if len(filters) > 0 {
				req.Filters = filters
			}
		}
	} else {
		slug, ok := args[argSlug].(string)
		if !ok || slug == "" {
			return nil, api.NewOperationError(api.ErrorKindInput, "slug is required")
		}
		req.Slug = slug
	}

	if event == api.EventDeploy {
		credential, ok := args[argCredential].(string)
		if !ok || credential == "" {
			return nil, api.NewOperationError(api.ErrorKindCredential, "credential is required")
		}
		req.Credential = credential
	}

	if key, ok := args[argIdempotencyKey].(string); ok {
		req.IdempotencyKey = key
	}

	return req, nil
}

// redactArgs copies the arguments with the credential masked, for
// diagnostics. The raw map must never reach a log line.
func redactArgs(args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for name, value := range args {
		if name == argCredential {
			out[name] = "[redacted]"
			continue
		}
		out[name] = value
	}
	return out
}
