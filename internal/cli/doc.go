// Package cli provides the shared machinery behind the CLI commands
// that talk to a running gateway: endpoint resolution, connection
// checking, tool execution over MCP, and output formatting.
//
// Commands do not dispatch operations in-process. They connect to the
// gateway exactly like any other MCP agent, call the advertised
// operation tool, and render the response envelope. That keeps one code
// path for billing, caching, and rate limiting no matter where a
// request comes from.
//
// The ToolExecutor is the entry point: it resolves the endpoint from
// the --endpoint flag, the OPENCONDUCTOR_ENDPOINT environment variable,
// or the configuration directory, verifies the gateway is reachable,
// and executes one operation with table, json, or yaml output.
package cli
