// Package gateway exposes the operation router as an MCP server, so
// protocol-speaking agents drive the system with the same protocol it
// validates plugins against.
//
// Four tools are registered, one per operation: search_plugins,
// get_plugin_config, validate_plugin, and deploy_plugin, each behind the
// configured name prefix. Tool handlers extract typed arguments, dispatch
// through api.GetRouter, and return the full response envelope as JSON
// text. An envelope with success false is additionally flagged IsError so
// agents notice failures without parsing.
//
// The server speaks one of three transports selected by configuration:
// stdio, SSE, or streamable HTTP. The deploy tool's credential argument is
// masked from every diagnostic; it exists only in the in-flight request.
package gateway
