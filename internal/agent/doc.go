// Package agent implements the MCP client side of the gateway: a
// connection wrapper used by the CLI commands and an interactive REPL
// for exploring the gateway's tools by hand.
//
// The Client speaks MCP over SSE or streamable-http, performs the
// protocol handshake, caches the advertised tool list, and refreshes it
// when the gateway announces a change. Operation helpers resolve tools
// by their canonical suffix (search_plugins, get_plugin_config,
// validate_plugin, deploy_plugin) so callers work against any
// configured tool prefix.
//
// The REPL adds readline-based line editing with tab completion and
// persistent history, plus shorthand commands for the four gateway
// operations. Credentials for deploy are read without echo and are
// never written to the history file.
package agent
