// Package playground serves the worker agents over HTTP for programmatic use.
//
// Routes live under /v1/playground; /mcp exposes the same agents as MCP tools
// over streamable HTTP. Conversations are kept in a memory.Store keyed by
// agent and session id.
package playground
