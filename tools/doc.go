// Package tools defines tool contracts and the search integrations agents call.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Search tools: duckduckgo_search (web), search_repositories (GitHub), search_gifs (Giphy).
//   - ToolError: compact JSON error body returned to the model as an is_error tool_result.
package tools
