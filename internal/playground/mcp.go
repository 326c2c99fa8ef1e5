package playground

import (
	"context"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	mcpServerName    = "concept-tutor-playground"
	mcpServerVersion = "1.0.0"
)

// MCPToolName maps an agent id to an MCP tool name, e.g. web-agent -> web_agent.
func MCPToolName(agentID string) string {
	return strings.ReplaceAll(agentID, "-", "_")
}

// NewMCPServer registers one tool per served agent.
func NewMCPServer(s *Server) *server.MCPServer {
	ms := server.NewMCPServer(mcpServerName, mcpServerVersion, server.WithToolCapabilities(false))
	for _, info := range s.Agents() {
		agentID := info.AgentID
		desc := info.Name
		if info.Role != "" {
			desc += ": " + info.Role
		}
		tool := mcp.NewTool(MCPToolName(agentID),
			mcp.WithDescription(desc),
			mcp.WithString("message",
				mcp.Required(),
				mcp.Description("The message to send to the agent"),
			),
			mcp.WithString("session_id",
				mcp.Description("Continue an existing session; omit to start a new one"),
			),
		)
		ms.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			message, err := request.RequireString("message")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			resp, err := s.Run(ctx, agentID, request.GetString("session_id", ""), message)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(resp.Content), nil
		})
	}
	return ms
}

// NewMCPHandler serves NewMCPServer(s) over streamable HTTP.
func NewMCPHandler(s *Server) http.Handler {
	return server.NewStreamableHTTPServer(NewMCPServer(s))
}
