package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server with missionseq tools registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"missionseq",
		version,
		server.WithToolCapabilities(true),
	)

	// Register tools
	s.AddTool(
		mcp.NewTool("missionseq/validate",
			mcp.WithDescription("Validate a mission YAML file and compile its sequence"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the mission YAML file")),
		),
		HandleValidate,
	)

	s.AddTool(
		mcp.NewTool("missionseq/run",
			mcp.WithDescription("Run a mission to completion and return its status, reports and final variables"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the mission YAML file")),
			mcp.WithObject("vars", mcp.Description("Variable overrides, name to value")),
			mcp.WithNumber("max_ticks", mcp.Description("Tick limit for this run (optional)")),
		),
		HandleRun,
	)

	s.AddTool(
		mcp.NewTool("missionseq/show",
			mcp.WithDescription("Render a mission's control flow as a diagram"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the mission YAML file")),
			mcp.WithString("format", mcp.Description("Diagram format: mermaid, ascii or tree (default mermaid)")),
		),
		HandleShow,
	)

	s.AddTool(
		mcp.NewTool("missionseq/test",
			mcp.WithDescription("Run scenario tests for a mission"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the mission YAML file")),
			mcp.WithString("scenario", mcp.Description("Run only the named scenario (optional)")),
		),
		HandleTest,
	)

	s.AddTool(
		mcp.NewTool("missionseq/schema",
			mcp.WithDescription("Export the mission/v0 JSON Schema"),
		),
		HandleSchema,
	)

	return s
}
