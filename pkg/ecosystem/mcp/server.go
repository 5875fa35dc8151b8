// Package mcp exposes hackmate workflows to AI agents over the Model Context
// Protocol.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server with hackmate tools registered.
func NewServer(version string, h *Handlers) *server.MCPServer {
	s := server.NewMCPServer(
		"hackmate",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("hackmate/validate",
			mcp.WithDescription("Validate a hackmate workflow YAML file"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the workflow YAML file")),
		),
		h.HandleValidate,
	)

	s.AddTool(
		mcp.NewTool("hackmate/plan",
			mcp.WithDescription("Show the commands a workflow would run against a target, without running anything"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the workflow YAML file")),
			mcp.WithString("target", mcp.Required(), mcp.Description("Target host or domain")),
			mcp.WithBoolean("execute", mcp.Description("Evaluate the safety gate as if intrusive steps were confirmed")),
		),
		h.HandlePlan,
	)

	s.AddTool(
		mcp.NewTool("hackmate/run",
			mcp.WithDescription("Run a hackmate workflow against a target. Only run against targets you are authorized to test."),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the workflow YAML file")),
			mcp.WithString("target", mcp.Required(), mcp.Description("Target host or domain")),
			mcp.WithBoolean("confirm_scope", mcp.Required(), mcp.Description("Confirm the target is in scope; must be true")),
			mcp.WithBoolean("execute", mcp.Description("Allow intrusive steps such as port scans (default false)")),
		),
		h.HandleRun,
	)

	s.AddTool(
		mcp.NewTool("hackmate/schema",
			mcp.WithDescription("Export the hackmate workflow JSON Schema"),
		),
		h.HandleSchema,
	)

	return s
}
