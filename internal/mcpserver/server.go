// Package mcpserver exposes the task tool registry over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jjspscl/hunt-st-assessment/internal/tools"
)

const instructions = `Task tracker tools. Create tasks with createTasks, attach notes with attachDetails
(one call for all new tasks) or attachDetail, and complete tasks with completeTasks.`

// New builds an MCP server with one MCP tool per registry tool. Calls go
// through the registry, so the same argument checks and policy guard apply.
func New(registry *tools.Registry, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"taskchat",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	for _, def := range registry.Definitions() {
		s.AddTool(toolFor(def), Handler(registry, def.Name))
	}
	return s
}

// ServeStdio serves registry tools on stdin/stdout until the input closes.
func ServeStdio(registry *tools.Registry, version string) error {
	return server.ServeStdio(New(registry, version))
}

func toolFor(def tools.Definition) mcp.Tool {
	return mcp.NewToolWithRawSchema(def.Name, def.Description, def.Parameters)
}

// Handler adapts one registry tool to an MCP tool handler. Tool failures are
// reported as error results, never as protocol errors.
func Handler(registry *tools.Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		out, err := registry.Execute(ctx, name, args)
		if err != nil {
			if errors.Is(err, tools.ErrDenied) || errors.Is(err, tools.ErrInvalidArguments) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", name, err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}
