package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jjspscl/hunt-st-assessment/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the task tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer a.Close()

		return mcpserver.ServeStdio(a.svc.Tools(), version)
	},
}
