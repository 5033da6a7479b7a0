package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/xemway/xemway-files/internal/mcp"
	"github.com/xemway/xemway-files/internal/mcp/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the listing and download tools over MCP (stdio)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sess, err := login(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		server, err := mcp.NewServer(tools.NewDeps(sess.Client, cfg), mcp.WithBuiltinTools())
		if err != nil {
			return err
		}

		slog.Info("starting xemway MCP server on stdio")
		if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		slog.Info("server stopped")
		return nil
	},
}
