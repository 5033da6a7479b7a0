// Command xemway-files browses and downloads the session files recorded by
// Xemway devices, and can serve the same operations over MCP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := Execute(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
