// Package main provides the hackmate-mcp binary, an MCP server for AI agents.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hackmate/hackmate/pkg/config"
	hmcp "github.com/hackmate/hackmate/pkg/ecosystem/mcp"
)

var version = "dev"

func main() {
	// stdout carries the protocol; diagnostics go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	s := hmcp.NewServer(version, &hmcp.Handlers{Config: cfg, Logger: logger})
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
