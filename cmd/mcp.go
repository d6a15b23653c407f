package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/Benny93/riskgraph/internal/storage"
	"github.com/Benny93/riskgraph/mcp"
)

// MCPCmd starts the MCP server on stdin and stdout.
type MCPCmd struct{}

// Run executes the MCP command.
func (c *MCPCmd) Run(env *Env) error {
	ctx, stop := signalContext()
	defer stop()

	var history mcp.RunHistory = storage.NewMemoryBackend()
	store, err := env.openStore(true)
	if err != nil {
		env.Log.WithError(err).Info("Run history unavailable")
	} else {
		defer func() { _ = store.Close() }()
		history = store
	}

	server := mcp.NewServer(env.runner(time.Time{}), history)
	err = server.ServeStdio(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
