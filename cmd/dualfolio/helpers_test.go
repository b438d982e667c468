package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/dualfolio/dualfolio/internal/infrastructure/container"
	"github.com/dualfolio/dualfolio/internal/infrastructure/system"
)

func newTestCommandContext(t *testing.T, cfg *system.Config, opts ...func(*container.Options)) *CommandContext {
	t.Helper()

	options := container.Options{
		Config: cfg,
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&options)
	}

	c, err := container.New(options)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return &CommandContext{
		Container: c,
		Logger:    options.Logger,
		Context:   context.Background(),
	}
}

// execute runs cmd with args and returns what it printed.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
