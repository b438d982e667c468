package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dualfolio/dualfolio/internal/infrastructure/container"
	"github.com/dualfolio/dualfolio/internal/infrastructure/system"
)

// CommandContext provides common command dependencies.
type CommandContext struct {
	Container *container.Container
	Logger    *slog.Logger
	Context   context.Context
}

// CommandHandler is a function that executes with initialized dependencies.
type CommandHandler func(*CommandContext, *cobra.Command, []string) error

// withContainer wraps a command handler with container initialization:
// configuration decoding, dependency injection and teardown.
//
// Usage:
//
//	cmd := &cobra.Command{
//	    Use: "list",
//	    RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
//	        return printPersonas(cmd.OutOrStdout(), ctx.Container.PersonaResolver().GetAllPersonas())
//	    }),
//	}
func withContainer(handler CommandHandler) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := system.FromViper(viper.GetViper())
		if err != nil {
			return err
		}

		logger := slog.Default()
		c, err := container.New(container.Options{
			Config: cfg,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer func() {
			if closeErr := c.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("failed to release resources: %w", closeErr)
			}
		}()

		return handler(&CommandContext{
			Container: c,
			Logger:    logger,
			Context:   cmd.Context(),
		}, cmd, args)
	}
}
