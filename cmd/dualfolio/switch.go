package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dualfolio/dualfolio/internal/application/services"
	"github.com/dualfolio/dualfolio/internal/infrastructure/httpapi"
	"github.com/dualfolio/dualfolio/internal/infrastructure/system"
)

const transitionPollInterval = 20 * time.Millisecond

func init() {
	rootCmd.AddCommand(newSwitchCmd())
}

func newSwitchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "switch",
		Short: "Inspect or flip a visitor's persona switch",
		Long: `Inspect or flip the persisted persona switch of a visitor session.

Sessions are identified by the value of the dualfolio_session cookie. Switch
state only outlives the command with the sqlite storage backend.`,
	}
	cmd.AddCommand(newSwitchStatusCmd(), newSwitchToggleCmd())
	return cmd
}

func newSwitchStatusCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:     "status",
		Short:   "Show the persona a session currently sees",
		Example: `  dualfolio switch status --storage sqlite --session 3f0c...`,
		Args:    cobra.NoArgs,
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, _ []string) error {
			sess, err := openSession(ctx, sessionID)
			if err != nil {
				return err
			}
			return printSwitch(cmd.OutOrStdout(), sess)
		}),
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "visitor session id (required)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newSwitchToggleCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Flip a session to the opposite persona",
		Long: `Flip a session to the opposite persona and wait for the transition to
finish. Without --session a new session is created and its id printed.`,
		Example: `  dualfolio switch toggle --storage sqlite --session 3f0c...`,
		Args:    cobra.NoArgs,
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, _ []string) error {
			sess, err := openSession(ctx, sessionID)
			if err != nil {
				return err
			}

			started, err := sess.Controller.Toggle()
			if err != nil {
				return err
			}
			if !started {
				return fmt.Errorf("a persona switch is already in progress")
			}

			cfg := ctx.Container.SystemConfig()
			deadline := cfg.Transition.CoverDelay + cfg.Transition.RevealDelay + 5*time.Second
			if err := waitForTransition(ctx.Context, sess.Controller, deadline); err != nil {
				return err
			}

			if announcement := sess.Live.Last(); announcement != "" {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), announcement); err != nil {
					return err
				}
			}
			return printSwitch(cmd.OutOrStdout(), sess)
		}),
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "visitor session id (default: a new session)")
	return cmd
}

// openSession loads a visitor session. Ids that are not uuids are rejected so
// a typo does not silently address a fresh session.
func openSession(ctx *CommandContext, sessionID string) (*httpapi.Session, error) {
	if sessionID != "" {
		if _, err := uuid.Parse(sessionID); err != nil {
			return nil, fmt.Errorf("invalid session id %q: %w", sessionID, err)
		}
	}
	if ctx.Container.SystemConfig().Storage.Backend == system.BackendMemory {
		ctx.Logger.Warn("memory storage backend: switch state is discarded when the command exits")
	}
	return ctx.Container.Sessions().Acquire(ctx.Context, sessionID)
}

// waitForTransition polls until the controller is idle again.
func waitForTransition(ctx context.Context, controller *services.SwitchController, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(transitionPollInterval)
	defer ticker.Stop()

	for {
		state, err := controller.State()
		if err != nil {
			return err
		}
		if !state.IsTransitioning {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("persona switch did not finish: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func printSwitch(w io.Writer, sess *httpapi.Session) error {
	state, err := sess.Controller.State()
	if err != nil {
		return err
	}
	persona, err := sess.Controller.CurrentPersona()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "session:  %s\npersona:  %s (%s)\nswitch:   %t\ntheme:    %s\n",
		sess.ID, persona.Name, persona.ID, state.IsSwitchOn, state.Theme())
	return err
}
