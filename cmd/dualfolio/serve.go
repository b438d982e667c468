package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dualfolio/dualfolio/internal/application/ports"
	"github.com/dualfolio/dualfolio/internal/infrastructure/ratelimit"
)

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the portfolio API",
		Long: `Serve the portfolio HTTP API until interrupted.

Every visitor gets a session cookie; the persona switch of each session is
persisted under that session in the configured storage backend, so returning
visitors land on the persona they left. Idle sessions are closed periodically.`,
		Example: `  dualfolio serve
  dualfolio serve --addr :8080 --storage sqlite --db /var/lib/dualfolio/dualfolio.db`,
		Args: cobra.NoArgs,
		RunE: withContainer(func(ctx *CommandContext, _ *cobra.Command, _ []string) error {
			sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(sigCtx, ctx)
		}),
	}

	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	mustBindFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

// runServe runs the HTTP server, the idle session sweeper and the rate
// limiter pruning until ctx is cancelled or one of them fails.
func runServe(ctx context.Context, cc *CommandContext) error {
	cfg := cc.Container.SystemConfig()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cc.Container.Server().Serve(gctx, ln)
	})
	g.Go(func() error {
		return cc.Container.Sessions().Run(gctx, cfg.Session.SweepInterval)
	})
	g.Go(func() error {
		return pruneRateLimiter(gctx, cc.Container.RateLimiter(), cc.Container.Clock(), cfg.Contact.RateLimit.Window, cc.Logger)
	})

	cc.Logger.Info("dualfolio started",
		"addr", ln.Addr().String(),
		"storage", cfg.Storage.Backend,
		"personas", len(cc.Container.PersonaResolver().GetAllPersonaIDs()))

	return g.Wait()
}

// pruneRateLimiter drops clients whose attempts have all left the window.
func pruneRateLimiter(ctx context.Context, limiter *ratelimit.SlidingWindow, clock ports.Clock, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := limiter.Prune(clock.Now()); n > 0 {
				logger.Debug("pruned rate limiter clients", "count", n)
			}
		}
	}
}
