package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/event-planner/internal/api"
	"github.com/sells-group/event-planner/internal/plan"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for the planner UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		for _, mode := range []string{"serve", "discover"} {
			if err := cfg.Validate(mode); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		pacer := newPacer()
		policy := newPolicy()
		client := newLLM(pacer, policy)
		orch, err := newDiscovery(client, pacer, policy, st)
		if err != nil {
			return err
		}

		deps := api.Deps{
			Planner:    newPlanner(client),
			Reviser:    plan.NewReviser(client),
			Discoverer: orch,
			Store:      st,
		}
		if cfg.Validate("invite") == nil {
			deps.Inviter = newInviter(st, client)
		} else {
			zap.L().Warn("smtp not configured, invitation route disabled")
		}

		go sweepCache(ctx, st)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.New(deps, api.WithAllowedOrigins(cfg.Server.AllowedOrigins)).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

type expirer interface {
	DeleteExpiredDiscoveries(ctx context.Context) (int, error)
}

// sweepCache drops expired discovery results once an hour until ctx ends.
func sweepCache(ctx context.Context, st expirer) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := st.DeleteExpiredDiscoveries(ctx)
			if err != nil {
				zap.L().Warn("cache sweep failed", zap.Error(err))
				continue
			}
			zap.L().Debug("cache sweep", zap.Int("deleted", n))
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
