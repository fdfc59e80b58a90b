package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-flowlink/pkg/engine"
	"github.com/dd0wney/cluso-flowlink/pkg/graphql"
	"github.com/dd0wney/cluso-flowlink/pkg/health"
	"github.com/dd0wney/cluso-flowlink/pkg/logging"
	"github.com/dd0wney/cluso-flowlink/pkg/metrics"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve <scene.yaml>",
		Short: "Serve a scene over GraphQL",
		Long: `Builds the scene and serves it until interrupted:

  POST /graphql   queries and mutations (one request at a time)
  GET  /metrics   Prometheus text exposition
  GET  /health    event delivery and diagram size
  GET  /ready     config validity`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, reg, err := opts.load(args[0])
			if err != nil {
				return err
			}
			defer e.Close()

			schema, err := graphql.GenerateSchema(e)
			if err != nil {
				return err
			}
			cfg := e.Config()
			logger := logging.NewStderrLogger(cfg.Level()).With(logging.Component("server"))

			gql := graphql.NewGraphQLHandler(schema, logger)
			checker := newHealthChecker(e, gql)

			mux := http.NewServeMux()
			mux.Handle("/graphql", gql)
			mux.HandleFunc("/metrics", metricsHandler(reg, logger))
			mux.HandleFunc("/health", checker.HTTPHandler())
			mux.HandleFunc("/ready", checker.ReadinessHandler())

			server := &http.Server{
				Addr:         addr,
				Handler:      mux,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server starting", logging.String("addr", addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("server forced to shutdown", logging.Error(err))
				return err
			}
			logger.Info("server exited")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}

// newHealthChecker registers checks that read the engine under the GraphQL
// handler's lock.
func newHealthChecker(e *engine.Engine, gql *graphql.GraphQLHandler) *health.HealthChecker {
	hc := health.NewHealthChecker()
	hc.RegisterCheck("events", health.EventDeliveryCheck(e.DroppedEvents))
	hc.RegisterCheck("diagram", health.DiagramCheck(func() (health.Stats, error) {
		var stats health.Stats
		gql.Locked(func() {
			stats = health.Stats{
				Nodes:       len(e.Nodes()),
				Ports:       len(e.Ports("")),
				Connections: e.Registry().Len(),
				Cyclic:      e.HasCycle(),
				DragPhase:   e.Session().Snapshot().Phase(),
			}
		})
		return stats, nil
	}))
	hc.RegisterReadinessCheck("config", health.ErrorCheck(func() error {
		cfg := e.Config()
		return cfg.Validate()
	}))
	return hc
}

func metricsHandler(reg *metrics.Registry, logger logging.Logger) http.HandlerFunc {
	logger = logging.OrNop(logger)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		if err := reg.WriteText(w); err != nil {
			logger.Warn("failed to write metrics", logging.Error(err))
		}
	}
}
