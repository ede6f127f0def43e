package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/web3-frozen/yield-engine/internal/handler"
	"github.com/web3-frozen/yield-engine/internal/middleware"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := getServices()
		cfg := s.cfg

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      newRouter(s),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			s.logger.Info().Str("port", cfg.Server.Port).Strs("sources", s.aggregator.SourceNames()).Msg("server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		s.logger.Info().Msg("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func newRouter(s *services) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(s.logger))
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(s.cfg.Server.FrontendOrigin))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handler.Health())
	r.Get("/readyz", handler.Ready(s.readiness()))

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", handler.Analyze(s.analyzer))
		r.Get("/transactions/{address}", handler.Transactions(s.history))
		r.Get("/yields", handler.Yields(s.aggregator))
		r.Post("/graph", handler.GraphProxy(s.graph, s.logger))
	})
	return r
}
