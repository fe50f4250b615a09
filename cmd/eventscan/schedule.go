package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventscan/internal/scan"
	"eventscan/internal/worker"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newScheduleCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the scan once a day and serve metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, logCloser, err := loadConfigAndLogger(*configPath)
			if err != nil {
				return err
			}
			defer logCloser.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a := buildApp(ctx, cfg, logger)
			defer a.Close()

			metricsServer := startMetricsServer(cfg.Monitoring.PrometheusPort, logger)

			hour, minute, err := cfg.Schedule.Clock()
			if err != nil {
				return err
			}

			job := func(ctx context.Context) {
				inv := scan.Invocation{RequestID: uuid.NewString()}
				if deadline, ok := ctx.Deadline(); ok {
					inv.Deadline = deadline
				}
				resp := a.handler.Handle(ctx, scan.Trigger{}, inv)
				logger.Info().Int("status", resp.StatusCode).Str("request_id", inv.RequestID).Msg("Scheduled run answered")
			}

			worker.NewDailyScheduler(hour, minute, cfg.Schedule.Timeout, job, logger).Start(ctx)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("Metrics server shutdown failed")
			}
			return nil
		},
	}
}

func startMetricsServer(port int, logger *zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Int("port", port).Msg("Metrics server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return srv
}
