package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cohort-retention/internal/config"
	"cohort-retention/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Rebuild the report periodically and expose Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			s := &server{
				cfg:      a.cfg,
				logger:   a.logger,
				metrics:  observability.NewMetrics("", reg),
				gatherer: reg,
				now:      time.Now,
			}
			return s.Run(ctx)
		},
	}
	cmd.Flags().String("metrics-addr", ":9090", "Address for the /metrics and /health endpoints")
	cmd.Flags().Duration("interval", time.Hour, "Time between report runs")
	return cmd
}

// server reruns the report on a ticker. Every run starts from empty state.
type server struct {
	cfg      *config.Config
	logger   *logrus.Logger
	metrics  *observability.Metrics
	gatherer prometheus.Gatherer
	now      func() time.Time
}

// Run serves metrics and runs reports until ctx is cancelled.
func (s *server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler(s.gatherer))

	httpServer := &http.Server{
		Addr:              s.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	httpErr := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.cfg.MetricsAddr).Info("starting metrics server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	err := s.schedule(ctx, httpErr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		s.logger.WithError(shutdownErr).Warn("metrics server shutdown")
	}
	s.logger.Info("shutdown complete")
	return err
}

func (s *server) schedule(ctx context.Context, httpErr <-chan error) error {
	s.logger.WithField("interval", s.cfg.Interval.String()).Info("starting report scheduler")
	s.runOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-httpErr:
			return err
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce runs one report. Failures are logged and counted; the scheduler keeps going.
func (s *server) runOnce(ctx context.Context) {
	res, err := runReport(ctx, s.cfg, s.logger, s.metrics, s.now())
	if err != nil {
		if ctx.Err() == nil {
			s.logger.WithError(err).Error("scheduled report failed")
		}
		return
	}
	s.logger.WithFields(logrus.Fields{
		"run_id":  res.RunID,
		"cohorts": res.Report.DataSummary.Cohorts,
	}).Debug("scheduled report done")
}
