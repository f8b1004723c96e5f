package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/obentoo/nugetwatch/internal/common/logger"
	"github.com/obentoo/nugetwatch/internal/metrics"
	"github.com/obentoo/nugetwatch/internal/schedule"
	"github.com/obentoo/nugetwatch/internal/watch"
	"github.com/spf13/cobra"
)

// daemonRunNow triggers one invocation at start-up
var daemonRunNow bool

const shutdownTimeout = 10 * time.Second

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Check the package on a cron schedule",
	Long: `Run until interrupted, checking the package on the configured six-field
cron schedule (seconds first). When metrics_addr is set, Prometheus metrics
are served on /metrics at that address.

Examples:
  nugetwatch daemon
  nugetwatch daemon --run-now
  NUGETWATCH_SCHEDULE="0 */15 * * * *" nugetwatch daemon`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonRunNow, "run-now", false, "Run one check immediately on start")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	w, store, err := newWatcher(ctx, cfg, watch.WithRecorder(m))
	if err != nil {
		return err
	}
	defer store.Close()

	sched, err := schedule.New(ctx, cfg.Schedule, w, schedule.WithRunNow(daemonRunNow))
	if err != nil {
		return err
	}

	var srv *http.Server
	serveErr := make(chan error, 1)
	if cfg.MetricsAddr != "" {
		srv = newMetricsServer(cfg.MetricsAddr, m)
		go func() {
			logger.Info("Serving metrics on %s/metrics", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	sched.Start()
	if next, err := sched.NextRun(); err == nil {
		logger.Info("Watching %s, next check at %s", w.PackageID(), next.Format(time.RFC3339))
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err = <-serveErr:
		logger.Error("metrics server failed: %v", err)
	}

	if stopErr := sched.Stop(); stopErr != nil {
		logger.Warn("scheduler shutdown: %v", stopErr)
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("metrics server shutdown: %v", shutdownErr)
		}
	}
	return err
}

func newMetricsServer(addr string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
