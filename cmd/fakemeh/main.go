package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/fakemeh/internal/adapters/http/api"
	"github.com/okian/fakemeh/internal/adapters/http/swagger"
	"github.com/okian/fakemeh/internal/bootstrap"
	"github.com/okian/fakemeh/internal/config"
	"github.com/okian/fakemeh/pkg/logger"
	"github.com/okian/fakemeh/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	metricsInterval   = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "fakemeh exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	loggerInstance := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Configure(metricsOptions(cfg)...)

	app, err := bootstrap.New(ctx, cfg, loggerInstance)
	if err != nil {
		return err
	}
	app.Session.Start(ctx)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			loggerInstance.Error(ctx, "shutdown failed", logger.Error(err))
		}
	}()

	go startSessionMetricsUpdater(ctx, app)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, app, cfg),
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	loggerInstance.Info(ctx, "server stopped")
	return nil
}

func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithCustomLabels(cfg.MetricsLabels),
		metrics.WithHistogramBuckets(cfg.MetricsBuckets),
	}
}

// newMux registers the docs and business routes. Responses for /analyze
// are held open until the verdict arrives, so the server sets no write
// timeout and the API bounds the wait instead.
func newMux(ctx context.Context, app *bootstrap.App, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(app.Session, app.Backend, app.Backend,
		api.WithWaitTimeout(cfg.BackendTimeout()+cfg.RevealDelay()+readTimeout),
		api.WithLogger(logger.Named("api")),
	).Register(ctx, mux)
	return mux
}

// startSessionMetricsUpdater keeps the progression gauges in step with the
// session between submissions.
func startSessionMetricsUpdater(ctx context.Context, app *bootstrap.App) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := app.Session.Snapshot()
			p := snap.Progression
			metrics.UpdateProgression(p.Points, p.Streak, p.ChecksCompleted)
			metrics.UpdateSessionPhase(int(snap.Phase))
		}
	}
}
