package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/parley/internal/adapters/evalstore"
	"github.com/okian/parley/internal/adapters/eventstore"
	"github.com/okian/parley/internal/adapters/http/api"
	"github.com/okian/parley/internal/adapters/judgeclient"
	"github.com/okian/parley/internal/adapters/textgen"
	app "github.com/okian/parley/internal/app"
	"github.com/okian/parley/internal/config"
	"github.com/okian/parley/internal/domain/keyedcache"
	"github.com/okian/parley/internal/domain/schema"
	"github.com/okian/parley/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Interview schema; the only shape this process serves for now.
	// Follow-up limits come from config so they can be recalibrated
	// without a rebuild.
	sch := schema.Default(
		schema.WithMaxFollowUps(cfg.MaxFollowUps),
		schema.WithFollowUpBudget(cfg.FollowUpBudget),
	)

	// Open storage and build the stores over one connection.
	db, err := eventstore.Open(cfg.DBPath)
	if err != nil {
		os.Stderr.WriteString("failed to open database: " + err.Error() + "\n")
		return
	}
	defer func() { _ = db.Close() }()

	events, err := eventstore.NewSQLite(db)
	if err != nil {
		os.Stderr.WriteString("failed to init event store: " + err.Error() + "\n")
		return
	}
	evals, err := evalstore.NewSQLite(db)
	if err != nil {
		os.Stderr.WriteString("failed to init evaluation store: " + err.Error() + "\n")
		return
	}

	// Service options; the judge path stays dark without an endpoint.
	opts := []app.Option{
		app.WithLogger(loggerInstance),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.EvalQueueSize),
		app.WithCache(keyedcache.New(
			keyedcache.WithTTL(time.Duration(cfg.CacheTTLSeconds)*time.Second),
			keyedcache.WithMaxSize(cfg.CacheMaxSize),
		)),
	}
	if cfg.JudgeURL != "" {
		opts = append(opts, app.WithJudgeClient(judgeclient.NewHTTP(
			cfg.JudgeURL,
			judgeclient.WithTimeout(time.Duration(cfg.JudgeTimeoutMS)*time.Millisecond),
		)))
	}

	svc := app.New(sch, events, evals, textgen.NewStatic(), opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// HTTP mux and routes.
	mux := http.NewServeMux()
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}
