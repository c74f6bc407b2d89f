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

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"go.uber.org/zap"

	"github.com/neomorfeo/dealflow/internal/adapter/fsm"
	handler "github.com/neomorfeo/dealflow/internal/adapter/http"
	oteladapter "github.com/neomorfeo/dealflow/internal/adapter/otel"
	riveradapter "github.com/neomorfeo/dealflow/internal/adapter/river"
	"github.com/neomorfeo/dealflow/internal/adapter/sqlite"
	"github.com/neomorfeo/dealflow/internal/app"
	"github.com/neomorfeo/dealflow/internal/config"
	"github.com/neomorfeo/dealflow/internal/logger"
)

// run wires every adapter, serves until ctx is cancelled, then shuts down
// the HTTP server, River and telemetry in that order. When reload is set,
// SIGHUP re-reads the configuration and applies its log level.
func run(ctx context.Context, cfg *config.Config, reload func() (*config.Config, error)) error {
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if reload != nil {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go reloadOnSignal(ctx, log, hup, reload)
	}

	// --- Observability ---
	providers, err := oteladapter.Setup(ctx, oteladapter.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Telemetry.Environment,
		Exporter:       cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		MetricInterval: cfg.Telemetry.MetricInterval,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Error("otel shutdown", zap.Error(err))
		}
	}()

	// --- Adapters (out) ---
	db, err := oteladapter.OpenDB(cfg.Database.Path, cfg.Database.BusyTimeoutMS)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("database: %w", err)
	}
	defer repo.Close()

	riverClient, err := riveradapter.Setup(ctx, db, log.Logger, cfg.River.MaxWorkers)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}
	outbox, err := oteladapter.NewTracingOutbox(riveradapter.NewOutbox(riverClient))
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	repo.SetOutbox(outbox)

	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("river start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			log.Error("river stop", zap.Error(err))
		}
	}()

	// --- Application ---
	svc := app.NewPipelineService(
		oteladapter.NewTracingRepository(repo),
		fsm.New(),
		app.WithLogger(log.Named("pipeline")),
	)
	if err := seedStages(ctx, svc, cfg); err != nil {
		return err
	}

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware(cfg.Telemetry.ServiceName, otelchi.WithChiRoutes(router)))
	router.Use(requestLogger(log.Logger))

	api := humachi.New(router, huma.DefaultConfig("dealflow", cfg.Telemetry.ServiceVersion))
	handler.Register(api, svc)

	// --- Server ---
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("dealflow listening", zap.String("addr", srv.Addr), zap.String("docs", "/docs"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("stopped")
	return nil
}

// reloadOnSignal applies the reloaded log level each time sig fires.
// A failed reload keeps the current level.
func reloadOnSignal(ctx context.Context, log *logger.Logger, sig <-chan os.Signal, reload func() (*config.Config, error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			cfg, err := reload()
			if err != nil {
				log.Error("config reload failed", zap.Error(err))
				continue
			}
			if err := log.SetLevel(cfg.Log.Level); err != nil {
				log.Error("invalid log level on reload", zap.String("level", cfg.Log.Level), zap.Error(err))
				continue
			}
			log.Info("log level set", zap.String("level", cfg.Log.Level))
		}
	}
}

// seedStages installs the configured funnel on an empty database.
func seedStages(ctx context.Context, svc *app.PipelineService, cfg *config.Config) error {
	stages := app.DefaultStages()
	if cfg.Pipeline.StagesFile != "" {
		var err error
		if stages, err = config.LoadStages(cfg.Pipeline.StagesFile); err != nil {
			return err
		}
	}
	if _, err := svc.SeedStages(ctx, stages); err != nil {
		return fmt.Errorf("seeding stages: %w", err)
	}
	return nil
}

// requestLogger logs one line per request with zap.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
