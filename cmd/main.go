package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/cinerec/internal/adapters/http/api"
	"github.com/okian/cinerec/internal/adapters/http/site"
	"github.com/okian/cinerec/internal/adapters/http/swagger"
	"github.com/okian/cinerec/internal/adapters/ranker"
	"github.com/okian/cinerec/internal/adapters/repository"
	app "github.com/okian/cinerec/internal/app"
	"github.com/okian/cinerec/internal/config"
	"github.com/okian/cinerec/internal/domain/ranking"
	"github.com/okian/cinerec/pkg/logger"
	"github.com/okian/cinerec/pkg/metrics"
)

// HTTP server timeout constants. writeTimeout leaves room for a slow
// ranking run.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	connectTimeout            = 10 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		os.Stderr.WriteString("failed to read .env: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Get().Fatal(ctx, "failed to load config", logger.Error(err))
	}
	if cfg.LogFormat != "" && cfg.LogFormat != "json" {
		if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
			logger.Get().Warn(ctx, "invalid log_format; keeping json", logger.String("log_format", cfg.LogFormat), logger.Error(err))
		}
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server exited with error", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run connects the store, serves HTTP until ctx is done and then shuts
// down the server, the worker pool and the store in that order.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	store, err := newStore(connectCtx, cfg, log)
	cancel()
	if err != nil {
		return err
	}

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithStore(store),
		app.WithRanker(newRanker(cfg, log)),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithPageLimits(cfg.DefaultPageLimit, cfg.MaxPageLimit),
		app.WithPopularLimit(cfg.PopularLimit),
		app.WithSearchLimit(cfg.SearchLimit),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close(context.Background())
		return err
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info(ctx, "shutting down server...")
	case runErr = <-serveErr:
		log.Error(ctx, "HTTP server failed", logger.Error(runErr))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "service shutdown failed", logger.Error(err))
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "store close failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return runErr
}

// newStore opens the configured catalog store. The mongo store is only
// returned once it answers a ping.
func newStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		if cfg.SeedFile == "" {
			log.Warn(ctx, "memory store without seed_file; catalog is empty")
			s, err := repository.NewMemoryStore(nil, nil, repository.WithMemoryLogger(log.Named("store")))
			if err != nil {
				return nil, err
			}
			return s, nil
		}
		s, err := repository.LoadMemoryStore(cfg.SeedFile, repository.WithMemoryLogger(log.Named("store")))
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "memory store loaded", logger.String("seed_file", cfg.SeedFile))
		return s, nil
	default:
		s, err := repository.NewMongoStore(ctx, cfg.MongoURI,
			repository.WithDatabase(cfg.MongoDatabase),
			repository.WithOperationTimeout(cfg.MongoTimeout()),
			repository.WithLogger(log.Named("store")),
		)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			log.Warn(ctx, "could not ensure indexes", logger.Error(err))
		}
		return s, nil
	}
}

func newRanker(cfg *config.Config, log logger.Logger) ranking.Ranker {
	return ranker.New(
		ranker.WithExecutable(cfg.RankerExecutable),
		ranker.WithWorkdir(cfg.RankerWorkdir),
		ranker.WithScript(ranking.ModeUser, cfg.RankerUserScript),
		ranker.WithScript(ranking.ModeItem, cfg.RankerItemScript),
		ranker.WithTimeout(cfg.RankerTimeout()),
		ranker.WithBreaker(cfg.RankerBreakerThreshold, cfg.RankerBreakerCooldown()),
		ranker.WithLogger(log.Named("ranker")),
	)
}

// newHandler builds the router with the landing page, API docs and the
// business API.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) http.Handler {
	r := api.NewRouter(api.RouterConfig{
		CORSOrigins:       cfg.CORSOrigins(),
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow(),
		Logger:            log.Named("http"),
	})
	site.Register(ctx, r)
	swagger.Register(ctx, r)
	api.NewServer(svc, svc, api.WithLogger(log.Named("http"))).Register(ctx, r)
	return r
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics mirrors pool gauges from the service stats.
func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	stats := svc.GetStats(ctx)

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if queueSize, ok := stats["queueSize"].(int); ok {
		metrics.UpdateQueueCapacity(queueSize)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
