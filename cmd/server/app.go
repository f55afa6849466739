package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/config"
	"github.com/otakuparshva/ai-recruitment/internal/handlers"
	"github.com/otakuparshva/ai-recruitment/internal/middleware"
	"github.com/otakuparshva/ai-recruitment/internal/processor"
	"github.com/otakuparshva/ai-recruitment/internal/repositories"
	"github.com/otakuparshva/ai-recruitment/internal/store"
	"github.com/otakuparshva/ai-recruitment/internal/usecases"
	"github.com/otakuparshva/ai-recruitment/pkg/logger"
)

// App holds every long-lived component and owns their start/stop order.
type App struct {
	config  *config.Config
	logger  *zap.Logger
	dialer  store.Dialer
	metrics *store.Metrics

	registry    *prometheus.Registry
	manager     *store.Manager
	provisioner *store.Provisioner
	repos       *repositories.Repositories
	processor   *processor.OrderedProcessor
	rateLimiter *middleware.RateLimiter
	server      *http.Server

	initOnce sync.Once
	initErr  error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	shutdownOnce sync.Once
}

// NewApp creates an application for cfg. dialer is store.MongoDialer{} outside of tests.
func NewApp(cfg *config.Config, dialer store.Dialer, log *zap.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		config: cfg,
		dialer: dialer,
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Initialize connects to the store, provisions indexes and builds the HTTP server.
// A store that cannot be reached within the connect budget yields a ConnectionFatal error.
func (a *App) Initialize(ctx context.Context) error {
	a.initOnce.Do(func() {
		a.initErr = a.doInitialize(ctx)
		if a.initErr != nil {
			a.release(ctx)
		}
	})
	return a.initErr
}

func (a *App) doInitialize(ctx context.Context) error {
	if err := a.initializeStore(ctx); err != nil {
		return err
	}

	repos, err := repositories.New(a.manager, a.config.EngineOptions(), a.logger, a.metrics)
	if err != nil {
		return fmt.Errorf("failed to build repositories: %w", err)
	}
	a.repos = repos

	a.processor = processor.NewOrderedProcessor(
		a.config.Concurrency.BatchWorkers,
		a.config.Concurrency.BatchQueueSize,
		a.config.Concurrency.BatchTimeout,
		a.logger.Named("processor"),
	)
	a.processor.Start()

	if err := a.initializeServer(); err != nil {
		return fmt.Errorf("failed to configure server: %w", err)
	}

	a.logger.Info("application initialized")
	return nil
}

func (a *App) initializeStore(ctx context.Context) error {
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := store.NewMetrics(store.MetricsOptions{Registerer: a.registry})
	if err != nil {
		return fmt.Errorf("failed to register store metrics: %w", err)
	}
	a.metrics = metrics

	a.manager = store.NewManager(a.dialer, a.config.StoreOptions(), a.logger.Named("store"), a.metrics)
	a.logger.Info("connecting to store",
		zap.String("database", a.config.Mongo.Database),
		zap.Int("max_attempts", a.config.Retry.Connect.MaxAttempts),
	)
	if err := a.manager.Connect(ctx); err != nil {
		return err
	}

	a.provisioner = store.NewProvisioner(a.manager, store.DefaultIndexes(), a.config.IndexPolicy(), a.logger.Named("indexes"))
	if err := a.provisioner.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to provision indexes: %w", err)
	}
	return nil
}

func (a *App) initializeServer() error {
	limiter := usecases.NewLimiter(a.config.Concurrency.MaxConcurrentOps)
	activity := a.repos.ActivityLogs

	admin := usecases.NewAdminUsecase(a.repos.Users, a.repos.Jobs, a.repos.Applications, activity, a.processor, limiter, a.logger.Named("admin"))
	recruiters := usecases.NewRecruiterUsecase(a.repos.Users, a.repos.Jobs, a.repos.Applications, activity, limiter, a.logger.Named("recruiters"))
	candidates := usecases.NewCandidateUsecase(a.repos.Users, a.repos.Jobs, a.repos.Applications, a.repos.Interviews, activity, limiter, a.logger.Named("candidates"))

	httpMetrics, err := middleware.NewHTTPMetrics(a.registry, "recruitment")
	if err != nil {
		return err
	}
	if rl := a.config.Server.RateLimit; rl.Requests > 0 {
		a.rateLimiter = middleware.NewRateLimiter(rl.Requests, rl.Window)
	}

	httpLogger := a.logger.Named("http")
	router := handlers.NewRouter(handlers.RouterConfig{
		Admin:       handlers.NewAdminHandler(admin, httpLogger),
		Recruiters:  handlers.NewRecruiterHandler(recruiters, httpLogger),
		Candidates:  handlers.NewCandidateHandler(candidates, httpLogger),
		Health:      handlers.NewHealthHandler(a.manager, httpLogger),
		Gatherer:    a.registry,
		HTTPMetrics: httpMetrics,
		RateLimiter: a.rateLimiter,
		MaxInFlight: a.config.Concurrency.HTTPMaxWorkers,
		Timeout:     a.config.Server.RequestTimeout,
		Logger:      httpLogger,
	})

	a.server = &http.Server{
		Addr:         a.config.Address(),
		Handler:      router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return nil
}

// ProvisionIndexes connects and creates the required indexes without serving traffic.
func (a *App) ProvisionIndexes(ctx context.Context) error {
	if err := a.initializeStore(ctx); err != nil {
		a.release(ctx)
		return err
	}
	a.logger.Info("indexes provisioned")
	return a.manager.Close(ctx)
}

// release stops whatever a failed initialization already started.
func (a *App) release(ctx context.Context) {
	if a.processor != nil {
		a.processor.Stop()
	}
	if a.rateLimiter != nil {
		a.rateLimiter.Close()
	}
	if a.manager != nil {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout(a.config))
		defer cancel()
		if err := a.manager.Close(cctx); err != nil {
			a.logger.Warn("failed to close store connection", zap.Error(err))
		}
	}
}

// Start runs the HTTP server and the periodic health check. It returns once the listener fails
// or Shutdown is called.
func (a *App) Start(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		return err
	}

	if a.config.Server.HealthInterval > 0 {
		a.wg.Add(1)
		go a.periodicHealthCheck(a.config.Server.HealthInterval)
	}

	a.logger.Info("starting HTTP server", zap.String("addr", a.server.Addr))
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// periodicHealthCheck pings the store every interval and logs failures.
func (a *App) periodicHealthCheck(interval time.Duration) {
	defer a.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(a.ctx, a.config.Mongo.PingTimeout)
			if err := a.manager.CheckConnection(ctx); err != nil {
				a.logger.Warn("periodic health check failed",
					zap.Int64("consecutive_failures", a.manager.Health().ConsecutiveFailures),
					zap.Error(err),
				)
			} else {
				a.logger.Debug("periodic health check passed")
			}
			cancel()
		}
	}
}

// Shutdown stops accepting requests, drains in-flight work and closes the store connection.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down")
		a.cancel()

		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				a.logger.Error("failed to stop HTTP server", zap.Error(err))
				shutdownErr = err
			}
		}
		if a.processor != nil {
			a.processor.Stop()
		}
		if a.rateLimiter != nil {
			a.rateLimiter.Close()
		}
		if a.manager != nil {
			if err := a.manager.Close(ctx); err != nil {
				a.logger.Error("failed to close store connection", zap.Error(err))
				shutdownErr = errors.Join(shutdownErr, err)
			}
		}

		a.wg.Wait()
		a.logger.Info("application stopped")
		_ = logger.Sync()
	})

	return shutdownErr
}
