// Package app wires the admission subsystem's dependencies.
package app

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/config"
	"github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/core"
	"github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/observability"
	httptransport "github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/transport/http"
)

// Application holds the wired admission components.
type Application struct {
	Config   *config.Config
	Policies *core.PolicyTable
	Load     *core.ServerLoad
	Breaker  *core.CircuitBreaker
	Store    core.CounterStore
	Guard    *core.Guard

	logger      observability.Logger
	metrics     observability.Metrics
	registry    *prometheus.Registry
	redisClient *redis.Client
	redisStore  *core.RedisStore
	transport   *httptransport.Transport
	ready       atomic.Bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewApplication validates configuration and wires the subsystem.
// Configuration failures are fatal here; nothing degrades at startup.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := observability.NewSlogLogger(os.Stdout, observability.ParseLevel(cfg.Logging.Level))
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewPromMetrics(registry)

	rules, fallback := cfg.PolicyRules()
	policies, err := core.NewPolicyTable(rules, fallback)
	if err != nil {
		return nil, err
	}

	app := &Application{
		Config:   cfg,
		Policies: policies,
		Load:     &core.ServerLoad{},
		Breaker:  core.NewCircuitBreaker(cfg.BreakerOptions()),
		logger:   logger,
		metrics:  metrics,
		registry: registry,
	}

	switch cfg.Store.Backend {
	case config.BackendRedis:
		app.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		app.redisStore = core.NewRedisStore(app.redisClient,
			core.WithKeyPrefix(cfg.Store.Redis.KeyPrefix),
			core.WithCallTimeout(time.Duration(cfg.Store.Redis.TimeoutMS)*time.Millisecond),
		)
		app.Store = app.redisStore
	case config.BackendDisabled:
		app.Store = core.DisabledStore{}
		logger.Error("counter store disabled, admission control is bypassed", map[string]any{
			"backend": cfg.Store.Backend,
		})
	default:
		app.Store = core.NewMemoryStore()
	}

	guard, err := core.NewGuard(core.GuardConfig{
		Policies:      policies,
		Calculator:    core.NewLimitCalculator(app.Load, nil),
		Breaker:       app.Breaker,
		Store:         app.Store,
		Keys:          core.NewKeyBuilder(cfg.Service),
		BlockDuration: cfg.BlockDuration(),
		Logger:        logger,
		Metrics:       metrics,
	})
	if err != nil {
		return nil, err
	}
	app.Guard = guard
	guard.SetBypass(cfg.Limits.Bypass)

	if cfg.HTTP.Enabled {
		transport, err := httptransport.NewTransport(httptransport.TransportConfig{
			Addr:         cfg.HTTP.Addr,
			Service:      cfg.Service,
			Guard:        guard,
			Load:         app.Load,
			Gatherer:     registry,
			Logger:       logger,
			Metrics:      metrics,
			Ready:        app.ready.Load,
			AuthEnabled:  cfg.Admin.AuthEnabled,
			AdminToken:   cfg.Admin.Token,
			ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutMS) * time.Millisecond,
			WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutMS) * time.Millisecond,
			IdleTimeout:  time.Duration(cfg.HTTP.IdleTimeoutMS) * time.Millisecond,
		})
		if err != nil {
			return nil, err
		}
		app.transport = transport
	}
	return app, nil
}

// Start launches background loops and transports, then blocks until ctx
// is cancelled, after which the application drains and stops.
func (a *Application) Start(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.statusLoop(runCtx)
	}()

	if a.transport != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.transport.Start(); err != nil {
				a.logger.Error("http transport stopped", map[string]any{"error": err.Error()})
			}
		}()
	}
	a.ready.Store(true)
	a.logger.Info("admission subsystem started", map[string]any{
		"service": a.Config.Service,
		"backend": a.Config.Store.Backend,
	})

	<-runCtx.Done()
	return a.Stop()
}

// Stop drains the transport and releases resources.
func (a *Application) Stop() error {
	if a == nil {
		return nil
	}
	a.ready.Store(false)
	if a.cancel != nil {
		a.cancel()
	}
	var firstErr error
	if a.transport != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(a.Config.HTTP.DrainTimeoutMS)*time.Millisecond)
		if err := a.transport.Shutdown(drainCtx); err != nil {
			firstErr = err
		}
		cancel()
	}
	a.wg.Wait()
	if a.Store != nil {
		if err := a.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.logger.Info("admission subsystem stopped", map[string]any{"service": a.Config.Service})
	return firstErr
}

// UpdateServerLoad is the hook for the external metrics reporter.
func (a *Application) UpdateServerLoad(factor float64) {
	if a == nil {
		return
	}
	a.Load.Update(factor)
	a.metrics.SetServerLoad(a.Load.Factor())
}

// statusLoop periodically records breaker state and backend health.
func (a *Application) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.metrics.SetBreakerState(float64(a.Breaker.State()))
			a.metrics.SetServerLoad(a.Load.Factor())
			if a.redisStore != nil {
				if err := a.redisStore.Ping(ctx); err != nil {
					a.logger.Error("counter store unreachable", map[string]any{"error": err.Error()})
				}
			}
		}
	}
}
