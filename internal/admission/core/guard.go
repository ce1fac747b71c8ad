// Package core provides the per-request admission guard.
package core

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/observability"
)

// GuardConfig configures an admission guard.
type GuardConfig struct {
	Policies      *PolicyTable
	Calculator    *LimitCalculator
	Breaker       *CircuitBreaker
	Store         CounterStore
	Keys          *KeyBuilder
	BlockDuration time.Duration
	Logger        observability.Logger
	Metrics       observability.Metrics
}

// Guard is the per-request admission entry point: it resolves the
// policy, computes effective limits, increments the counter through the
// circuit breaker, and decides admit or reject. Safe for concurrent use.
type Guard struct {
	policies      *PolicyTable
	calc          *LimitCalculator
	breaker       *CircuitBreaker
	store         CounterStore
	keys          *KeyBuilder
	blockDuration time.Duration
	logger        observability.Logger
	metrics       observability.Metrics
	bypass        atomic.Bool
	degradedLog   *rate.Limiter
}

// NewGuard validates dependencies and constructs a guard.
func NewGuard(cfg GuardConfig) (*Guard, error) {
	if cfg.Policies == nil {
		return nil, errors.New("policy table is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("counter store is required")
	}
	if cfg.Calculator == nil {
		cfg.Calculator = NewLimitCalculator(nil, nil)
	}
	if cfg.Breaker == nil {
		cfg.Breaker = NewCircuitBreaker(CircuitOptions{})
	}
	if cfg.Keys == nil {
		cfg.Keys = NewKeyBuilder("")
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewInMemoryMetrics()
	}
	return &Guard{
		policies:      cfg.Policies,
		calc:          cfg.Calculator,
		breaker:       cfg.Breaker,
		store:         cfg.Store,
		keys:          cfg.Keys,
		blockDuration: cfg.BlockDuration,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		degradedLog:   rate.NewLimiter(rate.Every(time.Second), 5),
	}, nil
}

// CheckAdmission decides whether a request is admitted. Rejections are
// reported in the result, not as an error; the only errors returned are
// validation failures on the request itself.
func (g *Guard) CheckAdmission(ctx context.Context, req *CheckRequest) (*AdmissionResult, error) {
	if g == nil {
		return nil, errors.New("guard is not initialized")
	}
	if req == nil {
		return nil, ErrInvalidInput
	}
	if req.CallerID == "" && req.CallerIP == "" {
		return nil, ErrInvalidInput
	}
	start := time.Now()
	defer func() {
		g.metrics.ObserveLatency("check", time.Since(start))
	}()

	policy := g.resolvePolicy(req)
	effective := g.calc.Adjust(policy, req.Trust)

	if req.Skip {
		return &AdmissionResult{
			Admitted:  true,
			Limit:     effective.Limit,
			Remaining: effective.Limit,
		}, nil
	}

	store := g.store
	if g.bypass.Load() {
		store = DisabledStore{}
	}

	key := g.keys.Build(g.callerKey(req), g.endpointKey(req))

	// The hit has happened once we decide to count it; caller
	// cancellation must not roll it back, so the store call runs on a
	// detached context with its own bound.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	result, err := g.breaker.Execute(callCtx, func(ctx context.Context) (*CounterResult, error) {
		return store.Increment(ctx, key, effective.Window, effective.Limit, g.blockDuration)
	})
	if err != nil {
		return g.failOpen(req, effective, err), nil
	}

	return g.decide(req, effective, result), nil
}

// ResetKey clears the counter for a key, for operator intervention.
func (g *Guard) ResetKey(ctx context.Context, key string) (bool, error) {
	if g == nil || g.store == nil {
		return false, errors.New("guard is not initialized")
	}
	if key == "" {
		return false, ErrInvalidInput
	}
	return g.store.Reset(ctx, key)
}

// SetBypass switches all admission checks to the disabled store. Only
// meant for controlled test environments.
func (g *Guard) SetBypass(enabled bool) {
	if g == nil {
		return
	}
	g.bypass.Store(enabled)
	g.logger.Info("admission bypass changed", map[string]any{"enabled": enabled})
}

// Bypassed reports whether the guard is bypassing admission control.
func (g *Guard) Bypassed() bool {
	if g == nil {
		return false
	}
	return g.bypass.Load()
}

// Breaker exposes the guard's breaker for status reporting.
func (g *Guard) Breaker() *CircuitBreaker {
	if g == nil {
		return nil
	}
	return g.breaker
}

func (g *Guard) resolvePolicy(req *CheckRequest) Policy {
	if req.Service != "" && req.Endpoint != "" {
		return g.policies.Resolve(req.Service, req.Endpoint)
	}
	return g.policies.ResolveByPath(req.Path, req.Method)
}

func (g *Guard) callerKey(req *CheckRequest) string {
	if req.CallerID != "" {
		return req.CallerID
	}
	return req.CallerIP
}

func (g *Guard) endpointKey(req *CheckRequest) string {
	if req.Path != "" {
		return req.Path
	}
	return req.Service + "/" + req.Endpoint
}

func (g *Guard) decide(req *CheckRequest, effective Policy, result *CounterResult) *AdmissionResult {
	rejected := result.Blocked || result.TotalHits > effective.Limit
	remaining := effective.Limit - result.TotalHits
	if remaining < 0 {
		remaining = 0
	}
	out := &AdmissionResult{
		Admitted:   !rejected,
		Limit:      effective.Limit,
		Remaining:  remaining,
		ResetAfter: result.TimeToExpire,
	}
	if rejected {
		if result.Blocked && result.TimeToBlockExpire > 0 {
			out.RetryAfter = result.TimeToBlockExpire
		} else {
			out.RetryAfter = result.TimeToExpire
		}
		g.metrics.IncDecision("rejected", req.Service)
		return out
	}
	g.metrics.IncDecision("admitted", req.Service)
	return out
}

// failOpen admits a request the counter store could not account for. A
// rate-limit backend outage must never block legitimate traffic; the
// degraded decision is surfaced through telemetry only.
func (g *Guard) failOpen(req *CheckRequest, effective Policy, err error) *AdmissionResult {
	reason := "store_error"
	switch {
	case !errors.Is(err, ErrStoreUnavailable):
		reason = "anomaly"
	case errors.Is(err, ErrBreakerOpen):
		reason = "breaker_open"
	}
	g.metrics.IncFailOpen(reason)
	g.metrics.IncDecision("fail_open", req.Service)
	if g.degradedLog.Allow() {
		g.logger.Error("admission degraded, failing open", map[string]any{
			"reason":  reason,
			"service": req.Service,
			"error":   err.Error(),
		})
	}
	return &AdmissionResult{
		Admitted:  true,
		Limit:     effective.Limit,
		Remaining: effective.Limit,
		Degraded:  true,
	}
}
