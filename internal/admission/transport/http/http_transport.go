// Package httptransport serves the admission and admin APIs over HTTP.
package httptransport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/core"
	"github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/observability"
)

// TransportConfig configures the HTTP transport.
type TransportConfig struct {
	Addr         string
	Service      string
	Guard        *core.Guard
	Load         *core.ServerLoad
	Gatherer     prometheus.Gatherer
	Logger       observability.Logger
	Metrics      observability.Metrics
	Ready        func() bool
	AuthEnabled  bool
	AdminToken   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodyBytes int64
}

// Transport serves the admission check and admin APIs.
type Transport struct {
	addr         string
	service      string
	guard        *core.Guard
	load         *core.ServerLoad
	gatherer     prometheus.Gatherer
	logger       observability.Logger
	metrics      observability.Metrics
	ready        func() bool
	authEnabled  bool
	adminToken   string
	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration
	maxBodyBytes int64

	mu  sync.Mutex
	srv *http.Server
}

// NewTransport constructs a transport.
func NewTransport(cfg TransportConfig) (*Transport, error) {
	if cfg.Guard == nil {
		return nil, errors.New("guard is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Load == nil {
		cfg.Load = &core.ServerLoad{}
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewInMemoryMetrics()
	}
	if cfg.Ready == nil {
		cfg.Ready = func() bool { return true }
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &Transport{
		addr:         cfg.Addr,
		service:      cfg.Service,
		guard:        cfg.Guard,
		load:         cfg.Load,
		gatherer:     cfg.Gatherer,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		ready:        cfg.Ready,
		authEnabled:  cfg.AuthEnabled,
		adminToken:   cfg.AdminToken,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		idleTimeout:  cfg.IdleTimeout,
		maxBodyBytes: cfg.MaxBodyBytes,
	}, nil
}

// Router builds the route table.
func (t *Transport) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(t.requestIDMiddleware)

	router.HandleFunc("/v1/admission/check", t.handleCheck).Methods(http.MethodPost)

	admin := router.PathPrefix("/v1/admin").Subrouter()
	admin.Use(t.adminAuthMiddleware)
	admin.HandleFunc("/reset", t.handleReset).Methods(http.MethodPost)
	admin.HandleFunc("/bypass", t.handleBypass).Methods(http.MethodPost)
	admin.HandleFunc("/load", t.handleLoad).Methods(http.MethodPost)
	admin.HandleFunc("/status", t.handleStatus).Methods(http.MethodGet)

	router.HandleFunc("/healthz", t.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", t.handleReady).Methods(http.MethodGet)
	if t.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(t.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return router
}

// Start begins serving HTTP requests and blocks until the server stops.
func (t *Transport) Start() error {
	if t == nil {
		return errors.New("http transport is nil")
	}
	t.mu.Lock()
	if t.srv == nil {
		t.srv = &http.Server{
			Addr:         t.addr,
			Handler:      t.Router(),
			ReadTimeout:  t.readTimeout,
			WriteTimeout: t.writeTimeout,
			IdleTimeout:  t.idleTimeout,
		}
	}
	srv := t.srv
	t.mu.Unlock()

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (t *Transport) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	srv := t.srv
	t.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
