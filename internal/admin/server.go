// Package admin serves the operational HTTP endpoints of the gauge server.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smarthome-gauges/internal/ingest"
)

type Config struct {
	ListenAddr      string
	Gatherer        prometheus.Gatherer
	Health          *ingest.HealthStatus
	Logger          *slog.Logger
	ShutdownTimeout time.Duration
}

// NewRouter exposes /metrics and /healthz.
func NewRouter(g prometheus.Gatherer, health *ingest.HealthStatus) *mux.Router {
	r := mux.NewRouter()
	if g != nil {
		r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", healthHandler(health)).Methods(http.MethodGet)
	return r
}

func healthHandler(health *ingest.HealthStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{"listening": false}
		status := http.StatusServiceUnavailable
		if health != nil {
			body = health.Snapshot()
			if health.Healthy() {
				status = http.StatusOK
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

// Start binds cfg.ListenAddr and serves the admin router in the background. The
// returned channel reports a serve failure and is closed when the server stops.
// The server shuts down when ctx is done.
func Start(ctx context.Context, cfg Config) (*http.Server, <-chan error, error) {
	if cfg.ListenAddr == "" {
		return nil, nil, errors.New("admin listen address is empty")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("admin listen %s: %w", cfg.ListenAddr, err)
	}

	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           NewRouter(cfg.Gatherer, cfg.Health),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		cfg.Logger.Info("admin endpoint listening", "addr", srv.Addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv, errCh, nil
}
