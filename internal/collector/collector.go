// Package collector wires the gauge ingestion server, its admin endpoint and the
// optional upstream forwarder into one process.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"smarthome-gauges/internal/config"
	"smarthome-gauges/internal/ingest"
	"smarthome-gauges/internal/logging"
	"smarthome-gauges/internal/stream"
)

type Collector struct {
	cfg      config.Server
	logger   *slog.Logger
	registry *prometheus.Registry
	health   *ingest.HealthStatus
	sink     stream.Sink
	server   *ingest.Server
}

func New(cfg config.Server, logger *slog.Logger) (*Collector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := ingest.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	sink, err := stream.NewSinkFromConfig(cfg, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("stream sink: %w", err)
	}

	health := ingest.NewHealthStatus()
	handlers := ingest.MultiHandler{ingest.LogHandler{Logger: logger}}
	if sink != nil {
		sink = &healthSink{sink: sink, health: health}
		handlers = append(handlers, ingest.ForwardHandler{Sink: sink})
	}

	server := ingest.New(ingest.Config{
		Addr:           cfg.ListenAddr(),
		ReadBufferSize: cfg.ReadBufferSize,
		MaxConnections: cfg.MaxConnections,
		ReadTimeout:    cfg.ReadTimeout,
	}, handlers, logger, ingest.WithMetrics(metrics), ingest.WithHealth(health))

	return &Collector{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		health:   health,
		sink:     sink,
		server:   server,
	}, nil
}

// Addr is the bound gauge listener address, or nil before it is bound.
func (c *Collector) Addr() net.Addr {
	return c.server.Addr()
}

func (c *Collector) Health() *ingest.HealthStatus {
	return c.health
}

// Run serves until ctx is done or SIGINT/SIGTERM arrives. A second signal, or
// the shutdown timeout elapsing, abandons the graceful stop.
func (c *Collector) Run(ctx context.Context) error {
	c.logger.Info("starting gauge server", "addr", c.cfg.ListenAddr(), "forward_mode", string(c.cfg.ForwardMode))
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- c.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
	case sig := <-sigCh:
		c.logger.Info("shutdown signal received, starting graceful shutdown", "signal", sig.String(), "timeout", c.cfg.ShutdownTimeout)
		cancelRun()

		graceTimer := time.NewTimer(c.cfg.ShutdownTimeout)
		defer graceTimer.Stop()

		select {
		case runErr = <-runErrCh:
		case sig2 := <-sigCh:
			c.logger.Warn("second signal received, forcing immediate shutdown", "signal", sig2.String())
			runErr = context.Canceled
		case <-graceTimer.C:
			c.logger.Warn("graceful shutdown timeout reached, forcing shutdown", "timeout", c.cfg.ShutdownTimeout)
			runErr = context.DeadlineExceeded
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout)
	defer cancelShutdown()
	c.shutdown(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	c.logger.Info("gauge server stopped")
	return nil
}

// BuildLogger builds the process logger from the server config. A nil writer
// means stdout.
func BuildLogger(cfg config.Server, w io.Writer) *slog.Logger {
	return logging.New(cfg.LogLevel, cfg.LogJSON, w)
}

type healthSink struct {
	sink   stream.Sink
	health *ingest.HealthStatus
}

func (s *healthSink) Send(ctx context.Context, ev stream.Event) error {
	err := s.sink.Send(ctx, ev)
	s.health.SetForwarderConnected(err == nil)
	return err
}

func (s *healthSink) Close(ctx context.Context) error {
	err := s.sink.Close(ctx)
	s.health.SetForwarderConnected(false)
	return err
}
