// Package ingest accepts sensor connections and runs every read through the
// gauge decoder before handing it to a Handler.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"smarthome-gauges/internal/gauge"
)

const (
	DefaultReadBufferSize = 1024
	acceptBackoff         = 100 * time.Millisecond
)

var ErrNotListening = errors.New("ingest: server is not listening")

type Config struct {
	Addr string
	// ReadBufferSize bounds a single frame. Each non-empty read is decoded as
	// exactly one frame.
	ReadBufferSize int
	// MaxConnections caps concurrently served connections; 0 means unbounded.
	MaxConnections int
	// ReadTimeout closes a connection that stays silent this long; 0 disables it.
	ReadTimeout time.Duration
}

type Option func(*Server)

func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithHealth(h *HealthStatus) Option {
	return func(s *Server) {
		if h != nil {
			s.health = h
		}
	}
}

type Server struct {
	cfg     Config
	handler Handler
	logger  *slog.Logger
	metrics *Metrics
	health  *HealthStatus
	sem     *semaphore.Weighted

	mu      sync.Mutex
	ln      net.Listener
	conns   map[string]net.Conn
	closing bool
	wg      sync.WaitGroup
}

func New(cfg Config, handler Handler, logger *slog.Logger, opts ...Option) *Server {
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	if handler == nil {
		handler = LogHandler{Logger: logger}
	}
	s := &Server{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		health:  NewHealthStatus(),
		conns:   make(map[string]net.Conn),
	}
	if cfg.MaxConnections > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxConnections))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Health() *HealthStatus {
	return s.health
}

// Listen binds the listening socket. A failure here means the server cannot
// start at all.
func (s *Server) Listen() error {
	addr := strings.TrimSpace(s.cfg.Addr)
	if addr == "" {
		return fmt.Errorf("empty listen address")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.closing = false
	s.mu.Unlock()

	s.health.SetListening(true)
	s.logger.Info("gauge listener bound", "addr", ln.Addr().String(), "max_connections", s.cfg.MaxConnections)
	return nil
}

// Addr is the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Run binds and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve runs the accept loop on the socket bound by Listen. It returns once ctx
// is done or the listener is closed, after every connection worker has exited.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return ErrNotListening
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-stop:
		}
	}()

	defer func() {
		_ = s.Close()
		s.wg.Wait()
		s.health.SetListening(false)
		s.logger.Info("gauge listener stopped")
	}()

	for {
		if s.sem != nil {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				return nil
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			s.release()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.metrics.acceptFailed()
			s.logger.Warn("accept failed", "error", err)
			sleepWithContext(ctx, acceptBackoff)
			continue
		}

		id := uuid.NewString()
		if !s.track(id, conn) {
			_ = conn.Close()
			s.release()
			return nil
		}
		s.wg.Add(1)
		go s.serveConn(ctx, id, conn)
	}
}

// Close stops accepting and closes every live connection. Workers exit on
// their next read.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true
	for _, c := range s.conns {
		_ = c.Close()
	}
	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) track(id string, conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[id] = conn
	return true
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
}

func (s *Server) release() {
	if s.sem != nil {
		s.sem.Release(1)
	}
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *Server) serveConn(ctx context.Context, id string, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	logger := s.logger.With("conn_id", id, "remote", remote)

	s.metrics.connOpened()
	s.health.connOpened()
	logger.Debug("sensor connected")

	defer func() {
		_ = conn.Close()
		s.untrack(id)
		s.metrics.connClosed()
		s.health.connClosed()
		s.release()
		s.wg.Done()
	}()

	buf := make([]byte, s.cfg.ReadBufferSize)
	var seq uint64
	for {
		if s.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		n, err := conn.Read(buf)
		if n > 0 {
			seq++
			s.metrics.received(n)
			s.processFrame(ctx, logger, id, remote, seq, buf[:n])
		}
		if err != nil {
			s.logConnEnd(logger, err, seq)
			return
		}
		if n == 0 {
			logger.Debug("sensor disconnected", "frames", seq)
			return
		}
	}
}

func (s *Server) logConnEnd(logger *slog.Logger, err error, frames uint64) {
	var ne net.Error
	switch {
	case errors.Is(err, io.EOF):
		logger.Debug("sensor disconnected", "frames", frames)
	case s.isClosing() || errors.Is(err, net.ErrClosed):
		logger.Debug("connection closed by server", "frames", frames)
	case errors.As(err, &ne) && ne.Timeout():
		logger.Info("connection idle past read timeout", "timeout", s.cfg.ReadTimeout, "frames", frames)
	default:
		logger.Warn("connection read failed", "error", err, "frames", frames)
	}
}

func (s *Server) processFrame(ctx context.Context, logger *slog.Logger, id, remote string, seq uint64, b []byte) {
	now := time.Now()
	raw := append([]byte(nil), b...)

	g, err := gauge.Decode(raw)
	if err != nil {
		reason := gauge.Reason(err)
		s.metrics.rejected(reason)
		s.health.markRejected(now)
		attrs := []any{"seq", seq, "bytes", len(raw), "reason", reason, "error", err}
		var de *gauge.DecodeError
		if errors.As(err, &de) {
			if de.KindID != nil {
				attrs = append(attrs, "kind_id", string(de.KindID))
			}
			if de.Name != "" {
				attrs = append(attrs, "name", de.Name)
			}
		}
		logger.Warn("frame rejected", attrs...)
		return
	}

	s.metrics.decoded(gauge.KindLabel(g))
	s.health.markDecoded(now)

	f := Frame{ConnID: id, Remote: remote, Seq: seq, ReceivedAt: now, Raw: raw, Gauge: g}
	if err := s.handler.Handle(ctx, f); err != nil {
		s.metrics.dispatchFailed()
		logger.Warn("frame dispatch failed", "seq", seq, "kind", gauge.KindLabel(g), "error", err)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
