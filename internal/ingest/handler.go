package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"smarthome-gauges/internal/gauge"
)

// Frame is one successfully decoded read from a sensor connection.
type Frame struct {
	ConnID     string
	Remote     string
	Seq        uint64
	ReceivedAt time.Time
	Raw        []byte
	Gauge      gauge.Classified
}

// Handler is the application callback for decoded frames. Frames of one
// connection are delivered sequentially; frames of different connections may be
// delivered concurrently.
type Handler interface {
	Handle(ctx context.Context, f Frame) error
}

type HandlerFunc func(ctx context.Context, f Frame) error

func (fn HandlerFunc) Handle(ctx context.Context, f Frame) error {
	return fn(ctx, f)
}

// MultiHandler calls every handler in order and joins their errors.
type MultiHandler []Handler

func (m MultiHandler) Handle(ctx context.Context, f Frame) error {
	var errs []error
	for _, h := range m {
		if h == nil {
			continue
		}
		if err := h.Handle(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogHandler writes every decoded gauge to the logger. Fire alarms on alert are
// logged at warn level.
type LogHandler struct {
	Logger *slog.Logger
}

func (h LogHandler) Handle(ctx context.Context, f Frame) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"conn_id", f.ConnID, "remote", f.Remote, "seq", f.Seq}

	switch g := f.Gauge.(type) {
	case *gauge.FireAlarm:
		level := slog.LevelInfo
		if g.State() == gauge.FireAlarmOnAlert {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, g.String(), append(attrs, "kind", g.Kind(), "name", g.Name(), "state", g.State().String())...)
	case *gauge.TemperatureGauge:
		attrs = append(attrs, "kind", g.Kind(), "name", g.Name(), "state", g.State().Mode.String())
		if g.State().Mode == gauge.TemperatureReading {
			attrs = append(attrs, "celsius", g.State().Celsius)
		}
		logger.Info(g.String(), attrs...)
	case gauge.Unknown:
		env := g.Envelope
		logger.Info("gauge with unknown kind", append(attrs,
			"kind_id", string(env.KindID),
			"name", env.Name,
			"state", env.String(),
		)...)
	default:
		logger.Warn("frame without gauge", attrs...)
	}
	return nil
}
