package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"smarthome-gauges/internal/gauge"
)

// Publisher is the part of *nats.Conn the NATS sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// DialNATS connects to a NATS server with reconnects enabled.
func DialNATS(url, token string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []nats.Option{
		nats.Name("gauge-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.Timeout(5 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	logger.Info("nats forwarder connected", "url", nc.ConnectedUrl())
	return nc, nil
}

// NATSPublisher publishes every event on <base>.<kind>. Unknown kinds share
// <base>.unknown so arbitrary ids never leak into subject tokens.
type NATSPublisher struct {
	pub     Publisher
	subject string
}

func NewNATSPublisher(pub Publisher, subject string) *NATSPublisher {
	return &NATSPublisher{pub: pub, subject: strings.TrimSuffix(subject, ".")}
}

func (p *NATSPublisher) Subject(ev Event) string {
	switch gauge.Kind(ev.Kind) {
	case gauge.KindFireAlarm, gauge.KindTemperatureGauge:
		return p.subject + "." + ev.Kind
	default:
		return p.subject + ".unknown"
	}
}

func (p *NATSPublisher) Send(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	subject := p.Subject(ev)
	if err := p.pub.Publish(subject, payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Close drains pending publishes. The context is not consulted; nats bounds the
// drain with its own timeout.
func (p *NATSPublisher) Close(context.Context) error {
	if err := p.pub.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}
