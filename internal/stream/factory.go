package stream

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	"smarthome-gauges/internal/config"
)

// NewSinkFromConfig builds the upstream sink selected by the forward mode. It
// returns nil when forwarding is off.
func NewSinkFromConfig(cfg config.Server, tlsCfg *tls.Config, logger *slog.Logger) (Sink, error) {
	switch cfg.ForwardMode {
	case config.ForwardNone:
		return nil, nil
	case config.ForwardGRPC:
		return NewGRPCClient(cfg.ForwardGRPCAddr, tlsCfg, cfg.ForwardToken, cfg.ForwardGRPCPath, logger), nil
	case config.ForwardWebSocket:
		return NewWebSocketClient(cfg.ForwardWSURL, cfg.ForwardToken, tlsCfg, 0, 0, logger), nil
	case config.ForwardNATS:
		nc, err := DialNATS(cfg.ForwardNATSURL, cfg.ForwardToken, logger)
		if err != nil {
			return nil, err
		}
		return NewNATSPublisher(nc, cfg.ForwardSubject), nil
	default:
		return nil, fmt.Errorf("unsupported forward mode %q", cfg.ForwardMode)
	}
}
