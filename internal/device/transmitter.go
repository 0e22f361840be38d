package device

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Transmitter delivers one encoded frame to the collector.
type Transmitter interface {
	Transmit(ctx context.Context, frame []byte) error
}

// TCPTransmitter opens a fresh connection for every frame and closes it after
// the write, so each frame arrives on the server as its own read.
type TCPTransmitter struct {
	Addr        string
	DialTimeout time.Duration
}

func (t TCPTransmitter) Transmit(ctx context.Context, frame []byte) error {
	d := net.Dialer{Timeout: t.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.Addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", t.Addr, err)
	}
	defer conn.Close()

	if t.DialTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.DialTimeout))
	}
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("write frame to %s: %w", t.Addr, err)
	}
	return nil
}
