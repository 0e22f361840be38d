package stream

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type WebSocketClient struct {
	mu sync.Mutex

	logger       *slog.Logger
	url          string
	token        string
	dialer       *websocket.Dialer
	writeTimeout time.Duration
	pingInterval time.Duration
	conn         *websocket.Conn
	pingCancel   context.CancelFunc
}

func NewWebSocketClient(url, token string, tlsCfg *tls.Config, writeTimeout, pingInterval time.Duration, logger *slog.Logger) *WebSocketClient {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketClient{
		logger:       logger,
		url:          url,
		token:        token,
		dialer:       &websocket.Dialer{HandshakeTimeout: 10 * time.Second, TLSClientConfig: tlsCfg},
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
	}
}

// Send writes ev as one text message. A failed write reconnects and retries
// once.
func (c *WebSocketClient) Send(ctx context.Context, ev Event) error {
	payload, err := EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnLocked(ctx); err != nil {
		return err
	}
	if err := c.writeLocked(payload); err != nil {
		c.logger.Warn("websocket write failed, reconnecting", "error", err)
		c.dropConnLocked()
		if err2 := c.ensureConnLocked(ctx); err2 != nil {
			return err2
		}
		if err2 := c.writeLocked(payload); err2 != nil {
			c.dropConnLocked()
			return fmt.Errorf("write event retry: %w", err2)
		}
	}
	return nil
}

func (c *WebSocketClient) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pingCancel != nil {
		c.pingCancel()
		c.pingCancel = nil
	}
	if c.conn == nil {
		return nil
	}
	deadline := time.Now().Add(c.writeTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *WebSocketClient) writeLocked(payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *WebSocketClient) dropConnLocked() {
	if c.pingCancel != nil {
		c.pingCancel()
		c.pingCancel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *WebSocketClient) ensureConnLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	conn, _, err := c.dialer.DialContext(ctx, c.url, h)
	if err != nil {
		return fmt.Errorf("websocket dial %s: %w", c.url, err)
	}
	conn.SetReadLimit(1 << 20)
	c.conn = conn
	c.startPingLoopLocked()
	c.logger.Info("websocket forwarder connected", "url", c.url)
	return nil
}

// startPingLoopLocked pings on an interval and drains inbound messages so
// control frames from the peer are processed.
func (c *WebSocketClient) startPingLoopLocked() {
	if c.pingCancel != nil {
		c.pingCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.pingCancel = cancel
	conn := c.conn

	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	go func(interval time.Duration) {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(3*time.Second))
			}
		}
	}(c.pingInterval)
}
