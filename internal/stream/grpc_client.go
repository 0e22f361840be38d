package stream

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
)

const defaultStreamOpenTimeout = 8 * time.Second

type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// GRPCClient forwards events over one long-lived client stream. The stream is
// reopened once when a send fails.
type GRPCClient struct {
	mu sync.Mutex

	logger    *slog.Logger
	addr      string
	tlsConfig *tls.Config
	token     string
	method    string
	dialOpts  []grpc.DialOption
	// openTimeout bounds opening the stream on top of the caller's context.
	openTimeout time.Duration
	conn      *grpc.ClientConn
	stream    grpc.ClientStream
	cancel    context.CancelFunc
}

func NewGRPCClient(addr string, tlsCfg *tls.Config, token, method string, logger *slog.Logger, opts ...grpc.DialOption) *GRPCClient {
	encoding.RegisterCodec(jsonCodec{})
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCClient{
		logger:    logger,
		addr:      addr,
		tlsConfig: tlsCfg,
		token:     token,
		method:    method,
		dialOpts:  opts,

		openTimeout: defaultStreamOpenTimeout,
	}
}

func (c *GRPCClient) Send(ctx context.Context, ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.ensureConnLocked(); err != nil {
		return err
	}
	if c.stream == nil {
		if err := c.openStreamLocked(ctx); err != nil {
			return err
		}
	}
	if err := c.stream.SendMsg(ev); err != nil {
		c.logger.Warn("grpc send failed, reopening stream", "error", err)
		c.resetStreamLocked()
		if err2 := c.openStreamLocked(ctx); err2 != nil {
			return fmt.Errorf("reopen gauge stream: %w", err2)
		}
		if err2 := c.stream.SendMsg(ev); err2 != nil {
			c.resetStreamLocked()
			return fmt.Errorf("send gauge event: %w", err2)
		}
	}
	return nil
}

// Close half-closes the stream, waits for the server summary and releases the
// connection.
func (c *GRPCClient) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		_ = c.stream.CloseSend()
		done := make(chan struct{})
		go func(s grpc.ClientStream) {
			var ack json.RawMessage
			_ = s.RecvMsg(&ack)
			close(done)
		}(c.stream)
		select {
		case <-done:
		case <-ctx.Done():
		}
		c.resetStreamLocked()
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *GRPCClient) ensureConnLocked() error {
	if c.conn != nil {
		return nil
	}

	var creds credentials.TransportCredentials
	if c.tlsConfig != nil {
		creds = credentials.NewTLS(c.tlsConfig)
	} else {
		creds = insecure.NewCredentials()
	}

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	}, c.dialOpts...)
	conn, err := grpc.NewClient(c.addr, opts...)
	if err != nil {
		return fmt.Errorf("grpc dial %s: %w", c.addr, err)
	}
	c.conn = conn
	c.logger.Info("grpc forwarder connected", "addr", c.addr, "method", c.method)
	return nil
}

// openStreamLocked opens the stream under ctx and openTimeout. Once open, the
// stream lives on its own context and outlasts the Send that opened it.
func (c *GRPCClient) openStreamLocked(ctx context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("grpc conn is nil")
	}
	openCtx, openCancel := context.WithTimeout(ctx, c.openTimeout)
	defer openCancel()

	streamCtx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(openCtx, cancel)
	if c.token != "" {
		streamCtx = metadata.AppendToOutgoingContext(streamCtx, "authorization", "Bearer "+c.token)
	}
	s, err := c.conn.NewStream(streamCtx, &grpc.StreamDesc{ClientStreams: true}, c.method)
	if !stop() {
		// openCtx ended first and streamCtx is already cancelled.
		cancel()
		return fmt.Errorf("open gauge stream: %w", openCtx.Err())
	}
	if err != nil {
		cancel()
		return fmt.Errorf("open gauge stream: %w", err)
	}
	c.stream = s
	c.cancel = cancel
	return nil
}

func (c *GRPCClient) resetStreamLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.stream = nil
}
