package collector

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"smarthome-gauges/internal/admin"
)

func (c *Collector) run(ctx context.Context) error {
	if err := c.server.Listen(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.server.Serve(gctx)
	})

	if c.cfg.AdminAddr != "" {
		_, errCh, err := admin.Start(gctx, admin.Config{
			ListenAddr:      c.cfg.AdminAddr,
			Gatherer:        c.registry,
			Health:          c.health,
			Logger:          c.logger,
			ShutdownTimeout: c.cfg.ShutdownTimeout,
		})
		if err != nil {
			_ = c.server.Close()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			if err, ok := <-errCh; ok {
				return fmt.Errorf("admin endpoint: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *Collector) shutdown(ctx context.Context) {
	if c.sink == nil {
		return
	}
	if err := c.sink.Close(ctx); err != nil {
		c.logger.Warn("stream sink close failed", "error", err)
	}
}
