package device

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"smarthome-gauges/internal/config"
)

// RunConsole drives m from operator lines on in until EOF or SIGINT/SIGTERM.
// Status lines go to out; frames go to the configured target address.
func RunConsole(ctx context.Context, cfg config.Device, m Machine, in io.Reader, out io.Writer, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tx := TCPTransmitter{Addr: cfg.TargetAddress, DialTimeout: cfg.DialTimeout}
	d := New(m, tx, Config{ReportInterval: cfg.ReportInterval, Out: out, Logger: logger})

	logger.Info("device started", "kind", m.Gauge().Kind(), "name", m.Gauge().Name(), "target", cfg.TargetAddress)
	err := d.Run(ctx, ReadLines(ctx, in))
	if d.Dirty() {
		logger.Warn("exiting with an untransmitted state change")
	}
	return err
}
