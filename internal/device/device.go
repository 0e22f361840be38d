// Package device runs simulated sensors: an operator drives a state machine
// from text commands and every state change is transmitted to the collector.
package device

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"smarthome-gauges/internal/gauge"
)

type Config struct {
	// ReportInterval drives Machine.Report; 0 disables periodic reports.
	ReportInterval time.Duration
	Out            io.Writer
	Logger         *slog.Logger
}

// Device owns a Machine. All mutation happens on the goroutine running Run, so
// the machine needs no locking.
type Device struct {
	m        Machine
	tx       Transmitter
	out      io.Writer
	logger   *slog.Logger
	interval time.Duration
	dirty    bool
}

func New(m Machine, tx Transmitter, cfg Config) *Device {
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Device{
		m:        m,
		tx:       tx,
		out:      cfg.Out,
		logger:   cfg.Logger.With("kind", m.Gauge().Kind(), "name", m.Gauge().Name()),
		interval: cfg.ReportInterval,
	}
}

// Dirty reports whether a state change is still waiting to be transmitted.
func (d *Device) Dirty() bool {
	return d.dirty
}

// Run processes operator lines until lines is closed or ctx is done. State
// changes are flushed right away; a failed transmission keeps the change
// pending and it is retried with the next flush.
func (d *Device) Run(ctx context.Context, lines <-chan string) error {
	var tick <-chan time.Time
	if d.interval > 0 {
		t := time.NewTicker(d.interval)
		defer t.Stop()
		tick = t.C
	}

	d.println(d.m.Prompt())
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			d.handleLine(line)
			d.flush(ctx)
			d.println(d.m.Prompt())
		case <-tick:
			if d.m.Report() {
				d.dirty = true
			}
			d.flush(ctx)
		}
	}
}

func (d *Device) handleLine(line string) {
	cmd, err := d.m.Parse(line)
	if err != nil {
		d.println("Invalid input")
		return
	}
	status, changed := d.m.Apply(cmd)
	if status != "" {
		d.println(status)
	}
	if changed {
		d.dirty = true
	}
}

func (d *Device) flush(ctx context.Context) {
	if !d.dirty {
		return
	}
	g := d.m.Gauge()
	if err := d.tx.Transmit(ctx, gauge.Encode(g)); err != nil {
		d.logger.Warn("transmit failed", "error", err)
		return
	}
	d.dirty = false
	d.logger.Info("sent gauge state", "state", stateLabel(g))
}

func (d *Device) println(s string) {
	_, _ = fmt.Fprintln(d.out, s)
}

func stateLabel(g gauge.Gauge) string {
	switch v := g.(type) {
	case *gauge.FireAlarm:
		return v.State().String()
	case *gauge.TemperatureGauge:
		return v.State().String()
	default:
		return ""
	}
}

// ReadLines feeds lines from r into the returned channel and closes it at EOF
// or when ctx is done. A read blocked on r is not interrupted by ctx.
func ReadLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
