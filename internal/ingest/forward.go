package ingest

import (
	"context"
	"fmt"

	"smarthome-gauges/internal/stream"
)

// ForwardHandler converts decoded frames into stream events and ships them to
// an upstream sink.
type ForwardHandler struct {
	Sink stream.Sink
}

func (h ForwardHandler) Handle(ctx context.Context, f Frame) error {
	if h.Sink == nil {
		return nil
	}
	ev := stream.NewEvent(f.Gauge, f.ConnID, f.Remote, f.ReceivedAt)
	if err := h.Sink.Send(ctx, ev); err != nil {
		return fmt.Errorf("forward %s event: %w", ev.Kind, err)
	}
	return nil
}
