package ingest

import (
	"sync/atomic"
	"time"
)

type HealthStatus struct {
	listening      atomic.Bool
	activeConns    atomic.Int64
	framesDecoded  atomic.Int64
	framesRejected atomic.Int64
	lastFrameAt    atomic.Int64
	forwarding     atomic.Bool
	forwarderUp    atomic.Bool
}

func NewHealthStatus() *HealthStatus {
	return &HealthStatus{}
}

func (h *HealthStatus) SetListening(ok bool) {
	h.listening.Store(ok)
}

// SetForwarderConnected records the state of the upstream sink. The first call
// also adds the forwarder to the snapshot.
func (h *HealthStatus) SetForwarderConnected(ok bool) {
	h.forwarding.Store(true)
	h.forwarderUp.Store(ok)
}

func (h *HealthStatus) Healthy() bool {
	return h.listening.Load()
}

func (h *HealthStatus) ActiveConnections() int64 {
	return h.activeConns.Load()
}

func (h *HealthStatus) connOpened() {
	h.activeConns.Add(1)
}

func (h *HealthStatus) connClosed() {
	h.activeConns.Add(-1)
}

func (h *HealthStatus) markDecoded(ts time.Time) {
	h.framesDecoded.Add(1)
	h.lastFrameAt.Store(ts.UnixNano())
}

func (h *HealthStatus) markRejected(ts time.Time) {
	h.framesRejected.Add(1)
	h.lastFrameAt.Store(ts.UnixNano())
}

func (h *HealthStatus) Snapshot() map[string]any {
	out := map[string]any{
		"listening":          h.listening.Load(),
		"active_connections": h.activeConns.Load(),
		"frames_decoded":     h.framesDecoded.Load(),
		"frames_rejected":    h.framesRejected.Load(),
	}
	if h.forwarding.Load() {
		out["forwarder_connected"] = h.forwarderUp.Load()
	}
	if v := h.lastFrameAt.Load(); v > 0 {
		out["last_frame_at"] = time.Unix(0, v).UTC()
	}
	return out
}
