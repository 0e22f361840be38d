package stream

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math"
	"time"

	"smarthome-gauges/internal/gauge"
)

// Sink delivers gauge events to an upstream collector.
type Sink interface {
	Send(ctx context.Context, ev Event) error
	Close(ctx context.Context) error
}

// Event is the JSON shape forwarded upstream for every decoded frame.
type Event struct {
	Kind           string   `json:"kind"`
	Name           string   `json:"name"`
	State          string   `json:"state"`
	Tag            int      `json:"tag"`
	Temperature    *float64 `json:"temperature,omitempty"`
	RawState       string   `json:"raw_state,omitempty"`
	ConnID         string   `json:"conn_id,omitempty"`
	Remote         string   `json:"remote,omitempty"`
	ReceivedAtUnix int64    `json:"received_at_unix"`
}

// NewEvent flattens a classified gauge. Unknown kinds keep their raw id and
// the hex of the undecoded state.
func NewEvent(g gauge.Classified, connID, remote string, at time.Time) Event {
	if at.IsZero() {
		at = time.Now()
	}
	ev := Event{ConnID: connID, Remote: remote, ReceivedAtUnix: at.UTC().Unix(), Tag: -1}

	switch v := g.(type) {
	case *gauge.FireAlarm:
		ev.Kind = string(v.Kind())
		ev.Name = v.Name()
		ev.State = v.State().String()
		ev.Tag = int(v.State())
	case *gauge.TemperatureGauge:
		st := v.State()
		ev.Kind = string(v.Kind())
		ev.Name = v.Name()
		ev.State = st.Mode.String()
		ev.Tag = int(st.Mode)
		// json cannot carry NaN or Inf
		if st.Mode == gauge.TemperatureReading && !math.IsNaN(float64(st.Celsius)) && !math.IsInf(float64(st.Celsius), 0) {
			c := roundCelsius(st.Celsius)
			ev.Temperature = &c
		}
	case gauge.Unknown:
		ev.Kind = string(v.Envelope.KindID)
		ev.Name = v.Envelope.Name
		ev.State = "unknown"
		if tag, ok := v.Envelope.Tag(); ok {
			ev.Tag = int(tag)
		}
		ev.RawState = hex.EncodeToString(v.Envelope.RawState)
	}
	return ev
}

func EncodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// roundCelsius widens a float32 without exposing binary noise such as
// 21.100000381469727.
func roundCelsius(c float32) float64 {
	f := float64(c)
	return math.Round(f*1e4) / 1e4
}
