package gauge

import (
	"encoding/binary"
	"fmt"
	"math"
)

type TemperatureMode byte

const (
	TemperatureDisabled TemperatureMode = TemperatureMode(TagDisabled)
	TemperatureEnabled  TemperatureMode = TemperatureMode(TagEnabled)
	TemperatureReading  TemperatureMode = 2
)

const temperaturePayloadLen = 4

func (m TemperatureMode) String() string {
	switch m {
	case TemperatureDisabled:
		return "disabled"
	case TemperatureEnabled:
		return "enabled"
	case TemperatureReading:
		return "reading_temperature"
	default:
		return fmt.Sprintf("temperature_mode(%d)", byte(m))
	}
}

// TemperatureState is the thermometer state. Celsius is only meaningful in
// TemperatureReading mode and is zero otherwise.
type TemperatureState struct {
	Mode    TemperatureMode
	Celsius float32
}

func DisabledTemperature() TemperatureState {
	return TemperatureState{Mode: TemperatureDisabled}
}

func EnabledTemperature() TemperatureState {
	return TemperatureState{Mode: TemperatureEnabled}
}

func ReadingTemperature(celsius float32) TemperatureState {
	return TemperatureState{Mode: TemperatureReading, Celsius: celsius}
}

func (s TemperatureState) String() string {
	if s.Mode == TemperatureReading {
		return fmt.Sprintf("%s(%v)", s.Mode, s.Celsius)
	}
	return s.Mode.String()
}

type TemperatureGauge struct {
	name  string
	state TemperatureState
}

// normalized drops Celsius outside TemperatureReading, where the wire carries
// no value.
func (s TemperatureState) normalized() (TemperatureState, error) {
	switch s.Mode {
	case TemperatureDisabled, TemperatureEnabled:
		return TemperatureState{Mode: s.Mode}, nil
	case TemperatureReading:
		return s, nil
	default:
		return TemperatureState{}, fmt.Errorf("%w %d for %s", ErrUnknownStateTag, byte(s.Mode), KindTemperatureGauge)
	}
}

// NewTemperatureGauge rejects names that do not fit a frame and modes outside
// the thermometer set.
func NewTemperatureGauge(name string, state TemperatureState) (*TemperatureGauge, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	state, err := state.normalized()
	if err != nil {
		return nil, err
	}
	return &TemperatureGauge{name: name, state: state}, nil
}

func (t *TemperatureGauge) Kind() Kind { return KindTemperatureGauge }
func (t *TemperatureGauge) Name() string { return t.name }
func (t *TemperatureGauge) State() TemperatureState { return t.state }

// SetState panics on a mode outside the thermometer set.
func (t *TemperatureGauge) SetState(s TemperatureState) {
	s, err := s.normalized()
	if err != nil {
		panic(err)
	}
	t.state = s
}

func (t *TemperatureGauge) SetName(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	t.name = name
	return nil
}

// EncodeState writes a reading as a 4 byte big-endian IEEE-754 float32.
func (t *TemperatureGauge) EncodeState() (byte, []byte) {
	if t.state.Mode != TemperatureReading {
		return byte(t.state.Mode), nil
	}
	payload := make([]byte, temperaturePayloadLen)
	binary.BigEndian.PutUint32(payload, math.Float32bits(t.state.Celsius))
	return byte(TemperatureReading), payload
}

func (t *TemperatureGauge) String() string {
	switch t.state.Mode {
	case TemperatureDisabled:
		return t.name + " temperature gauge disabled"
	case TemperatureEnabled:
		return t.name + " temperature gauge enabled"
	case TemperatureReading:
		return fmt.Sprintf("'%s' temperature: %v", t.name, t.state.Celsius)
	default:
		return fmt.Sprintf("%s in %s", t.name, t.state)
	}
}

func (*TemperatureGauge) classified() {}

func decodeTemperatureState(raw []byte) (TemperatureState, error) {
	if len(raw) == 0 {
		return TemperatureState{}, truncated("state tag", 0, 1, 0)
	}
	switch mode := TemperatureMode(raw[0]); mode {
	case TemperatureDisabled, TemperatureEnabled:
		if err := noPayload(raw); err != nil {
			return TemperatureState{}, err
		}
		return TemperatureState{Mode: mode}, nil
	case TemperatureReading:
		payload, err := statePayload(raw)
		if err != nil {
			return TemperatureState{}, err
		}
		if len(payload) != temperaturePayloadLen {
			return TemperatureState{}, &DecodeError{
				Field:  "state payload",
				Offset: 2,
				Want:   temperaturePayloadLen,
				Have:   len(payload),
				Err:    ErrMalformedPayload,
			}
		}
		return ReadingTemperature(math.Float32frombits(binary.BigEndian.Uint32(payload))), nil
	default:
		_, err := TemperatureState{Mode: mode}.normalized()
		return TemperatureState{}, &DecodeError{Field: "state tag", Offset: 0, Err: err}
	}
}
