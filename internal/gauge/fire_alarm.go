package gauge

import "fmt"

type FireAlarmState byte

const (
	FireAlarmDisabled FireAlarmState = FireAlarmState(TagDisabled)
	FireAlarmEnabled  FireAlarmState = FireAlarmState(TagEnabled)
	FireAlarmOnAlert  FireAlarmState = 2
)

func (s FireAlarmState) String() string {
	switch s {
	case FireAlarmDisabled:
		return "disabled"
	case FireAlarmEnabled:
		return "enabled"
	case FireAlarmOnAlert:
		return "on_alert"
	default:
		return fmt.Sprintf("fire_alarm_state(%d)", byte(s))
	}
}

type FireAlarm struct {
	name  string
	state FireAlarmState
}

func (s FireAlarmState) valid() bool {
	return s <= FireAlarmOnAlert
}

func (s FireAlarmState) check() error {
	if !s.valid() {
		return fmt.Errorf("%w %d for %s", ErrUnknownStateTag, byte(s), KindFireAlarm)
	}
	return nil
}

// NewFireAlarm rejects names that do not fit a frame and states outside the
// fire alarm set.
func NewFireAlarm(name string, state FireAlarmState) (*FireAlarm, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := state.check(); err != nil {
		return nil, err
	}
	return &FireAlarm{name: name, state: state}, nil
}

func (f *FireAlarm) Kind() Kind { return KindFireAlarm }
func (f *FireAlarm) Name() string { return f.name }
func (f *FireAlarm) State() FireAlarmState { return f.state }

// SetState panics on a state outside the fire alarm set.
func (f *FireAlarm) SetState(s FireAlarmState) {
	if err := s.check(); err != nil {
		panic(err)
	}
	f.state = s
}

func (f *FireAlarm) SetName(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	f.name = name
	return nil
}

// EncodeState never carries a payload: an alert is signaled by the tag alone.
func (f *FireAlarm) EncodeState() (byte, []byte) {
	return byte(f.state), nil
}

func (f *FireAlarm) String() string {
	switch f.state {
	case FireAlarmDisabled:
		return f.name + " disabled"
	case FireAlarmEnabled:
		return f.name + " enabled"
	case FireAlarmOnAlert:
		return f.name + " caught fire"
	default:
		return fmt.Sprintf("%s in %s", f.name, f.state)
	}
}

func (*FireAlarm) classified() {}

func decodeFireAlarmState(raw []byte) (FireAlarmState, error) {
	if len(raw) == 0 {
		return 0, truncated("state tag", 0, 1, 0)
	}
	s := FireAlarmState(raw[0])
	if err := s.check(); err != nil {
		return 0, &DecodeError{Field: "state tag", Offset: 0, Err: err}
	}
	if err := noPayload(raw); err != nil {
		return 0, err
	}
	return s, nil
}
