package gauge

import (
	"errors"
	"fmt"
)

// Classified is the result of routing an envelope by kind. It is implemented by
// *FireAlarm, *TemperatureGauge and Unknown only; callers switch on the type.
type Classified interface {
	fmt.Stringer
	classified()
}

// Unknown carries a well-formed frame whose kind id this registry does not know.
type Unknown struct {
	Envelope Envelope
}

func (u Unknown) String() string {
	return "unknown gauge " + u.Envelope.String()
}

func (Unknown) classified() {}

// Kinds lists the kinds Resolve knows how to decode.
func Kinds() []Kind {
	return []Kind{KindFireAlarm, KindTemperatureGauge}
}

// Resolve routes env to its kind decoder by exact id match. Unrecognized ids are
// returned as Unknown; a recognized kind with a bad state is an error.
func Resolve(env Envelope) (Classified, error) {
	switch Kind(env.KindID) {
	case KindFireAlarm:
		s, err := decodeFireAlarmState(env.RawState)
		if err != nil {
			return nil, annotate(err, env)
		}
		return &FireAlarm{name: env.Name, state: s}, nil
	case KindTemperatureGauge:
		s, err := decodeTemperatureState(env.RawState)
		if err != nil {
			return nil, annotate(err, env)
		}
		return &TemperatureGauge{name: env.Name, state: s}, nil
	default:
		return Unknown{Envelope: env}, nil
	}
}

// Decode runs a whole frame through DecodeEnvelope and Resolve.
func Decode(frame []byte) (Classified, error) {
	env, err := DecodeEnvelope(frame)
	if err != nil {
		return nil, err
	}
	return Resolve(env)
}

// annotate tags a state error with the frame it came from and moves its
// offset from the start of the state to the start of the frame.
func annotate(err error, env Envelope) error {
	var de *DecodeError
	if errors.As(err, &de) {
		de.KindID = env.KindID
		de.Name = env.Name
		de.Offset += stateOffset(env)
	}
	return err
}

// KindLabel names the variant of c for logs and metric labels. Unrecognized
// kinds report "unknown" rather than their raw id.
func KindLabel(c Classified) string {
	switch c.(type) {
	case *FireAlarm:
		return string(KindFireAlarm)
	case *TemperatureGauge:
		return string(KindTemperatureGauge)
	case Unknown:
		return "unknown"
	default:
		return ""
	}
}

// stateOffset is where the state tag sits in the frame env was decoded from.
func stateOffset(env Envelope) int {
	return 1 + len(env.KindID) + 1 + len(env.Name)
}
