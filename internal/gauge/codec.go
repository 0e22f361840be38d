// Package gauge implements the binary frame format sensors use to report state
// and the registry that turns a frame back into a typed gauge.
package gauge

import (
	"fmt"
	"unicode/utf8"
)

// MaxFieldLen is the largest id, name or payload a single length byte can describe.
const MaxFieldLen = 255

type Kind string

const (
	KindFireAlarm        Kind = "fire_alarm"
	KindTemperatureGauge Kind = "temperature_gauge"
)

// Gauge is a typed sensor value that can be put on the wire. EncodeState returns
// the state tag and, for payload-carrying variants, a non-nil payload.
type Gauge interface {
	fmt.Stringer
	Kind() Kind
	Name() string
	EncodeState() (tag byte, payload []byte)
}

// Shared tags. Higher tags are kind specific.
const (
	TagDisabled byte = 0
	TagEnabled  byte = 1
)

// ValidateName reports whether name fits in a frame.
func ValidateName(name string) error {
	if len(name) > MaxFieldLen {
		return fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(name))
	}
	if !utf8.ValidString(name) {
		return ErrInvalidText
	}
	return nil
}

// Encode lays g out as [id_len][id][name_len][name][tag] followed by
// [payload_len][payload] when the state carries a payload.
func Encode(g Gauge) []byte {
	id := g.Kind()
	name := g.Name()
	tag, payload := g.EncodeState()

	size := 1 + len(id) + 1 + len(name) + 1
	if payload != nil {
		size += 1 + len(payload)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, byte(len(id)))
	buf = append(buf, id...)
	buf = append(buf, byte(len(name)))
	buf = append(buf, name...)
	buf = append(buf, tag)
	if payload != nil {
		buf = append(buf, byte(len(payload)))
		buf = append(buf, payload...)
	}
	return buf
}

// EncodeEnvelope re-frames an envelope as-is. The state bytes are written
// verbatim after the name.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	if len(env.KindID) > MaxFieldLen {
		return nil, fmt.Errorf("kind id: %d bytes exceeds %d", len(env.KindID), MaxFieldLen)
	}
	if err := ValidateName(env.Name); err != nil {
		return nil, err
	}
	if len(env.RawState) == 0 {
		return nil, fmt.Errorf("empty state: %w", ErrTruncatedFrame)
	}
	buf := make([]byte, 0, 2+len(env.KindID)+len(env.Name)+len(env.RawState))
	buf = append(buf, byte(len(env.KindID)))
	buf = append(buf, env.KindID...)
	buf = append(buf, byte(len(env.Name)))
	buf = append(buf, env.Name...)
	buf = append(buf, env.RawState...)
	return buf, nil
}

// DecodeEnvelope splits a frame into its id, name and uninterpreted state bytes.
// The returned envelope does not alias b.
func DecodeEnvelope(b []byte) (Envelope, error) {
	off := 0
	if len(b) < 1 {
		return Envelope{}, truncated("id length", off, 1, 0)
	}
	idLen := int(b[off])
	off++
	if len(b)-off < idLen {
		return Envelope{}, truncated("id", off, idLen, len(b)-off)
	}
	kindID := make([]byte, idLen)
	copy(kindID, b[off:off+idLen])
	off += idLen

	if len(b)-off < 1 {
		e := truncated("name length", off, 1, 0)
		e.KindID = kindID
		return Envelope{}, e
	}
	nameLen := int(b[off])
	off++
	if len(b)-off < nameLen {
		e := truncated("name", off, nameLen, len(b)-off)
		e.KindID = kindID
		return Envelope{}, e
	}
	nameBytes := b[off : off+nameLen]
	if !utf8.Valid(nameBytes) {
		return Envelope{}, &DecodeError{Field: "name", Offset: off, KindID: kindID, Err: ErrInvalidText}
	}
	name := string(nameBytes)
	off += nameLen

	if len(b)-off < 1 {
		e := truncated("state tag", off, 1, 0)
		e.KindID = kindID
		e.Name = name
		return Envelope{}, e
	}

	rawState := make([]byte, len(b)-off)
	copy(rawState, b[off:])
	return Envelope{KindID: kindID, Name: name, RawState: rawState}, nil
}

// statePayload reads a payload-carrying state: raw[0] is the tag, raw[1] the
// payload length and raw[2:] the payload. Offsets are relative to the state.
func statePayload(raw []byte) ([]byte, error) {
	if len(raw) < 2 {
		return nil, truncated("state length", 1, 1, 0)
	}
	n := int(raw[1])
	if len(raw)-2 < n {
		return nil, truncated("state payload", 2, n, len(raw)-2)
	}
	if len(raw)-2 > n {
		return nil, &DecodeError{Field: "state payload", Offset: 2 + n, Err: ErrTrailingBytes}
	}
	return raw[2:], nil
}

func noPayload(raw []byte) error {
	if len(raw) > 1 {
		return &DecodeError{Field: "state", Offset: 1, Err: ErrTrailingBytes}
	}
	return nil
}
