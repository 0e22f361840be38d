package gauge

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_UnknownKindPassthrough(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
	}{
		{"new kind", Envelope{KindID: []byte("smoke_detector"), Name: "Loft", RawState: []byte{5, 3, 1, 2, 3}}},
		{"case differs", Envelope{KindID: []byte("Fire_alarm"), Name: "Hall", RawState: []byte{1}}},
		{"prefix of known", Envelope{KindID: []byte("fire"), Name: "Hall", RawState: []byte{2}}},
		{"empty id", Envelope{KindID: []byte{}, Name: "", RawState: []byte{0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := EncodeEnvelope(tt.env)
			require.NoError(t, err)

			out, err := Decode(frame)
			require.NoError(t, err)
			u, ok := out.(Unknown)
			require.True(t, ok, "expected Unknown, got %T", out)
			assert.Equal(t, tt.env.KindID, u.Envelope.KindID)
			assert.Equal(t, tt.env.Name, u.Envelope.Name)
			assert.Equal(t, tt.env.RawState, u.Envelope.RawState)
		})
	}
}

func TestResolve_UnknownStateTag(t *testing.T) {
	tests := []struct {
		kind Kind
		tag  byte
	}{
		{KindFireAlarm, 3},
		{KindFireAlarm, 255},
		{KindTemperatureGauge, 3},
		{KindTemperatureGauge, 128},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.kind, tt.tag), func(t *testing.T) {
			env := Envelope{KindID: []byte(tt.kind), Name: "Kitchen", RawState: []byte{tt.tag}}
			out, err := Resolve(env)
			assert.Nil(t, out)
			require.ErrorIs(t, err, ErrUnknownStateTag)

			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "Kitchen", de.Name)
			assert.Equal(t, []byte(tt.kind), de.KindID)
		})
	}
}

func TestResolve_KnownKindCorruptBodyIsError(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		state []byte
		want  error
	}{
		{"fire alarm empty state", KindFireAlarm, nil, ErrTruncatedFrame},
		{"fire alarm trailing", KindFireAlarm, []byte{2, 0}, ErrTrailingBytes},
		{"thermometer enabled trailing", KindTemperatureGauge, []byte{1, 9}, ErrTrailingBytes},
		{"thermometer missing length", KindTemperatureGauge, []byte{2}, ErrTruncatedFrame},
		{"thermometer short payload", KindTemperatureGauge, []byte{2, 4, 0x41, 0xAC}, ErrTruncatedFrame},
		{"thermometer wrong length", KindTemperatureGauge, []byte{2, 3, 1, 2, 3}, ErrMalformedPayload},
		{"thermometer trailing", KindTemperatureGauge, []byte{2, 4, 0x41, 0xAC, 0, 0, 7}, ErrTrailingBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Resolve(Envelope{KindID: []byte(tt.kind), Name: "x", RawState: tt.state})
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.want)
			_, isUnknown := out.(Unknown)
			assert.False(t, isUnknown)
		})
	}
}

func TestDecode_ConcatenatedFramesAreRejected(t *testing.T) {
	first := Encode(&FireAlarm{name: "Kitchen", state: FireAlarmEnabled})
	second := Encode(&FireAlarm{name: "Kitchen", state: FireAlarmOnAlert})

	_, err := Decode(append(first, second...))
	assert.ErrorIs(t, err, ErrTrailingBytes)
}

func TestKinds(t *testing.T) {
	assert.ElementsMatch(t, []Kind{KindFireAlarm, KindTemperatureGauge}, Kinds())
	for _, k := range Kinds() {
		assert.LessOrEqual(t, len(k), MaxFieldLen)
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{truncated("id", 1, 4, 2), "truncated"},
		{&DecodeError{Field: "name", Err: ErrInvalidText}, "invalid_text"},
		{fmt.Errorf("wrapped: %w", ErrUnknownStateTag), "unknown_tag"},
		{ErrMalformedPayload, "malformed_payload"},
		{ErrTrailingBytes, "trailing_bytes"},
		{errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Reason(tt.err))
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		in   Classified
		want string
	}{
		{&FireAlarm{name: "Kitchen", state: FireAlarmDisabled}, "Kitchen disabled"},
		{&FireAlarm{name: "Kitchen", state: FireAlarmEnabled}, "Kitchen enabled"},
		{&FireAlarm{name: "Kitchen", state: FireAlarmOnAlert}, "Kitchen caught fire"},
		{&TemperatureGauge{name: "Den", state: DisabledTemperature()}, "Den temperature gauge disabled"},
		{&TemperatureGauge{name: "Den", state: EnabledTemperature()}, "Den temperature gauge enabled"},
		{&TemperatureGauge{name: "Den", state: ReadingTemperature(21.5)}, "'Den' temperature: 21.5"},
		{
			Unknown{Envelope: Envelope{KindID: []byte("door"), Name: "Front", RawState: []byte{3, 1, 0xff}}},
			`unknown gauge kind="door" name="Front" tag=3 payload=01ff`,
		},
		{
			Unknown{Envelope: Envelope{KindID: []byte("door"), Name: "Front", RawState: []byte{1}}},
			`unknown gauge kind="door" name="Front" tag=1 payload=none`,
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.String())
	}
}

func TestDecodeError_Message(t *testing.T) {
	err := truncated("state payload", 2, 4, 1)
	assert.Equal(t, "decode state payload at offset 2: truncated frame (want 4 bytes, have 1)", err.Error())

	err = &DecodeError{Field: "name", Offset: 12, Err: ErrInvalidText}
	assert.Equal(t, "decode name at offset 12: invalid utf-8 text", err.Error())
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, "fire_alarm", KindLabel(&FireAlarm{}))
	assert.Equal(t, "temperature_gauge", KindLabel(&TemperatureGauge{}))
	assert.Equal(t, "unknown", KindLabel(Unknown{Envelope: Envelope{KindID: []byte("a.b c")}}))
	assert.Equal(t, "", KindLabel(nil))
}
