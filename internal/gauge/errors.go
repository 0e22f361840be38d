package gauge

import (
	"errors"
	"fmt"
)

var (
	ErrTruncatedFrame   = errors.New("truncated frame")
	ErrInvalidText      = errors.New("invalid utf-8 text")
	ErrUnknownStateTag  = errors.New("unknown state tag")
	ErrMalformedPayload = errors.New("malformed state payload")
	ErrTrailingBytes    = errors.New("trailing bytes after state")
	ErrNameTooLong      = errors.New("name exceeds 255 bytes")
)

// DecodeError describes where a frame stopped making sense. KindID and Name hold
// whatever was recovered before the failure so a misbehaving sender can be found.
// Offset counts from the first byte of the frame.
type DecodeError struct {
	Field  string
	Offset int
	Want   int
	Have   int
	KindID []byte
	Name   string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode %s at offset %d: %v", e.Field, e.Offset, e.Err)
	if e.Want > 0 || e.Have > 0 {
		msg += fmt.Sprintf(" (want %d bytes, have %d)", e.Want, e.Have)
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Reason maps a decode failure to a short label for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTruncatedFrame):
		return "truncated"
	case errors.Is(err, ErrInvalidText):
		return "invalid_text"
	case errors.Is(err, ErrUnknownStateTag):
		return "unknown_tag"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, ErrTrailingBytes):
		return "trailing_bytes"
	default:
		return "other"
	}
}

func truncated(field string, offset, want, have int) *DecodeError {
	return &DecodeError{Field: field, Offset: offset, Want: want, Have: have, Err: ErrTruncatedFrame}
}
