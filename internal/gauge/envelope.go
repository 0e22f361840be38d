package gauge

import (
	"encoding/hex"
	"fmt"
	"strconv"
)

// Envelope is a frame whose state has not been interpreted yet.
type Envelope struct {
	KindID   []byte
	Name     string
	RawState []byte
}

// Tag returns the state tag, or false when the state is empty.
func (e Envelope) Tag() (byte, bool) {
	if len(e.RawState) == 0 {
		return 0, false
	}
	return e.RawState[0], true
}

func (e Envelope) String() string {
	tag := "none"
	if t, ok := e.Tag(); ok {
		tag = strconv.Itoa(int(t))
	}
	payload := "none"
	if len(e.RawState) > 1 {
		payload = hex.EncodeToString(e.RawState[1:])
	}
	return fmt.Sprintf("kind=%q name=%q tag=%s payload=%s", e.KindID, e.Name, tag, payload)
}
