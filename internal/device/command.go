package device

import (
	"errors"
	"strings"
)

var ErrInvalidInput = errors.New("invalid input")

type Op int

const (
	OpToggle Op = iota + 1
	OpTrigger
	OpAdjust
)

// Command is one parsed operator instruction.
type Command struct {
	Op    Op
	Delta float32
}

func ParseFireAlarmCommand(line string) (Command, error) {
	switch strings.TrimSpace(line) {
	case "P", "p":
		return Command{Op: OpToggle}, nil
	case "F", "f":
		return Command{Op: OpTrigger}, nil
	default:
		return Command{}, ErrInvalidInput
	}
}

// ParseThermometerCommand is case sensitive for adjustments: upper case moves
// by a whole degree, lower case by a tenth.
func ParseThermometerCommand(line string) (Command, error) {
	switch strings.TrimSpace(line) {
	case "P", "p":
		return Command{Op: OpToggle}, nil
	case "K":
		return Command{Op: OpAdjust, Delta: 1.0}, nil
	case "J":
		return Command{Op: OpAdjust, Delta: -1.0}, nil
	case "k":
		return Command{Op: OpAdjust, Delta: 0.1}, nil
	case "j":
		return Command{Op: OpAdjust, Delta: -0.1}, nil
	default:
		return Command{}, ErrInvalidInput
	}
}
