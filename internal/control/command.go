package control

import (
	"errors"
	"fmt"
)

// Kind identifies a command.
type Kind int

// Command kinds.
const (
	KindLED Kind = iota + 1
	KindAlarm
	KindThreshold
	KindTest
)

// Result codes shared by led and alarm.
const (
	CodeInvalid int64 = -1
	CodeOff     int64 = 0
	CodeOn      int64 = 1
)

// CodeThresholdRejected is returned by threshold for rejected input.
const CodeThresholdRejected int64 = 0

// LED arguments.
const (
	LEDOn  = "on"
	LEDOff = "off"
)

// ErrUnknownCommand is returned for command names outside the closed set.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one remote command with its single string argument.
type Command struct {
	// Argument is passed verbatim to the handler.
	Argument string
	// Kind selects the handler.
	Kind Kind
}

// Names lists the command wire names.
func Names() []string {
	return []string{"led", "alarm", "threshold", "test"}
}

// ParseCommand maps a wire name and argument to a Command.
func ParseCommand(name, argument string) (Command, error) {
	var kind Kind

	switch name {
	case "led":
		kind = KindLED
	case "alarm":
		kind = KindAlarm
	case "threshold":
		kind = KindThreshold
	case "test":
		kind = KindTest
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	return Command{Argument: argument, Kind: kind}, nil
}

// String returns the wire name.
func (k Kind) String() string {
	switch k {
	case KindLED:
		return "led"
	case KindAlarm:
		return "alarm"
	case KindThreshold:
		return "threshold"
	case KindTest:
		return "test"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}
