package sentinel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// TestMessage is the payload of the forced test notification.
	TestMessage = "TEST: This is a test event"

	// StatusSetup is the status reported before the first tick.
	StatusSetup = "setup"
)

// ErrMalformedStatus is returned by ParseStatus for unparsable input.
var ErrMalformedStatus = errors.New("malformed status")

// Status is a snapshot of the exposed device state.
type Status struct {
	// Pressure is the latest pressure in mbar.
	Pressure float64
	// Threshold is the pressure alarm threshold in mbar.
	Threshold float64
	// PowerOK mirrors the latest external power reading.
	PowerOK bool
	// UPSOK mirrors the latest UPS power reading.
	UPSOK bool
	// Armed mirrors the armed flag.
	Armed bool
}

// FormatNotification renders the alarm notification payload for r.
func FormatNotification(r Reading) string {
	return fmt.Sprintf("Power %s, UPS %s, Pressure %.2f mbar", okOrDown(r.PowerOK), okOrDown(r.UPSOK), r.Pressure)
}

// String renders the status in the compact key:value form polled by observers.
// The threshold is truncated to an integer.
func (s Status) String() string {
	return fmt.Sprintf("power:%d,ups:%d,pressure:%.2f,pthresh:%d,armed:%d",
		boolToInt(s.PowerOK),
		boolToInt(s.UPSOK),
		s.Pressure,
		ThresholdCode(s.Threshold),
		boolToInt(s.Armed),
	)
}

// ParseStatus parses the output of Status.String.
func ParseStatus(text string) (Status, error) {
	var (
		status Status
		seen   int
	)

	for pair := range strings.SplitSeq(strings.TrimSpace(text), ",") {
		key, value, ok := strings.Cut(pair, ":")
		if !ok {
			return Status{}, fmt.Errorf("%w: pair %q", ErrMalformedStatus, pair)
		}

		var err error

		switch key {
		case "power":
			status.PowerOK, err = parseFlag(value)
		case "ups":
			status.UPSOK, err = parseFlag(value)
		case "armed":
			status.Armed, err = parseFlag(value)
		case "pressure":
			status.Pressure, err = strconv.ParseFloat(value, 64)
		case "pthresh":
			status.Threshold, err = strconv.ParseFloat(value, 64)
		default:
			return Status{}, fmt.Errorf("%w: unknown key %q", ErrMalformedStatus, key)
		}

		if err != nil {
			return Status{}, fmt.Errorf("%w: %s: %w", ErrMalformedStatus, key, err)
		}

		seen++
	}

	if seen != 5 { //nolint:mnd // power, ups, pressure, pthresh, armed.
		return Status{}, fmt.Errorf("%w: expected 5 fields, got %d", ErrMalformedStatus, seen)
	}

	return status, nil
}

func parseFlag(value string) (bool, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return false, err
	}

	return n != 0, nil
}

func okOrDown(ok bool) string {
	if ok {
		return "OK"
	}

	return "DOWN"
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
