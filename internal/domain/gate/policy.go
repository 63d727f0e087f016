package gate

import (
	"errors"
	"fmt"
	"time"
)

// Policy names.
const (
	ModeEdgeInterval = "edge_interval"
	ModeLevel        = "level"
)

// ErrUnknownMode is returned by ParsePolicy for unsupported mode names.
var ErrUnknownMode = errors.New("unknown gate mode")

// Input is everything a Policy looks at.
type Input struct {
	// Elapsed is the time since the last emission (or since startup).
	Elapsed time.Duration
	// Interval is the minimum spacing of repeated notifications.
	Interval time.Duration
	// Armed permits emissions at all.
	Armed bool
	// PrevAlarm is the alarm condition of the previous tick.
	PrevAlarm bool
	// CurrAlarm is the alarm condition of this tick.
	CurrAlarm bool
}

// Policy decides whether a tick emits a notification.
type Policy interface {
	// ShouldEmit reports whether a notification must be emitted.
	ShouldEmit(in Input) bool
	// Mode returns the configuration name of the policy.
	Mode() string
}

// EdgeAndInterval emits on every alarm transition, onset or clearing, and
// again every Interval while the alarm persists.
type EdgeAndInterval struct{}

// ShouldEmit implements Policy.
func (EdgeAndInterval) ShouldEmit(in Input) bool {
	if !in.Armed {
		return false
	}

	return in.PrevAlarm != in.CurrAlarm || (in.CurrAlarm && in.Elapsed >= in.Interval)
}

// Mode implements Policy.
func (EdgeAndInterval) Mode() string { return ModeEdgeInterval }

// LevelOnly emits only while the alarm is active and strictly more than
// Interval has passed since the last emission. Clearing is silent and the
// first alarm tick waits for a full interval.
type LevelOnly struct{}

// ShouldEmit implements Policy.
func (LevelOnly) ShouldEmit(in Input) bool {
	return in.Armed && in.CurrAlarm && in.Elapsed > in.Interval
}

// Mode implements Policy.
func (LevelOnly) Mode() string { return ModeLevel }

// ParsePolicy returns the policy registered under mode.
//
//nolint:ireturn // Callers pick the policy at runtime.
func ParsePolicy(mode string) (Policy, error) {
	switch mode {
	case ModeEdgeInterval:
		return EdgeAndInterval{}, nil
	case ModeLevel:
		return LevelOnly{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
