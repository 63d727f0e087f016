package control

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/oshokin/power-sentinel/internal/domain/sentinel"
	"github.com/oshokin/power-sentinel/internal/logger"
	"github.com/oshokin/power-sentinel/internal/metrics"
)

// Variable names.
const (
	VariablePower     = "power"
	VariableUPSPower  = "upspower"
	VariablePressure  = "pressure"
	VariableStatus    = "status"
	VariableArmed     = "armed"
	VariableThreshold = "threshold"
)

var (
	// ErrUnknownVariable is returned for variable names that are not exposed.
	ErrUnknownVariable = errors.New("unknown variable")
	// ErrThrottled is returned when commands arrive faster than allowed.
	ErrThrottled = errors.New("too many commands")
)

// Variables is the read-only state exposed to observers.
type Variables struct {
	// Status is the formatted snapshot, or "setup" before the first tick.
	Status string
	// Pressure is the latest pressure in mbar.
	Pressure float64
	// Threshold is the current pressure alarm threshold.
	Threshold float64
	// PowerOK mirrors the latest external power reading.
	PowerOK bool
	// UPSOK mirrors the latest UPS power reading.
	UPSOK bool
	// Armed mirrors the armed flag.
	Armed bool
}

// Target is the device state commands act on. Each method must apply
// atomically with respect to the main loop.
type Target interface {
	SetArmed(armed bool)
	SetThreshold(text string) (float64, error)
	SetLED(ctx context.Context, on bool) error
	PublishTest(ctx context.Context) error
	Variables() Variables
}

// Surface dispatches commands to a Target and exposes its variables.
type Surface struct {
	// target receives the commands.
	target Target
	// limiter throttles commands across all callers; nil disables throttling.
	limiter *rate.Limiter
}

// NewSurface returns a surface over target. A nil limiter disables throttling.
func NewSurface(target Target, limiter *rate.Limiter) *Surface {
	return &Surface{
		target:  target,
		limiter: limiter,
	}
}

// Call parses and dispatches a named command on behalf of actor.
func (s *Surface) Call(ctx context.Context, name, argument string, actor *sentinel.Actor) (int64, error) {
	cmd, err := ParseCommand(name, argument)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues("unknown", "invalid").Inc()

		return 0, err
	}

	if s.limiter != nil && !s.limiter.Allow() {
		metrics.CommandsTotal.WithLabelValues(name, "throttled").Inc()

		return 0, ErrThrottled
	}

	code := s.Dispatch(ctx, cmd)

	logger.InfoKV(ctx, "Command handled",
		"command", name,
		"argument", argument,
		"code", code,
		"actor", actor.String(),
	)

	return code, nil
}

// Dispatch runs cmd and returns its result code.
func (s *Surface) Dispatch(ctx context.Context, cmd Command) int64 {
	var (
		code     int64
		accepted bool
	)

	switch cmd.Kind {
	case KindLED:
		code, accepted = s.led(ctx, cmd.Argument)
	case KindAlarm:
		code, accepted = s.alarm(cmd.Argument)
	case KindThreshold:
		code, accepted = s.threshold(ctx, cmd.Argument)
	case KindTest:
		code, accepted = s.test(ctx), true
	default:
		code = CodeInvalid
	}

	result := "ok"
	if !accepted {
		result = "invalid"
	}

	metrics.CommandsTotal.WithLabelValues(cmd.Kind.String(), result).Inc()

	return code
}

// Variable returns the named variable: power and upspower as 0/1 integers,
// pressure and threshold as floats, armed as 0/1 and status as a string.
func (s *Surface) Variable(name string) (any, error) {
	vars := s.target.Variables()

	switch name {
	case VariablePower:
		return boolCode(vars.PowerOK), nil
	case VariableUPSPower:
		return boolCode(vars.UPSOK), nil
	case VariablePressure:
		return vars.Pressure, nil
	case VariableStatus:
		return vars.Status, nil
	case VariableArmed:
		return boolCode(vars.Armed), nil
	case VariableThreshold:
		return vars.Threshold, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
}

// VariableNames lists the exposed variables.
func VariableNames() []string {
	return []string{VariablePower, VariableUPSPower, VariablePressure, VariableStatus, VariableArmed, VariableThreshold}
}

// led drives the output. A failure to drive it is reported as invalid so the
// caller never sees a level the output does not have.
func (s *Surface) led(ctx context.Context, argument string) (int64, bool) {
	var on bool

	switch argument {
	case LEDOn:
		on = true
	case LEDOff:
	default:
		return CodeInvalid, false
	}

	if err := s.target.SetLED(ctx, on); err != nil {
		logger.ErrorKV(ctx, "Failed to drive LED", "error", err)

		return CodeInvalid, false
	}

	return boolCode(on), true
}

func (s *Surface) alarm(argument string) (int64, bool) {
	armed, result := sentinel.ParseArm(argument)
	if result == sentinel.ArmInvalid {
		return CodeInvalid, false
	}

	s.target.SetArmed(armed)

	return int64(result), true
}

func (s *Surface) threshold(ctx context.Context, argument string) (int64, bool) {
	value, err := s.target.SetThreshold(argument)
	if err != nil {
		logger.WarnKV(ctx, "Threshold update rejected", "argument", argument, "error", err)

		return CodeThresholdRejected, false
	}

	return sentinel.ThresholdCode(value), true
}

// test publishes the test event. It reports success even when the transport
// fails; the failure is logged and counted.
func (s *Surface) test(ctx context.Context) int64 {
	if err := s.target.PublishTest(ctx); err != nil {
		logger.ErrorKV(ctx, "Test event not published", "error", err)
	}

	return CodeOn
}

func boolCode(b bool) int64 {
	if b {
		return CodeOn
	}

	return CodeOff
}
