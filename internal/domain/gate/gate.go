package gate

import (
	"context"
	"time"
)

// EmitFunc publishes one notification.
type EmitFunc func(ctx context.Context) error

// Decision describes what one Step did.
type Decision struct {
	// Err is the emit error, if an attempt failed.
	Err error
	// Elapsed is the time since the emission baseline seen by the policy.
	Elapsed time.Duration
	// Attempted is true when the policy asked for an emission.
	Attempted bool
	// Emitted is true when the emission succeeded.
	Emitted bool
	// Transition is true when the alarm condition changed on this tick.
	Transition bool
}

// Gate carries the notification state between ticks.
// It is not safe for concurrent use; the main loop owns it.
type Gate struct {
	// policy decides whether a tick emits.
	policy Policy
	// interval is the minimum spacing of repeated notifications.
	interval time.Duration
	// lastEmission is the baseline elapsed time is measured from.
	lastEmission time.Time
	// prevAlarm is the alarm condition of the previous tick.
	prevAlarm bool
}

// New returns a gate whose emission baseline is start and whose previous
// alarm condition is false.
func New(policy Policy, interval time.Duration, start time.Time) *Gate {
	return &Gate{
		policy:       policy,
		interval:     interval,
		lastEmission: start,
	}
}

// Step runs one gate cycle.
//
// When the policy asks for a notification, emit is called once. The baseline
// only moves to now when emit succeeds, so a failed attempt is retried on the
// next qualifying tick. The previous alarm condition is always replaced by
// alarm, whatever the outcome.
func (g *Gate) Step(ctx context.Context, now time.Time, armed, alarm bool, emit EmitFunc) Decision {
	elapsed := max(now.Sub(g.lastEmission), 0)

	decision := Decision{
		Elapsed:    elapsed,
		Transition: g.prevAlarm != alarm,
	}

	in := Input{
		Elapsed:   elapsed,
		Interval:  g.interval,
		Armed:     armed,
		PrevAlarm: g.prevAlarm,
		CurrAlarm: alarm,
	}

	g.prevAlarm = alarm

	if !g.policy.ShouldEmit(in) {
		return decision
	}

	decision.Attempted = true

	if err := emit(ctx); err != nil {
		decision.Err = err

		return decision
	}

	decision.Emitted = true

	if now.After(g.lastEmission) {
		g.lastEmission = now
	}

	return decision
}

// PrevAlarm returns the alarm condition recorded by the last Step.
func (g *Gate) PrevAlarm() bool {
	return g.prevAlarm
}

// LastEmission returns the current emission baseline.
func (g *Gate) LastEmission() time.Time {
	return g.lastEmission
}

// Policy returns the gate policy.
//
//nolint:ireturn // The policy is an interface by nature.
func (g *Gate) Policy() Policy {
	return g.policy
}

// Interval returns the repeat interval.
func (g *Gate) Interval() time.Duration {
	return g.interval
}
