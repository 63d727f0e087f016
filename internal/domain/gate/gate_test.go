package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testInterval = 120 * time.Second

var errTransportDown = errors.New("transport down")

// recorder counts emissions and can be told to fail.
type recorder struct {
	// err is returned by emit when set.
	err error
	// calls counts emit invocations.
	calls int
}

func (r *recorder) emit(context.Context) error {
	r.calls++

	return r.err
}

// TestParsePolicy maps mode names to policies.
func TestParsePolicy(t *testing.T) {
	t.Parallel()

	p, err := ParsePolicy(ModeEdgeInterval)
	require.NoError(t, err)
	require.IsType(t, EdgeAndInterval{}, p)
	require.Equal(t, ModeEdgeInterval, p.Mode())

	p, err = ParsePolicy(ModeLevel)
	require.NoError(t, err)
	require.IsType(t, LevelOnly{}, p)
	require.Equal(t, ModeLevel, p.Mode())

	_, err = ParsePolicy("whenever")
	require.ErrorIs(t, err, ErrUnknownMode)
}

// TestPolicies_Decisions checks both policies on the interesting inputs.
func TestPolicies_Decisions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		in    Input
		edge  bool
		level bool
	}{
		{"quiet", Input{Armed: true}, false, false},
		{"onset", Input{Armed: true, CurrAlarm: true}, true, false},
		{"clearing", Input{Armed: true, PrevAlarm: true, Elapsed: time.Hour}, true, false},
		{"persisting early", Input{Armed: true, PrevAlarm: true, CurrAlarm: true, Elapsed: time.Minute}, false, false},
		{"persisting at interval", Input{Armed: true, PrevAlarm: true, CurrAlarm: true, Elapsed: testInterval}, true, false},
		{"persisting past interval", Input{Armed: true, PrevAlarm: true, CurrAlarm: true, Elapsed: testInterval + time.Millisecond}, true, true},
		{"disarmed onset", Input{CurrAlarm: true, Elapsed: time.Hour}, false, false},
		{"disarmed persisting", Input{PrevAlarm: true, CurrAlarm: true, Elapsed: time.Hour}, false, false},
	}

	for _, tc := range cases {
		tc.in.Interval = testInterval

		require.Equal(t, tc.edge, EdgeAndInterval{}.ShouldEmit(tc.in), "edge: %s", tc.name)
		require.Equal(t, tc.level, LevelOnly{}.ShouldEmit(tc.in), "level: %s", tc.name)
	}
}

// TestGate_EdgeInterval walks an outage through the edge policy.
func TestGate_EdgeInterval(t *testing.T) {
	t.Parallel()

	var (
		ctx   = context.Background()
		start = time.Unix(1_000, 0)
		g     = New(EdgeAndInterval{}, testInterval, start)
		rec   = new(recorder)
	)

	// Healthy tick.
	d := g.Step(ctx, start.Add(time.Second), true, false, rec.emit)
	require.False(t, d.Attempted)
	require.False(t, g.PrevAlarm())

	// Onset emits at once, even right after startup.
	d = g.Step(ctx, start.Add(2*time.Second), true, true, rec.emit)
	require.True(t, d.Emitted)
	require.True(t, d.Transition)
	require.Equal(t, start.Add(2*time.Second), g.LastEmission())

	// Persisting alarm repeats once the interval is reached.
	d = g.Step(ctx, start.Add(60*time.Second), true, true, rec.emit)
	require.False(t, d.Attempted)

	d = g.Step(ctx, start.Add(2*time.Second+testInterval), true, true, rec.emit)
	require.True(t, d.Emitted)
	require.False(t, d.Transition)

	// Clearing emits at once.
	d = g.Step(ctx, start.Add(3*time.Second+testInterval), true, false, rec.emit)
	require.True(t, d.Emitted)
	require.True(t, d.Transition)

	require.Equal(t, 3, rec.calls)
}

// TestGate_LevelOnly walks an outage through the level policy.
func TestGate_LevelOnly(t *testing.T) {
	t.Parallel()

	var (
		ctx   = context.Background()
		start = time.Unix(1_000, 0)
		g     = New(LevelOnly{}, testInterval, start)
		rec   = new(recorder)
	)

	// The first alarm tick waits for a full interval since startup.
	for _, offset := range []time.Duration{time.Second, time.Minute, testInterval} {
		d := g.Step(ctx, start.Add(offset), true, true, rec.emit)
		require.False(t, d.Attempted, offset)
	}

	d := g.Step(ctx, start.Add(testInterval+time.Second), true, true, rec.emit)
	require.True(t, d.Emitted)

	// Exactly one emission per interval.
	last := start.Add(testInterval + time.Second)
	for offset := time.Second; offset <= testInterval; offset += 10 * time.Second {
		d = g.Step(ctx, last.Add(offset), true, true, rec.emit)
		require.False(t, d.Attempted, offset)
	}

	d = g.Step(ctx, last.Add(testInterval+time.Millisecond), true, true, rec.emit)
	require.True(t, d.Emitted)

	// Clearing is silent even long after the last emission.
	d = g.Step(ctx, last.Add(10*testInterval), true, false, rec.emit)
	require.False(t, d.Attempted)
	require.True(t, d.Transition)

	require.Equal(t, 2, rec.calls)
}

// TestGate_Disarmed suppresses every emission in both modes.
func TestGate_Disarmed(t *testing.T) {
	t.Parallel()

	for _, policy := range []Policy{EdgeAndInterval{}, LevelOnly{}} {
		start := time.Unix(0, 0)
		g := New(policy, testInterval, start)
		rec := new(recorder)

		alarms := []bool{true, true, false, true, false}
		for i, alarm := range alarms {
			now := start.Add(time.Duration(i+1) * 2 * testInterval)
			d := g.Step(context.Background(), now, false, alarm, rec.emit)
			require.False(t, d.Attempted, policy.Mode())
			require.Equal(t, alarm, g.PrevAlarm())
		}

		require.Zero(t, rec.calls, policy.Mode())
		require.Equal(t, start, g.LastEmission())
	}
}

// TestGate_PublishFailure keeps the baseline so the next qualifying tick retries.
func TestGate_PublishFailure(t *testing.T) {
	t.Parallel()

	var (
		ctx   = context.Background()
		start = time.Unix(0, 0)
		g     = New(LevelOnly{}, testInterval, start)
		rec   = &recorder{err: errTransportDown}
	)

	now := start.Add(testInterval + time.Second)
	d := g.Step(ctx, now, true, true, rec.emit)
	require.True(t, d.Attempted)
	require.False(t, d.Emitted)
	require.ErrorIs(t, d.Err, errTransportDown)
	require.Equal(t, start, g.LastEmission())

	// Transport recovers: the very next tick retries.
	rec.err = nil

	d = g.Step(ctx, now.Add(time.Second), true, true, rec.emit)
	require.True(t, d.Emitted)
	require.Equal(t, now.Add(time.Second), g.LastEmission())
	require.Equal(t, 2, rec.calls)
}

// TestGate_EdgeFailureRetriesOnInterval shows that a failed onset notification
// is retried once the interval since the unchanged baseline has passed.
func TestGate_EdgeFailureRetriesOnInterval(t *testing.T) {
	t.Parallel()

	var (
		ctx   = context.Background()
		start = time.Unix(0, 0)
		g     = New(EdgeAndInterval{}, testInterval, start)
		rec   = &recorder{err: errTransportDown}
	)

	d := g.Step(ctx, start.Add(time.Second), true, true, rec.emit)
	require.True(t, d.Attempted)
	require.False(t, d.Emitted)

	rec.err = nil

	d = g.Step(ctx, start.Add(2*time.Second), true, true, rec.emit)
	require.False(t, d.Attempted)

	d = g.Step(ctx, start.Add(testInterval), true, true, rec.emit)
	require.True(t, d.Emitted)
}

// TestGate_BaselineNeverMovesBack ignores clocks that step backwards.
func TestGate_BaselineNeverMovesBack(t *testing.T) {
	t.Parallel()

	start := time.Unix(10_000, 0)
	g := New(EdgeAndInterval{}, testInterval, start)
	rec := new(recorder)

	d := g.Step(context.Background(), start.Add(-time.Hour), true, true, rec.emit)
	require.True(t, d.Emitted)
	require.Zero(t, d.Elapsed)
	require.Equal(t, start, g.LastEmission())
}
