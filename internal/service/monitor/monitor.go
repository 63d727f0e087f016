package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/power-sentinel/internal/domain/gate"
	"github.com/oshokin/power-sentinel/internal/domain/sentinel"
	"github.com/oshokin/power-sentinel/internal/logger"
	"github.com/oshokin/power-sentinel/internal/metrics"
	"github.com/oshokin/power-sentinel/internal/sensor"
)

// Monitor is the main loop. Ticks never run concurrently.
type Monitor struct {
	// source supplies readings.
	source sensor.Source
	// device is the shared state commands act on.
	device *Device
	// gate decides when a notification fires.
	gate *gate.Gate
	// now returns the tick time.
	now func() time.Time
	// tick is the loop cadence.
	tick time.Duration
}

// New returns a main loop over source and device.
func New(source sensor.Source, device *Device, notifications *gate.Gate, tick time.Duration) *Monitor {
	return &Monitor{
		source: source,
		device: device,
		gate:   notifications,
		now:    time.Now,
		tick:   tick,
	}
}

// Run ticks immediately and then once per cadence until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "main-loop")

	logger.InfoKV(ctx, "Main loop started",
		"tick", m.tick.String(),
		"gate_mode", m.gate.Policy().Mode(),
		"notify_interval", m.gate.Interval().String(),
	)

	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		if _, err := m.Tick(ctx); err != nil {
			logger.WarnKV(ctx, "Tick skipped", "error", err)
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Main loop stopped")

			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one cycle: read the sensors, evaluate the alarm condition, run
// the gate and refresh the exposed state. Armed and threshold are read once
// at the start, so a concurrent command is seen whole or not at all.
//
// A tick without any reading is skipped and leaves the gate untouched.
func (m *Monitor) Tick(ctx context.Context) (gate.Decision, error) {
	armed, threshold := m.device.settings()

	reading, err := m.source.Read(ctx)
	if err != nil {
		metrics.TicksSkippedTotal.Inc()

		return gate.Decision{}, fmt.Errorf("read sensors: %w", err)
	}

	if reading.Stale {
		metrics.StaleReadingsTotal.Inc()
	}

	alarm := sentinel.Evaluate(reading, threshold)

	decision := m.gate.Step(ctx, m.now(), armed, alarm, func(ctx context.Context) error {
		return m.device.publish(ctx, kindAlarm, sentinel.FormatNotification(reading))
	})

	if decision.Transition {
		logger.InfoKV(ctx, "Alarm condition changed",
			"alarm", alarm,
			"power_ok", reading.PowerOK,
			"ups_ok", reading.UPSOK,
			"pressure", reading.Pressure,
			"threshold", threshold,
			"armed", armed,
		)
	}

	if decision.Err != nil {
		logger.ErrorKV(ctx, "Notification not published, will retry", "error", decision.Err)
	}

	m.device.record(reading)

	metrics.AlarmActive.Set(metrics.Bool(alarm))
	metrics.TicksTotal.Inc()

	return decision, nil
}
