package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/power-sentinel/internal/control"
	"github.com/oshokin/power-sentinel/internal/domain/sentinel"
	"github.com/oshokin/power-sentinel/internal/logger"
	"github.com/oshokin/power-sentinel/internal/metrics"
	"github.com/oshokin/power-sentinel/internal/output"
	"github.com/oshokin/power-sentinel/internal/publisher"
)

// Notification kinds used in metrics.
const (
	kindAlarm = "alarm"
	kindTest  = "test"
)

// DeviceOptions configures a Device.
type DeviceOptions struct {
	// Pin is the auxiliary output driven by the led command.
	Pin output.Pin
	// Publisher emits notifications.
	Publisher publisher.Publisher
	// Template carries the fixed event attributes.
	Template publisher.Template
	// Threshold is the initial pressure alarm threshold; zero means the default.
	Threshold float64
	// PublishTimeout bounds a single publish call; zero disables the bound.
	PublishTimeout time.Duration
}

// Device is the state shared by the main loop and the command surface.
//
// Commands mutate it under mu, so a tick observes either all or none of a
// command's effect.
type Device struct {
	// pin is the auxiliary output.
	pin output.Pin
	// publisher emits alarm and test notifications.
	publisher publisher.Publisher
	// template builds events.
	template publisher.Template
	// publishTimeout bounds a single publish call.
	publishTimeout time.Duration

	// mu protects the fields below.
	mu sync.RWMutex
	// threshold is the pressure alarm threshold.
	threshold *sentinel.ThresholdStore
	// reading is the reading of the last completed tick.
	reading sentinel.Reading
	// status is the formatted snapshot, "setup" until the first tick.
	status string
	// armed permits notifications.
	armed bool
}

// NewDevice returns an armed device with the given collaborators.
func NewDevice(opts DeviceOptions) *Device {
	d := &Device{
		pin:            opts.Pin,
		publisher:      opts.Publisher,
		template:       opts.Template,
		publishTimeout: opts.PublishTimeout,
		threshold:      sentinel.NewThresholdStore(opts.Threshold),
		status:         sentinel.StatusSetup,
		armed:          true,
	}

	if d.pin == nil {
		d.pin = output.NewMemoryPin()
	}

	if d.publisher == nil {
		d.publisher = publisher.NewLogPublisher()
	}

	metrics.Armed.Set(metrics.Bool(d.armed))
	metrics.Threshold.Set(d.threshold.Get())

	return d
}

// SetArmed sets the armed flag.
func (d *Device) SetArmed(armed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.armed = armed
	metrics.Armed.Set(metrics.Bool(armed))
}

// SetThreshold parses and stores a new threshold. Rejected input leaves the
// threshold unchanged.
func (d *Device) SetThreshold(text string) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	value, err := d.threshold.Set(text)
	if err != nil {
		return value, fmt.Errorf("set threshold: %w", err)
	}

	metrics.Threshold.Set(value)

	return value, nil
}

// SetLED drives the auxiliary output.
func (d *Device) SetLED(ctx context.Context, on bool) error {
	if err := d.pin.Set(ctx, on); err != nil {
		return fmt.Errorf("set output: %w", err)
	}

	return nil
}

// PublishTest forces one notification carrying the test message.
func (d *Device) PublishTest(ctx context.Context) error {
	return d.publish(ctx, kindTest, sentinel.TestMessage)
}

// Variables returns the exposed state.
func (d *Device) Variables() control.Variables {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return control.Variables{
		Status:    d.status,
		Pressure:  d.reading.Pressure,
		Threshold: d.threshold.Get(),
		PowerOK:   d.reading.PowerOK,
		UPSOK:     d.reading.UPSOK,
		Armed:     d.armed,
	}
}

// LED returns the last level the output was driven to.
func (d *Device) LED() bool {
	return d.pin.State()
}

// settings snapshots the values a tick evaluates against.
func (d *Device) settings() (armed bool, threshold float64) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.armed, d.threshold.Get()
}

// record stores the reading of a completed tick and refreshes the status.
func (d *Device) record(r sentinel.Reading) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.reading = r
	d.status = sentinel.Status{
		Pressure:  r.Pressure,
		Threshold: d.threshold.Get(),
		PowerOK:   r.PowerOK,
		UPSOK:     r.UPSOK,
		Armed:     d.armed,
	}.String()

	metrics.PowerOK.Set(metrics.Bool(r.PowerOK))
	metrics.UPSOK.Set(metrics.Bool(r.UPSOK))
	metrics.Pressure.Set(r.Pressure)
}

// publish emits one event with data and counts the outcome.
func (d *Device) publish(ctx context.Context, kind, data string) error {
	if d.publishTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, d.publishTimeout)
		defer cancel()
	}

	event := d.template.New(data, time.Now())

	if err := d.publisher.Publish(ctx, event); err != nil {
		metrics.NotificationsTotal.WithLabelValues(kind, "failed").Inc()

		return fmt.Errorf("publish %s event: %w", kind, err)
	}

	metrics.NotificationsTotal.WithLabelValues(kind, "sent").Inc()

	logger.InfoKV(ctx, "Notification published", "kind", kind, "event_id", event.ID, "data", data)

	return nil
}
