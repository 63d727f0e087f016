package sensor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/power-sentinel/internal/config"
	"github.com/oshokin/power-sentinel/internal/domain/sentinel"
	"github.com/oshokin/power-sentinel/internal/logger"
)

// Subscriber is the part of the MQTT session the source needs.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler mqtt.MessageHandler) error
}

// ErrBadPayload is returned for payloads that are not integers.
var ErrBadPayload = errors.New("bad sensor payload")

// MQTTSource follows raw sensor values published by a sensor node.
//
// The power topic carries the PMIC status byte, the UPS topic the UPS sense
// ADC counts and the pressure topic the gauge ADC counts, all as decimal text.
// A reading is flagged stale once any topic has been silent for longer than
// the configured max age.
type MQTTSource struct {
	// topics are the subscribed topics.
	topics config.MQTTSensorConfig
	// now stamps updates.
	now func() time.Time

	// mu protects the fields below.
	mu         sync.RWMutex
	powerOK    bool
	upsOK      bool
	pressure   float64
	updatedAt  time.Time
	powerAt    time.Time
	upsAt      time.Time
	pressureAt time.Time
}

// NewMQTTSource returns a source for the given topics. Call Start to subscribe.
func NewMQTTSource(topics config.MQTTSensorConfig) *MQTTSource {
	return &MQTTSource{
		topics: topics,
		now:    time.Now,
	}
}

// Start subscribes to the sensor topics.
func (s *MQTTSource) Start(ctx context.Context, subscriber Subscriber) error {
	ctx = logger.WithName(ctx, "mqtt-sensor")

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		if err := s.handle(msg.Topic(), msg.Payload()); err != nil {
			logger.WarnKV(ctx, "Ignoring sensor message", "topic", msg.Topic(), "error", err)
		}
	}

	for _, topic := range []string{s.topics.PowerTopic, s.topics.UPSTopic, s.topics.PressureTopic} {
		if err := subscriber.Subscribe(ctx, topic, handler); err != nil {
			return err
		}
	}

	return nil
}

// Read implements Source.
func (s *MQTTSource) Read(context.Context) (sentinel.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.powerAt.IsZero() || s.upsAt.IsZero() || s.pressureAt.IsZero() {
		return sentinel.Reading{}, ErrNoReading
	}

	reading := sentinel.Reading{
		Timestamp: s.updatedAt,
		Pressure:  s.pressure,
		PowerOK:   s.powerOK,
		UPSOK:     s.upsOK,
	}

	if s.topics.MaxAge > 0 && s.now().Sub(s.oldestUpdate()) > s.topics.MaxAge {
		return reading.AsStale(), nil
	}

	return reading, nil
}

// oldestUpdate is the time of the least recently updated topic.
func (s *MQTTSource) oldestUpdate() time.Time {
	oldest := s.powerAt

	for _, at := range []time.Time{s.upsAt, s.pressureAt} {
		if at.Before(oldest) {
			oldest = at
		}
	}

	return oldest
}

// handle applies one raw value.
func (s *MQTTSource) handle(topic string, payload []byte) error {
	value, err := strconv.ParseInt(strings.TrimSpace(string(payload)), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrBadPayload, payload)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	switch topic {
	case s.topics.PowerTopic:
		s.powerOK = PowerFromStatus(byte(value)) //nolint:gosec // The status register is one byte wide.
		s.powerAt = now
	case s.topics.UPSTopic:
		s.upsOK = UPSFromCounts(value)
		s.upsAt = now
	case s.topics.PressureTopic:
		s.pressure = PressureFromCounts(value)
		s.pressureAt = now
	default:
		return fmt.Errorf("unexpected topic %q", topic)
	}

	s.updatedAt = now

	return nil
}
