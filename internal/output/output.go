// Package output drives the auxiliary digital output (the LED, reserved for a
// future LN2 cooling relay).
package output

import (
	"context"
	"fmt"
	"sync"
)

// Pin is a digital output.
type Pin interface {
	// Set drives the output high (on) or low.
	Set(ctx context.Context, on bool) error
	// State returns the last level successfully set.
	State() bool
}

// MemoryPin keeps the level in memory only.
type MemoryPin struct {
	on bool
	mu sync.RWMutex
}

// NewMemoryPin returns a pin that starts low.
func NewMemoryPin() *MemoryPin {
	return new(MemoryPin)
}

// Set implements Pin.
func (p *MemoryPin) Set(_ context.Context, on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.on = on

	return nil
}

// State implements Pin.
func (p *MemoryPin) State() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.on
}

// BrokerPublisher is the part of the MQTT session the pin needs.
type BrokerPublisher interface {
	Publish(ctx context.Context, topic string, retained bool, payload []byte) error
}

// MQTTPin publishes the level as a retained "on"/"off" message so a relay
// node picks it up after reconnecting.
type MQTTPin struct {
	broker BrokerPublisher
	topic  string
	on     bool
	mu     sync.Mutex
}

// NewMQTTPin returns a pin publishing to topic.
func NewMQTTPin(broker BrokerPublisher, topic string) *MQTTPin {
	return &MQTTPin{
		broker: broker,
		topic:  topic,
	}
}

// Set implements Pin. The state only changes when the broker accepted it.
func (p *MQTTPin) Set(ctx context.Context, on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	payload := "off"
	if on {
		payload = "on"
	}

	if err := p.broker.Publish(ctx, p.topic, true, []byte(payload)); err != nil {
		return fmt.Errorf("drive output: %w", err)
	}

	p.on = on

	return nil
}

// State implements Pin.
func (p *MQTTPin) State() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.on
}
