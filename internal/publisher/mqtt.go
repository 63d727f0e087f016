package publisher

import (
	"context"
	"strings"
)

// BrokerPublisher is the part of the MQTT session the publisher needs.
type BrokerPublisher interface {
	Publish(ctx context.Context, topic string, retained bool, payload []byte) error
}

// MQTTPublisher sends events to "<prefix>/<event name>".
type MQTTPublisher struct {
	// broker is the connected session.
	broker BrokerPublisher
	// prefix is prepended to every topic.
	prefix string
}

// NewMQTTPublisher returns a publisher writing below prefix.
func NewMQTTPublisher(broker BrokerPublisher, prefix string) *MQTTPublisher {
	return &MQTTPublisher{
		broker: broker,
		prefix: strings.TrimSuffix(prefix, "/"),
	}
}

// Topic returns the topic an event with the given name is sent to.
func (p *MQTTPublisher) Topic(name string) string {
	return p.prefix + "/" + name
}

// Publish implements Publisher. Events are not retained: a subscriber that
// connects later must not see an outdated alarm.
func (p *MQTTPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := Encode(event)
	if err != nil {
		return err
	}

	return p.broker.Publish(ctx, p.Topic(event.Name), false, payload)
}
