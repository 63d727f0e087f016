package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/power-sentinel/internal/config"
	"github.com/oshokin/power-sentinel/internal/logger"
)

// QoS levels.
const (
	QoSNoConfirmation  byte = 0
	QoSReqConfirmation byte = 1
	QoSHandshake       byte = 2
)

const (
	keepAlive            = 30 * time.Second
	maxReconnectInterval = 2 * time.Minute
	connectTimeout       = 10 * time.Second
	disconnectQuiesce    = 250 // milliseconds
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("mqtt operation timed out")

// Session is a connected MQTT client plus the subscriptions to restore on reconnect.
type Session struct {
	// client is the underlying paho client.
	client mqtt.Client
	// qos is the default quality of service.
	qos byte
	// subscriptions remembers handlers by topic filter.
	subscriptions map[string]mqtt.MessageHandler
	// mu protects subscriptions.
	mu sync.RWMutex
}

// Connect opens a session to the configured broker.
func Connect(ctx context.Context, cfg *config.MQTTConfig) (*Session, error) {
	ctx = logger.WithName(ctx, "mqtt")

	s := &Session{
		qos:           cfg.QoS,
		subscriptions: make(map[string]mqtt.MessageHandler),
	}

	options := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetKeepAlive(keepAlive).
		SetConnectTimeout(connectTimeout).
		SetMaxReconnectInterval(maxReconnectInterval).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.ErrorKV(ctx, "MQTT connection lost", "broker", cfg.Broker, "error", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.InfoKV(ctx, "MQTT connection established", "broker", cfg.Broker)
			s.resubscribe(ctx, c)
		})

	s.client = mqtt.NewClient(options)

	if err := wait(ctx, s.client.Connect()); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}

	return s, nil
}

// QoS returns the default quality of service of the session.
func (s *Session) QoS() byte {
	return s.qos
}

// Publish sends payload to topic and waits for the broker acknowledgement.
func (s *Session) Publish(ctx context.Context, topic string, retained bool, payload []byte) error {
	if err := wait(ctx, s.client.Publish(topic, s.qos, retained, payload)); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	return nil
}

// Subscribe registers handler for topic and remembers it for reconnects.
func (s *Session) Subscribe(ctx context.Context, topic string, handler mqtt.MessageHandler) error {
	if err := wait(ctx, s.client.Subscribe(topic, s.qos, handler)); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	s.mu.Lock()
	s.subscriptions[topic] = handler
	s.mu.Unlock()

	return nil
}

// Close disconnects from the broker.
func (s *Session) Close() {
	if s == nil || s.client == nil {
		return
	}

	s.client.Disconnect(disconnectQuiesce)
}

// resubscribe restores remembered subscriptions after a reconnect.
func (s *Session) resubscribe(ctx context.Context, c mqtt.Client) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for topic, handler := range s.subscriptions {
		// The callback runs on the paho goroutine; wait without blocking it forever.
		token := c.Subscribe(topic, s.qos, handler)
		if !token.WaitTimeout(connectTimeout) {
			logger.ErrorKV(ctx, "MQTT resubscribe timed out", "topic", topic)
			continue
		}

		if err := token.Error(); err != nil {
			logger.ErrorKV(ctx, "MQTT resubscribe failed", "topic", topic, "error", err)
		}
	}
}

// wait blocks until token completes or ctx is done.
func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
}
