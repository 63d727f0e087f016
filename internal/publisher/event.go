package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event scopes.
const (
	ScopePrivate = "private"
	ScopePublic  = "public"
)

// Event is one notification.
type Event struct {
	// PublishedAt is when the event was created.
	PublishedAt time.Time
	// ID uniquely identifies the event.
	ID string
	// Name is the event name, e.g. "external_power".
	Name string
	// Data is the human readable payload.
	Data string
	// Scope restricts who may see the event.
	Scope string
	// TTL is how long the event stays relevant.
	TTL time.Duration
}

// Publisher emits events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Template carries the fixed event attributes from configuration.
type Template struct {
	// Name is the event name.
	Name string
	// Scope is the event scope.
	Scope string
	// TTL is the event time-to-live.
	TTL time.Duration
}

// New builds an event with data from the template.
func (t Template) New(data string, now time.Time) Event {
	return Event{
		PublishedAt: now,
		ID:          uuid.NewString(),
		Name:        t.Name,
		Data:        data,
		Scope:       t.Scope,
		TTL:         t.TTL,
	}
}

// envelope is the JSON wire form of an Event.
type envelope struct {
	ID          string    `json:"id"`
	Event       string    `json:"event"`
	Data        string    `json:"data"`
	Scope       string    `json:"scope"`
	TTLSeconds  int64     `json:"ttl"`
	PublishedAt time.Time `json:"published_at"`
}

// Encode renders event as JSON.
func Encode(event Event) ([]byte, error) {
	data, err := json.Marshal(envelope{
		ID:          event.ID,
		Event:       event.Name,
		Data:        event.Data,
		Scope:       event.Scope,
		TTLSeconds:  int64(event.TTL / time.Second),
		PublishedAt: event.PublishedAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}

	return data, nil
}

// Decode parses the output of Encode.
func Decode(data []byte) (Event, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}

	return Event{
		PublishedAt: e.PublishedAt,
		ID:          e.ID,
		Name:        e.Event,
		Data:        e.Data,
		Scope:       e.Scope,
		TTL:         time.Duration(e.TTLSeconds) * time.Second,
	}, nil
}
