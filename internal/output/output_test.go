package output

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errOffline = errors.New("offline")

type fakeBroker struct {
	err      error
	topic    string
	payload  string
	retained bool
}

func (b *fakeBroker) Publish(_ context.Context, topic string, retained bool, payload []byte) error {
	if b.err != nil {
		return b.err
	}

	b.topic, b.retained, b.payload = topic, retained, string(payload)

	return nil
}

// TestMemoryPin toggles the level.
func TestMemoryPin(t *testing.T) {
	t.Parallel()

	p := NewMemoryPin()
	require.False(t, p.State())

	require.NoError(t, p.Set(context.Background(), true))
	require.True(t, p.State())

	require.NoError(t, p.Set(context.Background(), false))
	require.False(t, p.State())
}

// TestMQTTPin publishes retained levels and keeps state on failure.
func TestMQTTPin(t *testing.T) {
	t.Parallel()

	broker := new(fakeBroker)
	p := NewMQTTPin(broker, "lab/led")

	require.NoError(t, p.Set(context.Background(), true))
	require.True(t, p.State())
	require.Equal(t, "lab/led", broker.topic)
	require.Equal(t, "on", broker.payload)
	require.True(t, broker.retained)

	broker.err = errOffline
	require.ErrorIs(t, p.Set(context.Background(), false), errOffline)
	require.True(t, p.State())
}
