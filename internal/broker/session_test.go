package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errRefused = errors.New("connection refused")

// fakeToken is a paho token completed on demand.
type fakeToken struct {
	// done is closed when the token completes.
	done chan struct{}
	// err is reported after completion.
	err error
}

func (t *fakeToken) Wait() bool {
	<-t.done

	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }

func (t *fakeToken) Error() error { return t.err }

// TestWait covers completion, failure and cancellation.
func TestWait(t *testing.T) {
	t.Parallel()

	completed := &fakeToken{done: make(chan struct{})}
	close(completed.done)
	require.NoError(t, wait(context.Background(), completed))

	failed := &fakeToken{done: make(chan struct{}), err: errRefused}
	close(failed.done)
	require.ErrorIs(t, wait(context.Background(), failed), errRefused)

	pending := &fakeToken{done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := wait(ctx, pending)
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, context.Canceled)
}

// TestSession_CloseNil tolerates sessions that never connected.
func TestSession_CloseNil(t *testing.T) {
	t.Parallel()

	var s *Session
	require.NotPanics(t, s.Close)
	require.NotPanics(t, new(Session).Close)
}
