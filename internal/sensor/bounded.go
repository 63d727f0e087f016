package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/power-sentinel/internal/domain/sentinel"
	"github.com/oshokin/power-sentinel/internal/logger"
)

// Bounded limits every read of the wrapped source to a timeout.
//
// When a read fails or times out, the last good reading is returned flagged
// as stale. Before the first good reading the error is returned instead.
type Bounded struct {
	// source is the wrapped source.
	source Source
	// timeout bounds a single read.
	timeout time.Duration
	// last is the most recent good reading.
	last sentinel.Reading
	// hasLast is set once a good reading was seen.
	hasLast bool
	// mu protects last and hasLast.
	mu sync.Mutex
}

// NewBounded wraps source with a read timeout.
func NewBounded(source Source, timeout time.Duration) *Bounded {
	return &Bounded{
		source:  source,
		timeout: timeout,
	}
}

type readResult struct {
	reading sentinel.Reading
	err     error
}

// Read implements Source.
func (b *Bounded) Read(ctx context.Context) (sentinel.Reading, error) {
	readCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	// Buffered so the reader goroutine never leaks when we stop waiting.
	results := make(chan readResult, 1)

	go func() {
		r, err := b.source.Read(readCtx)
		results <- readResult{reading: r, err: err}
	}()

	var result readResult

	select {
	case result = <-results:
	case <-readCtx.Done():
		result.err = fmt.Errorf("read sensors: %w", readCtx.Err())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if result.err == nil {
		b.last = result.reading
		b.hasLast = true

		return result.reading, nil
	}

	if !b.hasLast {
		return sentinel.Reading{}, result.err
	}

	logger.WarnKV(ctx, "Sensor read failed, reusing last reading", "error", result.err, "taken_at", b.last.Timestamp)

	return b.last.AsStale(), nil
}
