package sensor

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/power-sentinel/internal/domain/sentinel"
)

// Static serves a reading that only changes when Set is called.
type Static struct {
	// reading is the value returned by Read.
	reading sentinel.Reading
	// now stamps readings.
	now func() time.Time
	// mu protects reading.
	mu sync.RWMutex
}

// NewStatic returns a source serving initial.
func NewStatic(initial sentinel.Reading) *Static {
	return &Static{
		reading: initial,
		now:     time.Now,
	}
}

// Set replaces the served reading.
func (s *Static) Set(r sentinel.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reading = r
}

// Read returns the current reading stamped with the current time.
func (s *Static) Read(context.Context) (sentinel.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := s.reading
	r.Timestamp = s.now()

	return r, nil
}
