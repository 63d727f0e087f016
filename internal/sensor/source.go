package sensor

import (
	"context"
	"errors"

	"github.com/oshokin/power-sentinel/internal/domain/sentinel"
)

// ErrNoReading is returned while a source has never produced a complete reading.
var ErrNoReading = errors.New("no reading available")

// Source supplies one reading per tick.
type Source interface {
	Read(ctx context.Context) (sentinel.Reading, error)
}
