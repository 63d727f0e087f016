package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/power-sentinel/internal/config"
	"github.com/oshokin/power-sentinel/internal/domain/sentinel"
)

var errSensorBus = errors.New("sensor bus error")

// scriptedSource returns queued results and can hang until its context ends.
type scriptedSource struct {
	// results are returned in order; a nil entry hangs.
	results []*readResult
	// calls counts reads.
	calls int
	// mu protects calls across reader goroutines.
	mu sync.Mutex
}

func (s *scriptedSource) Read(ctx context.Context) (sentinel.Reading, error) {
	s.mu.Lock()
	next := s.results[s.calls]
	s.calls++
	s.mu.Unlock()

	if next == nil {
		<-ctx.Done()

		return sentinel.Reading{}, ctx.Err()
	}

	return next.reading, next.err
}

// TestStatic_ReadSet serves the latest set reading with a fresh timestamp.
func TestStatic_ReadSet(t *testing.T) {
	t.Parallel()

	s := NewStatic(sentinel.Reading{PowerOK: true, UPSOK: true, Pressure: 100})
	s.now = func() time.Time { return time.Unix(42, 0) }

	r, err := s.Read(context.Background())
	require.NoError(t, err)
	require.True(t, r.PowerOK)
	require.Equal(t, time.Unix(42, 0), r.Timestamp)

	s.Set(sentinel.Reading{UPSOK: true, Pressure: 200})

	r, err = s.Read(context.Background())
	require.NoError(t, err)
	require.False(t, r.PowerOK)
	require.InDelta(t, 200.0, r.Pressure, 0)
}

// TestBounded_StaleFallback covers the first failure, a good read, a timeout and an error.
func TestBounded_StaleFallback(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		good := sentinel.Reading{PowerOK: true, UPSOK: true, Pressure: 100, Timestamp: time.Now()}
		source := &scriptedSource{
			results: []*readResult{
				{err: errSensorBus},
				{reading: good},
				nil,
				{err: errSensorBus},
			},
		}

		b := NewBounded(source, 2*time.Second)
		ctx := context.Background()

		// No good reading yet: the error surfaces.
		_, err := b.Read(ctx)
		require.ErrorIs(t, err, errSensorBus)

		r, err := b.Read(ctx)
		require.NoError(t, err)
		require.False(t, r.Stale)

		// Hanging read: the timeout hands back the last reading, stale.
		started := time.Now()
		r, err = b.Read(ctx)
		require.NoError(t, err)
		require.True(t, r.Stale)
		require.Equal(t, good.Timestamp, r.Timestamp)
		require.Equal(t, 2*time.Second, time.Since(started))

		r, err = b.Read(ctx)
		require.NoError(t, err)
		require.True(t, r.Stale)
		require.InDelta(t, 100.0, r.Pressure, 0)
	})
}

// TestMQTTSource_Handle applies raw values and reports readiness.
func TestMQTTSource_Handle(t *testing.T) {
	t.Parallel()

	s := NewMQTTSource(config.MQTTSensorConfig{
		PowerTopic:    "lab/power",
		UPSTopic:      "lab/ups",
		PressureTopic: "lab/pressure",
	})
	s.now = func() time.Time { return time.Unix(7, 0) }

	_, err := s.Read(context.Background())
	require.ErrorIs(t, err, ErrNoReading)

	require.NoError(t, s.handle("lab/power", []byte("4")))
	require.NoError(t, s.handle("lab/ups", []byte(" 2000\n")))

	_, err = s.Read(context.Background())
	require.ErrorIs(t, err, ErrNoReading)

	counts := CountsFromPressure(100)
	require.NoError(t, s.handle("lab/pressure", []byte(formatInt(counts))))

	r, err := s.Read(context.Background())
	require.NoError(t, err)
	require.True(t, r.PowerOK)
	require.True(t, r.UPSOK)
	require.InDelta(t, 100.0, r.Pressure, 2)
	require.Equal(t, time.Unix(7, 0), r.Timestamp)

	require.ErrorIs(t, s.handle("lab/ups", []byte("high")), ErrBadPayload)
	require.Error(t, s.handle("lab/other", []byte("1")))

	require.NoError(t, s.handle("lab/power", []byte("0")))

	r, err = s.Read(context.Background())
	require.NoError(t, err)
	require.False(t, r.PowerOK)
}

// TestMQTTSource_MaxAge flags readings once a topic goes silent.
func TestMQTTSource_MaxAge(t *testing.T) {
	t.Parallel()

	s := NewMQTTSource(config.MQTTSensorConfig{
		PowerTopic:    "lab/power",
		UPSTopic:      "lab/ups",
		PressureTopic: "lab/pressure",
		MaxAge:        5 * time.Second,
	})

	now := time.Unix(100, 0)
	s.now = func() time.Time { return now }

	require.NoError(t, s.handle("lab/power", []byte("4")))
	require.NoError(t, s.handle("lab/ups", []byte("2000")))
	require.NoError(t, s.handle("lab/pressure", []byte(formatInt(CountsFromPressure(500)))))

	r, err := s.Read(context.Background())
	require.NoError(t, err)
	require.False(t, r.Stale)

	now = now.Add(5 * time.Second)
	r, err = s.Read(context.Background())
	require.NoError(t, err)
	require.False(t, r.Stale)

	// Power and UPS keep reporting, the pressure node does not.
	now = now.Add(time.Second)
	require.NoError(t, s.handle("lab/power", []byte("4")))
	require.NoError(t, s.handle("lab/ups", []byte("2000")))

	r, err = s.Read(context.Background())
	require.NoError(t, err)
	require.True(t, r.Stale)
	require.True(t, r.PowerOK)
	require.Equal(t, now, r.Timestamp)

	b := NewBounded(s, time.Second)
	r, err = b.Read(context.Background())
	require.NoError(t, err)
	require.True(t, r.Stale)

	require.NoError(t, s.handle("lab/pressure", []byte(formatInt(CountsFromPressure(500)))))

	r, err = b.Read(context.Background())
	require.NoError(t, err)
	require.False(t, r.Stale)
}

// TestSNMPSource_ReadingFrom converts an agent answer.
func TestSNMPSource_ReadingFrom(t *testing.T) {
	t.Parallel()

	s := NewSNMPSource(config.SNMPSensorConfig{
		PowerOID:    "1.3.6.1.4.1.99.1",
		UPSOID:      ".1.3.6.1.4.1.99.2",
		PressureOID: "1.3.6.1.4.1.99.3",
	}, time.Second)

	now := time.Unix(99, 0)
	variables := []gosnmp.SnmpPDU{
		{Name: ".1.3.6.1.4.1.99.1", Type: gosnmp.Integer, Value: 0x04},
		{Name: ".1.3.6.1.4.1.99.2", Type: gosnmp.Gauge32, Value: uint(1000)},
		{Name: ".1.3.6.1.4.1.99.3", Type: gosnmp.Integer, Value: int(CountsFromPressure(2600))},
	}

	r, err := s.readingFrom(variables, now)
	require.NoError(t, err)
	require.True(t, r.PowerOK)
	require.False(t, r.UPSOK)
	require.InDelta(t, 2600.0, r.Pressure, 2)
	require.Equal(t, now, r.Timestamp)

	variables[2] = gosnmp.SnmpPDU{Name: ".1.3.6.1.4.1.99.3", Type: gosnmp.NoSuchInstance}

	_, err = s.readingFrom(variables, now)
	require.ErrorIs(t, err, ErrMissingOID)
}

func formatInt(v int64) string {
	return fmt.Sprint(v)
}
