package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/power-sentinel/internal/config"
)

var errComponent = errors.New("component failed")

// TestRunAll_FirstFailureCancelsOthers stops every component on the first error.
func TestRunAll_FirstFailureCancelsOthers(t *testing.T) {
	t.Parallel()

	stopped := make(chan struct{})

	err := runAll(context.Background(), map[string]func(context.Context) error{
		"failing": func(context.Context) error { return errComponent },
		"blocking": func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)

			return nil
		},
	})

	require.ErrorIs(t, err, errComponent)
	require.ErrorContains(t, err, "failing")

	select {
	case <-stopped:
	default:
		t.Fatal("blocking component was not stopped")
	}
}

// TestRunAll_StopsWithContext returns nil after a clean shutdown.
func TestRunAll_StopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	wait := func(ctx context.Context) error {
		<-ctx.Done()

		return nil
	}

	err := runAll(ctx, map[string]func(context.Context) error{
		"a": wait,
		"b": wait,
	})
	require.NoError(t, err)
}

// TestRun_Daemon starts the daemon with a static sensor on ephemeral ports.
func TestRun_Daemon(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)

	settings := config.Default()
	settings.Control.GRPCAddress = "127.0.0.1:0"
	settings.Control.HTTPAddress = "127.0.0.1:0"
	settings.Sensor.Static.PowerOK = true
	settings.Sensor.Static.UPSOK = true
	settings.Sensor.Static.Pressure = 100

	require.NoError(t, config.Save(path, settings))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, Run(ctx, &Options{ConfigPath: path, LogLevel: "error"}))
}

// TestRun_Errors covers configuration failures.
func TestRun_Errors(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.ErrorContains(t, err, "load settings")

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, config.Default()))

	err = Run(context.Background(), &Options{ConfigPath: path, LogLevel: "chatty"})
	require.ErrorIs(t, err, ErrUnknownLogLevel)
}
