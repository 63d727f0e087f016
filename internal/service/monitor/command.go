package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/time/rate"

	grpcapi "github.com/oshokin/power-sentinel/internal/api/grpc/control"
	httpapi "github.com/oshokin/power-sentinel/internal/api/http/control"
	"github.com/oshokin/power-sentinel/internal/broker"
	"github.com/oshokin/power-sentinel/internal/config"
	"github.com/oshokin/power-sentinel/internal/control"
	"github.com/oshokin/power-sentinel/internal/domain/gate"
	"github.com/oshokin/power-sentinel/internal/domain/sentinel"
	"github.com/oshokin/power-sentinel/internal/logger"
	"github.com/oshokin/power-sentinel/internal/output"
	"github.com/oshokin/power-sentinel/internal/publisher"
	"github.com/oshokin/power-sentinel/internal/sensor"
	"github.com/oshokin/power-sentinel/internal/version"
)

// Options controls the sentinel daemon process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// LogLevel overrides the configured log level when set.
	LogLevel string
	// GRPCAddress overrides the configured gRPC listen address when set.
	GRPCAddress string
	// HTTPAddress overrides the configured HTTP listen address when set.
	HTTPAddress string
}

// ErrUnknownLogLevel is returned for log levels zap does not know.
var ErrUnknownLogLevel = errors.New("unknown log level")

// Run starts the main loop and the control servers and blocks until ctx is
// canceled or one of them fails.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "sentinel")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(settings, opts)

	level, ok := logger.ParseLogLevel(settings.LogLevel)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLogLevel, settings.LogLevel)
	}

	logger.SetLevel(level)

	// The MQTT session is shared by every MQTT-backed component.
	var session *broker.Session

	if settings.UsesMQTT() {
		session, err = broker.Connect(ctx, &settings.MQTT)
		if err != nil {
			return fmt.Errorf("connect to MQTT broker: %w", err)
		}

		defer session.Close()
	}

	source, err := newSource(ctx, settings, session)
	if err != nil {
		return fmt.Errorf("initialise sensor source: %w", err)
	}

	pub := newPublisher(settings, session)

	if closer, ok := pub.(io.Closer); ok {
		defer func() {
			if closeErr := closer.Close(); closeErr != nil {
				logger.ErrorKV(ctx, "Failed to close publisher", "error", closeErr)
			}
		}()
	}

	policy, err := gate.ParsePolicy(string(settings.GateMode))
	if err != nil {
		return fmt.Errorf("select gate policy: %w", err)
	}

	device := NewDevice(DeviceOptions{
		Pin:       newPin(settings, session),
		Publisher: pub,
		Template: publisher.Template{
			Name:  settings.Publisher.EventName,
			Scope: settings.Publisher.Scope,
			TTL:   settings.Publisher.TTL,
		},
		Threshold:      settings.DefaultThreshold,
		PublishTimeout: settings.Publisher.Timeout,
	})

	loop := New(
		sensor.NewBounded(source, settings.Sensor.ReadTimeout),
		device,
		gate.New(policy, settings.NotifyInterval, time.Now()),
		settings.TickInterval,
	)

	surface := control.NewSurface(device, newLimiter(&settings.Control))

	logger.InfoKV(ctx, "Sentinel starting", append(version.KV(),
		"sensor", settings.Sensor.Kind,
		"publisher", settings.Publisher.Kind,
		"output", settings.Output.Kind,
		"gate_mode", policy.Mode(),
		"threshold", settings.DefaultThreshold,
	)...)

	return runAll(ctx, map[string]func(context.Context) error{
		"main loop": loop.Run,
		"grpc control": func(ctx context.Context) error {
			if settings.Control.GRPCAddress == "" {
				return nil
			}

			return grpcapi.Serve(ctx, settings.Control.GRPCAddress, surface)
		},
		"http control": func(ctx context.Context) error {
			if settings.Control.HTTPAddress == "" {
				return nil
			}

			return httpapi.Serve(ctx, settings.Control.HTTPAddress, httpapi.NewRouter(surface))
		},
	})
}

// runAll runs every component until ctx is canceled. The first failure
// cancels the others; all failures are returned joined.
func runAll(ctx context.Context, components map[string]func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for name, run := range components {
		wg.Go(func() {
			if err := run(ctx); err != nil {
				logger.ErrorKV(ctx, "Component failed", "component", name, "error", err)

				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()

				cancel()
			}
		})
	}

	wg.Wait()

	return errors.Join(errs...)
}

func applyOverrides(settings *config.Config, opts *Options) {
	if opts.LogLevel != "" {
		settings.LogLevel = opts.LogLevel
	}

	if opts.GRPCAddress != "" {
		settings.Control.GRPCAddress = opts.GRPCAddress
	}

	if opts.HTTPAddress != "" {
		settings.Control.HTTPAddress = opts.HTTPAddress
	}
}

//nolint:ireturn // Callers only need the capability.
func newSource(ctx context.Context, settings *config.Config, session *broker.Session) (sensor.Source, error) {
	switch settings.Sensor.Kind {
	case config.KindMQTT:
		source := sensor.NewMQTTSource(settings.Sensor.MQTT)
		if err := source.Start(ctx, session); err != nil {
			return nil, err
		}

		return source, nil
	case config.KindSNMP:
		return sensor.NewSNMPSource(settings.Sensor.SNMP, settings.Sensor.ReadTimeout), nil
	default:
		static := settings.Sensor.Static

		return sensor.NewStatic(sentinel.Reading{
			Pressure: static.Pressure,
			PowerOK:  static.PowerOK,
			UPSOK:    static.UPSOK,
		}), nil
	}
}

//nolint:ireturn // Callers only need the capability.
func newPublisher(settings *config.Config, session *broker.Session) publisher.Publisher {
	switch settings.Publisher.Kind {
	case config.KindMQTT:
		return publisher.NewMQTTPublisher(session, settings.Publisher.TopicPrefix)
	case config.KindKafka:
		return publisher.NewKafkaPublisher(settings.Publisher.Kafka.Brokers, settings.Publisher.Kafka.Topic)
	default:
		return publisher.NewLogPublisher()
	}
}

//nolint:ireturn // Callers only need the capability.
func newPin(settings *config.Config, session *broker.Session) output.Pin {
	if settings.Output.Kind == config.KindMQTT {
		return output.NewMQTTPin(session, settings.Output.Topic)
	}

	return output.NewMemoryPin()
}

// newLimiter returns the command limiter, or nil when throttling is off.
func newLimiter(settings *config.ControlConfig) *rate.Limiter {
	if settings.CommandsPerSecond <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Limit(settings.CommandsPerSecond), settings.CommandBurst)
}
