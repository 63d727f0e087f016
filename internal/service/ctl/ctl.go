package ctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	grpcapi "github.com/oshokin/power-sentinel/internal/api/grpc/control"
	"github.com/oshokin/power-sentinel/internal/control"
	"github.com/oshokin/power-sentinel/internal/domain/sentinel"
	"github.com/oshokin/power-sentinel/internal/logger"
)

// DefaultWatchInterval is the polling interval of Watch.
const DefaultWatchInterval = 5 * time.Second

// ErrNotReady is returned while the daemon has not completed its first tick.
var ErrNotReady = errors.New("sentinel is still setting up")

// API is the part of the control client the operations need.
type API interface {
	GetVariable(ctx context.Context, name string) (any, error)
	CallFunction(ctx context.Context, name, argument string) (int64, error)
}

// Options controls how sentinelctl reaches the daemon.
type Options struct {
	// Address is the daemon's gRPC control address.
	Address string
	// Timeout bounds a single RPC.
	Timeout time.Duration
	// Raw prints values and codes without the plain-language rendering.
	Raw bool
}

// Controller runs client operations and writes their output.
type Controller struct {
	// api reaches the daemon.
	api API
	// out receives the rendered output.
	out io.Writer
	// raw disables plain-language rendering.
	raw bool
}

// NewController returns a controller writing to out.
func NewController(api API, out io.Writer, raw bool) *Controller {
	return &Controller{
		api: api,
		out: out,
		raw: raw,
	}
}

// Connect dials the daemon as the current user and returns a controller over
// the connection along with its closer.
func Connect(opts *Options, out io.Writer) (*Controller, func() error, error) {
	actor, err := DetectActor()
	if err != nil {
		return nil, nil, fmt.Errorf("detect actor: %w", err)
	}

	client, err := grpcapi.Dial(opts.Address, grpcapi.WithCallTimeout(opts.Timeout), grpcapi.WithActor(actor))
	if err != nil {
		return nil, nil, fmt.Errorf("dial sentinel: %w", err)
	}

	return NewController(client, out, opts.Raw), client.Close, nil
}

// Get prints one variable.
func (c *Controller) Get(ctx context.Context, name string) error {
	value, err := c.api.GetVariable(ctx, name)
	if err != nil {
		return err
	}

	if c.raw {
		return c.println(value)
	}

	return c.println(DescribeVariable(name, value))
}

// Call runs one command and prints its outcome.
func (c *Controller) Call(ctx context.Context, name, argument string) error {
	code, err := c.api.CallFunction(ctx, name, argument)
	if err != nil {
		return err
	}

	if c.raw {
		return c.println(code)
	}

	return c.println(DescribeResult(name, argument, code))
}

// Status fetches and parses the status snapshot.
func (c *Controller) Status(ctx context.Context) (sentinel.Status, error) {
	value, err := c.api.GetVariable(ctx, control.VariableStatus)
	if err != nil {
		return sentinel.Status{}, err
	}

	text, ok := value.(string)
	if !ok {
		return sentinel.Status{}, fmt.Errorf("%w: status is %T", sentinel.ErrMalformedStatus, value)
	}

	if text == sentinel.StatusSetup {
		return sentinel.Status{}, ErrNotReady
	}

	return sentinel.ParseStatus(text)
}

// PrintStatus prints the status snapshot.
func (c *Controller) PrintStatus(ctx context.Context) error {
	status, err := c.Status(ctx)
	if err != nil {
		return err
	}

	if c.raw {
		return c.println(status.String())
	}

	for _, line := range Describe(status) {
		if err = c.println(line); err != nil {
			return err
		}
	}

	return nil
}

// Watch prints the status now and after every interval until ctx is
// canceled. Failed polls are logged and do not stop the watch.
func (c *Controller) Watch(ctx context.Context, interval time.Duration) error {
	ctx = logger.WithName(ctx, "sentinelctl-watch")

	if interval <= 0 {
		interval = DefaultWatchInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := c.PrintStatus(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			logger.WarnKV(ctx, "Status poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (c *Controller) println(value any) error {
	_, err := fmt.Fprintln(c.out, value)

	return err
}
