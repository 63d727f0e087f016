package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/power-sentinel/internal/domain/sentinel"
)

// DefaultCallTimeout bounds a single RPC when no other timeout is set.
const DefaultCallTimeout = 5 * time.Second

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Client calls the control service.
type Client struct {
	// conn is the underlying connection.
	conn grpc.ClientConnInterface
	// closer releases conn when the client owns it.
	closer func() error
	// actor is attached to every command.
	actor *sentinel.Actor
	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor attaches the caller identity to every command.
func WithActor(actor *sentinel.Actor) Option {
	return func(c *Client) {
		c.actor = actor.Clone()
	}
}

// Dial connects to the sentinel control service.
// Note: this uses insecure transport credentials; the daemon is meant for a
// trusted lab network.
func Dial(address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial sentinel: %w", err)
	}

	client := NewClient(conn, opts...)
	client.closer = conn.Close

	return client, nil
}

// NewClient returns a client over an existing connection. Close does not
// release conn.
func NewClient(conn grpc.ClientConnInterface, opts ...Option) *Client {
	client := &Client{
		conn:        conn,
		callTimeout: DefaultCallTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases the connection if the client owns it.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}

	return c.closer()
}

// GetVariable reads a variable. Numbers come back as float64, strings as string.
func (c *Client) GetVariable(ctx context.Context, name string) (any, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	out := new(structpb.Value)

	if err := c.conn.Invoke(callCtx, GetVariableMethod, wrapperspb.String(name), out); err != nil {
		return nil, fmt.Errorf("get variable %s: %w", name, err)
	}

	return out.AsInterface(), nil
}

// CallFunction runs a command and returns its result code.
func (c *Client) CallFunction(ctx context.Context, name, argument string) (int64, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if c.actor != nil {
		callCtx = metadata.AppendToOutgoingContext(callCtx,
			HostnameKey, c.actor.Hostname,
			UsernameKey, c.actor.Username,
		)
	}

	in := &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldName:     structpb.NewStringValue(name),
			FieldArgument: structpb.NewStringValue(argument),
		},
	}

	out := new(wrapperspb.Int64Value)

	if err := c.conn.Invoke(callCtx, CallFunctionMethod, in, out); err != nil {
		return 0, fmt.Errorf("call function %s: %w", name, err)
	}

	return out.GetValue(), nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
