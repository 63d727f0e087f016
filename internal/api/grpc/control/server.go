package control

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/power-sentinel/internal/control"
	"github.com/oshokin/power-sentinel/internal/domain/sentinel"
	"github.com/oshokin/power-sentinel/internal/logger"
)

// Surface abstracts the command surface the transport layer depends on.
type Surface interface {
	Call(ctx context.Context, name, argument string, actor *sentinel.Actor) (int64, error)
	Variable(name string) (any, error)
}

// Server implements ControlServer on top of a Surface.
type Server struct {
	// surface executes commands and exposes variables.
	surface Surface
}

// NewServer wires surface into a gRPC handler.
func NewServer(surface Surface) *Server {
	return &Server{
		surface: surface,
	}
}

// GetVariable returns the named variable.
func (s *Server) GetVariable(_ context.Context, name *wrapperspb.StringValue) (*structpb.Value, error) {
	if name.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "variable name is required")
	}

	value, err := s.surface.Variable(name.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}

	result, err := structpb.NewValue(value)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode variable: %v", err)
	}

	return result, nil
}

// CallFunction runs the named command and returns its result code.
func (s *Server) CallFunction(ctx context.Context, call *structpb.Struct) (*wrapperspb.Int64Value, error) {
	fields := call.GetFields()

	name := fields[FieldName].GetStringValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "function name is required")
	}

	code, err := s.surface.Call(ctx, name, fields[FieldArgument].GetStringValue(), actorFromContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}

	return wrapperspb.Int64(code), nil
}

// Serve listens on address and serves the control service until ctx is
// canceled.
func Serve(ctx context.Context, address string, surface Surface) error {
	ctx = logger.WithName(ctx, "grpc-control")

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	return serve(ctx, lis, surface)
}

func serve(ctx context.Context, lis net.Listener, surface Surface) error {
	grpcServer := grpc.NewServer()
	Register(grpcServer, NewServer(surface))

	logger.InfoKV(ctx, "Control gRPC server listening", "listen_address", lis.Addr().String())

	// Closed after GracefulStop so we only return once the server is down.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// actorFromContext reads the caller identity from incoming metadata.
func actorFromContext(ctx context.Context) *sentinel.Actor {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}

	hostnames := md.Get(HostnameKey)
	usernames := md.Get(UsernameKey)

	if len(hostnames) == 0 && len(usernames) == 0 {
		return nil
	}

	actor := new(sentinel.Actor)

	if len(hostnames) > 0 {
		actor.Hostname = hostnames[0]
	}

	if len(usernames) > 0 {
		actor.Username = usernames[0]
	}

	return actor
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, control.ErrUnknownCommand), errors.Is(err, control.ErrUnknownVariable):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, control.ErrThrottled):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
