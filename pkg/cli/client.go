package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jhump/protoreflect/grpcreflect"
	"google.golang.org/grpc"
	rpb "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
)

// session is one connection to a reflection server, bounded by the
// command's timeout
type session struct {
	ctx    context.Context
	conn   *grpc.ClientConn
	client *grpcreflect.Client
	close  func()
}

func (c *Command) connect() (*session, error) {
	addr := c.Flags.Lookup("addr").Value.String()
	timeout, err := time.ParseDuration(c.Flags.Lookup("timeout").Value.String())
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}

	conn, err := c.dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	client := grpcreflect.NewClientV1Alpha(ctx, rpb.NewServerReflectionClient(conn))
	return &session{
		ctx:    ctx,
		conn:   conn,
		client: client,
		close: func() {
			client.Reset()
			cancel()
			_ = conn.Close()
		},
	}, nil
}

// roundTrip sends one request on a fresh raw stream and returns the reply,
// preserving the server's file order
func (s *session) roundTrip(req *rpb.ServerReflectionRequest) (*rpb.ServerReflectionResponse, error) {
	stream, err := rpb.NewServerReflectionClient(s.conn).ServerReflectionInfo(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open reflection stream: %w", err)
	}
	if err := stream.Send(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	resp, err := stream.Recv()
	if err != nil {
		return nil, fmt.Errorf("failed to receive response: %w", err)
	}
	_ = stream.CloseSend()

	if e := resp.GetErrorResponse(); e != nil {
		return nil, fmt.Errorf("server error %d: %s", e.GetErrorCode(), e.GetErrorMessage())
	}
	return resp, nil
}
