package server

import (
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	rpb "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
	"google.golang.org/grpc/status"

	"github.com/platinummonkey/reflector/pkg/codec"
	"github.com/platinummonkey/reflector/pkg/observability"
	"github.com/platinummonkey/reflector/pkg/reflector"
)

// ReflectionService serves grpc.reflection.v1alpha.ServerReflection from
// whatever reflector the holder carries when each request arrives.
type ReflectionService struct {
	rpb.UnimplementedServerReflectionServer

	holder *reflector.Holder
	logger *observability.Logger
}

var _ rpb.ServerReflectionServer = (*ReflectionService)(nil)

// NewReflectionService creates the reflection stream handler
func NewReflectionService(holder *reflector.Holder, logger *observability.Logger) *ReflectionService {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ReflectionService{holder: holder, logger: logger}
}

// Register adds svc to a gRPC server
func Register(s grpc.ServiceRegistrar, svc *ReflectionService) {
	rpb.RegisterServerReflectionServer(s, svc)
}

// ServerReflectionInfo answers each request on the stream independently
// until the client half-closes.
func (s *ReflectionService) ServerReflectionInfo(stream rpb.ServerReflection_ServerReflectionInfoServer) (retErr error) {
	ctx := observability.WithStreamID(stream.Context(), uuid.NewString())
	ctx = observability.WithLogger(ctx, s.logger)
	logger := observability.FromContext(ctx)

	defer observability.RecoverPanicWithCallback(logger, "reflection stream", func() {
		retErr = status.Error(codes.Internal, "internal error")
	})

	logger.Debug("Reflection stream opened")
	requests := 0
	defer func() {
		logger.WithField("requests", requests).Debug("Reflection stream closed")
	}()

	for {
		req, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		requests++

		kind := string(codec.RequestKind(req))
		spanCtx, span := observability.Tracer().Start(ctx, "reflection."+kind,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("reflection.kind", kind),
				attribute.String("reflection.stream_id", observability.GetStreamID(ctx)),
			),
		)

		reqLogger := observability.WithTraceContext(spanCtx, logger)

		start := time.Now()
		resp := s.holder.Process(req)
		if e := resp.GetErrorResponse(); e != nil {
			span.SetAttributes(attribute.String("reflection.error_code", codes.Code(e.GetErrorCode()).String()))
			span.SetStatus(otelcodes.Error, e.GetErrorMessage())
		}
		span.End()

		reqLogger.WithFields(map[string]interface{}{
			"kind":        kind,
			"result":      string(codec.ResponseKind(resp)),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("Reflection request")

		if err := stream.Send(resp); err != nil {
			return err
		}
	}
}
