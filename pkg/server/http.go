package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc/codes"
	rpb "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/platinummonkey/reflector/pkg/codec"
	"github.com/platinummonkey/reflector/pkg/httputil"
	"github.com/platinummonkey/reflector/pkg/observability"
	"github.com/platinummonkey/reflector/pkg/reflector"
)

// MaxRequestBytes bounds POST /v1/reflect bodies
const MaxRequestBytes = 1 << 20

// HTTPConfig wires the HTTP surface
type HTTPConfig struct {
	Holder   *reflector.Holder
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Health   *observability.HealthChecker
}

// HTTPServer exposes reflection over plain HTTP next to metrics and
// health probes
type HTTPServer struct {
	router *mux.Router
	holder *reflector.Holder
	logger *observability.Logger
}

// NewHTTPHandler builds the router. Metrics and health routes are only
// mounted when configured.
func NewHTTPHandler(cfg HTTPConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}
	s := &HTTPServer{
		router: mux.NewRouter(),
		holder: cfg.Holder,
		logger: cfg.Logger,
	}

	s.router.Use(
		httputil.RequestIDMiddleware(cfg.Logger),
		httputil.RecoveryMiddleware(cfg.Logger),
		httputil.LoggingMiddleware(cfg.Logger),
		observability.HTTPMetricsMiddleware(cfg.Metrics),
	)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// /v1 routes live on the root router: mux answers 404, not 405, for a
	// method mismatch inside a subrouter
	s.router.Handle("/v1/reflect", httputil.MaxBytesMiddleware(MaxRequestBytes)(http.HandlerFunc(s.reflect))).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/services", s.listServices).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/symbols/{symbol}", s.describeSymbol).Methods(http.MethodGet)

	if cfg.Registry != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(cfg.Registry)).Methods(http.MethodGet)
	}
	if cfg.Health != nil {
		s.router.HandleFunc("/health/live", cfg.Health.Liveness).Methods(http.MethodGet)
		s.router.HandleFunc("/health/ready", cfg.Health.Readiness).Methods(http.MethodGet)
	}

	return otelhttp.NewHandler(s.router, "reflector.http")
}

// reflect answers one ServerReflectionRequest. Lookup failures are carried
// in the response body with status 200, as on the gRPC stream.
func (s *HTTPServer) reflect(w http.ResponseWriter, r *http.Request) {
	req, err := decodeReflectRequest(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	resp := s.holder.Process(req)
	status := http.StatusOK
	if code := resp.GetErrorResponse().GetErrorCode(); codes.Code(code) == codes.Unavailable {
		status = http.StatusServiceUnavailable
	}

	if httputil.WantsJSON(r) {
		err = httputil.WriteProto(w, r, status, resp)
	} else {
		err = writeBinaryResponse(w, status, resp)
	}
	if err != nil {
		s.requestLogger(r).WithError(err).Warn("Failed to write reflection response")
	}
}

// decodeReflectRequest reads a protojson request when the body is JSON and
// a binary one otherwise. Every failure is the client's: an unreadable or
// empty body, malformed bytes, or no query set.
func decodeReflectRequest(r *http.Request) (*rpb.ServerReflectionRequest, error) {
	if httputil.WantsJSON(r) {
		req := &rpb.ServerReflectionRequest{}
		if err := httputil.ParseProto(r, req); err != nil {
			return nil, err
		}
		if req.GetMessageRequest() == nil {
			return nil, codec.ErrEmptyRequest
		}
		return req, nil
	}

	body, err := httputil.ReadBody(r)
	if err != nil {
		return nil, err
	}
	req, err := codec.DecodeRequest(body)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func writeBinaryResponse(w http.ResponseWriter, status int, resp *rpb.ServerReflectionResponse) error {
	body, err := codec.EncodeResponse(resp)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return err
	}
	return httputil.WriteBytes(w, status, httputil.ContentTypeProto, body)
}

func (s *HTTPServer) requestLogger(r *http.Request) *observability.Logger {
	return observability.WithTraceContext(r.Context(), observability.FromContext(r.Context()))
}

// ServicesResponse lists the services being reflected
type ServicesResponse struct {
	Services []string  `json:"services"`
	LoadedAt time.Time `json:"loaded_at"`
}

func (s *HTTPServer) listServices(w http.ResponseWriter, r *http.Request) {
	current := s.holder.Load()
	if current == nil {
		httputil.WriteServiceUnavailable(w, "schema not loaded")
		return
	}
	_ = httputil.WriteJSON(w, http.StatusOK, ServicesResponse{
		Services: current.Index().ServiceNames(),
		LoadedAt: current.LoadedAt(),
	})
}

// SymbolResponse names the files a client needs to resolve a symbol, root
// file first
type SymbolResponse struct {
	Symbol string   `json:"symbol"`
	Files  []string `json:"files"`
}

func (s *HTTPServer) describeSymbol(w http.ResponseWriter, r *http.Request) {
	symbol, ok := httputil.ParsePathStringOrError(w, r, "symbol")
	if !ok {
		return
	}

	resp := s.holder.Process(&rpb.ServerReflectionRequest{
		MessageRequest: &rpb.ServerReflectionRequest_FileContainingSymbol{FileContainingSymbol: symbol},
	})
	if e := resp.GetErrorResponse(); e != nil {
		httputil.WriteErrorMessage(w, httpStatus(codes.Code(e.GetErrorCode())), e.GetErrorMessage())
		return
	}

	files, err := fileNames(resp.GetFileDescriptorResponse().GetFileDescriptorProto())
	if err != nil {
		s.requestLogger(r).WithError(err).Error("Failed to list closure files")
		httputil.WriteInternalError(w, err)
		return
	}
	_ = httputil.WriteJSON(w, http.StatusOK, SymbolResponse{Symbol: symbol, Files: files})
}

func fileNames(blobs [][]byte) ([]string, error) {
	out := make([]string, 0, len(blobs))
	for _, blob := range blobs {
		fd := &descriptorpb.FileDescriptorProto{}
		if err := proto.Unmarshal(blob, fd); err != nil {
			return nil, errors.New("undecodable descriptor")
		}
		out = append(out, fd.GetName())
	}
	return out, nil
}

func httpStatus(code codes.Code) int {
	switch code {
	case codes.NotFound:
		return http.StatusNotFound
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ReadinessCheck fails until the holder carries a reflector
func ReadinessCheck(holder *reflector.Holder) observability.CheckFunc {
	return func(context.Context) error {
		if !holder.Ready() {
			return errors.New("schema not loaded")
		}
		return nil
	}
}
