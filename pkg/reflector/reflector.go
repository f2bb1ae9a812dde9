package reflector

import (
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"google.golang.org/grpc/codes"
	rpb "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"

	"github.com/platinummonkey/reflector/pkg/codec"
	"github.com/platinummonkey/reflector/pkg/descriptor"
	"github.com/platinummonkey/reflector/pkg/index"
	"github.com/platinummonkey/reflector/pkg/observability"
	"github.com/platinummonkey/reflector/pkg/schema"
)

// ServiceName is the fully-qualified name of the reflection service
const ServiceName = "grpc.reflection.v1alpha.ServerReflection"

// Reflector answers reflection requests against one immutable schema. It
// is safe for concurrent use.
type Reflector struct {
	index    *index.Index
	encoded  map[string][]byte
	cache    *lru.Cache[string, [][]byte]
	logger   *observability.Logger
	metrics  *observability.Metrics
	loadedAt time.Time
}

// New indexes s and encodes every file up front, so Process never fails
// for a well-formed request except on a lookup miss.
func New(s *schema.Schema, opts ...Option) (*Reflector, error) {
	if s == nil {
		return nil, fmt.Errorf("nil schema")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.selfRegister {
		var err error
		if s, err = withReflectionFile(s); err != nil {
			return nil, err
		}
	}

	ix, err := index.New(s)
	if err != nil {
		return nil, err
	}
	encoded, err := descriptor.EncodeAll(ix.Files())
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}

	r := &Reflector{
		index:    ix,
		encoded:  encoded,
		logger:   o.logger,
		metrics:  o.metrics,
		loadedAt: time.Now(),
	}
	if o.cacheSize > 0 {
		if r.cache, err = lru.New[string, [][]byte](o.cacheSize); err != nil {
			return nil, fmt.Errorf("create closure cache: %w", err)
		}
	}

	for _, cycle := range ix.Cycles() {
		r.logger.WithField("files", cycle).Warn("Import cycle in schema")
	}
	r.metrics.SetSchemaSize(len(ix.Files()), len(ix.ServiceNames()))
	return r, nil
}

// withReflectionFile returns s extended with the reflection service's own
// descriptor unless a file at that path is already present.
func withReflectionFile(s *schema.Schema) (*schema.Schema, error) {
	fd := rpb.File_grpc_reflection_v1alpha_reflection_proto
	if s.File(fd.Path()) != nil {
		return s, nil
	}
	f, err := schema.FromFileDescriptor(fd)
	if err != nil {
		return nil, fmt.Errorf("convert reflection descriptor: %w", err)
	}
	extended, err := schema.New(append(s.Files(), f)...)
	if err != nil {
		return nil, fmt.Errorf("register reflection service: %w", err)
	}
	return extended, nil
}

// Index exposes the lookup index backing the reflector
func (r *Reflector) Index() *index.Index {
	return r.index
}

// LoadedAt is when the reflector was built
func (r *Reflector) LoadedAt() time.Time {
	return r.loadedAt
}

// Process answers one request. The response always echoes the request and
// its host; failures are carried in an error_response rather than returned.
func (r *Reflector) Process(req *rpb.ServerReflectionRequest) *rpb.ServerReflectionResponse {
	start := time.Now()
	resp := &rpb.ServerReflectionResponse{
		ValidHost:       req.GetHost(),
		OriginalRequest: req,
	}

	var err error
	switch mr := req.GetMessageRequest().(type) {
	case *rpb.ServerReflectionRequest_ListServices:
		resp.MessageResponse = r.listServices()
	case *rpb.ServerReflectionRequest_FileByFilename:
		resp.MessageResponse, err = r.fileDescriptors(r.index.File(mr.FileByFilename))
	case *rpb.ServerReflectionRequest_FileContainingSymbol:
		resp.MessageResponse, err = r.fileDescriptors(r.index.FileContainingSymbol(mr.FileContainingSymbol))
	case *rpb.ServerReflectionRequest_FileContainingExtension:
		ext := mr.FileContainingExtension
		resp.MessageResponse, err = r.fileDescriptors(
			r.index.FileContainingExtension(ext.GetContainingType(), ext.GetExtensionNumber()),
		)
	case *rpb.ServerReflectionRequest_AllExtensionNumbersOfType:
		resp.MessageResponse, err = r.extensionNumbers(mr.AllExtensionNumbersOfType)
	default:
		err = errUnsupported
	}

	code := codes.OK
	if err != nil {
		code = r.errorCode(req, err)
		resp.MessageResponse = &rpb.ServerReflectionResponse_ErrorResponse{
			ErrorResponse: &rpb.ErrorResponse{
				ErrorCode:    int32(code),
				ErrorMessage: errorMessage(code, err),
			},
		}
	}

	r.metrics.ObserveRequest(string(codec.RequestKind(req)), code.String(), time.Since(start))
	return resp
}

var errUnsupported = errors.New("unsupported request")

func (r *Reflector) errorCode(req *rpb.ServerReflectionRequest, err error) codes.Code {
	logger := r.logger.WithField("request", string(codec.RequestKind(req))).WithError(err)
	switch {
	case errors.Is(err, index.ErrNotFound):
		logger.Debug("Reflection lookup miss")
		return codes.NotFound
	case errors.Is(err, errUnsupported):
		logger.Debug("Unsupported reflection request")
		return codes.InvalidArgument
	default:
		logger.Error("Reflection request failed")
		return codes.Internal
	}
}

func errorMessage(code codes.Code, err error) string {
	if code == codes.Internal {
		return "internal error"
	}
	return err.Error()
}

func (r *Reflector) listServices() *rpb.ServerReflectionResponse_ListServicesResponse {
	names := r.index.ServiceNames()
	services := make([]*rpb.ServiceResponse, 0, len(names))
	for _, name := range names {
		services = append(services, &rpb.ServiceResponse{Name: name})
	}
	return &rpb.ServerReflectionResponse_ListServicesResponse{
		ListServicesResponse: &rpb.ListServiceResponse{Service: services},
	}
}

func (r *Reflector) fileDescriptors(f *schema.ProtoFile, err error) (*rpb.ServerReflectionResponse_FileDescriptorResponse, error) {
	if err != nil {
		return nil, err
	}
	blobs, err := r.closure(f)
	if err != nil {
		return nil, err
	}
	return &rpb.ServerReflectionResponse_FileDescriptorResponse{
		FileDescriptorResponse: &rpb.FileDescriptorResponse{FileDescriptorProto: blobs},
	}, nil
}

// closure returns the encoded closure of f. Cached slices are shared, so
// callers get a fresh outer slice.
func (r *Reflector) closure(f *schema.ProtoFile) ([][]byte, error) {
	if r.cache != nil {
		if blobs, ok := r.cache.Get(f.Path); ok {
			r.metrics.ObserveCache(true)
			return append([][]byte(nil), blobs...), nil
		}
		r.metrics.ObserveCache(false)
	}

	files := r.index.Closure(f)
	blobs := make([][]byte, 0, len(files))
	for _, member := range files {
		b, ok := r.encoded[member.Path]
		if !ok {
			return nil, fmt.Errorf("no encoded descriptor for %q", member.Path)
		}
		blobs = append(blobs, b)
	}

	if r.cache != nil {
		r.cache.Add(f.Path, blobs)
		return append([][]byte(nil), blobs...), nil
	}
	return blobs, nil
}

func (r *Reflector) extensionNumbers(typeName string) (*rpb.ServerReflectionResponse_AllExtensionNumbersResponse, error) {
	numbers, err := r.index.ExtensionNumbers(typeName)
	if err != nil {
		return nil, err
	}
	return &rpb.ServerReflectionResponse_AllExtensionNumbersResponse{
		AllExtensionNumbersResponse: &rpb.ExtensionNumberResponse{
			BaseTypeName:    typeName,
			ExtensionNumber: numbers,
		},
	}, nil
}
