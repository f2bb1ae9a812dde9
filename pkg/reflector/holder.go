package reflector

import (
	"sync/atomic"

	"google.golang.org/grpc/codes"
	rpb "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
)

// Holder publishes the current Reflector. A reload builds a new Reflector
// and stores it; in-flight requests finish against the one they loaded.
type Holder struct {
	current atomic.Pointer[Reflector]
}

// NewHolder returns a holder serving r, which may be nil
func NewHolder(r *Reflector) *Holder {
	h := &Holder{}
	if r != nil {
		h.current.Store(r)
	}
	return h
}

// Load returns the current reflector, or nil before the first Store
func (h *Holder) Load() *Reflector {
	return h.current.Load()
}

// Store replaces the current reflector
func (h *Holder) Store(r *Reflector) {
	h.current.Store(r)
}

// Ready reports whether a reflector has been stored
func (h *Holder) Ready() bool {
	return h.current.Load() != nil
}

// Process answers req with the current reflector, or UNAVAILABLE when none
// is loaded yet.
func (h *Holder) Process(req *rpb.ServerReflectionRequest) *rpb.ServerReflectionResponse {
	if r := h.current.Load(); r != nil {
		return r.Process(req)
	}
	return &rpb.ServerReflectionResponse{
		ValidHost:       req.GetHost(),
		OriginalRequest: req,
		MessageResponse: &rpb.ServerReflectionResponse_ErrorResponse{
			ErrorResponse: &rpb.ErrorResponse{
				ErrorCode:    int32(codes.Unavailable),
				ErrorMessage: "schema not loaded",
			},
		},
	}
}
