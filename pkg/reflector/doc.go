// Package reflector implements the grpc.reflection.v1alpha query engine.
//
// A Reflector is built once from a schema.Schema: it registers the
// reflection service's own file, indexes every symbol and extension, and
// encodes each file's FileDescriptorProto. Process then maps each request
// onto an index lookup and returns the dependency closure of the matched
// file, each file exactly once, root first.
//
//	r, err := reflector.New(s, reflector.WithLogger(logger))
//	resp := r.Process(&rpb.ServerReflectionRequest{
//		MessageRequest: &rpb.ServerReflectionRequest_ListServices{ListServices: "*"},
//	})
//
// A Holder swaps reflectors atomically when the schema is reloaded.
package reflector
