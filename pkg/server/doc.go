// Package server exposes a reflector.Holder over gRPC, as the
// grpc.reflection.v1alpha.ServerReflection service, and over HTTP.
//
// HTTP routes:
//
//	POST /v1/reflect            one ServerReflectionRequest, binary or protojson
//	GET  /v1/services           service names as JSON
//	GET  /v1/symbols/{symbol}   files needed to resolve a symbol
//	GET  /metrics               Prometheus exposition
//	GET  /health/live           liveness
//	GET  /health/ready          readiness, failing until a schema is loaded
package server
