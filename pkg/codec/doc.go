// Package codec encodes and decodes grpc.reflection.v1alpha request and
// response messages and names their union variants.
package codec
