// Package descriptor serializes schema files as FileDescriptorProto bytes
// in the form protoc emits, so reflection clients can link them.
package descriptor
