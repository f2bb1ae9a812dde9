// Package loader compiles .proto sources into a schema.Schema.
//
// A Source yields file contents keyed by import path: FileSystemSource walks
// local roots, S3Source lists a bucket prefix, MapSource holds them in
// memory. Compile links everything with protocompile, standard
// google/protobuf imports included.
package loader
