// Package cli implements reflector-cli, a client for any server exposing
// grpc.reflection.v1alpha.ServerReflection.
//
// list: print service names
//
//	reflector-cli list --addr localhost:9090
//
// describe: print a symbol's definition
//
//	reflector-cli describe routeguide.RouteGuide
//
// files: print the descriptor files returned for a symbol or file path,
// in the order the server sends them
//
//	reflector-cli files routeguide.Point
//	reflector-cli files --filename rguide/routeguide.proto
//
// The server address defaults to $REFLECTOR_ADDR, then localhost:9090.
package cli
