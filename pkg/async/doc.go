// Package async provides goroutine helpers with panic recovery.
//
// SafeGo starts fire-and-forget background work such as a schema reload;
// Run wraps long-lived loops so a panic surfaces as an error to the
// errgroup that owns them.
package async
