// Package transport defines how RPC payloads travel between client and server.
// Implementations only move opaque byte slices tagged with a shard id, encoding
// the messages is left to package serializer.
//
// The server side registers one ServerHandleFunc and calls it for every request,
// possibly from many goroutines at once. Listen blocks until Close.
//
// The client side sends a payload to a shard and waits for the response. Connect
// must be called once before Send, Close releases all connections.
//
// Implementations:
//
//   - tcp and unix: length-prefixed frames over persistent connections (package base)
//   - http: one POST request per call
package transport
