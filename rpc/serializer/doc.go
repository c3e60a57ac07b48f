// Package serializer turns a common.Message into the payload of one transport
// frame and back. Client and server must be started with the same implementation,
// the payload carries no format marker.
//
// Implementations:
//
//   - NewBinarySerializer: the default. One byte message type, two bytes of
//     presence flags (big-endian), then only the fields whose flag is set, in
//     the order Key, From, To, Limit, Keys, Count, Value, Code, Err, Meta.
//     Integers take 8 bytes, Keys a 4 byte count plus 8 bytes per key, Err and
//     the byte fields a 4 byte length prefix. Ok is the flag itself. Decoding
//     checks every count and length against the bytes left, so a truncated or
//     forged payload fails instead of allocating.
//
//   - NewJSONSerializer: encoding/json with message types by name ("idx_add").
//     Handy with curl against the http transport or when reading captured traffic.
//
//   - NewGOBSerializer: encoding/gob. Each payload is a complete gob stream with
//     its type description, which makes it the largest of the three.
//
// BenchmarkSize reports the payload size per format and message kind, the other
// benchmarks the cost of encoding and decoding them.
//
// All implementations are safe for concurrent use.
package serializer
