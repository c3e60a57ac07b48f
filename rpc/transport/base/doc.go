// Package base carries index requests over any stream connection. The tcp and
// unix packages only supply a connector that dials, listens and tunes sockets;
// framing, request correlation, worker limits and reconnects live here.
//
// Frames:
//
//	[shardID uint64][requestID uint64][length uint32][payload]
//
// The 20 byte header is big-endian and written together with the payload as one
// net.Buffers write. A peer announcing more than 64 MB is dropped before any
// payload is read. The shard ID selects the index on the server, the request ID
// is chosen by the client and echoed in the response.
//
// Client:
//
//	NewBaseClientTransport opens ConnectionsPerEndpoint connections to every
//	endpoint and spreads requests round robin over those that connected. Many
//	requests can be in flight on one connection; a reader goroutine hands each
//	response to the caller waiting on its request ID. A read error fails every
//	waiting request of that connection and redials it with jittered exponential
//	backoff until it succeeds or the transport is closed.
//
//	Send retries a failed write on the next connection, up to RetryCount times.
//	It does not retry after ErrRequestTimeout: the server may still apply the
//	request, and a repeated Add would come back as a duplicate key.
//
// Server:
//
//	NewBaseServerTransport accepts connections and reads frames into buffers from
//	a sync.Pool (BufferSize, or the connector default). Each connection runs at
//	most WorkersPerConn handlers at once, so responses can leave in a different
//	order than the requests arrived. Writes of a response carry the configured
//	timeout as deadline; reads have none, an idle client keeps its connection.
package base
