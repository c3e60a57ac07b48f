// Package server implements the RPC server of the distributed index.
// It provides adapters that answer RPC requests for index stores and id managers,
// along with the core server implementation that manages shards and request routing.
//
// The package focuses on:
//   - Server-side RPC request handling for index and id operations
//   - Adapter pattern to decouple application logic from RPC mechanisms
//   - Flexible shard configuration with support for local and replicated stores
//   - An optional admin http api for health checks, metrics and index inspection
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes incoming requests against a store.IStore.
//
//   - NewIndexStoreServerAdapter: Factory function creating an adapter for index
//     operations, translating RPC requests to store.IStore method calls.
//
//   - NewIDManagerServerAdapter: Factory function creating an adapter for id
//     allocation, creating an idmgr.IIDManager on top of the store.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Shards: []common.ServerShard{
//	    {ShardID: 100, Type: common.ShardTypeLocalIStore},
//	    {ShardID: 200, Type: common.ShardTypeLocalIIDManager},
//	  },
//	  DataDir:       "/var/lib/didx",
//	  TimeoutSecond: 5,
//	  Transport:     common.ServerTransportConfig{Endpoint: "0.0.0.0:8080"},
//	  AdminEndpoint: "127.0.0.1:8081",
//	  LogLevel:      "info",
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// The server supports four types of shards, which can be mixed within a single server:
//
//   - ShardTypeLocalIStore: A local index stored in DataDir/shard-<id>.idx.
//
//   - ShardTypeRemoteIStore: An index replicated with Raft. Each replica keeps its
//     index in DataDir/index-<shard>-<replica>.idx. The RAFT configuration
//     (RTTMillisecond, SnapshotEntries, CompactionOverhead, DataDir, ReplicaID and
//     ClusterMembers) must be set.
//
//   - ShardTypeLocalIIDManager: An id manager backed by a local index.
//
//   - ShardTypeRemoteIIDManager: An id manager backed by a replicated index.
//
// Without a DataDir the indexes of local shards live in temporary files.
//
// Metrics:
//
//	Every request increments didx_rpc_requests_total{shard,type} and updates the
//	didx_rpc_request_duration_seconds histogram. The admin api exposes them
//	together with the engine counters on GET /metrics.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	across multiple connections. Each request is processed independently.
//	Serve should be called only once, Close may be called from any goroutine.
package server
