// Package client implements RPC clients for the distributed index.
// It provides implementations of the store.IStore and idmgr.IIDManager interfaces
// that communicate with remote servers via RPC.
//
// The package focuses on:
//   - Transparent RPC access to index stores and id managers
//   - Integration with the transport and serialization layers
//   - Error handling and conversion between RPC and domain errors
//
// Key Components:
//
//   - NewRPCStore: Factory function that creates a client implementing the store.IStore
//     interface. This client forwards all operations to remote servers via the configured
//     transport layer.
//
//   - NewRPCIDManager: Factory function that creates a client implementing the
//     idmgr.IIDManager interface for id allocation.
//
// Errors reported by the server are returned as *store.Error with the server's return
// code, so store.IsDuplicateKey works on the client side as well.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:              []string{"localhost:8080"},
//	    RetryCount:             3,
//	    ConnectionsPerEndpoint: 1,
//	  },
//	}
//
//	ser := serializer.NewBinarySerializer()
//
//	// Create index client
//	idx, _ := client.NewRPCStore(100, config, tcp.NewTCPClientTransport(), ser)
//	_ = idx.Add(42)
//	keys, _ := idx.Range(0, 100, 10)
//
//	// Create id manager client
//	ids, _ := client.NewRPCIDManager(200, config, tcp.NewTCPClientTransport(), ser)
//	id, _ := ids.Allocate()
//	ids.Release(id)
//
// Performance Considerations:
//
//   - For applications that send many concurrent requests, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - For small messages, a single connection per endpoint is often more efficient due to
//     reduced connection overhead.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	All client implementations are thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
