// Package common provides core data structures and utilities shared across
// the distributed index system. It defines fundamental types,
// configuration structures, and protocol elements used by other packages.
//
// The package focuses on:
//   - Message protocol definition for inter-component communication
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with Dragonboat
//   - Utilities for Dragonboat (RAFT) integration
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication between components,
//     with a flexible structure that adapts to different operation types.
//     Includes factory methods for creating request and response messages.
//     Responses carry the store.RetCode of a failed operation in Code, so clients
//     can rebuild a *store.Error.
//
//   - MessageType: Enumeration defining all supported operation types in the
//     system, categorized into index operations, id manager operations, and
//     control messages. Message types are encoded as strings in JSON.
//
//   - ServerConfig: Configuration for server nodes, including RAFT parameters,
//     storage settings, transport and admin endpoints and logging.
//     Provides utilities for converting to Dragonboat-specific configurations.
//
//   - ClientConfig: Configuration for client components, controlling connection
//     parameters, timeouts, and retry behavior.
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
//     Output can additionally go to a rotating log file (lumberjack).
package common
