// Package internal provides the communication protocol structures and serialization
// logic for the dstore package. It defines the wire format used to transmit operations
// between the store client and the distributed state machine.
//
// This package is intended for internal use by the dstore implementation and should
// not be imported directly by external code.
//
// The package consists of two main components:
//
//   - Command System: Defines write operations (Add, Delete) that modify the
//     state of the index. Commands are serialized and proposed to the RAFT cluster,
//     executed on the state machine, and produce results that are returned to the client.
//
//   - Query System: Defines read operations (Has, Len, Range, Dump, GetDBInfo) that
//     read the index without modifying its state. Queries are executed locally on the
//     statemachine and therefore do not require serialization.
//
// Command Format:
//
//	Commands have a fixed size of 9 bytes:
//
//	- 1 byte: Command type (Add, Delete)
//	- 8 bytes: Key (uint64, big endian)
//
// Thread Safety:
//
//	The types in this package are not thread-safe and should not be shared
//	across goroutines without external synchronization. However, this is not
//	typically an issue as the RAFT protocol ensures sequential processing of
//	commands on the state machine.
package internal
