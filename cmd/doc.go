// Package cmd implements the command-line interface of dIdx. It provides a
// hierarchical command structure with operations for running the server and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts and configures the dIdx server
//   - idx: Index operations (add, del, has, len, range, dot, info) and the perf benchmark
//   - id: Id allocation (alloc, reserve, release)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set as environment variables with the DIDX_ prefix,
// .env and .env.local files in the working directory are loaded as well.
//
// See didx -help for a list of all commands.
package cmd
