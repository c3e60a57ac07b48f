// Package testing provides standardised tests and benchmarks for
// index implementations that satisfy the db.IndexDB interface.
//
// The package contains:
//   - testing: A test suite for validating conformance to the IndexDB interface contract.
//     Randomized tests compare the index against a model set kept in a roaring bitmap.
//   - benchmark: Performance tests for measuring throughput of common index operations
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func() db.IndexDB {
//		return NewMyIndex()
//	}
//
//	// Running the standard test suite
//	dbtesting.RunIndexDBTests(t, "MyIndex", factory)
//
//	// Running performance benchmarks
//	dbtesting.RunIndexDBBenchmarks(b, "MyIndex", factory)
package testing
