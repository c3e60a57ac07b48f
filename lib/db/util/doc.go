// Package util provides utility components for index implementations that
// satisfy the db.IndexDB interface.
//
// The package contains:
//   - mpsc: An unbounded Multi-Producer Single-Consumer queue with wait-free producers.
//     Index engines use it as the request mailbox of the single goroutine that owns the index.
//   - statistics: Summary statistics (min, max, mean, deviation) over samples, used to
//     report the balance of an index in its info metadata.
//   - functions: Hash functions used to derive numeric ids from names.
package util
