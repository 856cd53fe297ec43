// Package flows contains the orchestration behind every Engine operation.
//
// Each Run function accepts a typed dependency struct and returns results
// without side effects beyond those dependencies. The Engine builds the
// structs and stays thin; tests drive the flows with fakes.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goAccount (to avoid import cycles).
//   - Perform I/O directly; all I/O goes through dependency functions.
package flows
