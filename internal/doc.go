// Package internal provides low-level helpers shared by goAccount packages.
//
// # Architecture boundaries
//
// These helpers generate and digest single-use secret tokens. They have no
// knowledge of accounts, stores, or notification transports.
//
// # What this package must NOT do
//
//   - Import goAccount or any of its public sub-packages.
//   - Persist or log raw token values.
package internal
