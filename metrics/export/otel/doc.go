// Package otel publishes goAccount engine metrics through an OpenTelemetry
// Meter.
//
// [New] registers one observable counter per engine counter and, for the
// password hashing histogram, a cumulative bucket gauge keyed by an "le"
// attribute plus a sample count gauge. A single callback reads
// [goAccount.Engine.MetricsSnapshot] on each collection cycle. The caller owns
// the MeterProvider.
package otel
