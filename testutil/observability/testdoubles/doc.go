// Package testdoubles provides spy implementations of the observability
// ports, so tests can verify that store and handler operations emit the
// expected metrics and logs without external telemetry infrastructure.
package testdoubles
