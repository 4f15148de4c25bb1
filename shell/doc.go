// Package shell provides the plumbing between the functional core and the
// circulation store: record/domain mapping, transition metadata, retry
// logic for concurrency conflicts, handler results, and observability
// helpers shared by all command and query handlers.
//
// This package implements the "imperative shell" pattern: the pure decision
// functions live in core, while everything that talks to storage, clocks,
// or telemetry goes through here. In Domain-Driven Design or Hexagonal
// Architecture terminology, this would be called the 'infrastructure' layer.
package shell
