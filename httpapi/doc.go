// Package httpapi exposes the circulation operations and reports over HTTP.
//
// The facade is a thin translation layer: request bodies are decoded into
// commands and queries, outcomes are rendered back as JSON. All business
// decisions stay in the feature slices; the only logic here is the mapping
// of outcomes to status codes:
//
//   - business rule rejections render as 200 with IsSuccess=false, because a
//     refusal is a complete, user-visible answer, not a transport failure
//   - capability denials render as 403
//   - malformed input renders as 400
//   - violated storage invariants render as 500 and log loudly, since they
//     indicate a bug rather than bad input
//   - unreachable storage renders as 503
package httpapi
