// Package main records a short demonstration trace.
//
// The demo declares a category registry, starts a tracing session from an
// optional YAML filter config, emits slices, instants, and counter samples
// with structured annotations, and writes two artifacts: the binary trace
// container (optionally gzip-compressed) and a Chrome trace-event JSON
// rendering of the same packets.
//
// Configuration:
//   - Environment variables (TRACE_*, LOG_*)
//   - CLI flags (override env vars)
package main
