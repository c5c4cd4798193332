// Package diag provides the structured diagnostics channel for candb.
//
// This package defines the Logger interface and Event types for capturing
// non-fatal observations made while parsing, merging and decoding: merge
// collisions that overwrite a lookup entry, input sections a parser
// skipped, and decoded frame records. It is separate from operational
// logging (slog) - the diagnostics channel is a machine-readable event
// stream that tests and tools can assert on.
//
// # Basic Usage
//
// Libraries take a Logger through functional options:
//
//	// For development: log to console via slog
//	db := descriptor.New(descriptor.WithDiagnostics(diag.NewSlogAdapter(slog.Default())))
//
//	// For tools: write to binary file
//	fl, _ := diag.NewFileLogger("frames.canlog")
//
//	// Both: use MultiLogger
//	l := diag.NewMultiLogger(diag.NewSlogAdapter(slog.Default()), fl)
//
//	// In tests: capture events in memory
//	rec := &diag.Recorder{}
//
// # Event Types
//
//   - Collision: a database merge overwrote a name or frame ID lookup entry
//   - Skip: a parser ignored an unrecognized section
//   - Frame: a decoded CAN frame record
//
// # File Format
//
// Log files use CBOR encoding with .canlog extension. The canlog CLI tool
// provides viewing, filtering, and export capabilities.
package diag
