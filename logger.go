// Package pngine compiles the PNGine declarative GPU-pipeline language into
// a compact bytecode payload and replays it against a WebGPU-compatible
// backend.
//
// # Overview
//
// PNGine turns a human-written specification of GPU resources (shaders,
// buffers, textures, pipelines, bind groups, passes, and frames) into an
// ordered opcode stream that recreates and drives those resources
// deterministically. The pipeline is:
//
//	source text -> lexer -> parser -> analyzer -> emitter -> bytecode.Module
//
// and, at replay time:
//
//	bytecode.Module -> dispatcher -> backend
//
// # Quick Start
//
//	mod, diags, err := pngine.Compile(src, pngine.DefaultOptions())
//	if err != nil {
//	    log.Fatalf("compile: %v (%v)", err, diags)
//	}
//
// # Architecture
//
//   - lexer: single-pass byte scanner
//   - parser: depth-bounded recursive-descent parser producing an AST
//   - analyzer: per-kind symbol tables, reference resolution, expression
//     evaluation, plugin detection
//   - emitter: deterministic dependency-ordered bytecode serializer
//   - bytecode: the versioned binary container and its closed enumerations
//   - dispatcher: a generic opcode-stream driver over a Backend
package pngine

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger used by pngine's Compile.
// By default, pngine produces no log output. Call SetLogger to enable it.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Compile is the only caller; it logs at [slog.LevelDebug] when a compile
// starts and at [slog.LevelInfo] when one finishes. No sub-package logs,
// and nothing logs at [slog.LevelWarn].
//
// Example:
//
//	// Enable info-level logging to stderr:
//	pngine.SetLogger(slog.Default())
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by pngine. Within this module
// only the root package's Compile calls it.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
