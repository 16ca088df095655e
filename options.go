package pngine

import "github.com/pngine/pngine/reflector"

// CompileOptions configures a Compile call. The zero value is usable
// (imports resolve against the current directory; Reflector is nil, so
// reflection is disabled); DefaultOptions additionally installs a
// reflector, grounded on gpucore.NewHybridPipeline's
// defaults-filled-in-by-constructor pattern.
type CompileOptions struct {
	// BaseDir resolves #import paths against. Empty means the current
	// working directory.
	BaseDir string

	// Reflector backs size=<shader>.<var> auto-sizing and #init binding
	// resolution (spec.md §6.3). nil disables both; a source that needs
	// reflection then fails with ReflectionFailed.
	Reflector reflector.Reflector

	// EmbedExecutor, when true, writes ExecutorBytes into the module's
	// optional tailored-runtime section (spec.md §6.1's
	// FlagHasEmbeddedExecutor).
	EmbedExecutor bool
	ExecutorBytes []byte

	// MaxParseDepth bounds container nesting. 0 uses
	// parser.DefaultMaxParseDepth.
	MaxParseDepth int

	// MaxBytecodeBytes caps the opcode stream on top of the emitter's own
	// built-in 1 MiB ceiling (emitter.MaxBytecodeSize). 0 disables this
	// additional cap.
	MaxBytecodeBytes int

	// MaxOpcodes overrides dispatcher.MaxOpcodesPerRun for any Dispatcher
	// a caller builds from this compile's module (not consulted by
	// Compile itself; surfaced for callers, e.g. the pnginec CLI's
	// dry-run mode, via dispatcher.Dispatcher.SetMaxOpcodes). 0 uses the
	// dispatcher's default.
	MaxOpcodes uint32
}

// DefaultOptions returns a CompileOptions with every field at its default:
// the current directory for imports and a CachingReflector over a
// NagaReflector for reflection.
func DefaultOptions() CompileOptions {
	return CompileOptions{
		BaseDir:   ".",
		Reflector: reflector.NewCachingReflector(reflector.NewNagaReflector(), 0),
	}
}
