package pngine

import (
	"os"
	"path/filepath"

	"github.com/pngine/pngine/analyzer"
	"github.com/pngine/pngine/bytecode"
	"github.com/pngine/pngine/emitter"
	"github.com/pngine/pngine/parser"
)

// Compile runs src through the full pipeline (parse, #import merge,
// analyze, emit) and returns the resulting bytecode module, grounded on
// cmd/ggdemo/main.go's one-call "NewContext then SavePNG" ergonomics.
func Compile(src []byte, opts CompileOptions) (*bytecode.Module, Diagnostics, error) {
	Logger().Debug("compile started", "bytes", len(src))

	ast, perrs := parser.ParseRoot(src, opts.MaxParseDepth)
	if len(perrs) > 0 {
		return nil, toDiagnostics("parse", perrs), perrs
	}

	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = "."
	}
	if err := resolveImports(ast, baseDir, opts.MaxParseDepth, map[string]bool{}, map[string]bool{}); err != nil {
		return nil, Diagnostics{Stage: "import", Errors: []error{err}}, err
	}

	mod, aerrs := analyzer.Analyze(ast, opts.Reflector)
	if len(aerrs) > 0 {
		return nil, toDiagnostics("analyze", aerrs), aerrs
	}

	bc, eerrs := emitter.Emit(ast, mod)
	if len(eerrs) > 0 {
		return nil, toDiagnostics("emit", eerrs), eerrs
	}

	if opts.MaxBytecodeBytes > 0 && len(bc.Bytecode) > opts.MaxBytecodeBytes {
		err := bytecode.BytecodeTooLarge(len(bc.Bytecode))
		return nil, Diagnostics{Stage: "emit", Errors: []error{err}}, err
	}
	if opts.EmbedExecutor {
		bc.Executor = opts.ExecutorBytes
	}

	Logger().Info("compile finished", "opcodes", len(bc.Bytecode), "data_bytes", len(bc.Data))
	return bc, Diagnostics{}, nil
}

// toDiagnostics flattens one of the pipeline's per-stage typed error
// lists (parser.ErrorList, analyzer.ErrorList, emitter.ErrorList - each a
// distinct slice-of-*Error type) into the stage-tagged Diagnostics shape
// Compile returns.
func toDiagnostics[E error](stage string, list []E) Diagnostics {
	errs := make([]error, len(list))
	for i, e := range list {
		errs[i] = e
	}
	return Diagnostics{Stage: stage, Errors: errs}
}

// resolveImports walks ast.Roots for #import declarations, parses each
// referenced file, recursively merges its own imports first, then splices
// its declarations into ast. visiting detects cycles along the current
// import chain; visited de-duplicates a file already merged via a
// different path, per spec.md §4.3's "transitive imports are
// de-duplicated by canonical path; cycles are errors".
func resolveImports(ast *parser.Ast, baseDir string, maxDepth int, visiting, visited map[string]bool) error {
	roots := append([]parser.NodeID(nil), ast.Roots...)
	for _, id := range roots {
		n := ast.Node(id)
		if n.Kind != parser.NodeMacro || n.Text != "import" {
			continue
		}
		pathNode := ast.Node(ast.Child(id, 0))
		full := filepath.Join(baseDir, pathNode.Text)
		canon, err := filepath.Abs(full)
		if err != nil {
			return err
		}
		if visiting[canon] {
			return &ImportCycleError{Path: canon}
		}
		if visited[canon] {
			continue
		}

		data, err := os.ReadFile(full)
		if err != nil {
			return err
		}
		subAst, perrs := parser.ParseRoot(data, maxDepth)
		if len(perrs) > 0 {
			return perrs
		}

		visiting[canon] = true
		if err := resolveImports(subAst, filepath.Dir(full), maxDepth, visiting, visited); err != nil {
			return err
		}
		delete(visiting, canon)
		visited[canon] = true

		ast.Roots = append(ast.Roots, mergeAst(ast, subAst)...)
	}
	return nil
}

// mergeAst appends src's whole node/children arena onto dst, offsetting
// every NodeID reference by dst's pre-merge size, and returns src's roots
// translated into dst's id space. Flat-arena ASTs (spec.md §4.2) make this
// a pair of slice appends plus one pass of integer arithmetic, rather than
// a structural tree copy.
func mergeAst(dst, src *parser.Ast) []parser.NodeID {
	nodeOffset := parser.NodeID(len(dst.Nodes))
	childOffset := int32(len(dst.Children))

	for _, n := range src.Nodes {
		n.ChildStart += childOffset
		dst.Nodes = append(dst.Nodes, n)
	}
	for _, c := range src.Children {
		dst.Children = append(dst.Children, c+nodeOffset)
	}

	roots := make([]parser.NodeID, len(src.Roots))
	for i, r := range src.Roots {
		roots[i] = r + nodeOffset
	}
	return roots
}
