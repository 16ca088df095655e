// Package emitter serializes an analyzed Ast/Module pair into a
// bytecode.Module, walking symbol tables in the fixed dependency order
// spec.md §4.4 specifies rather than source order.
package emitter

import (
	"github.com/pngine/pngine/analyzer"
	"github.com/pngine/pngine/bytecode"
	"github.com/pngine/pngine/parser"
)

// MaxBytecodeSize is the inclusive cap on the opcode stream so the
// dispatcher's program counter can stay a uint32.
const MaxBytecodeSize = 1 << 20

type emitter struct {
	ast *parser.Ast
	mod *analyzer.Module

	data       []byte
	strOffsets map[string]uint32
	bc         []byte

	hasAnimationTable bool

	errs ErrorList
}

// Emit walks ast/mod in dependency order and produces a bytecode.Module.
func Emit(ast *parser.Ast, mod *analyzer.Module) (*bytecode.Module, ErrorList) {
	e := &emitter{ast: ast, mod: mod, strOffsets: make(map[string]uint32)}

	e.emitShaders()
	e.emitLayouts()
	e.emitPipelines()
	e.emitBuffersTexturesSamplers()
	e.emitBindGroups()
	e.emitDataAndUploads()
	e.emitInitOps()
	e.emitFrames()
	e.op(bytecode.OpEnd, nil)

	if len(e.errs) > 0 {
		return nil, e.errs
	}
	if len(e.bc) > MaxBytecodeSize {
		tooLarge := bytecode.BytecodeTooLarge(len(e.bc))
		e.fail(&Error{Code: tooLarge.Code, Node: "bytecode", Msg: tooLarge.Msg})
		return nil, e.errs
	}

	var flags uint16
	if e.hasAnimationTable {
		flags |= bytecode.FlagHasAnimationTable
	}
	// Header plugin byte: bit0 = core (always set), then render, compute,
	// wasm, animation, texture_external, image_bitmap, query_set.
	plugins := uint8(1)
	for i, p := range []analyzer.PluginSet{analyzer.PluginRender, analyzer.PluginCompute,
		analyzer.PluginWasmCall, analyzer.PluginAnimation, analyzer.PluginTextureExternal,
		analyzer.PluginImageBitmap, analyzer.PluginQuerySet} {
		if mod.Plugins&p != 0 {
			plugins |= 1 << (i + 1)
		}
	}
	return &bytecode.Module{
		Flags:    flags,
		Plugins:  plugins,
		Bytecode: e.bc,
		Data:     e.data,
	}, nil
}

func (e *emitter) fail(err *Error) {
	e.errs = append(e.errs, err)
}

func (e *emitter) op(code bytecode.Opcode, values map[string]uint32) {
	e.bc = append(e.bc, bytecode.PackOperands(code, values)...)
}

// intern appends s to the data section (deduplicated) and returns its
// byte offset.
func (e *emitter) intern(s string) uint32 {
	if off, ok := e.strOffsets[s]; ok {
		return off
	}
	off := uint32(len(e.data))
	e.data = append(e.data, []byte(s)...)
	e.data = append(e.data, 0)
	e.strOffsets[s] = off
	return off
}

// blob appends raw bytes to the data section (not deduplicated — every
// descriptor and vertex-data blob is distinct) and returns offset/length.
func (e *emitter) blob(b []byte) (off, length uint32) {
	off = uint32(len(e.data))
	e.data = append(e.data, b...)
	return off, uint32(len(b))
}

// propNode finds the value node of a key=value property among parent's
// children, or ok=false if no such property exists.
func propNode(ast *parser.Ast, parent parser.NodeID, key string) (parser.NodeID, bool) {
	for i := 0; i < ast.ChildCount(parent); i++ {
		c := ast.Child(parent, i)
		n := ast.Node(c)
		if n.Kind == parser.NodeProperty && n.Text == key {
			return ast.Child(c, 0), true
		}
	}
	return 0, false
}

func (e *emitter) numProp(parent parser.NodeID, key, label string) (uint32, bool) {
	v, ok := propNode(e.ast, parent, key)
	if !ok {
		e.fail(errMissingProperty(label, key))
		return 0, false
	}
	f, ok := e.mod.ResolveNumeric(e.ast.Node(v))
	if !ok {
		e.fail(errInvalidValue(label, "property "+key+" is not numeric"))
		return 0, false
	}
	return uint32(f), true
}

func (e *emitter) numPropDefault(parent parser.NodeID, key string, def uint32) uint32 {
	v, ok := propNode(e.ast, parent, key)
	if !ok {
		return def
	}
	f, ok := e.mod.ResolveNumeric(e.ast.Node(v))
	if !ok {
		return def
	}
	return uint32(f)
}

func (e *emitter) strProp(parent parser.NodeID, key string) (string, bool) {
	v, ok := propNode(e.ast, parent, key)
	if !ok {
		return "", false
	}
	return e.ast.Node(v).Text, true
}

func (e *emitter) strPropDefault(parent parser.NodeID, key, def string) string {
	if s, ok := e.strProp(parent, key); ok {
		return s
	}
	return def
}

// refProp resolves an identifier-valued property to the numeric id of a
// symbol in the given kind's table.
func (e *emitter) refProp(parent parser.NodeID, key string, kind analyzer.Kind, label string) (uint16, bool) {
	v, ok := propNode(e.ast, parent, key)
	if !ok {
		e.fail(errMissingProperty(label, key))
		return 0, false
	}
	name := e.ast.Node(v).Text
	sym := e.mod.Tables.Table(kind).Lookup(name)
	if sym == nil {
		e.fail(errUnresolvedReference(label, name))
		return 0, false
	}
	return sym.ID, true
}

// stringItems returns the token texts of an array property (or a single
// scalar's text as a one-element slice), used for usage=[...] lists and
// similar whitespace-separated sets.
func (e *emitter) stringItems(parent parser.NodeID, key string) []string {
	v, ok := propNode(e.ast, parent, key)
	if !ok {
		return nil
	}
	n := e.ast.Node(v)
	if n.Kind != parser.NodeArray {
		return []string{n.Text}
	}
	items := make([]string, 0, e.ast.ChildCount(v))
	for i := 0; i < e.ast.ChildCount(v); i++ {
		items = append(items, e.ast.Node(e.ast.Child(v, i)).Text)
	}
	return items
}
