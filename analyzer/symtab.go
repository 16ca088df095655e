package analyzer

import "github.com/pngine/pngine/parser"

// Kind identifies one of the resource symbol tables spec.md §3 lists. Each
// kind is assigned ids densely and independently of the others.
type Kind uint8

const (
	KindBuffer Kind = iota
	KindTexture
	KindTextureView
	KindSampler
	KindShader
	KindBindGroupLayout
	KindPipelineLayout
	KindBindGroup
	KindRenderPipeline
	KindComputePipeline
	KindRenderPass
	KindComputePass
	KindRenderBundle
	KindQuerySet
	KindData
	KindFrame
	KindAnimation
	KindImport
	KindDefine
	KindInit
	KindWasmCall
	KindQueue
	KindImageBitmap
	kindCount
)

var kindNames = [...]string{
	KindBuffer: "buffer", KindTexture: "texture", KindTextureView: "textureView",
	KindSampler: "sampler", KindShader: "wgsl", KindBindGroupLayout: "bindGroupLayout",
	KindPipelineLayout: "pipelineLayout", KindBindGroup: "bindGroup",
	KindRenderPipeline: "renderPipeline", KindComputePipeline: "computePipeline",
	KindRenderPass: "renderPass", KindComputePass: "computePass",
	KindRenderBundle: "renderBundle", KindQuerySet: "querySet", KindData: "data",
	KindFrame: "frame", KindAnimation: "animation", KindImport: "import",
	KindDefine: "define", KindInit: "init", KindWasmCall: "wasmCall",
	KindQueue: "queue", KindImageBitmap: "imageBitmap",
}

// macroKind maps a macro keyword (as it appears after '#') to the symbol
// table it declares into. "define" and "import" are handled separately by
// the analyzer since they do not behave like ordinary named resources.
var macroKind = map[string]Kind{
	"buffer": KindBuffer, "texture": KindTexture, "textureView": KindTextureView,
	"sampler": KindSampler, "wgsl": KindShader, "bindGroupLayout": KindBindGroupLayout,
	"pipelineLayout": KindPipelineLayout, "bindGroup": KindBindGroup,
	"renderPipeline": KindRenderPipeline, "computePipeline": KindComputePipeline,
	"renderPass": KindRenderPass, "computePass": KindComputePass,
	"renderBundle": KindRenderBundle, "querySet": KindQuerySet, "data": KindData,
	"frame": KindFrame, "animation": KindAnimation, "init": KindInit,
	"wasmCall": KindWasmCall, "queue": KindQueue, "imageBitmap": KindImageBitmap,
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Symbol is one entry in a per-kind symbol table.
type Symbol struct {
	ID       uint16
	Name     string
	Node     parser.NodeID
	Resolved bool

	// DefineValue holds the resolved value of a KindDefine entry: either
	// an already-known numeric literal, or (when the literal is a string
	// expression) is left empty until ExprResolved below is set on
	// first use, per spec.md §4.3's "resolved on the first use" rule.
	DefineValue   float64
	DefineIsFloat bool
	ExprText      string // unresolved expression text, empty once resolved
	ExprResolved  bool
}

// SymbolTable preserves insertion order (dense id assignment) while
// offering O(1) name lookup, adapted from recording/registry.go's
// map[string]Factory shape with an added ordered index.
type SymbolTable struct {
	order []*Symbol
	byName map[string]*Symbol
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{byName: make(map[string]*Symbol)}
}

// Declare inserts a new symbol, assigning it the next dense id. ok is false
// (and no symbol is inserted) if the name is already declared in this
// table; the caller decides how to report the duplicate.
func (t *SymbolTable) Declare(name string, node parser.NodeID) (sym *Symbol, ok bool) {
	if _, dup := t.byName[name]; dup {
		return nil, false
	}
	sym = &Symbol{ID: uint16(len(t.order)), Name: name, Node: node}
	t.order = append(t.order, sym)
	t.byName[name] = sym
	return sym, true
}

// Lookup returns the symbol with the given name, or nil.
func (t *SymbolTable) Lookup(name string) *Symbol {
	return t.byName[name]
}

// Len returns the number of declared symbols (the dense id count).
func (t *SymbolTable) Len() int { return len(t.order) }

// All returns symbols in insertion (id) order.
func (t *SymbolTable) All() []*Symbol { return t.order }

// SymbolTables holds one SymbolTable per resource Kind.
type SymbolTables struct {
	tables [kindCount]*SymbolTable
}

func newSymbolTables() *SymbolTables {
	st := &SymbolTables{}
	for i := range st.tables {
		st.tables[i] = newSymbolTable()
	}
	return st
}

func (st *SymbolTables) Table(k Kind) *SymbolTable { return st.tables[k] }
