// Package analyzer walks a parsed Ast in the two passes spec.md §4.3
// describes: declaration (populating per-kind symbol tables and resolving
// #define constants) and resolution (identifier/expression resolution and
// plugin detection).
package analyzer

import (
	"strconv"
	"strings"

	"github.com/pngine/pngine/parser"
	"github.com/pngine/pngine/reflector"
)

// Module is analysis's output: populated symbol tables, the detected
// plugin set, and resolved #init shader-variable-to-buffer bindings. The
// emitter consumes this directly.
type Module struct {
	Tables  *SymbolTables
	Plugins PluginSet

	// InitBindings maps an #init macro's declaring node id to its resolved
	// shader-variable -> buffer-name bindings.
	InitBindings map[parser.NodeID]map[string]string
}

// runtimeDotted is the closed set of dotted references the dispatcher
// resolves at replay time rather than at compile time.
var runtimeDotted = map[string]bool{
	"time.total": true, "time.delta": true,
	"canvas.width": true, "canvas.height": true,
}

type analyzer struct {
	ast  *parser.Ast
	refl reflector.Reflector
	mod  *Module
	errs ErrorList
}

// Analyze runs both passes over ast and returns the resulting Module plus
// any errors. refl may be nil if no #init macro or size=<shader>.<var>
// reference ever needs reflection.
func Analyze(ast *parser.Ast, refl reflector.Reflector) (*Module, ErrorList) {
	a := &analyzer{
		ast: ast, refl: refl,
		mod: &Module{Tables: newSymbolTables(), InitBindings: make(map[parser.NodeID]map[string]string)},
	}
	a.declare()
	a.resolve()
	return a.mod, a.errs
}

// --- Pass 1: declaration ---

func (a *analyzer) declare() {
	for _, id := range a.ast.Roots {
		n := a.ast.Node(id)
		switch n.Text {
		case "define":
			a.declareDefine(id, n)
		case "import":
			// Import merging/deduplication happens before analysis (the
			// caller resolves #import by canonical path and appends the
			// imported declarations into this same Ast); nothing to do
			// here beyond having already skipped it.
		default:
			a.declareResource(id, n)
		}
	}
}

func (a *analyzer) declareDefine(id parser.NodeID, n *parser.Node) {
	propID := a.ast.Child(id, 0)
	prop := a.ast.Node(propID)
	name := prop.Text

	sym, ok := a.mod.Tables.Table(KindDefine).Declare(name, id)
	if !ok {
		a.errs = append(a.errs, errDuplicateDefinition(n.Start, "define", name))
		return
	}
	valID := a.ast.Child(propID, 0)
	val := a.ast.Node(valID)
	switch val.Kind {
	case parser.NodeLiteralInteger:
		f, _ := strconv.ParseFloat(val.Text, 64)
		sym.DefineValue = f
	case parser.NodeLiteralFloat:
		f, _ := strconv.ParseFloat(val.Text, 64)
		sym.DefineValue = f
		sym.DefineIsFloat = true
	case parser.NodeLiteralHex:
		hexDigits := strings.TrimPrefix(strings.TrimPrefix(val.Text, "0x"), "0X")
		u, _ := strconv.ParseUint(hexDigits, 16, 64)
		sym.DefineValue = float64(u)
	case parser.NodeLiteralString:
		// Expression text, resolved lazily on first use per spec.md §4.3.
		sym.ExprText = val.Text
	default:
		a.errs = append(a.errs, errTypeMismatch(val.Start, "#define value must be a literal or expression string"))
		return
	}
	sym.Resolved = true
}

func (a *analyzer) declareResource(id parser.NodeID, n *parser.Node) {
	kind, ok := macroKind[n.Text]
	if !ok {
		a.errs = append(a.errs, errUnknownPluginFeature(n.Start, n.Text))
		return
	}
	name := n.Name
	if name == "" {
		// Anonymous resources (a lone #queue block, for instance) still
		// get a dense id, keyed by a name no source identifier can collide
		// with.
		name = "$" + n.Text + strconv.Itoa(a.mod.Tables.Table(kind).Len())
	}
	if _, ok := a.mod.Tables.Table(kind).Declare(name, id); !ok {
		a.errs = append(a.errs, errDuplicateDefinition(n.Start, n.Text, name))
		return
	}
	if plugin, ok := macroPlugin[n.Text]; ok {
		a.mod.Plugins |= plugin
	}
}

// --- Pass 2: resolution ---

func (a *analyzer) resolve() {
	for _, id := range a.ast.Roots {
		n := a.ast.Node(id)
		if n.Text == "define" || n.Text == "import" {
			continue
		}
		a.resolveChildren(id)
		switch n.Text {
		case "init":
			a.resolveInit(id, n)
		case "buffer":
			a.validateBufferSize(id, n)
		}
	}
}

func (a *analyzer) resolveChildren(id parser.NodeID) {
	for i := 0; i < a.ast.ChildCount(id); i++ {
		a.resolveNode(a.ast.Child(id, i))
	}
}

func (a *analyzer) resolveNode(id parser.NodeID) {
	n := a.ast.Node(id)
	switch n.Kind {
	case parser.NodeProperty, parser.NodeArray, parser.NodeObject:
		a.resolveChildren(id)
	case parser.NodeIdentifier:
		a.resolveIdentifierRef(n)
	case parser.NodeDottedReference:
		a.resolveDottedRef(id, n)
	case parser.NodeLiteralString:
		a.maybeResolveExpression(n)
	}
}

// valueKeywords are bare identifiers the emitter reads as enumeration
// values or host-provided names (usage flags, formats, load/store ops,
// layout=auto, contextCurrentTexture, ...) rather than as references.
var valueKeywords = map[string]bool{
	"auto": true, "contextCurrentTexture": true, "preferredCanvasFormat": true,
	"VERTEX": true, "INDEX": true, "UNIFORM": true, "STORAGE": true, "COPY_SRC": true, "COPY_DST": true,
	"INDIRECT": true, "QUERY_RESOLVE": true, "MAP_READ": true, "MAP_WRITE": true,
	"TEXTURE_BINDING": true, "STORAGE_BINDING": true, "RENDER_ATTACHMENT": true,
	"rgba8unorm": true, "rgba8unormSrgb": true, "bgra8unorm": true, "bgra8unormSrgb": true, "r8unorm": true,
	"r32float": true, "rg32float": true, "rgba32float": true, "depth32float": true,
	"nearest": true, "linear": true, "clampToEdge": true, "repeat": true, "mirrorRepeat": true,
	"never": true, "less": true, "equal": true, "lessEqual": true, "greater": true, "notEqual": true, "greaterEqual": true, "always": true,
	"pointList": true, "lineList": true, "lineStrip": true, "triangleList": true, "triangleStrip": true,
	"none": true, "front": true, "back": true, "ccw": true, "cw": true, "load": true, "clear": true, "store": true, "discard": true,
	"uint16": true, "uint32": true, "hold": true, "loop": true, "stop": true,
}

// resolveIdentifierRef checks that a bare identifier is one of the
// valueKeywords, names a #define constant (resolved lazily when its numeric
// value is actually needed), or names a symbol in some resource kind's
// table. It does not enforce
// that the identifier's kind matches the property it appears under: doing
// so requires a full per-macro-field type schema, which this analyzer
// leaves for a later pass (see DESIGN.md).
func (a *analyzer) resolveIdentifierRef(n *parser.Node) {
	if valueKeywords[n.Text] || a.mod.Tables.Table(KindDefine).Lookup(n.Text) != nil {
		return
	}
	for k := Kind(0); k < kindCount; k++ {
		if k == KindDefine {
			continue
		}
		if a.mod.Tables.Table(k).Lookup(n.Text) != nil {
			return
		}
	}
	a.errs = append(a.errs, errUndefinedReference(n.Start, "identifier", n.Text))
}

func (a *analyzer) resolveDottedRef(id parser.NodeID, n *parser.Node) {
	if runtimeDotted[n.Text] {
		return
	}
	if len(n.Parts) == 2 {
		if shaderSym := a.mod.Tables.Table(KindShader).Lookup(n.Parts[0]); shaderSym != nil {
			a.resolveShaderSize(id, n, shaderSym)
			return
		}
	}
	a.errs = append(a.errs, errUndefinedReference(n.Start, "dotted reference", n.Text))
}

// resolveShaderSize implements the size=<shader>.<var> auto-sizing rule:
// it rewrites the dotted-reference node in place into the resolved integer
// literal (array count × stride, or struct size) reported by the
// reflector.
func (a *analyzer) resolveShaderSize(id parser.NodeID, n *parser.Node, shaderSym *Symbol) {
	if a.refl == nil {
		a.errs = append(a.errs, errReflectionFailed(n.Start, "no reflector configured"))
		return
	}
	src := a.shaderSource(shaderSym.Node)
	refl, err := a.refl.Reflect([]byte(src))
	if err != nil {
		a.errs = append(a.errs, errReflectionFailed(n.Start, err.Error()))
		return
	}
	binding, ok := refl.LookupBinding(n.Parts[1])
	if !ok {
		a.errs = append(a.errs, errUndefinedReference(n.Start, "shader binding", n.Parts[1]))
		return
	}
	size := binding.Layout.Size
	if binding.Array != nil {
		size = binding.Array.ElementCount * binding.Array.ElementStride
	}
	node := a.ast.Node(id)
	node.Kind = parser.NodeLiteralInteger
	node.Text = strconv.FormatUint(uint64(size), 10)
}

// maybeResolveExpression evaluates a string literal as an arithmetic
// expression when it parses as one. Not every string is meant to be an
// expression (shader paths, labels, import paths), so a failure here is
// not itself reported as an error.
func (a *analyzer) maybeResolveExpression(n *parser.Node) {
	if _, err := EvalExpression(n.Text, &defineEnv{a: a}); err != nil {
		return
	}
}

// shaderSource recovers the WGSL text carried by a #wgsl macro, whether it
// was written as a shorthand bare-string body or as a `source=`/`code=`/
// `value="..."` property (the pack's worked examples use all three).
func (a *analyzer) shaderSource(shaderID parser.NodeID) string {
	for i := 0; i < a.ast.ChildCount(shaderID); i++ {
		propID := a.ast.Child(shaderID, i)
		prop := a.ast.Node(propID)
		if prop.Text == "" || prop.Text == "source" || prop.Text == "code" || prop.Text == "value" {
			valID := a.ast.Child(propID, 0)
			return a.ast.Node(valID).Text
		}
	}
	return ""
}

// resolveInit implements the #init special rule: the referenced shader is
// reflected, then each variable is bound to a buffer either explicitly
// (bindings={ var=buf }) or by exact name match; "params" is always
// recorded as bound to the reserved name "$params". No buffer symbol is
// declared under that name.
func (a *analyzer) resolveInit(id parser.NodeID, n *parser.Node) {
	var shaderName string
	var bindingsNode parser.NodeID
	hasBindings := false

	for i := 0; i < a.ast.ChildCount(id); i++ {
		propID := a.ast.Child(id, i)
		prop := a.ast.Node(propID)
		switch prop.Text {
		case "shader":
			shaderName = a.ast.Node(a.ast.Child(propID, 0)).Text
		case "bindings":
			bindingsNode = a.ast.Child(propID, 0)
			hasBindings = true
		}
	}
	if shaderName == "" {
		a.errs = append(a.errs, errUndefinedReference(n.Start, "wgsl", "(missing shader= in #init)"))
		return
	}
	shaderSym := a.mod.Tables.Table(KindShader).Lookup(shaderName)
	if shaderSym == nil {
		a.errs = append(a.errs, errUndefinedReference(n.Start, "wgsl", shaderName))
		return
	}
	if a.refl == nil {
		a.errs = append(a.errs, errReflectionFailed(n.Start, "no reflector configured"))
		return
	}
	refl, err := a.refl.Reflect([]byte(a.shaderSource(shaderSym.Node)))
	if err != nil {
		a.errs = append(a.errs, errReflectionFailed(n.Start, err.Error()))
		return
	}

	explicit := make(map[string]string)
	if hasBindings {
		if obj := a.ast.Node(bindingsNode); obj.Kind == parser.NodeObject {
			for i := 0; i < a.ast.ChildCount(bindingsNode); i++ {
				propID := a.ast.Child(bindingsNode, i)
				p := a.ast.Node(propID)
				explicit[p.Text] = a.ast.Node(a.ast.Child(propID, 0)).Text
			}
		}
	}

	bound := make(map[string]string)
	for _, b := range refl.Bindings {
		switch {
		case b.Name == "params":
			bound[b.Name] = "$params"
		case explicit[b.Name] != "":
			bound[b.Name] = explicit[b.Name]
		case a.mod.Tables.Table(KindBuffer).Lookup(b.Name) != nil:
			bound[b.Name] = b.Name
		default:
			a.errs = append(a.errs, errUndefinedReference(n.Start, "shader binding", b.Name))
		}
	}
	a.mod.InitBindings[id] = bound
}

// validateBufferSize enforces spec.md §8's boundary behavior: a #buffer
// whose size resolves to zero (or negative) is a TypeMismatch, not a
// silently empty buffer. A size= that fails to resolve at all (missing
// property, non-numeric) is left for the emitter's own property checks to
// report, by resolveShaderSize already having run during resolveChildren.
func (a *analyzer) validateBufferSize(id parser.NodeID, n *parser.Node) {
	for i := 0; i < a.ast.ChildCount(id); i++ {
		propID := a.ast.Child(id, i)
		prop := a.ast.Node(propID)
		if prop.Text != "size" {
			continue
		}
		valID := a.ast.Child(propID, 0)
		size, ok := a.mod.ResolveNumeric(a.ast.Node(valID))
		if ok && size <= 0 {
			a.errs = append(a.errs, errTypeMismatch(a.ast.Node(valID).Start, "buffer size must be greater than 0"))
		}
		return
	}
}

// defineEnv adapts the #define symbol table to the Env interface expr.go
// expects, resolving string-expression constants lazily on first use.
type defineEnv struct {
	a *analyzer
}

func (e *defineEnv) Lookup(name string) (float64, bool) {
	sym := e.a.mod.Tables.Table(KindDefine).Lookup(name)
	if sym == nil {
		return 0, false
	}
	if sym.ExprText != "" && !sym.ExprResolved {
		v, err := EvalExpression(sym.ExprText, e)
		if err != nil {
			return 0, false
		}
		sym.DefineValue = v
		sym.ExprResolved = true
		sym.ExprText = ""
	}
	return sym.DefineValue, true
}

// moduleEnv is the same lazy-resolution adapter as defineEnv, usable from
// outside the package (the emitter needs it to evaluate property values
// that are #define identifiers or expression strings).
type moduleEnv struct {
	mod *Module
}

func (e *moduleEnv) Lookup(name string) (float64, bool) {
	sym := e.mod.Tables.Table(KindDefine).Lookup(name)
	if sym == nil {
		return 0, false
	}
	if sym.ExprText != "" && !sym.ExprResolved {
		v, err := EvalExpression(sym.ExprText, e)
		if err != nil {
			return 0, false
		}
		sym.DefineValue = v
		sym.ExprResolved = true
		sym.ExprText = ""
	}
	return sym.DefineValue, true
}

// ResolveNumeric evaluates n as a number: a literal (integer, hex, float),
// a bare identifier naming a #define constant, or an expression string
// (e.g. "4 * 4"). Returns ok=false if n is none of these.
func (m *Module) ResolveNumeric(n *parser.Node) (float64, bool) {
	switch n.Kind {
	case parser.NodeLiteralInteger, parser.NodeLiteralFloat:
		f, err := strconv.ParseFloat(n.Text, 64)
		return f, err == nil
	case parser.NodeLiteralHex:
		hexDigits := strings.TrimPrefix(strings.TrimPrefix(n.Text, "0x"), "0X")
		u, err := strconv.ParseUint(hexDigits, 16, 64)
		return float64(u), err == nil
	case parser.NodeIdentifier:
		return (&moduleEnv{mod: m}).Lookup(n.Text)
	case parser.NodeLiteralString:
		v, err := EvalExpression(n.Text, &moduleEnv{mod: m})
		return v, err == nil
	}
	return 0, false
}

// ResolveString returns n's text as a plain string: string/identifier
// literals are returned as-is.
func (m *Module) ResolveString(n *parser.Node) string {
	return n.Text
}

// ResolveBool evaluates n as a boolean literal.
func (m *Module) ResolveBool(n *parser.Node) bool {
	return n.Kind == parser.NodeLiteralBoolean && n.Text == "true"
}
