package analyzer

import (
	"testing"

	"github.com/pngine/pngine/parser"
	"github.com/pngine/pngine/reflector"
)

func parseOK(t *testing.T, src string) *parser.Ast {
	t.Helper()
	ast, errs := parser.ParseRoot([]byte(src), 0)
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return ast
}

func TestAnalyzer_DefineLiteral(t *testing.T) {
	ast := parseOK(t, `#define N=3`)
	mod, errs := Analyze(ast, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	sym := mod.Tables.Table(KindDefine).Lookup("N")
	if sym == nil || sym.DefineValue != 3 {
		t.Fatalf("N = %+v", sym)
	}
}

func TestAnalyzer_DefineExpression(t *testing.T) {
	ast := parseOK(t, `#define N=2
#define M="N*16"`)
	mod, errs := Analyze(ast, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	env := &defineEnv{a: &analyzer{mod: mod}}
	v, ok := env.Lookup("M")
	if !ok || v != 32 {
		t.Fatalf("M = %v, ok=%v, want 32", v, ok)
	}
}

func TestAnalyzer_DuplicateDefinition(t *testing.T) {
	ast := parseOK(t, `#buffer b { size=16 }
#buffer b { size=32 }`)
	_, errs := Analyze(ast, nil)
	if len(errs) == 0 || errs[0].Code != "E201" {
		t.Fatalf("errs = %v, want E201", errs)
	}
}

func TestAnalyzer_UndefinedReference(t *testing.T) {
	ast := parseOK(t, `#renderPass rp { pipeline=missingPipeline }`)
	_, errs := Analyze(ast, nil)
	if len(errs) == 0 || errs[0].Code != "E202" {
		t.Fatalf("errs = %v, want E202", errs)
	}
}

func TestAnalyzer_ResolvedReference(t *testing.T) {
	ast := parseOK(t, `#renderPipeline p { }
#renderPass rp { pipeline=p }`)
	_, errs := Analyze(ast, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestAnalyzer_PluginDetection(t *testing.T) {
	ast := parseOK(t, `#computePipeline cp { }
#animation anim { }`)
	mod, errs := Analyze(ast, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if !mod.Plugins.Has(PluginCompute) || !mod.Plugins.Has(PluginAnimation) {
		t.Errorf("plugins = %v, want compute+animation", mod.Plugins.Names())
	}
	if mod.Plugins.Has(PluginRender) {
		t.Errorf("plugins = %v, want no render", mod.Plugins.Names())
	}
}

func TestAnalyzer_RuntimeDottedReference(t *testing.T) {
	ast := parseOK(t, `#renderPass rp { width=canvas.width }`)
	_, errs := Analyze(ast, nil)
	if len(errs) != 0 {
		t.Fatalf("canvas.width should resolve without error, got %v", errs)
	}
}

// stubReflector returns a fixed Reflection regardless of input, letting
// tests exercise #init binding and size=<shader>.<var> without a real
// WGSL compiler.
type stubReflector struct {
	refl *reflector.Reflection
}

func (s *stubReflector) Reflect(wgsl []byte) (*reflector.Reflection, error) {
	return s.refl, nil
}

func TestAnalyzer_InitAutoBinding(t *testing.T) {
	ast := parseOK(t, `#wgsl particleShader { "inline source" }
#buffer particles { size=16 }
#init { shader=particleShader }`)
	refl := &stubReflector{refl: &reflector.Reflection{
		Bindings: []reflector.Binding{
			{Name: "params", Layout: reflector.Layout{Size: 16, Alignment: 16}},
			{Name: "particles", Layout: reflector.Layout{Size: 16, Alignment: 16}},
		},
	}}
	mod, errs := Analyze(ast, refl)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	var bound map[string]string
	for _, b := range mod.InitBindings {
		bound = b
	}
	if bound["params"] != "$params" || bound["particles"] != "particles" {
		t.Fatalf("bound = %v", bound)
	}
}

func TestAnalyzer_InitUnresolvedBinding(t *testing.T) {
	ast := parseOK(t, `#wgsl s { "inline source" }
#init { shader=s }`)
	refl := &stubReflector{refl: &reflector.Reflection{
		Bindings: []reflector.Binding{{Name: "missingBuf"}},
	}}
	_, errs := Analyze(ast, refl)
	if len(errs) == 0 {
		t.Fatal("expected an undefined-reference error for the unbound shader variable")
	}
}

func TestAnalyzer_ShaderSizeAutoSizing(t *testing.T) {
	ast := parseOK(t, `#wgsl s { "inline source" }
#buffer particles { size=s.particles }`)
	refl := &stubReflector{refl: &reflector.Reflection{
		Bindings: []reflector.Binding{
			{Name: "particles", Array: &reflector.ArrayInfo{ElementCount: 4, ElementStride: 16}},
		},
	}}
	mod, errs := Analyze(ast, refl)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	bufSym := mod.Tables.Table(KindBuffer).Lookup("particles")
	sizePropID := ast.Child(bufSym.Node, 0)
	sizeVal := ast.Node(ast.Child(sizePropID, 0))
	if sizeVal.Kind != parser.NodeLiteralInteger || sizeVal.Text != "64" {
		t.Fatalf("size node = %+v, want resolved integer 64", sizeVal)
	}
}

func TestAnalyzer_ZeroSizeBufferIsTypeMismatch(t *testing.T) {
	ast := parseOK(t, `#buffer b { size=0 usage=[UNIFORM] }`)
	_, errs := Analyze(ast, nil)
	if len(errs) == 0 {
		t.Fatal("expected a TypeMismatch error for size=0")
	}
	if errs[0].Code != "E203" {
		t.Fatalf("errs[0].Code = %q, want the TypeMismatch code", errs[0].Code)
	}
}

func TestAnalyzer_NegativeSizeBufferIsTypeMismatch(t *testing.T) {
	ast := parseOK(t, `#buffer b { size=-8 usage=[UNIFORM] }`)
	_, errs := Analyze(ast, nil)
	if len(errs) == 0 {
		t.Fatal("expected a TypeMismatch error for a negative size")
	}
}

func TestAnalyzer_PositiveSizeBufferOK(t *testing.T) {
	ast := parseOK(t, `#buffer b { size=64 usage=[UNIFORM] }`)
	_, errs := Analyze(ast, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}
