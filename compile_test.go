package pngine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCompile_MinimalTriangle(t *testing.T) {
	src := `
#wgsl s { code="@vertex fn v() -> @builtin(position) vec4f { return vec4f(0,0,0,1); } @fragment fn f() -> @location(0) vec4f { return vec4f(1,0,0,1); }" }
#renderPipeline p {
  layout=auto
  vertex={module=s entryPoint="v"}
  fragment={module=s entryPoint="f" targets=[{format=preferredCanvasFormat}]}
}
#renderPass r {
  colorAttachments=[{view=contextCurrentTexture clearValue=[0 0 0 1] loadOp=clear storeOp=store}]
  pipeline=p
  draw=3
}
#frame main { perform=[r] }
`
	opts := DefaultOptions()
	mod, diags, err := Compile([]byte(src), opts)
	if err != nil {
		t.Fatalf("Compile: %v (%v)", err, diags)
	}
	if len(mod.Bytecode) == 0 {
		t.Fatal("Compile produced empty bytecode")
	}
}

func TestCompile_ImportMerge(t *testing.T) {
	dir := t.TempDir()
	shader := `#wgsl s { code="@compute @workgroup_size(1,1,1) fn main() {}" }`
	if err := os.WriteFile(filepath.Join(dir, "shader.pgn"), []byte(shader), 0o644); err != nil {
		t.Fatalf("write shader.pgn: %v", err)
	}

	main := `
#import "shader.pgn"
#computePass cp { pipeline=cp_pipe dispatch=[1 1 1] }
#computePipeline cp_pipe { compute={module=s entryPoint="main"} }
#frame main { perform=[cp] }
`
	opts := DefaultOptions()
	opts.BaseDir = dir
	mod, diags, err := Compile([]byte(main), opts)
	if err != nil {
		t.Fatalf("Compile: %v (%v)", err, diags)
	}
	if len(mod.Bytecode) == 0 {
		t.Fatal("Compile produced empty bytecode")
	}
}

func TestCompile_ImportCycleFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.pgn"), []byte(`#import "b.pgn"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.pgn"), []byte(`#import "a.pgn"`), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := DefaultOptions()
	opts.BaseDir = dir
	_, _, err := Compile([]byte(`#import "a.pgn"`), opts)
	if err == nil {
		t.Fatal("expected an import cycle error")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("err = %v, want it to mention a cycle", err)
	}
}

func TestCompile_ParseErrorReturnsDiagnostics(t *testing.T) {
	_, diags, err := Compile([]byte(`#renderPass r { pipeline= }`), DefaultOptions())
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if diags.Empty() {
		t.Fatal("expected non-empty diagnostics")
	}
	if diags.Stage != "parse" {
		t.Fatalf("diags.Stage = %q, want %q", diags.Stage, "parse")
	}
}
