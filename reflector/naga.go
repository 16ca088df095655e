package reflector

import (
	"fmt"

	"github.com/gogpu/naga"
)

// NagaReflector validates WGSL source with naga before delegating binding
// extraction to a TextualReflector. naga.Compile in this stack only
// produces SPIR-V bytes, not a structured reflection, so it is used purely
// as a syntax gate here: a compile failure maps to ReflectionFailed before
// the textual scan ever runs, the same role CompileShaderToSPIRV plays for
// the concrete GPU backends.
type NagaReflector struct {
	inner *TextualReflector
}

func NewNagaReflector() *NagaReflector {
	return &NagaReflector{inner: NewTextualReflector()}
}

func (r *NagaReflector) Reflect(wgsl []byte) (*Reflection, error) {
	if _, err := naga.Compile(string(wgsl)); err != nil {
		return nil, fmt.Errorf("wgsl syntax error: %w", err)
	}
	return r.inner.Reflect(wgsl)
}
