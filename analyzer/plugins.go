package analyzer

// PluginSet is a bitfield of runtime capabilities a compiled module
// requires. The emitter and dispatcher use it to gate opcodes that depend
// on optional runtime support. Adapted from gpucore's BufferUsage/
// TextureUsage bitmask-with-named-iota-const pattern.
type PluginSet uint8

const (
	PluginRender PluginSet = 1 << iota
	PluginCompute
	PluginAnimation
	PluginWasmCall
	PluginTextureExternal
	PluginImageBitmap
	PluginQuerySet
)

var pluginNames = map[PluginSet]string{
	PluginRender:          "render",
	PluginCompute:         "compute",
	PluginAnimation:       "animation",
	PluginWasmCall:        "wasm_call",
	PluginTextureExternal: "texture_external",
	PluginImageBitmap:     "image_bitmap",
	PluginQuerySet:        "query_set",
}

// Has reports whether every bit in want is set in p.
func (p PluginSet) Has(want PluginSet) bool { return p&want == want }

// Names returns the set plugin names in declaration order, for diagnostics.
func (p PluginSet) Names() []string {
	var names []string
	for _, bit := range []PluginSet{
		PluginRender, PluginCompute, PluginAnimation, PluginWasmCall,
		PluginTextureExternal, PluginImageBitmap, PluginQuerySet,
	} {
		if p.Has(bit) {
			names = append(names, pluginNames[bit])
		}
	}
	return names
}

// macroPlugin maps a macro keyword to the plugin bit it implies, per
// spec.md §4.3's "plugin detection" rule. Macros not listed here require no
// optional capability.
var macroPlugin = map[string]PluginSet{
	"renderPipeline": PluginRender,
	"renderPass":     PluginRender,
	"renderBundle":   PluginRender,
	"computePipeline": PluginCompute,
	"computePass":     PluginCompute,
	"animation":       PluginAnimation,
	"wasmCall":        PluginWasmCall,
	"imageBitmap":     PluginImageBitmap,
	"querySet":        PluginQuerySet,
}
