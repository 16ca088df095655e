// Package reflector defines the narrow interface the analyzer uses to
// recover WGSL binding layouts, struct sizes, and entry points, per
// spec.md §6.3. The shader composer's own reflection service is an
// external collaborator; this package only fixes the contract and ships a
// synchronous, in-process implementation good enough to drive compilation.
package reflector

// AddressSpace enumerates the WGSL variable address spaces relevant to
// binding reflection.
type AddressSpace uint8

const (
	AddressSpaceUniform AddressSpace = iota
	AddressSpaceStorage
	AddressSpaceStorageReadOnly
	AddressSpaceHandle // samplers, textures
)

// ArrayInfo describes a runtime-sized array binding's shape.
type ArrayInfo struct {
	ElementCount  uint32
	ElementStride uint32
	ElementType   string
}

// Layout is a binding or struct's byte size and alignment.
type Layout struct {
	Size      uint32
	Alignment uint32
}

// Binding is one `@group(N) @binding(M) var ...` declaration.
type Binding struct {
	Group        uint32
	BindingIndex uint32
	Name         string
	AddressSpace AddressSpace
	Layout       Layout
	Array        *ArrayInfo // non-nil when the binding is an array
}

// StructField is one member of a reflected struct type.
type StructField struct {
	Name   string
	Offset uint32
	Type   string
}

// StructInfo is a reflected struct type's layout.
type StructInfo struct {
	Size      uint32
	Alignment uint32
	Fields    []StructField
}

// Stage is a shader entry point's pipeline stage.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

// EntryPoint is one `@vertex`/`@fragment`/`@compute` function.
type EntryPoint struct {
	Name          string
	Stage         Stage
	WorkgroupSize [3]uint32 // only meaningful for StageCompute
}

// Reflection is the full result of reflecting one WGSL module, matching
// spec.md §6.3's contract shape.
type Reflection struct {
	Bindings    []Binding
	Structs     map[string]StructInfo
	EntryPoints []EntryPoint
}

// LookupBinding finds a binding by variable name.
func (r *Reflection) LookupBinding(name string) (Binding, bool) {
	for _, b := range r.Bindings {
		if b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}

// Reflector consumes WGSL source and reports its binding, struct, and
// entry-point metadata. Implementations run synchronously from the
// analyzer's perspective (spec.md §5).
type Reflector interface {
	Reflect(wgsl []byte) (*Reflection, error)
}
