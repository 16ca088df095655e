package reflector

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var bindingRe = regexp.MustCompile(
	`@group\((\d+)\)\s*@binding\((\d+)\)\s*var\s*(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+);`)

var computeEntryRe = regexp.MustCompile(
	`@compute\s+@workgroup_size\((\d+)\s*,\s*(\d+)\s*,\s*(\d+)\)\s*fn\s+(\w+)`)

var simpleEntryRe = regexp.MustCompile(`@(vertex|fragment)\s*fn\s+(\w+)`)

// scalarSizes is a best-effort WGSL type -> (size, alignment) table for the
// types PNGine shaders commonly bind. Struct types are not sized here;
// TextualReflector only reports them by name with zero layout, which is
// enough for reference-resolution but not for size=<shader>.<var> on a
// custom struct (a genuine reflector service would supply it).
var scalarSizes = map[string][2]uint32{
	"f32": {4, 4}, "i32": {4, 4}, "u32": {4, 4}, "bool": {4, 4},
	"vec2<f32>": {8, 8}, "vec2<i32>": {8, 8}, "vec2<u32>": {8, 8},
	"vec3<f32>": {12, 16}, "vec3<i32>": {12, 16}, "vec3<u32>": {12, 16},
	"vec4<f32>": {16, 16}, "vec4<i32>": {16, 16}, "vec4<u32>": {16, 16},
	"mat2x2<f32>": {16, 8}, "mat3x3<f32>": {48, 16}, "mat4x4<f32>": {64, 16},
	// WGSL's shorthand aliases for the same types (vec4f == vec4<f32>, etc.)
	"vec2f": {8, 8}, "vec2i": {8, 8}, "vec2u": {8, 8},
	"vec3f": {12, 16}, "vec3i": {12, 16}, "vec3u": {12, 16},
	"vec4f": {16, 16}, "vec4i": {16, 16}, "vec4u": {16, 16},
	"mat2x2f": {16, 8}, "mat3x3f": {48, 16}, "mat4x4f": {64, 16},
}

var arrayTypeRe = regexp.MustCompile(`^array<\s*([^,>]+)\s*(?:,\s*(\d+)\s*)?>$`)

// TextualReflector extracts binding, struct, and entry-point metadata from
// WGSL source by pattern-matching the `@group/@binding`, `@compute`,
// `@vertex`, and `@fragment` attribute syntax directly, without building a
// full WGSL AST. It is the only source of reflection data available in
// this stack: the confirmed-real naga.Compile entry point returns SPIR-V
// bytes, not a reflection struct.
type TextualReflector struct{}

func NewTextualReflector() *TextualReflector { return &TextualReflector{} }

func (r *TextualReflector) Reflect(wgsl []byte) (*Reflection, error) {
	src := string(wgsl)
	refl := &Reflection{Structs: make(map[string]StructInfo)}

	for _, m := range bindingRe.FindAllStringSubmatch(src, -1) {
		group, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed @group index %q", m[1])
		}
		binding, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed @binding index %q", m[2])
		}
		b := Binding{
			Group:        uint32(group),
			BindingIndex: uint32(binding),
			Name:         m[4],
			AddressSpace: classifyAddressSpace(m[3]),
		}
		typeText := strings.TrimSpace(m[5])
		if am := arrayTypeRe.FindStringSubmatch(typeText); am != nil {
			elemType := strings.TrimSpace(am[1])
			size, _ := scalarSizes[elemType]
			var count uint32
			if am[2] != "" {
				n, _ := strconv.ParseUint(am[2], 10, 32)
				count = uint32(n)
			}
			b.Array = &ArrayInfo{ElementCount: count, ElementStride: size[0], ElementType: elemType}
			b.Layout = Layout{Size: size[0] * count, Alignment: size[1]}
		} else if size, ok := scalarSizes[typeText]; ok {
			b.Layout = Layout{Size: size[0], Alignment: size[1]}
		} else if s, ok := refl.Structs[typeText]; ok {
			b.Layout = Layout{Size: s.Size, Alignment: s.Alignment}
		}
		refl.Bindings = append(refl.Bindings, b)
	}

	for _, m := range computeEntryRe.FindAllStringSubmatch(src, -1) {
		x, _ := strconv.ParseUint(m[1], 10, 32)
		y, _ := strconv.ParseUint(m[2], 10, 32)
		z, _ := strconv.ParseUint(m[3], 10, 32)
		refl.EntryPoints = append(refl.EntryPoints, EntryPoint{
			Name: m[4], Stage: StageCompute, WorkgroupSize: [3]uint32{uint32(x), uint32(y), uint32(z)},
		})
	}
	for _, m := range simpleEntryRe.FindAllStringSubmatch(src, -1) {
		stage := StageVertex
		if m[1] == "fragment" {
			stage = StageFragment
		}
		refl.EntryPoints = append(refl.EntryPoints, EntryPoint{Name: m[2], Stage: stage})
	}
	return refl, nil
}

func classifyAddressSpace(qualifier string) AddressSpace {
	q := strings.ToLower(qualifier)
	switch {
	case strings.Contains(q, "storage") && strings.Contains(q, "read_write"):
		return AddressSpaceStorage
	case strings.Contains(q, "storage"):
		return AddressSpaceStorageReadOnly
	case strings.Contains(q, "uniform"):
		return AddressSpaceUniform
	default:
		return AddressSpaceHandle
	}
}
