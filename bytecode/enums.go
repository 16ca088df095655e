package bytecode

// Closed wire-byte enumerations shared verbatim between the emitter and
// the dispatcher (spec.md §6.1, §4.4's descriptor note). Adapted in shape
// from gpucore/types.go's iota-const + bitmask pattern, but with the exact
// wire values this payload format fixes — the teacher's own numeric values
// are backend-internal and are not reused.

// BufferUsage is a bitfield packed into create_buffer's single usage byte.
// MAP_READ and MAP_WRITE from the resource-kind invariant are host-side
// mapping hints with no dispatcher opcode to carry them (there is no
// map/unmap opcode in the table); the emitter accepts them in usage lists
// and contributes no bit for them, so they are not recorded anywhere — see
// DESIGN.md's Open Question resolution.
type BufferUsage uint8

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageCopySrc
	BufferUsageCopyDst
	BufferUsageIndirect
	BufferUsageQueryResolve
)

// TextureUsage is a bitfield carried inside a texture descriptor's
// usage=0x05 field (DescriptorType texture, see descriptor.go).
type TextureUsage uint8

const (
	TextureUsageCopySrc TextureUsage = 1 << iota
	TextureUsageCopyDst
	TextureUsageTextureBinding
	TextureUsageStorageBinding
	TextureUsageRenderAttachment
)

// TextureFormat is a closed set of pixel formats.
type TextureFormat uint8

const (
	TextureFormatRGBA8Unorm TextureFormat = iota + 1
	TextureFormatRGBA8UnormSRGB
	TextureFormatBGRA8Unorm
	TextureFormatBGRA8UnormSRGB
	TextureFormatR8Unorm
	TextureFormatR32Float
	TextureFormatRG32Float
	TextureFormatRGBA32Float
	TextureFormatDepth32Float
)

// FilterMode is a sampler min/mag/mipmap filter.
type FilterMode uint8

const (
	FilterModeNearest FilterMode = iota
	FilterModeLinear
)

// AddressMode is a sampler wrap mode.
type AddressMode uint8

const (
	AddressModeClampToEdge AddressMode = iota
	AddressModeRepeat
	AddressModeMirrorRepeat
)

// CompareFunction is used by depth/stencil tests and comparison samplers.
type CompareFunction uint8

const (
	CompareFunctionNever CompareFunction = iota
	CompareFunctionLess
	CompareFunctionEqual
	CompareFunctionLessEqual
	CompareFunctionGreater
	CompareFunctionNotEqual
	CompareFunctionGreaterEqual
	CompareFunctionAlways
)

// LoadOp controls how a render pass attachment is initialized. Wire values
// are fixed by spec.md §6.1.
type LoadOp uint8

const (
	LoadOpLoad  LoadOp = 0x00
	LoadOpClear LoadOp = 0x01
)

// StoreOp controls how a render pass attachment result is preserved. Wire
// values are fixed by spec.md §6.1.
type StoreOp uint8

const (
	StoreOpStore   StoreOp = 0x00
	StoreOpDiscard StoreOp = 0x01
)

// PrimitiveTopology selects how vertices assemble into primitives.
type PrimitiveTopology uint8

const (
	PrimitiveTopologyPointList PrimitiveTopology = iota
	PrimitiveTopologyLineList
	PrimitiveTopologyLineStrip
	PrimitiveTopologyTriangleList
	PrimitiveTopologyTriangleStrip
)

// CullMode selects which triangle winding is culled.
type CullMode uint8

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

// FrontFace selects which winding order is considered front-facing.
type FrontFace uint8

const (
	FrontFaceCCW FrontFace = iota
	FrontFaceCW
)

// VertexFormat is a closed set of vertex attribute element encodings.
type VertexFormat uint8

const (
	VertexFormatFloat32 VertexFormat = iota
	VertexFormatFloat32x2
	VertexFormatFloat32x3
	VertexFormatFloat32x4
	VertexFormatUint32
	VertexFormatSint32
)

// IndexFormat selects the index buffer element width, per set_index_buffer
// (opcode 0x19).
type IndexFormat uint8

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

// EndBehavior controls animation replay once current time exceeds every
// declared scene interval (spec.md §4.6).
type EndBehavior uint8

const (
	EndBehaviorHold EndBehavior = iota
	EndBehaviorLoop
	EndBehaviorStop
)
