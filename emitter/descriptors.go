package emitter

import (
	"github.com/pngine/pngine/analyzer"
	"github.com/pngine/pngine/bytecode"
	"github.com/pngine/pngine/parser"
)

// bufferUsageBits keys match spec.md's closed enumeration spelling (VERTEX,
// INDEX, UNIFORM, STORAGE, COPY_SRC, COPY_DST, INDIRECT, QUERY_RESOLVE,
// MAP_READ, MAP_WRITE) verbatim, unlike the lowerCamelCase property names
// used elsewhere in the DSL.
var bufferUsageBits = map[string]bytecode.BufferUsage{
	"VERTEX": bytecode.BufferUsageVertex, "INDEX": bytecode.BufferUsageIndex,
	"UNIFORM": bytecode.BufferUsageUniform, "STORAGE": bytecode.BufferUsageStorage,
	"COPY_SRC": bytecode.BufferUsageCopySrc, "COPY_DST": bytecode.BufferUsageCopyDst,
	"INDIRECT": bytecode.BufferUsageIndirect, "QUERY_RESOLVE": bytecode.BufferUsageQueryResolve,
	// MAP_READ/MAP_WRITE carry no wire bit; see bytecode/enums.go.
	"MAP_READ": 0, "MAP_WRITE": 0,
}

var textureUsageBits = map[string]bytecode.TextureUsage{
	"COPY_SRC": bytecode.TextureUsageCopySrc, "COPY_DST": bytecode.TextureUsageCopyDst,
	"TEXTURE_BINDING": bytecode.TextureUsageTextureBinding, "STORAGE_BINDING": bytecode.TextureUsageStorageBinding,
	"RENDER_ATTACHMENT": bytecode.TextureUsageRenderAttachment,
}

var textureFormats = map[string]bytecode.TextureFormat{
	"rgba8unorm": bytecode.TextureFormatRGBA8Unorm, "rgba8unormSrgb": bytecode.TextureFormatRGBA8UnormSRGB,
	"bgra8unorm": bytecode.TextureFormatBGRA8Unorm, "bgra8unormSrgb": bytecode.TextureFormatBGRA8UnormSRGB,
	"r8unorm": bytecode.TextureFormatR8Unorm, "r32float": bytecode.TextureFormatR32Float,
	"rg32float": bytecode.TextureFormatRG32Float, "rgba32float": bytecode.TextureFormatRGBA32Float,
	"depth32float": bytecode.TextureFormatDepth32Float,
}

var filterModes = map[string]bytecode.FilterMode{"nearest": bytecode.FilterModeNearest, "linear": bytecode.FilterModeLinear}

var addressModes = map[string]bytecode.AddressMode{
	"clampToEdge": bytecode.AddressModeClampToEdge, "repeat": bytecode.AddressModeRepeat,
	"mirrorRepeat": bytecode.AddressModeMirrorRepeat,
}

var compareFunctions = map[string]bytecode.CompareFunction{
	"never": bytecode.CompareFunctionNever, "less": bytecode.CompareFunctionLess,
	"equal": bytecode.CompareFunctionEqual, "lessEqual": bytecode.CompareFunctionLessEqual,
	"greater": bytecode.CompareFunctionGreater, "notEqual": bytecode.CompareFunctionNotEqual,
	"greaterEqual": bytecode.CompareFunctionGreaterEqual, "always": bytecode.CompareFunctionAlways,
}

var primitiveTopologies = map[string]bytecode.PrimitiveTopology{
	"pointList": bytecode.PrimitiveTopologyPointList, "lineList": bytecode.PrimitiveTopologyLineList,
	"lineStrip": bytecode.PrimitiveTopologyLineStrip, "triangleList": bytecode.PrimitiveTopologyTriangleList,
	"triangleStrip": bytecode.PrimitiveTopologyTriangleStrip,
}

var cullModes = map[string]bytecode.CullMode{"none": bytecode.CullModeNone, "front": bytecode.CullModeFront, "back": bytecode.CullModeBack}
var frontFaces = map[string]bytecode.FrontFace{"ccw": bytecode.FrontFaceCCW, "cw": bytecode.FrontFaceCW}
var loadOps = map[string]bytecode.LoadOp{"load": bytecode.LoadOpLoad, "clear": bytecode.LoadOpClear}
var storeOps = map[string]bytecode.StoreOp{"store": bytecode.StoreOpStore, "discard": bytecode.StoreOpDiscard}
var dimensions = map[string]uint8{"1d": 1, "2d": 2, "3d": 3}
var indexFormats = map[string]bytecode.IndexFormat{"uint16": bytecode.IndexFormatUint16, "uint32": bytecode.IndexFormatUint32}

func (e *emitter) bufferUsage(parent parser.NodeID, label string) bytecode.BufferUsage {
	var usage bytecode.BufferUsage
	for _, item := range e.stringItems(parent, "usage") {
		usage |= bufferUsageBits[item]
	}
	return usage
}

func (e *emitter) textureUsage(parent parser.NodeID, label string) bytecode.TextureUsage {
	var usage bytecode.TextureUsage
	for _, item := range e.stringItems(parent, "usage") {
		usage |= textureUsageBits[item]
	}
	return usage
}

// --- buffers/textures/samplers/texture views/query sets ---

func (e *emitter) emitBuffersTexturesSamplers() {
	for _, sym := range e.mod.Tables.Table(analyzer.KindBuffer).All() {
		label := "buffer:" + sym.Name
		size, ok := e.numProp(sym.Node, "size", label)
		if !ok {
			continue
		}
		e.op(bytecode.OpCreateBuffer, map[string]uint32{
			"id": uint32(sym.ID), "size": size, "usage": uint32(e.bufferUsage(sym.Node, label)),
		})
	}
	for _, sym := range e.mod.Tables.Table(analyzer.KindTexture).All() {
		e.emitTexture(sym)
	}
	for _, sym := range e.mod.Tables.Table(analyzer.KindSampler).All() {
		e.emitSampler(sym)
	}
	// Texture views and query sets emit nothing here: the opcode table has
	// no create_* opcode for them, and no field of any descriptor
	// (including the texture descriptor) is written for them.
}

func (e *emitter) emitTexture(sym *analyzer.Symbol) {
	label := "texture:" + sym.Name
	width, ok := e.numProp(sym.Node, "width", label)
	if !ok {
		return
	}
	height := e.numPropDefault(sym.Node, "height", 1)
	depth := e.numPropDefault(sym.Node, "depth", 1)
	formatName := e.strPropDefault(sym.Node, "format", "rgba8unorm")
	format, ok := textureFormats[formatName]
	if !ok {
		e.fail(errInvalidValue(label, "unknown texture format "+formatName))
		return
	}
	usage := e.textureUsage(sym.Node, label)
	mipLevelCount := e.numPropDefault(sym.Node, "mipLevelCount", 1)
	sampleCount := e.numPropDefault(sym.Node, "sampleCount", 1)
	dim := dimensions[e.strPropDefault(sym.Node, "dimension", "2d")]

	w := bytecode.NewDescriptorWriter(bytecode.DescriptorTexture)
	w.PutU32(uint8(bytecode.TextureFieldWidth), width)
	w.PutU32(uint8(bytecode.TextureFieldHeight), height)
	w.PutU32(uint8(bytecode.TextureFieldDepth), depth)
	w.PutU8(uint8(bytecode.TextureFieldFormat), uint8(format))
	w.PutU8(uint8(bytecode.TextureFieldUsage), uint8(usage))
	w.PutU8(uint8(bytecode.TextureFieldDimension), dim)
	w.PutU32(uint8(bytecode.TextureFieldMipLevelCount), mipLevelCount)
	w.PutU32(uint8(bytecode.TextureFieldSampleCount), sampleCount)

	off, length := e.blob(w.Bytes())
	e.op(bytecode.OpCreateTexture, map[string]uint32{"id": uint32(sym.ID), "desc_off": off, "desc_len": length})
}

func (e *emitter) emitSampler(sym *analyzer.Symbol) {
	label := "sampler:" + sym.Name
	mag := filterModes[e.strPropDefault(sym.Node, "magFilter", "nearest")]
	min := filterModes[e.strPropDefault(sym.Node, "minFilter", "nearest")]
	mip := filterModes[e.strPropDefault(sym.Node, "mipmapFilter", "nearest")]
	u := addressModes[e.strPropDefault(sym.Node, "addressModeU", "clampToEdge")]
	v := addressModes[e.strPropDefault(sym.Node, "addressModeV", "clampToEdge")]
	wAddr := addressModes[e.strPropDefault(sym.Node, "addressModeW", "clampToEdge")]

	w := bytecode.NewDescriptorWriter(bytecode.DescriptorSampler)
	w.PutU8(uint8(bytecode.SamplerFieldMagFilter), uint8(mag))
	w.PutU8(uint8(bytecode.SamplerFieldMinFilter), uint8(min))
	w.PutU8(uint8(bytecode.SamplerFieldMipmapFilter), uint8(mip))
	w.PutU8(uint8(bytecode.SamplerFieldAddressModeU), uint8(u))
	w.PutU8(uint8(bytecode.SamplerFieldAddressModeV), uint8(v))
	w.PutU8(uint8(bytecode.SamplerFieldAddressModeW), uint8(wAddr))
	if cmp, ok := e.strProp(sym.Node, "compare"); ok {
		w.PutU8(uint8(bytecode.SamplerFieldCompare), uint8(compareFunctions[cmp]))
	}

	off, length := e.blob(w.Bytes())
	e.op(bytecode.OpCreateSampler, map[string]uint32{"id": uint32(sym.ID), "desc_off": off, "desc_len": length})
	_ = label
}

// --- shaders ---

func (e *emitter) emitShaders() {
	for _, sym := range e.mod.Tables.Table(analyzer.KindShader).All() {
		src := e.shaderSource(sym)
		off, length := e.blob([]byte(src))
		e.op(bytecode.OpCreateShader, map[string]uint32{"id": uint32(sym.ID), "code_off": off, "code_len": length})
	}
}

// shaderSource recovers a #wgsl macro's source, whether written as a
// shorthand bare-string body or a source=/code=/value="..." property (the
// pack's worked examples use all three spellings for the same thing).
func (e *emitter) shaderSource(sym *analyzer.Symbol) string {
	for _, key := range []string{"source", "code", "value"} {
		if s, ok := e.strProp(sym.Node, key); ok {
			return s
		}
	}
	if v, ok := propNode(e.ast, sym.Node, ""); ok {
		return e.ast.Node(v).Text
	}
	return ""
}

// --- layouts ---

func (e *emitter) emitLayouts() {
	// Bind group layouts and pipeline layouts are consumed purely by id
	// (the dispatcher derives their concrete shape from the bind groups and
	// pipelines that reference them); spec.md's opcode table allocates no
	// create_bind_group_layout / create_pipeline_layout opcode, so these
	// kinds are assigned dense ids here for reference purposes but do not
	// themselves emit opcodes.
	_ = e.mod.Tables.Table(analyzer.KindBindGroupLayout).All()
	_ = e.mod.Tables.Table(analyzer.KindPipelineLayout).All()
}

// --- pipelines ---

func (e *emitter) emitPipelines() {
	for _, sym := range e.mod.Tables.Table(analyzer.KindRenderPipeline).All() {
		e.emitRenderPipeline(sym)
	}
	for _, sym := range e.mod.Tables.Table(analyzer.KindComputePipeline).All() {
		e.emitComputePipeline(sym)
	}
}

// shaderStage is a resolved vertex/fragment stage: the shader module id plus
// its entry point name, read from either a bare `vertex=moduleName` identifier
// or a nested `vertex={module=moduleName entryPoint="..."}` object (the
// worked-example shape; see Scenario 1 in spec.md §8).
type shaderStage struct {
	module    uint16
	entry     string
	hasEntry  bool
	targetFmt string
	hasTarget bool
}

func (e *emitter) shaderStageProp(parent parser.NodeID, key, label string) (shaderStage, bool) {
	v, ok := propNode(e.ast, parent, key)
	if !ok {
		e.fail(errMissingProperty(label, key))
		return shaderStage{}, false
	}
	n := e.ast.Node(v)
	if n.Kind != parser.NodeObject {
		sym := e.mod.Tables.Table(analyzer.KindShader).Lookup(n.Text)
		if sym == nil {
			e.fail(errUnresolvedReference(label, n.Text))
			return shaderStage{}, false
		}
		return shaderStage{module: sym.ID}, true
	}

	modName, ok := propNode(e.ast, v, "module")
	if !ok {
		e.fail(errMissingProperty(label, key+".module"))
		return shaderStage{}, false
	}
	sym := e.mod.Tables.Table(analyzer.KindShader).Lookup(e.ast.Node(modName).Text)
	if sym == nil {
		e.fail(errUnresolvedReference(label, e.ast.Node(modName).Text))
		return shaderStage{}, false
	}
	stage := shaderStage{module: sym.ID}
	if entryNode, ok := propNode(e.ast, v, "entryPoint"); ok {
		stage.entry = e.ast.Node(entryNode).Text
		stage.hasEntry = true
	}
	if targetsNode, ok := propNode(e.ast, v, "targets"); ok {
		if e.ast.ChildCount(targetsNode) > 0 {
			first := e.ast.Child(targetsNode, 0)
			if fmtNode, ok := propNode(e.ast, first, "format"); ok {
				stage.targetFmt = e.ast.Node(fmtNode).Text
				stage.hasTarget = true
			}
		}
	}
	return stage, true
}

func (e *emitter) emitRenderPipeline(sym *analyzer.Symbol) {
	label := "renderPipeline:" + sym.Name
	vertex, ok := e.shaderStageProp(sym.Node, "vertex", label)
	if !ok {
		return
	}
	fragment, hasFS := e.shaderStageProp(sym.Node, "fragment", label)

	w := bytecode.NewDescriptorWriter(bytecode.DescriptorRenderPipeline)
	w.PutU16(uint8(bytecode.RenderPipelineFieldVertexShader), vertex.module)
	if hasFS {
		w.PutU16(uint8(bytecode.RenderPipelineFieldFragmentShader), fragment.module)
	}
	// layout=auto (the common case in the worked examples) means the
	// backend derives the pipeline layout from the shader's own bindings;
	// only an explicit pipelineLayout reference gets a descriptor field.
	if layoutNode, ok := propNode(e.ast, sym.Node, "layout"); ok {
		if name := e.ast.Node(layoutNode).Text; name != "auto" {
			if layoutSym := e.mod.Tables.Table(analyzer.KindPipelineLayout).Lookup(name); layoutSym != nil {
				w.PutU16(uint8(bytecode.RenderPipelineFieldLayout), layoutSym.ID)
			} else {
				e.fail(errUnresolvedReference(label, name))
			}
		}
	}
	topology := primitiveTopologies[e.strPropDefault(sym.Node, "topology", "triangleList")]
	w.PutU8(uint8(bytecode.RenderPipelineFieldTopology), uint8(topology))
	cull := cullModes[e.strPropDefault(sym.Node, "cullMode", "none")]
	w.PutU8(uint8(bytecode.RenderPipelineFieldCullMode), uint8(cull))
	front := frontFaces[e.strPropDefault(sym.Node, "frontFace", "ccw")]
	w.PutU8(uint8(bytecode.RenderPipelineFieldFrontFace), uint8(front))

	colorFmt, hasColorFmt := e.strProp(sym.Node, "colorFormat")
	if !hasColorFmt && fragment.hasTarget {
		colorFmt, hasColorFmt = fragment.targetFmt, true
	}
	// preferredCanvasFormat (and any other name outside the closed format
	// enumeration) defers to the surface's own format at pipeline-creation
	// time on the backend, so no field is written.
	if hasColorFmt {
		if format, ok := textureFormats[colorFmt]; ok {
			w.PutU8(uint8(bytecode.RenderPipelineFieldColorFormat), uint8(format))
		}
	}
	if depthFmt, ok := e.strProp(sym.Node, "depthFormat"); ok {
		w.PutU8(uint8(bytecode.RenderPipelineFieldDepthFormat), uint8(textureFormats[depthFmt]))
	}
	entry := vertex.entry
	if !vertex.hasEntry {
		entry = e.strPropDefault(sym.Node, "vertexEntry", "")
	}
	if entry != "" {
		w.PutU32(uint8(bytecode.RenderPipelineFieldVertexEntry), e.intern(entry))
	}
	fragEntry := fragment.entry
	if hasFS && !fragment.hasEntry {
		fragEntry = e.strPropDefault(sym.Node, "fragmentEntry", "")
	}
	if fragEntry != "" {
		w.PutU32(uint8(bytecode.RenderPipelineFieldFragmentEntry), e.intern(fragEntry))
	}

	off, length := e.blob(w.Bytes())
	e.op(bytecode.OpCreateRenderPipeline, map[string]uint32{"id": uint32(sym.ID), "desc_off": off, "desc_len": length})
}

func (e *emitter) emitComputePipeline(sym *analyzer.Symbol) {
	label := "computePipeline:" + sym.Name
	stageKey := "compute"
	if _, ok := propNode(e.ast, sym.Node, "shader"); ok {
		stageKey = "shader"
	}
	compute, ok := e.shaderStageProp(sym.Node, stageKey, label)
	if !ok {
		return
	}
	w := bytecode.NewDescriptorWriter(bytecode.DescriptorComputePipeline)
	w.PutU16(uint8(bytecode.ComputePipelineFieldShader), compute.module)
	if layoutNode, ok := propNode(e.ast, sym.Node, "layout"); ok {
		if name := e.ast.Node(layoutNode).Text; name != "auto" {
			if layoutSym := e.mod.Tables.Table(analyzer.KindPipelineLayout).Lookup(name); layoutSym != nil {
				w.PutU16(uint8(bytecode.ComputePipelineFieldLayout), layoutSym.ID)
			} else {
				e.fail(errUnresolvedReference(label, name))
			}
		}
	}
	entry := compute.entry
	if !compute.hasEntry {
		entry = e.strPropDefault(sym.Node, "entryPoint", "")
	}
	if entry != "" {
		w.PutU32(uint8(bytecode.ComputePipelineFieldEntry), e.intern(entry))
	}
	off, length := e.blob(w.Bytes())
	e.op(bytecode.OpCreateComputePipeline, map[string]uint32{"id": uint32(sym.ID), "desc_off": off, "desc_len": length})
}

// --- bind groups ---

func (e *emitter) emitBindGroups() {
	for _, sym := range e.mod.Tables.Table(analyzer.KindBindGroup).All() {
		e.emitBindGroup(sym)
	}
}

func (e *emitter) emitBindGroup(sym *analyzer.Symbol) {
	label := "bindGroup:" + sym.Name
	layout, _ := e.refProp(sym.Node, "layout", analyzer.KindBindGroupLayout, label)

	entriesNode, ok := propNode(e.ast, sym.Node, "entries")
	var entries []bytecode.BindGroupEntry
	if ok {
		n := e.ast.Node(entriesNode)
		if n.Kind == parser.NodeObject {
			for i := 0; i < e.ast.ChildCount(entriesNode); i++ {
				propID := e.ast.Child(entriesNode, i)
				p := e.ast.Node(propID)
				binding, err := parseUintText(p.Text)
				if err != nil {
					e.fail(errInvalidValue(label, "bind group entry key must be a binding number"))
					continue
				}
				valNode := e.ast.Node(e.ast.Child(propID, 0))
				kind, id, ok := e.resolveBindGroupResource(valNode.Text, label)
				if !ok {
					continue
				}
				entries = append(entries, bytecode.BindGroupEntry{Binding: binding, ResourceKind: kind, ResourceID: id})
			}
		}
	}

	entriesBlob := bytecode.EncodeBindGroupEntries(entries)
	off, length := e.blob(entriesBlob)
	e.op(bytecode.OpCreateBindGroup, map[string]uint32{
		"id": uint32(sym.ID), "layout": uint32(layout), "entries_off": off, "entries_len": length,
	})
}

// resolveBindGroupResource finds name in whichever of buffer/texture/
// sampler/textureView's table declares it.
func (e *emitter) resolveBindGroupResource(name, label string) (bytecode.BindGroupResourceKind, uint16, bool) {
	if sym := e.mod.Tables.Table(analyzer.KindBuffer).Lookup(name); sym != nil {
		return bytecode.BindGroupResourceBuffer, sym.ID, true
	}
	if sym := e.mod.Tables.Table(analyzer.KindTexture).Lookup(name); sym != nil {
		return bytecode.BindGroupResourceTexture, sym.ID, true
	}
	if sym := e.mod.Tables.Table(analyzer.KindSampler).Lookup(name); sym != nil {
		return bytecode.BindGroupResourceSampler, sym.ID, true
	}
	if sym := e.mod.Tables.Table(analyzer.KindTextureView).Lookup(name); sym != nil {
		return bytecode.BindGroupResourceTextureView, sym.ID, true
	}
	e.fail(errUnresolvedReference(label, name))
	return 0, 0, false
}

func parseUintText(s string) (uint32, error) {
	var v uint32
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errInvalidValue("", "not a number")
		}
		v = v*10 + uint32(c-'0')
	}
	return v, nil
}

// --- data blocks, imageBitmap uploads, wasmCall module inits ---

func (e *emitter) emitDataAndUploads() {
	for _, sym := range e.mod.Tables.Table(analyzer.KindData).All() {
		e.emitDataBlockUpload(sym)
	}
	for _, sym := range e.mod.Tables.Table(analyzer.KindImageBitmap).All() {
		e.emitImageBitmapUpload(sym)
	}
	for _, sym := range e.mod.Tables.Table(analyzer.KindWasmCall).All() {
		e.emitWasmModuleInit(sym)
	}
}

func (e *emitter) emitDataBlockUpload(sym *analyzer.Symbol) {
	label := "data:" + sym.Name
	target, ok := e.refProp(sym.Node, "buffer", analyzer.KindBuffer, label)
	if !ok {
		return
	}
	offset := e.numPropDefault(sym.Node, "offset", 0)
	bytes := e.stringItems(sym.Node, "values")
	raw := make([]byte, 0, len(bytes)*4)
	for _, s := range bytes {
		v, err := parseUintText(s)
		if err != nil {
			continue
		}
		raw = append(raw, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	}
	off, length := e.blob(raw)
	e.op(bytecode.OpWriteBuffer, map[string]uint32{
		"id": uint32(target), "offset": offset, "data_off": off, "data_len": length,
	})
}

func (e *emitter) emitImageBitmapUpload(sym *analyzer.Symbol) {
	label := "imageBitmap:" + sym.Name
	target, ok := e.refProp(sym.Node, "texture", analyzer.KindTexture, label)
	if !ok {
		return
	}
	// Bitmap bytes are opaque and supplied by the host at runtime per
	// spec.md's data model note ("#imageBitmap carries opaque bytes");
	// the compiler reserves the data-section slot the payload's source
	// path names, leaving the bytes empty for the host to fill in.
	path, _ := e.strProp(sym.Node, "source")
	off, length := e.blob([]byte(path))
	e.op(bytecode.OpWriteBuffer, map[string]uint32{
		"id": uint32(target), "offset": 0, "data_off": off, "data_len": length,
	})
}

func (e *emitter) emitWasmModuleInit(sym *analyzer.Symbol) {
	label := "wasmCall:" + sym.Name
	path, ok := e.strProp(sym.Node, "module")
	if !ok {
		e.fail(errMissingProperty(label, "module"))
		return
	}
	off, length := e.blob([]byte(path))
	e.op(bytecode.OpInitWasmModule, map[string]uint32{"id": uint32(sym.ID), "data_off": off, "data_len": length})
}
