// Package dispatcher replays a bytecode.Module against a generic backend,
// one opcode at a time, per spec.md §4.6. The capability set a backend must
// implement is fixed: one method per opcode-needed operation.
package dispatcher

import "github.com/pngine/pngine/bytecode"

// Backend is the fixed capability set spec.md §4.6 lists. It is declared
// explicitly here rather than discovered by reflection (see spec.md §9's
// design note): Dispatcher is parameterized over a Backend implementor, so
// a missing method is a compile error instead of a startup reflection walk.
//
// Descriptor-shaped arguments (desc, entries) are passed as the raw bytes
// spec.md §4.4 describes ("field layouts are fixed tables shared between
// emitter and dispatcher"); a backend decodes them with
// bytecode.NewDescriptorReader / bytecode.DecodeBindGroupEntries.
type Backend interface {
	CreateBuffer(id uint16, size uint32, usage bytecode.BufferUsage) error
	CreateTexture(id uint16, desc []byte) error
	CreateSampler(id uint16, desc []byte) error
	CreateShaderModule(id uint16, code []byte) error
	CreateRenderPipeline(id uint16, desc []byte) error
	CreateComputePipeline(id uint16, desc []byte) error
	CreateBindGroup(id, layout uint16, entries []byte) error

	BeginRenderPass(colorTex uint16, load bytecode.LoadOp, store bytecode.StoreOp, depthTex uint16) error
	BeginComputePass() error
	SetPipeline(id uint16) error
	SetBindGroup(slot uint32, id uint16) error
	SetVertexBuffer(slot uint32, id uint16) error
	SetIndexBuffer(id uint16, format bytecode.IndexFormat) error
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error
	DrawIndexed(indexCount, instanceCount uint32, firstIndex uint32, baseVertex int32, firstInstance uint32) error
	Dispatch(x, y, z uint32) error
	EndPass() error

	WriteBuffer(id uint16, offset uint32, data []byte) error
	CopyBuffer(src uint16, srcOffset uint32, dst uint16, dstOffset uint32, size uint32) error

	Submit() error

	InitWasmModule(id uint16, code []byte) error
	CallWasmFunc(mod uint16, name string, args []string, outBuf uint16, outOffset, outLength uint32) error
}
