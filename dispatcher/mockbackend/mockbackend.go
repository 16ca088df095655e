// Package mockbackend is an in-memory dispatcher.Backend used by tests and
// the pnginec CLI's --dry-run mode, grounded on backend.SoftwareBackend's
// role as the always-available reference backend in the teacher's own
// backend registry — the same idea, generalized from a renderer to a
// logging/state-tracking opcode executor.
package mockbackend

import (
	"fmt"

	"github.com/pngine/pngine/bytecode"
)

// Call records one opcode-level invocation, in order, for test assertions.
type Call struct {
	Op   string
	Args []any
}

// Backend is a pure bookkeeping implementation of dispatcher.Backend: every
// method records a Call and updates a minimal resource table, never
// touching any real GPU.
type Backend struct {
	Calls []Call

	buffers  map[uint16]bufferState
	textures map[uint16]bool
	samplers map[uint16]bool
	shaders  map[uint16]bool
	render   map[uint16]bool
	compute  map[uint16]bool
	bindGrps map[uint16]bool
	wasm     map[uint16]bool
}

type bufferState struct {
	size  uint32
	usage bytecode.BufferUsage
	data  []byte
}

func New() *Backend {
	return &Backend{
		buffers: make(map[uint16]bufferState), textures: make(map[uint16]bool),
		samplers: make(map[uint16]bool), shaders: make(map[uint16]bool),
		render: make(map[uint16]bool), compute: make(map[uint16]bool),
		bindGrps: make(map[uint16]bool), wasm: make(map[uint16]bool),
	}
}

func (b *Backend) record(op string, args ...any) {
	b.Calls = append(b.Calls, Call{Op: op, Args: args})
}

func (b *Backend) CreateBuffer(id uint16, size uint32, usage bytecode.BufferUsage) error {
	b.record("create_buffer", id, size, usage)
	b.buffers[id] = bufferState{size: size, usage: usage, data: make([]byte, size)}
	return nil
}

func (b *Backend) CreateTexture(id uint16, desc []byte) error {
	b.record("create_texture", id, len(desc))
	b.textures[id] = true
	return nil
}

func (b *Backend) CreateSampler(id uint16, desc []byte) error {
	b.record("create_sampler", id, len(desc))
	b.samplers[id] = true
	return nil
}

func (b *Backend) CreateShaderModule(id uint16, code []byte) error {
	b.record("create_shader_module", id, len(code))
	b.shaders[id] = true
	return nil
}

func (b *Backend) CreateRenderPipeline(id uint16, desc []byte) error {
	b.record("create_render_pipeline", id, len(desc))
	b.render[id] = true
	return nil
}

func (b *Backend) CreateComputePipeline(id uint16, desc []byte) error {
	b.record("create_compute_pipeline", id, len(desc))
	b.compute[id] = true
	return nil
}

func (b *Backend) CreateBindGroup(id, layout uint16, entries []byte) error {
	b.record("create_bind_group", id, layout, len(entries))
	b.bindGrps[id] = true
	return nil
}

func (b *Backend) BeginRenderPass(colorTex uint16, load bytecode.LoadOp, store bytecode.StoreOp, depthTex uint16) error {
	b.record("begin_render_pass", colorTex, load, store, depthTex)
	return nil
}

func (b *Backend) BeginComputePass() error {
	b.record("begin_compute_pass")
	return nil
}

func (b *Backend) SetPipeline(id uint16) error {
	b.record("set_pipeline", id)
	return nil
}

func (b *Backend) SetBindGroup(slot uint32, id uint16) error {
	b.record("set_bind_group", slot, id)
	if !b.bindGrps[id] {
		return fmt.Errorf("unknown bind group %d", id)
	}
	return nil
}

func (b *Backend) SetVertexBuffer(slot uint32, id uint16) error {
	b.record("set_vertex_buffer", slot, id)
	return nil
}

func (b *Backend) SetIndexBuffer(id uint16, format bytecode.IndexFormat) error {
	b.record("set_index_buffer", id, format)
	return nil
}

func (b *Backend) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	b.record("draw", vertexCount, instanceCount, firstVertex, firstInstance)
	return nil
}

func (b *Backend) DrawIndexed(indexCount, instanceCount uint32, firstIndex uint32, baseVertex int32, firstInstance uint32) error {
	b.record("draw_indexed", indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
	return nil
}

func (b *Backend) Dispatch(x, y, z uint32) error {
	b.record("dispatch", x, y, z)
	return nil
}

func (b *Backend) EndPass() error {
	b.record("end_pass")
	return nil
}

func (b *Backend) WriteBuffer(id uint16, offset uint32, data []byte) error {
	b.record("write_buffer", id, offset, len(data))
	buf, ok := b.buffers[id]
	if !ok {
		return fmt.Errorf("unknown buffer %d", id)
	}
	if int(offset)+len(data) > len(buf.data) {
		return fmt.Errorf("write_buffer out of bounds: buffer %d size %d, write [%d:%d]", id, buf.size, offset, int(offset)+len(data))
	}
	copy(buf.data[offset:], data)
	return nil
}

func (b *Backend) CopyBuffer(src uint16, srcOffset uint32, dst uint16, dstOffset uint32, size uint32) error {
	b.record("copy_buffer", src, srcOffset, dst, dstOffset, size)
	s, ok := b.buffers[src]
	if !ok {
		return fmt.Errorf("unknown buffer %d", src)
	}
	d, ok := b.buffers[dst]
	if !ok {
		return fmt.Errorf("unknown buffer %d", dst)
	}
	copy(d.data[dstOffset:], s.data[srcOffset:srcOffset+size])
	return nil
}

func (b *Backend) Submit() error {
	b.record("submit")
	return nil
}

func (b *Backend) InitWasmModule(id uint16, code []byte) error {
	b.record("init_wasm_module", id, len(code))
	b.wasm[id] = true
	return nil
}

func (b *Backend) CallWasmFunc(mod uint16, name string, args []string, outBuf uint16, outOffset, outLength uint32) error {
	b.record("call_wasm_func", mod, name, args, outBuf, outOffset, outLength)
	if !b.wasm[mod] {
		return fmt.Errorf("unknown wasm module %d", mod)
	}
	return nil
}

// BufferBytes returns a copy of buffer id's current contents, for test
// assertions on write_buffer/copy_buffer effects.
func (b *Backend) BufferBytes(id uint16) []byte {
	buf, ok := b.buffers[id]
	if !ok {
		return nil
	}
	out := make([]byte, len(buf.data))
	copy(out, buf.data)
	return out
}
