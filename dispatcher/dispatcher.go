package dispatcher

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pngine/pngine/bytecode"
)

// passState is the dispatcher's "active pass" state variable (spec.md
// §3's Dispatcher state model): none, render, or compute.
type passState uint8

const (
	passNone passState = iota
	passRender
	passCompute
)

// MaxOpcodesPerRun bounds a single runRange call so a malformed or
// adversarial bytecode stream (a jump table with a self-referencing
// "frame") cannot spin the dispatcher forever; it is independent of and
// much larger than any module the emitter can legally produce.
const MaxOpcodesPerRun = 1 << 20

// Dispatcher replays a bytecode.Module's opcode stream against backend B.
// Parameterizing over B means Go's compiler checks B satisfies Backend at
// the New call site — construction-time capability validation, per
// spec.md §4.6, without any runtime reflection.
type Dispatcher[B Backend] struct {
	backend    B
	mod        *bytecode.Module
	pass       passState
	maxOpcodes uint32 // 0 means MaxOpcodesPerRun
}

func New[B Backend](backend B, mod *bytecode.Module) *Dispatcher[B] {
	return &Dispatcher[B]{backend: backend, mod: mod}
}

// SetMaxOpcodes overrides MaxOpcodesPerRun for this dispatcher instance,
// letting a caller (pngine.CompileOptions.MaxOpcodes, surfaced through the
// pnginec CLI's dry-run mode) tighten or loosen the runaway-loop backstop
// per module. n=0 restores the default.
func (d *Dispatcher[B]) SetMaxOpcodes(n uint32) {
	d.maxOpcodes = n
}

// RunToEnd executes the whole bytecode stream linearly from pc=0, the
// shape a module with no #frame declarations (or a pure compute script)
// takes. totalMillis feeds any write_time_uniform opcodes encountered.
func (d *Dispatcher[B]) RunToEnd(totalMillis uint32) error {
	return d.runRange(0, uint32(len(d.mod.Bytecode)), totalMillis)
}

// RunInit executes every opcode before the first #frame's opcode
// sub-sequence: shader/pipeline/resource creation, data uploads, and
// #init's computed bindings (spec.md §4.4's "runs-once" step). Safe to
// call on a module with no frames, in which case it runs the whole stream,
// trailing end opcode included, like RunToEnd.
func (d *Dispatcher[B]) RunInit(totalMillis uint32) error {
	frames, err := d.mod.FrameTable()
	if err != nil {
		return err
	}
	stop := uint32(len(d.mod.Bytecode))
	for _, f := range frames {
		if f.PCOffset < stop {
			stop = f.PCOffset
		}
	}
	return d.runRange(0, stop, totalMillis)
}

// RunFrame executes one #frame's opcode sub-sequence by id, looked up in
// the module's frame table.
func (d *Dispatcher[B]) RunFrame(frameID uint16, totalMillis uint32) error {
	frames, err := d.mod.FrameTable()
	if err != nil {
		return err
	}
	for _, f := range frames {
		if f.FrameID == frameID {
			return d.runRange(f.PCOffset, f.PCOffset+f.Length, totalMillis)
		}
	}
	return errUnknownResource(0, "frame", frameID)
}

// RunActiveFrame selects the #frame the animation scene table names active
// at totalMillis (spec.md §4.6) and runs it. A false return from
// SelectScene (endBehavior=stop past the last scene, or no #animation at
// all) is not itself an error: the caller simply has nothing new to submit
// this tick.
func (d *Dispatcher[B]) RunActiveFrame(totalMillis uint32) error {
	scenes, err := d.mod.AnimationTable()
	if err != nil {
		return err
	}
	frameID, ok := SelectScene(scenes, totalMillis)
	if !ok {
		return nil
	}
	return d.RunFrame(frameID, totalMillis)
}

func (d *Dispatcher[B]) runRange(start, end uint32, totalMillis uint32) error {
	limit := d.maxOpcodes
	if limit == 0 {
		limit = MaxOpcodesPerRun
	}
	pc := start
	var count uint32
	for pc < end {
		if count >= limit {
			return errOpcodeLimitExceeded(pc)
		}
		next, err := d.step(pc, totalMillis)
		if err != nil {
			return err
		}
		pc = next
		count++
	}
	return nil
}

func (d *Dispatcher[B]) dataSlice(off, length uint32) ([]byte, error) {
	end := off + length
	if end < off || int(end) > len(d.mod.Data) {
		return nil, &Error{Code: "D306", Msg: fmt.Sprintf("data slice [%d:%d] out of bounds (len %d)", off, end, len(d.mod.Data))}
	}
	return d.mod.Data[off:end], nil
}

// step decodes and executes exactly one opcode starting at pc, returning
// the pc of the next opcode.
func (d *Dispatcher[B]) step(pc uint32, totalMillis uint32) (uint32, error) {
	if int(pc) >= len(d.mod.Bytecode) {
		return pc, errUnknownOpcode(pc, 0)
	}
	op, v, n, decErr := bytecode.UnpackOperands(d.mod.Bytecode[pc:])
	if decErr != nil {
		return pc, errBackend(pc, "decode", decErr)
	}

	var err error
	switch op {
	case bytecode.OpCreateBuffer:
		err = d.backend.CreateBuffer(uint16(v["id"]), v["size"], bytecode.BufferUsage(v["usage"]))
	case bytecode.OpCreateTexture:
		err = d.withSlice(v["desc_off"], v["desc_len"], func(b []byte) error {
			return d.backend.CreateTexture(uint16(v["id"]), b)
		})
	case bytecode.OpCreateSampler:
		err = d.withSlice(v["desc_off"], v["desc_len"], func(b []byte) error {
			return d.backend.CreateSampler(uint16(v["id"]), b)
		})
	case bytecode.OpCreateShader:
		err = d.withSlice(v["code_off"], v["code_len"], func(b []byte) error {
			return d.backend.CreateShaderModule(uint16(v["id"]), b)
		})
	case bytecode.OpCreateRenderPipeline:
		err = d.withSlice(v["desc_off"], v["desc_len"], func(b []byte) error {
			return d.backend.CreateRenderPipeline(uint16(v["id"]), b)
		})
	case bytecode.OpCreateComputePipeline:
		err = d.withSlice(v["desc_off"], v["desc_len"], func(b []byte) error {
			return d.backend.CreateComputePipeline(uint16(v["id"]), b)
		})
	case bytecode.OpCreateBindGroup:
		err = d.withSlice(v["entries_off"], v["entries_len"], func(b []byte) error {
			return d.backend.CreateBindGroup(uint16(v["id"]), uint16(v["layout"]), b)
		})

	case bytecode.OpBeginRenderPass:
		if d.pass != passNone {
			return pc, errInvalidPassState(pc, "begin_render_pass while a pass is active")
		}
		err = d.backend.BeginRenderPass(uint16(v["color_tex"]), bytecode.LoadOp(v["load"]), bytecode.StoreOp(v["store"]), uint16(v["depth_tex"]))
		if err == nil {
			d.pass = passRender
		}
	case bytecode.OpBeginComputePass:
		if d.pass != passNone {
			return pc, errInvalidPassState(pc, "begin_compute_pass while a pass is active")
		}
		err = d.backend.BeginComputePass()
		if err == nil {
			d.pass = passCompute
		}
	case bytecode.OpSetPipeline:
		if d.pass == passNone {
			return pc, errInvalidPassState(pc, "set_pipeline outside a pass")
		}
		err = d.backend.SetPipeline(uint16(v["id"]))
	case bytecode.OpSetBindGroup:
		if d.pass == passNone {
			return pc, errInvalidPassState(pc, "set_bind_group outside a pass")
		}
		err = d.backend.SetBindGroup(v["slot"], uint16(v["id"]))
	case bytecode.OpSetVertexBuffer:
		if d.pass != passRender {
			return pc, errInvalidPassState(pc, "set_vertex_buffer outside a render pass")
		}
		err = d.backend.SetVertexBuffer(v["slot"], uint16(v["id"]))
	case bytecode.OpSetIndexBuffer:
		if d.pass != passRender {
			return pc, errInvalidPassState(pc, "set_index_buffer outside a render pass")
		}
		err = d.backend.SetIndexBuffer(uint16(v["id"]), bytecode.IndexFormat(v["format"]))
	case bytecode.OpDraw:
		if d.pass != passRender {
			return pc, errInvalidPassState(pc, "draw outside a render pass")
		}
		err = d.backend.Draw(v["vcount"], v["icount"], v["first_v"], v["first_i"])
	case bytecode.OpDrawIndexed:
		if d.pass != passRender {
			return pc, errInvalidPassState(pc, "draw_indexed outside a render pass")
		}
		err = d.backend.DrawIndexed(v["icount"], v["inst"], v["first"], int32(v["base"]), v["first_i"])
	case bytecode.OpDispatch:
		if d.pass != passCompute {
			return pc, errInvalidPassState(pc, "dispatch outside a compute pass")
		}
		err = d.backend.Dispatch(v["x"], v["y"], v["z"])
	case bytecode.OpEndPass:
		if d.pass == passNone {
			return pc, errInvalidPassState(pc, "end_pass without a matching begin")
		}
		err = d.backend.EndPass()
		if err == nil {
			d.pass = passNone
		}

	case bytecode.OpWriteBuffer:
		err = d.withSlice(v["data_off"], v["data_len"], func(b []byte) error {
			return d.backend.WriteBuffer(uint16(v["id"]), v["offset"], b)
		})
	case bytecode.OpWriteTimeUniform:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], totalMillis)
		err = d.backend.WriteBuffer(uint16(v["id"]), v["offset"], buf[:])
	case bytecode.OpCopyBuffer:
		err = d.backend.CopyBuffer(uint16(v["src"]), v["src_off"], uint16(v["dst"]), v["dst_off"], v["size"])

	case bytecode.OpSubmit:
		err = d.backend.Submit()

	case bytecode.OpInitWasmModule:
		err = d.withSlice(v["data_off"], v["data_len"], func(b []byte) error {
			return d.backend.InitWasmModule(uint16(v["id"]), b)
		})
	case bytecode.OpCallWasmFunc:
		err = d.execCallWasmFunc(v)

	case bytecode.OpEnd:
		// terminal marker; nothing to execute.

	default:
		return pc, errUnknownOpcode(pc, byte(op))
	}

	if err != nil {
		return pc, errBackend(pc, op.String(), err)
	}
	return pc + uint32(n), nil
}

func (d *Dispatcher[B]) withSlice(off, length uint32, f func([]byte) error) error {
	b, err := d.dataSlice(off, length)
	if err != nil {
		return err
	}
	return f(b)
}

func (d *Dispatcher[B]) execCallWasmFunc(v map[string]uint32) error {
	name, err := d.dataSlice(v["name_off"], v["name_len"])
	if err != nil {
		return err
	}
	argsRaw, err := d.dataSlice(v["args_off"], v["args_len"])
	if err != nil {
		return err
	}
	var args []string
	for _, part := range bytes.Split(bytes.TrimRight(argsRaw, "\x00"), []byte{0}) {
		if len(part) > 0 {
			args = append(args, string(part))
		}
	}
	return d.backend.CallWasmFunc(uint16(v["mod"]), string(name), args, uint16(v["out_buf"]), v["out_off"], v["out_len"])
}
