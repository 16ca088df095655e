package emitter

import (
	"github.com/pngine/pngine/analyzer"
	"github.com/pngine/pngine/bytecode"
	"github.com/pngine/pngine/parser"
)

// emitInitOps emits, for each #init macro whose "params" binding was
// recorded as "$params", a zeroed 16-byte write_buffer to the buffer
// symbol named "$params", placed before the first per-frame submission.
// The analyzer declares no buffer under that name and "$" cannot start a
// source identifier, so the lookup below finds nothing and no opcode is
// emitted for #init macros; no create_buffer for a params uniform exists.
func (e *emitter) emitInitOps() {
	for _, sym := range e.mod.Tables.Table(analyzer.KindInit).All() {
		bindings := e.mod.InitBindings[sym.Node]
		if bindings["params"] != "$params" {
			continue
		}
		paramsSym := e.mod.Tables.Table(analyzer.KindBuffer).Lookup("$params")
		if paramsSym == nil {
			continue
		}
		off, length := e.blob(make([]byte, 16))
		e.op(bytecode.OpWriteBuffer, map[string]uint32{
			"id": uint32(paramsSym.ID), "offset": 0, "data_off": off, "data_len": length,
		})
	}
}

// emitFrames emits every #frame's body as a linear opcode sub-sequence
// between a pass-begin/end pair, terminated by submit, and every
// #animation as a scene-table entry, per spec.md §4.4.
func (e *emitter) emitFrames() {
	var frameEntries []bytecode.FrameTableEntry
	for _, sym := range e.mod.Tables.Table(analyzer.KindFrame).All() {
		pcStart := len(e.bc)
		e.emitFrame(sym)
		frameEntries = append(frameEntries, bytecode.FrameTableEntry{
			FrameID: sym.ID, PCOffset: uint32(pcStart), Length: uint32(len(e.bc) - pcStart),
		})
	}

	var scenes []bytecode.AnimationScene
	for _, sym := range e.mod.Tables.Table(analyzer.KindAnimation).All() {
		scenes = append(scenes, e.animationScene(sym))
	}
	// Neither table has a dedicated header offset field (flags only
	// signals the animation table's presence), so both are found by
	// walking back from the end of the data section: the frame table is
	// always the final blob (count=0 when there are no frames), and the
	// animation table, when present, sits immediately before it. Each is
	// self-delimited by a trailing u32 byte length — see
	// bytecode.Module.FrameTable/AnimationTable.
	if len(scenes) > 0 {
		e.appendTrailingBlob(bytecode.EncodeAnimationTable(scenes))
		e.hasAnimationTable = true
	}
	e.appendTrailingBlob(bytecode.EncodeFrameTable(frameEntries))
}

// appendTrailingBlob appends b to the data section followed by its own
// little-endian u32 byte length, per the nested-trailer convention
// bytecode.Module.FrameTable/AnimationTable read back.
func (e *emitter) appendTrailingBlob(b []byte) {
	e.blob(b)
	var trailer [4]byte
	trailer[0] = byte(len(b))
	trailer[1] = byte(len(b) >> 8)
	trailer[2] = byte(len(b) >> 16)
	trailer[3] = byte(len(b) >> 24)
	e.blob(trailer[:])
}

// emitFrame emits a #frame's `perform=[...]` list: each entry names a
// #renderPass or #computePass resource, executed in order as its own
// begin/body/end/submit sub-sequence (spec.md §8 Scenario 1's
// `#frame main { perform=[r] }` shape).
func (e *emitter) emitFrame(sym *analyzer.Symbol) {
	label := "frame:" + sym.Name
	for _, name := range e.stringItems(sym.Node, "perform") {
		if passSym := e.mod.Tables.Table(analyzer.KindRenderPass).Lookup(name); passSym != nil {
			e.emitRenderPass(passSym)
			continue
		}
		if passSym := e.mod.Tables.Table(analyzer.KindComputePass).Lookup(name); passSym != nil {
			e.emitComputePass(passSym)
			continue
		}
		e.fail(errUnresolvedReference(label, name))
	}
}

// emitRenderPass emits a #renderPass resource's colorAttachments/pipeline/
// draw(Indexed) call as one begin_render_pass .. end_pass .. submit block.
func (e *emitter) emitRenderPass(sym *analyzer.Symbol) {
	label := "renderPass:" + sym.Name
	colorTex := uint16(bytecode.SurfaceTextureID)
	load := loadOps["clear"]
	store := storeOps["store"]
	if attachments, ok := propNode(e.ast, sym.Node, "colorAttachments"); ok && e.ast.ChildCount(attachments) > 0 {
		first := e.ast.Child(attachments, 0)
		if view, ok := propNode(e.ast, first, "view"); ok {
			name := e.ast.Node(view).Text
			// contextCurrentTexture is the canvas's own swap-chain image,
			// which has no symbol table entry; any other name must resolve
			// to a declared texture.
			if name != "contextCurrentTexture" {
				if texSym := e.mod.Tables.Table(analyzer.KindTexture).Lookup(name); texSym != nil {
					colorTex = texSym.ID
				} else {
					e.fail(errUnresolvedReference(label, name))
				}
			}
		}
		if loadName, ok := e.strProp(first, "loadOp"); ok {
			load = loadOps[loadName]
		}
		if storeName, ok := e.strProp(first, "storeOp"); ok {
			store = storeOps[storeName]
		}
	}
	depthTex := uint16(bytecode.NoDepthTextureID)
	if _, ok := propNode(e.ast, sym.Node, "depthTarget"); ok {
		depthTex, _ = e.refProp(sym.Node, "depthTarget", analyzer.KindTexture, label)
	}

	e.op(bytecode.OpBeginRenderPass, map[string]uint32{
		"color_tex": uint32(colorTex), "load": uint32(load), "store": uint32(store), "depth_tex": uint32(depthTex),
	})

	if id, ok := e.refEitherPipeline(sym.Node, "pipeline", label); ok {
		e.op(bytecode.OpSetPipeline, map[string]uint32{"id": uint32(id)})
	}
	if ops, ok := propNode(e.ast, sym.Node, "ops"); ok {
		e.emitOpsArray(ops, label)
	}
	if _, hasDraw := propNode(e.ast, sym.Node, "draw"); hasDraw {
		if vcount, ok := e.numProp(sym.Node, "draw", label); ok {
			e.op(bytecode.OpDraw, map[string]uint32{
				"vcount": vcount, "icount": e.numPropDefault(sym.Node, "instanceCount", 1),
				"first_v": e.numPropDefault(sym.Node, "firstVertex", 0), "first_i": e.numPropDefault(sym.Node, "firstInstance", 0),
			})
		}
	}
	if _, hasDrawIndexed := propNode(e.ast, sym.Node, "drawIndexed"); hasDrawIndexed {
		if icount, ok := e.numProp(sym.Node, "drawIndexed", label); ok {
			e.op(bytecode.OpDrawIndexed, map[string]uint32{
				"icount": icount, "inst": e.numPropDefault(sym.Node, "instanceCount", 1),
				"first": e.numPropDefault(sym.Node, "firstIndex", 0), "base": e.numPropDefault(sym.Node, "baseVertex", 0),
				"first_i": e.numPropDefault(sym.Node, "firstInstance", 0),
			})
		}
	}

	e.op(bytecode.OpEndPass, nil)
	e.op(bytecode.OpSubmit, nil)
}

// emitComputePass emits a #computePass resource's pipeline/dispatch call.
func (e *emitter) emitComputePass(sym *analyzer.Symbol) {
	label := "computePass:" + sym.Name
	e.op(bytecode.OpBeginComputePass, nil)
	if id, ok := e.refEitherPipeline(sym.Node, "pipeline", label); ok {
		e.op(bytecode.OpSetPipeline, map[string]uint32{"id": uint32(id)})
	}
	if ops, ok := propNode(e.ast, sym.Node, "ops"); ok {
		e.emitOpsArray(ops, label)
	}
	if dispatchNode, ok := propNode(e.ast, sym.Node, "dispatch"); ok {
		x, y, z := uint32(1), uint32(1), uint32(1)
		if e.ast.Node(dispatchNode).Kind == parser.NodeArray && e.ast.ChildCount(dispatchNode) == 3 {
			x = e.dispatchAxis(dispatchNode, 0)
			y = e.dispatchAxis(dispatchNode, 1)
			z = e.dispatchAxis(dispatchNode, 2)
		} else if v, ok := e.mod.ResolveNumeric(e.ast.Node(dispatchNode)); ok {
			x = uint32(v)
		}
		e.op(bytecode.OpDispatch, map[string]uint32{"x": x, "y": y, "z": z})
	}
	e.op(bytecode.OpEndPass, nil)
	e.op(bytecode.OpSubmit, nil)
}

func (e *emitter) dispatchAxis(arr parser.NodeID, i int) uint32 {
	v, _ := e.mod.ResolveNumeric(e.ast.Node(e.ast.Child(arr, i)))
	return uint32(v)
}

// emitOpsArray emits one opcode per object entry of a pass's ops array.
// Each entry is `{ op="set_pipeline" id=name ... }`-shaped, keeping the
// wire opcode name as the discriminator so new op kinds only need one more
// case here and a matching Backend method.
func (e *emitter) emitOpsArray(opsNode parser.NodeID, label string) {
	for i := 0; i < e.ast.ChildCount(opsNode); i++ {
		entry := e.ast.Child(opsNode, i)
		if e.ast.Node(entry).Kind != parser.NodeObject {
			continue
		}
		kind, ok := e.strProp(entry, "op")
		if !ok {
			e.fail(errMissingProperty(label, "op"))
			continue
		}
		switch kind {
		case "set_pipeline":
			if id, ok := e.refEitherPipeline(entry, "pipeline", label); ok {
				e.op(bytecode.OpSetPipeline, map[string]uint32{"id": uint32(id)})
			}
		case "set_bind_group":
			slot := e.numPropDefault(entry, "slot", 0)
			if id, ok := e.refProp(entry, "bindGroup", analyzer.KindBindGroup, label); ok {
				e.op(bytecode.OpSetBindGroup, map[string]uint32{"slot": slot, "id": uint32(id)})
			}
		case "set_vertex_buffer":
			slot := e.numPropDefault(entry, "slot", 0)
			if id, ok := e.refProp(entry, "buffer", analyzer.KindBuffer, label); ok {
				e.op(bytecode.OpSetVertexBuffer, map[string]uint32{"slot": slot, "id": uint32(id)})
			}
		case "set_index_buffer":
			format := indexFormats[e.strPropDefault(entry, "format", "uint16")]
			if id, ok := e.refProp(entry, "buffer", analyzer.KindBuffer, label); ok {
				e.op(bytecode.OpSetIndexBuffer, map[string]uint32{"id": uint32(id), "format": uint32(format)})
			}
		case "draw":
			e.op(bytecode.OpDraw, map[string]uint32{
				"vcount": e.numPropDefault(entry, "vertexCount", 0), "icount": e.numPropDefault(entry, "instanceCount", 1),
				"first_v": e.numPropDefault(entry, "firstVertex", 0), "first_i": e.numPropDefault(entry, "firstInstance", 0),
			})
		case "draw_indexed":
			e.op(bytecode.OpDrawIndexed, map[string]uint32{
				"icount": e.numPropDefault(entry, "indexCount", 0), "inst": e.numPropDefault(entry, "instanceCount", 1),
				"first": e.numPropDefault(entry, "firstIndex", 0), "base": e.numPropDefault(entry, "baseVertex", 0),
				"first_i": e.numPropDefault(entry, "firstInstance", 0),
			})
		case "dispatch":
			e.op(bytecode.OpDispatch, map[string]uint32{
				"x": e.numPropDefault(entry, "x", 1), "y": e.numPropDefault(entry, "y", 1), "z": e.numPropDefault(entry, "z", 1),
			})
		case "write_time_uniform":
			if id, ok := e.refProp(entry, "buffer", analyzer.KindBuffer, label); ok {
				e.op(bytecode.OpWriteTimeUniform, map[string]uint32{"id": uint32(id), "offset": e.numPropDefault(entry, "offset", 0)})
			}
		case "copy_buffer":
			src, okS := e.refProp(entry, "src", analyzer.KindBuffer, label)
			dst, okD := e.refProp(entry, "dst", analyzer.KindBuffer, label)
			if okS && okD {
				e.op(bytecode.OpCopyBuffer, map[string]uint32{
					"src": uint32(src), "src_off": e.numPropDefault(entry, "srcOffset", 0),
					"dst": uint32(dst), "dst_off": e.numPropDefault(entry, "dstOffset", 0),
					"size": e.numPropDefault(entry, "size", 0),
				})
			}
		case "call_wasm_func":
			e.emitCallWasmFunc(entry, label)
		default:
			e.fail(errInvalidValue(label, "unknown frame op "+kind))
		}
	}
}

func (e *emitter) refEitherPipeline(parent parser.NodeID, key, label string) (uint16, bool) {
	v, ok := propNode(e.ast, parent, key)
	if !ok {
		e.fail(errMissingProperty(label, key))
		return 0, false
	}
	name := e.ast.Node(v).Text
	if sym := e.mod.Tables.Table(analyzer.KindRenderPipeline).Lookup(name); sym != nil {
		return sym.ID, true
	}
	if sym := e.mod.Tables.Table(analyzer.KindComputePipeline).Lookup(name); sym != nil {
		return sym.ID, true
	}
	e.fail(errUnresolvedReference(label, name))
	return 0, false
}

func (e *emitter) emitCallWasmFunc(entry parser.NodeID, label string) {
	mod, ok := e.refProp(entry, "module", analyzer.KindWasmCall, label)
	if !ok {
		return
	}
	name, _ := e.strProp(entry, "name")
	nameOff := e.intern(name)
	args := e.stringItems(entry, "args")
	var argBytes []byte
	for _, a := range args {
		argBytes = append(argBytes, []byte(a)...)
		argBytes = append(argBytes, 0)
	}
	argsOff, argsLen := e.blob(argBytes)
	outBuf := uint16(bytecode.NoDepthTextureID) // sentinel "no output buffer"
	if _, ok := propNode(e.ast, entry, "outBuffer"); ok {
		outBuf, _ = e.refProp(entry, "outBuffer", analyzer.KindBuffer, label)
	}
	e.op(bytecode.OpCallWasmFunc, map[string]uint32{
		"mod": uint32(mod), "name_off": nameOff, "name_len": uint32(len(name)),
		"args_off": argsOff, "args_len": argsLen,
		"out_buf": uint32(outBuf), "out_off": e.numPropDefault(entry, "outOffset", 0), "out_len": e.numPropDefault(entry, "outLength", 0),
	})
}

// animationScene reads an #animation macro's start/end/frame/endBehavior
// into a scene table record.
func (e *emitter) animationScene(sym *analyzer.Symbol) bytecode.AnimationScene {
	label := "animation:" + sym.Name
	start := e.numPropDefault(sym.Node, "start", 0)
	end := e.numPropDefault(sym.Node, "end", 0)
	frameID, _ := e.refProp(sym.Node, "frame", analyzer.KindFrame, label)
	behaviorName := e.strPropDefault(sym.Node, "endBehavior", "hold")
	behavior := bytecode.EndBehaviorHold
	switch behaviorName {
	case "loop":
		behavior = bytecode.EndBehaviorLoop
	case "stop":
		behavior = bytecode.EndBehaviorStop
	}
	return bytecode.AnimationScene{ID: sym.ID, StartMillis: start, EndMillis: end, FrameID: frameID, EndBehavior: behavior}
}
