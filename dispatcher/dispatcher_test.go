package dispatcher

import (
	"testing"

	"github.com/pngine/pngine/bytecode"
	"github.com/pngine/pngine/dispatcher/mockbackend"
)

// buildTriangleModule reproduces spec.md §8 Scenario 1's expected opcode
// stream directly (create_shader, create_render_pipeline, begin_render_pass,
// set_pipeline, draw, end_pass, submit, end), skipping the compiler front
// end so the dispatcher is tested in isolation.
func buildTriangleModule(t *testing.T) *bytecode.Module {
	t.Helper()
	var bc []byte
	bc = append(bc, bytecode.PackOperands(bytecode.OpCreateShader, map[string]uint32{"id": 0, "code_off": 0, "code_len": 4})...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpCreateRenderPipeline, map[string]uint32{"id": 0, "desc_off": 4, "desc_len": 2})...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpBeginRenderPass, map[string]uint32{
		"color_tex": uint32(bytecode.SurfaceTextureID), "load": uint32(bytecode.LoadOpClear),
		"store": uint32(bytecode.StoreOpStore), "depth_tex": uint32(bytecode.NoDepthTextureID),
	})...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpSetPipeline, map[string]uint32{"id": 0})...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpDraw, map[string]uint32{"vcount": 3, "icount": 1, "first_v": 0, "first_i": 0})...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpEndPass, nil)...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpSubmit, nil)...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpEnd, nil)...)

	m := &bytecode.Module{Bytecode: bc, Data: []byte{'c', 'o', 'd', 'e', 0xAA, 0xBB}}
	payload := m.Encode()
	decoded, err := bytecode.Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return decoded
}

func TestDispatcher_TriangleScenario(t *testing.T) {
	mod := buildTriangleModule(t)
	be := mockbackend.New()
	d := New[*mockbackend.Backend](be, mod)

	if err := d.RunToEnd(0); err != nil {
		t.Fatalf("RunToEnd: %v", err)
	}

	wantOps := []string{
		"create_shader_module", "create_render_pipeline", "begin_render_pass",
		"set_pipeline", "draw", "end_pass", "submit",
	}
	if len(be.Calls) != len(wantOps) {
		t.Fatalf("got %d calls, want %d: %+v", len(be.Calls), len(wantOps), be.Calls)
	}
	for i, want := range wantOps {
		if be.Calls[i].Op != want {
			t.Fatalf("call %d = %s, want %s", i, be.Calls[i].Op, want)
		}
	}
}

func TestDispatcher_InvalidPassStateOnNestedBeginRenderPass(t *testing.T) {
	var bc []byte
	bc = append(bc, bytecode.PackOperands(bytecode.OpBeginRenderPass, map[string]uint32{
		"color_tex": uint32(bytecode.SurfaceTextureID), "depth_tex": uint32(bytecode.NoDepthTextureID),
	})...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpBeginRenderPass, map[string]uint32{
		"color_tex": uint32(bytecode.SurfaceTextureID), "depth_tex": uint32(bytecode.NoDepthTextureID),
	})...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpEndPass, nil)...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpSubmit, nil)...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpEnd, nil)...)

	m := &bytecode.Module{Bytecode: bc}
	decoded, err := bytecode.Decode(m.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	d := New[*mockbackend.Backend](mockbackend.New(), decoded)
	err = d.RunToEnd(0)
	if err == nil {
		t.Fatal("expected InvalidPassState error on second begin_render_pass")
	}
	dispErr, ok := err.(*Error)
	if !ok || dispErr.Code != "D301" {
		t.Fatalf("err = %v, want D301", err)
	}
}

func TestDispatcher_SetBindGroupOutsidePassRejected(t *testing.T) {
	var bc []byte
	bc = append(bc, bytecode.PackOperands(bytecode.OpCreateBindGroup, map[string]uint32{"id": 0, "layout": 0, "entries_off": 0, "entries_len": 0})...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpSetBindGroup, map[string]uint32{"slot": 0, "id": 0})...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpSubmit, nil)...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpEnd, nil)...)

	// The bind group is declared so the load-time forward-reference check
	// passes; this test exercises the dispatcher's own pass-state guard,
	// which set_bind_group must still satisfy outside any active pass.
	m := &bytecode.Module{Bytecode: bc}
	decoded, err := bytecode.Decode(m.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	d := New[*mockbackend.Backend](mockbackend.New(), decoded)
	if err := d.RunToEnd(0); err == nil {
		t.Fatal("expected InvalidPassState error")
	}
}

func scene(id, frame uint16, start, end uint32, behavior bytecode.EndBehavior) bytecode.AnimationScene {
	return bytecode.AnimationScene{ID: id, StartMillis: start, EndMillis: end, FrameID: frame, EndBehavior: behavior}
}

// TestSelectScene_HoldAndLoop reproduces spec.md §8 Scenario 6 exactly:
// scenes A:[0,10) B:[10,20) C:[20,30), t=12s with endBehavior=hold selects
// B; t=35s with endBehavior=loop selects C's set wrapped to A via 35%30=5.
func TestSelectScene_HoldAndLoop(t *testing.T) {
	scenesHold := []bytecode.AnimationScene{
		scene(0, 100, 0, 10000, bytecode.EndBehaviorHold),
		scene(1, 101, 10000, 20000, bytecode.EndBehaviorHold),
		scene(2, 102, 20000, 30000, bytecode.EndBehaviorHold),
	}
	frameID, ok := SelectScene(scenesHold, 12000)
	if !ok || frameID != 101 {
		t.Fatalf("t=12s: frame=%d ok=%v, want 101/true", frameID, ok)
	}

	scenesLoop := []bytecode.AnimationScene{
		scene(0, 100, 0, 10000, bytecode.EndBehaviorLoop),
		scene(1, 101, 10000, 20000, bytecode.EndBehaviorLoop),
		scene(2, 102, 20000, 30000, bytecode.EndBehaviorLoop),
	}
	frameID, ok = SelectScene(scenesLoop, 35000)
	if !ok || frameID != 100 {
		t.Fatalf("t=35s looped: frame=%d ok=%v, want 100/true (35 mod 30 = 5 -> scene A)", frameID, ok)
	}
}

func TestSelectScene_Stop(t *testing.T) {
	scenes := []bytecode.AnimationScene{
		scene(0, 100, 0, 10, bytecode.EndBehaviorStop),
	}
	if _, ok := SelectScene(scenes, 15000); ok {
		t.Fatal("expected no active scene past the end with endBehavior=stop")
	}
}

func TestSelectScene_Empty(t *testing.T) {
	if _, ok := SelectScene(nil, 0); ok {
		t.Fatal("expected ok=false for an empty scene table")
	}
}

func TestDispatcher_RunActiveFrameJumpsBetweenFrames(t *testing.T) {
	var bc []byte
	frameAStart := uint32(len(bc))
	bc = append(bc, bytecode.PackOperands(bytecode.OpBeginComputePass, nil)...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpDispatch, map[string]uint32{"x": 1, "y": 1, "z": 1})...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpEndPass, nil)...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpSubmit, nil)...)
	frameALen := uint32(len(bc)) - frameAStart

	frameBStart := uint32(len(bc))
	bc = append(bc, bytecode.PackOperands(bytecode.OpBeginComputePass, nil)...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpDispatch, map[string]uint32{"x": 2, "y": 1, "z": 1})...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpEndPass, nil)...)
	bc = append(bc, bytecode.PackOperands(bytecode.OpSubmit, nil)...)
	frameBLen := uint32(len(bc)) - frameBStart

	bc = append(bc, bytecode.PackOperands(bytecode.OpEnd, nil)...)

	frameTable := bytecode.EncodeFrameTable([]bytecode.FrameTableEntry{
		{FrameID: 0, PCOffset: frameAStart, Length: frameALen},
		{FrameID: 1, PCOffset: frameBStart, Length: frameBLen},
	})
	animTable := bytecode.EncodeAnimationTable([]bytecode.AnimationScene{
		scene(0, 0, 0, 1000, bytecode.EndBehaviorHold),
		scene(1, 1, 1000, 2000, bytecode.EndBehaviorHold),
	})

	var data []byte
	data = append(data, animTable...)
	data = appendTrailer(data, len(animTable))
	beforeFrameTable := len(data)
	data = append(data, frameTable...)
	data = appendTrailer(data, len(frameTable))
	_ = beforeFrameTable

	m := &bytecode.Module{Flags: bytecode.FlagHasAnimationTable, Bytecode: bc, Data: data}
	decoded, err := bytecode.Decode(m.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	be := mockbackend.New()
	d := New[*mockbackend.Backend](be, decoded)
	if err := d.RunActiveFrame(500); err != nil {
		t.Fatalf("RunActiveFrame(500): %v", err)
	}
	if err := d.RunActiveFrame(1500); err != nil {
		t.Fatalf("RunActiveFrame(1500): %v", err)
	}

	var dispatches []uint32
	for _, c := range be.Calls {
		if c.Op == "dispatch" {
			dispatches = append(dispatches, c.Args[0].(uint32))
		}
	}
	if len(dispatches) != 2 || dispatches[0] != 1 || dispatches[1] != 2 {
		t.Fatalf("dispatches = %v, want [1 2] (frame A's x=1 then frame B's x=2)", dispatches)
	}
}

func appendTrailer(data []byte, blobLen int) []byte {
	var trailer [4]byte
	trailer[0] = byte(blobLen)
	trailer[1] = byte(blobLen >> 8)
	trailer[2] = byte(blobLen >> 16)
	trailer[3] = byte(blobLen >> 24)
	return append(data, trailer[:]...)
}
