package bytecode

// validate runs the load-time invariant checks spec.md §4.5 lists, given a
// Module whose sections have already been sliced out of the raw payload by
// Decode. Magic/version/reserved-bits checks already ran inside
// DecodeHeader; this pass covers section bounds/overlap, in-bounds data
// offsets, forward-reference prohibition, and the single trailing `end`.
func validate(m *Module, h Header) error {
	if err := validateSections(h); err != nil {
		return err
	}
	if err := validateDataOffsets(m); err != nil {
		return err
	}
	return validateOpcodeStream(m)
}

// validateSections checks that the executor, bytecode, and data sections
// all lie inside the payload and do not overlap one another. Decode already
// bounds-checked executor/bytecode/data against len(buf); this additionally
// checks ordering and pairwise overlap.
func validateSections(h Header) error {
	type section struct {
		name        string
		start, end  uint32
		present     bool
	}
	secs := []section{
		{"executor", h.ExecutorOffset, h.ExecutorOffset + h.ExecutorLength, h.Flags&FlagHasEmbeddedExecutor != 0},
		{"bytecode", h.BytecodeOffset, h.BytecodeOffset + h.BytecodeLength, true},
	}
	for i, a := range secs {
		if !a.present {
			continue
		}
		if a.end < a.start {
			return errSectionOutOfBounds(int(a.start), a.name)
		}
		for j, b := range secs {
			if i >= j || !b.present {
				continue
			}
			if a.start < b.end && b.start < a.end {
				return errSectionOverlap(int(a.start), a.name, b.name)
			}
		}
		if a.start < HeaderSize {
			return errSectionOutOfBounds(int(a.start), a.name)
		}
	}
	// The data section runs from DataOffset to the end of the payload by
	// construction (Decode slices m.Data as buf[h.DataOffset:]), so it
	// cannot overlap bytecode/executor as long as DataOffset >= their ends,
	// which Decode already enforced.
	return nil
}

// validateDataOffsets walks the opcode stream and checks that every operand
// field named "*_off" together with its paired "*_len" addresses a range
// inside m.Data.
func validateDataOffsets(m *Module) error {
	pc := 0
	for pc < len(m.Bytecode) {
		_, values, n, err := UnpackOperands(m.Bytecode[pc:])
		if err != nil {
			return err
		}
		pc += n
		for name, off := range values {
			if name == "" || len(name) < 4 || name[len(name)-4:] != "_off" {
				continue
			}
			lenName := name[:len(name)-4] + "_len"
			length, hasLen := values[lenName]
			if !hasLen {
				continue
			}
			if uint64(off)+uint64(length) > uint64(len(m.Data)) {
				return errOffsetOutOfBounds(int(off), name)
			}
		}
	}
	return nil
}

func readUint(b []byte, width int) uint32 {
	var v uint32
	for i := width - 1; i >= 0; i-- {
		v = v<<8 | uint32(b[i])
	}
	return v
}

// validateOpcodeStream checks that every resource id referenced by a
// non-creating opcode (set_pipeline, set_bind_group, etc.) was declared by
// an earlier create_* opcode in program order, and that the stream ends
// with exactly one `end` opcode positioned after the last `submit`.
func validateOpcodeStream(m *Module) error {
	declared := make(map[uint16]bool)
	declared[SurfaceTextureID] = true
	declared[NoDepthTextureID] = true

	endCount := 0
	endPos := -1
	lastSubmit := -1
	pc := 0
	for pc < len(m.Bytecode) {
		start := pc
		op, values, n, err := UnpackOperands(m.Bytecode[pc:])
		if err != nil {
			return err
		}
		pc += n

		switch op {
		case OpCreateBuffer, OpCreateTexture, OpCreateSampler, OpCreateShader,
			OpCreateRenderPipeline, OpCreateComputePipeline, OpCreateBindGroup,
			OpInitWasmModule:
			declared[uint16(values["id"])] = true
		case OpSetPipeline, OpSetVertexBuffer, OpSetIndexBuffer:
			if !declared[uint16(values["id"])] {
				return errForwardReference(start, op.String(), uint16(values["id"]))
			}
		case OpSetBindGroup:
			if !declared[uint16(values["id"])] {
				return errForwardReference(start, "bind_group", uint16(values["id"]))
			}
		case OpCallWasmFunc:
			if !declared[uint16(values["mod"])] {
				return errForwardReference(start, "wasm_module", uint16(values["mod"]))
			}
		case OpSubmit:
			lastSubmit = start
		case OpEnd:
			endCount++
			endPos = start
		}
	}

	if endCount != 1 || endPos < lastSubmit {
		return errMissingEnd(endPos)
	}
	if endPos != len(m.Bytecode)-1 {
		return errMissingEnd(endPos)
	}
	return nil
}
