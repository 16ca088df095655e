package bytecode

// Opcode is one instruction tag in the bytecode stream. Adapted from
// recording/command.go's CommandType + commandTypeNames pattern: a closed
// byte enum with a parallel name table, extended here with the fixed wire
// values spec.md §4.4 assigns.
type Opcode uint8

const (
	OpCreateBuffer         Opcode = 0x01
	OpCreateTexture        Opcode = 0x02
	OpCreateSampler        Opcode = 0x03
	OpCreateShader         Opcode = 0x04
	OpCreateRenderPipeline Opcode = 0x05
	OpCreateComputePipeline Opcode = 0x06
	OpCreateBindGroup      Opcode = 0x07

	OpBeginRenderPass  Opcode = 0x10
	OpBeginComputePass Opcode = 0x11
	OpSetPipeline      Opcode = 0x12
	OpSetBindGroup     Opcode = 0x13
	OpSetVertexBuffer  Opcode = 0x14
	OpDraw             Opcode = 0x15
	OpDrawIndexed      Opcode = 0x16
	OpEndPass          Opcode = 0x17
	OpDispatch         Opcode = 0x18
	OpSetIndexBuffer   Opcode = 0x19

	OpWriteBuffer      Opcode = 0x20
	OpWriteTimeUniform Opcode = 0x21
	OpCopyBuffer       Opcode = 0x22

	OpInitWasmModule Opcode = 0x30
	OpCallWasmFunc   Opcode = 0x31

	OpSubmit Opcode = 0xF0
	OpEnd    Opcode = 0xFF
)

var opcodeNames = map[Opcode]string{
	OpCreateBuffer: "create_buffer", OpCreateTexture: "create_texture",
	OpCreateSampler: "create_sampler", OpCreateShader: "create_shader",
	OpCreateRenderPipeline: "create_render_pipeline", OpCreateComputePipeline: "create_compute_pipeline",
	OpCreateBindGroup: "create_bind_group", OpBeginRenderPass: "begin_render_pass",
	OpBeginComputePass: "begin_compute_pass", OpSetPipeline: "set_pipeline",
	OpSetBindGroup: "set_bind_group", OpSetVertexBuffer: "set_vertex_buffer",
	OpDraw: "draw", OpDrawIndexed: "draw_indexed", OpEndPass: "end_pass",
	OpDispatch: "dispatch", OpSetIndexBuffer: "set_index_buffer",
	OpWriteBuffer: "write_buffer", OpWriteTimeUniform: "write_time_uniform",
	OpCopyBuffer: "copy_buffer", OpInitWasmModule: "init_wasm_module",
	OpCallWasmFunc: "call_wasm_func", OpSubmit: "submit", OpEnd: "end",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "unknown"
}

// operandWidths is the compile-time table mapping each opcode to its fixed
// operand byte layout, consulted by both the emitter (to pack) and the
// dispatcher (to decode). Adding an opcode means adding one entry here and
// the corresponding Backend method (dispatcher/backend.go).
//
// Width is the field's little-endian byte width: 1, 2 or 4.
type operandField struct {
	Name  string
	Width int
}

var operandWidths = map[Opcode][]operandField{
	OpCreateBuffer:  {{"id", 2}, {"size", 4}, {"usage", 1}},
	OpCreateTexture: {{"id", 2}, {"desc_off", 4}, {"desc_len", 4}},
	OpCreateSampler: {{"id", 2}, {"desc_off", 4}, {"desc_len", 4}},
	OpCreateShader:  {{"id", 2}, {"code_off", 4}, {"code_len", 4}},
	OpCreateRenderPipeline:  {{"id", 2}, {"desc_off", 4}, {"desc_len", 4}},
	OpCreateComputePipeline: {{"id", 2}, {"desc_off", 4}, {"desc_len", 4}},
	OpCreateBindGroup: {{"id", 2}, {"layout", 2}, {"entries_off", 4}, {"entries_len", 4}},

	OpBeginRenderPass:  {{"color_tex", 2}, {"load", 1}, {"store", 1}, {"depth_tex", 2}},
	OpBeginComputePass: {},
	OpSetPipeline:      {{"id", 2}},
	OpSetBindGroup:     {{"slot", 1}, {"id", 2}},
	OpSetVertexBuffer:  {{"slot", 1}, {"id", 2}},
	OpDraw:             {{"vcount", 4}, {"icount", 4}, {"first_v", 4}, {"first_i", 4}},
	OpDrawIndexed:      {{"icount", 4}, {"inst", 4}, {"first", 4}, {"base", 4}, {"first_i", 4}},
	OpEndPass:          {},
	OpDispatch:         {{"x", 4}, {"y", 4}, {"z", 4}},
	OpSetIndexBuffer:   {{"id", 2}, {"format", 1}},

	OpWriteBuffer:      {{"id", 2}, {"offset", 4}, {"data_off", 4}, {"data_len", 4}},
	OpWriteTimeUniform: {{"id", 2}, {"offset", 4}},
	OpCopyBuffer:       {{"src", 2}, {"src_off", 4}, {"dst", 2}, {"dst_off", 4}, {"size", 4}},

	OpInitWasmModule: {{"id", 2}, {"data_off", 4}, {"data_len", 4}},
	OpCallWasmFunc: {
		{"mod", 2}, {"name_off", 4}, {"name_len", 4},
		{"args_off", 4}, {"args_len", 4}, {"out_buf", 2}, {"out_off", 4}, {"out_len", 4},
	},

	OpSubmit: {},
	OpEnd:    {},
}

// OperandNames returns op's operand field names in wire order, for callers
// (the disassembler) that need a deterministic ordering the map returned
// by UnpackOperands cannot provide on its own.
func OperandNames(op Opcode) []string {
	fields := operandWidths[op]
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// OperandLength returns the total operand byte length following op's
// opcode byte, or (0, false) if op is unknown.
func OperandLength(op Opcode) (int, bool) {
	fields, ok := operandWidths[op]
	if !ok {
		return 0, false
	}
	n := 0
	for _, f := range fields {
		n += f.Width
	}
	return n, true
}

// PackOperands writes op's byte followed by its operands packed
// little-endian per operandWidths, reading each named field out of values
// (missing names pack as 0). The emitter and dispatcher share this table so
// the two sides can never drift on field order or width.
func PackOperands(op Opcode, values map[string]uint32) []byte {
	fields, ok := operandWidths[op]
	buf := make([]byte, 0, 1+len(fields)*4)
	buf = append(buf, byte(op))
	if !ok {
		return buf
	}
	for _, f := range fields {
		v := values[f.Name]
		for i := 0; i < f.Width; i++ {
			buf = append(buf, byte(v>>(8*uint(i))))
		}
	}
	return buf
}

// UnpackOperands reads one opcode and its operands starting at buf[0],
// returning the named field values and the total bytes consumed (1 + operand
// width). Each value is zero-extended into a uint32; callers needing a
// signed field (draw_indexed's base) convert with int32(value).
func UnpackOperands(buf []byte) (op Opcode, values map[string]uint32, n int, err error) {
	if len(buf) < 1 {
		return 0, nil, 0, errSectionOutOfBounds(0, "opcode")
	}
	op = Opcode(buf[0])
	fields, ok := operandWidths[op]
	if !ok {
		return op, nil, 0, errForwardReference(0, "opcode", uint16(op))
	}
	values = make(map[string]uint32, len(fields))
	pos := 1
	for _, f := range fields {
		if pos+f.Width > len(buf) {
			return op, nil, 0, errSectionOutOfBounds(pos, "operand")
		}
		values[f.Name] = readUint(buf[pos:pos+f.Width], f.Width)
		pos += f.Width
	}
	return op, values, pos, nil
}
