package bytecode

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{
		Version: CurrentVersion, Flags: FlagHasAnimationTable, Plugins: 0x05,
		BytecodeOffset: HeaderSize, BytecodeLength: 10, DataOffset: HeaderSize + 10,
	}
	buf := h.Encode()
	got, err := DecodeHeader(buf[:])
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if got != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestDecodeHeaderBadMagic(t *testing.T) {
	buf := make([]byte, HeaderSize)
	copy(buf, "XXXX")
	if _, err := DecodeHeader(buf); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestDecodeHeaderTruncated(t *testing.T) {
	if _, err := DecodeHeader(make([]byte, 10)); err == nil {
		t.Fatal("expected error for truncated header")
	}
}

func TestDecodeHeaderReservedBits(t *testing.T) {
	h := Header{Version: CurrentVersion, Flags: 1 << 15}
	buf := h.Encode()
	if _, err := DecodeHeader(buf[:]); err == nil {
		t.Fatal("expected error for reserved flag bits set")
	}
}

func TestDescriptorWriterReaderRoundTrip(t *testing.T) {
	w := NewDescriptorWriter(DescriptorTexture)
	w.PutU32(uint8(TextureFieldWidth), 256)
	w.PutU32(uint8(TextureFieldHeight), 128)
	w.PutU8(uint8(TextureFieldFormat), uint8(TextureFormatRGBA8Unorm))
	buf := w.Bytes()

	r, err := NewDescriptorReader(buf)
	if err != nil {
		t.Fatalf("NewDescriptorReader: %v", err)
	}
	if r.Type != DescriptorTexture {
		t.Fatalf("Type = %v, want DescriptorTexture", r.Type)
	}

	tag, payload, ok, err := r.NextFixed(4)
	if err != nil || !ok {
		t.Fatalf("NextFixed(width)= %v %v %v", ok, err, payload)
	}
	if tag != uint8(TextureFieldWidth) || binary.LittleEndian.Uint32(payload) != 256 {
		t.Fatalf("field 1 = tag %d val %d", tag, binary.LittleEndian.Uint32(payload))
	}

	tag, payload, ok, err = r.NextFixed(4)
	if err != nil || !ok || tag != uint8(TextureFieldHeight) || binary.LittleEndian.Uint32(payload) != 128 {
		t.Fatalf("field 2 mismatch: %d %v %v %v", tag, payload, ok, err)
	}

	tag, payload, ok, err = r.NextFixed(1)
	if err != nil || !ok || tag != uint8(TextureFieldFormat) || payload[0] != uint8(TextureFormatRGBA8Unorm) {
		t.Fatalf("field 3 mismatch: %d %v %v %v", tag, payload, ok, err)
	}

	_, _, ok, err = r.NextFixed(1)
	if err != nil || ok {
		t.Fatalf("expected sentinel end, got ok=%v err=%v", ok, err)
	}
}

func TestStringTableInternDedup(t *testing.T) {
	st := NewStringTable()
	a := st.Intern("hello")
	b := st.Intern("world")
	c := st.Intern("hello")
	if a != c {
		t.Fatalf("expected dedup: a=%d c=%d", a, c)
	}
	if a == b {
		t.Fatal("distinct strings must get distinct offsets")
	}
	got, err := StringAt(st.Bytes(), a)
	if err != nil || got != "hello" {
		t.Fatalf("StringAt(a) = %q, %v", got, err)
	}
	got, err = StringAt(st.Bytes(), b)
	if err != nil || got != "world" {
		t.Fatalf("StringAt(b) = %q, %v", got, err)
	}
}

func TestAnimationTableRoundTrip(t *testing.T) {
	scenes := []AnimationScene{
		{ID: 1, StartMillis: 0, EndMillis: 1000, FrameID: 1, EndBehavior: EndBehaviorHold},
		{ID: 2, StartMillis: 1000, EndMillis: 2000, FrameID: 2, EndBehavior: EndBehaviorLoop},
	}
	buf := EncodeAnimationTable(scenes)
	got, err := DecodeAnimationTable(buf)
	if err != nil {
		t.Fatalf("DecodeAnimationTable: %v", err)
	}
	if len(got) != 2 || got[0] != scenes[0] || got[1] != scenes[1] {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
}

// buildMinimalModule returns a valid create_buffer; submit; end stream with
// no data-section references, for use as a validate() happy-path baseline.
func buildMinimalModule() *Module {
	var bc []byte
	bc = append(bc, byte(OpCreateBuffer))
	bc = append(bc, 0x01, 0x00) // id=1
	sz := make([]byte, 4)
	binary.LittleEndian.PutUint32(sz, 64)
	bc = append(bc, sz...)
	bc = append(bc, byte(BufferUsageUniform))
	bc = append(bc, byte(OpSubmit))
	bc = append(bc, byte(OpEnd))
	return &Module{Bytecode: bc}
}

func TestModuleEncodeDecodeRoundTrip(t *testing.T) {
	m := buildMinimalModule()
	m.Data = []byte("data-section-contents")
	payload := m.Encode()

	got, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got.Bytecode, m.Bytecode) {
		t.Fatalf("bytecode mismatch: got %x want %x", got.Bytecode, m.Bytecode)
	}
	if !bytes.Equal(got.Data, m.Data) {
		t.Fatalf("data mismatch: got %q want %q", got.Data, m.Data)
	}
}

func TestValidateForwardReferenceRejected(t *testing.T) {
	var bc []byte
	bc = append(bc, byte(OpSetPipeline), 0x09, 0x00) // references undeclared id=9
	bc = append(bc, byte(OpSubmit), byte(OpEnd))
	m := &Module{Bytecode: bc}
	payload := m.Encode()
	if _, err := Decode(payload); err == nil {
		t.Fatal("expected forward-reference error")
	}
}

func TestValidateMissingEndRejected(t *testing.T) {
	m := &Module{Bytecode: []byte{byte(OpSubmit)}}
	payload := m.Encode()
	if _, err := Decode(payload); err == nil {
		t.Fatal("expected missing-end error")
	}
}

func TestValidateDataOffsetOutOfBounds(t *testing.T) {
	var bc []byte
	bc = append(bc, byte(OpCreateShader), 0x01, 0x00)
	off := make([]byte, 4)
	binary.LittleEndian.PutUint32(off, 1000) // far beyond data section
	bc = append(bc, off...)
	ln := make([]byte, 4)
	binary.LittleEndian.PutUint32(ln, 10)
	bc = append(bc, ln...)
	bc = append(bc, byte(OpSubmit), byte(OpEnd))
	m := &Module{Bytecode: bc, Data: []byte("short")}
	payload := m.Encode()
	if _, err := Decode(payload); err == nil {
		t.Fatal("expected data offset out-of-bounds error")
	}
}

func TestValidateBindGroupDeclaredThenReferenced(t *testing.T) {
	var bc []byte
	bc = append(bc, byte(OpCreateBindGroup))
	bc = append(bc, 0x01, 0x00) // id=1
	bc = append(bc, 0x00, 0x00) // layout=0
	bc = append(bc, 0x00, 0x00, 0x00, 0x00) // entries_off=0
	bc = append(bc, 0x00, 0x00, 0x00, 0x00) // entries_len=0
	bc = append(bc, byte(OpSetBindGroup))
	bc = append(bc, 0x00, 0x01, 0x00) // slot=0, id=1
	bc = append(bc, byte(OpSubmit), byte(OpEnd))
	m := &Module{Bytecode: bc}
	payload := m.Encode()
	if _, err := Decode(payload); err != nil {
		t.Fatalf("expected declared-then-referenced bind group to validate, got %v", err)
	}
}

func TestDisassemble(t *testing.T) {
	var bc []byte
	bc = append(bc, PackOperands(OpCreateBuffer, map[string]uint32{"id": 1, "size": 64, "usage": uint32(BufferUsageUniform)})...)
	bc = append(bc, PackOperands(OpSubmit, nil)...)
	bc = append(bc, PackOperands(OpEnd, nil)...)
	m := &Module{Bytecode: bc}

	out, err := Disassemble(m)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	wantLines := []string{
		"0000  create_buffer id=1 size=64 usage=4",
		"0008  submit",
		"0009  end",
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want) {
			t.Fatalf("disassembly = %q, missing line %q", out, want)
		}
	}
}
