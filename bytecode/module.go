package bytecode

import "encoding/binary"

// AnimationScene is one entry of the animation scene table appended to a
// module when FlagHasAnimationTable is set (spec.md §4.4). The table's
// byte layout is internal to this package (the emitter writes it, the
// dispatcher reads it); nothing outside the toolchain depends on it.
type AnimationScene struct {
	ID          uint16
	StartMillis uint32
	EndMillis   uint32
	FrameID     uint16
	EndBehavior EndBehavior
}

const animationSceneSize = 2 + 4 + 4 + 2 + 1

// EncodeAnimationTable packs scenes (already sorted by StartMillis, per
// spec.md §4.6's binary-search precondition) into a self-contained blob:
// a u32 count followed by fixed-size scene records.
func EncodeAnimationTable(scenes []AnimationScene) []byte {
	buf := make([]byte, 4+len(scenes)*animationSceneSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(scenes)))
	off := 4
	for _, s := range scenes {
		binary.LittleEndian.PutUint16(buf[off:off+2], s.ID)
		binary.LittleEndian.PutUint32(buf[off+2:off+6], s.StartMillis)
		binary.LittleEndian.PutUint32(buf[off+6:off+10], s.EndMillis)
		binary.LittleEndian.PutUint16(buf[off+10:off+12], s.FrameID)
		buf[off+12] = byte(s.EndBehavior)
		off += animationSceneSize
	}
	return buf
}

// DecodeAnimationTable reverses EncodeAnimationTable.
func DecodeAnimationTable(buf []byte) ([]AnimationScene, error) {
	if len(buf) < 4 {
		return nil, errSectionOutOfBounds(0, "animation table")
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	scenes := make([]AnimationScene, 0, count)
	off := 4
	for i := uint32(0); i < count; i++ {
		if off+animationSceneSize > len(buf) {
			return nil, errSectionOutOfBounds(off, "animation table")
		}
		scenes = append(scenes, AnimationScene{
			ID:          binary.LittleEndian.Uint16(buf[off : off+2]),
			StartMillis: binary.LittleEndian.Uint32(buf[off+2 : off+6]),
			EndMillis:   binary.LittleEndian.Uint32(buf[off+6 : off+10]),
			FrameID:     binary.LittleEndian.Uint16(buf[off+10 : off+12]),
			EndBehavior: EndBehavior(buf[off+12]),
		})
		off += animationSceneSize
	}
	return scenes, nil
}

// FrameTableEntry records where one #frame's opcode sub-sequence begins in
// the bytecode stream, so the dispatcher can jump pc there when an
// animation scene selects that frame.
type FrameTableEntry struct {
	FrameID  uint16
	PCOffset uint32
	Length   uint32
}

const frameTableEntrySize = 2 + 4 + 4

// EncodeFrameTable packs entries into a u32 count followed by fixed-size
// records, the same shape EncodeAnimationTable uses.
func EncodeFrameTable(entries []FrameTableEntry) []byte {
	buf := make([]byte, 4+len(entries)*frameTableEntrySize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(entries)))
	off := 4
	for _, e := range entries {
		binary.LittleEndian.PutUint16(buf[off:off+2], e.FrameID)
		binary.LittleEndian.PutUint32(buf[off+2:off+6], e.PCOffset)
		binary.LittleEndian.PutUint32(buf[off+6:off+10], e.Length)
		off += frameTableEntrySize
	}
	return buf
}

// DecodeFrameTable reverses EncodeFrameTable.
func DecodeFrameTable(buf []byte) ([]FrameTableEntry, error) {
	if len(buf) < 4 {
		return nil, errSectionOutOfBounds(0, "frame table")
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	entries := make([]FrameTableEntry, 0, count)
	off := 4
	for i := uint32(0); i < count; i++ {
		if off+frameTableEntrySize > len(buf) {
			return nil, errSectionOutOfBounds(off, "frame table")
		}
		entries = append(entries, FrameTableEntry{
			FrameID:  binary.LittleEndian.Uint16(buf[off : off+2]),
			PCOffset: binary.LittleEndian.Uint32(buf[off+2 : off+6]),
			Length:   binary.LittleEndian.Uint32(buf[off+6 : off+10]),
		})
		off += frameTableEntrySize
	}
	return entries, nil
}

// StringTable is an append-only builder for the null-terminated-UTF-8
// string pool addressed by byte offset from the data section's start.
type StringTable struct {
	buf     []byte
	offsets map[string]uint32
}

func NewStringTable() *StringTable {
	return &StringTable{offsets: make(map[string]uint32)}
}

// Intern appends s (if not already present) and returns its byte offset.
// Equal strings share one offset, keeping the table deduplicated.
func (t *StringTable) Intern(s string) uint32 {
	if off, ok := t.offsets[s]; ok {
		return off
	}
	off := uint32(len(t.buf))
	t.buf = append(t.buf, []byte(s)...)
	t.buf = append(t.buf, 0)
	t.offsets[s] = off
	return off
}

// Bytes returns the concatenated, null-terminated string pool.
func (t *StringTable) Bytes() []byte { return t.buf }

// StringAt reads a null-terminated string starting at off within buf.
func StringAt(buf []byte, off uint32) (string, error) {
	if int(off) > len(buf) {
		return "", errOffsetOutOfBounds(int(off), "string")
	}
	end := int(off)
	for end < len(buf) && buf[end] != 0 {
		end++
	}
	if end >= len(buf) {
		return "", errOffsetOutOfBounds(int(off), "string (unterminated)")
	}
	return string(buf[off:end]), nil
}

// Module is the immutable, in-memory representation of a compiled
// payload: header fields plus the three sections spec.md §6.1 defines.
// Sections are modeled as plain byte slices — encoding/decoding them to
// and from a single contiguous payload happens in Encode/Decode below.
type Module struct {
	Flags    uint16
	Plugins  uint8
	Executor []byte // optional tailored runtime, nil if absent
	Bytecode []byte // opcode stream
	Data     []byte // string table + WGSL + descriptors + vertex data + WASM modules
}

// Encode serializes m into a single contiguous payload per spec.md §6.1's
// section order: executor (if present), bytecode, data.
func (m *Module) Encode() []byte {
	flags := m.Flags
	if len(m.Executor) > 0 {
		flags |= FlagHasEmbeddedExecutor
	}

	var executorOffset, executorLength uint32
	cursor := uint32(HeaderSize)
	if len(m.Executor) > 0 {
		executorOffset = cursor
		executorLength = uint32(len(m.Executor))
		cursor += executorLength
	}
	bytecodeOffset := cursor
	bytecodeLength := uint32(len(m.Bytecode))
	cursor += bytecodeLength
	dataOffset := cursor

	h := Header{
		Version: CurrentVersion, Flags: flags, Plugins: m.Plugins,
		ExecutorOffset: executorOffset, ExecutorLength: executorLength,
		BytecodeOffset: bytecodeOffset, BytecodeLength: bytecodeLength,
		DataOffset: dataOffset,
	}
	headerBytes := h.Encode()

	out := make([]byte, 0, int(dataOffset)+len(m.Data))
	out = append(out, headerBytes[:]...)
	out = append(out, m.Executor...)
	out = append(out, m.Bytecode...)
	out = append(out, m.Data...)
	return out
}

// readTrailingBlob reads a length-prefixed-from-the-end blob: the 4
// little-endian bytes ending at end give the blob's length, and the blob
// itself is the length bytes immediately before that. Returns the blob
// slice and the offset where it (plus its trailer) begins, i.e. the new
// "end" a caller can chain another readTrailingBlob call from.
func readTrailingBlob(data []byte, end int) (blob []byte, newEnd int, err error) {
	if end < 4 {
		return nil, 0, errSectionOutOfBounds(end, "trailer")
	}
	trailer := data[end-4 : end]
	length := int(trailer[0]) | int(trailer[1])<<8 | int(trailer[2])<<16 | int(trailer[3])<<24
	start := end - 4 - length
	if start < 0 {
		return nil, 0, errSectionOutOfBounds(start, "trailer blob")
	}
	return data[start : end-4], start, nil
}

// FrameTable extracts the frame offset table the emitter always appends as
// the final blob in the data section (see emitter/frame.go), letting the
// dispatcher find where each #frame's opcode sub-sequence begins.
func (m *Module) FrameTable() ([]FrameTableEntry, error) {
	blob, _, err := readTrailingBlob(m.Data, len(m.Data))
	if err != nil {
		return nil, err
	}
	return DecodeFrameTable(blob)
}

// AnimationTable extracts the animation scene table from m.Data when
// FlagHasAnimationTable is set. It is written immediately before the frame
// table, using the same trailing-length convention, so it is located by
// first skipping past the frame table's own trailer.
func (m *Module) AnimationTable() ([]AnimationScene, error) {
	if m.Flags&FlagHasAnimationTable == 0 {
		return nil, nil
	}
	_, frameTableStart, err := readTrailingBlob(m.Data, len(m.Data))
	if err != nil {
		return nil, err
	}
	blob, _, err := readTrailingBlob(m.Data, frameTableStart)
	if err != nil {
		return nil, err
	}
	return DecodeAnimationTable(blob)
}

// Decode parses buf into a Module and runs validate (spec.md §4.5) before
// returning it.
func Decode(buf []byte) (*Module, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return nil, err
	}
	m := &Module{Flags: h.Flags, Plugins: h.Plugins}

	if h.Flags&FlagHasEmbeddedExecutor != 0 {
		end := int(h.ExecutorOffset) + int(h.ExecutorLength)
		if end > len(buf) || int(h.ExecutorOffset) < HeaderSize {
			return nil, errSectionOutOfBounds(int(h.ExecutorOffset), "executor")
		}
		m.Executor = buf[h.ExecutorOffset:end]
	}

	bcEnd := int(h.BytecodeOffset) + int(h.BytecodeLength)
	if bcEnd > len(buf) || int(h.BytecodeOffset) < HeaderSize {
		return nil, errSectionOutOfBounds(int(h.BytecodeOffset), "bytecode")
	}
	m.Bytecode = buf[h.BytecodeOffset:bcEnd]

	if int(h.DataOffset) > len(buf) || int(h.DataOffset) < bcEnd {
		return nil, errSectionOutOfBounds(int(h.DataOffset), "data")
	}
	m.Data = buf[h.DataOffset:]

	if err := validate(m, h); err != nil {
		return nil, err
	}
	return m, nil
}
