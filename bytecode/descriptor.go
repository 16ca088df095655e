package bytecode

import "encoding/binary"

// DescriptorType tags a variable-length descriptor record in the data
// section, per spec.md §6.1.
type DescriptorType uint8

const (
	DescriptorTexture          DescriptorType = 0x01
	DescriptorSampler          DescriptorType = 0x02
	DescriptorBindGroup        DescriptorType = 0x03
	DescriptorBindGroupLayout  DescriptorType = 0x04
	DescriptorRenderPipeline   DescriptorType = 0x05
	DescriptorComputePipeline  DescriptorType = 0x06
	DescriptorRenderPass       DescriptorType = 0x07
	DescriptorPipelineLayout   DescriptorType = 0x08
)

// fieldSentinel terminates a descriptor's field list.
const fieldSentinel uint8 = 0xFF

// TextureField tags a field within a DescriptorTexture record.
type TextureField uint8

const (
	TextureFieldWidth         TextureField = 0x01
	TextureFieldHeight        TextureField = 0x02
	TextureFieldDepth         TextureField = 0x03
	TextureFieldFormat        TextureField = 0x04
	TextureFieldUsage         TextureField = 0x05
	TextureFieldDimension     TextureField = 0x06
	TextureFieldMipLevelCount TextureField = 0x07
	TextureFieldSampleCount   TextureField = 0x08
	TextureFieldViewFormats   TextureField = 0x09
)

// SamplerField tags a field within a DescriptorSampler record. Not named
// explicitly in the payload's byte-exact tables (only TextureField is), so
// these tags are chosen locally by this package and shared by both emitter
// and dispatcher through these constants, matching the "statically share the
// tag/field enumerations" design note.
type SamplerField uint8

const (
	SamplerFieldMagFilter    SamplerField = 0x01
	SamplerFieldMinFilter    SamplerField = 0x02
	SamplerFieldMipmapFilter SamplerField = 0x03
	SamplerFieldAddressModeU SamplerField = 0x04
	SamplerFieldAddressModeV SamplerField = 0x05
	SamplerFieldAddressModeW SamplerField = 0x06
	SamplerFieldCompare      SamplerField = 0x07
)

// RenderPipelineField tags a field within a DescriptorRenderPipeline record.
type RenderPipelineField uint8

const (
	RenderPipelineFieldVertexShader   RenderPipelineField = 0x01
	RenderPipelineFieldFragmentShader RenderPipelineField = 0x02
	RenderPipelineFieldLayout         RenderPipelineField = 0x03
	RenderPipelineFieldTopology       RenderPipelineField = 0x04
	RenderPipelineFieldCullMode       RenderPipelineField = 0x05
	RenderPipelineFieldFrontFace      RenderPipelineField = 0x06
	RenderPipelineFieldColorFormat    RenderPipelineField = 0x07
	RenderPipelineFieldDepthFormat    RenderPipelineField = 0x08
	RenderPipelineFieldVertexEntry    RenderPipelineField = 0x09
	RenderPipelineFieldFragmentEntry  RenderPipelineField = 0x0A
)

// ComputePipelineField tags a field within a DescriptorComputePipeline
// record.
type ComputePipelineField uint8

const (
	ComputePipelineFieldShader ComputePipelineField = 0x01
	ComputePipelineFieldLayout ComputePipelineField = 0x02
	ComputePipelineFieldEntry  ComputePipelineField = 0x03
)

// Entries in a bind_group's entries blob (the entries_off/entries_len data
// referenced from create_bind_group, distinct from the bind_group
// DescriptorType record used for bind_group_layout descriptions) are a flat
// repeated sequence (not individually length-prefixed): binding:u32,
// resource_kind:u8, resource_id:u16, repeated entry_count times, where
// entry_count is entries_len / bindGroupEntrySize.
const bindGroupEntrySize = 4 + 1 + 2

// BindGroupResourceKind distinguishes what kind of resource a bind group
// entry's resource_id refers to.
type BindGroupResourceKind uint8

const (
	BindGroupResourceBuffer BindGroupResourceKind = iota
	BindGroupResourceTexture
	BindGroupResourceSampler
	BindGroupResourceTextureView
)

// BindGroupEntry is one decoded entry of a bind group's entries blob.
type BindGroupEntry struct {
	Binding      uint32
	ResourceKind BindGroupResourceKind
	ResourceID   uint16
}

// EncodeBindGroupEntries packs entries into the flat repeated-record blob
// create_bind_group's entries_off/entries_len operands address.
func EncodeBindGroupEntries(entries []BindGroupEntry) []byte {
	buf := make([]byte, 0, len(entries)*bindGroupEntrySize)
	for _, e := range entries {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], e.Binding)
		buf = append(buf, b[:]...)
		buf = append(buf, byte(e.ResourceKind))
		var idb [2]byte
		binary.LittleEndian.PutUint16(idb[:], e.ResourceID)
		buf = append(buf, idb[:]...)
	}
	return buf
}

// DecodeBindGroupEntries reverses EncodeBindGroupEntries.
func DecodeBindGroupEntries(buf []byte) ([]BindGroupEntry, error) {
	if len(buf)%bindGroupEntrySize != 0 {
		return nil, errSectionOutOfBounds(len(buf), "bind group entries")
	}
	n := len(buf) / bindGroupEntrySize
	out := make([]BindGroupEntry, n)
	for i := 0; i < n; i++ {
		off := i * bindGroupEntrySize
		out[i] = BindGroupEntry{
			Binding:      binary.LittleEndian.Uint32(buf[off : off+4]),
			ResourceKind: BindGroupResourceKind(buf[off+4]),
			ResourceID:   binary.LittleEndian.Uint16(buf[off+5 : off+7]),
		}
	}
	return out, nil
}

// DescriptorWriter builds a tagged field-list descriptor record using the
// `(field_tag:u8, payload)` shape spec.md §6.1 fixes. Every Put* call
// appends one field; Bytes terminates the record with the sentinel.
type DescriptorWriter struct {
	buf []byte
}

// NewDescriptorWriter starts a new descriptor record with the given type
// tag.
func NewDescriptorWriter(typ DescriptorType) *DescriptorWriter {
	return &DescriptorWriter{buf: []byte{byte(typ)}}
}

func (w *DescriptorWriter) PutU8(tag uint8, v uint8) *DescriptorWriter {
	w.buf = append(w.buf, tag, v)
	return w
}

func (w *DescriptorWriter) PutU32(tag uint8, v uint32) *DescriptorWriter {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, tag)
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *DescriptorWriter) PutU16(tag uint8, v uint16) *DescriptorWriter {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, tag)
	w.buf = append(w.buf, b[:]...)
	return w
}

// PutBytes appends a length-prefixed (u32 length) byte payload field, used
// for variable-length fields such as view_formats lists.
func (w *DescriptorWriter) PutBytes(tag uint8, v []byte) *DescriptorWriter {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(v)))
	w.buf = append(w.buf, tag)
	w.buf = append(w.buf, lenBuf[:]...)
	w.buf = append(w.buf, v...)
	return w
}

// Bytes terminates the record and returns its bytes.
func (w *DescriptorWriter) Bytes() []byte {
	return append(w.buf, fieldSentinel)
}

// DescriptorReader walks a descriptor record field by field.
type DescriptorReader struct {
	Type DescriptorType
	buf  []byte
	pos  int
}

// NewDescriptorReader parses the leading type tag of buf and positions the
// reader at the first field.
func NewDescriptorReader(buf []byte) (*DescriptorReader, error) {
	if len(buf) < 1 {
		return nil, errSectionOutOfBounds(0, "descriptor")
	}
	return &DescriptorReader{Type: DescriptorType(buf[0]), buf: buf, pos: 1}, nil
}

// NextFixed returns the next field's tag and its width-byte raw payload
// slice (caller decodes per the field's known width), or ok=false once the sentinel is
// reached.
func (r *DescriptorReader) NextFixed(width int) (tag uint8, payload []byte, ok bool, err error) {
	if r.pos >= len(r.buf) {
		return 0, nil, false, errSectionOutOfBounds(r.pos, "descriptor")
	}
	tag = r.buf[r.pos]
	if tag == fieldSentinel {
		return 0, nil, false, nil
	}
	r.pos++
	if r.pos+width > len(r.buf) {
		return 0, nil, false, errSectionOutOfBounds(r.pos, "descriptor field")
	}
	payload = r.buf[r.pos : r.pos+width]
	r.pos += width
	return tag, payload, true, nil
}
