// Package bytecode defines PNGine's binary bytecode container: the
// 32-byte header, string table, data section, and opcode stream spec.md
// §6.1 specifies byte-exact, plus the load-time validator (§4.5) that
// guards the dispatcher against malformed payloads.
package bytecode

import "encoding/binary"

// Magic is the fixed 4-byte payload signature.
var Magic = [4]byte{'P', 'N', 'G', 'B'}

// CurrentVersion is the only wire version this package emits and accepts.
const CurrentVersion uint16 = 0

// HeaderSize is the fixed byte length of the header.
const HeaderSize = 32

// Flag bits, §6.1.
const (
	FlagHasEmbeddedExecutor uint16 = 1 << 0
	FlagHasAnimationTable   uint16 = 1 << 1
)

// Special resource ids, §6.1.
const (
	SurfaceTextureID uint16 = 0xFFFE
	NoDepthTextureID uint16 = 0xFFFF
)

// Header is the fixed 32-byte payload preamble.
type Header struct {
	Version        uint16
	Flags          uint16
	Plugins        uint8
	ExecutorOffset uint32
	ExecutorLength uint32
	BytecodeOffset uint32
	BytecodeLength uint32
	DataOffset     uint32
}

// Encode writes h as the 32-byte little-endian header.
func (h Header) Encode() [HeaderSize]byte {
	var buf [HeaderSize]byte
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.Flags)
	buf[8] = h.Plugins
	// buf[9:12] reserved, left zero.
	binary.LittleEndian.PutUint32(buf[12:16], h.ExecutorOffset)
	binary.LittleEndian.PutUint32(buf[16:20], h.ExecutorLength)
	binary.LittleEndian.PutUint32(buf[20:24], h.BytecodeOffset)
	binary.LittleEndian.PutUint32(buf[24:28], h.BytecodeLength)
	binary.LittleEndian.PutUint32(buf[28:32], h.DataOffset)
	return buf
}

// DecodeHeader parses the first 32 bytes of buf. It checks magic/version
// and reserved-must-be-zero bytes but does not validate offsets against
// the payload length; Decode runs validate for that.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, errTruncatedHeader(len(buf))
	}
	if buf[0] != Magic[0] || buf[1] != Magic[1] || buf[2] != Magic[2] || buf[3] != Magic[3] {
		return Header{}, errBadMagic(buf[0:4])
	}
	version := binary.LittleEndian.Uint16(buf[4:6])
	if version != CurrentVersion {
		return Header{}, errUnsupportedVersion(version)
	}
	flags := binary.LittleEndian.Uint16(buf[6:8])
	if flags&^(FlagHasEmbeddedExecutor|FlagHasAnimationTable) != 0 {
		return Header{}, errReservedBitsSet()
	}
	for _, b := range buf[9:12] {
		if b != 0 {
			return Header{}, errReservedBitsSet()
		}
	}
	return Header{
		Version:        version,
		Flags:          flags,
		Plugins:        buf[8],
		ExecutorOffset: binary.LittleEndian.Uint32(buf[12:16]),
		ExecutorLength: binary.LittleEndian.Uint32(buf[16:20]),
		BytecodeOffset: binary.LittleEndian.Uint32(buf[20:24]),
		BytecodeLength: binary.LittleEndian.Uint32(buf[24:28]),
		DataOffset:     binary.LittleEndian.Uint32(buf[28:32]),
	}, nil
}
