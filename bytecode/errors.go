package bytecode

import "fmt"

// Error is a bytecode-container-level error, carrying a byte offset into
// the payload where relevant (0 when not applicable, e.g. header-level
// failures detected before any offset is meaningful).
type Error struct {
	Code   string
	Offset int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (offset %d)", e.Code, e.Msg, e.Offset)
}

func errTruncatedHeader(n int) *Error {
	return &Error{Code: "E301", Msg: fmt.Sprintf("payload too short for header: %d bytes", n)}
}

func errBadMagic(got []byte) *Error {
	return &Error{Code: "E302", Msg: fmt.Sprintf("bad magic %q, want \"PNGB\"", got)}
}

func errUnsupportedVersion(v uint16) *Error {
	return &Error{Code: "E303", Msg: fmt.Sprintf("unsupported version %d", v)}
}

func errReservedBitsSet() *Error {
	return &Error{Code: "E304", Msg: "reserved header bits are non-zero"}
}

func errSectionOutOfBounds(offset int, section string) *Error {
	return &Error{Code: "E305", Offset: offset, Msg: fmt.Sprintf("%s section out of bounds", section)}
}

func errSectionOverlap(offset int, a, b string) *Error {
	return &Error{Code: "E306", Offset: offset, Msg: fmt.Sprintf("%s and %s sections overlap", a, b)}
}

func errOffsetOutOfBounds(offset int, field string) *Error {
	return &Error{Code: "E307", Offset: offset, Msg: fmt.Sprintf("%s offset out of data section bounds", field)}
}

func errForwardReference(offset int, kind string, id uint16) *Error {
	return &Error{Code: "E308", Offset: offset, Msg: fmt.Sprintf("forward reference to undeclared %s id %d", kind, id)}
}

func errMissingEnd(offset int) *Error {
	return &Error{Code: "E309", Offset: offset, Msg: "bytecode stream does not end with exactly one 'end' opcode"}
}

// BytecodeTooLarge reports that the emitter's opcode stream exceeded the
// 1 MiB inclusive cap spec.md §4.4 fixes so the dispatcher's program
// counter can stay a uint32.
func BytecodeTooLarge(size int) *Error {
	return &Error{Code: "E310", Msg: fmt.Sprintf("opcode stream is %d bytes, exceeds 1 MiB cap", size)}
}
