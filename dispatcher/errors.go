package dispatcher

import "fmt"

// Error is a dispatch-time failure, carrying the program counter the
// offending opcode started at.
type Error struct {
	Code string
	PC   uint32
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s at pc=%d: %s", e.Code, e.PC, e.Msg) }

func errInvalidPassState(pc uint32, msg string) *Error {
	return &Error{Code: "D301", PC: pc, Msg: "invalid pass state: " + msg}
}

func errUnknownResource(pc uint32, kind string, id uint16) *Error {
	return &Error{Code: "D302", PC: pc, Msg: fmt.Sprintf("unknown %s id %d", kind, id)}
}

func errOpcodeLimitExceeded(pc uint32) *Error {
	return &Error{Code: "D303", PC: pc, Msg: "opcode execution limit exceeded"}
}

func errUnknownOpcode(pc uint32, op byte) *Error {
	return &Error{Code: "D304", PC: pc, Msg: fmt.Sprintf("unknown opcode 0x%02x", op)}
}

func errBackend(pc uint32, op string, cause error) *Error {
	return &Error{Code: "D305", PC: pc, Msg: fmt.Sprintf("%s: %v", op, cause)}
}
