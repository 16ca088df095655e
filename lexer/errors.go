package lexer

import "fmt"

// Error is the error type returned by [Lexer.Next]. It always carries the
// byte offset of the offending character, per spec.md §4.1 and §7.
type Error struct {
	// Code is a stable textual diagnostic code (e.g. "E001").
	Code string
	// Offset is the byte offset into the source where the error occurred.
	Offset int
	// Msg is a human-readable description.
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (offset %d)", e.Code, e.Msg, e.Offset)
}

func errUnterminatedString(offset int) *Error {
	return &Error{Code: "E001", Offset: offset, Msg: "unterminated string literal"}
}

func errInvalidNumber(offset int, reason string) *Error {
	return &Error{Code: "E002", Offset: offset, Msg: "invalid number: " + reason}
}

func errUnknownChar(offset int, c byte) *Error {
	return &Error{Code: "E003", Offset: offset, Msg: fmt.Sprintf("unknown character %q", c)}
}
