package analyzer

import "fmt"

// Error is a single analysis error. Offset is a best-effort source byte
// offset recovered from the AST node that triggered the failure.
type Error struct {
	Code   string
	Offset int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (offset %d)", e.Code, e.Msg, e.Offset)
}

// ErrorList aggregates every analysis error collected across both passes.
type ErrorList []*Error

func (l ErrorList) Error() string {
	if len(l) == 1 {
		return l[0].Error()
	}
	return fmt.Sprintf("%d analysis errors, first: %s", len(l), l[0].Error())
}

func errDuplicateDefinition(offset int, kind, name string) *Error {
	return &Error{Code: "E201", Offset: offset, Msg: fmt.Sprintf("duplicate %s definition: %s", kind, name)}
}

func errUndefinedReference(offset int, kind, name string) *Error {
	return &Error{Code: "E202", Offset: offset, Msg: fmt.Sprintf("undefined %s reference: %s", kind, name)}
}

func errTypeMismatch(offset int, msg string) *Error {
	return &Error{Code: "E203", Offset: offset, Msg: "type mismatch: " + msg}
}

func errCyclicImport(offset int, path string) *Error {
	return &Error{Code: "E204", Offset: offset, Msg: "cyclic import: " + path}
}

func errReflectionFailed(offset int, msg string) *Error {
	return &Error{Code: "E205", Offset: offset, Msg: "reflection failed: " + msg}
}

func errInvalidExpression(offset int, msg string) *Error {
	return &Error{Code: "E206", Offset: offset, Msg: "invalid expression: " + msg}
}

func errUnknownPluginFeature(offset int, name string) *Error {
	return &Error{Code: "E207", Offset: offset, Msg: "unknown plugin feature: " + name}
}
