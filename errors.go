package pngine

import "fmt"

// Diagnostics aggregates every error a single Compile call produced,
// grouped by the pipeline stage that produced them (spec.md §4.2's
// "recovers to the next property separator for multi-error reporting"
// generalized across the whole lex/parse/analyze/emit pipeline).
type Diagnostics struct {
	Stage  string
	Errors []error
}

func (d Diagnostics) Error() string {
	if len(d.Errors) == 0 {
		return "no diagnostics"
	}
	if len(d.Errors) == 1 {
		return fmt.Sprintf("%s: %s", d.Stage, d.Errors[0])
	}
	return fmt.Sprintf("%s: %d errors, first: %s", d.Stage, len(d.Errors), d.Errors[0])
}

// Empty reports whether d carries no errors.
func (d Diagnostics) Empty() bool {
	return len(d.Errors) == 0
}

// ImportCycleError reports a #import cycle detected while merging source
// files, a dedicated typed error per the teacher's
// surface/registry.go-style named-error idiom rather than a plain
// fmt.Errorf string.
type ImportCycleError struct {
	Path string
}

func (e *ImportCycleError) Error() string {
	return fmt.Sprintf("import cycle detected at %q", e.Path)
}
