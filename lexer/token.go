// Package lexer turns PNGine DSL source text into a flat token stream.
//
// Scanning is single-pass: the classifier dispatches on the first byte of
// each token and never backtracks. Tokens carry only a byte span into the
// original source; callers recover text with [Token.Text].
package lexer

// Kind identifies the lexical class of a [Token].
type Kind uint8

const (
	// EOF marks the end of the token stream.
	EOF Kind = iota

	// Structural punctuation.
	LBrace   // {
	RBrace   // }
	LBracket // [
	RBracket // ]
	Equals   // =
	Hash     // #
	Dot      // .

	// Literal classes.
	String  // "..."
	Integer // 123
	Hex     // 0x7f
	Float   // 1.5
	Boolean // true / false

	// Identifiers and macro keywords.
	Identifier   // bare word, not a reserved macro keyword
	MacroKeyword // word immediately following '#' that matches the fixed keyword set
)

var kindNames = [...]string{
	EOF:          "EOF",
	LBrace:       "LBrace",
	RBrace:       "RBrace",
	LBracket:     "LBracket",
	RBracket:     "RBracket",
	Equals:       "Equals",
	Hash:         "Hash",
	Dot:          "Dot",
	String:       "String",
	Integer:      "Integer",
	Hex:          "Hex",
	Float:        "Float",
	Boolean:      "Boolean",
	Identifier:   "Identifier",
	MacroKeyword: "MacroKeyword",
}

// String returns the human-readable name of a Kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// MacroKeywords is the fixed, closed set of names recognized after '#'.
// Adding a new resource kind to the language touches this table, the
// analyzer's Kind enumeration and macroKind table (analyzer/symtab.go), and
// the emitter's per-kind emission.
var MacroKeywords = map[string]bool{
	"wgsl":             true,
	"buffer":           true,
	"texture":          true,
	"sampler":          true,
	"textureView":      true,
	"bindGroup":        true,
	"bindGroupLayout":  true,
	"pipelineLayout":   true,
	"renderPipeline":   true,
	"computePipeline":  true,
	"renderPass":       true,
	"computePass":      true,
	"renderBundle":     true,
	"frame":            true,
	"data":             true,
	"define":           true,
	"queue":            true,
	"init":             true,
	"querySet":         true,
	"imageBitmap":      true,
	"wasmCall":         true,
	"import":           true,
	"animation":        true,
}

// Token is a single lexical unit: a kind plus a byte span into the source
// that produced it. Token text is recovered lazily via [Token.Text] so that
// identifiers never need to be copied during scanning.
type Token struct {
	Kind       Kind
	Start, End int
}

// Text returns the token's source text, given the original source bytes
// the Lexer was constructed with.
func (t Token) Text(src []byte) string {
	return string(src[t.Start:t.End])
}
