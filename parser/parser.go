// Package parser turns a [lexer.Token] stream into a flat-arena [Ast]
// rooted at a list of top-level macro declarations.
//
// The parser tracks nesting depth explicitly and fails with a
// nesting-too-deep error (E102) once MaxParseDepth is exceeded (spec.md §4.2's "bounded
// evaluation"). Go's growable goroutine stack makes unbounded native
// recursion far less dangerous here than in the source implementation's
// host environment, so descent into nested objects/arrays/values is
// implemented as ordinary (but depth-counted) mutual recursion rather than
// a hand-rolled frame stack: the externally observable contract — a hard,
// tested cap at MaxParseDepth — is identical either way, see DESIGN.md.
package parser

import (
	"strings"

	"github.com/pngine/pngine/lexer"
)

// DefaultMaxParseDepth bounds container nesting when the caller does not
// specify one.
const DefaultMaxParseDepth = 64

// Parser consumes a lexer.Lexer and produces an Ast.
type Parser struct {
	lex      *lexer.Lexer
	src      []byte
	maxDepth int
	cur      lexer.Token
	ast      *Ast
	errs     ErrorList
}

// New creates a Parser over src. maxDepth <= 0 uses DefaultMaxParseDepth.
func New(src []byte, maxDepth int) *Parser {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxParseDepth
	}
	return &Parser{lex: lexer.New(src), src: src, maxDepth: maxDepth}
}

// ParseRoot lexes and parses src in one call, returning the Ast built so
// far (possibly partial) together with any errors encountered.
func ParseRoot(src []byte, maxDepth int) (*Ast, ErrorList) {
	p := New(src, maxDepth)
	return p.parseRoot()
}

func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *Parser) parseRoot() (*Ast, ErrorList) {
	p.ast = &Ast{Src: p.src}
	// Reserve index 0 as a dummy node so NodeID zero value never aliases
	// a real node produced below.
	p.ast.addNode(Node{})

	if err := p.advance(); err != nil {
		p.errs = append(p.errs, toParseErr(err))
		return p.ast, p.errs
	}

	for p.cur.Kind != lexer.EOF {
		if p.cur.Kind != lexer.Hash {
			p.errs = append(p.errs, errUnexpectedToken(p.cur.Start, "expected '#' to start a declaration"))
			if err := p.advance(); err != nil {
				p.errs = append(p.errs, toParseErr(err))
				break
			}
			continue
		}

		id, err := p.parseDeclaration()
		if err != nil {
			p.errs = append(p.errs, toParseErr(err))
			if !p.recoverToNextHash() {
				break
			}
			continue
		}
		p.ast.Roots = append(p.ast.Roots, id)
	}
	return p.ast, p.errs
}

// parseDeclaration parses one `#<macro> ...` top-level form. p.cur is the
// '#' token on entry.
func (p *Parser) parseDeclaration() (NodeID, error) {
	hashStart := p.cur.Start
	if err := p.advance(); err != nil {
		return 0, err
	}
	if p.cur.Kind != lexer.MacroKeyword {
		return 0, errUnexpectedToken(p.cur.Start, "expected macro keyword after '#'")
	}
	kw := p.cur.Text(p.src)
	if err := p.advance(); err != nil {
		return 0, err
	}

	switch kw {
	case "define":
		return p.parseDefine(hashStart)
	case "import":
		return p.parseImport(hashStart)
	default:
		return p.parseMacro(hashStart, kw)
	}
}

func (p *Parser) parseDefine(start int) (NodeID, error) {
	if p.cur.Kind != lexer.Identifier {
		return 0, errUnexpectedToken(p.cur.Start, "expected identifier after #define")
	}
	name := p.cur.Text(p.src)
	if err := p.advance(); err != nil {
		return 0, err
	}
	if p.cur.Kind != lexer.Equals {
		return 0, errUnexpectedToken(p.cur.Start, "expected '=' in #define")
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	valID, err := p.parseValue(0)
	if err != nil {
		return 0, err
	}
	end := p.ast.Nodes[valID].End
	propID := p.ast.addNode(Node{Kind: NodeProperty, Text: name, Start: start, End: end})
	cs, cc := p.ast.addChildren([]NodeID{valID})
	p.ast.Nodes[propID].ChildStart, p.ast.Nodes[propID].ChildCount = cs, cc

	macroID := p.ast.addNode(Node{Kind: NodeMacro, Text: "define", Start: start, End: end})
	cs2, cc2 := p.ast.addChildren([]NodeID{propID})
	p.ast.Nodes[macroID].ChildStart, p.ast.Nodes[macroID].ChildCount = cs2, cc2
	return macroID, nil
}

func (p *Parser) parseImport(start int) (NodeID, error) {
	if p.cur.Kind != lexer.String {
		return 0, errUnexpectedToken(p.cur.Start, "expected string path after #import")
	}
	valID, err := p.parseValue(0)
	if err != nil {
		return 0, err
	}
	end := p.ast.Nodes[valID].End
	macroID := p.ast.addNode(Node{Kind: NodeMacro, Text: "import", Start: start, End: end})
	cs, cc := p.ast.addChildren([]NodeID{valID})
	p.ast.Nodes[macroID].ChildStart, p.ast.Nodes[macroID].ChildCount = cs, cc
	return macroID, nil
}

func (p *Parser) parseMacro(start int, kw string) (NodeID, error) {
	name := ""
	if p.cur.Kind == lexer.Identifier {
		name = p.cur.Text(p.src)
		if err := p.advance(); err != nil {
			return 0, err
		}
	}
	if p.cur.Kind != lexer.LBrace {
		return 0, errUnexpectedToken(p.cur.Start, "expected '{' to start "+kw+" body")
	}
	children, end, err := p.parseBraceBody(1)
	if err != nil {
		return 0, err
	}
	macroID := p.ast.addNode(Node{Kind: NodeMacro, Text: kw, Name: name, Start: start, End: end})
	cs, cc := p.ast.addChildren(children)
	p.ast.Nodes[macroID].ChildStart, p.ast.Nodes[macroID].ChildCount = cs, cc
	return macroID, nil
}

// parseBraceBody parses the contents of a `{ ... }` body: zero or more
// `key=value` properties, or (shorthand) a single bare value with no key.
// p.cur is the '{' token on entry; on success p.cur is the token after the
// matching '}'.
func (p *Parser) parseBraceBody(depth int) ([]NodeID, int, error) {
	if depth > p.maxDepth {
		return nil, 0, errNestingTooDeep(p.cur.Start)
	}
	if err := p.advance(); err != nil { // consume '{'
		return nil, 0, err
	}
	var children []NodeID
	for {
		switch {
		case p.cur.Kind == lexer.RBrace:
			end := p.cur.End
			if err := p.advance(); err != nil {
				return nil, 0, err
			}
			return children, end, nil
		case p.cur.Kind == lexer.EOF:
			return nil, 0, errUnterminatedMacro(p.cur.Start)
		case p.cur.Kind == lexer.Identifier:
			propID, err := p.parseProperty(depth)
			if err != nil {
				p.errs = append(p.errs, toParseErr(err))
				if !p.recoverToPropertyBoundary() {
					return nil, 0, errMalformedObject(p.cur.Start, "unrecoverable error in body")
				}
				continue
			}
			children = append(children, propID)
		case len(children) == 0:
			// Shorthand body: a single bare value, no key=.
			valID, err := p.parseValue(depth)
			if err != nil {
				return nil, 0, err
			}
			v := p.ast.Nodes[valID]
			propID := p.ast.addNode(Node{Kind: NodeProperty, Text: "", Start: v.Start, End: v.End})
			cs, cc := p.ast.addChildren([]NodeID{valID})
			p.ast.Nodes[propID].ChildStart, p.ast.Nodes[propID].ChildCount = cs, cc
			children = append(children, propID)
		default:
			return nil, 0, errMalformedObject(p.cur.Start, "expected identifier key")
		}
	}
}

func (p *Parser) parseProperty(depth int) (NodeID, error) {
	start := p.cur.Start
	key := p.cur.Text(p.src)
	if err := p.advance(); err != nil { // consume key
		return 0, err
	}
	if p.cur.Kind != lexer.Equals {
		return 0, errUnexpectedToken(p.cur.Start, "expected '=' after property key "+key)
	}
	if err := p.advance(); err != nil { // consume '='
		return 0, err
	}
	valID, err := p.parseValue(depth)
	if err != nil {
		return 0, err
	}
	end := p.ast.Nodes[valID].End
	propID := p.ast.addNode(Node{Kind: NodeProperty, Text: key, Start: start, End: end})
	cs, cc := p.ast.addChildren([]NodeID{valID})
	p.ast.Nodes[propID].ChildStart, p.ast.Nodes[propID].ChildCount = cs, cc
	return propID, nil
}

// parseValue dispatches on the next token into a literal, identifier,
// dotted reference, array, or nested object, per spec.md §4.2.
func (p *Parser) parseValue(depth int) (NodeID, error) {
	if depth > p.maxDepth {
		return 0, errNestingTooDeep(p.cur.Start)
	}
	start := p.cur.Start
	switch p.cur.Kind {
	case lexer.String:
		text := unescapeString(p.cur.Text(p.src))
		end := p.cur.End
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.ast.addNode(Node{Kind: NodeLiteralString, Text: text, Start: start, End: end}), nil
	case lexer.Integer:
		text, end := p.cur.Text(p.src), p.cur.End
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.ast.addNode(Node{Kind: NodeLiteralInteger, Text: text, Start: start, End: end}), nil
	case lexer.Hex:
		text, end := p.cur.Text(p.src), p.cur.End
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.ast.addNode(Node{Kind: NodeLiteralHex, Text: text, Start: start, End: end}), nil
	case lexer.Float:
		text, end := p.cur.Text(p.src), p.cur.End
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.ast.addNode(Node{Kind: NodeLiteralFloat, Text: text, Start: start, End: end}), nil
	case lexer.Boolean:
		text, end := p.cur.Text(p.src), p.cur.End
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.ast.addNode(Node{Kind: NodeLiteralBoolean, Text: text, Start: start, End: end}), nil
	case lexer.Identifier:
		return p.parseIdentifierOrDotted()
	case lexer.LBracket:
		return p.parseArrayValue(depth + 1)
	case lexer.LBrace:
		return p.parseObjectValue(depth + 1)
	default:
		return 0, errUnexpectedToken(start, "expected a value")
	}
}

func (p *Parser) parseIdentifierOrDotted() (NodeID, error) {
	start := p.cur.Start
	parts := []string{p.cur.Text(p.src)}
	end := p.cur.End
	if err := p.advance(); err != nil {
		return 0, err
	}
	for p.cur.Kind == lexer.Dot {
		if err := p.advance(); err != nil { // consume '.'
			return 0, err
		}
		if p.cur.Kind != lexer.Identifier {
			return 0, errUnexpectedToken(p.cur.Start, "expected identifier after '.'")
		}
		parts = append(parts, p.cur.Text(p.src))
		end = p.cur.End
		if err := p.advance(); err != nil {
			return 0, err
		}
	}
	if len(parts) == 1 {
		return p.ast.addNode(Node{Kind: NodeIdentifier, Text: parts[0], Start: start, End: end}), nil
	}
	return p.ast.addNode(Node{
		Kind: NodeDottedReference, Parts: parts, Text: strings.Join(parts, "."), Start: start, End: end,
	}), nil
}

func (p *Parser) parseArrayValue(depth int) (NodeID, error) {
	if depth > p.maxDepth {
		return 0, errNestingTooDeep(p.cur.Start)
	}
	start := p.cur.Start
	if err := p.advance(); err != nil { // consume '['
		return 0, err
	}
	var children []NodeID
	for {
		switch p.cur.Kind {
		case lexer.RBracket:
			end := p.cur.End
			if err := p.advance(); err != nil {
				return 0, err
			}
			id := p.ast.addNode(Node{Kind: NodeArray, Start: start, End: end})
			cs, cc := p.ast.addChildren(children)
			p.ast.Nodes[id].ChildStart, p.ast.Nodes[id].ChildCount = cs, cc
			return id, nil
		case lexer.EOF:
			return 0, errMalformedArray(start, "missing closing ']'")
		default:
			valID, err := p.parseValue(depth)
			if err != nil {
				return 0, err
			}
			children = append(children, valID)
		}
	}
}

func (p *Parser) parseObjectValue(depth int) (NodeID, error) {
	start := p.cur.Start
	children, end, err := p.parseBraceBody(depth)
	if err != nil {
		return 0, err
	}
	id := p.ast.addNode(Node{Kind: NodeObject, Start: start, End: end})
	cs, cc := p.ast.addChildren(children)
	p.ast.Nodes[id].ChildStart, p.ast.Nodes[id].ChildCount = cs, cc
	return id, nil
}

// recoverToPropertyBoundary skips tokens, tracking nested bracket/brace
// depth, until it reaches the '}' that closes the current body (left for
// the caller to consume) or EOF.
func (p *Parser) recoverToPropertyBoundary() bool {
	local := 0
	for {
		switch p.cur.Kind {
		case lexer.EOF:
			return false
		case lexer.LBrace, lexer.LBracket:
			local++
		case lexer.RBrace:
			if local == 0 {
				return true
			}
			local--
		case lexer.RBracket:
			if local > 0 {
				local--
			}
		}
		if err := p.advance(); err != nil {
			return false
		}
	}
}

// recoverToNextHash skips tokens until the next top-level '#' or EOF.
func (p *Parser) recoverToNextHash() bool {
	for p.cur.Kind != lexer.EOF {
		if p.cur.Kind == lexer.Hash {
			return true
		}
		if err := p.advance(); err != nil {
			return false
		}
	}
	return false
}

func toParseErr(err error) *Error {
	switch e := err.(type) {
	case *Error:
		return e
	case *lexer.Error:
		return &Error{Code: e.Code, Offset: e.Offset, Msg: e.Msg}
	default:
		return &Error{Code: "E199", Msg: e.Error()}
	}
}

func unescapeString(raw string) string {
	if len(raw) >= 2 {
		raw = raw[1 : len(raw)-1]
	}
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte(raw[i])
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
