package parser

// NodeKind is the closed set of AST node tags. Every node in an [Ast]
// carries exactly one of these.
type NodeKind uint8

const (
	// NodeMacro is a top-level declaration: #define, #import, or a
	// resource macro (#buffer, #renderPipeline, ...). Text holds the
	// macro keyword; Name holds the optional resource name.
	NodeMacro NodeKind = iota
	// NodeProperty is a key=value pair inside a macro or object body.
	// Text holds the key; the single child is the value.
	NodeProperty
	// NodeObject is a nested `{ key=value ... }` value.
	NodeObject
	// NodeArray is a `[ v v v ]` value.
	NodeArray
	// NodeLiteralString is a quoted string value. Text holds the
	// unescaped content (without surrounding quotes). Whether it is
	// treated as a literal or as an arithmetic expression-in-string is
	// decided by the analyzer based on the property's expected type,
	// per spec.md §4.2's parse_value note — the parser does not
	// distinguish the two syntactically.
	NodeLiteralString
	// NodeLiteralInteger is a decimal integer literal. Text holds the
	// raw digits (including an optional leading '-').
	NodeLiteralInteger
	// NodeLiteralHex is a "0x..." integer literal. Text holds the raw
	// token text including the 0x prefix.
	NodeLiteralHex
	// NodeLiteralFloat is a decimal float literal. Text holds the raw
	// token text.
	NodeLiteralFloat
	// NodeLiteralBoolean is `true` or `false`. Text holds that word.
	NodeLiteralBoolean
	// NodeIdentifier is a bare identifier reference (e.g. a resource
	// name used in `pipeline=fooPipe`).
	NodeIdentifier
	// NodeDottedReference is a dotted identifier chain (e.g.
	// `canvas.width`). Parts holds each segment.
	NodeDottedReference
)

var nodeKindNames = [...]string{
	NodeMacro:           "Macro",
	NodeProperty:        "Property",
	NodeObject:          "Object",
	NodeArray:           "Array",
	NodeLiteralString:   "LiteralString",
	NodeLiteralInteger:  "LiteralInteger",
	NodeLiteralHex:      "LiteralHex",
	NodeLiteralFloat:    "LiteralFloat",
	NodeLiteralBoolean:  "LiteralBoolean",
	NodeIdentifier:      "Identifier",
	NodeDottedReference: "DottedReference",
}

// String returns the human-readable name of a NodeKind.
func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return "Unknown"
}

// NodeID indexes into an [Ast]'s Nodes arena. The zero value is never a
// valid reference to a real node (index 0 is a placeholder entry); use -1
// where "no node" must be representable.
type NodeID int32

// Node is one entry in the AST arena. Children of container nodes
// (NodeMacro, NodeProperty, NodeObject, NodeArray) are stored as a
// contiguous range [ChildStart, ChildStart+ChildCount) into [Ast.Children],
// rather than as per-node slices, so the whole tree lives in two flat
// buffers.
type Node struct {
	Kind NodeKind

	// Text holds kind-specific payload: the macro keyword (NodeMacro),
	// the property key (NodeProperty), or literal/identifier text.
	Text string
	// Name holds the optional resource name for NodeMacro nodes.
	Name string
	// Parts holds the dot-separated segments of a NodeDottedReference.
	Parts []string

	// ChildStart/ChildCount describe this node's children range in
	// Ast.Children. Property nodes have exactly one child (the value).
	ChildStart, ChildCount int32

	// Start/End is the byte span in source, for diagnostics.
	Start, End int
}

// Ast is the parsed syntax tree: a flat node arena plus a children arena,
// rooted at a list of top-level declarations.
type Ast struct {
	Src      []byte
	Nodes    []Node
	Children []NodeID
	Roots    []NodeID
}

// Child returns the i'th child of node id.
func (a *Ast) Child(id NodeID, i int) NodeID {
	n := &a.Nodes[id]
	return a.Children[int(n.ChildStart)+i]
}

// ChildCount returns the number of children of node id.
func (a *Ast) ChildCount(id NodeID) int {
	return int(a.Nodes[id].ChildCount)
}

// Node returns a pointer to the node with the given id.
func (a *Ast) Node(id NodeID) *Node {
	return &a.Nodes[id]
}

// addNode appends a node to the arena and returns its id.
func (a *Ast) addNode(n Node) NodeID {
	a.Nodes = append(a.Nodes, n)
	return NodeID(len(a.Nodes) - 1)
}

// addChildren appends a batch of child ids to the children arena and
// returns the contiguous range descriptor to store on the parent node.
func (a *Ast) addChildren(ids []NodeID) (start, count int32) {
	start = int32(len(a.Children))
	a.Children = append(a.Children, ids...)
	return start, int32(len(ids))
}
