// Package fault implements the structured failure tree that crosses call
// frame boundaries on the StricklySoft Cloud Platform, together with its
// textual wire encoding and the budget-driven truncation algorithm.
//
// # Tree Model
//
// A [Node] describes one failure: a numeric code, a user-facing message, an
// optional developer message, and the procedure (and line) where the failure
// originated. A node carries an ordered sequence of children mixing three
// kinds:
//
//   - at most one [*Context]: an ordered bag of diagnostic attributes
//   - zero or more nested [*Node]: failures surfaced from deeper frames
//   - zero or more [*Extra]: miscellaneous attachments from external producers
//
// Nodes are value-oriented: every operation that "changes" a tree returns a
// new tree, sharing untouched children with the original. Callers must not
// mutate a node after publishing it.
//
// # Wire Encoding
//
// [Encode] renders a tree as a compact nested-element text document and
// [Decode] parses it back. The encoding is the contract crossed whenever a
// failure passes from one frame to its caller; see the codec documentation
// for the grammar. [IsEncoded] answers whether a piece of signaled text is a
// tree or an opaque message.
//
// # Truncation
//
// [Fit] reduces a tree until its encoding fits a length budget, discarding
// the least recently added, deepest detail first and never touching the root
// identity (code, user message, source procedure). See [Fit] for the exact
// reduction order.
package fault

// DefaultBudget is the default maximum length, in bytes, of an encoded tree
// for a signaling channel that enforces truncation.
const DefaultBudget = 2047

// Node is one failure in a tree. The zero value is not useful; populate at
// least Code, UserMessage and SourceProcedure.
type Node struct {
	// Code is the catalog error identifier (0 for synthesized fallbacks).
	Code int

	// UserMessage is the caller-facing message text.
	UserMessage string

	// DeveloperMessage carries additional diagnostic text. Empty means
	// absent; it is only populated when it differs from UserMessage.
	DeveloperMessage string

	// SourceProcedure names the procedure that built this node.
	SourceProcedure string

	// SourceLine is the source line within SourceProcedure, 0 when unknown.
	SourceLine int

	// Children is the ordered child sequence. Order is significant and is
	// preserved by the codec.
	Children []Child
}

// Child is a member of a node's ordered child sequence. The implementations
// are *Context, *Node and *Extra; the interface is closed.
type Child interface {
	child()
}

func (*Node) child()    {}
func (*Context) child() {}
func (*Extra) child()   {}

// Attr is one named diagnostic value.
type Attr struct {
	Name  string
	Value string
}

// Context is an ordered bag of diagnostic attributes attached to a node.
// Attribute order is insertion order; setting an existing name replaces the
// value in place.
type Context struct {
	Attrs []Attr
}

// NewContext builds a context from alternating name/value pairs.
func NewContext(pairs ...string) *Context {
	c := &Context{}
	for i := 0; i+1 < len(pairs); i += 2 {
		c.Set(pairs[i], pairs[i+1])
	}
	return c
}

// Set adds or replaces an attribute. Last write wins; the attribute keeps
// its original position when replaced.
func (c *Context) Set(name, value string) {
	for i := range c.Attrs {
		if c.Attrs[i].Name == name {
			c.Attrs[i].Value = value
			return
		}
	}
	c.Attrs = append(c.Attrs, Attr{Name: name, Value: value})
}

// Get returns the value for name and whether it is present.
func (c *Context) Get(name string) (string, bool) {
	for i := range c.Attrs {
		if c.Attrs[i].Name == name {
			return c.Attrs[i].Value, true
		}
	}
	return "", false
}

// Len reports the number of attributes.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Attrs)
}

// Extra is a miscellaneous child element: anything an external producer
// attached that is neither a context nor a nested failure. Extras survive
// the codec as flat elements (attributes plus character data); they are the
// first detail discarded under truncation.
type Extra struct {
	Name  string
	Attrs []Attr
	Text  string
}

// WithFirstChild returns a copy of n with c inserted as the first child.
// A nil or empty context is a no-op.
func (n *Node) WithFirstChild(c Child) *Node {
	if skipChild(c) {
		return n
	}
	out := n.clone()
	out.Children = make([]Child, 0, len(n.Children)+1)
	out.Children = append(out.Children, c)
	out.Children = append(out.Children, n.Children...)
	return out
}

// WithLastChild returns a copy of n with c appended as the last child.
// A nil or empty context is a no-op.
func (n *Node) WithLastChild(c Child) *Node {
	if skipChild(c) {
		return n
	}
	out := n.clone()
	out.Children = make([]Child, len(n.Children), len(n.Children)+1)
	copy(out.Children, n.Children)
	out.Children = append(out.Children, c)
	return out
}

// WithoutDeveloperMessage returns a copy of n with the developer message
// cleared.
func (n *Node) WithoutDeveloperMessage() *Node {
	out := n.clone()
	out.DeveloperMessage = ""
	return out
}

// ContextChild returns the node's context child, or nil.
func (n *Node) ContextChild() *Context {
	for _, c := range n.Children {
		if ctx, ok := c.(*Context); ok {
			return ctx
		}
	}
	return nil
}

// NestedChildren returns the node's nested failure children in order.
func (n *Node) NestedChildren() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if nested, ok := c.(*Node); ok {
			out = append(out, nested)
		}
	}
	return out
}

// skipChild reports whether c should not be attached: nil children and
// empty contexts are omitted from trees.
func skipChild(c Child) bool {
	switch v := c.(type) {
	case nil:
		return true
	case *Context:
		return v.Len() == 0
	case *Node:
		return v == nil
	case *Extra:
		return v == nil
	}
	return false
}

// clone returns a shallow copy of n. Children share the same backing
// elements; callers replace the slice before modifying it.
func (n *Node) clone() *Node {
	out := *n
	return &out
}
