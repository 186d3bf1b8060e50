package fault

// Fit encodes n and, when limited is true, reduces the tree until the
// encoding fits within budget bytes. Reductions are applied one at a time,
// re-encoding after each, in strict priority order:
//
//  1. Drop the root's last miscellaneous attachment.
//  2. If the root's last nested failure has nested failures of its own,
//     drop the innermost node along that last-child chain.
//  3. Drop the root's last nested failure entirely.
//  4. Drop the root's context child.
//  5. Drop the root's developer message.
//
// When no reduction applies the (still oversized) encoding is returned as a
// last resort: Fit degrades, it never fails. The root's code, user message
// and source procedure are never removed. Each step strictly reduces node or
// attribute count, so the loop terminates.
//
// Fit does not modify n; every reduction produces a new tree.
func Fit(n *Node, budget int, limited bool) string {
	text := Encode(n)
	if !limited {
		return text
	}
	for len(text) > budget {
		reduced, ok := reduce(n)
		if !ok {
			return text
		}
		n = reduced
		text = Encode(n)
	}
	return text
}

// reduce applies the first applicable reduction and reports whether any
// reduction was possible.
func reduce(n *Node) (*Node, bool) {
	if out, ok := dropLastExtra(n); ok {
		return out, true
	}
	if out, ok := dropDeepestNested(n); ok {
		return out, true
	}
	if out, ok := dropContext(n); ok {
		return out, true
	}
	if n.DeveloperMessage != "" {
		return n.WithoutDeveloperMessage(), true
	}
	return n, false
}

// dropLastExtra removes the root's last attachment child.
func dropLastExtra(n *Node) (*Node, bool) {
	for i := len(n.Children) - 1; i >= 0; i-- {
		if _, ok := n.Children[i].(*Extra); ok {
			return n.withoutChild(i), true
		}
	}
	return n, false
}

// dropDeepestNested prunes nested failure detail, deepest first: it follows
// the chain of last nested children down from the root and removes the
// innermost node. When the root's last nested child is itself a leaf, the
// whole child is removed.
func dropDeepestNested(n *Node) (*Node, bool) {
	idx := lastNestedIndex(n)
	if idx < 0 {
		return n, false
	}
	child := n.Children[idx].(*Node)
	if pruned, ok := dropDeepestNested(child); ok {
		return n.withChildReplaced(idx, pruned), true
	}
	return n.withoutChild(idx), true
}

// dropContext removes the root's context child.
func dropContext(n *Node) (*Node, bool) {
	for i := len(n.Children) - 1; i >= 0; i-- {
		if _, ok := n.Children[i].(*Context); ok {
			return n.withoutChild(i), true
		}
	}
	return n, false
}

func lastNestedIndex(n *Node) int {
	for i := len(n.Children) - 1; i >= 0; i-- {
		if _, ok := n.Children[i].(*Node); ok {
			return i
		}
	}
	return -1
}

func (n *Node) withoutChild(i int) *Node {
	out := n.clone()
	out.Children = make([]Child, 0, len(n.Children)-1)
	out.Children = append(out.Children, n.Children[:i]...)
	out.Children = append(out.Children, n.Children[i+1:]...)
	return out
}

func (n *Node) withChildReplaced(i int, c Child) *Node {
	out := n.clone()
	out.Children = make([]Child, len(n.Children))
	copy(out.Children, n.Children)
	out.Children[i] = c
	return out
}
