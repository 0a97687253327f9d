package report

// Visitor receives tree traversal callbacks. OnStart is called once with
// the root, then OnSummary or OnDetail for every node depth first, then
// OnEnd. The first error stops the traversal.
type Visitor interface {
	OnStart(root *Node, ctx *Context) error
	OnSummary(node *Node, ctx *Context) error
	OnDetail(node *Node, ctx *Context) error
	OnEnd(root *Node, ctx *Context) error
}

// SummaryEndVisitor is implemented by visitors that need to know when all
// children of a summary node have been visited.
type SummaryEndVisitor interface {
	OnSummaryEnd(node *Node, ctx *Context) error
}

// Visit walks the tree with v.
func (t *Tree) Visit(v Visitor, ctx *Context) error {
	if err := v.OnStart(t.Root, ctx); err != nil {
		return err
	}
	if err := visitNode(t.Root, v, ctx); err != nil {
		return err
	}
	return v.OnEnd(t.Root, ctx)
}

func visitNode(n *Node, v Visitor, ctx *Context) error {
	if !n.IsSummary() {
		return v.OnDetail(n, ctx)
	}

	if err := v.OnSummary(n, ctx); err != nil {
		return err
	}
	for _, child := range n.children {
		if err := visitNode(child, v, ctx); err != nil {
			return err
		}
	}
	if sv, ok := v.(SummaryEndVisitor); ok {
		return sv.OnSummaryEnd(n, ctx)
	}
	return nil
}
