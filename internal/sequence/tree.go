package sequence

import (
	"iter"
	"slices"

	"github.com/roach88/busscope/internal/message"
)

// Node wraps one message in a causal tree.
type Node struct {
	Message  *message.Message
	Parent   string // RelatedTo id, empty when absent
	Children []*Node

	// Orphan is set on roots that declared a parent which could not be
	// attached: missing from the snapshot, the node itself, or part of a
	// RelatedTo cycle.
	Orphan bool

	index    int
	attached *Node
}

// BuildTrees links msgs into causal trees and returns the roots in input
// order. Children are sorted ascending by ProcessedAt; a zero time sorts
// first and ties keep input order. Every message appears in exactly one
// tree. The nodes point into msgs, which must not be modified afterwards.
func BuildTrees(msgs []message.Message) []*Node {
	nodes := make([]*Node, len(msgs))
	byID := make(map[string]*Node, len(msgs))
	for i := range msgs {
		n := &Node{Message: &msgs[i], index: i}
		n.Parent, _ = msgs[i].RelatedTo()
		nodes[i] = n
		if _, dup := byID[msgs[i].ID]; !dup {
			byID[msgs[i].ID] = n
		}
	}

	for _, n := range nodes {
		if n.Parent == "" {
			continue
		}
		parent, ok := byID[n.Parent]
		if !ok || parent == n {
			n.Orphan = true
			continue
		}
		parent.Children = append(parent.Children, n)
		n.attached = parent
	}

	var roots []*Node
	for _, n := range nodes {
		if n.attached == nil {
			roots = append(roots, n)
		}
	}

	// Nodes left unreached hang off a RelatedTo cycle. Break each cycle at
	// its member with the lowest input index; tails stay attached.
	reached := make([]bool, len(nodes))
	for _, r := range roots {
		mark(r, reached)
	}
	for _, n := range nodes {
		if reached[n.index] {
			continue
		}
		cut := cycleHead(n)
		p := cut.attached
		p.Children = slices.DeleteFunc(p.Children, func(c *Node) bool { return c == cut })
		cut.attached = nil
		cut.Orphan = true
		roots = append(roots, cut)
		mark(cut, reached)
	}
	slices.SortFunc(roots, func(a, b *Node) int { return a.index - b.index })

	for _, n := range nodes {
		slices.SortStableFunc(n.Children, func(a, b *Node) int {
			return a.Message.ProcessedAt.Compare(b.Message.ProcessedAt)
		})
	}
	return roots
}

// cycleHead follows parents from n until a node repeats and returns the
// member of that cycle with the lowest input index. n must be unreachable
// from every root, so the walk always ends in a cycle.
func cycleHead(n *Node) *Node {
	pos := map[*Node]int{}
	var path []*Node
	for cur := n; ; cur = cur.attached {
		if i, ok := pos[cur]; ok {
			return slices.MinFunc(path[i:], func(a, b *Node) int { return a.index - b.index })
		}
		pos[cur] = len(path)
		path = append(path, cur)
	}
}

func mark(n *Node, reached []bool) {
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[cur.index] {
			continue
		}
		reached[cur.index] = true
		stack = append(stack, cur.Children...)
	}
}

// All yields messages depth first: each node before its children, roots
// in order. The sequence is finite and may be stopped early.
func All(roots []*Node) iter.Seq[*message.Message] {
	return func(yield func(*message.Message) bool) {
		for _, r := range roots {
			if !walk(r, yield) {
				return
			}
		}
	}
}

func walk(n *Node, yield func(*message.Message) bool) bool {
	if !yield(n.Message) {
		return false
	}
	for _, c := range n.Children {
		if !walk(c, yield) {
			return false
		}
	}
	return true
}

// Walk materializes All.
func Walk(roots []*Node) []*message.Message {
	return slices.Collect(All(roots))
}
