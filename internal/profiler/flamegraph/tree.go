package flamegraph

import "sort"

// Node is one frame in the flame tree. Each node owns its children; the
// tree is built by iterative insertion, never by implicit vivification.
type Node struct {
	Name     string
	Count    int64
	Children map[string]*Node
}

// NewTree returns an empty flame tree root. The root's count is the total
// of all inserted samples.
func NewTree() *Node {
	return &Node{Name: "root", Children: make(map[string]*Node)}
}

// Insert adds one stack with the given count, creating nodes as needed.
// Every node along the path accumulates the count, so a parent's count is
// always at least the sum of its children's.
func (n *Node) Insert(stack []string, count int64) {
	n.Count += count
	cur := n
	for _, frame := range stack {
		child, ok := cur.Children[frame]
		if !ok {
			child = &Node{Name: frame, Children: make(map[string]*Node)}
			cur.Children[frame] = child
		}
		child.Count += count
		cur = child
	}
}

// Tree builds the flame tree for a collapsed profile.
func Tree(p *Profile) *Node {
	root := NewTree()
	for _, s := range p.Samples {
		root.Insert(s.Stack, s.Value)
	}
	return root
}

// SortedChildren returns the node's children ordered by descending count,
// ties broken by name. Renderers rely on this for stable layouts.
func (n *Node) SortedChildren() []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
