package aggregate

import (
	"fmt"
	"io"
	"strings"
)

// WriteCallTree renders the call graph as an indented tree, one subtree
// per root. A symbol already on the current branch is printed once with a
// recursion marker instead of being expanded again.
func (r *Result) WriteCallTree(w io.Writer) error {
	for _, root := range r.roots {
		if err := r.writeSubtree(w, root, 0, map[string]bool{}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Result) writeSubtree(w io.Writer, name string, depth int, onBranch map[string]bool) error {
	indent := strings.Repeat("  ", depth)
	prefix := ""
	if depth > 0 {
		prefix = "└── "
	}

	if onBranch[name] {
		_, err := fmt.Fprintf(w, "%s%s%s (recursive call)\n", indent, prefix, name)
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%s%s\n", indent, prefix, name); err != nil {
		return err
	}

	onBranch[name] = true
	for _, callee := range r.edges[name] {
		if err := r.writeSubtree(w, callee, depth+1, onBranch); err != nil {
			return err
		}
	}
	delete(onBranch, name)
	return nil
}
