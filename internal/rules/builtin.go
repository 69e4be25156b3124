package rules

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Default returns a manager pre-loaded with the built-in rules.
func Default() *Manager {
	m := NewManager()

	// Errors are impossible here: every built-in has a name and a
	// predicate of the right kind.
	_ = m.Add(Rule{
		Name:        "loop_optimization",
		Description: "Optimize loops to reduce unnecessary iterations.",
		Suggestion:  "Remove the unnecessary range with start 0 and stop 1.",
		Structural:  true,
		CheckNode:   checkSingleIterationRange,
	})
	_ = m.Add(Rule{
		Name:        "cache_suggestion",
		Description: "Cache function results if the same function is called multiple times with the same arguments.",
		Suggestion:  "Consider using functools.lru_cache to cache the function results.",
		Structural:  true,
		CheckNode: func(node *sitter.Node, source []byte) bool {
			if node.Type() != "call" {
				return false
			}
			fn := node.ChildByFieldName("function")
			return fn != nil && fn.Type() == "identifier"
		},
	})
	_ = m.Add(Rule{
		Name:        "function_call_optimization",
		Description: "Optimize function calls to reduce overhead.",
		Suggestion:  "Consider optimizing the function or reducing the number of calls.",
		CheckStats: func(rec StatsRecord) bool {
			return numField(rec, "calls") > 3
		},
	})

	return m
}

// checkSingleIterationRange matches "for ... in range(0, 1)": a loop whose
// iterator spans exactly one iteration.
func checkSingleIterationRange(node *sitter.Node, source []byte) bool {
	if node.Type() != "for_statement" {
		return false
	}
	iter := node.ChildByFieldName("right")
	if iter == nil || iter.Type() != "call" {
		return false
	}
	fn := iter.ChildByFieldName("function")
	if fn == nil || fn.Content(source) != "range" {
		return false
	}
	args := iter.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() != 2 {
		return false
	}
	first := strings.TrimSpace(args.NamedChild(0).Content(source))
	second := strings.TrimSpace(args.NamedChild(1).Content(source))
	return first == "0" && second == "1"
}

// numField reads a numeric record field, tolerating the int/float split
// that JSON decoding introduces.
func numField(rec StatsRecord, key string) float64 {
	switch v := rec[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	default:
		return 0
	}
}
