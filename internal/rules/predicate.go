package rules

import (
	"github.com/expr-lang/expr"
	sitter "github.com/smacker/go-tree-sitter"
)

// CompileStatsPredicate compiles a boolean expression over statistics
// record fields into a predicate. Expressions run in a closed evaluation
// environment (the record's fields only); they are data, not code.
// Fields absent from a record evaluate the predicate to false rather than
// failing the analysis.
func CompileStatsPredicate(expression string) (StatsPredicate, error) {
	program, err := expr.Compile(expression,
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, &RegistrationError{Expression: expression, Err: err}
	}

	return func(rec StatsRecord) bool {
		out, err := expr.Run(program, map[string]any(rec))
		if err != nil {
			return false
		}
		matched, ok := out.(bool)
		return ok && matched
	}, nil
}

// NodeTypePredicate matches nodes of the given tree-sitter type, e.g.
// "for_statement" or "dictionary".
func NodeTypePredicate(nodeType string) StructuralPredicate {
	return func(node *sitter.Node, _ []byte) bool {
		return node.Type() == nodeType
	}
}

// CallToPredicate matches call nodes whose callee is the named function.
func CallToPredicate(name string) StructuralPredicate {
	return func(node *sitter.Node, source []byte) bool {
		if node.Type() != "call" {
			return false
		}
		fn := node.ChildByFieldName("function")
		return fn != nil && fn.Type() == "identifier" && fn.Content(source) == name
	}
}

// LoopDepthPredicate matches loop nodes nested at least depth levels deep,
// counting the node itself.
func LoopDepthPredicate(depth int) StructuralPredicate {
	return func(node *sitter.Node, _ []byte) bool {
		if !isLoop(node) {
			return false
		}
		n := 0
		for cur := node; cur != nil; cur = cur.Parent() {
			if isLoop(cur) {
				n++
			}
		}
		return n >= depth
	}
}

func isLoop(node *sitter.Node) bool {
	t := node.Type()
	return t == "for_statement" || t == "while_statement"
}
