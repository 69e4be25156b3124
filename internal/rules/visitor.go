package rules

import (
	"context"
	"errors"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// EvaluateSource parses the target Python source and applies every
// structural rule to every node of the syntax tree, tracking the enclosing
// function name as context. A source that does not parse returns a
// ParseError and no suggestions.
func (m *Manager) EvaluateSource(ctx context.Context, source []byte) ([]Suggestion, error) {
	structural := m.Structural()
	if len(structural) == 0 {
		return nil, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, &ParseError{Err: errors.New("syntax error in target source")}
	}

	v := &visitor{rules: structural, source: source}
	v.walk(root, "")
	return v.suggestions, nil
}

type visitor struct {
	rules       []Rule
	source      []byte
	suggestions []Suggestion
}

func (v *visitor) walk(node *sitter.Node, enclosing string) {
	if node.Type() == "function_definition" {
		if name := node.ChildByFieldName("name"); name != nil {
			enclosing = name.Content(v.source)
		}
	}

	for _, r := range v.rules {
		if r.CheckNode(node, v.source) {
			v.suggestions = append(v.suggestions, Suggestion{
				Rule:        r.Name,
				Description: r.Description,
				Suggestion:  r.Suggestion,
				Function:    enclosing,
				Line:        int(node.StartPoint().Row) + 1,
			})
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		v.walk(node.NamedChild(i), enclosing)
	}
}
