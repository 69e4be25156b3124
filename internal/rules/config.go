package rules

import (
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/pylens-io/pylens/internal/safe"
)

// fileRule is one rule definition in a YAML rule file. Statistics rules
// give a boolean expression in `when`; structural rules pick exactly one
// of the template fields.
type fileRule struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Suggestion  string `yaml:"suggestion"`
	Kind        string `yaml:"kind"` // statistics (default) | structural
	When        string `yaml:"when"`
	NodeType    string `yaml:"node_type"`
	CallTo      string `yaml:"call_to"`
	LoopDepth   int    `yaml:"loop_depth"`
}

type ruleFile struct {
	Rules []fileRule `yaml:"rules"`
}

// LoadFile registers the rules defined in a YAML file. A malformed rule
// drops only that rule, with a warning; an unreadable or unparsable file
// is an error. Returns the number of rules registered.
func (m *Manager) LoadFile(path string, logger zerolog.Logger) (int, error) {
	raw, err := safe.ReadFile(path, nil)
	if err != nil {
		return 0, fmt.Errorf("read rules file: %w", err)
	}

	var rf ruleFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return 0, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	added := 0
	for _, fr := range rf.Rules {
		if err := m.addFileRule(fr); err != nil {
			logger.Warn().Err(err).Str("rule", fr.Name).Msg("skipping rule")
			continue
		}
		added++
	}
	return added, nil
}

func (m *Manager) addFileRule(fr fileRule) error {
	switch fr.Kind {
	case "", "statistics":
		if fr.When == "" {
			return fmt.Errorf("statistics rule %q has no 'when' expression", fr.Name)
		}
		return m.AddExpression(fr.Name, fr.Description, fr.Suggestion, fr.When)
	case "structural":
		pred, err := structuralTemplate(fr)
		if err != nil {
			return err
		}
		return m.Add(Rule{
			Name:        fr.Name,
			Description: fr.Description,
			Suggestion:  fr.Suggestion,
			Structural:  true,
			CheckNode:   pred,
		})
	default:
		return fmt.Errorf("rule %q has unknown kind %q", fr.Name, fr.Kind)
	}
}

// structuralTemplate resolves a file rule to one of the closed structural
// predicate templates. Arbitrary code is never evaluated.
func structuralTemplate(fr fileRule) (StructuralPredicate, error) {
	switch {
	case fr.NodeType != "":
		return NodeTypePredicate(fr.NodeType), nil
	case fr.CallTo != "":
		return CallToPredicate(fr.CallTo), nil
	case fr.LoopDepth > 0:
		return LoopDepthPredicate(fr.LoopDepth), nil
	default:
		return nil, fmt.Errorf("structural rule %q names no template (node_type, call_to, loop_depth)", fr.Name)
	}
}
