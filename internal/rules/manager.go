// Package rules evaluates optimization rules against two independent
// domains: syntax-tree nodes of the target source (structural rules) and
// aggregated statistics records (statistics rules). Matches become
// optimization suggestions with function/line attribution.
package rules

import (
	"fmt"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// StatsRecord is one aggregated statistics row presented to predicates as
// a flat field map (function, calls, total_time, ...).
type StatsRecord map[string]any

// StructuralPredicate matches a syntax-tree node of the target source.
type StructuralPredicate func(node *sitter.Node, source []byte) bool

// StatsPredicate matches a statistics record.
type StatsPredicate func(rec StatsRecord) bool

// Rule is one named optimization rule. Exactly one of CheckNode or
// CheckStats is set, according to Structural.
type Rule struct {
	Name        string
	Description string
	Suggestion  string
	Structural  bool
	CheckNode   StructuralPredicate
	CheckStats  StatsPredicate
}

// Suggestion is one rule match. Transient output; not retained between
// analyses.
type Suggestion struct {
	Rule        string `json:"rule"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
	Function    string `json:"function,omitempty"`
	Line        int    `json:"line,omitempty"`

	severity float64
}

// SortBySeverity orders suggestions by their severity proxy (total time of
// the triggering record) descending, so the highest-impact suggestions
// surface first. The sort is stable.
func SortBySeverity(sugs []Suggestion) {
	sort.SliceStable(sugs, func(i, j int) bool {
		return sugs[i].severity > sugs[j].severity
	})
}

// Manager holds the process-wide rule set. Rules are mutable at runtime
// and evaluated fresh on each analysis; no state persists between runs
// beyond the set itself.
type Manager struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewManager returns an empty rule set. Most callers want Default.
func NewManager() *Manager {
	return &Manager{rules: make(map[string]Rule)}
}

// Add registers a rule. Adding a rule with an existing name replaces it.
func (m *Manager) Add(r Rule) error {
	if r.Name == "" {
		return fmt.Errorf("rule has no name")
	}
	if r.Structural && r.CheckNode == nil {
		return fmt.Errorf("structural rule %q has no node predicate", r.Name)
	}
	if !r.Structural && r.CheckStats == nil {
		return fmt.Errorf("statistics rule %q has no stats predicate", r.Name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[r.Name] = r
	return nil
}

// AddExpression registers a statistics rule whose predicate is a compiled
// expression over record fields, e.g. "calls > 100". A malformed
// expression fails only this registration.
func (m *Manager) AddExpression(name, description, suggestion, expression string) error {
	pred, err := CompileStatsPredicate(expression)
	if err != nil {
		return err
	}
	return m.Add(Rule{
		Name:        name,
		Description: description,
		Suggestion:  suggestion,
		CheckStats:  pred,
	})
}

// Remove deletes a rule by name. Removing an absent rule is a no-op.
func (m *Manager) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rules, name)
}

// All returns every rule, ordered by name.
func (m *Manager) All() []Rule {
	return m.filtered(func(Rule) bool { return true })
}

// Structural returns the syntax-node rules, ordered by name.
func (m *Manager) Structural() []Rule {
	return m.filtered(func(r Rule) bool { return r.Structural })
}

// Statistics returns the statistics rules, ordered by name.
func (m *Manager) Statistics() []Rule {
	return m.filtered(func(r Rule) bool { return !r.Structural })
}

func (m *Manager) filtered(keep func(Rule) bool) []Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Rule, 0, len(m.rules))
	for _, r := range m.rules {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
