package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddValidation(t *testing.T) {
	m := NewManager()

	assert.Error(t, m.Add(Rule{}), "nameless rule")
	assert.Error(t, m.Add(Rule{Name: "s", Structural: true}), "structural rule without node predicate")
	assert.Error(t, m.Add(Rule{Name: "s"}), "statistics rule without stats predicate")

	require.NoError(t, m.Add(Rule{
		Name:       "ok",
		CheckStats: func(StatsRecord) bool { return true },
	}))
	assert.Len(t, m.All(), 1)
}

func TestAddReplacesByName(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Add(Rule{
		Name:        "r",
		Description: "first",
		CheckStats:  func(StatsRecord) bool { return true },
	}))
	require.NoError(t, m.Add(Rule{
		Name:        "r",
		Description: "second",
		CheckStats:  func(StatsRecord) bool { return true },
	}))

	all := m.All()
	require.Len(t, all, 1)
	assert.Equal(t, "second", all[0].Description)
}

func TestRemove(t *testing.T) {
	m := Default()
	require.NotEmpty(t, m.All())

	m.Remove("cache_suggestion")
	for _, r := range m.All() {
		assert.NotEqual(t, "cache_suggestion", r.Name)
	}

	// Removing an absent rule is a no-op.
	m.Remove("no_such_rule")
}

func TestFilteredViewsSortedByName(t *testing.T) {
	m := Default()

	all := m.All()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Name, all[i].Name)
	}

	for _, r := range m.Structural() {
		assert.True(t, r.Structural)
	}
	for _, r := range m.Statistics() {
		assert.False(t, r.Structural)
	}
	assert.Len(t, all, len(m.Structural())+len(m.Statistics()))
}

func TestExpressionRuleMatching(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddExpression(
		"hot_function",
		"Called very often.",
		"Reduce call volume or cache the result.",
		"calls > 100",
	))

	sugs := m.EvaluateStats([]StatsRecord{{"function": "busy", "calls": 150, "total_time": 1.5}})
	require.Len(t, sugs, 1)
	assert.Equal(t, "hot_function", sugs[0].Rule)
	assert.Equal(t, "busy", sugs[0].Function)

	sugs = m.EvaluateStats([]StatsRecord{{"function": "quiet", "calls": 50}})
	assert.Empty(t, sugs)
}

func TestMalformedExpressionFailsOnlyRegistration(t *testing.T) {
	m := NewManager()

	err := m.AddExpression("broken", "", "", "calls >")
	require.Error(t, err)

	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "calls >", regErr.Expression)
	assert.Empty(t, m.All())
}

func TestExpressionMissingFieldIsNoMatch(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddExpression("needs_field", "", "", "average_time > 0.5"))

	sugs := m.EvaluateStats([]StatsRecord{{"function": "f", "calls": 10}})
	assert.Empty(t, sugs)
}

func TestEvaluateStatsAttribution(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddExpression("any", "", "", "true"))

	tests := []struct {
		name string
		rec  StatsRecord
		fn   string
		line int
	}{
		{
			name: "function record",
			rec:  StatsRecord{"function": "alpha", "line_number": 4, "total_time": 0.6},
			fn:   "alpha",
			line: 4,
		},
		{
			name: "memory row",
			rec:  StatsRecord{"function": "beta", "Line": float64(12)},
			fn:   "beta",
			line: 12,
		},
		{
			name: "no attribution",
			rec:  StatsRecord{"hits": 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sugs := m.EvaluateStats([]StatsRecord{tt.rec})
			require.Len(t, sugs, 1)
			assert.Equal(t, tt.fn, sugs[0].Function)
			assert.Equal(t, tt.line, sugs[0].Line)
		})
	}
}

func TestSortBySeverity(t *testing.T) {
	sugs := []Suggestion{
		{Rule: "low", severity: 0.1},
		{Rule: "high", severity: 2.0},
		{Rule: "mid-a", severity: 1.0},
		{Rule: "mid-b", severity: 1.0},
	}

	SortBySeverity(sugs)
	assert.Equal(t, "high", sugs[0].Rule)
	// Stable: equal severities keep their relative order.
	assert.Equal(t, "mid-a", sugs[1].Rule)
	assert.Equal(t, "mid-b", sugs[2].Rule)
	assert.Equal(t, "low", sugs[3].Rule)
}

func TestBuiltinFunctionCallOptimization(t *testing.T) {
	m := Default()

	sugs := m.EvaluateStats([]StatsRecord{
		{"function": "busy", "calls": 4, "total_time": 0.2},
		{"function": "quiet", "calls": 3},
	})
	require.Len(t, sugs, 1)
	assert.Equal(t, "function_call_optimization", sugs[0].Rule)
	assert.Equal(t, "busy", sugs[0].Function)
}
