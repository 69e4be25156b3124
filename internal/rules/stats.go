package rules

// EvaluateStats applies every statistics rule to every record. Matches
// carry the record's function/line attribution and a severity proxy
// (total_time) used for sorting.
func (m *Manager) EvaluateStats(records []StatsRecord) []Suggestion {
	rules := m.Statistics()
	if len(rules) == 0 {
		return nil
	}

	var out []Suggestion
	for _, rec := range records {
		for _, r := range rules {
			if !r.CheckStats(rec) {
				continue
			}
			s := Suggestion{
				Rule:        r.Name,
				Description: r.Description,
				Suggestion:  r.Suggestion,
				severity:    numField(rec, "total_time"),
			}
			if fn, ok := rec["function"].(string); ok {
				s.Function = fn
			}
			s.Line = recordLine(rec)
			out = append(out, s)
		}
	}
	return out
}

// recordLine finds the line attribution of a record, whichever result set
// it came from: function records use line_number, memory rows use Line.
func recordLine(rec StatsRecord) int {
	for _, key := range []string{"line_number", "Line"} {
		if n := numField(rec, key); n > 0 {
			return int(n)
		}
	}
	return 0
}
