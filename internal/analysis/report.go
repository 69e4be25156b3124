package analysis

import (
	"encoding/json"

	"github.com/pylens-io/pylens/internal/profiler"
	"github.com/pylens-io/pylens/internal/profiler/aggregate"
	"github.com/pylens-io/pylens/internal/profiler/flamegraph"
	"github.com/pylens-io/pylens/internal/rules"
)

// Report is the outcome of one analysis run. Only the fields for the
// report's mode are populated; MarshalJSON emits the mode-specific shape.
type Report struct {
	Mode        string
	File        string
	Functions   *aggregate.Result
	Lines       []profiler.LineRecord
	Memory      []profiler.MemoryRecord
	PeakRSS     uint64
	Suggestions []rules.Suggestion

	// Samples holds raw sampled stacks for flame-graph export; they are
	// not part of the JSON report.
	Samples []string
}

// FlameProfile folds the run's raw samples into a collapsed profile, or
// nil when the run collected no samples.
func (r *Report) FlameProfile() *flamegraph.Profile {
	if len(r.Samples) == 0 {
		return nil
	}
	return flamegraph.Fold(r.Samples)
}

// TotalTime sums the report's aggregated time, used as a trend metric.
// Line and memory reports sum their per-line times; memory reports have
// none and return 0.
func (r *Report) TotalTime() float64 {
	var total float64
	if r.Functions != nil {
		for _, fr := range r.Functions.Results {
			total += fr.TotalTime
		}
	}
	for _, l := range r.Lines {
		total += l.TotalTime
	}
	return total
}

func (r *Report) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"mode": r.Mode,
		"file": r.File,
	}

	switch {
	case r.Functions != nil:
		out["results"] = orEmpty(r.Functions.Results)
		out["call_chains"] = orEmpty(r.Functions.CallChains)
		if len(r.Functions.CallStacks) > 0 {
			out["call_stacks"] = r.Functions.CallStacks
		}
	case r.Mode == string(profiler.ModeLine):
		out["results"] = orEmpty(r.Lines)
	case r.Mode == string(profiler.ModeMemory):
		out["results"] = orEmpty(r.Memory)
		if r.PeakRSS > 0 {
			out["peak_rss"] = r.PeakRSS
		}
	}

	if len(r.Suggestions) > 0 {
		out["suggestions"] = r.Suggestions
	}
	return json.Marshal(out)
}

// orEmpty keeps empty result sets as [] rather than null in JSON.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// functionRecords flattens the aggregated function table for statistics
// rule evaluation.
func functionRecords(recs []aggregate.FunctionRecord) []rules.StatsRecord {
	out := make([]rules.StatsRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, rules.StatsRecord{
			"function":     r.Function,
			"calls":        r.Calls,
			"total_time":   r.TotalTime,
			"average_time": r.AverageTime,
			"line_number":  r.LineNumber,
		})
	}
	return out
}

func lineRecords(recs []profiler.LineRecord) []rules.StatsRecord {
	out := make([]rules.StatsRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, rules.StatsRecord{
			"function":     r.Function,
			"line_number":  r.LineNumber,
			"hits":         r.Hits,
			"total_time":   r.TotalTime,
			"per_hit":      r.PerHit,
			"percent_time": r.PercentTime,
			"code":         r.Code,
		})
	}
	return out
}

// memoryRecords flattens per-function memory rows; each row carries its
// function name for attribution.
func memoryRecords(recs []profiler.MemoryRecord) []rules.StatsRecord {
	var out []rules.StatsRecord
	for _, rec := range recs {
		for _, row := range rec.MemoryUsage {
			out = append(out, rules.StatsRecord{
				"function":      rec.Function,
				"Line":          row.Line,
				"Mem usage":     row.MemUsage,
				"Increment":     row.Increment,
				"Occurrences":   row.Occurrences,
				"Line Contents": row.Contents,
			})
		}
	}
	return out
}
