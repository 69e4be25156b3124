package profiler

import (
	"fmt"
	"math"
)

// Location identifies a profiled unit of code.
type Location struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Name string `json:"name"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d(%s)", l.Path, l.Line, l.Name)
}

// CallerEntry records how often and how long a single caller invoked the
// entry it is attached to.
type CallerEntry struct {
	Location
	PrimitiveCalls int     `json:"cc"`
	Calls          int     `json:"nc"`
	TotalTime      float64 `json:"tt"`
	CumTime        float64 `json:"ct"`
}

// Entry is one row of the raw statistics table: a code location with its
// call counts, timing, and caller map.
type Entry struct {
	Location
	PrimitiveCalls int           `json:"cc"`
	Calls          int           `json:"nc"`
	TotalTime      float64       `json:"tt"`
	CumTime        float64       `json:"ct"`
	Callers        []CallerEntry `json:"callers"`
}

// RawStats is the full statistics table produced by one instrumented run.
type RawStats struct {
	Entries []Entry `json:"entries"`
}

// Validate checks the table for malformed rows. Aggregating a table that
// fails validation would produce misleading results, so callers must treat
// any error as fatal for the whole analysis.
func (s *RawStats) Validate() error {
	if s == nil {
		return fmt.Errorf("raw stats: table is nil")
	}
	for i, e := range s.Entries {
		if e.Name == "" {
			return fmt.Errorf("raw stats: entry %d has an empty symbol name", i)
		}
		if e.Calls < 0 || e.PrimitiveCalls < 0 {
			return fmt.Errorf("raw stats: entry %s has negative call counts", e.Location)
		}
		if !isFinite(e.TotalTime) || !isFinite(e.CumTime) {
			return fmt.Errorf("raw stats: entry %s has non-finite time", e.Location)
		}
		if e.Callers == nil {
			return fmt.Errorf("raw stats: entry %s is missing its caller map", e.Location)
		}
		for _, c := range e.Callers {
			if c.Name == "" {
				return fmt.Errorf("raw stats: entry %s has a caller with an empty name", e.Location)
			}
			if !isFinite(c.TotalTime) || !isFinite(c.CumTime) {
				return fmt.Errorf("raw stats: caller %s of %s has non-finite time", c.Location, e.Location)
			}
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// StackCapture is one call event recorded by full event tracing: the
// function entered, the call stack leading to it, and the call site line.
type StackCapture struct {
	Function string   `json:"function"`
	Stack    []string `json:"stack"`
	Line     int      `json:"line"`
}

// LineRecord is one row of line-granularity profiling output.
type LineRecord struct {
	LineNumber  int     `json:"line_number"`
	Hits        int     `json:"hits"`
	TotalTime   float64 `json:"total_time"`
	PerHit      float64 `json:"per_hit"`
	PercentTime float64 `json:"percent_time"`
	Code        string  `json:"code"`
	Function    string  `json:"function"`
}

// MemoryRow is one line's memory accounting inside a profiled function.
// Field names follow the classic memory-profiler table headings.
type MemoryRow struct {
	Line        int     `json:"Line"`
	MemUsage    float64 `json:"Mem usage"`
	Increment   float64 `json:"Increment"`
	Occurrences int     `json:"Occurrences"`
	Contents    string  `json:"Line Contents"`
}

// MemoryRecord groups a function's per-line memory rows.
type MemoryRecord struct {
	Function    string      `json:"function"`
	MemoryUsage []MemoryRow `json:"memory_usage"`
}
