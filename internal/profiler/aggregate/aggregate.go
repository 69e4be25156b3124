// Package aggregate reconciles raw profiler statistics into a deduplicated
// function table, a caller/callee graph, and root-to-leaf call chains with
// self-time attribution.
//
// The engine is pure computation: it is single-threaded, holds no state
// across calls, and is safe to invoke repeatedly or in parallel across
// independent runs.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pylens-io/pylens/internal/profiler"
)

// FunctionRecord is one row of the aggregated function table. Records are
// immutable after aggregation and owned by the Result.
type FunctionRecord struct {
	Function    string  `json:"function"`
	Calls       int     `json:"calls"`
	TotalTime   float64 `json:"total_time"`
	AverageTime float64 `json:"average_time"`
	LineNumber  int     `json:"line_number"`
}

// CallChain is one root-to-node path through the call graph. Children
// holds function-table indices of symbols reachable one hop further.
type CallChain struct {
	Chain    []string `json:"chain"`
	Count    int      `json:"count"`
	SelfTime float64  `json:"self_time"`
	Children []int    `json:"children"`
}

// StackRecord is one filtered call-stack capture.
type StackRecord struct {
	Function string   `json:"function"`
	Stack    []string `json:"stack"`
	Line     int      `json:"line"`
}

// Result is the aggregation output.
type Result struct {
	Results    []FunctionRecord `json:"results"`
	CallChains []CallChain      `json:"call_chains"`
	CallStacks []StackRecord    `json:"call_stacks,omitempty"`

	// Graph structure retained for the printable call tree.
	edges map[string][]string
	roots []string
}

// Error indicates the raw statistics were malformed. No partial results
// accompany it.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("aggregation: %s: %v", e.Reason, e.Err)
	}
	return "aggregation: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Engine aggregates one run's raw statistics.
type Engine struct {
	filter Filter
	logger zerolog.Logger
}

// New creates an engine with the given filter.
func New(logger zerolog.Logger, filter Filter) *Engine {
	return &Engine{
		filter: filter,
		logger: logger.With().Str("component", "aggregator").Logger(),
	}
}

// Aggregate builds the function table, call chains, and filtered call
// stacks from raw statistics. captures may be nil when no event tracing
// ran; chain occurrence counts then stay at zero.
func (e *Engine) Aggregate(stats *profiler.RawStats, captures []profiler.StackCapture) (*Result, error) {
	if err := stats.Validate(); err != nil {
		return nil, &Error{Reason: "malformed raw stats", Err: err}
	}

	// Stable iteration: two runs over identical input must produce
	// identical chain ordering.
	entries := make([]profiler.Entry, len(stats.Entries))
	copy(entries, stats.Entries)
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Name < b.Name
	})

	res := &Result{edges: make(map[string][]string)}
	indices := make(map[string]int)
	avgTime := make(map[string]float64)
	callCount := make(map[string]int)
	edgeSets := make(map[string]map[string]bool)
	hasExcludedCaller := make(map[string]bool)

	for _, entry := range entries {
		if !e.filter.Include(entry.Name) {
			continue
		}

		for _, caller := range entry.Callers {
			if !e.filter.Include(caller.Name) {
				// Called from untracked or top-level code; this alone
				// qualifies the entry as a root.
				hasExcludedCaller[entry.Name] = true
				continue
			}
			set, ok := edgeSets[caller.Name]
			if !ok {
				set = make(map[string]bool)
				edgeSets[caller.Name] = set
			}
			set[entry.Name] = true
		}

		if _, dup := indices[entry.Name]; dup {
			// Same symbol from multiple contexts collapses into the first
			// entry (symbol-name identity; a known limitation), but its
			// callers above still count toward edges and root detection.
			continue
		}

		avg := 0.0
		if entry.Calls > 0 {
			avg = entry.CumTime / float64(entry.Calls)
		}
		indices[entry.Name] = len(res.Results)
		avgTime[entry.Name] = avg
		callCount[entry.Name] = entry.Calls

		res.Results = append(res.Results, FunctionRecord{
			Function:    entry.Name,
			Calls:       entry.Calls,
			TotalTime:   entry.CumTime,
			AverageTime: avg,
			LineNumber:  entry.Line,
		})
	}

	for caller, callees := range edgeSets {
		names := make([]string, 0, len(callees))
		for callee := range callees {
			names = append(names, callee)
		}
		sort.Strings(names)
		res.edges[caller] = names
	}

	res.roots = e.findRoots(indices, res.edges, hasExcludedCaller)

	builder := &chainBuilder{
		engine:  e,
		indices: indices,
		avgTime: avgTime,
		edges:   res.edges,
		visited: make(map[string]bool),
	}
	for _, root := range res.roots {
		builder.build(root, nil)
	}
	res.CallChains = builder.chains

	res.CallStacks = e.filterCaptures(captures)
	assignChainCounts(res.CallChains, res.CallStacks)

	e.logger.Debug().
		Int("functions", len(res.Results)).
		Int("chains", len(res.CallChains)).
		Int("roots", len(res.roots)).
		Msg("aggregation complete")

	return res, nil
}

// findRoots returns, in stable order, every symbol that either has no
// incoming edge or has at least one untracked caller. Both conditions
// qualify independently; a function called by tracked code elsewhere can
// still be a root.
func (e *Engine) findRoots(indices map[string]int, edges map[string][]string, hasExcludedCaller map[string]bool) []string {
	called := make(map[string]bool)
	for _, callees := range edges {
		for _, callee := range callees {
			called[callee] = true
		}
	}

	rootSet := make(map[string]bool)
	for name := range indices {
		if !called[name] || hasExcludedCaller[name] {
			rootSet[name] = true
		}
	}

	roots := make([]string, 0, len(rootSet))
	for name := range rootSet {
		roots = append(roots, name)
	}
	sort.Strings(roots)
	return roots
}

type chainBuilder struct {
	engine  *Engine
	indices map[string]int
	avgTime map[string]float64
	edges   map[string][]string
	visited map[string]bool
	chains  []CallChain
}

// build emits the chain ending at name and descends into its callees.
// A symbol already on the current prefix is not re-expanded, which bounds
// chains to the cycle length on recursive call graphs.
func (b *chainBuilder) build(name string, prefix []string) {
	if b.visited[name] {
		return
	}
	b.visited[name] = true
	chain := append(append([]string(nil), prefix...), name)

	callees := b.edges[name]

	var children []int
	selfTime := b.avgTime[name]
	for _, callee := range callees {
		if idx, ok := b.indices[callee]; ok {
			children = append(children, idx)
		}
		if avg, ok := b.avgTime[callee]; ok {
			// May go negative when timing noise exceeds aggregation
			// precision; reported as-is rather than clamped.
			selfTime -= avg
		}
	}

	b.chains = append(b.chains, CallChain{
		Chain:    chain,
		SelfTime: selfTime,
		Children: children,
	})

	for _, callee := range callees {
		if _, tracked := b.indices[callee]; !tracked {
			continue
		}
		if !b.visited[callee] {
			b.build(callee, chain)
		}
	}

	delete(b.visited, name)
}

// filterCaptures drops excluded functions from captured call stacks and
// removes excluded frames from the surviving stacks.
func (e *Engine) filterCaptures(captures []profiler.StackCapture) []StackRecord {
	var out []StackRecord
	for _, c := range captures {
		if !e.filter.Include(c.Function) {
			continue
		}
		var stack []string
		for _, frame := range c.Stack {
			if e.filter.Include(frame) {
				stack = append(stack, frame)
			}
		}
		if len(stack) == 0 {
			continue
		}
		out = append(out, StackRecord{Function: c.Function, Stack: stack, Line: c.Line})
	}
	return out
}

// assignChainCounts counts exact stack tuples and stamps each chain whose
// sequence matches one. Chains with no matching stack keep count zero.
func assignChainCounts(chains []CallChain, stacks []StackRecord) {
	if len(stacks) == 0 {
		return
	}
	counts := make(map[string]int, len(stacks))
	for _, s := range stacks {
		counts[chainKey(s.Stack)]++
	}
	for i := range chains {
		chains[i].Count = counts[chainKey(chains[i].Chain)]
	}
}

func chainKey(chain []string) string {
	return strings.Join(chain, "\x1f")
}
