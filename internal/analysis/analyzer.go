// Package analysis orchestrates one performance-analysis run: it executes
// the target under instrumentation, aggregates the raw statistics, and
// optionally evaluates optimization rules over the results.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pylens-io/pylens/internal/profiler"
	"github.com/pylens-io/pylens/internal/profiler/aggregate"
	"github.com/pylens-io/pylens/internal/rules"
	"github.com/pylens-io/pylens/internal/safe"
)

// Modes accepted by Analyze, beyond the adapter's own.
const ModeAll = "all"

// maxSourceSize caps how much target source the structural rules will
// parse. Generated or concatenated scripts beyond this skip structural
// evaluation rather than ballooning the analysis.
const maxSourceSize = 4 << 20

// Options configures an Analyzer.
type Options struct {
	// Python names the interpreter for the instrumented run.
	Python string
	// Timeout bounds one instrumented run.
	Timeout time.Duration
	// Multithreaded enables background interval sampling (function mode).
	Multithreaded bool
	// FineGrained enables full call/return event tracing (function mode).
	FineGrained bool
	// SampleInterval is the sampling cadence when Multithreaded is set.
	SampleInterval time.Duration
	// Suggest enables rule evaluation over the results.
	Suggest bool
	// Exclusions overrides the frame-name exclusion prefixes.
	Exclusions []string
}

// Analyzer performs analysis runs. Construct one per run or share across
// runs; it keeps no mutable state between analyses.
type Analyzer struct {
	logger zerolog.Logger
	rules  *rules.Manager
	opts   Options
}

// New creates an analyzer using the given rule set.
func New(logger zerolog.Logger, ruleSet *rules.Manager, opts Options) *Analyzer {
	if ruleSet == nil {
		ruleSet = rules.Default()
	}
	return &Analyzer{
		logger: logger.With().Str("component", "analysis").Logger(),
		rules:  ruleSet,
		opts:   opts,
	}
}

// Analyze runs one analysis in the given mode (function, line, memory).
// Use AnalyzeAll for every mode in sequence.
func (a *Analyzer) Analyze(ctx context.Context, script, mode string) (*Report, error) {
	switch mode {
	case string(profiler.ModeFunction):
		return a.analyzeFunction(ctx, script)
	case string(profiler.ModeLine):
		return a.analyzeLine(ctx, script)
	case string(profiler.ModeMemory):
		return a.analyzeMemory(ctx, script)
	default:
		return nil, fmt.Errorf("unsupported analysis mode %q", mode)
	}
}

// AnalyzeAll runs function, line, and memory analyses back to back, each
// as a fresh instrumented run.
func (a *Analyzer) AnalyzeAll(ctx context.Context, script string) ([]*Report, error) {
	var reports []*Report
	for _, mode := range []string{
		string(profiler.ModeFunction),
		string(profiler.ModeLine),
		string(profiler.ModeMemory),
	} {
		rep, err := a.Analyze(ctx, script, mode)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func (a *Analyzer) adapter() *profiler.Adapter {
	return profiler.NewAdapter(a.logger, profiler.Options{
		Python:         a.opts.Python,
		Timeout:        a.opts.Timeout,
		Multithreaded:  a.opts.Multithreaded,
		FineGrained:    a.opts.FineGrained,
		SampleInterval: a.opts.SampleInterval,
	})
}

func (a *Analyzer) analyzeFunction(ctx context.Context, script string) (*Report, error) {
	run, err := a.adapter().Run(ctx, script, profiler.ModeFunction)
	if err != nil {
		return nil, err
	}

	engine := aggregate.New(a.logger, aggregate.NewFilter(a.opts.Exclusions...))
	agg, err := engine.Aggregate(run.Stats, run.CallStacks)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Mode:      string(profiler.ModeFunction),
		File:      script,
		Functions: agg,
		Samples:   run.Samples,
	}
	if a.opts.Suggest {
		rep.Suggestions = a.suggest(ctx, script, functionRecords(agg.Results))
	}
	return rep, nil
}

func (a *Analyzer) analyzeLine(ctx context.Context, script string) (*Report, error) {
	run, err := a.adapter().Run(ctx, script, profiler.ModeLine)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Mode:  string(profiler.ModeLine),
		File:  script,
		Lines: run.Lines,
	}
	if a.opts.Suggest {
		rep.Suggestions = a.suggest(ctx, script, lineRecords(run.Lines))
	}
	return rep, nil
}

func (a *Analyzer) analyzeMemory(ctx context.Context, script string) (*Report, error) {
	run, err := a.adapter().Run(ctx, script, profiler.ModeMemory)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Mode:    string(profiler.ModeMemory),
		File:    script,
		Memory:  run.Memory,
		PeakRSS: run.PeakRSS,
	}
	if a.opts.Suggest {
		rep.Suggestions = a.suggest(ctx, script, memoryRecords(run.Memory))
	}
	return rep, nil
}

// suggest evaluates structural rules over the target source and statistics
// rules over the aggregated records. A source that fails to parse skips
// structural evaluation with a warning; statistics rules still run.
func (a *Analyzer) suggest(ctx context.Context, script string, records []rules.StatsRecord) []rules.Suggestion {
	var out []rules.Suggestion

	source, err := safe.ReadFile(script, &safe.ReadFileOptions{
		MaxSize:       maxSourceSize,
		AllowSymlinks: true,
	})
	if err != nil {
		a.logger.Warn().Err(err).Msg("cannot re-read target source, skipping structural rules")
	} else {
		structural, err := a.rules.EvaluateSource(ctx, source)
		var parseErr *rules.ParseError
		switch {
		case errors.As(err, &parseErr):
			a.logger.Warn().Err(err).Msg("target source does not parse, skipping structural rules")
		case err != nil:
			a.logger.Warn().Err(err).Msg("structural rule evaluation failed")
		default:
			out = append(out, structural...)
		}
	}

	stats := a.rules.EvaluateStats(records)
	rules.SortBySeverity(stats)
	return append(out, stats...)
}
