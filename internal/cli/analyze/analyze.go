// Package analyze implements the `pylens analyze` command.
package analyze

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pylens-io/pylens/internal/analysis"
	"github.com/pylens-io/pylens/internal/config"
	ierrors "github.com/pylens-io/pylens/internal/errors"
	"github.com/pylens-io/pylens/internal/history"
	"github.com/pylens-io/pylens/internal/logging"
	"github.com/pylens-io/pylens/internal/profiler"
	"github.com/pylens-io/pylens/internal/rules"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	var (
		mode           string
		multithreaded  bool
		fineGrained    bool
		suggest        bool
		python         string
		rulesFile      string
		flamePath      string
		treePath       string
		historyPath    string
		timeoutSeconds int
		logLevel       string
	)

	// Flag defaults come from the environment (PYLENS_*); flags win.
	defaults, err := config.FromEnv()
	if err != nil {
		defaults = config.Default()
	}

	cmd := &cobra.Command{
		Use:   "analyze <script.py>",
		Short: "Run a script under instrumentation and report its performance",
		Long: `Execute a Python script exactly once under instrumentation and emit a
JSON report on stdout.

Modes:
  function  per-function timing, caller/callee chains with self time
  line      per-line hit counts and timing
  memory    per-line memory deltas per function
  all       the three above, each as a fresh run

Examples:
  # Function-level timing with optimization suggestions
  pylens analyze script.py --mode function --suggest

  # Sample a multithreaded target and export flame-graph data
  pylens analyze script.py --multithreaded --flamegraph stacks.folded

  # Track performance over time
  pylens analyze script.py --history ~/.pylens/history.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script := args[0]
			logger := logging.NewWithComponent(logging.Config{Level: logLevel, Pretty: true}, "cli")

			if !strings.EqualFold(filepath.Ext(script), ".py") {
				err := &profiler.LoadError{Script: script, Err: fmt.Errorf("not a Python script")}
				return emitError(cmd, err)
			}
			if multithreaded && fineGrained {
				return emitError(cmd, fmt.Errorf("--multithreaded and --fine-grained are mutually exclusive"))
			}

			ruleSet := rules.Default()
			if rulesFile != "" {
				added, err := ruleSet.LoadFile(rulesFile, logger)
				if err != nil {
					return emitError(cmd, err)
				}
				logger.Info().Int("rules", added).Str("file", rulesFile).Msg("custom rules loaded")
			}

			analyzer := analysis.New(logger, ruleSet, analysis.Options{
				Python:        python,
				Timeout:       time.Duration(timeoutSeconds) * time.Second,
				Multithreaded: multithreaded,
				FineGrained:   fineGrained,
				Suggest:       suggest,
			})

			var reports []*analysis.Report
			if mode == analysis.ModeAll {
				all, err := analyzer.AnalyzeAll(cmd.Context(), script)
				if err != nil {
					return emitError(cmd, err)
				}
				reports = all
			} else {
				rep, err := analyzer.Analyze(cmd.Context(), script, mode)
				if err != nil {
					return emitError(cmd, err)
				}
				reports = []*analysis.Report{rep}
			}

			if flamePath != "" {
				if err := exportFlamegraph(reports, flamePath); err != nil {
					return emitError(cmd, err)
				}
				logger.Info().Str("path", flamePath).Msg("flame-graph data written")
			}

			if treePath != "" {
				if err := exportCallTree(reports, treePath); err != nil {
					return emitError(cmd, err)
				}
				logger.Info().Str("path", treePath).Msg("call tree written")
			}

			if historyPath != "" {
				store, err := history.Open(historyPath, logger)
				if err != nil {
					return emitError(cmd, err)
				}
				defer ierrors.DeferClose(logger, store, "closing history store")
				for _, rep := range reports {
					if _, err := store.Record(cmd.Context(), rep); err != nil {
						return emitError(cmd, err)
					}
				}
			}

			if mode == analysis.ModeAll {
				return writeJSON(cmd.OutOrStdout(), reports)
			}
			return writeJSON(cmd.OutOrStdout(), reports[0])
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&mode, "mode", "m", "function", "Analysis mode: function, line, memory, all")
	fs.BoolVar(&multithreaded, "multithreaded", false, "Sample all threads at a fixed interval instead of tracing")
	fs.BoolVar(&fineGrained, "fine-grained", false, "Trace every call/return event (higher overhead, exact counts)")
	fs.BoolVarP(&suggest, "suggest", "s", false, "Evaluate optimization rules and attach suggestions")
	fs.StringVar(&python, "python", defaults.Python, "Python interpreter to run the target with")
	fs.StringVar(&rulesFile, "rules", defaults.Rules, "YAML file with additional optimization rules")
	fs.StringVar(&flamePath, "flamegraph", "", "Write collapsed flame-graph stacks to this file")
	fs.StringVar(&treePath, "call-tree", "", "Write an indented call tree to this file (function mode)")
	fs.StringVar(&historyPath, "history", defaults.History, "Record the run in this DuckDB history database")
	fs.IntVar(&timeoutSeconds, "timeout", int(defaults.Timeout.Seconds()), "Maximum seconds for one instrumented run")
	fs.StringVar(&logLevel, "log-level", defaults.LogLevel, "Log level: debug, info, warn, error")

	return cmd
}

// emitError prints the structured error payload on the report stream so
// consumers always get a JSON object, then fails the command for the
// exit code. Every RunE failure path goes through here.
func emitError(cmd *cobra.Command, err error) error {
	if werr := writeJSON(cmd.OutOrStdout(), analysis.NewErrorPayload(err)); werr != nil {
		return werr
	}
	return err
}
