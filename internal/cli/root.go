// Package cli wires the pylens command tree. The CLI is thin presentation
// glue over the analysis, rules, and history packages.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/pylens-io/pylens/internal/cli/analyze"
	"github.com/pylens-io/pylens/internal/cli/rulescmd"
	"github.com/pylens-io/pylens/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "pylens",
	Short: "pylens - performance analysis for Python scripts",
	Long: `Run a Python script under instrumentation and report where its time
and memory go: per-function timing with call chains, per-line timing,
per-line memory deltas, flame-graph data, and rule-based optimization
suggestions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(analyze.NewAnalyzeCmd())
	rootCmd.AddCommand(rulescmd.NewRulesCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("pylens version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
