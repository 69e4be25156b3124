// Package rulescmd implements the `pylens rules` command group.
package rulescmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pylens-io/pylens/internal/logging"
	"github.com/pylens-io/pylens/internal/rules"
)

// NewRulesCmd creates the rules command group.
func NewRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the optimization rule set",
	}
	cmd.AddCommand(newListCmd())
	return cmd
}

func newListCmd() *cobra.Command {
	var rulesFile string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List built-in and custom optimization rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewWithComponent(logging.DefaultConfig(), "cli")

			ruleSet := rules.Default()
			if rulesFile != "" {
				if _, err := ruleSet.LoadFile(rulesFile, logger); err != nil {
					return err
				}
			}

			for _, r := range ruleSet.All() {
				kind := "statistics"
				if r.Structural {
					kind = "structural"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-32s %-12s %s\n", r.Name, kind, r.Description)
			}
			return nil
		},
	}

	addRulesFileFlag(cmd.Flags(), &rulesFile)
	return cmd
}

// addRulesFileFlag registers the shared --rules flag so every subcommand
// describes it identically.
func addRulesFileFlag(fs *pflag.FlagSet, target *string) {
	fs.StringVar(target, "rules", "", "YAML file with additional optimization rules")
}
