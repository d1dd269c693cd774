package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sunset.dev/pkg/sunset/internal/domain"
	m "sunset.dev/pkg/sunset/internal/model"
)

var planDiffFlag bool
var planFailOnFlag string

// planCmd represents the plan command.
var planCmd = newPlanCmd()

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [paths...]",
		Short: "Preview the migration without writing files",
		Long:  planLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := workflow.Plan(cmd.Context(), domain.Args{
				Paths:    parsePaths(args),
				Catalog:  m.Path(viper.GetString(catalogConfigKey)),
				Reports:  m.Path(viper.GetString(outputFlagName)),
				Threads:  uint(viper.GetInt(runParallelConfigKey)),
				ShowDiff: planDiffFlag,
				Include:  viper.GetStringSlice(includeConfigKey),
				Exclude:  viper.GetStringSlice(excludeConfigKey),
			})
			if err != nil {
				return err
			}

			return checkFailOn(report, planFailOnFlag)
		},
	}

	cmd.Flags().BoolVar(&planDiffFlag, "diff", true, "print a unified diff for every file a run would change")
	cmd.Flags().StringVar(&planFailOnFlag, "fail-on", "", "exit nonzero when problems at or above this severity exist (medium|high|critical)")

	return cmd
}

func init() {
	rootCmd.AddCommand(planCmd)
}

// checkFailOn turns a report with problems at or above the threshold
// into a command error, for CI gates.
func checkFailOn(report m.RunReport, failOn string) error {
	if failOn == "" {
		return nil
	}

	threshold := m.ParseSeverity(failOn)
	if threshold == "" {
		return fmt.Errorf("unknown severity %q (want medium, high, or critical)", failOn)
	}

	worst := report.MaxSeverity()
	if worst != "" && worst.Rank() >= threshold.Rank() {
		return fmt.Errorf("found %s severity problems (failing at %s and above)", worst, threshold)
	}

	return nil
}
