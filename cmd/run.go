package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sunset.dev/pkg/sunset/internal/controller"
	"sunset.dev/pkg/sunset/internal/domain"
	m "sunset.dev/pkg/sunset/internal/model"
)

var runParallelFlag int
var runWarnOnlyFlag bool
var runDiffFlag bool
var runVerifyFlag bool
var runForceFlag bool
var runDumpStateFlag bool
var runNoTUIFlag bool

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Rewrite retired API references and write files back",
		Long:  runLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			wf := workflow
			if runNoTUIFlag {
				wf = newWorkflow(controller.NewSimpleUI(cmd.Root()))
			}

			_, err := wf.Run(cmd.Context(), domain.Args{
				Paths:     parsePaths(args),
				Catalog:   m.Path(viper.GetString(catalogConfigKey)),
				Reports:   m.Path(viper.GetString(outputFlagName)),
				Threads:   uint(viper.GetInt(runParallelConfigKey)),
				WarnOnly:  runWarnOnlyFlag,
				ShowDiff:  runDiffFlag,
				Verify:    runVerifyFlag,
				Force:     runForceFlag,
				DumpState: runDumpStateFlag,
				Include:   viper.GetStringSlice(includeConfigKey),
				Exclude:   viper.GetStringSlice(excludeConfigKey),
			})

			return err
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&runParallelFlag, parallelFlagName, "p", viper.GetInt(runParallelConfigKey), "number of files rewritten in parallel")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), runParallelConfigKey)
	cmd.Flags().BoolVar(&runWarnOnlyFlag, "warn-only", false, "mark affected declarations instead of retiring them")
	cmd.Flags().BoolVar(&runDiffFlag, "diff", false, "print a unified diff for every rewritten file")
	cmd.Flags().BoolVar(&runVerifyFlag, "verify", false, "build the module after rewriting and record the output")
	cmd.Flags().BoolVar(&runForceFlag, "force", false, "run even when the git worktree has uncommitted changes")
	cmd.Flags().BoolVar(&runDumpStateFlag, "dump-state", false, "dump the neutralization decisions to stderr")
	cmd.Flags().BoolVar(&runNoTUIFlag, "no-tui", false, "plain line output even on a terminal")
}
