package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sunset.dev/pkg/sunset/internal/controller"
	"sunset.dev/pkg/sunset/internal/domain"
	m "sunset.dev/pkg/sunset/internal/model"
)

var viewSimpleFlag bool

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view [report]",
		Short: "View previously generated migration reports",
		Long:  "View a stored migration run report; defaults to the latest run in the reports directory.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			viewArgs := domain.ViewArgs{Reports: m.Path(viper.GetString(outputFlagName))}
			if len(args) == 1 {
				viewArgs.Report = m.Path(args[0])
			}

			wf := workflow
			if viewSimpleFlag {
				wf = newWorkflow(controller.NewSimpleUI(cmd.Root()))
			}

			return wf.View(cmd.Context(), viewArgs)
		},
	}

	cmd.Flags().BoolVar(&viewSimpleFlag, "simple", false, "plain table output without the interactive pager")

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
