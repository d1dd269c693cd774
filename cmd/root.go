// Package cmd provides the root command and CLI setup for sunset.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sunset.dev/pkg/sunset/internal/adapter"
	"sunset.dev/pkg/sunset/internal/controller"
	"sunset.dev/pkg/sunset/internal/domain"
	m "sunset.dev/pkg/sunset/internal/model"
)

var sourceFSAdapter adapter.SourceFSAdapter
var goFileAdapter adapter.GoFileAdapter
var semanticAdapter adapter.SemanticAdapter
var reportStore adapter.ReportStore
var buildVerifier adapter.BuildVerifier
var worktreeGuard adapter.WorktreeGuard
var workflow domain.Workflow
var ui controller.UI

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// catalogPathFlag points at the porting catalog.
var catalogPathFlag string

// verboseFlag raises the log level to debug.
var verboseFlag bool

// logFileFlag overrides the log file location.
var logFileFlag string

// includePatterns and excludePatterns filter scanned files for applicable commands.
var includePatterns []string
var excludePatterns []string

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	sourceFSAdapter = adapter.NewLocalSourceFSAdapter()
	goFileAdapter = adapter.NewLocalGoFileAdapter()
	semanticAdapter = adapter.NewPackagesSemanticAdapter()
	reportStore = adapter.NewYAMLReportStore()
	buildVerifier = adapter.NewGoBuildVerifier()
	worktreeGuard = adapter.NewGitWorktreeGuard()
	workflow = newWorkflow(ui)
}

// newWorkflow assembles the workflow around the shared adapters; commands
// that force an alternate display swap only the UI.
func newWorkflow(ui controller.UI) domain.Workflow {
	return domain.NewWorkflow(
		sourceFSAdapter,
		goFileAdapter,
		semanticAdapter,
		reportStore,
		buildVerifier,
		worktreeGuard,
		ui,
	)
}

const pathPatternsHelp = `Supports Go-style path patterns:
  - ./...          recursively scan current directory
  - ./pkg/...      recursively scan pkg directory
  - ./cmd ./pkg    scan multiple directories`

const rootLongDescription = `Sunset is a migration assistant that moves Go codebases off an obsolete
API surface. Driven by a porting catalog, it rewrites imports and type
references to their successors, reports references that need a human,
and retires declarations built on types that no longer exist.

` + pathPatternsHelp

const runLongDescription = `Rewrite the given paths against the porting catalog and write the
results back (default: current module).

` + pathPatternsHelp

const planLongDescription = `Analyze the given paths against the porting catalog without writing
anything, showing what a run would change.

` + pathPatternsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sunset",
		Short: "Go API migration assistant",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), verboseFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for migration run reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().
		StringVarP(
			&catalogPathFlag, catalogFlagName, "c",
			viper.GetString(catalogConfigKey),
			"porting catalog file",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(catalogFlagName), catalogConfigKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup("verbose"), logVerboseKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, "log", viper.GetString(logFilenameKey), "log file path")
	bindFlagToConfig(cmd.PersistentFlags().Lookup("log"), logFilenameKey)

	cmd.PersistentFlags().StringArrayVarP(&includePatterns, includeFlagName, "i", viper.GetStringSlice(includeConfigKey), "only migrate files matching glob (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(includeFlagName), includeConfigKey)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude files matching glob (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	if len(args) == 0 {
		return []m.Path{"./..."}
	}

	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
