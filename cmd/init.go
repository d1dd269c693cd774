package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const starterCatalog = `# Porting catalog: how old API types map onto their successors.
types:
  - name: Widget
    namespace: example.com/oldsdk/ui
    category: renamed
    replacement: {name: Control, namespace: example.com/newsdk/uikit}
#  - name: Canvas
#    namespace: example.com/oldsdk/gfx
#    category: no-equivalent
#    note: rendering surface retired without successor
#    quarantine: true
#  - name: Session
#    namespace: example.com/oldsdk/auth
#    category: manual-conversion-required
#    note: token handling changed; port by hand
`

// initCmd represents the init command.
var initCmd = newInitCmd()

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate default sunset.yaml and catalog files",
		Long: `Create a sunset.yaml in the current working directory populated with the
current CLI defaults, plus a starter porting catalog when none exists.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			targetPath := filepath.Join(configFolderPath, configFileName)

			if err := viper.SafeWriteConfigAs(targetPath); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			catalogPath := filepath.Join(configFolderPath, defaultCatalogFile)
			if _, err := os.Stat(catalogPath); err == nil {
				return nil
			}
			if err := os.WriteFile(catalogPath, []byte(starterCatalog), 0o644); err != nil {
				return fmt.Errorf("failed to write starter catalog: %w", err)
			}

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
}
