package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sunset.dev/pkg/sunset/internal/catalog"
	m "sunset.dev/pkg/sunset/internal/model"
)

// catalogCmd represents the catalog command.
var catalogCmd = newCatalogCmd()

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog [path]",
		Short: "Validate the porting catalog and summarize its entries",
		Long:  "Load the porting catalog, report any validation errors, and print a per-category summary.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString(catalogConfigKey)
			if len(args) == 1 {
				path = args[0]
			}

			cat, err := catalog.LoadFile(path)
			if err != nil {
				return err
			}

			counts := cat.CountByCategory()
			cmd.Printf("%s: %d entries across %d namespaces\n", path, cat.Len(), len(cat.Namespaces()))
			for _, category := range []m.Category{
				m.CategoryRenamed, m.CategoryNoEquivalent, m.CategoryManualConversion,
			} {
				cmd.Printf("  %-28s %d\n", string(category), counts[category])
			}

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
