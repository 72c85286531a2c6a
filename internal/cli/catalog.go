package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-voiceorder/pkg/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the menu",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <menu.yaml>",
	Short: "Load a YAML menu into the catalog database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Catalog.DB == "" {
			return fmt.Errorf("catalog.db is not configured")
		}
		items, err := catalog.LoadYAML(args[0])
		if err != nil {
			return err
		}

		db, err := catalog.OpenSQLite(cfg.Catalog.DB)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Import(cmd.Context(), items); err != nil {
			return err
		}
		ui.Success("imported %d items into %s", len(items), cfg.Catalog.DB)
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the menu",
	RunE: func(cmd *cobra.Command, args []string) error {
		items, _, err := loadCatalog(cmd.Context(), cfg.Catalog)
		if err != nil {
			return err
		}
		ui.Menu(items)
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogImportCmd, catalogListCmd)
}
