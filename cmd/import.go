package cmd

import (
	"fmt"
	"strings"

	"bom-manager/feature/importer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	importTable      string
	importFormat     string
	importProject    string
	importShop       string
	importMultiplier string
	importOverwrite  bool
)

// importCmd imports one or more files into a table.
var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import BOM, shop or stock files",
	Long: `Import CSV/TSV files into a table of the scheme.

Columns are aligned to the scheme through the selected supplier format,
rows missing required values are dropped and reported, and new device data is
reconciled against the device table before anything is written.

Examples:
  # Import a KiCad BOM as project "amp"
  import amp.csv --format kicad --project amp

  # Import an LCSC order as shop offers
  import order.csv --table shop --format lcsc

  # Re-import a BOM, replacing the rows of the previous import of the file
  import amp.csv --overwrite

  # Scale quantities, asking for the factor
  import amp.csv --multiplier ask`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importTable, "table", "t", "bom", "Target table (bom, shop, stock)")
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "default", formatHelp())
	importCmd.Flags().StringVarP(&importProject, "project", "p", "", "Project of BOM rows (default: file name)")
	importCmd.Flags().StringVar(&importShop, "shop", "", "Shop of offer rows (default: format name)")
	importCmd.Flags().StringVarP(&importMultiplier, "multiplier", "m", "1", "Quantity multiplier, a number or \"ask\"")
	importCmd.Flags().BoolVar(&importOverwrite, "overwrite", false, "Replace rows previously imported from the same file")

	RootCmd.AddCommand(importCmd)
}

// formatHelp lists the embedded formats without failing command setup.
func formatHelp() string {
	fs, err := importer.LoadFormats("")
	if err != nil {
		return "Supplier format"
	}
	return "Supplier format (" + strings.Join(fs.Names(), ", ") + ")"
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	mult, err := importer.ParseMultiplier(importMultiplier)
	if err != nil {
		return err
	}

	a, err := setup(ctx, "import")
	if err != nil {
		return err
	}
	defer a.close()

	imp, err := a.importer()
	if err != nil {
		return err
	}

	for _, path := range args {
		sum, err := imp.Import(ctx, importer.Request{
			Path:       path,
			Table:      importTable,
			Format:     importFormat,
			Project:    importProject,
			Shop:       importShop,
			Multiplier: mult,
			Asker:      askMultiplier,
			Overwrite:  importOverwrite,
		})
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", path, err)
		}
		a.log.Info("Imported", zap.Stringer("summary", sum))
	}
	return nil
}
