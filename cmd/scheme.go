package cmd

import (
	"fmt"
	"os"
	"strings"

	"bom-manager/core/config"
	"bom-manager/core/scheme"

	"github.com/spf13/cobra"
)

// schemeCmd is the parent command for scheme inspection.
var schemeCmd = &cobra.Command{
	Use:   "scheme",
	Short: "Inspect the table scheme",
}

var schemeShowCmd = &cobra.Command{
	Use:   "show [table]...",
	Short: "Print the columns an import into a table needs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		sch, err := scheme.LoadFile(cfg.Import.SchemePath)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			args = sch.Tables()
		}
		for _, name := range args {
			res, err := sch.Resolve(name)
			if err != nil {
				return err
			}
			printResolution(res)
		}
		return nil
	},
}

func printResolution(r scheme.Resolution) {
	out := os.Stdout
	fmt.Fprintf(out, "%s\n", r.Table)
	fmt.Fprintf(out, "  required: %s\n", strings.Join(r.Required, ", "))
	fmt.Fprintf(out, "  optional: %s\n", strings.Join(r.Optional, ", "))
	for _, h := range r.Hashes {
		fmt.Fprintf(out, "  hash:     %s <- %s\n", h.Column, strings.Join(h.Sources, ", "))
	}
}

func init() {
	schemeCmd.AddCommand(schemeShowCmd)
	RootCmd.AddCommand(schemeCmd)
}
