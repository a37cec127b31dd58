package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"bom-manager/feature/stock"

	"github.com/spf13/cobra"
)

var purgeLedger bool

// projectCmd is the parent command for project administration.
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "List and remove projects",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx, "project list")
		if err != nil {
			return err
		}
		defer a.close()

		e, err := a.engine(ctx, false)
		if err != nil {
			return err
		}
		projects, err := e.Projects(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PROJECT\tDEVICES\tPARTS\tCOMMITTED")
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%d\t%d\t%t\n", p.Name, p.Devices, p.Parts, p.Committed)
		}
		return w.Flush()
	},
}

var projectRemoveCmd = &cobra.Command{
	Use:   "remove <project>",
	Short: "Remove the BOM lines of a project",
	Long: `Remove deletes the BOM lines of a project. Stock is left as it is.

With --purge-ledger the record of committed quantities goes too, so importing
and committing the project again adds its parts to stock anew.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx, "project remove")
		if err != nil {
			return err
		}
		defer a.close()

		return applyPlan(ctx, a, stock.PlanProjectRemoval(args[0], purgeLedger))
	},
}

func init() {
	projectRemoveCmd.Flags().BoolVar(&purgeLedger, "purge-ledger", false, "Also forget committed quantities")
	addConfirmFlags(projectRemoveCmd)

	projectCmd.AddCommand(projectListCmd, projectRemoveCmd)
	RootCmd.AddCommand(projectCmd)
}
