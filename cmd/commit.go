package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// commitCmd moves a project's BOM into stock.
var commitCmd = &cobra.Command{
	Use:   "commit <project>...",
	Short: "Add project parts to stock",
	Long: `Commit adds the parts of a project BOM to stock.

Committed quantities are remembered, so committing a project again only
applies what changed since the last commit.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx, "commit")
		if err != nil {
			return err
		}
		defer a.close()

		e, err := a.engine(ctx, false)
		if err != nil {
			return err
		}
		for _, project := range args {
			res, err := e.Commit(ctx, project)
			if err != nil {
				return err
			}
			a.log.Debug("Commit result",
				zap.String("project", res.Project),
				zap.Int("devices", res.Devices),
				zap.Bool("no_op", res.NoOp()))
		}
		return nil
	},
}

var useMultiplier string

// useCmd consumes a project's parts from stock.
var useCmd = &cobra.Command{
	Use:   "use <project>",
	Short: "Take project parts out of stock",
	Long: `Use subtracts the parts of a project, times the number of boards built,
from stock. Nothing changes if any part is short.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, err := factor(useMultiplier, "boards built")
		if err != nil {
			return err
		}
		a, err := setup(ctx, "use")
		if err != nil {
			return err
		}
		defer a.close()

		e, err := a.engine(ctx, false)
		if err != nil {
			return err
		}
		_, err = e.Use(ctx, args[0], f)
		return err
	},
}

func init() {
	useCmd.Flags().StringVarP(&useMultiplier, "multiplier", "m", "1", "Boards built, a number or \"ask\"")

	RootCmd.AddCommand(commitCmd)
	RootCmd.AddCommand(useCmd)
}
