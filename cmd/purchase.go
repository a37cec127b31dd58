package cmd

import (
	"bom-manager/feature/stock"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	purchaseMultiplier string
	purchaseSingle     bool
	purchaseOutput     string
	purchaseBase       string
	purchasePublish    bool
)

// purchaseCmd writes purchase lists for uncovered demand.
var purchaseCmd = &cobra.Command{
	Use:   "purchase [project]",
	Short: "Write purchase lists for parts not in stock",
	Long: `Purchase nets project demand against stock and assigns every missing part
to the shop with the lowest total cost, honoring minimum order quantities.

Examples:
  # One list per shop for every project
  purchase

  # Ten boards of project amp, one combined list
  purchase amp --multiplier 10 --single

  # Upload the lists to the configured bucket
  purchase --publish`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPurchase,
}

func init() {
	purchaseCmd.Flags().StringVarP(&purchaseMultiplier, "multiplier", "m", "1", "Demand multiplier, a number or \"ask\"")
	purchaseCmd.Flags().BoolVar(&purchaseSingle, "single", false, "Write one list instead of one per shop")
	purchaseCmd.Flags().StringVarP(&purchaseOutput, "output", "o", "", "Output directory (default: purchase.output_dir)")
	purchaseCmd.Flags().StringVar(&purchaseBase, "base", "", "File name prefix (default: purchase.base_name)")
	purchaseCmd.Flags().BoolVar(&purchasePublish, "publish", false, "Upload the lists to object storage")

	RootCmd.AddCommand(purchaseCmd)
}

func runPurchase(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	f, err := factor(purchaseMultiplier, "demand")
	if err != nil {
		return err
	}
	a, err := setup(ctx, "purchase")
	if err != nil {
		return err
	}
	defer a.close()

	e, err := a.engine(ctx, purchasePublish)
	if err != nil {
		return err
	}

	req := stock.PurchaseRequest{
		Multiplier: f,
		Split:      !purchaseSingle,
		OutputDir:  a.cfg.Purchase.OutputDir,
		BaseName:   a.cfg.Purchase.BaseName,
		Publish:    purchasePublish,
	}
	if len(args) == 1 {
		req.Project = args[0]
	}
	if purchaseOutput != "" {
		req.OutputDir = purchaseOutput
	}
	if purchaseBase != "" {
		req.BaseName = purchaseBase
	}

	sum, err := e.Purchase(ctx, req)
	if err != nil {
		return err
	}
	for _, g := range sum.Groups {
		a.log.Info("Purchase list",
			zap.String("shop", g.Shop),
			zap.String("path", g.Path),
			zap.String("object", g.Object),
			zap.Int("lines", g.Lines),
			zap.String("total", g.Total.StringFixed(2)))
	}
	return nil
}
