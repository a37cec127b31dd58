package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bom-manager/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags shared by every command
	metricsFile    string
	nonInteractive bool

	// Flags of destructive commands
	dryRun     bool
	yesConfirm bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "bom-manager",
	Short: "Electronics BOM and inventory manager",
	Long: `BOM Manager imports bills of materials, supplier offers and stock counts
into one database, keeps device master data consistent, and turns project
demand into stock movements and per-shop purchase lists.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := RootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		// We use "debug" level configuration to get ISO8601 timestamps (DevConfig) instead of Epoch (ProdConfig)
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus text-format run metrics to this file")
	RootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Never prompt; unresolved conflicts fail the run")
}

// addConfirmFlags registers --dry-run and --yes on a destructive command.
func addConfirmFlags(c *cobra.Command) {
	c.Flags().BoolVar(&dryRun, "dry-run", false, "Show the plan without changing anything")
	c.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")
}
