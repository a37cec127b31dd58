package cmd

import (
	"bom-manager/feature/device"

	"github.com/spf13/cobra"
)

var (
	deviceManufacturer string
	deviceForce        bool
)

// deviceCmd is the parent command for device master data.
var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Administer device master data",
}

// deviceRemoveCmd deletes devices, cascading when forced.
var deviceRemoveCmd = &cobra.Command{
	Use:   "remove <device_id>",
	Short: "Remove a device",
	Long: `Remove a device from the device table.

A device still referenced by BOM, shop, stock or ledger rows is only removed
with --force, which deletes the referencing rows first, in one transaction.

Examples:
  # Preview a forced removal
  device remove NE555 --manufacturer TI --force --dry-run

  # Remove without prompting
  device remove NE555 --force --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx, "device remove")
		if err != nil {
			return err
		}
		defer a.close()

		keys, err := device.Find(ctx, a.store, args[0], deviceManufacturer)
		if err != nil {
			return err
		}
		p, err := device.PlanRemoval(ctx, a.store, keys, deviceForce)
		if err != nil {
			return err
		}
		return applyPlan(ctx, a, p)
	},
}

func init() {
	deviceRemoveCmd.Flags().StringVar(&deviceManufacturer, "manufacturer", "", "Only the device of this manufacturer")
	deviceRemoveCmd.Flags().BoolVar(&deviceForce, "force", false, "Also remove every row referencing the device")
	addConfirmFlags(deviceRemoveCmd)

	deviceCmd.AddCommand(deviceRemoveCmd)
	RootCmd.AddCommand(deviceCmd)
}
