package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"bom-manager/core/plan"
	"bom-manager/feature/importer"

	"go.uber.org/zap"
)

// printPlan logs a plan summary and a sample of its actions.
func printPlan(l *zap.Logger, p *plan.Plan) {
	s := p.Summary()
	l.Info("Planned actions",
		zap.String("operation", p.Operation),
		zap.Int("removes", s.Removes),
		zap.Int("remove_keys", s.RemoveKeys),
		zap.Int("puts", s.Puts),
		zap.Int("put_rows", s.PutRows),
		zap.Int("tables", s.Tables),
	)

	maxShow := min(5, len(p.Actions))
	for i := 0; i < maxShow; i++ {
		a := p.Actions[i]
		l.Info("Sample action",
			zap.String("type", string(a.Type)),
			zap.String("table", a.Table),
			zap.Int("size", a.Size()),
			zap.String("reason", a.Reason),
		)
	}
	if len(p.Actions) > maxShow {
		l.Info("Additional actions not shown", zap.Int("count", len(p.Actions)-maxShow))
	}
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}
	if nonInteractive {
		return false
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm destructive actions: ")
	response, err := stdin.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}

// applyPlan confirms and applies p, honoring --dry-run.
func applyPlan(ctx context.Context, a *app, p *plan.Plan) error {
	printPlan(a.log, p)
	if p.Empty() {
		a.log.Info("No actions required.")
		return nil
	}
	if dryRun {
		a.log.Info("Dry-run mode: No changes were made.")
		return nil
	}
	if !confirmDestructiveAction() {
		a.log.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	res, err := plan.Apply(ctx, a.store, p, plan.Options{Confirmed: true})
	if err != nil {
		return fmt.Errorf("failed to apply plan: %w", err)
	}
	a.log.Info("Successfully executed actions",
		zap.Int("count", res.Executed),
		zap.Int64("removed", res.Removed))
	return nil
}

// askMultiplier asks the operator for the factor of an "ask" multiplier.
var askMultiplier = importer.AskerFunc(func(column string) (float64, error) {
	if nonInteractive {
		return 0, importer.ErrNoAsker
	}
	fmt.Printf("Multiply %s by: ", column)
	response, err := stdin.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("failed to read multiplier: %w", err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(response), 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid multiplier %q", strings.TrimSpace(response))
	}
	return v, nil
})

// factor resolves a --multiplier flag value to a number.
func factor(raw, column string) (float64, error) {
	m, err := importer.ParseMultiplier(raw)
	if err != nil {
		return 0, err
	}
	return m.Resolve(column, askMultiplier)
}
