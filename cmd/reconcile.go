package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
)

var (
	reconcileOwner  string
	reconcileDryRun bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute category totals from their expenses",
	Long: `Compare every category total with the rounded sum of its expenses and
overwrite the ones that drifted. With --dry-run only the drift is reported.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := mustLoadConfig()
		ctx := context.Background()
		app, err := newApp(ctx, cfg, logger.LoggerWrapper())
		if err != nil {
			return err
		}
		defer func() { _ = app.Close(ctx) }()

		return runReconcile(ctx, app, internal.Scope{OwnerID: reconcileOwner}, reconcileDryRun, cmd.OutOrStdout())
	},
}

func runReconcile(ctx context.Context, app *App, scope internal.Scope, dryRun bool, out io.Writer) error {
	if dryRun {
		audit, err := app.Reports.Audit(ctx, scope)
		if err != nil {
			return err
		}
		for _, c := range audit.Categories {
			if c.Drifted() {
				fmt.Fprintf(out, "%s\tstored=%.2f\tcomputed=%.2f\tdrift=%.2f\n",
					c.Name, c.StoredTotal, c.ComputedTotal, c.Drift)
			}
		}
		fmt.Fprintf(out, "%d drifted categories\n", audit.Drifted)
		return nil
	}

	result, err := app.Reports.Reconcile(ctx, scope)
	if err != nil {
		return err
	}
	app.Bus.Wait()
	fmt.Fprintf(out, "checked %d categories, repaired %d\n", result.Checked, len(result.Repaired))
	return nil
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileOwner, "owner", "", "only reconcile this owner's categories (multi-tenant)")
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "report drift without repairing it")
	rootCmd.AddCommand(reconcileCmd)
}
