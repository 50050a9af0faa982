package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/category"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/frahmantamala/expense-tracker/internal/user"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a demo user and a handful of expenses for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		app, err := newApp(context.Background(), cfg, logger.LoggerWrapper())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = app.Close(context.Background()) }()

		if err := seed(context.Background(), app); err != nil {
			fmt.Fprintf(os.Stderr, "Seeding failed: %v\n", err)
			os.Exit(1)
		}
	},
}

type seedExpense struct {
	Description string
	Amount      float64
	Date        string
	Category    string
}

var sampleExpenses = []seedExpense{
	{"Weekly groceries", 54.20, "2024-03-02", "groceries"},
	{"Bakery", 6.75, "2024-03-04", "groceries"},
	{"Bus pass", 30.00, "2024-03-01", "transport"},
	{"Taxi home", 18.40, "2024-03-08", "transport"},
	{"Cinema tickets", 24.00, "2024-03-09", "entertainment"},
}

// seed creates the demo user and records the sample expenses through the
// expense service so every category total is maintained as usual.
func seed(ctx context.Context, app *App) error {
	log := app.Logger

	if clearData {
		if err := clearSeeded(ctx, app); err != nil {
			return err
		}
	}

	demo, err := app.Users.Create(ctx, user.CreateUserDTO{Username: "demo", Password: "demo-password"})
	if appErr, ok := internal.IsAppError(err); ok && appErr.Is(internal.ErrUsernameTaken) {
		log.Info("demo user already exists")
	} else if err != nil {
		return fmt.Errorf("create demo user: %w", err)
	} else {
		log.Info("seeded demo user", "user_id", demo.ID, "username", demo.Username)
	}

	scope := internal.Scope{}
	if app.Config.Tenancy.MultiTenant {
		owner, err := app.Users.GetByUsername(ctx, "demo")
		if err != nil {
			return err
		}
		scope.OwnerID = owner.ID
		for _, name := range []string{"groceries", "transport", "entertainment"} {
			if _, err := app.Categories.Create(ctx, scope, category.CreateCategoryDTO{Name: name}); err != nil {
				if appErr, ok := internal.IsAppError(err); !ok || !appErr.Is(internal.ErrCategoryExists) {
					return fmt.Errorf("create category %s: %w", name, err)
				}
			}
		}
	}

	for _, e := range sampleExpenses {
		amount := e.Amount
		dto := expense.CreateExpenseDTO{
			Description: e.Description,
			Amount:      &amount,
			Date:        e.Date,
			Category:    e.Category,
		}
		if _, err := app.Expenses.Create(ctx, scope, dto); err != nil {
			return fmt.Errorf("create expense %q: %w", e.Description, err)
		}
	}
	app.Bus.Wait()

	log.Info("seeded sample expenses", "count", len(sampleExpenses))
	return nil
}

// clearSeeded deletes every category visible in the demo scope, which
// cascades to their expenses.
func clearSeeded(ctx context.Context, app *App) error {
	scope := internal.Scope{}
	if app.Config.Tenancy.MultiTenant {
		owner, err := app.Users.GetByUsername(ctx, "demo")
		if err != nil {
			if appErr, ok := internal.IsAppError(err); ok && appErr.Is(internal.ErrUserNotFound) {
				return nil
			}
			return err
		}
		scope.OwnerID = owner.ID
	}

	categories, err := app.Categories.List(ctx, scope)
	if err != nil {
		return err
	}
	for _, c := range categories {
		if err := app.Categories.Delete(ctx, scope, c.ID); err != nil {
			return fmt.Errorf("delete category %s: %w", c.Name, err)
		}
	}
	app.Logger.Info("cleared seeded data", "categories", len(categories))
	return nil
}
