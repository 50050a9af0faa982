package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi"
	"gorm.io/gorm"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/auth"
	"github.com/frahmantamala/expense-tracker/internal/balance"
	"github.com/frahmantamala/expense-tracker/internal/category"
	categoryMongo "github.com/frahmantamala/expense-tracker/internal/category/mongo"
	categoryPostgres "github.com/frahmantamala/expense-tracker/internal/category/postgres"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/frahmantamala/expense-tracker/internal/core/storage"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	expenseMongo "github.com/frahmantamala/expense-tracker/internal/expense/mongo"
	expensePostgres "github.com/frahmantamala/expense-tracker/internal/expense/postgres"
	"github.com/frahmantamala/expense-tracker/internal/messaging/amqp"
	"github.com/frahmantamala/expense-tracker/internal/report"
	reportMongo "github.com/frahmantamala/expense-tracker/internal/report/mongo"
	reportPostgres "github.com/frahmantamala/expense-tracker/internal/report/postgres"
	"github.com/frahmantamala/expense-tracker/internal/transport"
	"github.com/frahmantamala/expense-tracker/internal/transport/rest"
	"github.com/frahmantamala/expense-tracker/internal/user"
	userMongo "github.com/frahmantamala/expense-tracker/internal/user/mongo"
	userPostgres "github.com/frahmantamala/expense-tracker/internal/user/postgres"
)

// stores holds the repositories of whichever backend the config selects.
type stores struct {
	categories category.RepositoryAPI
	expenses   expense.RepositoryAPI
	users      user.RepositoryAPI
	reports    report.RepositoryAPI
	checks     map[string]rest.PingFunc
	closers    []func(ctx context.Context) error
}

func openStores(ctx context.Context, cfg internal.DatabaseConfig, debug bool) (*stores, error) {
	if cfg.Driver == internal.DriverMongo {
		client, db, err := storage.OpenMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		categories := categoryMongo.NewCategoryRepository(db)
		expenses := expenseMongo.NewExpenseRepository(db)
		users := userMongo.NewUserRepository(db)
		if err := ensureMongoIndexes(ctx, categories, expenses, users); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &stores{
			categories: categories,
			expenses:   expenses,
			users:      users,
			reports:    reportMongo.NewReportRepository(db),
			checks:     map[string]rest.PingFunc{"mongo": storage.MongoPing(client)},
			closers:    []func(context.Context) error{client.Disconnect},
		}, nil
	}

	db, err := storage.OpenGorm(cfg, debug)
	if err != nil {
		return nil, err
	}
	if cfg.Driver == internal.DriverSQLite {
		if err := storage.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}
	return sqlStores(db, cfg.Driver)
}

// sqlStores wires the gorm repositories plus the sqlx report queries that
// share the same connection pool.
func sqlStores(db *gorm.DB, driver string) (*stores, error) {
	sqlxDB, err := storage.SQLX(db, driver)
	if err != nil {
		return nil, err
	}
	return &stores{
		categories: categoryPostgres.NewCategoryRepository(db),
		expenses:   expensePostgres.NewExpenseRepository(db),
		users:      userPostgres.NewUserRepository(db),
		reports:    reportPostgres.NewReportRepository(sqlxDB),
		checks:     map[string]rest.PingFunc{driver: sqlxDB.PingContext},
		closers: []func(context.Context) error{func(context.Context) error {
			return sqlxDB.Close()
		}},
	}, nil
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

func ensureMongoIndexes(ctx context.Context, collections ...indexer) error {
	for _, c := range collections {
		if err := c.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure mongo indexes: %w", err)
		}
	}
	return nil
}

// App is the fully wired HTTP application.
type App struct {
	Config     *internal.Config
	Logger     *slog.Logger
	Router     *chi.Mux
	Bus        *events.EventBus
	Maintainer *balance.Maintainer
	Users      *user.Service
	Categories *category.Service
	Expenses   *expense.Service
	Reports    *report.Service

	closers []func(ctx context.Context) error
}

func newApp(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (*App, error) {
	st, err := openStores(ctx, cfg.Database, cfg.Observability.Logging.Level == "debug")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return buildApp(cfg, st, logger)
}

func buildApp(cfg *internal.Config, st *stores, logger *slog.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger, closers: st.closers}

	app.Bus = events.NewEventBus(logger)
	app.Bus.Subscribe(events.EventTypeBalanceChanged, balance.LimitAlertHandler(logger))

	if cfg.Messaging.AMQPURL != "" {
		publisher := amqp.NewReconnectingPublisher(func() (amqp.Conn, error) {
			client, err := amqp.NewClient(cfg.Messaging.AMQPURL, cfg.Messaging.Exchange, cfg.Messaging.Queue, logger)
			if err != nil {
				return nil, err
			}
			return client, nil
		}, logger)
		if err := publisher.Connect(); err != nil {
			_ = app.Close(context.Background())
			return nil, fmt.Errorf("failed to connect to broker: %w", err)
		}
		app.Bus.Subscribe(events.EventTypeBalanceChanged, amqp.NewForwarder(publisher))
		app.closers = append(app.closers, func(context.Context) error { return publisher.Close() })
		logger.Info("forwarding balance events", "exchange", cfg.Messaging.Exchange, "queue", cfg.Messaging.Queue)
	}

	var locker balance.Locker = balance.NoopLocker{}
	if cfg.Balance.SerializeCategoryUpdates {
		locker = balance.NewKeyedLocker()
	}

	app.Maintainer = balance.NewMaintainer(st.categories, st.expenses, logger, balance.Options{
		CategoryNameMinLen: cfg.Validation.CategoryNameMinLen,
		Locker:             locker,
		Publisher:          app.Bus,
	})

	multiTenant := cfg.Tenancy.MultiTenant
	baseHandler := transport.NewBaseHandler(logger, multiTenant)

	app.Users = user.NewService(st.users, logger, user.Options{
		UsernameMinLen: cfg.Validation.UsernameMinLen,
		PasswordMinLen: cfg.Validation.PasswordMinLen,
		BCryptCost:     cfg.Security.BCryptCost,
	})
	authService := auth.NewService(st.users,
		auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration), logger)
	app.Categories = category.NewService(st.categories, app.Maintainer, logger)
	app.Expenses = expense.NewService(st.expenses, app.Maintainer, st.categories, logger, expense.Options{
		AutoCreateCategories: !multiTenant,
		DescriptionMinLen:    cfg.Validation.DescriptionMinLen,
	})
	app.Reports = report.NewService(st.reports, st.categories, app.Maintainer, cfg.Balance.Currency, logger)

	app.Router = chi.NewRouter()
	rest.RegisterAllRoutes(app.Router, rest.Handlers{
		Health:   rest.NewHealthHandler(st.checks),
		Auth:     auth.NewHandler(baseHandler, authService),
		User:     user.NewHandler(baseHandler, app.Users),
		Category: category.NewHandler(baseHandler, app.Categories),
		Expense:  expense.NewHandler(baseHandler, app.Expenses),
		Report:   report.NewHandler(baseHandler, app.Reports),
	}, logger)

	return app, nil
}

// Close waits for in-flight event handlers and then releases every
// connection in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	if a.Bus != nil {
		a.Bus.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
