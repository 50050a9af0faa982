package cmd

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/expense-tracker/db"
	"github.com/frahmantamala/expense-tracker/internal"
	categoryMongo "github.com/frahmantamala/expense-tracker/internal/category/mongo"
	"github.com/frahmantamala/expense-tracker/internal/core/storage"
	expenseMongo "github.com/frahmantamala/expense-tracker/internal/expense/mongo"
	userMongo "github.com/frahmantamala/expense-tracker/internal/user/mongo"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "apply the embedded schema migrations to the configured database",
	}
	migrateRollback bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg := mustLoadConfig()
	log := logger.LoggerWrapper()

	switch cfg.Database.Driver {
	case internal.DriverMongo:
		client, mdb, err := storage.OpenMongo(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(ctx) }()
		if err := ensureMongoIndexes(ctx,
			categoryMongo.NewCategoryRepository(mdb),
			expenseMongo.NewExpenseRepository(mdb),
			userMongo.NewUserRepository(mdb),
		); err != nil {
			return err
		}
		log.Info("mongo indexes ensured", "database", cfg.Database.MongoDatabase)
		return nil

	case internal.DriverSQLite:
		gdb, err := storage.OpenGorm(cfg.Database, false)
		if err != nil {
			return err
		}
		if err := storage.AutoMigrate(gdb); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("sqlite schema migrated", "source", cfg.Database.Source)
		return nil
	}

	sqlDB, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		return fmt.Errorf("goose: failed to open DB: %w", err)
	}
	defer sqlDB.Close()

	goose.SetBaseFS(db.Migrations)
	goose.SetTableName("schema_migrations")
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	command := "up"
	if migrateRollback {
		command = "down"
	}
	if err := goose.RunContext(ctx, command, sqlDB, db.MigrationsDir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	log.Info("migrations applied", "command", command)
	return nil
}
