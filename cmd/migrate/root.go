package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/formr/engine/internal/library"
	"github.com/formr/engine/internal/migrations"
	"github.com/formr/engine/internal/models"
	"github.com/formr/engine/pkg/config"
	"github.com/formr/engine/pkg/database"
	"github.com/formr/engine/pkg/logger"
)

// newRootCmd builds the migrate CLI. Without a subcommand it migrates the
// schema and then seeds the control library.
func newRootCmd() *cobra.Command {
	var seedFile string

	root := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the FormR Engine database schema",
		Long: `migrate applies the FormR Engine schema and loads the control library.

  migrate up      create or update tables, indexes and foreign keys
  migrate seed    upsert the control library
  migrate         both, in that order

Connection settings come from DB_DRIVER and DATABASE_URL.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB) error {
				if err := migrate(ctx, db); err != nil {
					return err
				}
				return seed(ctx, db, seedFile)
			})
		},
	}
	root.PersistentFlags().StringVar(&seedFile, "seed-file", "", "control library YAML to load instead of the built-in one")

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), migrate)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Upsert the control library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB) error {
				return seed(ctx, db, seedFile)
			})
		},
	})
	return root
}

func withDB(ctx context.Context, fn func(context.Context, *gorm.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.Open(ctx, database.Options{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DBMaxOpenConns,
		Verbose:      cfg.LogLevel == "debug",
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return fn(ctx, db)
}

func migrate(ctx context.Context, db *gorm.DB) error {
	if err := migrations.Run(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.L().Info("migrations completed")
	return nil
}

func seed(ctx context.Context, db *gorm.DB, file string) error {
	entries, err := loadEntries(file)
	if err != nil {
		return err
	}
	if err := migrations.Seed(ctx, db, entries); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	logger.L().Info("control library seeded", zap.Int("entries", len(entries)), zap.String("source", sourceName(file)))
	return nil
}

func loadEntries(file string) ([]models.ControlLibraryEntry, error) {
	if file == "" {
		return library.Load()
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return library.Parse(data)
}

func sourceName(file string) string {
	if file == "" {
		return "built-in"
	}
	return file
}
