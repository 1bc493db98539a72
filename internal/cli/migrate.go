package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"yds-challenge-service/internal/config"
	"yds-challenge-service/internal/infra/memory"
	"yds-challenge-service/internal/infra/postgres"
	pgmigrations "yds-challenge-service/internal/infra/postgres/migrations"
	"yds-challenge-service/internal/logging"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			db := postgres.Open(cfg.Postgres.URL)
			defer db.Close()

			if err := runMigrations(cmd.Context(), db, logger); err != nil {
				return err
			}
			if !seed {
				return nil
			}
			n, err := postgres.SeedQuestions(cmd.Context(), db, memory.SampleQuestions())
			if err != nil {
				return err
			}
			logger.Info("question bank seeded", zap.Int("inserted", n))
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load the sample question bank into an empty questions table")
	return cmd
}

func runMigrations(ctx context.Context, db *bun.DB, logger *zap.Logger) error {
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		logger.Info("no new migrations")
		return nil
	}
	logger.Info("migrations applied", zap.String("group", group.String()))
	return nil
}
