package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	migrations "github.com/gokatarajesh/code-battle/db/migrations"
	"github.com/gokatarajesh/code-battle/internal/config"
	"github.com/gokatarajesh/code-battle/internal/db/queries"
	"github.com/gokatarajesh/code-battle/internal/db/repository"
	"github.com/gokatarajesh/code-battle/internal/question"
)

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load("configs/.env")
	}

	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("migrator failed")
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "migrator",
		Short:         "Manage the code-battle database schema and question seed data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		gooseCmd("up", "Apply all pending migrations", goose.Up),
		gooseCmd("down", "Roll back the latest migration", goose.Down),
		gooseCmd("status", "Print migration status", goose.Status),
		seedCmd(),
	)
	return cmd
}

func loadPostgres() (config.Postgres, error) {
	var pg config.Postgres
	if err := env.Parse(&pg); err != nil {
		return pg, fmt.Errorf("parse postgres config: %w", err)
	}
	if !pg.Enabled() {
		return pg, fmt.Errorf("PG_HOST environment variable is required")
	}
	if pg.User == "" || pg.Database == "" {
		return pg, fmt.Errorf("PG_USER and PG_DATABASE environment variables are required")
	}
	return pg, nil
}

func gooseCmd(use, short string, run func(db *sql.DB, dir string, opts ...goose.OptionsFunc) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, err := loadPostgres()
			if err != nil {
				return err
			}

			db, err := sql.Open("pgx", pg.DSN())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := db.PingContext(cmd.Context()); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}
			log.Info().Str("host", pg.Host).Str("database", pg.Database).Msg("connected to database")

			goose.SetBaseFS(migrations.FS)
			goose.SetTableName("goose_db_version")
			if err := goose.SetDialect("postgres"); err != nil {
				return err
			}
			if err := run(db, "."); err != nil {
				return fmt.Errorf("goose %s: %w", use, err)
			}
			log.Info().Str("command", use).Msg("migration command finished")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var bankPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert the question bank file into the questions table",
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, err := loadPostgres()
			if err != nil {
				return err
			}
			bank, err := question.LoadFile(bankPath)
			if err != nil {
				return err
			}
			return seed(cmd.Context(), pg, bank)
		},
	}
	cmd.Flags().StringVar(&bankPath, "bank", "configs/questions.yaml", "question bank file (yaml or json)")
	return cmd
}

func seed(ctx context.Context, pg config.Postgres, bank *question.FileBank) error {
	pool, err := pgxpool.New(ctx, pg.DSN())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	repo := repository.NewQuestionRepository(queries.New(pool))
	all := bank.All()
	for _, q := range all {
		if err := repo.Upsert(ctx, q); err != nil {
			return fmt.Errorf("seed question %s: %w", q.ID, err)
		}
	}
	log.Info().Int("questions", len(all)).Msg("question bank seeded")
	return nil
}
