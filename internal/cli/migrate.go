package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // "pgx" database/sql driver for goose
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/pkordes/showing-tours/internal/config"
	"github.com/pkordes/showing-tours/migrations"
)

// NewMigrateCmd groups the schema migration commands.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect database migrations",
	}
	cmd.AddCommand(migrateSubcommand("up", "Apply every pending migration", func(ctx context.Context, p *goose.Provider, out io.Writer) error {
		results, err := p.Up(ctx)
		for _, r := range results {
			fmt.Fprintf(out, "applied %s (%s)\n", r.Source.Path, r.Duration)
		}
		if len(results) == 0 && err == nil {
			fmt.Fprintln(out, "schema is up to date")
		}
		return err
	}))
	cmd.AddCommand(migrateSubcommand("down", "Roll back the most recent migration", func(ctx context.Context, p *goose.Provider, out io.Writer) error {
		r, err := p.Down(ctx)
		if r != nil {
			fmt.Fprintf(out, "rolled back %s\n", r.Source.Path)
		}
		return err
	}))
	cmd.AddCommand(migrateSubcommand("status", "List migrations and whether they are applied", func(ctx context.Context, p *goose.Provider, out io.Writer) error {
		statuses, err := p.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			applied := "-"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(out, "%-8s %-20s %s\n", s.State, applied, s.Source.Path)
		}
		return nil
	}))
	return cmd
}

func migrateSubcommand(use, short string, run func(context.Context, *goose.Provider, io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return withProvider(cmd.Context(), cfg.DatabaseURL, func(p *goose.Provider) error {
				return run(cmd.Context(), p, cmd.OutOrStdout())
			})
		},
	}
}

// migrateUp applies pending migrations; serve --migrate uses it.
func migrateUp(ctx context.Context, dsn string, log *slog.Logger) error {
	return withProvider(ctx, dsn, func(p *goose.Provider) error {
		results, err := p.Up(ctx)
		for _, r := range results {
			log.Info("migration applied", "version", r.Source.Version, "duration_ms", r.Duration.Milliseconds())
		}
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		return nil
	})
}

// withProvider opens a database/sql handle (goose does not drive pgx pools)
// and a goose provider over the embedded migrations.
func withProvider(ctx context.Context, dsn string, fn func(*goose.Provider) error) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	return fn(provider)
}
