package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"unicorn-math-bot/internal/app"
	"unicorn-math-bot/internal/config"
	pgstore "unicorn-math-bot/internal/infra/postgres"
)

// NewExportCmd dumps the full game history as CSV.
func NewExportCmd(configPath *string) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all game results as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), *configPath, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write to (default stdout)")
	return cmd
}

func runExport(ctx context.Context, configPath, output string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	aggregator := app.NewAggregator(pgstore.NewUserRepository(pool), pgstore.NewResultRepository(pool))
	return aggregator.ExportResults(ctx, w)
}
