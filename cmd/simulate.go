package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrisdamba/ghostkitchen/internal/app"
	"github.com/chrisdamba/ghostkitchen/internal/clock"
	"github.com/chrisdamba/ghostkitchen/internal/export"
	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/simulator"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replays synthetic ghost kitchen days through the session orchestrator",
	Long: `simulate seeds restaurants and crews, then replays each day between simulation.start_date
and simulation.end_date: sessions open and close, orders arrive, capacity limits end sessions
early and scheduled checks resume paused kitchens. With --export, every ended session's P&L,
the next day's forecasts and the last week's report are written as parquet.`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().Int64("seed", 0, "random seed (overrides simulation.seed)")
	simulateCmd.Flags().Int("restaurants", 0, "number of restaurants (overrides simulation.restaurants)")
	simulateCmd.Flags().Int("days", 0, "days to simulate from the start date (overrides simulation.end_date)")
	simulateCmd.Flags().Bool("export", false, "write results as parquet to export.path or export.s3_bucket")
	simulateCmd.Flags().Bool("no-progress", false, "hide the progress bar")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Simulation.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("restaurants") {
		cfg.Simulation.Restaurants, _ = flags.GetInt("restaurants")
	}
	if flags.Changed("days") {
		days, _ := flags.GetInt("days")
		cfg.Simulation.EndDate = cfg.Simulation.StartDate.AddDate(0, 0, days)
	}

	logger := app.NewLogger(cfg.LogLevel, os.Stderr)
	clk := clock.NewFake(cfg.Simulation.StartDate)
	a, err := app.New(ctx, cfg, logger, clk)
	if err != nil {
		return err
	}
	defer a.Close()

	var opts []simulator.Option
	if hide, _ := flags.GetBool("no-progress"); !hide {
		opts = append(opts, simulator.WithProgress(os.Stderr))
	}

	var exporter *export.ParquetExporter
	if doExport, _ := flags.GetBool("export"); doExport {
		exporter, err = export.NewFromConfig(ctx, cfg.Export, logger)
		if err != nil {
			return err
		}
		opts = append(opts, simulator.WithSessionHook(func(ctx context.Context, s *models.Session) error {
			pnl, err := a.Analytics.SessionPnL(ctx, s.ID)
			if err != nil {
				return err
			}
			return exporter.WriteSessionPnL(ctx, s, pnl)
		}))
	}

	sim := simulator.New(cfg.Simulation, a.Repos, a.Orchestrator, clk, logger, opts...)
	summary, err := sim.Run(ctx)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	if exporter != nil {
		if err := exportOutlook(ctx, a, exporter, sim.Restaurants(), clk); err != nil {
			exporter.Close()
			return err
		}
		if err := exporter.Close(); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
	}
	return printJSON(cmd.OutOrStdout(), summary)
}

// exportOutlook writes the forecast for the day after the run and the report of its last week.
func exportOutlook(ctx context.Context, a *app.App, exporter *export.ParquetExporter, restaurants []*models.Restaurant, clk *clock.Fake) error {
	now := clk.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	clk.Set(next)
	ids := make([]string, len(restaurants))
	for i, r := range restaurants {
		ids[i] = r.ID
	}

	forecasts, err := a.Forecaster.ForecastMany(ctx, ids, next)
	if err != nil {
		return err
	}
	for id, fc := range forecasts {
		if err := exporter.WriteForecasts(ctx, id, next, fc); err != nil {
			return err
		}
	}
	for _, id := range ids {
		report, err := a.Analytics.WeeklyReport(ctx, id, next.AddDate(0, 0, -7))
		if err != nil {
			return err
		}
		if err := exporter.WriteReport(ctx, report); err != nil {
			return err
		}
	}
	return nil
}
