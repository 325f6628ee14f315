package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrisdamba/ghostkitchen/internal/app"
	"github.com/chrisdamba/ghostkitchen/internal/export"
	"github.com/chrisdamba/ghostkitchen/internal/models"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast [restaurant-id...]",
	Short: "Forecasts hourly dine-in and delivery demand",
	Long: `forecast predicts hourly demand for the given restaurants, or for every stored restaurant
when none are named. Use --hours to restrict one restaurant's forecast to specific hours,
--store to keep the forecast for accuracy tracking and --export to write it as parquet.`,
	RunE: runForecast,
}

func init() {
	forecastCmd.Flags().String("date", "", "forecast date as YYYY-MM-DD (default today)")
	forecastCmd.Flags().IntSlice("hours", nil, "hours of day to forecast (single restaurant only)")
	forecastCmd.Flags().Bool("store", false, "store the forecast for later accuracy tracking")
	forecastCmd.Flags().Bool("export", false, "write the forecast as parquet")
	forecastCmd.Flags().Int("accuracy", 0, "also report forecast accuracy over this many past days")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()
	dateValue, _ := flags.GetString("date")
	date, err := parseDate(dateValue)
	if err != nil {
		return err
	}
	hours, _ := flags.GetIntSlice("hours")
	if len(hours) > 0 && len(args) != 1 {
		return fmt.Errorf("%w: --hours needs exactly one restaurant id", models.ErrInvalidArgument)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var forecasts map[string][]models.HourlyForecast
	if len(hours) > 0 {
		fc, err := a.Forecaster.ForecastDemand(ctx, args[0], date, hours)
		if err != nil {
			return err
		}
		forecasts = map[string][]models.HourlyForecast{args[0]: fc}
	} else {
		ids, err := a.ResolveRestaurants(ctx, args)
		if err != nil {
			return err
		}
		forecasts, err = a.Forecaster.ForecastMany(ctx, ids, date)
		if err != nil {
			return err
		}
	}

	if store, _ := flags.GetBool("store"); store {
		for id, fc := range forecasts {
			if err := a.Forecaster.StoreForecast(ctx, id, date, fc); err != nil {
				return err
			}
		}
	}
	if doExport, _ := flags.GetBool("export"); doExport {
		if err := exportForecasts(ctx, a, date, forecasts); err != nil {
			return err
		}
	}

	out := map[string]any{"date": date.Format(time.DateOnly), "forecasts": forecasts}
	if days, _ := flags.GetInt("accuracy"); days > 0 {
		accuracy := make(map[string]*models.ForecastAccuracy, len(forecasts))
		for id := range forecasts {
			acc, err := a.Forecaster.Accuracy(ctx, id, days)
			if err != nil {
				return err
			}
			accuracy[id] = acc
		}
		out["accuracy"] = accuracy
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func exportForecasts(ctx context.Context, a *app.App, date time.Time, forecasts map[string][]models.HourlyForecast) error {
	exporter, err := export.NewFromConfig(ctx, a.Config.Export, a.Logger)
	if err != nil {
		return err
	}
	for id, fc := range forecasts {
		if err := exporter.WriteForecasts(ctx, id, date, fc); err != nil {
			exporter.Close()
			return err
		}
	}
	if err := exporter.Close(); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	return nil
}
