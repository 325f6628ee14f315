package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrisdamba/ghostkitchen/internal/export"
	"github.com/chrisdamba/ghostkitchen/internal/models"
)

var reportCmd = &cobra.Command{
	Use:   "report [restaurant-id]",
	Short: "Reports ghost kitchen profitability",
	Long: `report prints a weekly (--week) or monthly (--month) profit report for a restaurant, or the
P&L and forecast comparison of a single ended session (--session). --export also writes the
result as parquet.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("week", "", "first day of the week as YYYY-MM-DD")
	reportCmd.Flags().String("month", "", "month as YYYY-MM")
	reportCmd.Flags().String("session", "", "session id for a single-session P&L")
	reportCmd.Flags().Bool("export", false, "write the result as parquet")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()
	week, _ := flags.GetString("week")
	month, _ := flags.GetString("month")
	sessionID, _ := flags.GetString("session")
	doExport, _ := flags.GetBool("export")

	selected := 0
	for _, v := range []string{week, month, sessionID} {
		if v != "" {
			selected++
		}
	}
	if selected != 1 {
		return fmt.Errorf("%w: pass exactly one of --week, --month or --session", models.ErrInvalidArgument)
	}
	if sessionID == "" && len(args) != 1 {
		return fmt.Errorf("%w: --week and --month need a restaurant id", models.ErrInvalidArgument)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var exporter *export.ParquetExporter
	if doExport {
		exporter, err = export.NewFromConfig(ctx, a.Config.Export, a.Logger)
		if err != nil {
			return err
		}
		defer exporter.Close()
	}

	if sessionID != "" {
		session, err := a.Repos.Sessions.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		pnl, err := a.Analytics.SessionPnL(ctx, sessionID)
		if err != nil {
			return err
		}
		comparison, err := a.Analytics.CompareToForecast(ctx, sessionID)
		if err != nil {
			return err
		}
		if exporter != nil {
			if err := exporter.WriteSessionPnL(ctx, session, pnl); err != nil {
				return err
			}
			if err := exporter.Close(); err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{"pnl": pnl, "comparison": comparison})
	}

	var report *models.Report
	if week != "" {
		start, err := parseDate(week)
		if err != nil {
			return err
		}
		report, err = a.Analytics.WeeklyReport(ctx, args[0], start)
		if err != nil {
			return err
		}
	} else {
		m, err := time.Parse("2006-01", month)
		if err != nil {
			return fmt.Errorf("%w: month %q must be YYYY-MM", models.ErrInvalidArgument, month)
		}
		report, err = a.Analytics.MonthlyReport(ctx, args[0], m.Year(), m.Month(), time.UTC)
		if err != nil {
			return err
		}
	}
	if exporter != nil {
		if err := exporter.WriteReport(ctx, report); err != nil {
			return err
		}
		if err := exporter.Close(); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
	}
	return printJSON(cmd.OutOrStdout(), report)
}
