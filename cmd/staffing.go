package cmd

import (
	"github.com/spf13/cobra"
)

var staffingCmd = &cobra.Command{
	Use:   "staffing <restaurant-id>",
	Short: "Recommends staffing from the demand forecast",
	Long: `staffing turns the day's forecast into hourly delivery and server counts, suggested ghost
kitchen shifts and adjustments to the existing schedule. With --opportunities it lists the
high-demand windows instead; --auto-create books ghost kitchen shifts for each of them.`,
	Args: cobra.ExactArgs(1),
	RunE: runStaffing,
}

func init() {
	staffingCmd.Flags().String("date", "", "date as YYYY-MM-DD (default today)")
	staffingCmd.Flags().Bool("opportunities", false, "list forecasted ghost kitchen opportunities")
	staffingCmd.Flags().Bool("auto-create", false, "create ghost kitchen shifts for every opportunity")
	staffingCmd.Flags().Bool("assign", false, "assign the best available delivery workers to created shifts")
	staffingCmd.Flags().String("actor", "ghostkitchen-cli", "who the created shifts are attributed to")
	rootCmd.AddCommand(staffingCmd)
}

func runStaffing(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()
	dateValue, _ := flags.GetString("date")
	date, err := parseDate(dateValue)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	listOpps, _ := flags.GetBool("opportunities")
	autoCreate, _ := flags.GetBool("auto-create")
	if !listOpps && !autoCreate {
		rec, err := a.Recommender.Recommend(ctx, args[0], date)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rec)
	}

	opps, err := a.Recommender.FindOpportunities(ctx, args[0], date)
	if err != nil {
		return err
	}
	if !autoCreate {
		return printJSON(cmd.OutOrStdout(), opps)
	}

	assign, _ := flags.GetBool("assign")
	actor, _ := flags.GetString("actor")
	created := map[string]any{"opportunities": opps}
	var shifts []any
	for _, opp := range opps {
		out, err := a.Recommender.AutoCreateGhostShifts(ctx, opp, assign, actor)
		if err != nil {
			return err
		}
		for _, s := range out {
			shifts = append(shifts, s)
		}
		a.Logger.Info("ghost kitchen shifts created",
			"restaurant_id", opp.RestaurantID,
			"start_hour", opp.StartHour,
			"end_hour", opp.EndHour,
			"shifts", len(out),
		)
	}
	created["shifts"] = shifts
	return printJSON(cmd.OutOrStdout(), created)
}
