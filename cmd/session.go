package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrisdamba/ghostkitchen/internal/app"
	"github.com/chrisdamba/ghostkitchen/internal/models"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Controls a restaurant's ghost kitchen session",
}

var sessionEnableCmd = &cobra.Command{
	Use:   "enable <restaurant-id>",
	Short: "Opens a ghost kitchen session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var overrides models.SessionOverrides
		if flags.Changed("duration") {
			overrides.Duration, _ = flags.GetDuration("duration")
		}
		if flags.Changed("max-orders") {
			n, _ := flags.GetInt("max-orders")
			overrides.MaxOrders = &n
		}
		if flags.Changed("platforms") {
			names, _ := flags.GetStringSlice("platforms")
			for _, name := range names {
				overrides.Platforms = append(overrides.Platforms, models.Platform(strings.ToUpper(name)))
			}
		}
		return withApp(cmd, func(a *app.App) (any, error) {
			return a.Orchestrator.Enable(cmd.Context(), args[0], overrides)
		})
	},
}

var sessionPauseCmd = &cobra.Command{
	Use:   "pause <restaurant-id>",
	Short: "Pauses the active session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		duration, _ := cmd.Flags().GetDuration("duration")
		reason, _ := cmd.Flags().GetString("reason")
		return withApp(cmd, func(a *app.App) (any, error) {
			return a.Orchestrator.Pause(cmd.Context(), args[0], duration, reason)
		})
	},
}

var sessionResumeCmd = &cobra.Command{
	Use:   "resume <restaurant-id>",
	Short: "Resumes a paused session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) (any, error) {
			return a.Orchestrator.Resume(cmd.Context(), args[0])
		})
	},
}

var sessionDisableCmd = &cobra.Command{
	Use:   "disable <restaurant-id>",
	Short: "Ends the open session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		return withApp(cmd, func(a *app.App) (any, error) {
			return a.Orchestrator.Disable(cmd.Context(), args[0], models.EndReason(strings.ToUpper(reason)))
		})
	},
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status <restaurant-id>",
	Short: "Shows the live session state",
	Long: `status prints the live capacity view of this process and the stored open session. The
live order counter belongs to the process that enabled the session, so a separate status
process shows the stored session with enabled=false.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) (any, error) {
			return a.SessionStatus(cmd.Context(), args[0])
		})
	},
}

var sessionCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Runs auto-resume and scheduled-end checks, once or every --interval",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		return withApp(cmd, func(a *app.App) (any, error) {
			ctx := cmd.Context()
			summary, err := a.Orchestrator.RunScheduledChecks(ctx)
			if interval <= 0 || err != nil {
				return summary, err
			}
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				a.Logger.Info("scheduled checks ran",
					"checked", summary.Checked,
					"resumed", summary.Resumed,
					"ended", summary.Ended,
				)
				select {
				case <-ctx.Done():
					return summary, nil
				case <-ticker.C:
				}
				if summary, err = a.Orchestrator.RunScheduledChecks(ctx); err != nil {
					a.Logger.Error("scheduled checks failed", "err", err)
				}
			}
		})
	},
}

func init() {
	sessionEnableCmd.Flags().Duration("duration", 0, "end the session automatically after this long")
	sessionEnableCmd.Flags().Int("max-orders", 0, "override the restaurant's concurrent order limit")
	sessionEnableCmd.Flags().StringSlice("platforms", nil, "platforms to go live on, e.g. doordash,uber_eats")
	sessionPauseCmd.Flags().Duration("duration", 0, "resume automatically after this long (0 pauses until resumed)")
	sessionPauseCmd.Flags().String("reason", "", "why the kitchen is paused")
	sessionDisableCmd.Flags().String("reason", string(models.EndReasonManual), "end reason")
	sessionCheckCmd.Flags().Duration("interval", 0, "repeat the checks at this interval until interrupted")

	sessionCmd.AddCommand(sessionEnableCmd, sessionPauseCmd, sessionResumeCmd, sessionDisableCmd, sessionStatusCmd, sessionCheckCmd)
	rootCmd.AddCommand(sessionCmd)
}

// withApp wires the services, runs fn and prints its result as JSON.
func withApp(cmd *cobra.Command, fn func(a *app.App) (any, error)) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	out, err := fn(a)
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.CommandPath(), err)
	}
	return printJSON(cmd.OutOrStdout(), out)
}
