package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/notify"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Run the weekly goal check and reset now",
	Long: `Check every tracked member against the weekly goals, advance or break
streaks accordingly, zero the counters, and print the breakdown. The
scheduled run in 'serve' does exactly this at the configured time.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := buildApp(zap.NewNop())
		if err != nil {
			fatal(err)
		}

		report, err := app.engine().Perform()
		if err != nil {
			fatal(err)
		}

		ctx := context.Background()
		console := notify.NewConsole(os.Stdout)
		if err := console.ResetReport(ctx, report); err != nil {
			fatal(err)
		}

		// Deliver to Discord too when a webhook is configured.
		if webhook, ok := app.notifier.(*notify.Webhook); ok {
			if err := webhook.ResetReport(ctx, report); err != nil {
				fatal(err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
