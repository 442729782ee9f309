package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/reconcile"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Rebuild counters from full activity history",
	Long: `Refetch every tracked member's full activity history and overwrite the
machine/challenge counters and the resolved-machine set with what the
history actually supports. Streaks are never touched.

Useful after feed outages or manual edits to the data file. Running it
twice changes nothing the second time.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := buildApp(zap.NewNop())
		if err != nil {
			fatal(err)
		}

		summary, err := app.reconcileJob().Run(context.Background())
		if err != nil {
			fatal(err)
		}
		reconcile.PrintSummary(os.Stdout, summary)
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}
