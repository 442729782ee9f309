package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/repl"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start the interactive admin console",
	Long: `Open an interactive shell over the same data the daemon uses:
registration dialogues, stats, the leaderboard, and manual reset or
reconciliation runs. Type 'help' inside the console for commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := buildApp(zap.NewNop())
		if err != nil {
			fatal(err)
		}

		shell, err := repl.New(repl.Config{
			Ledger:   app.ledger,
			Feed:     app.feed,
			Notifier: app.notifier,
			Engine:   app.engine(),
			Job:      app.reconcileJob(),
			Goals:    app.goals(),
		})
		if err != nil {
			fatal(err)
		}
		if err := shell.Run(context.Background()); err != nil {
			fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
