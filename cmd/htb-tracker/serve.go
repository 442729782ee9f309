package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/reset"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/tracker"
)

var serveDebug bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the polling daemon",
	Long: `Start the daemon that polls every tracked member's activity feed,
announces new solves, and fires the weekly reset on schedule.

The daemon will:
1. Load the data file and the tracked roster
2. Poll each member's recent activity on the configured interval
3. Announce user flags, roots, and challenge solves exactly once
4. Check weekly goals and reset counters at the configured local time
5. Continue until stopped with Ctrl+C`,
	Run: func(cmd *cobra.Command, args []string) {
		log, err := newLogger(serveDebug)
		if err != nil {
			fatal(err)
		}
		defer func() { _ = log.Sync() }()

		app, err := buildApp(log)
		if err != nil {
			fatal(err)
		}

		schedule, err := app.cfg.Schedule()
		if err != nil {
			fatal(err)
		}

		t := tracker.New(tracker.Config{
			Ledger:   app.ledger,
			Feed:     app.feed,
			Notifier: app.notifier,
			Goals:    app.goals(),
			Interval: app.pollInterval(),
			Logger:   log,
		})
		scheduler := reset.NewScheduler(app.ledger, app.engine(), app.notifier, schedule, log)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		green := color.New(color.FgGreen).SprintFunc()
		cmd.Printf("%s Tracking %d member(s), polling every %s\n",
			green("✓"), app.ledger.Len(), app.pollInterval())

		go t.Run(ctx)
		go scheduler.Run(ctx)

		<-ctx.Done()
		log.Info("shutting down")
		t.Stop()
		scheduler.Stop()
	},
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Verbose human-readable logging")
}
