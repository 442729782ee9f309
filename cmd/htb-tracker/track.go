package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/tracker"
)

var trackCmd = &cobra.Command{
	Use:   "track <htb-id> <discord-id>",
	Short: "Register a member for tracking",
	Long: `Register a member by their numeric HackTheBox user id and the Discord
id that owns them. The id is verified against the platform, and the
member's current activity snapshot seeds the dedup state so past solves
are never announced or counted.

Example:
  htb-tracker track 414141 268431299

Use the interactive console ('htb-tracker console') for a guided
registration dialogue instead.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := buildApp(zap.NewNop())
		if err != nil {
			fatal(err)
		}

		name, err := tracker.Register(context.Background(), app.ledger, app.feed, app.notifier, args[0], args[1])
		if err != nil {
			fatal(err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Tracking %s (HTB id %s, owner %s)\n", green("✓"), name, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(trackCmd)
}
