package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statsCmd = &cobra.Command{
	Use:   "stats <discord-id>",
	Short: "Show one member's weekly progress and streak",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := buildApp(zap.NewNop())
		if err != nil {
			fatal(err)
		}

		snap, ok := app.ledger.SnapshotByOwner(args[0])
		if !ok {
			fatal(fmt.Errorf("no tracked user for discord id %s", args[0]))
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		goals := app.goals()
		fmt.Printf("\n%s\n", cyan(fmt.Sprintf("=== %s ===", snap.Name)))
		fmt.Printf("  🖥️ Machines:    %d/%d\n", snap.Machines, goals.Machines)
		fmt.Printf("  🧩 Challenges:  %d/%d\n", snap.Challenges, goals.Challenges)
		fmt.Printf("  🔥 Streak:      %d week(s)\n", snap.Streak)
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
