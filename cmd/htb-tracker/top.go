package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var topLimit int

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the weekly leaderboard",
	Long: `List tracked members ordered by weekly solves (machines plus
challenges), streak breaking ties.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := buildApp(zap.NewNop())
		if err != nil {
			fatal(err)
		}

		rows := app.ledger.Leaderboard()
		if len(rows) == 0 {
			fmt.Println("📉 No users are being tracked yet!")
			return
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("=== Weekly Leaderboard ==="))

		medals := []string{"🥇", "🥈", "🥉"}
		for rank, row := range rows {
			if rank >= topLimit {
				break
			}
			icon := fmt.Sprintf("#%d", rank+1)
			if rank < len(medals) {
				icon = medals[rank]
			}
			fmt.Printf("  %s %-20s 🖥️ %d  🧩 %d  %s\n",
				icon, row.Name, row.Machines, row.Challenges,
				gray(fmt.Sprintf("🔥 %d", row.Streak)))
		}
		fmt.Printf("\n%s\n\n", gray(fmt.Sprintf("Total tracked hackers: %d", len(rows))))
	},
}

func init() {
	rootCmd.AddCommand(topCmd)
	topCmd.Flags().IntVar(&topLimit, "limit", 10, "Maximum number of rows to show")
}
