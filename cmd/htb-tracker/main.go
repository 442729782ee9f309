package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "htb-tracker",
	Short: "Track HackTheBox progress for a group of members",
	Long: `htb-tracker polls HackTheBox activity feeds for registered members,
announces solves, keeps weekly machine/challenge counters with streaks,
and resets them on a weekly schedule.

Run 'htb-tracker serve' to start the polling daemon, or use the one-shot
commands (track, stats, top, reset, reconcile) against the same data file.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML configuration file")
}
