package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var untrackCmd = &cobra.Command{
	Use:   "untrack <discord-id>",
	Short: "Stop tracking a member",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := buildApp(zap.NewNop())
		if err != nil {
			fatal(err)
		}

		htbID, err := app.ledger.Unregister(args[0])
		if err != nil {
			fatal(err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Stopped tracking HTB id %s\n", green("✓"), htbID)
	},
}

func init() {
	rootCmd.AddCommand(untrackCmd)
}
