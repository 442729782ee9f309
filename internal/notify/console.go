package notify

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/activity"
)

// Console prints notifications to a writer instead of a chat channel.
// Used by the serve command when no webhook is configured, and by local
// development runs.
type Console struct {
	out io.Writer
}

// NewConsole builds a console notifier writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Solve implements Notifier.
func (c *Console) Solve(_ context.Context, e SolveEvent) error {
	paint := color.New(color.FgGreen).SprintFunc()
	switch e.Category {
	case activity.CategoryUserFlag:
		paint = color.New(color.FgYellow).SprintFunc()
	case activity.CategoryRoot:
		paint = color.New(color.FgRed).SprintFunc()
	}
	fmt.Fprintf(c.out, "%s\n  %s\n  %s | Streak: %d\n",
		paint(e.Title()), plain(e.Description()),
		strings.ReplaceAll(plain(e.Progress()), "\n", "  "), e.Streak)
	return nil
}

// ResetReport implements Notifier.
func (c *Console) ResetReport(_ context.Context, r ResetReport) error {
	yellow := color.New(color.FgYellow, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(c.out, "%s\n", yellow("=== Weekly Reset & Report ==="))
	fmt.Fprintf(c.out, "%s\n", green("Goal Achieved:"))
	if lines := r.PassedLines(); len(lines) > 0 {
		for _, line := range lines {
			fmt.Fprintf(c.out, "  %s\n", plain(line))
		}
	} else {
		fmt.Fprintln(c.out, "  (none)")
	}
	fmt.Fprintf(c.out, "%s\n", red("Missed Goals:"))
	if lines := r.FailedLines(); len(lines) > 0 {
		for _, line := range lines {
			fmt.Fprintf(c.out, "  %s\n", plain(line))
		}
	} else {
		fmt.Fprintln(c.out, "  (none)")
	}
	return nil
}

// Registered implements Notifier.
func (c *Console) Registered(_ context.Context, name, htbID, _ string) error {
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(c.out, "%s now tracking %s (HTB id %s)\n", cyan("✓"), name, htbID)
	return nil
}

// plain strips the markdown bold markers used by the chat formatting.
func plain(s string) string {
	return strings.ReplaceAll(s, "**", "")
}
