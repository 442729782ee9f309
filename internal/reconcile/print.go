package reconcile

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// PrintSummary renders a run summary for terminal consumption, owners
// with the most root flags first.
func PrintSummary(w io.Writer, s *Summary) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "%s corrected %d user(s), skipped %d\n",
		bold("Reconciliation:"), s.Updated, s.Skipped)

	if len(s.Owners) == 0 {
		fmt.Fprintln(w, "No root flags on record.")
		return
	}

	fmt.Fprintln(w, bold("Root flag owners:"))
	for _, owner := range s.Owners {
		names := make([]string, 0, len(owner.Roots))
		for _, root := range owner.Roots {
			name := root.Name
			if name == "" {
				name = fmt.Sprintf("#%d", root.ID)
			}
			names = append(names, name)
		}
		fmt.Fprintf(w, "  %s (%s): %s\n",
			green(owner.Name),
			owner.HTBID,
			yellow(strings.Join(names, ", ")))
	}
}
