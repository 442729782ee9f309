// Package notify carries progress events out of the core. Delivery is
// best-effort and fire-and-forget: the ledger is the source of truth and
// a failed delivery never rolls a counter back.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/activity"
)

// Discord embed colors.
const (
	colorGreen  = 0x2ECC71
	colorOrange = 0xE67E22
	colorRed    = 0xE74C3C
	colorBlue   = 0x3498DB
	colorGrey   = 0x546E7A
)

// Notifier is the delivery contract the core calls. Implementations own
// all formatting and transport.
type Notifier interface {
	// Solve announces one counted solve or user-flag milestone.
	Solve(ctx context.Context, e SolveEvent) error
	// ResetReport announces the weekly reset breakdown.
	ResetReport(ctx context.Context, r ResetReport) error
	// Registered announces a newly tracked user.
	Registered(ctx context.Context, name, htbID, avatarURL string) error
}

// SolveEvent is the payload for one announced feed outcome.
type SolveEvent struct {
	UserName  string
	AvatarURL string

	Category activity.Category
	// Kind is the raw object type, used to label categories the tracker
	// does not model.
	Kind      activity.Kind
	EventName string
	// ChallengeCategory is the enrichment fetched for challenge solves,
	// empty when unavailable.
	ChallengeCategory string

	Machines   int
	Challenges int
	Streak     int

	GoalMachines   int
	GoalChallenges int
}

// DisplayType is the human label of the solve category.
func (e SolveEvent) DisplayType() string {
	switch e.Category {
	case activity.CategoryUserFlag:
		return "👤 User Flag"
	case activity.CategoryRoot:
		return "💀 Root Flag"
	case activity.CategoryChallenge:
		return "🧩 Challenge"
	default:
		kind := string(e.Kind)
		if kind == "" {
			return "Solve"
		}
		return strings.ToUpper(kind[:1]) + kind[1:]
	}
}

// Title is the announcement headline.
func (e SolveEvent) Title() string {
	return fmt.Sprintf("🚩 %s got a %s!", e.UserName, e.DisplayType())
}

// Description is the announcement body.
func (e SolveEvent) Description() string {
	switch e.Category {
	case activity.CategoryUserFlag:
		return fmt.Sprintf("**%s** user access obtained! Keep going for Root! 🚀", e.EventName)
	case activity.CategoryRoot:
		return fmt.Sprintf("**%s** has been fully compromised! System Own3d.", e.EventName)
	case activity.CategoryChallenge:
		if e.ChallengeCategory != "" {
			return fmt.Sprintf("**%s** (%s) has been solved.", e.EventName, e.ChallengeCategory)
		}
		return fmt.Sprintf("**%s** has been solved.", e.EventName)
	default:
		return fmt.Sprintf("**%s** completed.", e.EventName)
	}
}

// Color is the embed color for the event.
func (e SolveEvent) Color() int {
	switch e.Category {
	case activity.CategoryUserFlag:
		return colorOrange
	case activity.CategoryRoot:
		return colorRed
	default:
		return colorGreen
	}
}

// Progress renders the weekly progress field with per-goal pass marks.
func (e SolveEvent) Progress() string {
	mark := func(have, goal int) string {
		if have >= goal {
			return "✅"
		}
		return "❌"
	}
	return fmt.Sprintf("🖥️ %d/%d %s\n🧩 %d/%d %s",
		e.Machines, e.GoalMachines, mark(e.Machines, e.GoalMachines),
		e.Challenges, e.GoalChallenges, mark(e.Challenges, e.GoalChallenges))
}

// ResetLine is one user's entry in a reset report.
type ResetLine struct {
	Name       string
	DiscordID  string
	Machines   int
	Challenges int
	Streak     int
}

// ResetReport is the weekly reset breakdown handed to the notifier.
type ResetReport struct {
	Passed []ResetLine
	Failed []ResetLine

	GoalMachines   int
	GoalChallenges int
}

// PassedLines renders the goal-achieved section.
func (r ResetReport) PassedLines() []string {
	lines := make([]string, 0, len(r.Passed))
	for _, u := range r.Passed {
		lines = append(lines, fmt.Sprintf("🔥 **%s** (Streak: %d)", u.Name, u.Streak))
	}
	return lines
}

// FailedLines renders the missed-goals section.
func (r ResetReport) FailedLines() []string {
	lines := make([]string, 0, len(r.Failed))
	for _, u := range r.Failed {
		lines = append(lines, fmt.Sprintf("💀 **%s** (%d/%d 🖥️, %d/%d 🧩)",
			u.Name, u.Machines, r.GoalMachines, u.Challenges, r.GoalChallenges))
	}
	return lines
}

// Mentions returns the chat handles of failing users for the public
// callout. Users without an owner reference are skipped.
func (r ResetReport) Mentions() []string {
	var mentions []string
	for _, u := range r.Failed {
		if u.DiscordID != "" {
			mentions = append(mentions, "<@"+u.DiscordID+">")
		}
	}
	return mentions
}
