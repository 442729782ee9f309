// Package reset implements the weekly goal evaluation and the calendar
// trigger that fires it. The engine is the only place streaks change and
// the only place weekly counters return to zero.
package reset

import (
	"sort"

	"go.uber.org/zap"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/ledger"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/notify"
)

// Goals are the fixed weekly thresholds. Both must be met; they are
// never summed.
type Goals struct {
	Machines   int
	Challenges int
}

// Engine evaluates every tracked user against the goals.
type Engine struct {
	ledger *ledger.Ledger
	goals  Goals
	log    *zap.Logger
}

// NewEngine builds an engine. The logger may be nil.
func NewEngine(l *ledger.Ledger, goals Goals, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{ledger: l, goals: goals, log: log}
}

// Perform runs one reset over all users: users meeting both goals gain a
// streak week, everyone else drops to zero, and both weekly counters are
// zeroed for the new week. All users are processed in one batch and the
// ledger persists once. The manual command and the scheduler call this
// identically.
func (e *Engine) Perform() (notify.ResetReport, error) {
	report := notify.ResetReport{
		GoalMachines:   e.goals.Machines,
		GoalChallenges: e.goals.Challenges,
	}

	err := e.ledger.Update(func(users map[string]*ledger.User) bool {
		ids := make([]string, 0, len(users))
		for id := range users {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			u := users[id]
			line := notify.ResetLine{
				Name:       u.Name,
				DiscordID:  u.DiscordID,
				Machines:   u.Machines,
				Challenges: u.Challenges,
			}

			if u.Machines >= e.goals.Machines && u.Challenges >= e.goals.Challenges {
				u.Streak++
				line.Streak = u.Streak
				report.Passed = append(report.Passed, line)
			} else {
				u.Streak = 0
				report.Failed = append(report.Failed, line)
			}
			u.Machines = 0
			u.Challenges = 0
		}
		return len(ids) > 0
	})
	if err != nil {
		return report, err
	}

	e.log.Info("weekly reset performed",
		zap.Int("passed", len(report.Passed)),
		zap.Int("failed", len(report.Failed)))
	return report, nil
}
