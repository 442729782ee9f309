// Package reconcile rebuilds the weekly counters and the resolved-machine
// set from the full activity history, correcting drift left behind by
// feed gaps, outages, or manual edits to the store. The job is idempotent:
// a second run against unchanged history changes nothing.
package reconcile

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/activity"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/htb"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/ledger"
)

// fetchConcurrency bounds the history fan-out against the API.
const fetchConcurrency = 4

// RootFlag is one ground-truth machine compromise.
type RootFlag struct {
	ID   int
	Name string
}

// Owner is one user holding root flags, for the summary report.
type Owner struct {
	Name  string
	HTBID string
	Roots []RootFlag
}

// Summary is the result of one reconciliation run.
type Summary struct {
	// Owners lists users with at least one root flag, most flags first.
	Owners []Owner
	// Updated counts users whose state was corrected.
	Updated int
	// Skipped counts users whose history could not be fetched this run.
	Skipped int
}

// Job refetches history and overwrites drifted state.
type Job struct {
	ledger *ledger.Ledger
	feed   htb.Feed
	log    *zap.Logger
}

// New builds a job. The logger may be nil.
func New(l *ledger.Ledger, feed htb.Feed, log *zap.Logger) *Job {
	if log == nil {
		log = zap.NewNop()
	}
	return &Job{ledger: l, feed: feed, log: log}
}

// Run reconciles every tracked user. Histories are fetched concurrently
// without holding the mutation lock; the corrections are then applied in
// one batch with a single persist, and only if something changed.
//
// Ground truth per user, derived from raw history independent of the
// incremental path:
//   - resolved machines: root-flag events whose id is counted and has no
//     unresolved pending user flag
//   - challenges: challenge events whose id is counted
//
// Counters are overwritten to the cardinality of those sets; streaks are
// never touched here.
func (j *Job) Run(ctx context.Context) (*Summary, error) {
	ids := j.ledger.UserIDs()

	// Fetch phase, no lock held.
	var mu sync.Mutex
	histories := make(map[string][]activity.Event, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			events, ok := j.feed.Activity(gctx, id)
			if !ok {
				j.log.Warn("no history this run, skipping user", zap.String("user", id))
				return nil
			}
			mu.Lock()
			histories[id] = events
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Apply phase, one batch under the ledger lock.
	summary := &Summary{Skipped: len(ids) - len(histories)}
	err := j.ledger.Update(func(users map[string]*ledger.User) bool {
		for _, id := range ids {
			events, ok := histories[id]
			if !ok {
				continue
			}
			u, ok := users[id]
			if !ok {
				// Unregistered while we were fetching.
				continue
			}

			if reconcileUser(u, events) {
				summary.Updated++
				j.log.Info("corrected drifted user state",
					zap.String("user", id),
					zap.Int("machines", u.Machines),
					zap.Int("challenges", u.Challenges))
			}

			if owner := ownerOf(id, u, events); owner != nil {
				summary.Owners = append(summary.Owners, *owner)
			}
		}
		return summary.Updated > 0
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(summary.Owners, func(i, k int) bool {
		if len(summary.Owners[i].Roots) != len(summary.Owners[k].Roots) {
			return len(summary.Owners[i].Roots) > len(summary.Owners[k].Roots)
		}
		return summary.Owners[i].Name < summary.Owners[k].Name
	})
	return summary, nil
}

// reconcileUser overwrites one user's derived state from raw history and
// reports whether anything changed.
func reconcileUser(u *ledger.User, events []activity.Event) bool {
	trueRoots := make(map[int]struct{})
	trueChallenges := make(map[int]struct{})
	for _, e := range events {
		switch {
		case e.RootFlag():
			if !u.Counted(e.ID) {
				continue
			}
			if _, pending := u.Pending[e.ID]; pending {
				continue
			}
			trueRoots[e.ID] = struct{}{}
		case e.Kind == activity.KindChallenge:
			if u.Counted(e.ID) {
				trueChallenges[e.ID] = struct{}{}
			}
		}
	}

	changed := false
	if !equalSets(u.Roots, trueRoots) {
		u.Roots = trueRoots
		changed = true
	}
	if u.Machines != len(trueRoots) {
		u.Machines = len(trueRoots)
		changed = true
	}
	if u.Challenges != len(trueChallenges) {
		u.Challenges = len(trueChallenges)
		changed = true
	}
	return changed
}

// ownerOf builds the summary entry for a user, nil if they hold no roots.
func ownerOf(id string, u *ledger.User, events []activity.Event) *Owner {
	names := make(map[int]string)
	for _, e := range events {
		if e.RootFlag() {
			names[e.ID] = e.Name
		}
	}

	roots := make([]RootFlag, 0, len(u.Roots))
	for rootID := range u.Roots {
		roots = append(roots, RootFlag{ID: rootID, Name: names[rootID]})
	}
	if len(roots) == 0 {
		return nil
	}
	sort.Slice(roots, func(i, k int) bool { return roots[i].ID < roots[k].ID })
	return &Owner{Name: u.Name, HTBID: id, Roots: roots}
}

func equalSets(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
