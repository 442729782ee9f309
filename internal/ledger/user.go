package ledger

import (
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/activity"
)

// User is the tracked state for one HTB account. Counters are weekly and
// zeroed by the reset engine; the three id sets implement the dedup state
// machine (unseen -> partial announced -> resolved) and survive resets.
type User struct {
	// Name is the HTB display name, refreshed opportunistically.
	Name string
	// DiscordID is the owner's chat handle, used only for addressing
	// notifications and callouts. The core never interprets it.
	DiscordID string

	// Machines and Challenges are the weekly counters.
	Machines   int
	Challenges int
	// Streak counts consecutive weeks with both goals met. Only the
	// reset engine writes it.
	Streak int

	// Solved holds every event id that has been counted: challenges,
	// machines via their root flag, and unrecognized entries recorded
	// fail-safe. Never shrinks except through reconciliation.
	Solved map[int]struct{}
	// Pending holds machine ids whose user flag has been announced but
	// whose root flag has not been counted yet. Root resolution removes
	// the entry; membership here never adds to a counter.
	Pending map[int]struct{}
	// Roots is the ground-truth set of fully compromised machines.
	// Machines must equal len(Roots) after every reconciliation pass.
	Roots map[int]struct{}
}

// NewUser builds a user whose dedup sets are seeded from the current
// activity snapshot, so nothing achieved before registration is counted
// or announced later. User flags seed the pending set (their machines are
// not resolved); everything else seeds the counted set.
func NewUser(name, discordID string, snapshot []activity.Event) *User {
	u := &User{
		Name:      name,
		DiscordID: discordID,
		Solved:    make(map[int]struct{}),
		Pending:   make(map[int]struct{}),
		Roots:     make(map[int]struct{}),
	}
	for _, e := range snapshot {
		if e.UserFlag() {
			u.Pending[e.ID] = struct{}{}
		} else {
			u.Solved[e.ID] = struct{}{}
		}
	}
	return u
}

// normalize backfills nil sets on records loaded from older store versions.
func (u *User) normalize() {
	if u.Solved == nil {
		u.Solved = make(map[int]struct{})
	}
	if u.Pending == nil {
		u.Pending = make(map[int]struct{})
	}
	if u.Roots == nil {
		u.Roots = make(map[int]struct{})
	}
}

// Counted reports whether the event id has been counted toward a weekly
// total. Part of the classifier's DedupState view.
func (u *User) Counted(id int) bool {
	_, ok := u.Solved[id]
	return ok
}

// PartialSeen reports whether the user flag of machine id has already been
// announced, or the machine is already resolved. A resolved machine's user
// flag must not be re-announced even though resolution cleared its pending
// entry.
func (u *User) PartialSeen(id int) bool {
	if _, ok := u.Pending[id]; ok {
		return true
	}
	_, ok := u.Roots[id]
	return ok
}

// apply mutates exactly the fields the outcome dictates. Callers hold the
// ledger lock.
func (u *User) apply(e activity.Event, out activity.Outcome) {
	switch out.Type {
	case activity.Partial:
		u.Pending[e.ID] = struct{}{}
	case activity.Solve:
		u.Solved[e.ID] = struct{}{}
		switch out.Category {
		case activity.CategoryRoot:
			u.Machines++
			u.Roots[e.ID] = struct{}{}
			// Resolution: the machine leaves the pending stage for good.
			delete(u.Pending, e.ID)
		case activity.CategoryChallenge:
			u.Challenges++
		}
	}
}

// Snapshot is a read-only copy of a user's reportable state.
type Snapshot struct {
	ID         string
	Name       string
	DiscordID  string
	Machines   int
	Challenges int
	Streak     int
}

// Total is the combined weekly solve count used for leaderboard ranking.
func (s Snapshot) Total() int {
	return s.Machines + s.Challenges
}

func (u *User) snapshot(id string) Snapshot {
	return Snapshot{
		ID:         id,
		Name:       u.Name,
		DiscordID:  u.DiscordID,
		Machines:   u.Machines,
		Challenges: u.Challenges,
		Streak:     u.Streak,
	}
}
