// Package ledger holds the tracked-user collection and the mutation
// discipline around it. Every state change in the system (ingestion,
// resets, reconciliation, registration) funnels through one Ledger owned
// by the process; mutations and their persistence run under a single
// lock so no two tasks can interleave partial writes.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/activity"
)

var (
	// ErrAlreadyTracked is returned when registering an HTB id that is
	// already tracked.
	ErrAlreadyTracked = errors.New("user is already tracked")
	// ErrNotTracked is returned when an operation targets a user that is
	// not tracked.
	ErrNotTracked = errors.New("user is not tracked")
)

// Store persists the full ledger state. Save runs with the ledger's
// mutation lock held, so implementations see a consistent view but must
// not retain the map after returning.
type Store interface {
	Save(users map[string]*User, lastReset string) error
}

// nopStore discards saves. Used when no persistence is wired (tests).
type nopStore struct{}

func (nopStore) Save(map[string]*User, string) error { return nil }

// Ledger is the keyed collection of tracked users plus the last date the
// scheduled reset fired. It is the sole unit of persisted state: loaded
// once at process start, saved after every mutation batch.
type Ledger struct {
	mu        sync.Mutex
	users     map[string]*User
	lastReset string // ISO date in the reset timezone, "" if never fired
	store     Store
}

// New builds a ledger around previously loaded state. A nil store
// disables persistence; a nil user map starts empty. Loaded records from
// older store versions are normalized in place.
func New(users map[string]*User, lastReset string, store Store) *Ledger {
	if users == nil {
		users = make(map[string]*User)
	}
	for _, u := range users {
		u.normalize()
	}
	if store == nil {
		store = nopStore{}
	}
	return &Ledger{users: users, lastReset: lastReset, store: store}
}

// save persists the current state. Callers hold l.mu.
func (l *Ledger) save() error {
	return l.store.Save(l.users, l.lastReset)
}

// Register adds a new tracked user whose dedup sets are seeded from the
// given activity snapshot. Fails with ErrAlreadyTracked if the HTB id is
// already present; on any failure no partial user remains.
func (l *Ledger) Register(htbID, name, discordID string, snapshot []activity.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.users[htbID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyTracked, htbID)
	}
	l.users[htbID] = NewUser(name, discordID, snapshot)
	if err := l.save(); err != nil {
		delete(l.users, htbID)
		return fmt.Errorf("persisting registration of %s: %w", htbID, err)
	}
	return nil
}

// Unregister removes the user owned by the given chat handle and returns
// the removed HTB id. Fails with ErrNotTracked if no user matches.
func (l *Ledger) Unregister(discordID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, u := range l.users {
		if u.DiscordID == discordID {
			removed := u
			delete(l.users, id)
			if err := l.save(); err != nil {
				l.users[id] = removed
				return "", fmt.Errorf("persisting removal of %s: %w", id, err)
			}
			return id, nil
		}
	}
	return "", ErrNotTracked
}

// ApplyEvent classifies one activity event against the user's current
// dedup state and applies the resulting side effects, atomically with the
// classification and with persistence. The returned snapshot reflects the
// state after the event.
func (l *Ledger) ApplyEvent(htbID string, e activity.Event) (activity.Outcome, Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[htbID]
	if !ok {
		return activity.Outcome{}, Snapshot{}, fmt.Errorf("%w: %s", ErrNotTracked, htbID)
	}
	out := activity.Classify(e, u)
	if out.Type == activity.AlreadySeen {
		return out, u.snapshot(htbID), nil
	}
	u.apply(e, out)
	if err := l.save(); err != nil {
		return out, u.snapshot(htbID), fmt.Errorf("persisting event %d for %s: %w", e.ID, htbID, err)
	}
	return out, u.snapshot(htbID), nil
}

// SetName refreshes a user's display name if it changed. Missing users
// and unchanged names are ignored.
func (l *Ledger) SetName(htbID, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[htbID]
	if !ok || name == "" || u.Name == name {
		return nil
	}
	u.Name = name
	return l.save()
}

// Snapshot returns a read-only copy of one user's state.
func (l *Ledger) Snapshot(htbID string) (Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[htbID]
	if !ok {
		return Snapshot{}, false
	}
	return u.snapshot(htbID), true
}

// SnapshotByOwner returns the snapshot of the user owned by the given
// chat handle.
func (l *Ledger) SnapshotByOwner(discordID string) (Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, u := range l.users {
		if u.DiscordID == discordID {
			return u.snapshot(id), true
		}
	}
	return Snapshot{}, false
}

// UserIDs returns all tracked HTB ids in stable order.
func (l *Ledger) UserIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(l.users))
	for id := range l.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of tracked users.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

// Leaderboard returns all users ranked by total weekly solves, ties
// broken by streak, both descending.
func (l *Ledger) Leaderboard() []Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows := make([]Snapshot, 0, len(l.users))
	for id, u := range l.users {
		rows = append(rows, u.snapshot(id))
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Total() != rows[j].Total() {
			return rows[i].Total() > rows[j].Total()
		}
		if rows[i].Streak != rows[j].Streak {
			return rows[i].Streak > rows[j].Streak
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}

// LastReset returns the ISO date the scheduled reset last fired, or ""
// if it never has.
func (l *Ledger) LastReset() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastReset
}

// Update runs fn over the full user map under the mutation lock. If fn
// reports a change, the ledger is persisted once before the lock is
// released. The reset engine and the reconciliation job use this to make
// their batch mutations atomic with their single save.
//
// fn may also be handed the last-reset date through SetLastResetLocked
// semantics: mutating users directly is allowed, replacing the map is not.
func (l *Ledger) Update(fn func(users map[string]*User) bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !fn(l.users) {
		return nil
	}
	return l.save()
}

// MarkReset records the date of a scheduler-triggered reset and persists
// it, so a restart after the trigger time cannot double-fire.
func (l *Ledger) MarkReset(date string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastReset = date
	return l.save()
}
