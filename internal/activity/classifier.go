package activity

// OutcomeType is the semantic result of classifying one event.
type OutcomeType int

const (
	// AlreadySeen means the event was processed in an earlier cycle.
	// No side effect, no notification.
	AlreadySeen OutcomeType = iota
	// Solve means the event counts toward a weekly total. The caller must
	// record the id as counted and increment the counter for the outcome's
	// category.
	Solve
	// Partial means a machine's user flag was observed for the first time.
	// The caller must record the pending stage so the same flag is not
	// announced twice; no counter changes.
	Partial
)

// Category identifies which counter (and which announcement style) a
// solve belongs to.
type Category string

const (
	// CategoryRoot is a full machine compromise. Increments the machine
	// counter and joins the resolved-machine set.
	CategoryRoot Category = "root"
	// CategoryUserFlag is the notification-only intermediate machine stage.
	CategoryUserFlag Category = "user"
	// CategoryChallenge is a single-stage challenge solve. Increments the
	// challenge counter.
	CategoryChallenge Category = "challenge"
	// CategoryOther covers object types the tracker does not model
	// (fortresses, endgames, sherlocks). Counted into the dedup set but
	// into no weekly counter, so a feed quirk can never re-announce forever.
	CategoryOther Category = "other"
)

// Outcome is the classifier's verdict for one event.
type Outcome struct {
	Type     OutcomeType
	Category Category
}

// DedupState is the read-only view of a user's dedup bookkeeping that
// classification needs. *ledger.User satisfies it.
type DedupState interface {
	// Counted reports whether the event id has already been counted
	// toward a weekly total.
	Counted(id int) bool
	// PartialSeen reports whether the user flag stage of the machine id
	// has already been announced.
	PartialSeen(id int) bool
}

// Classify maps one event to its outcome given the owning user's current
// dedup state.
//
// Rules, in priority order:
//  1. Machine user flag: announced once, never counted. Dedup key is the
//     pending-partial entry for the machine id.
//  2. Machine root flag: the authoritative solve. Fires whether or not the
//     user flag was ever observed (feeds drop entries); idempotent on the
//     event id.
//  3. Challenge: single-stage solve, idempotent on the event id.
//  4. Anything else: counted into the dedup set with a generic category so
//     it is never re-evaluated. Fail-safe dedup beats fail-safe counting.
func Classify(e Event, state DedupState) Outcome {
	switch {
	case e.UserFlag():
		if state.PartialSeen(e.ID) {
			return Outcome{Type: AlreadySeen}
		}
		return Outcome{Type: Partial, Category: CategoryUserFlag}
	case e.RootFlag():
		if state.Counted(e.ID) {
			return Outcome{Type: AlreadySeen}
		}
		return Outcome{Type: Solve, Category: CategoryRoot}
	case e.Kind == KindChallenge:
		if state.Counted(e.ID) {
			return Outcome{Type: AlreadySeen}
		}
		return Outcome{Type: Solve, Category: CategoryChallenge}
	default:
		if state.Counted(e.ID) {
			return Outcome{Type: AlreadySeen}
		}
		return Outcome{Type: Solve, Category: CategoryOther}
	}
}
