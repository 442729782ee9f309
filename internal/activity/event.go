package activity

import "fmt"

// Kind is the object type of a feed entry as reported by the HTB API.
type Kind string

const (
	// KindMachine is a machine entry. Machines complete in two stages:
	// a user flag followed by a root flag.
	KindMachine Kind = "machine"
	// KindChallenge is a challenge entry. Challenges complete in one stage.
	KindChallenge Kind = "challenge"
)

// Flag is the completion stage of a machine entry. Non-machine entries
// carry no flag.
type Flag string

const (
	// FlagUser is the intermediate user-access stage of a machine.
	FlagUser Flag = "user"
	// FlagRoot is the full compromise of a machine. Only the root flag
	// counts toward the weekly machine total.
	FlagRoot Flag = "root"
	// FlagNone marks entries without a flag stage (challenges, fortresses, ...).
	FlagNone Flag = ""
)

// Event is one activity feed entry in strict internal form. It is built
// at the ingestion boundary immediately after fetch; entries missing
// required fields never make it past New.
type Event struct {
	ID   int
	Kind Kind
	Flag Flag
	Name string
}

// New validates a raw feed entry and returns its strict form. The id and
// object type are required; everything else is carried through as-is.
// Unknown object types are deliberately allowed (the classifier handles
// them fail-safe), but an entry without an id cannot be deduplicated and
// is rejected.
func New(id int, objectType, flagType, name string) (Event, error) {
	if id <= 0 {
		return Event{}, fmt.Errorf("activity entry %q has invalid id %d", name, id)
	}
	if objectType == "" {
		return Event{}, fmt.Errorf("activity entry %d (%q) has no object type", id, name)
	}
	return Event{
		ID:   id,
		Kind: Kind(objectType),
		Flag: Flag(flagType),
		Name: name,
	}, nil
}

// UserFlag reports whether the event is the intermediate stage of a machine.
func (e Event) UserFlag() bool {
	return e.Kind == KindMachine && e.Flag == FlagUser
}

// RootFlag reports whether the event is the authoritative completion of a
// machine.
func (e Event) RootFlag() bool {
	return e.Kind == KindMachine && e.Flag == FlagRoot
}
