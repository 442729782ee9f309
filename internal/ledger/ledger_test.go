package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/activity"
)

// countingStore records how many times the ledger persisted itself.
type countingStore struct {
	saves int
	fail  error
}

func (s *countingStore) Save(map[string]*User, string) error {
	if s.fail != nil {
		return s.fail
	}
	s.saves++
	return nil
}

func userFlag(id int) activity.Event {
	return activity.Event{ID: id, Kind: activity.KindMachine, Flag: activity.FlagUser, Name: "box"}
}

func rootFlag(id int) activity.Event {
	return activity.Event{ID: id, Kind: activity.KindMachine, Flag: activity.FlagRoot, Name: "box"}
}

func challenge(id int) activity.Event {
	return activity.Event{ID: id, Kind: activity.KindChallenge, Name: "chal"}
}

func TestRegisterAndUnregister(t *testing.T) {
	l := New(nil, "", nil)

	require.NoError(t, l.Register("1337", "kolokythakis", "discord-1", nil))
	assert.ErrorIs(t, l.Register("1337", "kolokythakis", "discord-2", nil), ErrAlreadyTracked)

	snap, ok := l.SnapshotByOwner("discord-1")
	require.True(t, ok)
	assert.Equal(t, "1337", snap.ID)
	assert.Equal(t, "kolokythakis", snap.Name)

	_, err := l.Unregister("discord-9")
	assert.ErrorIs(t, err, ErrNotTracked)

	id, err := l.Unregister("discord-1")
	require.NoError(t, err)
	assert.Equal(t, "1337", id)
	assert.Equal(t, 0, l.Len())
}

func TestRegisterRollsBackOnSaveFailure(t *testing.T) {
	st := &countingStore{fail: errors.New("disk full")}
	l := New(nil, "", st)

	err := l.Register("1337", "name", "discord-1", nil)
	require.Error(t, err)
	assert.Equal(t, 0, l.Len(), "failed registration must leave no partial user")
}

func TestSeededSnapshotIsNotRecounted(t *testing.T) {
	l := New(nil, "", nil)
	snapshot := []activity.Event{rootFlag(10), challenge(20), userFlag(30)}
	require.NoError(t, l.Register("7", "n", "d", snapshot))

	// Replaying the same history must classify everything as already seen.
	for _, e := range snapshot {
		out, snap, err := l.ApplyEvent("7", e)
		require.NoError(t, err)
		assert.Equal(t, activity.AlreadySeen, out.Type, "event %d", e.ID)
		assert.Equal(t, 0, snap.Machines)
		assert.Equal(t, 0, snap.Challenges)
	}
}

func TestUserFlagThenRootCountsOnce(t *testing.T) {
	l := New(nil, "", nil)
	require.NoError(t, l.Register("7", "n", "d", nil))

	out, snap, err := l.ApplyEvent("7", userFlag(101))
	require.NoError(t, err)
	assert.Equal(t, activity.Partial, out.Type)
	assert.Equal(t, 0, snap.Machines, "user flag adds no points")

	out, snap, err = l.ApplyEvent("7", rootFlag(101))
	require.NoError(t, err)
	assert.Equal(t, activity.Solve, out.Type)
	assert.Equal(t, activity.CategoryRoot, out.Category)
	assert.Equal(t, 1, snap.Machines)

	// Feed replays of either stage change nothing.
	out, snap, err = l.ApplyEvent("7", userFlag(101))
	require.NoError(t, err)
	assert.Equal(t, activity.AlreadySeen, out.Type)
	out, snap, err = l.ApplyEvent("7", rootFlag(101))
	require.NoError(t, err)
	assert.Equal(t, activity.AlreadySeen, out.Type)
	assert.Equal(t, 1, snap.Machines)
}

func TestRootWithoutUserFlagCountsOnce(t *testing.T) {
	l := New(nil, "", nil)
	require.NoError(t, l.Register("7", "n", "d", nil))

	out, snap, err := l.ApplyEvent("7", rootFlag(55))
	require.NoError(t, err)
	assert.Equal(t, activity.Solve, out.Type)
	assert.Equal(t, 1, snap.Machines)

	out, snap, err = l.ApplyEvent("7", rootFlag(55))
	require.NoError(t, err)
	assert.Equal(t, activity.AlreadySeen, out.Type)
	assert.Equal(t, 1, snap.Machines)
}

func TestResolutionClearsPendingStage(t *testing.T) {
	l := New(nil, "", nil)
	require.NoError(t, l.Register("7", "n", "d", nil))

	_, _, err := l.ApplyEvent("7", userFlag(101))
	require.NoError(t, err)
	_, _, err = l.ApplyEvent("7", rootFlag(101))
	require.NoError(t, err)

	var u *User
	require.NoError(t, l.Update(func(users map[string]*User) bool {
		u = users["7"]
		return false
	}))
	assert.NotContains(t, u.Pending, 101, "resolution removes the pending entry")
	assert.Contains(t, u.Solved, 101)
	assert.Contains(t, u.Roots, 101)
}

func TestChallengeCounting(t *testing.T) {
	l := New(nil, "", nil)
	require.NoError(t, l.Register("7", "n", "d", nil))

	out, snap, err := l.ApplyEvent("7", challenge(300))
	require.NoError(t, err)
	assert.Equal(t, activity.CategoryChallenge, out.Category)
	assert.Equal(t, 1, snap.Challenges)

	out, snap, err = l.ApplyEvent("7", challenge(300))
	require.NoError(t, err)
	assert.Equal(t, activity.AlreadySeen, out.Type)
	assert.Equal(t, 1, snap.Challenges)
}

func TestUnrecognizedEntriesCountIntoNoCounter(t *testing.T) {
	l := New(nil, "", nil)
	require.NoError(t, l.Register("7", "n", "d", nil))

	e := activity.Event{ID: 900, Kind: "fortress", Name: "Jet"}
	out, snap, err := l.ApplyEvent("7", e)
	require.NoError(t, err)
	assert.Equal(t, activity.Solve, out.Type)
	assert.Equal(t, activity.CategoryOther, out.Category)
	assert.Equal(t, 0, snap.Machines)
	assert.Equal(t, 0, snap.Challenges)

	out, _, err = l.ApplyEvent("7", e)
	require.NoError(t, err)
	assert.Equal(t, activity.AlreadySeen, out.Type)
}

func TestApplyEventUnknownUser(t *testing.T) {
	l := New(nil, "", nil)
	_, _, err := l.ApplyEvent("404", challenge(1))
	assert.ErrorIs(t, err, ErrNotTracked)
}

func TestPersistenceCadence(t *testing.T) {
	st := &countingStore{}
	l := New(nil, "", st)
	require.NoError(t, l.Register("7", "n", "d", nil))
	require.Equal(t, 1, st.saves)

	// Each counting event persists; an already-seen replay does not.
	_, _, err := l.ApplyEvent("7", challenge(1))
	require.NoError(t, err)
	assert.Equal(t, 2, st.saves)

	_, _, err = l.ApplyEvent("7", challenge(1))
	require.NoError(t, err)
	assert.Equal(t, 2, st.saves, "already-seen outcomes must not persist")

	// A batch update persists exactly once, and only when changed.
	require.NoError(t, l.Update(func(users map[string]*User) bool { return false }))
	assert.Equal(t, 2, st.saves)
	require.NoError(t, l.Update(func(users map[string]*User) bool {
		users["7"].Machines = 0
		return true
	}))
	assert.Equal(t, 3, st.saves)
}

func TestLeaderboardOrder(t *testing.T) {
	l := New(nil, "", nil)
	require.NoError(t, l.Register("1", "alpha", "d1", nil))
	require.NoError(t, l.Register("2", "beta", "d2", nil))
	require.NoError(t, l.Register("3", "gamma", "d3", nil))

	require.NoError(t, l.Update(func(users map[string]*User) bool {
		users["1"].Machines, users["1"].Challenges, users["1"].Streak = 1, 1, 0
		users["2"].Machines, users["2"].Challenges, users["2"].Streak = 0, 2, 5
		users["3"].Machines, users["3"].Challenges, users["3"].Streak = 3, 2, 1
		return true
	}))

	rows := l.Leaderboard()
	require.Len(t, rows, 3)
	assert.Equal(t, "gamma", rows[0].Name, "highest total first")
	assert.Equal(t, "beta", rows[1].Name, "streak breaks the tie")
	assert.Equal(t, "alpha", rows[2].Name)
}

func TestNormalizeLoadedUsers(t *testing.T) {
	loaded := map[string]*User{
		"7": {Name: "old", DiscordID: "d"},
	}
	l := New(loaded, "", nil)

	out, _, err := l.ApplyEvent("7", challenge(1))
	require.NoError(t, err)
	assert.Equal(t, activity.Solve, out.Type, "nil sets from old records must not panic")
}
