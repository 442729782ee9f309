package repl

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/activity"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/htb"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/ledger"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/reset"
)

type stubFeed struct {
	profiles  map[string]htb.Profile
	histories map[string][]activity.Event
}

func (s *stubFeed) Activity(_ context.Context, userID string) ([]activity.Event, bool) {
	events, ok := s.histories[userID]
	return events, ok
}

func (s *stubFeed) Profile(_ context.Context, userID string) (htb.Profile, bool) {
	p, ok := s.profiles[userID]
	return p, ok
}

func (s *stubFeed) ChallengeCategory(_ context.Context, _ int) (string, bool) {
	return "", false
}

func newTestREPL(t *testing.T, feed htb.Feed, l *ledger.Ledger) (*REPL, *bytes.Buffer) {
	t.Helper()
	r, err := New(Config{
		Ledger: l,
		Feed:   feed,
		Goals:  reset.Goals{Machines: 1, Challenges: 2},
	})
	require.NoError(t, err)
	var out bytes.Buffer
	r.out = &out
	return r, &out
}

func TestNewRequiresWiring(t *testing.T) {
	_, err := New(Config{Feed: &stubFeed{}})
	assert.Error(t, err)

	_, err = New(Config{Ledger: ledger.New(nil, "", nil)})
	assert.Error(t, err)
}

func TestTrackDialogueRegistersUser(t *testing.T) {
	feed := &stubFeed{
		profiles:  map[string]htb.Profile{"41414": {Name: "mantis"}},
		histories: map[string][]activity.Event{},
	}
	l := ledger.New(nil, "", nil)
	r, out := newTestREPL(t, feed, l)

	go func() { r.lines <- lineResult{line: "41414"} }()
	err := r.cmdTrack(context.Background(), []string{"discord-1"})
	require.NoError(t, err)

	snap, ok := l.SnapshotByOwner("discord-1")
	require.True(t, ok)
	assert.Equal(t, "mantis", snap.Name)
	assert.Contains(t, out.String(), "Tracking mantis")
}

func TestTrackDialogueTimesOutCleanly(t *testing.T) {
	l := ledger.New(nil, "", nil)
	r, out := newTestREPL(t, &stubFeed{}, l)
	r.askTimeout = 10 * time.Millisecond

	err := r.cmdTrack(context.Background(), []string{"discord-1"})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Timed out")
	assert.Equal(t, 0, l.Len())
}

func TestTrackRejectsNonNumericReply(t *testing.T) {
	l := ledger.New(nil, "", nil)
	r, _ := newTestREPL(t, &stubFeed{}, l)

	go func() { r.lines <- lineResult{line: "not-a-number"} }()
	err := r.cmdTrack(context.Background(), []string{"discord-1"})
	assert.Error(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestUntrackAndStats(t *testing.T) {
	l := ledger.New(nil, "", nil)
	require.NoError(t, l.Register("7", "gh0st", "discord-7", nil))
	r, out := newTestREPL(t, &stubFeed{}, l)

	require.NoError(t, r.cmdStats(context.Background(), []string{"discord-7"}))
	assert.Contains(t, out.String(), "gh0st")
	assert.Contains(t, out.String(), "0/1 machines")
	assert.Contains(t, out.String(), "0/2 challenges")

	require.NoError(t, r.cmdUntrack(context.Background(), []string{"discord-7"}))
	assert.Equal(t, 0, l.Len())

	err := r.cmdStats(context.Background(), []string{"discord-7"})
	assert.ErrorIs(t, err, ledger.ErrNotTracked)
}

func TestTopListsUsersAndEmptyMessage(t *testing.T) {
	l := ledger.New(nil, "", nil)
	r, out := newTestREPL(t, &stubFeed{}, l)

	require.NoError(t, r.cmdTop(context.Background(), nil))
	assert.Contains(t, out.String(), "No users are being tracked yet")

	require.NoError(t, l.Register("1", "alpha", "d1", nil))
	require.NoError(t, l.Register("2", "bravo", "d2", nil))
	out.Reset()

	require.NoError(t, r.cmdTop(context.Background(), nil))
	assert.Contains(t, out.String(), "🥇")
	assert.Contains(t, out.String(), "alpha")
	assert.Contains(t, out.String(), "Total tracked hackers: 2")
}

func TestUnknownArgCounts(t *testing.T) {
	l := ledger.New(nil, "", nil)
	r, _ := newTestREPL(t, &stubFeed{}, l)

	assert.Error(t, r.cmdTrack(context.Background(), nil))
	assert.Error(t, r.cmdUntrack(context.Background(), []string{"a", "b"}))
	assert.Error(t, r.cmdStats(context.Background(), nil))
}
