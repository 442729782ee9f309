package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/activity"
)

func TestSolveEventFormatting(t *testing.T) {
	tests := []struct {
		name     string
		event    SolveEvent
		wantType string
		wantDesc string
		wantCol  int
	}{
		{
			name: "user flag",
			event: SolveEvent{
				UserName: "mpampis", Category: activity.CategoryUserFlag, EventName: "Lame",
			},
			wantType: "👤 User Flag",
			wantDesc: "**Lame** user access obtained! Keep going for Root! 🚀",
			wantCol:  colorOrange,
		},
		{
			name: "root flag",
			event: SolveEvent{
				UserName: "mpampis", Category: activity.CategoryRoot, EventName: "Lame",
			},
			wantType: "💀 Root Flag",
			wantDesc: "**Lame** has been fully compromised! System Own3d.",
			wantCol:  colorRed,
		},
		{
			name: "challenge with category",
			event: SolveEvent{
				UserName: "mpampis", Category: activity.CategoryChallenge,
				EventName: "Weak RSA", ChallengeCategory: "Crypto",
			},
			wantType: "🧩 Challenge",
			wantDesc: "**Weak RSA** (Crypto) has been solved.",
			wantCol:  colorGreen,
		},
		{
			name: "challenge without category",
			event: SolveEvent{
				UserName: "mpampis", Category: activity.CategoryChallenge, EventName: "Weak RSA",
			},
			wantType: "🧩 Challenge",
			wantDesc: "**Weak RSA** has been solved.",
			wantCol:  colorGreen,
		},
		{
			name: "unrecognized kind",
			event: SolveEvent{
				UserName: "mpampis", Category: activity.CategoryOther,
				Kind: "fortress", EventName: "Jet",
			},
			wantType: "Fortress",
			wantDesc: "**Jet** completed.",
			wantCol:  colorGreen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.event.DisplayType())
			assert.Equal(t, tt.wantDesc, tt.event.Description())
			assert.Equal(t, tt.wantCol, tt.event.Color())
			assert.Contains(t, tt.event.Title(), "mpampis")
		})
	}
}

func TestProgressMarks(t *testing.T) {
	e := SolveEvent{Machines: 1, GoalMachines: 1, Challenges: 1, GoalChallenges: 2}
	progress := e.Progress()
	assert.Contains(t, progress, "1/1 ✅")
	assert.Contains(t, progress, "1/2 ❌")
}

func TestReportMentionsSkipUnownedUsers(t *testing.T) {
	r := ResetReport{Failed: []ResetLine{
		{Name: "a", DiscordID: "111"},
		{Name: "b"},
		{Name: "c", DiscordID: "333"},
	}}
	assert.Equal(t, []string{"<@111>", "<@333>"}, r.Mentions())
}

func TestWebhookResetReportSendsCallout(t *testing.T) {
	var payloads []webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		payloads = append(payloads, p)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, nil)
	report := ResetReport{
		Passed:         []ResetLine{{Name: "winner", Streak: 4}},
		Failed:         []ResetLine{{Name: "slacker", DiscordID: "42", Challenges: 1}},
		GoalMachines:   1,
		GoalChallenges: 2,
	}
	require.NoError(t, wh.ResetReport(context.Background(), report))

	require.Len(t, payloads, 2, "report embed plus callout message")
	require.Len(t, payloads[0].Embeds, 1)
	assert.Contains(t, payloads[0].Embeds[0].Fields[0].Value, "winner")
	assert.Contains(t, payloads[0].Embeds[0].Fields[1].Value, "slacker")
	assert.Contains(t, payloads[1].Content, "<@42>")
}

func TestWebhookResetReportNoCalloutWhenAllPassed(t *testing.T) {
	var count int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count++
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, nil)
	require.NoError(t, wh.ResetReport(context.Background(), ResetReport{
		Passed: []ResetLine{{Name: "winner", Streak: 1}},
	}))
	assert.Equal(t, 1, count)
}

func TestWebhookSolveDeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, nil)
	err := wh.Solve(context.Background(), SolveEvent{UserName: "x"})
	assert.Error(t, err)
}

func TestClamp(t *testing.T) {
	long := strings.Repeat("a", 2000)
	assert.Len(t, clamp(long), 1003)
	assert.Equal(t, "short", clamp("short"))
}
