package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://labs.hackthebox.com", c.HTB.APIURL)
	assert.Equal(t, 1, c.Goals.Machines)
	assert.Equal(t, 2, c.Goals.Challenges)
	assert.Equal(t, 10*time.Minute, time.Duration(c.Poll.Interval))
	assert.Equal(t, "htb_data.json", c.Store.Path)

	schedule, err := c.Schedule()
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, schedule.Weekday)
	assert.Equal(t, 21, schedule.Hour)
	assert.Equal(t, 0, schedule.Minute)
	assert.Equal(t, "Europe/Athens", schedule.Location.String())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
htb:
  token: file-token
goals:
  machines: 2
  challenges: 5
poll:
  interval: 30m
reset:
  weekday: sunday
  time: "09:30"
  timezone: UTC
store:
  path: /var/lib/tracker/db.json
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", c.HTB.Token)
	assert.Equal(t, 2, c.Goals.Machines)
	assert.Equal(t, 5, c.Goals.Challenges)
	assert.Equal(t, 30*time.Minute, time.Duration(c.Poll.Interval))
	assert.Equal(t, "/var/lib/tracker/db.json", c.Store.Path)

	schedule, err := c.Schedule()
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, schedule.Weekday)
	assert.Equal(t, 9, schedule.Hour)
	assert.Equal(t, 30, schedule.Minute)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "htb:\n  token: file-token\n")
	t.Setenv("HTB_API_TOKEN", "env-token")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/x")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", c.HTB.Token)
	assert.Equal(t, "https://discord.com/api/webhooks/x", c.Discord.WebhookURL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed yaml", "goals: ["},
		{"bad duration", "poll:\n  interval: soon\n"},
		{"sub-minute interval", "poll:\n  interval: 5s\n"},
		{"bad weekday", "reset:\n  weekday: Caturday\n"},
		{"bad time", "reset:\n  time: \"25:00\"\n"},
		{"bad timezone", "reset:\n  timezone: Mars/Olympus\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
