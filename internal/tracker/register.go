package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/htb"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/ledger"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/notify"
)

// ErrUnknownUser means the HTB id did not resolve to a profile.
var ErrUnknownUser = errors.New("HTB user id not found")

// Register verifies an HTB id against the platform, seeds the dedup sets
// from the user's current activity snapshot so history is never counted
// retroactively, and adds the user to the ledger. Any failure leaves no
// partial state behind. The announcement is best-effort.
func Register(ctx context.Context, l *ledger.Ledger, feed htb.Feed, notifier notify.Notifier, htbID, discordID string) (string, error) {
	if !allDigits(htbID) {
		return "", fmt.Errorf("HTB user id must be numeric, got %q", htbID)
	}

	profile, ok := feed.Profile(ctx, htbID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownUser, htbID)
	}

	// An absent feed seeds empty, same as a brand-new account.
	snapshot, _ := feed.Activity(ctx, htbID)

	if err := l.Register(htbID, profile.Name, discordID, snapshot); err != nil {
		return "", err
	}

	if notifier != nil {
		_ = notifier.Registered(ctx, profile.Name, htbID, profile.AvatarURL)
	}
	return profile.Name, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
