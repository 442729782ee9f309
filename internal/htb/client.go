// Package htb is the HTTP adapter to the HackTheBox v4 API. The core
// treats it as an opaque feed: every failure mode (network, auth,
// not-found, malformed body) collapses to an absent result, logged here
// and never distinguished by callers.
package htb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/activity"
)

const (
	// DefaultBaseURL is the HTB labs API host.
	DefaultBaseURL = "https://labs.hackthebox.com"

	defaultAvatar  = "https://labs.hackthebox.com/images/logo-htb.png"
	requestTimeout = 10 * time.Second
	userAgent      = "HTB-Progress-Tracker/1.0"
)

// Profile is the subset of a user's public profile the tracker uses.
type Profile struct {
	Name      string
	AvatarURL string
}

// Feed is the adapter surface the rest of the system consumes. The
// second return value is false whenever no data could be obtained.
type Feed interface {
	// Activity returns the user's activity feed, newest entry first, in
	// strict internal form.
	Activity(ctx context.Context, userID string) ([]activity.Event, bool)
	// Profile returns the user's display name and avatar URL.
	Profile(ctx context.Context, userID string) (Profile, bool)
	// ChallengeCategory returns the category name of a challenge.
	ChallengeCategory(ctx context.Context, challengeID int) (string, bool)
}

// Client implements Feed against the real API. Requests share a rate
// limiter so the ingestion loop's fan-out cannot hammer the API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// New builds a client. An empty baseURL uses the labs host; a nil logger
// discards logs.
func New(baseURL, token string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		log:     log,
	}
}

// get performs one authenticated GET and decodes the body into out.
// Returns false on any failure.
func (c *Client) get(ctx context.Context, path string, out any) bool {
	if err := c.limiter.Wait(ctx); err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		c.log.Warn("building API request", zap.String("path", path), zap.Error(err))
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("API request failed", zap.String("path", path), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		c.log.Warn("API rejected the token, check HTB_API_TOKEN", zap.String("path", path))
		return false
	case http.StatusNotFound:
		c.log.Debug("API resource not found", zap.String("path", path))
		return false
	default:
		c.log.Warn("unexpected API status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return false
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.Warn("decoding API response", zap.String("path", path), zap.Error(err))
		return false
	}
	return true
}

// rawActivity is one loosely-typed feed entry as the API returns it.
type rawActivity struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	ObjectType string `json:"object_type"`
	FlagType   string `json:"type"`
}

// Activity implements Feed. Entries missing required fields are
// quarantined at this boundary: logged and dropped, never propagated.
func (c *Client) Activity(ctx context.Context, userID string) ([]activity.Event, bool) {
	var body struct {
		Profile struct {
			Activity []rawActivity `json:"activity"`
		} `json:"profile"`
	}
	if !c.get(ctx, "/api/v4/user/profile/activity/"+userID, &body) {
		return nil, false
	}

	events := make([]activity.Event, 0, len(body.Profile.Activity))
	for _, raw := range body.Profile.Activity {
		e, err := activity.New(raw.ID, raw.ObjectType, raw.FlagType, raw.Name)
		if err != nil {
			c.log.Warn("quarantining malformed feed entry",
				zap.String("user", userID),
				zap.Error(err))
			continue
		}
		events = append(events, e)
	}
	return events, true
}

// Profile implements Feed. Relative avatar paths are resolved against the
// labs host; a missing avatar falls back to the HTB logo.
func (c *Client) Profile(ctx context.Context, userID string) (Profile, bool) {
	var body struct {
		Profile struct {
			Name   string `json:"name"`
			Avatar string `json:"avatar"`
		} `json:"profile"`
	}
	if !c.get(ctx, "/api/v4/user/profile/basic/"+userID, &body) {
		return Profile{}, false
	}
	if body.Profile.Name == "" {
		return Profile{}, false
	}

	avatar := body.Profile.Avatar
	if strings.HasPrefix(avatar, "/") {
		avatar = DefaultBaseURL + avatar
	}
	if avatar == "" {
		avatar = defaultAvatar
	}
	return Profile{Name: body.Profile.Name, AvatarURL: avatar}, true
}

// ChallengeCategory implements Feed.
func (c *Client) ChallengeCategory(ctx context.Context, challengeID int) (string, bool) {
	var body struct {
		Challenge struct {
			CategoryName string `json:"category_name"`
		} `json:"challenge"`
	}
	if !c.get(ctx, fmt.Sprintf("/api/v4/challenge/info/%d", challengeID), &body) {
		return "", false
	}
	if body.Challenge.CategoryName == "" {
		return "", false
	}
	return body.Challenge.CategoryName, true
}
