package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// embed and its nested types mirror the Discord webhook payload schema.
type embed struct {
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Color       int         `json:"color,omitempty"`
	Thumbnail   *thumbnail  `json:"thumbnail,omitempty"`
	Fields      []embedItem `json:"fields,omitempty"`
	Footer      *footer     `json:"footer,omitempty"`
}

type thumbnail struct {
	URL string `json:"url"`
}

type footer struct {
	Text string `json:"text"`
}

type embedItem struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds,omitempty"`
}

// Webhook delivers notifications to a Discord channel webhook.
type Webhook struct {
	url  string
	http *http.Client
	log  *zap.Logger
}

// NewWebhook builds a webhook notifier. The logger may be nil.
func NewWebhook(url string, log *zap.Logger) *Webhook {
	if log == nil {
		log = zap.NewNop()
	}
	return &Webhook{
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
		log:  log,
	}
}

func (w *Webhook) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Solve implements Notifier.
func (w *Webhook) Solve(ctx context.Context, e SolveEvent) error {
	msg := embed{
		Title:       e.Title(),
		Description: e.Description(),
		Color:       e.Color(),
		Fields: []embedItem{
			{Name: "Weekly Progress", Value: e.Progress(), Inline: true},
			{Name: "Streak", Value: fmt.Sprintf("%d 🔥", e.Streak), Inline: true},
		},
	}
	if e.AvatarURL != "" {
		msg.Thumbnail = &thumbnail{URL: e.AvatarURL}
	}
	return w.post(ctx, webhookPayload{Embeds: []embed{msg}})
}

// ResetReport implements Notifier. The report embed is followed by a
// separate callout message mentioning everyone who missed the goals.
func (w *Webhook) ResetReport(ctx context.Context, r ResetReport) error {
	passed := "None... 😢 Do better next week!"
	if lines := r.PassedLines(); len(lines) > 0 {
		passed = clamp(strings.Join(lines, "\n"))
	}
	failed := "None! Everyone is a Legend! 🎉"
	if lines := r.FailedLines(); len(lines) > 0 {
		failed = clamp(strings.Join(lines, "\n"))
	}

	report := webhookPayload{Embeds: []embed{{
		Title:       "🗓️ Weekly Reset & Report",
		Description: "The week has ended! Here is the breakdown:",
		Color:       colorGrey,
		Fields: []embedItem{
			{Name: "✅ Goal Achieved", Value: passed},
			{Name: "❌ Missed Goals", Value: failed},
		},
	}}}
	if err := w.post(ctx, report); err != nil {
		return err
	}

	if mentions := r.Mentions(); len(mentions) > 0 {
		callout := webhookPayload{
			Content: strings.Join(mentions, " ") + " why you slack bro 📉",
		}
		if err := w.post(ctx, callout); err != nil {
			return err
		}
	}
	return nil
}

// Registered implements Notifier.
func (w *Webhook) Registered(ctx context.Context, name, htbID, avatarURL string) error {
	msg := embed{
		Title: "🕵️ New Agent Tracked!",
		Description: fmt.Sprintf("**[%s](https://app.hackthebox.com/users/%s)** joined.",
			name, htbID),
		Color: colorBlue,
	}
	if avatarURL != "" {
		msg.Thumbnail = &thumbnail{URL: avatarURL}
	}
	return w.post(ctx, webhookPayload{Embeds: []embed{msg}})
}

// clamp keeps a field value inside Discord's per-field limit.
func clamp(s string) string {
	const limit = 1000
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
