// Package tracker runs the ingestion loop: on a fixed interval it pulls
// every tracked user's activity feed, classifies unseen entries in
// chronological order, applies them to the ledger, and announces the
// results. Failures are isolated per user; one bad fetch never blocks
// the rest of the cycle.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/activity"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/htb"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/ledger"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/notify"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/reset"
)

// fetchConcurrency bounds the per-cycle feed fan-out.
const fetchConcurrency = 4

// Config wires a Tracker.
type Config struct {
	Ledger   *ledger.Ledger
	Feed     htb.Feed
	Notifier notify.Notifier
	Goals    reset.Goals
	// Interval between polling cycles. Defaults to 10 minutes.
	Interval time.Duration
	Logger   *zap.Logger
}

// Tracker is the polling daemon.
type Tracker struct {
	ledger   *ledger.Ledger
	feed     htb.Feed
	notifier notify.Notifier
	goals    reset.Goals
	interval time.Duration
	log      *zap.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New builds a tracker from the config.
func New(cfg Config) *Tracker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		ledger:   cfg.Ledger,
		feed:     cfg.Feed,
		notifier: cfg.Notifier,
		goals:    cfg.Goals,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Run polls until the context is canceled or Stop is called. The first
// cycle runs immediately.
func (t *Tracker) Run(ctx context.Context) {
	defer close(t.doneCh)

	t.Cycle(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.Cycle(ctx)
		}
	}
}

// Stop signals Run to exit and waits for the current cycle to finish.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
	<-t.doneCh
}

// Cycle runs one full polling pass. Feeds are fetched concurrently with
// no lock held; mutations are then applied per user, per event, under
// the ledger's exclusion, persisting after each one.
func (t *Tracker) Cycle(ctx context.Context) {
	runID := uuid.NewString()[:8]
	log := t.log.With(zap.String("cycle", runID))

	ids := t.ledger.UserIDs()
	if len(ids) == 0 {
		return
	}
	log.Info("polling activity feeds", zap.Int("users", len(ids)))

	// Fetch phase.
	var mu sync.Mutex
	feeds := make(map[string][]activity.Event, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			events, ok := t.feed.Activity(gctx, id)
			if !ok {
				// Degrades to "no new data this cycle" for this user.
				log.Warn("feed unavailable, skipping user", zap.String("user", id))
				return nil
			}
			mu.Lock()
			feeds[id] = events
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	// Apply phase.
	for _, id := range ids {
		events, ok := feeds[id]
		if !ok || len(events) == 0 {
			continue
		}
		t.ingest(ctx, log, id, events)
	}
}

// ingest applies one user's feed. The API returns entries newest first;
// classification depends on chronological application, so the slice is
// walked back to front. Each event is evaluated exactly once per run and
// persisted before the next one is touched.
func (t *Tracker) ingest(ctx context.Context, log *zap.Logger, id string, events []activity.Event) {
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		out, snap, err := t.ledger.ApplyEvent(id, e)
		if err != nil {
			if errors.Is(err, ledger.ErrNotTracked) {
				// Unregistered mid-cycle.
				return
			}
			log.Error("applying event, aborting user for this cycle",
				zap.String("user", id),
				zap.Int("event", e.ID),
				zap.Error(err))
			return
		}
		if out.Type == activity.AlreadySeen {
			continue
		}

		log.Info("new solve",
			zap.String("user", snap.Name),
			zap.String("category", string(out.Category)),
			zap.String("name", e.Name))
		t.announce(ctx, log, snap, e, out)
	}
}

// announce enriches and delivers one notification. Delivery failures are
// logged and dropped; the counter update already persisted and is never
// rolled back.
func (t *Tracker) announce(ctx context.Context, log *zap.Logger, snap ledger.Snapshot, e activity.Event, out activity.Outcome) {
	payload := notify.SolveEvent{
		UserName:       snap.Name,
		Category:       out.Category,
		Kind:           e.Kind,
		EventName:      e.Name,
		Machines:       snap.Machines,
		Challenges:     snap.Challenges,
		Streak:         snap.Streak,
		GoalMachines:   t.goals.Machines,
		GoalChallenges: t.goals.Challenges,
	}

	if out.Category == activity.CategoryChallenge {
		if category, ok := t.feed.ChallengeCategory(ctx, e.ID); ok {
			payload.ChallengeCategory = category
		}
	}
	if profile, ok := t.feed.Profile(ctx, snap.ID); ok {
		payload.AvatarURL = profile.AvatarURL
		payload.UserName = profile.Name
		// Opportunistic display name refresh.
		if err := t.ledger.SetName(snap.ID, profile.Name); err != nil {
			log.Warn("refreshing display name", zap.String("user", snap.ID), zap.Error(err))
		}
	}

	if err := t.notifier.Solve(ctx, payload); err != nil {
		log.Warn("notification delivery failed",
			zap.String("user", snap.ID),
			zap.Int("event", e.ID),
			zap.Error(err))
	}
}
