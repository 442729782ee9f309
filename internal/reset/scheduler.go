package reset

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/ledger"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/notify"
)

// Schedule fixes when the weekly reset fires: a weekday and a local
// time-of-day in a fixed timezone.
type Schedule struct {
	Weekday  time.Weekday
	Hour     int
	Minute   int
	Location *time.Location
}

const isoDate = "2006-01-02"

// Scheduler fires the engine at most once per matching calendar day. A
// tick-based check has no native exactly-once semantic, so the last
// fired date is the load-bearing guard; it lives in the ledger and
// survives restarts. A process that was down across the trigger time
// does not fire retroactively, it waits for the next matching weekday.
type Scheduler struct {
	ledger   *ledger.Ledger
	engine   *Engine
	notifier notify.Notifier
	schedule Schedule
	log      *zap.Logger

	tick time.Duration
	now  func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewScheduler wires a scheduler. The notifier may be nil to skip
// delivery; the logger may be nil.
func NewScheduler(l *ledger.Ledger, engine *Engine, notifier notify.Notifier, schedule Schedule, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		ledger:   l,
		engine:   engine,
		notifier: notifier,
		schedule: schedule,
		log:      log,
		tick:     time.Minute,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Run ticks until the context is canceled or Stop is called.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Stop signals Run to exit and waits for it.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// Check evaluates one tick: if local time in the configured timezone has
// reached the trigger time on the configured weekday and the reset has
// not fired today, it fires. Re-entrant ticks later the same day are
// no-ops.
func (s *Scheduler) Check(ctx context.Context) {
	local := s.now().In(s.schedule.Location)
	if local.Weekday() != s.schedule.Weekday {
		return
	}
	trigger := time.Date(local.Year(), local.Month(), local.Day(),
		s.schedule.Hour, s.schedule.Minute, 0, 0, s.schedule.Location)
	if local.Before(trigger) {
		return
	}
	today := local.Format(isoDate)
	if s.ledger.LastReset() == today {
		return
	}

	s.log.Info("reset trigger reached", zap.String("date", today))
	report, err := s.engine.Perform()
	if err != nil {
		s.log.Error("scheduled reset failed", zap.Error(err))
		return
	}
	if err := s.ledger.MarkReset(today); err != nil {
		s.log.Error("recording reset date", zap.Error(err))
	}

	// Delivery is best-effort; the reset itself is already persisted.
	if s.notifier != nil {
		if err := s.notifier.ResetReport(ctx, report); err != nil {
			s.log.Warn("delivering reset report", zap.Error(err))
		}
	}
}
