// README: Surcharge scheduler; applies slot start/end boundaries once per day per slot.
package pricing

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler polls the fee configs on a fixed tick and persists the effective
// initial fee whenever a slot edge is crossed. Each (date, slot, boundary) is
// applied at most once, as arbitrated by the ledger.
type Scheduler struct {
	svc    *Service
	ledger Ledger
	tick   time.Duration
	log    *zap.Logger

	last    Clock
	started bool
}

func NewScheduler(svc *Service, ledger Ledger, tick time.Duration, log *zap.Logger) *Scheduler {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{svc: svc, ledger: ledger, tick: tick, log: log, last: NoClock}
}

// Run ticks until ctx is cancelled. The first evaluation happens immediately.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick evaluates one polling step and returns how many boundaries it applied.
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.svc.Now()
	cur := ClockOf(now)
	prev := s.last
	if !s.started {
		prev = cur
	}

	configs, err := s.svc.List(ctx)
	if err != nil {
		// last is left untouched so the next tick rescans the missed window.
		s.log.Error("surcharge tick: list fee configs", zap.Error(err))
		return 0
	}
	s.started = true
	s.last = cur

	applied := 0
	for _, c := range configs {
		applied += s.apply(ctx, now, c, Crossings(c.TimeBasedFees, prev, cur))
	}
	return applied
}

// apply claims every crossing of c in the window and, if any claim is won,
// writes the fee in effect at now once. It returns the number of claims won.
func (s *Scheduler) apply(ctx context.Context, now time.Time, c FeeConfig, crossings []Crossing) int {
	var claimed []TriggerKey
	for _, x := range crossings {
		key := TriggerKey{Date: boundaryDate(now, x.At), SlotID: x.Slot.ID, Boundary: x.Boundary}
		ok, err := s.ledger.Claim(ctx, key)
		if err != nil {
			s.log.Error("surcharge tick: claim trigger", zap.String("fee_config_id", string(c.ID)),
				zap.Stringer("trigger", key), zap.Error(err))
			continue
		}
		if ok {
			claimed = append(claimed, key)
		}
	}
	if len(claimed) == 0 {
		return 0
	}

	at := ClockOf(now)
	fields := []zap.Field{
		zap.String("fee_config_id", string(c.ID)),
		zap.Stringers("triggers", claimed),
		zap.String("at", at.String()),
	}
	fee, err := s.svc.ApplyBoundary(ctx, c, at)
	if err != nil {
		s.log.Error("surcharge tick: apply boundary", append(fields, zap.Error(err))...)
		for _, key := range claimed {
			if err := s.ledger.Release(ctx, key); err != nil {
				s.log.Warn("surcharge tick: release trigger", zap.Stringer("trigger", key), zap.Error(err))
			}
		}
		return 0
	}
	s.log.Info("surcharge boundary applied", append(fields, zap.Int64("initial_fee", int64(fee)))...)
	return len(claimed)
}

// boundaryDate is the calendar day on which minute at last occurred at or
// before now. A boundary late in the previous day seen just after midnight
// belongs to yesterday.
func boundaryDate(now time.Time, at Clock) string {
	if at > ClockOf(now) {
		now = now.AddDate(0, 0, -1)
	}
	return now.Format("2006-01-02")
}
