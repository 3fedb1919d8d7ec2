// Package scheduler manages the two background goroutines that keep the
// market lifecycle moving without operator intervention:
//  1. openLoop        – flips upcoming events to live once their start time passes.
//  2. settleRetryLoop – re-runs settlement sweeps for resolved events that
//     still carry unsettled positions.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/opinio/market/internal/config"
	"github.com/opinio/market/internal/repository"
	"github.com/opinio/market/internal/service"
)

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler runs the market lifecycle goroutines.  Call Start(ctx) once from
// main(); cancel the context to shut it down gracefully.
type Scheduler struct {
	eventRepo     *repository.EventRepository
	eventSvc      *service.EventService
	settlementSvc *service.SettlementService
	cfg           *config.Config
	logger        *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	eventRepo *repository.EventRepository,
	eventSvc *service.EventService,
	settlementSvc *service.SettlementService,
	cfg *config.Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		eventRepo:     eventRepo,
		eventSvc:      eventSvc,
		settlementSvc: settlementSvc,
		cfg:           cfg,
		logger:        logger,
	}
}

// Start launches the background goroutines.  It returns immediately;
// all loops run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.openLoop(ctx)
	go s.settleRetryLoop(ctx)
	s.logger.Info("scheduler started",
		"open_interval", s.cfg.Scheduler.OpenInterval,
		"settle_interval", s.cfg.Scheduler.SettleInterval)
}

// ──────────────────────────────────────────────────────────────────────────────
// openLoop
// ──────────────────────────────────────────────────────────────────────────────

// openLoop periodically opens upcoming events whose start time has passed.
// Opening through EventService keeps the guarded transition and the WS
// broadcast on the same path the admin endpoint uses.
func (s *Scheduler) openLoop(ctx context.Context) {
	defer s.recoverAndLog("openLoop")

	ticker := time.NewTicker(s.cfg.Scheduler.OpenInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("openLoop: shutting down")
			return
		case <-ticker.C:
			s.openDueEvents(ctx)
		}
	}
}

// openDueEvents flips every due upcoming event to live.  A single failing
// event does NOT abort the others: an admin may have opened or resolved it
// between the fetch and the guarded update.
func (s *Scheduler) openDueEvents(ctx context.Context) {
	events, err := s.eventRepo.FindDueToOpen(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("openLoop: fetch due events", "err", err)
		return
	}

	for _, e := range events {
		if _, err := s.eventSvc.OpenEvent(ctx, e.ID); err != nil {
			s.logger.Warn("openLoop: open event", "event_id", e.ID, "err", err)
			continue
		}
		s.logger.Info("event opened for trading", "event_id", e.ID, "name", e.Name)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// settleRetryLoop
// ──────────────────────────────────────────────────────────────────────────────

// settleRetryLoop retries settlement sweeps that failed partway.  The
// paid_out guard inside the sweep makes the retries exactly-once, so this
// loop can run as often as it likes.
func (s *Scheduler) settleRetryLoop(ctx context.Context) {
	defer s.recoverAndLog("settleRetryLoop")

	ticker := time.NewTicker(s.cfg.Scheduler.SettleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("settleRetryLoop: shutting down")
			return
		case <-ticker.C:
			if err := s.settlementSvc.RetryPending(ctx); err != nil {
				s.logger.Error("settleRetryLoop: RetryPending", "err", err)
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
