package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/opinio/market/internal/domain"
	"github.com/opinio/market/internal/repository"
	"github.com/shopspring/decimal"
)

// SettlementService settles resolved events: it flips the lifecycle status,
// sweeps every unsettled position exactly once, credits winners and marks
// losers, all money movement inside one PostgreSQL transaction.
//
// It implements the Settler interface declared in event_service.go.
type SettlementService struct {
	db          *sqlx.DB
	eventRepo   *repository.EventRepository
	tradeRepo   *repository.TradeRepository
	walletRepo  *repository.WalletRepository
	broadcaster Broadcaster // injected after WS Hub is built
	log         *slog.Logger
}

// NewSettlementService builds a SettlementService.
func NewSettlementService(
	db *sqlx.DB,
	eventRepo *repository.EventRepository,
	tradeRepo *repository.TradeRepository,
	walletRepo *repository.WalletRepository,
	log *slog.Logger,
) *SettlementService {
	return &SettlementService{
		db:         db,
		eventRepo:  eventRepo,
		tradeRepo:  tradeRepo,
		walletRepo: walletRepo,
		log:        log,
	}
}

// SetBroadcaster injects the WS Hub dependency post-construction.
func (s *SettlementService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// Settle
// ──────────────────────────────────────────────────────────────────────────────

// Settle resolves an event to the given outcome and pays out every position.
//
// The status flip happens first and is a compare-and-swap: exactly one
// caller wins it, every duplicate gets ErrAlreadyResolved and settlement
// never re-runs.  Because trades check the status under the same row lock
// that guards the flip, no new position can slip in after the flip, so the
// single sweep read that follows is exhaustive.
//
// If the payout transaction fails the event stays resolved with unsettled
// positions; the scheduler retries the sweep until it completes, and the
// paid_out guard keeps retries from paying anyone twice.
func (s *SettlementService) Settle(ctx context.Context, eventID uuid.UUID, outcome domain.Side) (*domain.SettlementReport, error) {
	if !outcome.IsValid() {
		return nil, domain.ErrInvalidOutcome
	}

	if err := s.eventRepo.Resolve(ctx, eventID, outcome); err != nil {
		return nil, fmt.Errorf("settlement_service.Settle: resolve: %w", err)
	}

	report, err := s.sweep(ctx, eventID, outcome)
	if err != nil {
		// The event is already resolved; the scheduler will retry the sweep.
		s.log.Error("settlement sweep failed, will retry",
			"event_id", eventID, "error", err)
		return nil, fmt.Errorf("settlement_service.Settle: sweep: %w", err)
	}
	return report, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// sweep — one-shot settlement pass over an event's unsettled positions
// ──────────────────────────────────────────────────────────────────────────────

func (s *SettlementService) sweep(ctx context.Context, eventID uuid.UUID, outcome domain.Side) (*domain.SettlementReport, error) {
	// ── Step 1: single exhaustive read of unsettled positions ────────────────
	trades, err := s.tradeRepo.FindUnsettled(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("sweep: find unsettled: %w", err)
	}

	report := &domain.SettlementReport{
		EventID:        eventID,
		WinningOutcome: outcome,
		TotalPaidOut:   decimal.Zero,
	}
	if len(trades) == 0 {
		return report, nil
	}

	// ── Step 2: classify positions and aggregate payouts per user ────────────
	batch := make([]repository.SettlementUpdate, 0, len(trades))
	payoutByUser := make(map[uuid.UUID]decimal.Decimal)
	for _, t := range trades {
		if t.IsWinner(outcome) {
			payout := t.PayoutAmount()
			batch = append(batch, repository.SettlementUpdate{
				TradeID: t.ID,
				Status:  domain.TradeStatusWon,
				Payout:  payout,
			})
			payoutByUser[t.UserID] = payoutByUser[t.UserID].Add(payout)
			report.Winners++
			report.TotalPaidOut = report.TotalPaidOut.Add(payout)
		} else {
			batch = append(batch, repository.SettlementUpdate{
				TradeID: t.ID,
				Status:  domain.TradeStatusLost,
				Payout:  decimal.Zero,
			})
			report.Losers++
		}
	}

	// ── Step 3: atomic settlement transaction ────────────────────────────────
	tx, txErr := s.db.BeginTxx(ctx, nil)
	if txErr != nil {
		return nil, fmt.Errorf("sweep: begin tx: %w", txErr)
	}
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	settled, txErr := s.tradeRepo.MarkSettled(ctx, tx, batch)
	if txErr != nil {
		return nil, fmt.Errorf("sweep: mark settled: %w", txErr)
	}
	// A concurrent sweep already settled part of the batch.  Abort rather
	// than credit winners a second time; the paid_out guard plus this check
	// is what makes settlement exactly-once.
	if settled != int64(len(batch)) {
		txErr = fmt.Errorf("sweep: settled %d of %d positions, concurrent settlement detected", settled, len(batch))
		return nil, txErr
	}

	now := time.Now().UTC()
	eventIDCopy := eventID
	for userID, payout := range payoutByUser {
		if txErr = s.walletRepo.CreditBalance(ctx, tx, userID, payout); txErr != nil {
			return nil, fmt.Errorf("sweep: credit user %s: %w", userID, txErr)
		}

		wallet, wErr := s.walletRepo.GetByUserID(ctx, userID)
		if wErr != nil {
			txErr = fmt.Errorf("sweep: get wallet %s: %w", userID, wErr)
			return nil, txErr
		}
		txn := &domain.Transaction{
			ID:            uuid.New(),
			WalletID:      wallet.ID,
			Type:          domain.TxPayout,
			Amount:        payout,
			BalanceBefore: wallet.Balance,
			BalanceAfter:  wallet.Balance.Add(payout),
			RefID:         &eventIDCopy,
			Description:   fmt.Sprintf("Payout: event %s resolved %s", eventID, string(outcome)),
			CreatedAt:     now,
		}
		if txErr = s.walletRepo.LogTransaction(ctx, tx, txn); txErr != nil {
			return nil, fmt.Errorf("sweep: log payout for %s: %w", userID, txErr)
		}
	}

	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("sweep: commit: %w", txErr)
	}
	report.Settled = len(batch)

	s.log.Info("event settled",
		"event_id", eventID,
		"outcome", string(outcome),
		"winners", report.Winners,
		"losers", report.Losers,
		"total_paid_out", report.TotalPaidOut.StringFixed(4))

	// ── Step 4: post-commit broadcasts in generation order ───────────────────
	s.broadcastSettlement(ctx, eventID, trades)

	return report, nil
}

// broadcastSettlement pushes the resolved market state first, then each
// settled position, preserving the relative order clients rely on.
func (s *SettlementService) broadcastSettlement(ctx context.Context, eventID uuid.UUID, trades []*domain.Trade) {
	if s.broadcaster == nil {
		return
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err == nil {
		s.broadcaster.BroadcastEventUpdate(event.Snapshot())
	}

	for _, t := range trades {
		settled, err := s.tradeRepo.GetByID(ctx, t.ID)
		if err != nil {
			continue
		}
		s.broadcaster.BroadcastTradeSettled(settled)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// RetryPending — called by the Scheduler every tick
// ──────────────────────────────────────────────────────────────────────────────

// RetryPending finds resolved events that still carry unsettled positions
// (a settlement transaction that failed partway) and re-runs the sweep.
// A single failing event does NOT abort the others.
func (s *SettlementService) RetryPending(ctx context.Context) error {
	events, err := s.eventRepo.FindResolvedWithUnsettled(ctx)
	if err != nil {
		return fmt.Errorf("settlement_service.RetryPending: fetch: %w", err)
	}

	for _, e := range events {
		if e.WinningOutcome == nil {
			s.log.Error("resolved event has no winning outcome", "event_id", e.ID)
			continue
		}
		if _, err := s.sweep(ctx, e.ID, *e.WinningOutcome); err != nil {
			s.log.Error("settlement retry failed", "event_id", e.ID, "error", err)
			// Continue: do not block other events because one failed.
		}
	}
	return nil
}
