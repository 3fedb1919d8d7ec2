package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/opinio/market/internal/domain"
	"github.com/opinio/market/internal/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Settler interface — implemented by SettlementService
// Declared here to break the import cycle between event_service and
// settlement_service.
// ──────────────────────────────────────────────────────────────────────────────

// Settler is the minimal interface EventService needs from SettlementService.
type Settler interface {
	Settle(ctx context.Context, eventID uuid.UUID, outcome domain.Side) (*domain.SettlementReport, error)
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateEventRequest
// ──────────────────────────────────────────────────────────────────────────────

// CreateEventRequest contains the fields required to create a new event.
type CreateEventRequest struct {
	Name        string    `json:"name"        binding:"required,min=3,max=200"`
	Description string    `json:"description" binding:"required"`
	StartTime   time.Time `json:"start_time"  binding:"required"`
	ImageURL    *string   `json:"image_url"`
}

// ──────────────────────────────────────────────────────────────────────────────
// EventService
// ──────────────────────────────────────────────────────────────────────────────

// EventService handles the event lifecycle: creation, querying, opening for
// trading, resolution and pre-resolution deletion.
type EventService struct {
	db          *sqlx.DB
	eventRepo   *repository.EventRepository
	tradeRepo   *repository.TradeRepository
	walletRepo  *repository.WalletRepository
	settler     Settler     // injected after SettlementService is built
	broadcaster Broadcaster // injected after WS Hub is built
}

// NewEventService creates an EventService.  Call SetSettler() after
// constructing SettlementService to inject the dependency.
func NewEventService(
	db *sqlx.DB,
	eventRepo *repository.EventRepository,
	tradeRepo *repository.TradeRepository,
	walletRepo *repository.WalletRepository,
) *EventService {
	return &EventService{
		db:         db,
		eventRepo:  eventRepo,
		tradeRepo:  tradeRepo,
		walletRepo: walletRepo,
	}
}

// SetSettler injects the SettlementService after both services are constructed
// (avoids constructor-cycle issues).
func (s *EventService) SetSettler(settler Settler) { s.settler = settler }

// SetBroadcaster injects the WS Hub dependency post-construction.
func (s *EventService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// CreateEvent
// ──────────────────────────────────────────────────────────────────────────────

// CreateEvent persists a new upcoming event with an empty market seeded at
// the cold-start price.  Trading opens when the event transitions to live.
func (s *EventService) CreateEvent(ctx context.Context, req CreateEventRequest) (*domain.Event, error) {
	now := time.Now().UTC()
	e := &domain.Event{
		ID:              uuid.New(),
		Name:            strings.TrimSpace(req.Name),
		Description:     strings.TrimSpace(req.Description),
		ImageURL:        req.ImageURL,
		Status:          domain.StatusUpcoming,
		CurrentYesPrice: domain.ColdStartPrice,
		TotalYesVolume:  decimalZero(),
		TotalNoVolume:   decimalZero(),
		Version:         0,
		StartTime:       req.StartTime.UTC(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.eventRepo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("event_service.CreateEvent: db: %w", err)
	}
	return e, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────────────────────────

// GetEvent fetches a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	e, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("event_service.GetEvent: %w", err)
	}
	return e, nil
}

// ListEvents returns a paginated list of events.
// status="" returns all statuses.  Returns (events, total, error).
func (s *EventService) ListEvents(ctx context.Context, limit, offset int, status string) ([]*domain.Event, int, error) {
	events, total, err := s.eventRepo.List(ctx, limit, offset, status)
	if err != nil {
		return nil, 0, fmt.Errorf("event_service.ListEvents: %w", err)
	}
	return events, total, nil
}

// GetEventTrades returns all trades of an event in placement order (admin view).
func (s *EventService) GetEventTrades(ctx context.Context, eventID uuid.UUID) ([]*domain.Trade, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, fmt.Errorf("event_service.GetEventTrades: %w", err)
	}
	trades, err := s.tradeRepo.GetByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("event_service.GetEventTrades: %w", err)
	}
	return trades, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Lifecycle operations
// ──────────────────────────────────────────────────────────────────────────────

// OpenEvent transitions an event from upcoming to live.  The guarded update
// makes duplicate requests fail with ErrInvalidTransition (or
// ErrAlreadyResolved when the event was resolved in the meantime).
func (s *EventService) OpenEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	if err := s.eventRepo.Open(ctx, id); err != nil {
		return nil, fmt.Errorf("event_service.OpenEvent: %w", err)
	}

	e, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("event_service.OpenEvent: reload: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastEventUpdate(e.Snapshot())
	}
	return e, nil
}

// ResolveEvent resolves an event to the given outcome and settles every
// position.  Delegates to the settlement engine, which owns the
// compare-and-swap status flip and the exactly-once payout sweep.
func (s *EventService) ResolveEvent(ctx context.Context, id uuid.UUID, outcome domain.Side) (*domain.SettlementReport, error) {
	if s.settler == nil {
		return nil, fmt.Errorf("event_service.ResolveEvent: settler not set (call SetSettler first)")
	}
	report, err := s.settler.Settle(ctx, id, outcome)
	if err != nil {
		return nil, fmt.Errorf("event_service.ResolveEvent: %w", err)
	}
	return report, nil
}

// DeleteEvent removes an unresolved event together with its trades, refunding
// every escrowed stake in the same transaction.  Resolved events are
// immutable history and cannot be deleted.
//
// The event row lock serialises the delete against in-flight trades: a trade
// committing first gets refunded, a trade arriving after the delete commits
// fails with ErrEventNotFound.  Refunding keeps the wallet invariant intact
// (balance = initial + credits − stakes) since deleted stakes flow back.
func (s *EventService) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("event_service.DeleteEvent: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	event, err := s.eventRepo.GetForTrade(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("event_service.DeleteEvent: lock event: %w", err)
	}
	if event.IsResolved() {
		err = domain.ErrEventResolved
		return err
	}

	trades, err := s.tradeRepo.FindUnsettled(ctx, id)
	if err != nil {
		return fmt.Errorf("event_service.DeleteEvent: load trades: %w", err)
	}

	now := time.Now().UTC()
	eventIDCopy := id
	for userID, amount := range domain.StakeRefunds(trades) {
		if err = s.walletRepo.CreditBalance(ctx, tx, userID, amount); err != nil {
			return fmt.Errorf("event_service.DeleteEvent: refund user %s: %w", userID, err)
		}
		wallet, wErr := s.walletRepo.GetByUserID(ctx, userID)
		if wErr != nil {
			err = fmt.Errorf("event_service.DeleteEvent: get wallet %s: %w", userID, wErr)
			return err
		}
		txn := &domain.Transaction{
			ID:            uuid.New(),
			WalletID:      wallet.ID,
			Type:          domain.TxRefund,
			Amount:        amount,
			BalanceBefore: wallet.Balance,
			BalanceAfter:  wallet.Balance.Add(amount),
			RefID:         &eventIDCopy,
			Description:   fmt.Sprintf("Refund: event %s deleted before resolution", id),
			CreatedAt:     now,
		}
		if err = s.walletRepo.LogTransaction(ctx, tx, txn); err != nil {
			return fmt.Errorf("event_service.DeleteEvent: log refund for %s: %w", userID, err)
		}
	}

	if err = s.tradeRepo.DeleteByEvent(ctx, tx, id); err != nil {
		return fmt.Errorf("event_service.DeleteEvent: delete trades: %w", err)
	}
	if err = s.eventRepo.Delete(ctx, tx, id); err != nil {
		return fmt.Errorf("event_service.DeleteEvent: delete event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("event_service.DeleteEvent: commit: %w", err)
	}
	return nil
}
