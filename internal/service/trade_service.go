package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/opinio/market/internal/config"
	"github.com/opinio/market/internal/domain"
	"github.com/opinio/market/internal/repository"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into services to avoid import cycles
// ──────────────────────────────────────────────────────────────────────────────

// Broadcaster is the minimal interface the services need from the WS hub.
// Implemented by ws.Hub.  Publishing is best effort: a slow or absent hub
// never fails a trade or a settlement run.
type Broadcaster interface {
	BroadcastEventUpdate(snap domain.MarketSnapshot)
	BroadcastTradeCreated(trade *domain.Trade)
	BroadcastTradeSettled(trade *domain.Trade)
}

// ──────────────────────────────────────────────────────────────────────────────
// TradeService
// ──────────────────────────────────────────────────────────────────────────────

// TradeService orchestrates trade placement: quote, escrow, position insert
// and market reprice all inside a single PostgreSQL transaction, serialised
// per event by the event row lock.
type TradeService struct {
	db          *sqlx.DB
	tradeRepo   *repository.TradeRepository
	eventRepo   *repository.EventRepository
	walletRepo  *repository.WalletRepository
	cfg         *config.Config
	broadcaster Broadcaster // injected after WS Hub is built
}

// NewTradeService creates a TradeService.
func NewTradeService(
	db *sqlx.DB,
	tradeRepo *repository.TradeRepository,
	eventRepo *repository.EventRepository,
	walletRepo *repository.WalletRepository,
	cfg *config.Config,
) *TradeService {
	return &TradeService{
		db:         db,
		tradeRepo:  tradeRepo,
		eventRepo:  eventRepo,
		walletRepo: walletRepo,
		cfg:        cfg,
	}
}

// SetBroadcaster injects the WS Hub dependency post-construction.
func (s *TradeService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// PlaceTrade
// ──────────────────────────────────────────────────────────────────────────────

// PlaceTrade validates the request, then atomically: locks the event row,
// quotes the selected side at the pre-trade price, escrows the stake,
// records the position with its price snapshot, applies the volume to the
// market and reprices it, and writes an audit log entry.  Everything
// happens inside a single PostgreSQL transaction; a failure at any step
// leaves no trace.
//
// The event row lock is held from the quote to the reprice, so two
// concurrent trades on the same event can never execute at the same price
// snapshot.  Trades on different events never contend.
//
// After a successful commit it asynchronously broadcasts the new market
// state and the created position.
func (s *TradeService) PlaceTrade(ctx context.Context, req domain.PlaceTradeRequest) (*domain.Trade, error) {
	// ── 1. Input validation ──────────────────────────────────────────────────
	if !req.Selection.IsValid() {
		return nil, domain.ErrInvalidSelection
	}
	minAmount := decimal.NewFromFloat(s.cfg.Market.MinTradeAmount)
	if !req.Amount.IsPositive() || req.Amount.LessThan(minAmount) {
		return nil, domain.ErrInvalidAmount
	}

	// ── 2. Begin transaction ─────────────────────────────────────────────────
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("trade_service.PlaceTrade: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// ── 3. Lock event row and verify it is accepting trades ──────────────────
	event, err := s.eventRepo.GetForTrade(ctx, tx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("trade_service.PlaceTrade: lock event: %w", err)
	}
	if !event.IsLive() {
		err = domain.ErrTradingClosed
		return nil, err
	}

	// ── 4. Quote the selected side at the pre-trade price ────────────────────
	price, err := event.QuoteFor(req.Selection)
	if err != nil {
		return nil, err
	}

	// ── 5. Escrow the stake ──────────────────────────────────────────────────
	// DeductBalance acquires FOR UPDATE on the wallet row internally, checks
	// the balance, and deducts atomically.
	if err = s.walletRepo.DeductBalance(ctx, tx, req.UserID, req.Amount); err != nil {
		return nil, fmt.Errorf("trade_service.PlaceTrade: escrow: %w", err)
	}

	// ── 6. Persist the position with its immutable price snapshot ────────────
	now := time.Now().UTC()
	trade := &domain.Trade{
		ID:        uuid.New(),
		UserID:    req.UserID,
		EventID:   req.EventID,
		Selection: req.Selection,
		Amount:    req.Amount,
		Price:     price,
		Status:    domain.TradeStatusPending,
		PaidOut:   false,
		CreatedAt: now,
	}
	if err = s.tradeRepo.Create(ctx, tx, trade); err != nil {
		return nil, fmt.Errorf("trade_service.PlaceTrade: create trade: %w", err)
	}

	// ── 7. Apply volume and reprice the market ───────────────────────────────
	event.ApplyTrade(req.Selection, req.Amount)
	if err = s.eventRepo.SaveMarketState(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("trade_service.PlaceTrade: save market state: %w", err)
	}

	// ── 8. Audit log ─────────────────────────────────────────────────────────
	wallet, err := s.walletRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("trade_service.PlaceTrade: get wallet for log: %w", err)
	}
	tradeIDCopy := trade.ID
	txn := &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		Type:          domain.TxStake,
		Amount:        req.Amount,
		BalanceBefore: wallet.Balance,
		BalanceAfter:  wallet.Balance.Sub(req.Amount),
		RefID:         &tradeIDCopy,
		Description:   fmt.Sprintf("Trade placed: %s @ %s", string(req.Selection), price.StringFixed(4)),
		CreatedAt:     now,
	}
	if err = s.walletRepo.LogTransaction(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("trade_service.PlaceTrade: log tx: %w", err)
	}

	// ── 9. Commit ────────────────────────────────────────────────────────────
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("trade_service.PlaceTrade: commit: %w", err)
	}

	// ── 10. Async: WS broadcast ──────────────────────────────────────────────
	go s.postTradeAsync(event.Snapshot(), trade)

	return trade, nil
}

// postTradeAsync pushes the repriced market and the new position to WS
// subscribers.  Runs in a goroutine; delivery is best effort.
func (s *TradeService) postTradeAsync(snap domain.MarketSnapshot, trade *domain.Trade) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastEventUpdate(snap)
	s.broadcaster.BroadcastTradeCreated(trade)
}

// ──────────────────────────────────────────────────────────────────────────────
// Query helpers
// ──────────────────────────────────────────────────────────────────────────────

// GetMyTrades returns paginated trades for a user.
func (s *TradeService) GetMyTrades(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Trade, error) {
	trades, err := s.tradeRepo.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("trade_service.GetMyTrades: %w", err)
	}
	return trades, nil
}

// GetTradeByID returns a single trade only if it belongs to userID.
func (s *TradeService) GetTradeByID(ctx context.Context, tradeID uuid.UUID, userID uuid.UUID) (*domain.Trade, error) {
	trade, err := s.tradeRepo.GetByID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("trade_service.GetTradeByID: %w", err)
	}
	if trade.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return trade, nil
}

// ListTrades returns trades filtered by optional user and status (admin audit view).
func (s *TradeService) ListTrades(ctx context.Context, userID *uuid.UUID, status string, limit, offset int) ([]*domain.Trade, error) {
	trades, err := s.tradeRepo.List(ctx, userID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("trade_service.ListTrades: %w", err)
	}
	return trades, nil
}
