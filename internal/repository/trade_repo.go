package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/opinio/market/internal/domain"
	"github.com/shopspring/decimal"
)

// TradeRepository handles all database operations for Trades (positions).
type TradeRepository struct {
	db *sqlx.DB
}

// NewTradeRepository creates a new TradeRepository.
func NewTradeRepository(db *sqlx.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create inserts a new trade inside an existing transaction.  The price
// column is the execution snapshot captured under the event row lock and is
// never updated afterwards.
func (r *TradeRepository) Create(ctx context.Context, tx *sqlx.Tx, t *domain.Trade) error {
	query := `
		INSERT INTO trades
			(id, user_id, event_id, selection, amount, price, status, paid_out, created_at)
		VALUES
			(:id, :user_id, :event_id, :selection, :amount, :price, :status, :paid_out, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("trade_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a trade by its primary key.
func (r *TradeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Trade, error) {
	var t domain.Trade
	err := r.db.GetContext(ctx, &t, `SELECT * FROM trades WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTradeNotFound
		}
		return nil, fmt.Errorf("trade_repo.GetByID: %w", err)
	}
	return &t, nil
}

// GetByUserID returns a user's trade history, paginated.
func (r *TradeRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	err := r.db.SelectContext(ctx, &trades,
		`SELECT * FROM trades WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("trade_repo.GetByUserID: %w", err)
	}
	return trades, nil
}

// GetByEventID returns all trades for an event in placement order.
func (r *TradeRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	err := r.db.SelectContext(ctx, &trades,
		`SELECT * FROM trades WHERE event_id = $1 ORDER BY created_at ASC`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("trade_repo.GetByEventID: %w", err)
	}
	return trades, nil
}

// List returns trades filtered by optional user and status (admin audit view).
func (r *TradeRepository) List(ctx context.Context, userID *uuid.UUID, status string, limit, offset int) ([]*domain.Trade, error) {
	query := `SELECT * FROM trades WHERE 1=1`
	args := []interface{}{}
	n := 1
	if userID != nil {
		query += fmt.Sprintf(` AND user_id = $%d`, n)
		args = append(args, *userID)
		n++
	}
	if status != "" {
		query += fmt.Sprintf(` AND status = $%d`, n)
		args = append(args, status)
		n++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, limit, offset)

	var trades []*domain.Trade
	if err := r.db.SelectContext(ctx, &trades, query, args...); err != nil {
		return nil, fmt.Errorf("trade_repo.List: %w", err)
	}
	return trades, nil
}

// FindUnsettled returns every position for the event with paid_out = false.
// Deliberately unpaginated: settlement is a one-shot full sweep and must see
// the complete set in a single consistent read.
func (r *TradeRepository) FindUnsettled(ctx context.Context, eventID uuid.UUID) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	err := r.db.SelectContext(ctx, &trades,
		`SELECT * FROM trades WHERE event_id = $1 AND paid_out = false ORDER BY created_at ASC`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("trade_repo.FindUnsettled: %w", err)
	}
	return trades, nil
}

// SettlementUpdate carries one position's outcome for the bulk settle write.
type SettlementUpdate struct {
	TradeID uuid.UUID
	Status  domain.TradeStatus
	Payout  decimal.Decimal
}

// MarkSettled applies the settlement batch inside an existing transaction.
// Each update is guarded by paid_out = false, so re-applying the batch after
// a failed run is a no-op for positions that already went through — the
// exactly-once guarantee for payouts lives here.  Returns the number of
// positions actually transitioned.
func (r *TradeRepository) MarkSettled(ctx context.Context, tx *sqlx.Tx, batch []SettlementUpdate) (int64, error) {
	var settled int64
	for _, u := range batch {
		res, err := tx.ExecContext(ctx, `
			UPDATE trades
			SET status     = $1,
			    payout     = $2,
			    paid_out   = true,
			    settled_at = now()
			WHERE id = $3 AND paid_out = false`,
			string(u.Status), u.Payout, u.TradeID)
		if err != nil {
			return settled, fmt.Errorf("trade_repo.MarkSettled (trade %s): %w", u.TradeID, err)
		}
		n, _ := res.RowsAffected()
		settled += n
	}
	return settled, nil
}

// DeleteByEvent removes all trades of an event inside an existing
// transaction (administrative pre-resolution cleanup).
func (r *TradeRepository) DeleteByEvent(ctx context.Context, tx *sqlx.Tx, eventID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("trade_repo.DeleteByEvent: %w", err)
	}
	return nil
}
