package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// TradeStatus represents the current state of a user's position.
type TradeStatus string

const (
	TradeStatusPending TradeStatus = "pending" // event not yet resolved
	TradeStatusWon     TradeStatus = "won"     // event resolved in user's favour
	TradeStatusLost    TradeStatus = "lost"    // event resolved against user
)

// ──────────────────────────────────────────────────────────────────────────────
// Trade
// ──────────────────────────────────────────────────────────────────────────────

// Trade represents a single user position on one side of an event.
//
// Price is the snapshot of the selected side's price at the instant the
// trade executed. It is immutable after creation; settlement divides by it,
// never recomputes it. PaidOut transitions false→true exactly once, only by
// the settlement engine.
type Trade struct {
	ID        uuid.UUID        `json:"id"         db:"id"`
	UserID    uuid.UUID        `json:"user_id"    db:"user_id"`
	EventID   uuid.UUID        `json:"event_id"   db:"event_id"`
	Selection Side             `json:"selection"  db:"selection"`
	Amount    decimal.Decimal  `json:"amount"     db:"amount"`
	Price     decimal.Decimal  `json:"price"      db:"price"`
	Status    TradeStatus      `json:"status"     db:"status"`
	PaidOut   bool             `json:"paid_out"   db:"paid_out"`
	Payout    *decimal.Decimal `json:"payout"     db:"payout"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	SettledAt *time.Time       `json:"settled_at" db:"settled_at"`
}

// IsSettled returns true once the position has been paid out (or marked lost).
func (t *Trade) IsSettled() bool {
	return t.PaidOut
}

// IsWinner reports whether the position is on the winning side.
func (t *Trade) IsWinner(winningOutcome Side) bool {
	return t.Selection == winningOutcome
}

// PayoutAmount computes the credit owed to this position when it wins:
//
//	payout = Amount / Price
//
// Price is a probability in (0,1), so staking Amount at price p buys
// Amount/p units each worth 1 on a win. The amount is floored to 4 decimal
// places (matching DB DECIMAL(18,4)). Returns decimal.Zero if Price is zero
// (guard against division by zero; the pricing clamp makes this unreachable).
func (t *Trade) PayoutAmount() decimal.Decimal {
	if t.Price.IsZero() {
		return decimal.Zero
	}
	return t.Amount.Div(t.Price).RoundDown(4)
}

// StakeRefunds aggregates the escrowed stakes of unsettled positions per
// user.  Used when an event is deleted before resolution: every pending
// stake goes back to its owner, so wallet balances stay conserved.  Settled
// positions are excluded; their money already moved through settlement.
func StakeRefunds(trades []*Trade) map[uuid.UUID]decimal.Decimal {
	refunds := make(map[uuid.UUID]decimal.Decimal)
	for _, t := range trades {
		if t.IsSettled() {
			continue
		}
		refunds[t.UserID] = refunds[t.UserID].Add(t.Amount)
	}
	return refunds
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaceTradeRequest — value object used by TradeService
// ──────────────────────────────────────────────────────────────────────────────

// PlaceTradeRequest carries the validated inputs for placing a trade.
type PlaceTradeRequest struct {
	UserID    uuid.UUID
	EventID   uuid.UUID
	Selection Side
	Amount    decimal.Decimal
}

// TradeResponse is the API-safe view of a trade.
type TradeResponse struct {
	ID        uuid.UUID        `json:"id"`
	EventID   uuid.UUID        `json:"event_id"`
	Selection Side             `json:"selection"`
	Amount    decimal.Decimal  `json:"amount"`
	Price     decimal.Decimal  `json:"price"`
	Status    TradeStatus      `json:"status"`
	Payout    *decimal.Decimal `json:"payout,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	SettledAt *time.Time       `json:"settled_at,omitempty"`
}

// ToResponse converts a Trade to its API response form.
func (t *Trade) ToResponse() TradeResponse {
	return TradeResponse{
		ID:        t.ID,
		EventID:   t.EventID,
		Selection: t.Selection,
		Amount:    t.Amount,
		Price:     t.Price,
		Status:    t.Status,
		Payout:    t.Payout,
		CreatedAt: t.CreatedAt,
		SettledAt: t.SettledAt,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// SettlementReport — summary returned by the settlement engine
// ──────────────────────────────────────────────────────────────────────────────

// SettlementReport summarises one settlement run over an event.
type SettlementReport struct {
	EventID        uuid.UUID       `json:"event_id"`
	WinningOutcome Side            `json:"winning_outcome"`
	Settled        int             `json:"settled"`
	Winners        int             `json:"winners"`
	Losers         int             `json:"losers"`
	TotalPaidOut   decimal.Decimal `json:"total_paid_out"`
}
