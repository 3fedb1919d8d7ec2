// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs broadcast to connected clients.
package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/opinio/market/internal/domain"
	"github.com/shopspring/decimal"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeEventUpdated MsgType = "event_updated"
	MsgTypeTradeCreated MsgType = "trade_created"
	MsgTypeTradeUpdated MsgType = "trade_updated"
	MsgTypeError        MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// EventUpdatedMessage — broadcast on every market state change.
// ──────────────────────────────────────────────────────────────────────────────

// EventUpdatedMessage carries the repriced market after a trade, a lifecycle
// transition or a resolution.
type EventUpdatedMessage struct {
	Type            MsgType            `json:"type"`
	EventID         uuid.UUID          `json:"event_id"`
	Status          domain.EventStatus `json:"status"`
	CurrentYesPrice decimal.Decimal    `json:"current_yes_price"`
	CurrentNoPrice  decimal.Decimal    `json:"current_no_price"`
	TotalYesVolume  decimal.Decimal    `json:"total_yes_volume"`
	TotalNoVolume   decimal.Decimal    `json:"total_no_volume"`
	WinningOutcome  *domain.Side       `json:"winning_outcome,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// TradeCreatedMessage — broadcast after a position is accepted.
// ──────────────────────────────────────────────────────────────────────────────

// TradeCreatedMessage notifies all clients that a position entered the market.
type TradeCreatedMessage struct {
	Type      MsgType         `json:"type"`
	TradeID   uuid.UUID       `json:"trade_id"`
	EventID   uuid.UUID       `json:"event_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Selection domain.Side     `json:"selection"`
	Amount    decimal.Decimal `json:"amount"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// TradeUpdatedMessage — broadcast per position during settlement.
// ──────────────────────────────────────────────────────────────────────────────

// TradeUpdatedMessage tells clients how a position was settled.  Settlement
// broadcasts always follow the event_updated message of the same run.
type TradeUpdatedMessage struct {
	Type      MsgType            `json:"type"`
	TradeID   uuid.UUID          `json:"trade_id"`
	EventID   uuid.UUID          `json:"event_id"`
	UserID    uuid.UUID          `json:"user_id"`
	Status    domain.TradeStatus `json:"status"`
	Payout    *decimal.Decimal   `json:"payout,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ErrorMessage — sent to a single client on a non-fatal error.
// ──────────────────────────────────────────────────────────────────────────────

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
