// Package domain defines the core business entities and types for the
// opinio YES/NO prediction market system.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// EventStatus represents the lifecycle state of an event (market).
type EventStatus string

const (
	StatusUpcoming EventStatus = "upcoming" // created, not yet open for trading
	StatusLive     EventStatus = "live"     // accepting trades
	StatusResolved EventStatus = "resolved" // outcome set, positions settled
)

// Side represents the outcome a user trades on.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// IsValid returns true if the side is a recognised selection.
func (s Side) IsValid() bool {
	return s == SideYes || s == SideNo
}

// Price bounds. Every stored and quoted price stays inside [floor, ceiling]
// so payout computation (stake ÷ price) can never divide by zero.
var (
	PriceFloor   = decimal.NewFromFloat(0.01)
	PriceCeiling = decimal.NewFromFloat(0.99)

	// ColdStartPrice is the YES price before any volume exists.
	ColdStartPrice = decimal.NewFromFloat(0.5)
)

// ──────────────────────────────────────────────────────────────────────────────
// Event
// ──────────────────────────────────────────────────────────────────────────────

// Event represents a single binary-outcome prediction market.
//
// CurrentYesPrice, TotalYesVolume and TotalNoVolume together form the mutable
// market state consumed by the pricing methods below. They are only ever
// mutated under the event repository's row lock (one writer per event) and
// never after the event is resolved.
type Event struct {
	ID              uuid.UUID       `json:"id"                db:"id"`
	Name            string          `json:"name"              db:"name"`
	Description     string          `json:"description"       db:"description"`
	ImageURL        *string         `json:"image_url"         db:"image_url"`
	Status          EventStatus     `json:"status"            db:"status"`
	CurrentYesPrice decimal.Decimal `json:"current_yes_price" db:"current_yes_price"`
	TotalYesVolume  decimal.Decimal `json:"total_yes_volume"  db:"total_yes_volume"`
	TotalNoVolume   decimal.Decimal `json:"total_no_volume"   db:"total_no_volume"`
	WinningOutcome  *Side           `json:"winning_outcome"   db:"winning_outcome"`
	Version         int64           `json:"-"                 db:"version"`
	StartTime       time.Time       `json:"start_time"        db:"start_time"`
	ResolvedAt      *time.Time      `json:"resolved_at"       db:"resolved_at"`
	CreatedAt       time.Time       `json:"created_at"        db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"        db:"updated_at"`
}

// IsLive returns true while the event is accepting trades.
func (e *Event) IsLive() bool {
	return e.Status == StatusLive
}

// IsResolved returns true after the event has been settled.
func (e *Event) IsResolved() bool {
	return e.Status == StatusResolved
}

// TotalVolume returns the sum of both sides' volume.
func (e *Event) TotalVolume() decimal.Decimal {
	return e.TotalYesVolume.Add(e.TotalNoVolume)
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
// Legal transitions: upcoming → live, upcoming → resolved, live → resolved.
// Everything else (including any transition out of resolved) is rejected.
func (e *Event) CanTransitionTo(next EventStatus) bool {
	switch e.Status {
	case StatusUpcoming:
		return next == StatusLive || next == StatusResolved
	case StatusLive:
		return next == StatusResolved
	default:
		return false
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Pricing
// ──────────────────────────────────────────────────────────────────────────────

// QuoteFor returns the execution price for a trade on the given side.
// YES trades at the current YES price, NO at its complement.
//
// A quote of exactly 0 or 1 means the market state is corrupted (the clamp
// in ApplyTrade should make that impossible); ErrInvalidMarketState blocks
// the trade instead of letting settlement divide by a degenerate price.
func (e *Event) QuoteFor(side Side) (decimal.Decimal, error) {
	price := e.CurrentYesPrice
	if side == SideNo {
		price = decimal.NewFromInt(1).Sub(e.CurrentYesPrice)
	}
	if price.LessThanOrEqual(decimal.Zero) || price.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, ErrInvalidMarketState
	}
	return price, nil
}

// ApplyTrade records amount of volume on side and reprices the market:
//
//	yesPrice = totalYesVolume / (totalYesVolume + totalNoVolume)
//
// falling back to ColdStartPrice when there is no volume, then clamped to
// [PriceFloor, PriceCeiling]. The trade itself executes at the pre-trade
// quote; this post-trade price applies to the next participant.
func (e *Event) ApplyTrade(side Side, amount decimal.Decimal) {
	if side == SideYes {
		e.TotalYesVolume = e.TotalYesVolume.Add(amount)
	} else {
		e.TotalNoVolume = e.TotalNoVolume.Add(amount)
	}

	total := e.TotalVolume()
	newPrice := ColdStartPrice
	if total.IsPositive() {
		newPrice = e.TotalYesVolume.Div(total)
	}
	e.CurrentYesPrice = clampPrice(newPrice)
}

// clampPrice bounds p to [PriceFloor, PriceCeiling].
func clampPrice(p decimal.Decimal) decimal.Decimal {
	if p.LessThan(PriceFloor) {
		return PriceFloor
	}
	if p.GreaterThan(PriceCeiling) {
		return PriceCeiling
	}
	return p
}

// ──────────────────────────────────────────────────────────────────────────────
// MarketSnapshot — lightweight read model for WS broadcasts and API responses
// ──────────────────────────────────────────────────────────────────────────────

// MarketSnapshot is a derived, read-only view of an event's market state.
type MarketSnapshot struct {
	EventID         uuid.UUID       `json:"event_id"`
	Status          EventStatus     `json:"status"`
	CurrentYesPrice decimal.Decimal `json:"current_yes_price"`
	CurrentNoPrice  decimal.Decimal `json:"current_no_price"`
	TotalYesVolume  decimal.Decimal `json:"total_yes_volume"`
	TotalNoVolume   decimal.Decimal `json:"total_no_volume"`
	WinningOutcome  *Side           `json:"winning_outcome,omitempty"`
}

// Snapshot builds a MarketSnapshot from the event's current state.
func (e *Event) Snapshot() MarketSnapshot {
	return MarketSnapshot{
		EventID:         e.ID,
		Status:          e.Status,
		CurrentYesPrice: e.CurrentYesPrice,
		CurrentNoPrice:  decimal.NewFromInt(1).Sub(e.CurrentYesPrice),
		TotalYesVolume:  e.TotalYesVolume,
		TotalNoVolume:   e.TotalNoVolume,
		WinningOutcome:  e.WinningOutcome,
	}
}
