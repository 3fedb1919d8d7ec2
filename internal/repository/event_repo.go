package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/opinio/market/internal/domain"
)

// EventRepository handles all database operations for Events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event row.
func (r *EventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events
			(id, name, description, image_url, status, current_yes_price,
			 total_yes_volume, total_no_volume, version, start_time, created_at, updated_at)
		VALUES
			(:id, :name, :description, :image_url, :status, :current_yes_price,
			 :total_yes_volume, :total_no_volume, :version, :start_time, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("event_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches an event by its primary key.
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	var e domain.Event
	err := r.db.GetContext(ctx, &e, `SELECT * FROM events WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("event_repo.GetByID: %w", err)
	}
	return &e, nil
}

// List returns a paginated slice of events filtered by optional status.
// status="" returns all statuses.  Returns (events, totalCount, error).
func (r *EventRepository) List(ctx context.Context, limit, offset int, status string) ([]*domain.Event, int, error) {
	var events []*domain.Event
	var total int

	if status != "" {
		if err := r.db.GetContext(ctx, &total,
			`SELECT COUNT(*) FROM events WHERE status = $1`, status); err != nil {
			return nil, 0, fmt.Errorf("event_repo.List count: %w", err)
		}
		if err := r.db.SelectContext(ctx, &events,
			`SELECT * FROM events WHERE status = $1 ORDER BY start_time DESC LIMIT $2 OFFSET $3`,
			status, limit, offset); err != nil {
			return nil, 0, fmt.Errorf("event_repo.List select: %w", err)
		}
	} else {
		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM events`); err != nil {
			return nil, 0, fmt.Errorf("event_repo.List count: %w", err)
		}
		if err := r.db.SelectContext(ctx, &events,
			`SELECT * FROM events ORDER BY start_time DESC LIMIT $1 OFFSET $2`,
			limit, offset); err != nil {
			return nil, 0, fmt.Errorf("event_repo.List select: %w", err)
		}
	}
	return events, total, nil
}

// GetForTrade loads the event row under FOR UPDATE inside an existing
// transaction.  The lock serialises concurrent trade creations on the same
// event: the price quote, the volume update and the position insert all
// happen while the row is held, so two trades can never read the same
// pre-trade price.  Trades on different events never contend.
func (r *EventRepository) GetForTrade(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Event, error) {
	var e domain.Event
	err := tx.GetContext(ctx, &e, `SELECT * FROM events WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("event_repo.GetForTrade: %w", err)
	}
	return &e, nil
}

// SaveMarketState persists the repriced market inside the trade transaction.
// The version check is a second line of defence behind the row lock: a stale
// write (version moved underneath us) updates zero rows and aborts the trade.
func (r *EventRepository) SaveMarketState(ctx context.Context, tx *sqlx.Tx, e *domain.Event) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE events
		SET current_yes_price = $1,
		    total_yes_volume  = $2,
		    total_no_volume   = $3,
		    version           = version + 1,
		    updated_at        = now()
		WHERE id = $4 AND version = $5 AND status = 'live'`,
		e.CurrentYesPrice, e.TotalYesVolume, e.TotalNoVolume, e.ID, e.Version)
	if err != nil {
		return fmt.Errorf("event_repo.SaveMarketState: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTradingClosed
	}
	return nil
}

// Open transitions an event from upcoming to live.  Guarded by the current
// status so a duplicate or late request updates zero rows.
func (r *EventRepository) Open(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE events
		SET status = 'live', updated_at = now()
		WHERE id = $1 AND status = 'upcoming'`,
		id)
	if err != nil {
		return fmt.Errorf("event_repo.Open: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.transitionFailure(ctx, id)
	}
	return nil
}

// Resolve flips the event to resolved and records the winning outcome.
// The status guard makes the transition compare-and-swap: exactly one caller
// wins; every later attempt updates zero rows and maps to ErrAlreadyResolved.
// Flipping the status here, before the settlement sweep reads positions, is
// the linearizable point that keeps in-flight trades out of the sweep.
func (r *EventRepository) Resolve(ctx context.Context, id uuid.UUID, outcome domain.Side) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE events
		SET status          = 'resolved',
		    winning_outcome = $1,
		    resolved_at     = now(),
		    version         = version + 1,
		    updated_at      = now()
		WHERE id = $2 AND status IN ('upcoming', 'live')`,
		string(outcome), id)
	if err != nil {
		return fmt.Errorf("event_repo.Resolve: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.transitionFailure(ctx, id)
	}
	return nil
}

// transitionFailure classifies a zero-row guarded update.
func (r *EventRepository) transitionFailure(ctx context.Context, id uuid.UUID) error {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e.IsResolved() {
		return domain.ErrAlreadyResolved
	}
	return domain.ErrInvalidTransition
}

// FindDueToOpen returns upcoming events whose start time has passed.
func (r *EventRepository) FindDueToOpen(ctx context.Context, now time.Time) ([]*domain.Event, error) {
	var events []*domain.Event
	err := r.db.SelectContext(ctx, &events,
		`SELECT * FROM events WHERE status = 'upcoming' AND start_time <= $1 ORDER BY start_time ASC`,
		now)
	if err != nil {
		return nil, fmt.Errorf("event_repo.FindDueToOpen: %w", err)
	}
	return events, nil
}

// FindResolvedWithUnsettled returns resolved events that still carry unpaid
// positions — a settlement run that failed partway and must be retried.
func (r *EventRepository) FindResolvedWithUnsettled(ctx context.Context) ([]*domain.Event, error) {
	var events []*domain.Event
	err := r.db.SelectContext(ctx, &events, `
		SELECT e.*
		FROM events e
		WHERE e.status = 'resolved'
		  AND EXISTS (SELECT 1 FROM trades t WHERE t.event_id = e.id AND t.paid_out = false)
		ORDER BY e.resolved_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("event_repo.FindResolvedWithUnsettled: %w", err)
	}
	return events, nil
}

// Delete removes an unresolved event inside an existing transaction.
// The caller deletes the event's trades in the same transaction.
func (r *EventRepository) Delete(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM events WHERE id = $1 AND status != 'resolved'`, id)
	if err != nil {
		return fmt.Errorf("event_repo.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		e, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if e.IsResolved() {
			return domain.ErrEventResolved
		}
		return domain.ErrEventNotFound
	}
	return nil
}
