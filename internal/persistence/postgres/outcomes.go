package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alphagate/alphagate/internal/decision"
	"github.com/alphagate/alphagate/internal/outcome"
	"github.com/alphagate/alphagate/internal/persistence"
)

type outcomeRow struct {
	ID            string    `db:"id"`
	DecisionID    string    `db:"decision_id"`
	Instrument    string    `db:"instrument"`
	Sector        string    `db:"sector"`
	Action        string    `db:"action"`
	EntryPrice    float64   `db:"entry_price"`
	DecidedAt     time.Time `db:"decided_at"`
	Status        string    `db:"status"`
	Horizons      []byte    `db:"horizons"`
	PeakPrice     float64   `db:"peak_price"`
	TroughPrice   float64   `db:"trough_price"`
	Quality       string    `db:"quality"`
	RawConfidence float64   `db:"raw_confidence"`
	NeedsRetry    bool      `db:"needs_retry"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type outcomeRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewOutcomeRepo creates a PostgreSQL outcome repository.
func NewOutcomeRepo(db *sqlx.DB, timeout time.Duration) persistence.OutcomeRepo {
	return &outcomeRepo{db: db, timeout: timeout}
}

func (r *outcomeRepo) Insert(ctx context.Context, o *outcome.Outcome) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	horizons, err := json.Marshal(o.Horizons)
	if err != nil {
		return fmt.Errorf("marshal horizons: %w", err)
	}

	query := `
		INSERT INTO outcomes
		(id, decision_id, instrument, sector, action, entry_price, decided_at,
		 status, horizons, peak_price, trough_price, quality, raw_confidence,
		 needs_retry, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = r.db.ExecContext(ctx, query,
		o.ID, o.DecisionID, o.Instrument, o.Sector, o.Action.String(),
		o.EntryPrice, o.DecidedAt, o.Status.String(), horizons,
		o.PeakPrice, o.TroughPrice, o.Quality.String(), o.RawConfidence,
		o.NeedsRetry, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert outcome %s: %w", o.ID, err)
	}
	return nil
}

func (r *outcomeRepo) Update(ctx context.Context, o *outcome.Outcome) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	horizons, err := json.Marshal(o.Horizons)
	if err != nil {
		return fmt.Errorf("marshal horizons: %w", err)
	}

	query := `
		UPDATE outcomes SET
			status = $2, horizons = $3, peak_price = $4, trough_price = $5,
			quality = $6, needs_retry = $7, updated_at = $8
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		o.ID, o.Status.String(), horizons, o.PeakPrice, o.TroughPrice,
		o.Quality.String(), o.NeedsRetry, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update outcome %s: %w", o.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *outcomeRepo) ListOpen(ctx context.Context) ([]*outcome.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []outcomeRow
	query := `SELECT * FROM outcomes WHERE status != 'COMPLETED' ORDER BY decided_at`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list open outcomes: %w", err)
	}
	return toOutcomes(rows)
}

func (r *outcomeRepo) ListSince(ctx context.Context, since time.Time) ([]*outcome.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []outcomeRow
	query := `SELECT * FROM outcomes WHERE decided_at >= $1 ORDER BY decided_at`
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("list outcomes since %s: %w", since, err)
	}
	return toOutcomes(rows)
}

func toOutcomes(rows []outcomeRow) ([]*outcome.Outcome, error) {
	out := make([]*outcome.Outcome, 0, len(rows))
	for _, row := range rows {
		o := &outcome.Outcome{
			ID:            row.ID,
			DecisionID:    row.DecisionID,
			Instrument:    row.Instrument,
			Sector:        row.Sector,
			Action:        decision.ParseAction(row.Action),
			EntryPrice:    row.EntryPrice,
			DecidedAt:     row.DecidedAt,
			Status:        outcome.ParseStatus(row.Status),
			Horizons:      map[int]outcome.HorizonResult{},
			PeakPrice:     row.PeakPrice,
			TroughPrice:   row.TroughPrice,
			Quality:       outcome.ParseQuality(row.Quality),
			RawConfidence: row.RawConfidence,
			NeedsRetry:    row.NeedsRetry,
			UpdatedAt:     row.UpdatedAt,
		}
		if len(row.Horizons) > 0 {
			if err := json.Unmarshal(row.Horizons, &o.Horizons); err != nil {
				return nil, fmt.Errorf("unmarshal horizons for %s: %w", row.ID, err)
			}
		}
		out = append(out, o)
	}
	return out, nil
}
