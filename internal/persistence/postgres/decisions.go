package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/alphagate/alphagate/internal/decision"
	"github.com/alphagate/alphagate/internal/persistence"
)

// decisionRow is the flat scan target for the decisions table.
type decisionRow struct {
	ID                   string    `db:"id"`
	Instrument           string    `db:"instrument"`
	Sector               string    `db:"sector"`
	AsOf                 time.Time `db:"as_of"`
	Gates                []byte    `db:"gates"`
	Action               string    `db:"action"`
	RawConfidence        float64   `db:"raw_confidence"`
	CalibratedConfidence float64   `db:"calibrated_confidence"`
	PositionSizePct      float64   `db:"position_size_pct"`
	EntryPrice           float64   `db:"entry_price"`
	StopPrice            float64   `db:"stop_price"`
	TargetLevels         []byte    `db:"target_levels"`
	CorrelationCheck     []byte    `db:"correlation_check"`
	Notes                []byte    `db:"notes"`
	CreatedAt            time.Time `db:"created_at"`
}

type decisionRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewDecisionRepo creates a PostgreSQL decision repository.
func NewDecisionRepo(db *sqlx.DB, timeout time.Duration) persistence.DecisionRepo {
	return &decisionRepo{db: db, timeout: timeout}
}

func (r *decisionRepo) Insert(ctx context.Context, d decision.Decision) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	gates, err := json.Marshal(d.Gates)
	if err != nil {
		return fmt.Errorf("marshal gates: %w", err)
	}
	targets, err := json.Marshal(d.TargetLevels)
	if err != nil {
		return fmt.Errorf("marshal target levels: %w", err)
	}
	corr, err := json.Marshal(d.Correlation)
	if err != nil {
		return fmt.Errorf("marshal correlation check: %w", err)
	}
	notes, err := json.Marshal(d.Notes)
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}

	query := `
		INSERT INTO decisions
		(id, instrument, sector, as_of, gates, action, raw_confidence,
		 calibrated_confidence, position_size_pct, entry_price, stop_price,
		 target_levels, correlation_check, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = r.db.ExecContext(ctx, query,
		d.ID, d.Instrument, d.Sector, d.AsOf, gates, d.Action.String(),
		d.RawConfidence, d.CalibratedConfidence, d.PositionSizePct,
		d.EntryPrice, d.StopPrice, targets, corr, notes, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert decision %s: %w", d.ID, err)
	}
	return nil
}

func (r *decisionRepo) GetByID(ctx context.Context, id string) (*decision.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row decisionRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM decisions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get decision %s: %w", id, err)
	}
	return row.toDecision()
}

func (r *decisionRepo) ListByInstrument(ctx context.Context, instrument string, tr persistence.TimeRange, limit int) ([]decision.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []decisionRow
	query := `
		SELECT * FROM decisions
		WHERE instrument = $1 AND as_of >= $2 AND as_of <= $3
		ORDER BY as_of DESC
		LIMIT $4`
	if err := r.db.SelectContext(ctx, &rows, query, instrument, tr.From, tr.To, limit); err != nil {
		return nil, fmt.Errorf("list decisions for %s: %w", instrument, err)
	}
	return toDecisions(rows)
}

func (r *decisionRepo) ListRecent(ctx context.Context, limit int) ([]decision.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []decisionRow
	query := `SELECT * FROM decisions ORDER BY created_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list recent decisions: %w", err)
	}
	return toDecisions(rows)
}

func toDecisions(rows []decisionRow) ([]decision.Decision, error) {
	out := make([]decision.Decision, 0, len(rows))
	for _, row := range rows {
		d, err := row.toDecision()
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

func (row decisionRow) toDecision() (*decision.Decision, error) {
	d := &decision.Decision{
		ID:                   row.ID,
		Instrument:           row.Instrument,
		Sector:               row.Sector,
		AsOf:                 row.AsOf,
		Action:               decision.ParseAction(row.Action),
		RawConfidence:        row.RawConfidence,
		CalibratedConfidence: row.CalibratedConfidence,
		PositionSizePct:      row.PositionSizePct,
		EntryPrice:           row.EntryPrice,
		StopPrice:            row.StopPrice,
		CreatedAt:            row.CreatedAt,
	}
	if err := json.Unmarshal(row.Gates, &d.Gates); err != nil {
		return nil, fmt.Errorf("unmarshal gates for %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.TargetLevels, &d.TargetLevels); err != nil {
		return nil, fmt.Errorf("unmarshal target levels for %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.CorrelationCheck, &d.Correlation); err != nil {
		return nil, fmt.Errorf("unmarshal correlation check for %s: %w", row.ID, err)
	}
	if len(row.Notes) > 0 {
		if err := json.Unmarshal(row.Notes, &d.Notes); err != nil {
			return nil, fmt.Errorf("unmarshal notes for %s: %w", row.ID, err)
		}
	}
	return d, nil
}
