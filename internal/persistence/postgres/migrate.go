package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema holds the engine's table definitions. Gate scores, exit levels,
// and horizon results are stored as JSONB: they are read back whole, never
// queried field-by-field.
const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id                    TEXT PRIMARY KEY,
	instrument            TEXT NOT NULL,
	sector                TEXT NOT NULL DEFAULT '',
	as_of                 TIMESTAMPTZ NOT NULL,
	gates                 JSONB NOT NULL DEFAULT '[]',
	action                TEXT NOT NULL,
	raw_confidence        DOUBLE PRECISION NOT NULL,
	calibrated_confidence DOUBLE PRECISION NOT NULL,
	position_size_pct     DOUBLE PRECISION NOT NULL,
	entry_price           DOUBLE PRECISION NOT NULL,
	stop_price            DOUBLE PRECISION NOT NULL,
	target_levels         JSONB NOT NULL DEFAULT '[]',
	correlation_check     JSONB NOT NULL DEFAULT '{}',
	notes                 JSONB NOT NULL DEFAULT '[]',
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_decisions_instrument_asof ON decisions (instrument, as_of DESC);
CREATE INDEX IF NOT EXISTS idx_decisions_created ON decisions (created_at DESC);

CREATE TABLE IF NOT EXISTS outcomes (
	id             TEXT PRIMARY KEY,
	decision_id    TEXT NOT NULL REFERENCES decisions(id),
	instrument     TEXT NOT NULL,
	sector         TEXT NOT NULL DEFAULT '',
	action         TEXT NOT NULL,
	entry_price    DOUBLE PRECISION NOT NULL,
	decided_at     TIMESTAMPTZ NOT NULL,
	status         TEXT NOT NULL,
	horizons       JSONB NOT NULL DEFAULT '{}',
	peak_price     DOUBLE PRECISION NOT NULL DEFAULT 0,
	trough_price   DOUBLE PRECISION NOT NULL DEFAULT 0,
	quality        TEXT NOT NULL DEFAULT 'NOT_RATED',
	raw_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	needs_retry    BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_outcomes_status ON outcomes (status);
CREATE INDEX IF NOT EXISTS idx_outcomes_decided ON outcomes (decided_at DESC);
`

// Migrate creates the engine's tables when missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
