package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alphagate/alphagate/internal/calibration"
	"github.com/alphagate/alphagate/internal/persistence"
)

type sampleRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSampleRepo creates a PostgreSQL calibration-sample repository. It
// projects graded outcomes into (confidence, win) pairs; quality grades of
// EXCELLENT or GOOD count as wins.
func NewSampleRepo(db *sqlx.DB, timeout time.Duration) persistence.SampleRepo {
	return &sampleRepo{db: db, timeout: timeout}
}

func (r *sampleRepo) LoadCalibrationSamples(ctx context.Context) ([]calibration.Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT instrument, sector, raw_confidence,
		       quality IN ('EXCELLENT', 'GOOD') AS win,
		       decided_at
		FROM outcomes
		WHERE quality != 'NOT_RATED'
		ORDER BY decided_at`

	var samples []calibration.Sample
	if err := r.db.SelectContext(ctx, &samples, query); err != nil {
		return nil, fmt.Errorf("load calibration samples: %w", err)
	}
	return samples, nil
}
