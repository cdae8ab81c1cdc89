package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alphagate/alphagate/internal/engine"
	"github.com/alphagate/alphagate/internal/evidence"
)

// fileEvidence reads candidate bundles from a JSON file. Evidence
// production lives upstream of the engine; the file format is the
// bundle's JSON encoding.
type fileEvidence struct {
	path string
}

func (f fileEvidence) Candidates(_ context.Context, asOf time.Time) ([]*evidence.Bundle, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read evidence file: %w", err)
	}
	var bundles []*evidence.Bundle
	if err := json.Unmarshal(data, &bundles); err != nil {
		return nil, fmt.Errorf("parse evidence file %s: %w", f.path, err)
	}
	for _, b := range bundles {
		if b.AsOf.IsZero() {
			b.AsOf = asOf
		}
	}
	return bundles, nil
}

// filePortfolio reads the portfolio snapshot from a JSON file. An empty
// path means an empty portfolio.
type filePortfolio struct {
	path string
}

func (f filePortfolio) Snapshot(_ context.Context) (engine.Portfolio, error) {
	if f.path == "" {
		return engine.Portfolio{}, nil
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return engine.Portfolio{}, fmt.Errorf("read portfolio file: %w", err)
	}
	var p engine.Portfolio
	if err := json.Unmarshal(data, &p); err != nil {
		return engine.Portfolio{}, fmt.Errorf("parse portfolio file %s: %w", f.path, err)
	}
	return p, nil
}
