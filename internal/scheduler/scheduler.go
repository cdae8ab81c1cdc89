// Package scheduler runs the recurring evaluation and tracking jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/alphagate/alphagate/internal/engine"
)

// Config holds the cron specs for the recurring jobs.
type Config struct {
	EvaluateSpec string
	TrackSpec    string
}

// Scheduler drives the engine on a fixed cadence: evaluation after each
// close, tracking daily. Jobs share the engine but never overlap with
// themselves; cron skips a tick while the previous run is still going.
type Scheduler struct {
	cron   *cron.Cron
	engine *engine.Engine
	config Config
}

// New creates a scheduler for the engine.
func New(config Config, eng *engine.Engine) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		engine: eng,
		config: config,
	}
}

// Start registers the jobs and begins the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.config.EvaluateSpec, func() {
		if _, err := s.engine.RunEvaluation(ctx, time.Now().UTC()); err != nil {
			log.Error().Err(err).Msg("scheduled evaluation failed")
		}
	}); err != nil {
		return fmt.Errorf("register evaluation job: %w", err)
	}

	if _, err := s.cron.AddFunc(s.config.TrackSpec, func() {
		if _, err := s.engine.RunTracking(ctx, time.Now().UTC()); err != nil {
			log.Error().Err(err).Msg("scheduled tracking failed")
		}
	}); err != nil {
		return fmt.Errorf("register tracking job: %w", err)
	}

	s.cron.Start()
	log.Info().Str("evaluate", s.config.EvaluateSpec).
		Str("track", s.config.TrackSpec).
		Msg("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}
