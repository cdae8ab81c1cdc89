package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/alphagate/alphagate/internal/calibration"
	"github.com/alphagate/alphagate/internal/config"
	"github.com/alphagate/alphagate/internal/engine"
	"github.com/alphagate/alphagate/internal/gates"
	"github.com/alphagate/alphagate/internal/httpapi"
	"github.com/alphagate/alphagate/internal/marketdata"
	"github.com/alphagate/alphagate/internal/metrics"
	"github.com/alphagate/alphagate/internal/outcome"
	"github.com/alphagate/alphagate/internal/perf"
	"github.com/alphagate/alphagate/internal/persistence"
	"github.com/alphagate/alphagate/internal/persistence/memory"
	"github.com/alphagate/alphagate/internal/persistence/postgres"
	"github.com/alphagate/alphagate/internal/regime"
	"github.com/alphagate/alphagate/internal/scheduler"
	"github.com/alphagate/alphagate/internal/sizing"
)

const (
	appName = "alphagate"
	version = "v1.0.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	var configPath string

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Regime-aware trade recommendation engine",
		Version: version,
		Long: `alphagate evaluates instruments through fundamental, technical, risk,
and timing gates, calibrates confidence against tracked history, and
sizes positions under portfolio caps.`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/engine.yaml", "Path to engine config")

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run one evaluation batch over a candidate file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			evidencePath, _ := cmd.Flags().GetString("evidence")
			portfolioPath, _ := cmd.Flags().GetString("portfolio")
			tolerance, _ := cmd.Flags().GetString("risk-tolerance")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			asOf, err := parseAsOf(cmd)
			if err != nil {
				return err
			}

			app, err := buildApp(cfg, appOptions{
				evidencePath:  evidencePath,
				portfolioPath: portfolioPath,
				tolerance:     sizing.ParseRiskTolerance(tolerance),
				inMemory:      dryRun,
			})
			if err != nil {
				return err
			}
			defer app.close()

			result, err := app.engine.RunEvaluation(cmd.Context(), asOf)
			if err != nil {
				return err
			}
			for _, d := range result.Decisions {
				fmt.Printf("%-8s %-6s raw=%5.1f cal=%5.1f size=%.2f%%\n",
					d.Instrument, d.Action, d.RawConfidence, d.CalibratedConfidence, d.PositionSizePct)
			}
			return nil
		},
	}
	evaluateCmd.Flags().String("evidence", "", "JSON file of candidate evidence bundles (required)")
	evaluateCmd.Flags().String("portfolio", "", "JSON file with the current portfolio snapshot")
	evaluateCmd.Flags().String("risk-tolerance", "moderate", "Risk tolerance (conservative|moderate|aggressive)")
	evaluateCmd.Flags().String("as-of", "", "Evaluation date (YYYY-MM-DD, default today)")
	evaluateCmd.Flags().Bool("dry-run", false, "Evaluate in memory without touching the database")
	_ = evaluateCmd.MarkFlagRequired("evidence")

	trackCmd := &cobra.Command{
		Use:   "track",
		Short: "Advance open outcomes against current prices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			asOf, err := parseAsOf(cmd)
			if err != nil {
				return err
			}
			app, err := buildApp(cfg, appOptions{})
			if err != nil {
				return err
			}
			defer app.close()

			updated, err := app.engine.RunTracking(cmd.Context(), asOf)
			if err != nil {
				return err
			}
			fmt.Printf("updated %d outcomes\n", updated)
			return nil
		},
	}
	trackCmd.Flags().String("as-of", "", "Tracking date (YYYY-MM-DD, default today)")

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Print a performance report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			instrument, _ := cmd.Flags().GetString("instrument")
			sector, _ := cmd.Flags().GetString("sector")
			windowDays, _ := cmd.Flags().GetInt("window-days")

			app, err := buildApp(cfg, appOptions{})
			if err != nil {
				return err
			}
			defer app.close()

			since := time.Now().UTC().AddDate(0, 0, -windowDays)
			rep, err := app.engine.BuildReport(cmd.Context(),
				perf.Filter{Instrument: instrument, Sector: sector}, since)
			if err != nil {
				return err
			}
			fmt.Print(rep.Render())
			return nil
		},
	}
	reportCmd.Flags().String("instrument", "", "Restrict to one instrument")
	reportCmd.Flags().String("sector", "", "Restrict to one sector")
	reportCmd.Flags().Int("window-days", 90, "Trailing window in days")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			evidencePath, _ := cmd.Flags().GetString("evidence")
			portfolioPath, _ := cmd.Flags().GetString("portfolio")

			app, err := buildApp(cfg, appOptions{
				evidencePath:  evidencePath,
				portfolioPath: portfolioPath,
			})
			if err != nil {
				return err
			}
			defer app.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched := scheduler.New(scheduler.Config{
				EvaluateSpec: cfg.Scheduler.EvaluateSpec,
				TrackSpec:    cfg.Scheduler.TrackSpec,
			}, app.engine)
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()

			srv := httpapi.NewServer(httpapi.Config{
				ListenAddr:      cfg.Server.ListenAddr,
				ReadTimeout:     cfg.Server.GetReadTimeout(),
				WriteTimeout:    cfg.Server.GetWriteTimeout(),
				ShutdownTimeout: cfg.Server.GetShutdownTimeout(),
			}, app.engine, app.decisions, app.metrics)
			return srv.Run(ctx)
		},
	}
	serveCmd.Flags().String("evidence", "", "JSON file of candidate evidence bundles for scheduled batches")
	serveCmd.Flags().String("portfolio", "", "JSON file with the current portfolio snapshot")

	rootCmd.AddCommand(evaluateCmd, trackCmd, reportCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	return cfg, nil
}

func parseAsOf(cmd *cobra.Command) (time.Time, error) {
	raw, _ := cmd.Flags().GetString("as-of")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	asOf, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q: %w", raw, err)
	}
	return asOf, nil
}

type appOptions struct {
	evidencePath  string
	portfolioPath string
	tolerance     sizing.RiskTolerance
	inMemory      bool
}

type app struct {
	engine    *engine.Engine
	decisions persistence.DecisionRepo
	metrics   *metrics.Metrics
	close     func()
}

// buildApp wires the full pipeline from config: market data client with
// optional Redis cache, Postgres (or in-memory) persistence, and the
// engine with all its stages.
func buildApp(cfg config.Config, opts appOptions) (*app, error) {
	client := marketdata.NewClient(cfg.MarketData)
	var source marketdata.Source = client
	var closers []func()
	if cfg.CacheOn {
		cached := marketdata.NewCachedSource(client, cfg.Cache)
		closers = append(closers, func() { _ = cached.Close() })
		source = cached
	}

	var (
		decisions persistence.DecisionRepo
		outcomes  persistence.OutcomeRepo
		samples   persistence.SampleRepo
	)
	if opts.inMemory {
		store := memory.NewStore()
		decisions, outcomes, samples = store.Decisions(), store.Outcomes(), store.Samples()
	} else {
		db, err := sqlx.Connect("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		closers = append(closers, func() { _ = db.Close() })

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		decisions = postgres.NewDecisionRepo(db, cfg.Database.GetQueryTimeout())
		outcomes = postgres.NewOutcomeRepo(db, cfg.Database.GetQueryTimeout())
		samples = postgres.NewSampleRepo(db, cfg.Database.GetQueryTimeout())
	}

	m := metrics.New()
	eng := engine.New(engine.Config{RiskTolerance: opts.tolerance}, engine.Deps{
		Detector:   regime.NewDetector(source, cfg.Regime),
		Thresholds: gates.NewThresholdProvider(cfg.Thresholds),
		Evaluator:  gates.NewEvaluator(cfg.RiskCaps, cfg.Evaluator),
		Calibrator: calibration.New(cfg.Calibration),
		Sizer:      sizing.NewSizer(cfg.Sizing),
		Tracker:    outcome.NewTracker(cfg.Tracker, source, source, nil),
		Analyzer:   perf.NewAnalyzer(cfg.Calibration.BucketWidth),

		Evidence:  fileEvidence{path: opts.evidencePath},
		Portfolio: filePortfolio{path: opts.portfolioPath},

		Decisions: decisions,
		Outcomes:  outcomes,
		Samples:   samples,

		Metrics: m,

		MinAccuracySamples: cfg.Sizing.MinAccuracySamples,
	})

	return &app{
		engine:    eng,
		decisions: decisions,
		metrics:   m,
		close: func() {
			for _, c := range closers {
				c()
			}
		},
	}, nil
}
