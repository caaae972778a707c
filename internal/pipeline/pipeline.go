// Package pipeline drives one preprocessing run: stream the archive, extract
// feature records, aggregate them and write the dataset outputs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/chessgraph/features/internal/aggregate"
	"github.com/freeeve/chessgraph/features/internal/board"
	"github.com/freeeve/chessgraph/features/internal/config"
	"github.com/freeeve/chessgraph/features/internal/dataset"
	"github.com/freeeve/chessgraph/features/internal/eco"
	"github.com/freeeve/chessgraph/features/internal/engine"
	"github.com/freeeve/chessgraph/features/internal/features"
	"github.com/freeeve/chessgraph/features/internal/integrity"
	"github.com/freeeve/chessgraph/features/internal/metrics"
	"github.com/freeeve/chessgraph/features/internal/pgnstream"
	"github.com/freeeve/chessgraph/features/internal/report"
)

// Config configures a Pipeline.
type Config struct {
	Run         config.Config
	Logger      zerolog.Logger
	Out         io.Writer              // Report output, defaults to stdout
	Palette     report.Palette
	NewBoard    func() board.Simulator // Optional, defaults to the real simulator
	Engine      features.Evaluator     // Optional, overrides Run.StockfishPath
	Now         func() time.Time       // Optional clock for processed_date
	LogInterval time.Duration          // Progress log period, default 10s
}

// Result describes the outputs of a run.
type Result struct {
	ArtifactPath string
	StatsPath    string
	Stats        aggregate.Stats
	Reused       bool // Outputs already existed and were reloaded

	GamesRead int64
	Accepted  int64
	Skipped   map[features.SkipReason]int64
	Elapsed   time.Duration
}

// Pipeline runs the preprocessing pass.
type Pipeline struct {
	cfg      Config
	log      zerolog.Logger
	pr       *report.Printer
	openings *eco.Database
	metrics  *metrics.Run
}

// New validates the configuration and loads the optional ECO database.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Run.Validate(); err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.LogInterval == 0 {
		cfg.LogInterval = 10 * time.Second
	}

	p := &Pipeline{
		cfg:     cfg,
		log:     cfg.Logger.With().Str("component", "pipeline").Logger(),
		pr:      report.NewPrinter(cfg.Out, cfg.Palette),
		metrics: metrics.NewRun(),
	}

	if cfg.Run.ECODir != "" {
		db := eco.NewDatabase()
		if err := db.LoadDir(cfg.Run.ECODir); err != nil {
			return nil, fmt.Errorf("load eco database: %w", err)
		}
		p.log.Info().Str("dir", cfg.Run.ECODir).Int("openings", db.Count()).Msg("loaded eco database")
		p.openings = db
	}
	return p, nil
}

// Metrics exposes the run counters.
func (p *Pipeline) Metrics() *metrics.Run {
	return p.metrics
}

// Run produces the artifact and stats report, or reloads them when both
// already exist.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	rc := p.cfg.Run
	res := Result{
		ArtifactPath: rc.ArtifactPath(),
		StatsPath:    rc.StatsPath(),
		Skipped:      make(map[features.SkipReason]int64),
	}

	if err := os.MkdirAll(rc.OutputDir, 0755); err != nil {
		return res, err
	}

	if dataset.Exists(res.ArtifactPath, res.StatsPath) {
		stats, err := dataset.LoadStats(res.StatsPath)
		if err != nil {
			return res, err
		}
		p.log.Info().Str("path", res.ArtifactPath).Msg("processed games file already exists")
		p.pr.Notice("Processed games file already exists at %s", res.ArtifactPath)
		p.pr.OutcomeAnalysis(stats)
		res.Stats = stats
		res.Reused = true
		return res, nil
	}

	recs, err := p.process(ctx, &res)
	if err != nil {
		return res, err
	}

	res.Stats = p.aggregate(recs)
	p.pr.Notice("Total games processed: %d", len(recs))

	p.pr.Notice("Saving processed games to %s...", res.ArtifactPath)
	if _, err := dataset.WriteArtifact(res.ArtifactPath, rc.Moves, recs); err != nil {
		return res, err
	}
	if err := dataset.WriteStats(res.StatsPath, res.Stats); err != nil {
		return res, err
	}
	digest, _, err := integrity.HashFile(res.ArtifactPath, integrity.Hooks{})
	if err != nil {
		return res, fmt.Errorf("hash artifact: %w", err)
	}
	if err := integrity.WriteDigestFile(rc.DigestPath(), digest); err != nil {
		return res, fmt.Errorf("write digest: %w", err)
	}
	p.pr.Notice("Processed games saved to %s", res.ArtifactPath)
	p.pr.Notice("Stats saved to %s", res.StatsPath)
	p.pr.OutcomeAnalysis(res.Stats)

	p.metrics.Finished(res.Elapsed)
	if rc.MetricsFile != "" {
		if err := p.metrics.WriteTextfile(rc.MetricsFile); err != nil {
			return res, err
		}
	}
	return res, nil
}

// process is the single pull loop over the archive. It stops strictly at
// MaxGames records read.
func (p *Pipeline) process(ctx context.Context, res *Result) ([]*features.Record, error) {
	rc := p.cfg.Run

	ecfg := features.Config{
		Moves:    rc.Moves,
		NewBoard: p.cfg.NewBoard,
		Engine:   p.cfg.Engine,
	}
	if p.openings != nil {
		ecfg.Openings = p.openings
	}
	if ecfg.Engine == nil && rc.StockfishPath != "" {
		sf, err := engine.Open(engine.Config{
			Path:   rc.StockfishPath,
			Depth:  rc.EngineDepth,
			HashMB: rc.EngineHashMB,
			Logger: p.cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("start engine: %w", err)
		}
		defer sf.Close()
		ecfg.Engine = sf
	}
	ex, err := features.NewExtractor(ecfg)
	if err != nil {
		return nil, err
	}

	r, err := pgnstream.Open(rc.Input)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	p.log.Info().
		Str("input", rc.Input).
		Int("max_games", rc.MaxGames).
		Int("moves", rc.Moves).
		Msg("processing archive")
	p.pr.Notice("Processing first %d games from %s...", rc.MaxGames, rc.Input)

	startTime := time.Now()
	lastLog := startTime
	var recs []*features.Record

	for res.GamesRead < int64(rc.MaxGames) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		g, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		res.GamesRead++
		p.metrics.GameRead()

		rec, reason, err := ex.Extract(g)
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", res.GamesRead, err)
		}
		if rec == nil {
			res.Skipped[reason]++
			p.metrics.GameSkipped(string(reason))
		} else {
			recs = append(recs, rec)
			res.Accepted++
			p.metrics.GameAccepted()
		}

		if time.Since(lastLog) > p.cfg.LogInterval {
			p.logProgress("processing progress", res, startTime)
			lastLog = time.Now()
		}
	}

	res.Elapsed = time.Since(startTime)
	p.logProgress("processing complete", res, startTime)
	return recs, nil
}

func (p *Pipeline) logProgress(msg string, res *Result, start time.Time) {
	elapsed := time.Since(start)
	p.log.Info().
		Int64("games", res.GamesRead).
		Int64("accepted", res.Accepted).
		Int64("skipped_result", res.Skipped[features.SkipResult]).
		Int64("skipped_short", res.Skipped[features.SkipTooShort]).
		Dur("elapsed", elapsed).
		Float64("games_per_sec", float64(res.GamesRead)/elapsed.Seconds()).
		Msg(msg)
}

func (p *Pipeline) aggregate(recs []*features.Record) aggregate.Stats {
	agg := aggregate.New()
	for _, rec := range recs {
		agg.Add(rec)
	}
	return agg.Stats(p.cfg.Now())
}

// Summarize prints the dataset information, writes the description and
// prints the size reduction and a sample record.
func (p *Pipeline) Summarize(res Result) error {
	rc := p.cfg.Run
	month := dataset.ArchiveMonth(rc.Input)

	var names func(string) string
	if p.openings != nil {
		names = p.openings.Name
	}
	p.pr.DatasetInfo(res.Stats, rc.Moves, month, names)

	text := dataset.Describe(res.Stats, rc.Moves, month)
	if err := dataset.WriteDescription(rc.DescriptionPath(), text); err != nil {
		return fmt.Errorf("write description: %w", err)
	}
	p.pr.Description(text, rc.DescriptionPath())

	archive, aerr := os.Stat(rc.Input)
	artifact, berr := os.Stat(res.ArtifactPath)
	if aerr == nil && berr == nil {
		p.pr.SizeReduction(archive.Size(), artifact.Size())
	} else {
		p.log.Warn().Err(errors.Join(aerr, berr)).Msg("size reduction unavailable")
	}

	if rc.PrintSample {
		if err := p.printSample(res.ArtifactPath); err != nil {
			return err
		}
	}

	p.pr.VerifyHint(res.ArtifactPath, rc.DigestPath())
	return nil
}

func (p *Pipeline) printSample(path string) error {
	r, err := dataset.OpenArtifact(path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer r.Close()

	rec, err := r.Next()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	return p.pr.Sample(rec)
}
