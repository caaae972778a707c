package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/freeeve/chessgraph/features/internal/config"
	"github.com/freeeve/chessgraph/features/internal/logx"
	"github.com/freeeve/chessgraph/features/internal/pipeline"
	"github.com/freeeve/chessgraph/features/internal/report"
)

func main() {
	cfg := config.Default()
	cfg.ApplyEnv()

	flag.StringVar(&cfg.Input, "input", cfg.Input, "Path to the PGN archive (.pgn.zst or .pgn)")
	flag.IntVar(&cfg.MaxGames, "max-games", cfg.MaxGames, "Maximum games to read from the archive")
	flag.IntVar(&cfg.Moves, "moves", cfg.Moves, "Full moves kept per game")
	flag.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Output directory")
	flag.StringVar(&cfg.ECODir, "eco-dir", cfg.ECODir, "Directory of ECO .tsv files (optional)")
	flag.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "Write prometheus metrics to this textfile (optional)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.PrintSample, "sample", cfg.PrintSample, "Print the first processed record")
	flag.StringVar(&cfg.StockfishPath, "stockfish", cfg.StockfishPath, "Path to Stockfish binary (optional)")
	flag.IntVar(&cfg.EngineDepth, "engine-depth", cfg.EngineDepth, "Stockfish search depth")
	flag.IntVar(&cfg.EngineHashMB, "engine-hash", cfg.EngineHashMB, "Stockfish hash size in MB")
	flag.Parse()

	logger := logx.NewLogger(os.Stderr, cfg.LogLevel)
	logger.Info().
		Str("input", cfg.Input).
		Str("output_dir", cfg.OutputDir).
		Int("max_games", cfg.MaxGames).
		Int("moves", cfg.Moves).
		Bool("engine", cfg.StockfishPath != "").
		Msg("starting preprocess")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := pipeline.New(pipeline.Config{
		Run:     cfg,
		Logger:  logger,
		Out:     os.Stdout,
		Palette: report.PaletteFor(os.Stdout),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	res, err := p.Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("preprocess failed")
	}
	if err := p.Summarize(res); err != nil {
		logger.Fatal().Err(err).Msg("summarize dataset")
	}

	logger.Info().
		Str("artifact", res.ArtifactPath).
		Int("accepted", res.Stats.TotalGames).
		Bool("reused", res.Reused).
		Msg("preprocess complete")
}
