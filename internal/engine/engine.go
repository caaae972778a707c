// Package engine evaluates positions with a UCI engine (Stockfish).
package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/freeeve/uci"
	"github.com/rs/zerolog"

	"github.com/freeeve/chessgraph/features/internal/features"
)

// Config configures the engine process.
type Config struct {
	Path    string
	Depth   int
	HashMB  int
	Threads int
	Logger  zerolog.Logger
}

// Stockfish evaluates FENs to a fixed depth. It drives a single engine
// process and is not safe for concurrent use.
type Stockfish struct {
	eng   *uci.Engine
	depth int
	log   zerolog.Logger
	evals int64
}

var _ features.Evaluator = (*Stockfish)(nil)

// Open starts the engine and applies options.
func Open(cfg Config) (*Stockfish, error) {
	if cfg.Path == "" {
		return nil, errors.New("engine path is required")
	}
	if cfg.Depth <= 0 {
		return nil, fmt.Errorf("engine depth must be positive, got %d", cfg.Depth)
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}
	if cfg.HashMB <= 0 {
		cfg.HashMB = 64
	}

	eng, err := uci.NewEngine(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("start engine %s: %w", cfg.Path, err)
	}
	opts := uci.Options{
		Hash:    cfg.HashMB,
		Threads: cfg.Threads,
		MultiPV: 1,
		Ponder:  false,
		OwnBook: false,
	}
	if err := eng.SetOptions(opts); err != nil {
		eng.Close()
		return nil, fmt.Errorf("set engine options: %w", err)
	}

	cfg.Logger.Info().
		Str("path", cfg.Path).
		Int("depth", cfg.Depth).
		Int("hash_mb", cfg.HashMB).
		Int("threads", cfg.Threads).
		Msg("engine started")

	return &Stockfish{eng: eng, depth: cfg.Depth, log: cfg.Logger}, nil
}

// Evaluate returns the score of fen from White's perspective in pawns.
func (s *Stockfish) Evaluate(fen string) (float64, error) {
	if err := s.eng.SetFEN(fen); err != nil {
		return 0, fmt.Errorf("set FEN: %w", err)
	}
	results, err := s.eng.GoDepth(s.depth, uci.HighestDepthOnly)
	if err != nil {
		return 0, fmt.Errorf("search: %w", err)
	}
	if len(results.Results) == 0 {
		return 0, fmt.Errorf("no results from engine for %s", fen)
	}

	best := results.Results[0]
	for _, r := range results.Results {
		if r.Depth > best.Depth {
			best = r
		}
	}
	s.evals++

	v := Normalize(int(best.Score), best.Mate, blackToMove(fen))
	s.log.Debug().Str("fen", fen).Float64("eval", v).Msg("evaluated")
	return v, nil
}

// Evaluations returns how many positions were scored.
func (s *Stockfish) Evaluations() int64 {
	return s.evals
}

// Close stops the engine process.
func (s *Stockfish) Close() {
	s.eng.Close()
}

// Normalize converts a side-to-move engine score to White's perspective in
// pawns. Mate scores saturate at ±features.MateScore.
func Normalize(score int, mate, blackToMove bool) float64 {
	if blackToMove {
		score = -score
	}
	if mate {
		return features.MateValue(score)
	}
	return float64(score) / 100
}

func blackToMove(fen string) bool {
	fields := strings.Fields(fen)
	return len(fields) > 1 && fields[1] == "b"
}
