// Package config holds the preprocessing run configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config configures one preprocessing run.
type Config struct {
	Input       string // Compressed PGN archive (.pgn.zst or .pgn)
	MaxGames    int    // Maximum game records to read from the archive
	Moves       int    // Full moves kept per game (N)
	OutputDir   string // Directory for the artifact, stats and description
	ECODir      string // Directory of ECO .tsv files (empty = disabled)
	MetricsFile string // Prometheus textfile path (empty = disabled)
	LogLevel    string
	PrintSample bool

	StockfishPath string // Stockfish binary (empty = engine eval disabled)
	EngineDepth   int
	EngineHashMB  int
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Input:        "../lichess_db_standard_rated_2025-01.pgn.zst",
		MaxGames:     1_000_000,
		Moves:        15,
		OutputDir:    "./data",
		LogLevel:     "info",
		PrintSample:  true,
		EngineDepth:  12,
		EngineHashMB: 64,
	}
}

// ApplyEnv overrides fields from CHESSFEAT_* variables and STOCKFISH_PATH.
// Unparsable numbers are ignored.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CHESSFEAT_INPUT"); v != "" {
		c.Input = v
	}
	if v := os.Getenv("CHESSFEAT_MAX_GAMES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxGames = n
		}
	}
	if v := os.Getenv("CHESSFEAT_MOVES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Moves = n
		}
	}
	if v := os.Getenv("CHESSFEAT_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("CHESSFEAT_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("STOCKFISH_PATH"); v != "" {
		c.StockfishPath = v
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Input == "" {
		return errors.New("input archive path is required")
	}
	if c.OutputDir == "" {
		return errors.New("output directory is required")
	}
	if c.MaxGames <= 0 {
		return fmt.Errorf("max games must be positive, got %d", c.MaxGames)
	}
	if c.Moves <= 0 {
		return fmt.Errorf("moves must be positive, got %d", c.Moves)
	}
	if c.StockfishPath != "" && c.EngineDepth <= 0 {
		return fmt.Errorf("engine depth must be positive, got %d", c.EngineDepth)
	}
	return nil
}

// ArtifactPath is the serialized feature record list.
func (c *Config) ArtifactPath() string {
	return filepath.Join(c.OutputDir, fmt.Sprintf("lichess_processed_%d_games_first_%d_moves.bin", c.MaxGames, c.Moves))
}

// StatsPath is the JSON aggregate stats report.
func (c *Config) StatsPath() string {
	return filepath.Join(c.OutputDir, fmt.Sprintf("lichess_stats_%d_games.json", c.MaxGames))
}

// DescriptionPath is the free-text dataset description.
func (c *Config) DescriptionPath() string {
	return filepath.Join(c.OutputDir, "dataset_description.txt")
}

// DigestPath is the reference SHA-256 file written next to the artifact.
func (c *Config) DigestPath() string {
	return c.ArtifactPath() + ".sha256"
}
