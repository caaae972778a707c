package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/chessgraph/features/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1_000_000, cfg.MaxGames)
	assert.Equal(t, 15, cfg.Moves)
	assert.Equal(t, "./data", cfg.OutputDir)
	assert.Empty(t, cfg.StockfishPath)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CHESSFEAT_INPUT", "/tmp/games.pgn.zst")
	t.Setenv("CHESSFEAT_MAX_GAMES", "500")
	t.Setenv("CHESSFEAT_MOVES", "not-a-number")
	t.Setenv("CHESSFEAT_LOG_LEVEL", "DEBUG")
	t.Setenv("STOCKFISH_PATH", "/usr/bin/stockfish")

	cfg := config.Default()
	cfg.ApplyEnv()

	assert.Equal(t, "/tmp/games.pgn.zst", cfg.Input)
	assert.Equal(t, 500, cfg.MaxGames)
	assert.Equal(t, 15, cfg.Moves, "unparsable value should be ignored")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/usr/bin/stockfish", cfg.StockfishPath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"no input", func(c *config.Config) { c.Input = "" }},
		{"no output", func(c *config.Config) { c.OutputDir = "" }},
		{"zero games", func(c *config.Config) { c.MaxGames = 0 }},
		{"negative moves", func(c *config.Config) { c.Moves = -1 }},
		{"engine without depth", func(c *config.Config) {
			c.StockfishPath = "stockfish"
			c.EngineDepth = 0
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDir = "out"
	cfg.MaxGames = 1000
	cfg.Moves = 10

	assert.Equal(t, filepath.Join("out", "lichess_processed_1000_games_first_10_moves.bin"), cfg.ArtifactPath())
	assert.Equal(t, filepath.Join("out", "lichess_stats_1000_games.json"), cfg.StatsPath())
	assert.Equal(t, filepath.Join("out", "dataset_description.txt"), cfg.DescriptionPath())
	assert.Equal(t, cfg.ArtifactPath()+".sha256", cfg.DigestPath())
}
