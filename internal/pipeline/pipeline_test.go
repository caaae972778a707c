package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/chessgraph/features/internal/aggregate"
	"github.com/freeeve/chessgraph/features/internal/board"
	"github.com/freeeve/chessgraph/features/internal/config"
	"github.com/freeeve/chessgraph/features/internal/dataset"
	"github.com/freeeve/chessgraph/features/internal/features"
	"github.com/freeeve/chessgraph/features/internal/integrity"
	"github.com/freeeve/chessgraph/features/internal/pipeline"
	"github.com/freeeve/chessgraph/features/internal/report"
)

// knightShuffle returns full moves of knights going out and back, which keeps
// the position legal for any length.
func knightShuffle(fullMoves int) string {
	var sb strings.Builder
	for i := 1; i <= fullMoves; i++ {
		if i%2 == 1 {
			sb.WriteString(fmtMove(i, "Nf3", "Nf6"))
		} else {
			sb.WriteString(fmtMove(i, "Ng1", "Ng8"))
		}
	}
	return sb.String()
}

func fmtMove(n int, white, black string) string {
	return strings.Join([]string{strconv.Itoa(n) + ".", white, "{ [%eval 0.1] }", black, ""}, " ")
}

func gameA() string {
	return `[Event "Rated Blitz game"]
[Result "1-0"]
[WhiteElo "1800"]
[BlackElo "1700"]
[ECO "A04"]
[TimeControl "300+3"]

` + knightShuffle(20) + "1-0\n\n"
}

const gameB = `[Event "Rated Blitz game"]
[Result "*"]
[WhiteElo "1500"]
[BlackElo "1600"]

1. e4 e5 2. Nf3 Nc6 *

`

func writeArchive(t *testing.T, dir, text string) string {
	t.Helper()
	path := filepath.Join(dir, "lichess_db_standard_rated_2025-01.pgn.zst")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = enc.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func newPipeline(t *testing.T, rc config.Config, out *bytes.Buffer) *pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.New(pipeline.Config{
		Run:     rc,
		Logger:  zerolog.Nop(),
		Out:     out,
		Palette: report.PlainPalette(),
		Now:     func() time.Time { return time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return p
}

func testConfig(t *testing.T, archive string) config.Config {
	dir := t.TempDir()
	rc := config.Default()
	rc.Input = archive
	rc.OutputDir = filepath.Join(dir, "data")
	rc.MaxGames = 100
	rc.MetricsFile = filepath.Join(dir, "chessfeat.prom")
	return rc
}

func TestRunTwoGameArchive(t *testing.T) {
	archive := writeArchive(t, t.TempDir(), gameA()+gameB)
	rc := testConfig(t, archive)

	var out bytes.Buffer
	p := newPipeline(t, rc, &out)
	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Reused)
	assert.Equal(t, int64(2), res.GamesRead)
	assert.Equal(t, int64(1), res.Accepted)
	assert.Equal(t, int64(1), res.Skipped[features.SkipResult])

	_, recs, err := dataset.ReadArtifact(res.ArtifactPath)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, 0, rec.ResultClass)
	assert.Equal(t, 100, rec.EloDiff)
	assert.Len(t, rec.Moves, 30)
	assert.Len(t, rec.LegalMovesCount, 30)
	assert.Equal(t, rec.WhiteMaterial-rec.BlackMaterial, rec.MaterialBalance)
	assert.Equal(t, features.TimeClassBlitz, rec.TimeClass)
	assert.Len(t, rec.Evals, 15)

	stats := res.Stats
	assert.Equal(t, 1, stats.TotalGames)
	n, _ := stats.Outcomes.Get(aggregate.OutcomeWhiteWins)
	assert.Equal(t, 1, n)
	assert.Equal(t, aggregate.RatingSummary{Min: 1800, Max: 1800, Avg: 1800}, stats.RatingStats.White)
	assert.Equal(t, aggregate.RatingSummary{Min: 1700, Max: 1700, Avg: 1700}, stats.RatingStats.Black)
	assert.Equal(t, "2025-02-01 12:00:00", stats.ProcessedDate)

	_, err = integrity.Verify(res.ArtifactPath, rc.DigestPath(), integrity.Hooks{})
	assert.NoError(t, err)

	prom, err := os.ReadFile(rc.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `chessfeat_games_skipped_total{reason="result"} 1`)

	require.NoError(t, p.Summarize(res))
	assert.Contains(t, out.String(), "Total Games: 1")
	assert.Contains(t, out.String(), "Dataset: Lichess Standard Rated Games (01/2025)")
	assert.Contains(t, out.String(), `"result": "1-0"`)
	desc, err := os.ReadFile(rc.DescriptionPath())
	require.NoError(t, err)
	assert.Contains(t, string(desc), "100.0% White wins")
}

func TestRunReusesExistingOutputs(t *testing.T) {
	archive := writeArchive(t, t.TempDir(), gameA()+gameB)
	rc := testConfig(t, archive)

	first, err := newPipeline(t, rc, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)

	// The archive is gone, so a reprocess would fail
	require.NoError(t, os.Remove(archive))

	var out bytes.Buffer
	second, err := newPipeline(t, rc, &out).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.Equal(t, first.Stats, second.Stats)
	assert.Equal(t, int64(0), second.GamesRead)
	assert.Contains(t, out.String(), "already exists")
}

func TestRunStopsAtMaxGames(t *testing.T) {
	archive := writeArchive(t, t.TempDir(), gameB+gameA()+gameA())
	rc := testConfig(t, archive)
	rc.MaxGames = 2

	res, err := newPipeline(t, rc, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.GamesRead)
	assert.Equal(t, int64(1), res.Accepted)
	assert.Contains(t, res.ArtifactPath, "lichess_processed_2_games_first_15_moves.bin")
}

func TestRunShortGameDropped(t *testing.T) {
	archive := writeArchive(t, t.TempDir(), gameA())
	rc := testConfig(t, archive)
	rc.Moves = 21

	res, err := newPipeline(t, rc, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Accepted)
	assert.Equal(t, int64(1), res.Skipped[features.SkipTooShort])
	assert.Equal(t, 0, res.Stats.TotalGames)
}

func TestRunIllegalMoveIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		movetext string
	}{
		{"unreachable square", "1. e4 e5 2. Ke3 Nc6 1-0"},
		{"captures own pawn", "1. Nd2 e5 1-0"},
		{"queen through own pawn", "1. Nf3 Nf6 2. Qd2 Ng8 1-0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			archive := writeArchive(t, t.TempDir(), gameA()+"[Result \"1-0\"]\n\n"+tc.movetext+"\n\n")
			rc := testConfig(t, archive)

			_, err := newPipeline(t, rc, &bytes.Buffer{}).Run(context.Background())
			require.Error(t, err)
			var illegal *board.IllegalMoveError
			assert.True(t, errors.As(err, &illegal))
			assert.False(t, dataset.Exists(rc.ArtifactPath()))
			assert.False(t, dataset.Exists(rc.StatsPath()))
		})
	}
}

func TestRunMissingArchive(t *testing.T) {
	rc := testConfig(t, filepath.Join(t.TempDir(), "missing.pgn.zst"))
	_, err := newPipeline(t, rc, &bytes.Buffer{}).Run(context.Background())
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	archive := writeArchive(t, t.TempDir(), gameA())
	rc := testConfig(t, archive)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPipeline(t, rc, &bytes.Buffer{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	rc := config.Default()
	rc.Moves = 0
	_, err := pipeline.New(pipeline.Config{Run: rc, Logger: zerolog.Nop()})
	assert.Error(t, err)
}
