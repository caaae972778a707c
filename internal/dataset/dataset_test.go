package dataset_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/chessgraph/features/internal/aggregate"
	"github.com/freeeve/chessgraph/features/internal/dataset"
	"github.com/freeeve/chessgraph/features/internal/features"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func sampleRecords() []*features.Record {
	return []*features.Record{
		{
			Result: "1-0", ResultClass: 0, WhiteElo: 1800, BlackElo: 1700, EloDiff: 100,
			ECO: "C20", TimeControl: "0+1", BaseTimeSeconds: intp(0), IncrementSeconds: intp(1),
			TimeClass: features.TimeClassBullet,
			Moves:     []string{"e2e4", "e7e5"}, LegalMovesCount: []int{20, 20},
			Evals: []float64{0, 0.25}, FinalEval: floatp(0),
			WhiteMaterial: 39, BlackMaterial: 39, WhiteCanCastle: true, BlackCanCastle: true,
			WhiteCenterControl: 2, BlackCenterControl: 2,
		},
		{
			Result: "1/2-1/2", ResultClass: 2, WhiteElo: 0, BlackElo: 1500, EloDiff: -1500,
			TimeControl: "-",
			Moves:       []string{"d2d4", "g8f6"}, LegalMovesCount: []int{20, 20},
			WhiteMaterial: 39, BlackMaterial: 38, MaterialBalance: 1,
			EngineEval: floatp(-0.4), OpeningName: "Indian Defense",
		},
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.bin")
	recs := sampleRecords()

	h, err := dataset.WriteArtifact(path, 1, recs)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), h.RecordCount)

	got, back, err := dataset.ReadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, h.Checksum, got.Checksum)
	assert.Equal(t, uint32(1), got.Moves)
	assert.Equal(t, recs, back)

	// Zero-valued pointers survive the round trip
	require.NotNil(t, back[0].FinalEval)
	require.NotNil(t, back[0].BaseTimeSeconds)
	assert.Nil(t, back[1].BaseTimeSeconds)
}

func TestArtifactEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	_, err := dataset.WriteArtifact(path, 15, nil)
	require.NoError(t, err)

	_, back, err := dataset.ReadArtifact(path)
	require.NoError(t, err)
	assert.Empty(t, back)
}

func TestArtifactStreamingReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.bin")
	_, err := dataset.WriteArtifact(path, 1, sampleRecords())
	require.NoError(t, err)

	r, err := dataset.OpenArtifact(path)
	require.NoError(t, err)
	defer r.Close()

	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "1-0", first.Result)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestArtifactCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "games.bin")
	_, err := dataset.WriteArtifact(path, 1, sampleRecords())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	badMagic := append([]byte("XXXX"), data[4:]...)
	p1 := filepath.Join(dir, "magic.bin")
	require.NoError(t, os.WriteFile(p1, badMagic, 0644))
	_, _, err = dataset.ReadArtifact(p1)
	assert.True(t, errors.Is(err, dataset.ErrBadArtifact))

	// Claim one more record than the body holds
	moreCount := append([]byte(nil), data...)
	moreCount[12]++
	p2 := filepath.Join(dir, "count.bin")
	require.NoError(t, os.WriteFile(p2, moreCount, 0644))
	_, _, err = dataset.ReadArtifact(p2)
	assert.True(t, errors.Is(err, dataset.ErrBadArtifact))

	badSum := append([]byte(nil), data...)
	badSum[16] ^= 0xFF
	p3 := filepath.Join(dir, "sum.bin")
	require.NoError(t, os.WriteFile(p3, badSum, 0644))
	_, _, err = dataset.ReadArtifact(p3)
	assert.True(t, errors.Is(err, dataset.ErrBadArtifact))

	p4 := filepath.Join(dir, "short.bin")
	require.NoError(t, os.WriteFile(p4, data[:10], 0644))
	_, _, err = dataset.ReadArtifact(p4)
	assert.True(t, errors.Is(err, dataset.ErrBadArtifact))
}

func TestStatsRoundTrip(t *testing.T) {
	agg := aggregate.New()
	for _, rec := range sampleRecords() {
		agg.Add(rec)
	}
	stats := agg.Stats(time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC))

	path := filepath.Join(t.TempDir(), "stats.json")
	require.NoError(t, dataset.WriteStats(path, stats))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, field := range []string{"total_games", "outcomes", "percentages", "rating_stats", "top_eco_codes", "processed_date"} {
		assert.Contains(t, string(data), `"`+field+`"`)
	}

	back, err := dataset.LoadStats(path)
	require.NoError(t, err)
	assert.Equal(t, stats, back)
}

func TestLoadStatsErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := dataset.LoadStats(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	_, err = dataset.LoadStats(bad)
	assert.Error(t, err)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(a, nil, 0644))

	assert.True(t, dataset.Exists(a))
	assert.False(t, dataset.Exists(a, filepath.Join(dir, "b")))
	assert.False(t, dataset.Exists(dir))
}

func TestDescribe(t *testing.T) {
	stats := aggregate.Stats{
		TotalGames: 1234567,
		Percentages: aggregate.OrderedMap[float64]{
			{Key: aggregate.OutcomeWhiteWins, Value: 49.96},
			{Key: aggregate.OutcomeBlackWins, Value: 46.04},
			{Key: aggregate.OutcomeDraws, Value: 4},
		},
	}
	text := dataset.Describe(stats, 15, dataset.ArchiveMonth("../lichess_db_standard_rated_2025-01.pgn.zst"))

	assert.Contains(t, text, "1,234,567 standard rated games played on lichess.org in 01/2025.")
	assert.Contains(t, text, "50.0% White wins, 46.0% Black wins and 4.0% draws")
	assert.Contains(t, text, "first 15 moves")

	assert.Equal(t, "", dataset.ArchiveMonth("games.pgn.zst"))
	assert.Contains(t, dataset.Describe(stats, 15, ""), "played on lichess.org. ")

	path := filepath.Join(t.TempDir(), "dataset_description.txt")
	require.NoError(t, dataset.WriteDescription(path, text))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Our dataset is composed of"))
}
