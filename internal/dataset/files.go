package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/freeeve/chessgraph/features/internal/aggregate"
)

// writeAtomic writes through a temp file in the target directory and renames
// it into place only when fill succeeds.
func writeAtomic(path string, fill func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// WriteStats writes the stats report as indented JSON.
func WriteStats(path string, stats aggregate.Stats) error {
	data, err := json.MarshalIndent(stats, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	return writeAtomic(path, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

// LoadStats reads a stats report written by WriteStats.
func LoadStats(path string) (aggregate.Stats, error) {
	var stats aggregate.Stats
	data, err := os.ReadFile(path)
	if err != nil {
		return stats, err
	}
	if err := json.Unmarshal(data, &stats); err != nil {
		return stats, fmt.Errorf("parse stats %s: %w", path, err)
	}
	return stats, nil
}

// Exists reports whether every path is an existing regular file.
func Exists(paths ...string) bool {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			return false
		}
	}
	return true
}

var archiveMonthRegex = regexp.MustCompile(`(\d{4})-(\d{2})`)

// ArchiveMonth extracts "MM/YYYY" from names like
// lichess_db_standard_rated_2025-01.pgn.zst, or "" when absent.
func ArchiveMonth(input string) string {
	m := archiveMonthRegex.FindStringSubmatch(filepath.Base(input))
	if m == nil {
		return ""
	}
	return m[2] + "/" + m[1]
}

// Describe renders the dataset description paragraph.
func Describe(stats aggregate.Stats, moves int, month string) string {
	white, _ := stats.Percentages.Get(aggregate.OutcomeWhiteWins)
	black, _ := stats.Percentages.Get(aggregate.OutcomeBlackWins)
	draws, _ := stats.Percentages.Get(aggregate.OutcomeDraws)

	played := "played on lichess.org"
	if month != "" {
		played += " in " + month
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Our dataset is composed of %s standard rated games %s. ", groupThousands(stats.TotalGames), played)
	sb.WriteString("The dataset was collected from the Lichess database (https://database.lichess.org/). ")
	sb.WriteString("Our classes are composed of the three game outcomes that can occur in chess: White Wins, Black Wins, and Draw. ")
	fmt.Fprintf(&sb, "The distribution of our classes is %.1f%% White wins, %.1f%% Black wins and %.1f%% draws. ", white, black, draws)
	fmt.Fprintf(&sb, "For each game, we extract only the first %d moves, along with key features like player ratings, opening codes, material balance, and positional evaluation.", moves)
	return sb.String()
}

// WriteDescription writes the description text.
func WriteDescription(path, text string) error {
	return writeAtomic(path, func(f *os.File) error {
		_, err := f.WriteString(text)
		return err
	})
}

func groupThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
