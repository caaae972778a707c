// Package report prints run summaries and verifier output to the console.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/freeeve/chessgraph/features/internal/aggregate"
	"github.com/freeeve/chessgraph/features/internal/features"
)

// Palette holds the escape sequences used for emphasis. The zero value
// prints plain text.
type Palette struct {
	Red    string
	Green  string
	Yellow string
	Blue   string
	Bold   string
	Reset  string
}

// ANSIPalette colors output for terminals.
func ANSIPalette() Palette {
	return Palette{
		Red:    "\033[91m",
		Green:  "\033[92m",
		Yellow: "\033[93m",
		Blue:   "\033[94m",
		Bold:   "\033[1m",
		Reset:  "\033[0m",
	}
}

// PlainPalette disables colors.
func PlainPalette() Palette {
	return Palette{}
}

// PaletteFor picks ANSIPalette when f is a terminal.
func PaletteFor(f *os.File) Palette {
	if f != nil && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return ANSIPalette()
	}
	return PlainPalette()
}

// Printer writes human-readable reports.
type Printer struct {
	out io.Writer
	p   Palette
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer, p Palette) *Printer {
	if out == nil {
		out = os.Stdout
	}
	return &Printer{out: out, p: p}
}

func (pr *Printer) printf(format string, args ...any) {
	fmt.Fprintf(pr.out, format, args...)
}

// Notice prints one plain status line.
func (pr *Printer) Notice(format string, args ...any) {
	pr.printf(format+"\n", args...)
}

var outcomeOrder = []string{
	aggregate.OutcomeWhiteWins,
	aggregate.OutcomeBlackWins,
	aggregate.OutcomeDraws,
}

// OutcomeAnalysis prints totals, counts and two-decimal percentages.
func (pr *Printer) OutcomeAnalysis(stats aggregate.Stats) {
	pr.printf("\n--- Game Outcome Analysis ---\n")
	pr.printf("Total Games: %d\n", stats.TotalGames)
	pr.printf("\nGame Outcome Counts:\n")
	for _, e := range stats.Outcomes {
		pr.printf("%s: %d\n", e.Key, e.Value)
	}
	pr.printf("\nGame Outcome Percentages:\n")
	for _, e := range stats.Percentages {
		pr.printf("%s: %.2f%%\n", e.Key, e.Value)
	}
}

// DatasetInfo prints the dataset information block. names may be nil; when
// set it resolves opening names for the top codes.
func (pr *Printer) DatasetInfo(stats aggregate.Stats, moves int, month string, names func(code string) string) {
	pr.printf("\n%s=== DATASET INFORMATION ===%s\n", pr.p.Bold, pr.p.Reset)
	if month != "" {
		pr.printf("Dataset: Lichess Standard Rated Games (%s)\n", month)
	} else {
		pr.printf("Dataset: Lichess Standard Rated Games\n")
	}
	pr.printf("Samples: %d games\n", stats.TotalGames)
	pr.printf("Moves per game: %d\n", moves)
	pr.printf("Processed on: %s\n", stats.ProcessedDate)

	pr.printf("\n--- Game Outcome Distribution ---\n")
	for _, label := range outcomeOrder {
		pct, _ := stats.Percentages.Get(label)
		n, _ := stats.Outcomes.Get(label)
		pr.printf("%s: %.2f%% (%d games)\n", label, pct, n)
	}

	total := stats.RatingStats.Total
	pr.printf("\n--- Rating Information ---\n")
	pr.printf("Average Rating: %.1f\n", total.Avg)
	pr.printf("Rating Range: %.0f - %.0f\n", total.Min, total.Max)

	pr.printf("\n--- Top ECO Codes ---\n")
	for _, e := range stats.TopECOCodes {
		share := 0.0
		if stats.TotalGames > 0 {
			share = float64(e.Value) / float64(stats.TotalGames) * 100
		}
		line := fmt.Sprintf("%s: %d games (%.1f%%)", e.Key, e.Value, share)
		if names != nil {
			if name := names(e.Key); name != "" {
				line += " " + name
			}
		}
		pr.printf("%s\n", line)
	}
}

// Description prints the description text and where it was saved.
func (pr *Printer) Description(text, path string) {
	pr.printf("\n--- Dataset Description ---\n")
	pr.printf("%s\n", text)
	pr.printf("\nDescription saved to %s\n", path)
}

// SizeReduction prints archive and artifact sizes in MB.
func (pr *Printer) SizeReduction(archiveBytes, artifactBytes int64) {
	pr.printf("\n--- Data Size Reduction ---\n")
	pr.printf("Original file size: %.2f MB\n", megabytes(archiveBytes))
	pr.printf("Processed file size: %.2f MB\n", megabytes(artifactBytes))
	reduction := 0.0
	if archiveBytes > 0 {
		reduction = (1 - float64(artifactBytes)/float64(archiveBytes)) * 100
	}
	pr.printf("Size reduction: %.2f%%\n", reduction)
}

// Sample prints one record as indented JSON.
func (pr *Printer) Sample(rec *features.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}
	pr.printf("\n--- Sample Processed Game ---\n")
	pr.printf("%s\n", data)
	return nil
}

// VerifyHint points at the verifier after a run.
func (pr *Printer) VerifyHint(artifact, digest string) {
	pr.printf("\nTo verify dataset integrity, run: verify --file %s --hash %s\n", artifact, digest)
}

// VerifyBanner opens the verifier output.
func (pr *Printer) VerifyBanner(file, hashFile string) {
	pr.printf("%s%sChess Dataset Verification%s\n", pr.p.Bold, pr.p.Blue, pr.p.Reset)
	pr.printf("Dataset file: %s\n", file)
	pr.printf("Hash file: %s\n", hashFile)
	pr.printf("%s\n", strings.Repeat("-", 50))
}

// HashStart announces hashing of file.
func (pr *Printer) HashStart(file string, size int64) {
	pr.printf("%sCalculating hash for %s...%s\n", pr.p.Blue, filepath.Base(file), pr.p.Reset)
	pr.printf("File size: %.2f MB\n", megabytes(size))
}

// HashProgress rewrites the progress line in place.
func (pr *Printer) HashProgress(chunks, total int64) {
	pct := int64(100)
	if total > 0 {
		pct = min(100, chunks*100/total)
	}
	pr.printf("\rProgress: %d%% (%d/%d chunks)", pct, chunks, total)
}

// HashDone reports the hashing time and clears the progress line.
func (pr *Printer) HashDone(elapsed time.Duration) {
	pr.printf("\rHash calculation completed in %.2f seconds.%s\n", elapsed.Seconds(), strings.Repeat(" ", 30))
}

// Digests prints the expected and calculated digests.
func (pr *Printer) Digests(expected, actual string) {
	pr.printf("%sExpected hash: %s%s\n", pr.p.Blue, pr.p.Reset, expected)
	pr.printf("%sCalculated hash: %s%s\n", pr.p.Blue, pr.p.Reset, actual)
}

// VerifySuccess prints the success line.
func (pr *Printer) VerifySuccess() {
	pr.printf("\n%s%s✓ Verification successful: %s%sThe dataset is valid!%s\n",
		pr.p.Green, pr.p.Bold, pr.p.Reset, pr.p.Green, pr.p.Reset)
}

// VerifyFailure prints the failure lines.
func (pr *Printer) VerifyFailure() {
	pr.printf("\n%s%s✗ Verification failed: %s%sThe dataset may be corrupted or incomplete.%s\n",
		pr.p.Red, pr.p.Bold, pr.p.Reset, pr.p.Red, pr.p.Reset)
	pr.printf("%sConsider re-downloading the dataset or checking if you have the correct hash file.%s\n",
		pr.p.Yellow, pr.p.Reset)
}

// Error prints a diagnostic line.
func (pr *Printer) Error(format string, args ...any) {
	pr.printf("%sError: %s%s\n", pr.p.Red, fmt.Sprintf(format, args...), pr.p.Reset)
}

func megabytes(n int64) float64 {
	return float64(n) / (1024 * 1024)
}
