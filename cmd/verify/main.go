package main

import (
	"errors"
	"flag"
	"io"
	"os"

	"github.com/freeeve/chessgraph/features/internal/integrity"
	"github.com/freeeve/chessgraph/features/internal/report"
)

func main() {
	var (
		file     = flag.String("file", "data/lichess_processed_1000000_games_first_15_moves.bin", "Path to the dataset file")
		hashFile = flag.String("hash", "data/lichess_processed_1000000_games_first_15_moves.bin.sha256", "Path to the hash file")
	)
	flag.Parse()

	os.Exit(run(os.Stdout, report.PaletteFor(os.Stdout), *file, *hashFile))
}

// run verifies file against hashFile and returns the process exit code.
func run(out io.Writer, palette report.Palette, file, hashFile string) int {
	pr := report.NewPrinter(out, palette)
	pr.VerifyBanner(file, hashFile)

	hooks := integrity.Hooks{
		Start: func(size int64) {
			pr.HashStart(file, size)
		},
		Progress: pr.HashProgress,
	}
	res, err := integrity.Verify(file, hashFile, hooks)
	switch {
	case err == nil:
		pr.HashDone(res.Elapsed)
		pr.Digests(res.Expected, res.Actual)
		pr.VerifySuccess()
		return 0
	case errors.Is(err, integrity.ErrMismatch):
		pr.HashDone(res.Elapsed)
		pr.Digests(res.Expected, res.Actual)
		pr.VerifyFailure()
	case errors.Is(err, integrity.ErrHashFile) && errors.Is(err, os.ErrNotExist):
		pr.Error("Hash file '%s' not found.", hashFile)
	case errors.Is(err, integrity.ErrDatasetFile) && errors.Is(err, os.ErrNotExist):
		pr.Error("File '%s' not found.", file)
	case errors.Is(err, integrity.ErrHashFile):
		pr.Error("reading hash file: %v", err)
	default:
		pr.Error("calculating hash: %v", err)
	}
	return 1
}
