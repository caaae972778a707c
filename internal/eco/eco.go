// Package eco provides ECO (Encyclopedia of Chess Openings) lookup.
package eco

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/freeeve/chessgraph/features/internal/board"
)

// Opening represents an ECO opening classification.
type Opening struct {
	ECO  string `json:"eco"`
	Name string `json:"name"`
}

// Database holds ECO openings indexed by their UCI move sequence.
type Database struct {
	byLine map[string]Opening
	names  map[string]string // first name seen per code
	count  int
}

// NewDatabase creates an empty ECO database.
func NewDatabase() *Database {
	return &Database{
		byLine: make(map[string]Opening),
		names:  make(map[string]string),
	}
}

// moveNumberRegex matches move numbers like "1." or "12..."
var moveNumberRegex = regexp.MustCompile(`\d+\.+\s*`)

// LoadDir loads all .tsv files from a directory.
func (db *Database) LoadDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.tsv"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .tsv files found in %s", dir)
	}

	for _, file := range files {
		if err := db.LoadFile(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// LoadFile loads a single TSV file with eco\tname\tpgn lines.
func (db *Database) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Skip header
		if lineNum == 1 && strings.HasPrefix(line, "eco\t") {
			continue
		}

		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}

		moves, err := lineKey(parts[2])
		if err != nil {
			// Skip invalid lines silently
			continue
		}
		db.Add(parts[0], parts[1], moves)
	}

	return scanner.Err()
}

// Add registers an opening reached by the given UCI moves.
func (db *Database) Add(code, name string, uciMoves []string) {
	if len(uciMoves) == 0 {
		return
	}
	db.byLine[strings.Join(uciMoves, " ")] = Opening{ECO: code, Name: name}
	if _, ok := db.names[code]; !ok {
		db.names[code] = name
	}
	db.count++
}

// lineKey parses PGN moves like "1. e4 e5 2. Nf3 Nc6" into UCI moves.
func lineKey(pgnMoves string) ([]string, error) {
	// Remove move numbers: "1. e4 e5 2. Nf3" -> "e4 e5 Nf3"
	cleaned := moveNumberRegex.ReplaceAllString(pgnMoves, "")

	pos := board.NewPosition()
	var ucis []string
	for _, san := range strings.Fields(cleaned) {
		// Skip annotations
		if san[0] == '$' || san[0] == '{' {
			continue
		}
		uci, err := pos.Apply(san)
		if err != nil {
			return nil, fmt.Errorf("apply %q: %w", san, err)
		}
		ucis = append(ucis, uci)
	}
	return ucis, nil
}

// Lookup returns the opening reached by exactly these moves, or nil.
func (db *Database) Lookup(uciMoves []string) *Opening {
	if o, ok := db.byLine[strings.Join(uciMoves, " ")]; ok {
		return &o
	}
	return nil
}

// Classify returns the deepest opening whose line is a prefix of uciMoves.
func (db *Database) Classify(uciMoves []string) (code, name string, ok bool) {
	prefixes := make([]string, len(uciMoves))
	var sb strings.Builder
	for i, mv := range uciMoves {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(mv)
		prefixes[i] = sb.String()
	}
	for i := len(prefixes) - 1; i >= 0; i-- {
		if o, found := db.byLine[prefixes[i]]; found {
			return o.ECO, o.Name, true
		}
	}
	return "", "", false
}

// Name returns the first-registered opening name for an ECO code.
func (db *Database) Name(code string) string {
	return db.names[code]
}

// Count returns the number of openings loaded.
func (db *Database) Count() int {
	return db.count
}
