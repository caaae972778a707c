// Package pgnstream reads PGN game records from a (optionally zstd
// compressed) archive one game at a time, keeping move comments so that
// embedded evaluation tags survive parsing.
package pgnstream

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const (
	peekBufferSize = 1 << 20
	maxLineSize    = 16 << 20
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// tagRegex matches header lines like [WhiteElo "1800"]
var tagRegex = regexp.MustCompile(`^\[([A-Za-z0-9_]+)\s+"(.*)"\s*\]$`)

// Move is one half-move in SAN together with the comment that follows it.
type Move struct {
	SAN     string
	Comment string
}

// Game is one parsed game record.
type Game struct {
	Tags  map[string]string
	Moves []Move
}

// Tag returns a header value, or "" when absent.
func (g *Game) Tag(name string) string {
	return g.Tags[name]
}

// Reader is a pull-based game record reader. It holds at most one game in
// memory at a time.
type Reader struct {
	closer  io.Closer
	dec     *zstd.Decoder
	sc      *bufio.Scanner
	pending string
	hasLine bool
	games   int64
}

// Open opens a PGN archive. Compression is detected from the zstd frame
// magic, not the file extension.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader wraps an already opened stream. The caller keeps ownership of src.
func NewReader(src io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(src, peekBufferSize)

	var text io.Reader = br
	r := &Reader{}
	if magic, err := br.Peek(len(zstdMagic)); err == nil && bytes.Equal(magic, zstdMagic) {
		dec, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		r.dec = dec
		text = dec
	}

	sc := bufio.NewScanner(text)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	r.sc = sc
	return r, nil
}

// Games returns the number of game records returned so far.
func (r *Reader) Games() int64 {
	return r.games
}

// Next returns the next game record, or io.EOF once the archive is exhausted.
// Any other error means the stream is unreadable or corrupt.
func (r *Reader) Next() (*Game, error) {
	var (
		game     *Game
		movetext strings.Builder
		inMoves  bool
		inBrace  bool // movetext so far ends inside a {...} comment
	)

	for {
		line, ok := r.readLine()
		if !ok {
			break
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if inMoves {
				break
			}
			continue
		}

		if trimmed[0] == '[' && !inBrace {
			if inMoves {
				// Next game's header without a separating blank line
				r.unreadLine(line)
				break
			}
			if m := tagRegex.FindStringSubmatch(trimmed); m != nil {
				if game == nil {
					game = &Game{Tags: make(map[string]string)}
				}
				game.Tags[m[1]] = strings.ReplaceAll(m[2], `\"`, `"`)
				continue
			}
		}

		if game == nil {
			game = &Game{Tags: make(map[string]string)}
		}
		inMoves = true
		inBrace = endsInBrace(trimmed, inBrace)
		movetext.WriteString(trimmed)
		movetext.WriteByte('\n')
	}

	if err := r.sc.Err(); err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	if game == nil {
		return nil, io.EOF
	}

	game.Moves = ParseMovetext(movetext.String())
	r.games++
	return game, nil
}

// Close releases the decoder and the underlying file when opened via Open.
func (r *Reader) Close() error {
	if r.dec != nil {
		r.dec.Close()
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// endsInBrace scans one movetext line and reports whether a {...} comment is
// still open at its end. Braces do not nest, and a ';' outside a brace
// comment hides the rest of the line.
func endsInBrace(line string, inBrace bool) bool {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '{':
			inBrace = true
		case '}':
			inBrace = false
		case ';':
			if !inBrace {
				return false
			}
		}
	}
	return inBrace
}

func (r *Reader) readLine() (string, bool) {
	if r.hasLine {
		r.hasLine = false
		return r.pending, true
	}
	if !r.sc.Scan() {
		return "", false
	}
	return r.sc.Text(), true
}

func (r *Reader) unreadLine(line string) {
	r.pending = line
	r.hasLine = true
}
