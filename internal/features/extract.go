// Package features turns parsed game records into fixed-shape feature
// records by replaying the opening window on a board simulator.
package features

import (
	"fmt"

	"github.com/freeeve/chessgraph/features/internal/board"
	"github.com/freeeve/chessgraph/features/internal/pgnstream"
)

// SkipReason tells why a game produced no record.
type SkipReason string

const (
	Accepted     SkipReason = ""
	SkipResult   SkipReason = "result"
	SkipTooShort SkipReason = "short"
)

var pieceValues = map[board.PieceKind]int{
	board.Pawn:   1,
	board.Knight: 3,
	board.Bishop: 3,
	board.Rook:   5,
	board.Queen:  9,
}

// Evaluator scores a FEN from White's perspective, in pawns.
type Evaluator interface {
	Evaluate(fen string) (float64, error)
}

// OpeningClassifier names openings from a UCI move prefix.
type OpeningClassifier interface {
	Classify(uciMoves []string) (code, name string, ok bool)
	Name(code string) string
}

// Config configures an Extractor.
type Config struct {
	Moves    int                    // Full moves per game (N)
	NewBoard func() board.Simulator // Defaults to the standard starting position
	Openings OpeningClassifier      // Optional
	Engine   Evaluator              // Optional
}

// Extractor builds feature records. It keeps no state between games.
type Extractor struct {
	cfg Config
}

// NewExtractor creates an extractor.
func NewExtractor(cfg Config) (*Extractor, error) {
	if cfg.Moves <= 0 {
		return nil, fmt.Errorf("moves must be positive, got %d", cfg.Moves)
	}
	if cfg.NewBoard == nil {
		cfg.NewBoard = func() board.Simulator { return board.NewPosition() }
	}
	return &Extractor{cfg: cfg}, nil
}

// Plies is the number of half-moves in the window.
func (e *Extractor) Plies() int {
	return 2 * e.cfg.Moves
}

// Extract returns the game's record, or nil with the skip reason when the
// game has no decisive/drawn result or fewer than 2N half-moves. An error
// means the simulator rejected a move or the engine failed; both are fatal.
func (e *Extractor) Extract(g *pgnstream.Game) (*Record, SkipReason, error) {
	result := g.Tag("Result")
	class, ok := ResultClass(result)
	if !ok {
		return nil, SkipResult, nil
	}

	plies := e.Plies()
	window := g.Moves
	if len(window) > plies {
		window = window[:plies]
	}

	pos := e.cfg.NewBoard()
	moves := make([]string, 0, plies)
	mobility := make([]int, 0, plies)
	var evals []float64

	for ply, mv := range window {
		mobility = append(mobility, pos.LegalMoveCount())
		if v, ok := ParseEval(mv.Comment); ok {
			evals = append(evals, v)
		}
		uci, err := pos.Apply(mv.SAN)
		if err != nil {
			return nil, Accepted, fmt.Errorf("ply %d: %w", ply+1, err)
		}
		moves = append(moves, uci)
	}
	if len(moves) < plies {
		return nil, SkipTooShort, nil
	}

	white := ParseRating(g.Tag("WhiteElo"))
	black := ParseRating(g.Tag("BlackElo"))
	rec := &Record{
		Result:          result,
		ResultClass:     class,
		WhiteElo:        white,
		BlackElo:        black,
		EloDiff:         white - black,
		ECO:             g.Tag("ECO"),
		TimeControl:     g.Tag("TimeControl"),
		Moves:           moves,
		LegalMovesCount: mobility,
		WhiteCanCastle:  pos.CanCastle(board.White),
		BlackCanCastle:  pos.CanCastle(board.Black),
	}

	if tc, ok := ParseTimeControl(rec.TimeControl); ok {
		base, inc := tc.BaseSeconds, tc.IncrementSeconds
		rec.BaseTimeSeconds = &base
		rec.IncrementSeconds = &inc
		rec.TimeClass = tc.Class()
	}

	if len(evals) > 0 {
		rec.Evals = evals
		final := evals[len(evals)-1]
		rec.FinalEval = &final
	}

	rec.WhiteMaterial, rec.BlackMaterial = material(pos)
	rec.MaterialBalance = rec.WhiteMaterial - rec.BlackMaterial
	rec.WhiteCenterControl = centerControl(pos, board.White)
	rec.BlackCenterControl = centerControl(pos, board.Black)

	if o := e.cfg.Openings; o != nil {
		if rec.ECO == "" {
			if code, name, ok := o.Classify(moves); ok {
				rec.ECO, rec.OpeningName = code, name
			}
		} else {
			rec.OpeningName = o.Name(rec.ECO)
		}
	}

	if e.cfg.Engine != nil {
		v, err := e.cfg.Engine.Evaluate(pos.FEN())
		if err != nil {
			return nil, Accepted, fmt.Errorf("engine eval: %w", err)
		}
		rec.EngineEval = &v
	}

	return rec, Accepted, nil
}

func material(pos board.Simulator) (white, black int) {
	for sq := board.Square(0); sq < 64; sq++ {
		pc, ok := pos.PieceAt(sq)
		if !ok {
			continue
		}
		if pc.Color == board.White {
			white += pieceValues[pc.Kind]
		} else {
			black += pieceValues[pc.Kind]
		}
	}
	return white, black
}

func centerControl(pos board.Simulator, side board.Color) int {
	n := 0
	for _, sq := range board.CenterSquares {
		if pos.IsAttacked(side, sq) {
			n++
		}
	}
	return n
}
