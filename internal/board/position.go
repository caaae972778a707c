package board

import (
	"errors"
	"fmt"

	"github.com/dylhunn/dragontoothmg"
	"github.com/freeeve/pgn/v3"
)

// Position is the Simulator backed by the pgn library for SAN resolution,
// legality and move generation. Occupancy and attack queries run against a
// dragontoothmg snapshot rebuilt lazily after each move.
type Position struct {
	gs   *pgn.GameState
	snap *dragontoothmg.Board
}

var _ Simulator = (*Position)(nil)

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	return &Position{gs: pgn.NewStartingPosition()}
}

// PositionFromFEN sets up an arbitrary position.
func PositionFromFEN(fen string) (*Position, error) {
	gs, err := pgn.NewGame(fen)
	if err != nil {
		return nil, fmt.Errorf("parse FEN %q: %w", fen, err)
	}
	return &Position{gs: gs}, nil
}

func (p *Position) LegalMoveCount() int {
	return len(pgn.GenerateLegalMoves(p.gs))
}

func (p *Position) PieceAt(sq Square) (Piece, bool) {
	if !sq.Valid() {
		return Piece{}, false
	}
	b := p.snapshot()
	bit := uint64(1) << uint(sq)
	if b.White.All&bit != 0 {
		return Piece{Kind: kindAt(&b.White, bit), Color: White}, true
	}
	if b.Black.All&bit != 0 {
		return Piece{Kind: kindAt(&b.Black, bit), Color: Black}, true
	}
	return Piece{}, false
}

func (p *Position) IsAttacked(by Color, sq Square) bool {
	if !sq.Valid() {
		return false
	}
	return p.snapshot().UnderDirectAttack(by == Black, uint8(sq))
}

func (p *Position) CanCastle(c Color) bool {
	return canCastle(p.gs.ToFEN(), c)
}

func (p *Position) Apply(san string) (string, error) {
	san = normalizeSAN(san)
	fen := p.gs.ToFEN()
	if san == "" {
		return "", &IllegalMoveError{SAN: san, FEN: fen, Err: errEmptyMove}
	}
	mv, err := pgn.ParseSAN(p.gs, san)
	if err != nil {
		return "", &IllegalMoveError{SAN: san, FEN: fen, Err: err}
	}
	if !p.isLegal(mv) {
		return "", &IllegalMoveError{SAN: san, FEN: fen, Err: errNotLegal}
	}
	if err := pgn.ApplyMove(p.gs, mv); err != nil {
		return "", &IllegalMoveError{SAN: san, FEN: fen, Err: err}
	}
	p.snap = nil
	return mv.String(), nil
}

// isLegal reports whether mv is among the generated legal moves; ParseSAN
// alone accepts self-captures.
func (p *Position) isLegal(mv pgn.Mv) bool {
	for _, lm := range pgn.GenerateLegalMoves(p.gs) {
		if lm.From == mv.From && lm.To == mv.To && lm.Promo == mv.Promo {
			return true
		}
	}
	return false
}

func (p *Position) FEN() string {
	return p.gs.ToFEN()
}

func (p *Position) snapshot() *dragontoothmg.Board {
	if p.snap == nil {
		b := dragontoothmg.ParseFen(p.gs.ToFEN())
		p.snap = &b
	}
	return p.snap
}

func kindAt(bb *dragontoothmg.Bitboards, bit uint64) PieceKind {
	switch {
	case bb.Pawns&bit != 0:
		return Pawn
	case bb.Knights&bit != 0:
		return Knight
	case bb.Bishops&bit != 0:
		return Bishop
	case bb.Rooks&bit != 0:
		return Rook
	case bb.Queens&bit != 0:
		return Queen
	case bb.Kings&bit != 0:
		return King
	}
	return NoPiece
}

var (
	errEmptyMove = errors.New("empty move")
	errNotLegal  = errors.New("not a legal move in this position")
)

// normalizeSAN maps zero-digit castling to letter O and strips suffixes the
// movetext tokenizer may have left.
func normalizeSAN(san string) string {
	switch san {
	case "0-0":
		return "O-O"
	case "0-0-0":
		return "O-O-O"
	}
	for len(san) > 0 {
		switch san[len(san)-1] {
		case '+', '#', '!', '?':
			san = san[:len(san)-1]
			continue
		}
		break
	}
	return san
}
