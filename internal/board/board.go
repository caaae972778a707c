// Package board exposes the narrow position surface the feature extractor
// needs: mobility, occupancy, attacks, castling rights and move application.
package board

import (
	"fmt"
	"strings"
)

// Color is a side.
type Color int8

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// PieceKind is a piece type without color.
type PieceKind int8

const (
	NoPiece PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// Piece is a colored piece on a square.
type Piece struct {
	Kind  PieceKind
	Color Color
}

// Square indexes the board A1=0, B1=1, ..., H8=63.
type Square int

const (
	D4 Square = 27
	E4 Square = 28
	D5 Square = 35
	E5 Square = 36
)

// CenterSquares are the four central squares.
var CenterSquares = [4]Square{D4, D5, E4, E5}

func (s Square) Valid() bool { return s >= 0 && s < 64 }

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s%8), byte('1' + s/8)})
}

// Simulator is a mutable position replayed one half-move at a time.
type Simulator interface {
	// LegalMoveCount is the number of legal moves for the side to move.
	LegalMoveCount() int
	PieceAt(sq Square) (Piece, bool)
	// IsAttacked reports whether side `by` attacks sq.
	IsAttacked(by Color, sq Square) bool
	// CanCastle reports whether c keeps any castling right.
	CanCastle(c Color) bool
	// Apply plays a SAN move and returns it in UCI notation. A move the
	// position rejects yields an *IllegalMoveError.
	Apply(san string) (string, error)
	FEN() string
}

// IllegalMoveError reports a move the simulator could not resolve or play.
type IllegalMoveError struct {
	SAN string
	FEN string
	Err error
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %q in position %s: %v", e.SAN, e.FEN, e.Err)
}

func (e *IllegalMoveError) Unwrap() error { return e.Err }

// castlingField extracts the castling availability field of a FEN.
func castlingField(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) < 3 {
		return "-"
	}
	return fields[2]
}

func canCastle(fen string, c Color) bool {
	rights := castlingField(fen)
	if c == White {
		return strings.ContainsAny(rights, "KQ")
	}
	return strings.ContainsAny(rights, "kq")
}
