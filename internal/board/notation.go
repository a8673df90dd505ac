package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ErrMove wraps every failure to read a move.
var ErrMove = errors.New("invalid move")

// ParseMove reads a UCI move ("e2e4", "e7e8q") in absolute coordinates and
// returns the matching legal move of p.
func (p *Position) ParseMove(s string) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NoMove, fmt.Errorf("%w: %q", ErrMove, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %v", ErrMove, err)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %v", ErrMove, err)
	}
	promo := NoPieceType
	if len(s) == 5 {
		promo = PieceTypeFromChar(s[4])
		if promo == NoPieceType || promo == Pawn || promo == King {
			return NoMove, fmt.Errorf("%w: promotion piece in %q", ErrMove, s)
		}
	}

	from, to = p.RelativeSquare(from), p.RelativeSquare(to)
	var buf [MoveBufferSize]Move
	moves, _ := GenerateMoves(p, buf[:])
	for _, m := range moves {
		if m.From() == from && m.To() == to && m.Promotion() == promo {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %s is not legal in %s", ErrMove, s, p.FEN())
}

// IsLegal reports whether m is among the legal moves of p.
func (p *Position) IsLegal(m Move) bool {
	if m == NoMove {
		return false
	}
	var buf [MoveBufferSize]Move
	moves, _ := GenerateMoves(p, buf[:])
	return lo.Contains(moves, m)
}

// LineUCI renders a sequence of moves starting with the mover of color c,
// alternating colors along the line.
func LineUCI(c Color, line []Move) []string {
	return lo.Map(line, func(m Move, i int) string {
		return m.UCI(c ^ Color(i&1))
	})
}

// FormatLine joins LineUCI with spaces.
func FormatLine(c Color, line []Move) string {
	return strings.Join(LineUCI(c, line), " ")
}
