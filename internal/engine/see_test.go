package engine

import (
	"testing"

	"github.com/UoLeevi/uochess/internal/board"
)

func TestSEE(t *testing.T) {
	cases := []struct {
		name string
		fen  string
		move string
		want int
	}{
		{"free pawn", "4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1", "e4d5", PawnValue},
		{"free pawn for black", "4k3/8/8/3p4/4P3/8/8/4K3 b - - 0 1", "d5e4", PawnValue},
		{"rook takes defended pawn", "4k3/2p5/3p4/8/8/8/3R4/4K3 w - - 0 1", "d2d6", PawnValue - RookValue},
		{"en passant", "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1", "e5d6", PawnValue},
		{"quiet move", "4k3/8/8/8/8/8/8/R3K3 w - - 0 1", "a1a5", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := board.ParseFEN(tc.fen)
			if err != nil {
				t.Fatal(err)
			}
			m, err := pos.ParseMove(tc.move)
			if err != nil {
				t.Fatal(err)
			}
			if got := SEE(pos, m); got != tc.want {
				t.Errorf("SEE(%s) = %d, want %d", tc.move, got, tc.want)
			}
		})
	}
}
