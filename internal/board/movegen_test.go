package board

import (
	"sort"
	"testing"

	"github.com/dylhunn/dragontoothmg"
)

func legalUCI(pos *Position) []string {
	var buf [MoveBufferSize]Move
	moves, _ := GenerateMoves(pos, buf[:])
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		out = append(out, m.UCI(pos.SideToMove()))
	}
	sort.Strings(out)
	return out
}

func oracleUCI(fen string) []string {
	b := dragontoothmg.ParseFen(fen)
	moves := b.GenerateLegalMoves()
	out := make([]string, len(moves))
	for i := range moves {
		out[i] = moves[i].String()
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestMovesMatchOracle compares the legal move set with an independent
// generator at every node two plies deep.
func TestMovesMatchOracle(t *testing.T) {
	var visit func(pos *Position, depth int)
	visit = func(pos *Position, depth int) {
		fen := pos.FEN()
		got, want := legalUCI(pos), oracleUCI(fen)
		if !equalStrings(got, want) {
			t.Fatalf("%s:\n got  %v\n want %v", fen, got, want)
		}
		if depth == 0 {
			return
		}
		var buf [MoveBufferSize]Move
		moves, _ := GenerateMoves(pos, buf[:])
		for _, m := range moves {
			pos.MakeMove(m)
			visit(pos, depth-1)
			pos.UnmakeMove()
		}
	}
	for _, fen := range suiteFENs {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatal(err)
		}
		visit(pos, 2)
	}
}

func TestTacticalPartition(t *testing.T) {
	for _, fen := range suiteFENs {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatal(err)
		}
		var buf [MoveBufferSize]Move
		moves, tactical := GenerateMoves(pos, buf[:])
		for i, m := range moves {
			if (i < tactical) != m.IsTactical() {
				t.Errorf("%s: move %d (%s) on the wrong side of the partition at %d", fen, i, m, tactical)
			}
		}
	}
}

func TestDoubleCheckOnlyKingMoves(t *testing.T) {
	// Knight on f6 and rook on e1 both check the king on e8.
	pos, err := ParseFEN("4k3/8/5N2/8/8/8/8/4RK2 b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if !pos.Checkers().Several() {
		t.Fatalf("expected double check, checkers:\n%s", pos.Checkers())
	}
	var buf [MoveBufferSize]Move
	moves, _ := GenerateMoves(pos, buf[:])
	for _, m := range moves {
		if m.From() != pos.KingSquare(Us) {
			t.Errorf("non-king move %s in double check", m.UCI(Black))
		}
	}
}

func TestCheckmate(t *testing.T) {
	cases := []struct {
		name      string
		fen       string
		mate      bool
		stalemate bool
	}{
		{"back rank mate", "R6k/6pp/8/8/8/8/8/K7 b - - 0 1", true, false},
		{"king takes rook", "6Rk/8/8/8/8/8/8/K7 b - - 0 1", false, false},
		{"stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN(tc.fen)
			if err != nil {
				t.Fatal(err)
			}
			if got := pos.IsCheckmate(); got != tc.mate {
				t.Errorf("IsCheckmate = %v, want %v", got, tc.mate)
			}
			if got := pos.IsStalemate(); got != tc.stalemate {
				t.Errorf("IsStalemate = %v, want %v", got, tc.stalemate)
			}
		})
	}
}

func TestParseMove(t *testing.T) {
	pos, err := ParseFEN("r3k2r/pP6/8/8/8/8/8/R3K2R b KQkq - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	m, err := pos.ParseMove("e8g8")
	if err != nil {
		t.Fatal(err)
	}
	if m.Type() != CastleKing {
		t.Errorf("e8g8 parsed as type %d, want king-side castle", m.Type())
	}
	if got := m.UCI(pos.SideToMove()); got != "e8g8" {
		t.Errorf("UCI() = %s, want e8g8", got)
	}
	// c8 is covered by the pawn on b7.
	for _, s := range []string{"e8c8", "e8e9", "e8e6", "a7a8q", "e2e4", "h8h7k"} {
		if _, err := pos.ParseMove(s); err == nil {
			t.Errorf("ParseMove(%q) succeeded", s)
		}
	}
}

func TestLineUCI(t *testing.T) {
	pos := NewPosition()
	var line []Move
	for _, s := range []string{"e2e4", "e7e5", "g1f3"} {
		m, err := pos.ParseMove(s)
		if err != nil {
			t.Fatal(err)
		}
		line = append(line, m)
		pos.MakeMove(m)
	}
	if got := FormatLine(White, line); got != "e2e4 e7e5 g1f3" {
		t.Errorf("FormatLine = %q", got)
	}
}
