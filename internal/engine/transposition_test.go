package engine

import (
	"testing"

	"github.com/UoLeevi/uochess/internal/board"
)

// slotKey builds a key that lands on slot idx with verifier v.
func slotKey(v uint32, idx uint64) uint64 {
	return uint64(v)<<32 | idx
}

func TestTTRoundTrip(t *testing.T) {
	tt := NewTranspositionTable(1)
	m := board.NewMove(board.E2, board.E4, board.DoublePush)
	key := slotKey(0xdeadbeef, 1234)

	tt.Store(key, 3, m, 57, 6, BoundLower)
	e, ok := tt.Probe(key, 3)
	if !ok {
		t.Fatal("stored entry not found")
	}
	if e.Move != m || e.Score != 57 || e.Depth != 6 || e.Bound != BoundLower {
		t.Errorf("got %+v", e)
	}

	if _, ok := tt.Probe(slotKey(0xfeedface, 1234), 3); ok {
		t.Error("different verifier reported a hit")
	}
}

func TestTTMateRebasing(t *testing.T) {
	cases := []struct {
		name        string
		score       int
		storePly    int
		probePly    int
		wantAtProbe int
	}{
		{"mate found deeper", MateIn(10), 4, 2, MateIn(8)},
		{"mated found deeper", MatedIn(9), 5, 1, MatedIn(5)},
		{"same ply", MateIn(3), 3, 3, MateIn(3)},
		{"plain score", 120, 7, 1, 120},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tt := NewTranspositionTable(1)
			key := slotKey(uint32(i+1), 99)
			tt.Store(key, tc.storePly, board.NoMove, tc.score, 4, BoundExact)
			e, ok := tt.Probe(key, tc.probePly)
			if !ok {
				t.Fatal("entry lost")
			}
			if e.Score != tc.wantAtProbe {
				t.Errorf("score = %d, want %d", e.Score, tc.wantAtProbe)
			}
		})
	}
}

func TestTTReplacement(t *testing.T) {
	tt := NewTranspositionTable(1)
	m1 := board.NewMove(board.G1, board.F3, board.Quiet)
	m2 := board.NewMove(board.B1, board.C3, board.Quiet)
	key := slotKey(7, 500)

	tt.Store(key, 0, m1, 30, 8, BoundLower)
	tt.Store(key, 0, m2, 10, 3, BoundUpper)
	if e, _ := tt.Probe(key, 0); e.Depth != 8 || e.Move != m1 {
		t.Errorf("shallow bound replaced a deeper entry: %+v", e)
	}

	tt.Store(key, 0, board.NoMove, 12, 3, BoundExact)
	e, _ := tt.Probe(key, 0)
	if e.Depth != 3 || e.Bound != BoundExact {
		t.Errorf("exact entry not stored: %+v", e)
	}
	if e.Move != m1 {
		t.Errorf("move was not carried over, got %v", e.Move)
	}
}

func TestTTFullRunNeedsStaleSlot(t *testing.T) {
	tt := NewTranspositionTable(1)
	for v := uint32(1); v <= probeLimit; v++ {
		tt.Store(slotKey(v, 40), 0, board.NoMove, 0, 5, BoundExact)
	}
	extra := slotKey(100, 40)
	tt.Store(extra, 0, board.NoMove, 0, 5, BoundExact)
	if _, ok := tt.Probe(extra, 0); ok {
		t.Fatal("entry stored although every candidate was as deep")
	}

	tt.NewSearch()
	tt.Store(extra, 0, board.NoMove, 0, 1, BoundExact)
	if _, ok := tt.Probe(extra, 0); !ok {
		t.Error("stale entry was not replaced")
	}
}

func TestTTMissEvictsStaleRun(t *testing.T) {
	tt := NewTranspositionTable(1)
	old := slotKey(1, 10)
	tt.Store(old, 0, board.NoMove, 0, 5, BoundExact)

	tt.NewSearch()
	if _, ok := tt.Probe(slotKey(2, 11), 0); ok {
		t.Fatal("unexpected hit")
	}
	if _, ok := tt.Probe(old, 0); ok {
		t.Error("stale entry in front of the miss survived")
	}
}

func TestEntryCutoff(t *testing.T) {
	cases := []struct {
		name  string
		entry Entry
		ok    bool
	}{
		{"exact", Entry{Score: 5, Depth: 4, Bound: BoundExact}, true},
		{"too shallow", Entry{Score: 5, Depth: 2, Bound: BoundExact}, false},
		{"lower above beta", Entry{Score: 60, Depth: 4, Bound: BoundLower}, true},
		{"lower inside window", Entry{Score: 20, Depth: 4, Bound: BoundLower}, false},
		{"upper below alpha", Entry{Score: -60, Depth: 4, Bound: BoundUpper}, true},
		{"upper inside window", Entry{Score: 20, Depth: 4, Bound: BoundUpper}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, ok := tc.entry.Cutoff(-50, 50, 3)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && score != tc.entry.Score {
				t.Errorf("score = %d, want %d", score, tc.entry.Score)
			}
		})
	}
}

func TestTTClearAndHashfull(t *testing.T) {
	tt := NewTranspositionTable(1)
	if tt.Len() != 1<<16 {
		t.Fatalf("Len = %d", tt.Len())
	}
	for i := uint64(0); i < 1000; i++ {
		tt.Store(slotKey(uint32(i+1), i), 0, board.NoMove, 0, 1, BoundExact)
	}
	if hf := tt.Hashfull(); hf != 1000 {
		t.Errorf("Hashfull = %d, want 1000", hf)
	}
	tt.Clear()
	if hf := tt.Hashfull(); hf != 0 {
		t.Errorf("Hashfull after Clear = %d", hf)
	}
}
