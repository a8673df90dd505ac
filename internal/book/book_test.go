package book

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/UoLeevi/uochess/internal/board"
)

func openBook(t *testing.T) *Book {
	t.Helper()
	b, err := Open("", zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func mustMove(t *testing.T, pos *board.Position, s string) board.Move {
	t.Helper()
	m, err := pos.ParseMove(s)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestAddAndLookup(t *testing.T) {
	b := openBook(t)
	pos := board.NewPosition()
	e4 := mustMove(t, pos, "e2e4")
	d4 := mustMove(t, pos, "d2d4")

	if _, ok := b.Lookup(pos.Key()); ok {
		t.Fatal("empty book has an entry")
	}
	if ok, err := b.AddPosition(pos, e4, 30, 12); err != nil || !ok {
		t.Fatalf("AddPosition = %v, %v", ok, err)
	}

	e, ok := b.Lookup(pos.Key())
	if !ok || e.Move != e4 || e.Score != 30 || e.Depth != 12 {
		t.Fatalf("Lookup = %+v, %v", e, ok)
	}

	// A shallower result does not replace a deeper one.
	if ok, _ := b.AddPosition(pos, d4, 25, 8); ok {
		t.Error("shallower entry written")
	}
	if ok, _ := b.AddPosition(pos, d4, -5, 14); !ok {
		t.Error("deeper entry rejected")
	}
	if e, _ := b.Lookup(pos.Key()); e.Move != d4 || e.Score != -5 {
		t.Errorf("after deeper add: %+v", e)
	}
}

func TestAddPositionRejectsIllegalMove(t *testing.T) {
	b := openBook(t)
	pos := board.NewPosition()
	bad := board.NewMove(board.E2, board.E5, board.Quiet)
	if _, err := b.AddPosition(pos, bad, 0, 1); !errors.Is(err, board.ErrMove) {
		t.Errorf("err = %v, want ErrMove", err)
	}
}

func TestBlackMoveIsRelative(t *testing.T) {
	b := openBook(t)
	pos := board.NewPosition()
	pos.MakeMove(mustMove(t, pos, "e2e4"))
	c5 := mustMove(t, pos, "c7c5")
	if _, err := b.AddPosition(pos, c5, 10, 5); err != nil {
		t.Fatal(err)
	}
	e, ok := b.Lookup(pos.Key())
	if !ok || e.Move.UCI(pos.SideToMove()) != "c7c5" {
		t.Errorf("Lookup = %+v, %v", e, ok)
	}
}

func TestExportImport(t *testing.T) {
	src := openBook(t)
	pos := board.NewPosition()
	for _, s := range []string{"e2e4", "e7e5", "g1f3"} {
		m := mustMove(t, pos, s)
		if _, err := src.AddPosition(pos, m, 20, 10); err != nil {
			t.Fatal(err)
		}
		pos.MakeMove(m)
	}

	var dump bytes.Buffer
	n, err := src.Export(&dump)
	if err != nil || n != 3 {
		t.Fatalf("Export = %d, %v", n, err)
	}

	dst := openBook(t)
	n, err = dst.Import(bytes.NewReader(dump.Bytes()))
	if err != nil || n != 3 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	if l, _ := dst.Len(); l != 3 {
		t.Errorf("Len = %d", l)
	}
	start := board.NewPosition()
	if e, ok := dst.Lookup(start.Key()); !ok || e.Move.UCI(board.White) != "e2e4" {
		t.Errorf("imported start entry %+v %v", e, ok)
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	b := openBook(t)
	if _, err := b.Import(bytes.NewReader([]byte("not a dump"))); err == nil {
		t.Error("garbage imported")
	}
}

func TestNilBookLookup(t *testing.T) {
	var b *Book
	if _, ok := b.Lookup(1); ok {
		t.Error("nil book found an entry")
	}
}

func TestMetaAndRemove(t *testing.T) {
	b := openBook(t)
	if m, err := b.Meta(); err != nil || !m.Updated.IsZero() {
		t.Fatalf("fresh Meta = %+v, %v", m, err)
	}

	pos := board.NewPosition()
	if _, err := b.AddPosition(pos, mustMove(t, pos, "g1f3"), 20, 10); err != nil {
		t.Fatal(err)
	}
	m, err := b.Meta()
	if err != nil || m.Source != "search" || m.Updated.IsZero() || m.Imports != 0 {
		t.Fatalf("Meta after add = %+v, %v", m, err)
	}

	var dump bytes.Buffer
	if _, err := b.Export(&dump); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Import(&dump); err != nil {
		t.Fatal(err)
	}
	if m, _ := b.Meta(); m.Source != "import" || m.Imports != 1 {
		t.Errorf("Meta after import = %+v", m)
	}

	if err := b.Remove(pos); err != nil {
		t.Fatal(err)
	}
	if _, ok := b.Lookup(pos.Key()); ok {
		t.Error("entry still present after Remove")
	}
	if n, _ := b.Len(); n != 0 {
		t.Errorf("Len = %d after Remove", n)
	}
}
