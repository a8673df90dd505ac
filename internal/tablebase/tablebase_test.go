package tablebase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/UoLeevi/uochess/internal/board"
)

func TestNoopProber(t *testing.T) {
	prober := NoopProber{}

	if prober.Available() {
		t.Error("NoopProber should not be available")
	}
	if prober.MaxPieces() != 0 {
		t.Errorf("NoopProber MaxPieces should be 0, got %d", prober.MaxPieces())
	}

	pos := board.NewPosition()
	if prober.Probe(context.Background(), pos).Found {
		t.Error("NoopProber should not find anything")
	}
	if prober.ProbeRoot(context.Background(), pos).Found {
		t.Error("NoopProber ProbeRoot should not find anything")
	}
	if Covers(prober, pos) {
		t.Error("NoopProber covers nothing")
	}
}

func TestCountPieces(t *testing.T) {
	if n := CountPieces(board.NewPosition()); n != 32 {
		t.Errorf("Starting position should have 32 pieces, got %d", n)
	}
}

func TestCategoryToWDL(t *testing.T) {
	cases := map[string]WDL{
		"win":          WDLWin,
		"maybe-win":    WDLCursedWin,
		"draw":         WDLDraw,
		"blessed-loss": WDLBlessedLoss,
		"loss":         WDLLoss,
		"unknown":      WDLDraw,
	}
	for in, want := range cases {
		if got := categoryToWDL(in); got != want {
			t.Errorf("categoryToWDL(%q) = %d, want %d", in, got, want)
		}
	}
}

// KQ vs K with black to move: the server answers in absolute coordinates.
const kqkFEN = "8/8/8/8/8/2k5/8/K1Q5 b - - 0 1"

func newFakeServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/standard" || r.URL.Query().Get("fen") != kqkFEN {
			http.Error(w, "unexpected request "+r.URL.String(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"category":"loss","dtz":-10,"moves":[{"uci":"c3b3","category":"win","dtz":9},{"uci":"c3d3","category":"win","dtz":7}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLichessProbeRoot(t *testing.T) {
	var calls atomic.Int32
	srv := newFakeServer(t, &calls)

	pos, err := board.ParseFEN(kqkFEN)
	if err != nil {
		t.Fatal(err)
	}
	lp := NewLichessProber(srv.URL)

	res := lp.ProbeRoot(context.Background(), pos)
	if !res.Found {
		t.Fatal("root probe failed")
	}
	if got := res.Move.UCI(pos.SideToMove()); got != "c3b3" {
		t.Errorf("move = %s, want c3b3", got)
	}
	if res.WDL != WDLLoss {
		t.Errorf("WDL = %d, want loss", res.WDL)
	}

	if probe := lp.Probe(context.Background(), pos); !probe.Found || probe.DTZ != -10 {
		t.Errorf("Probe = %+v", probe)
	}
}

func TestCachedProberAvoidsRepeatCalls(t *testing.T) {
	var calls atomic.Int32
	srv := newFakeServer(t, &calls)

	pos, err := board.ParseFEN(kqkFEN)
	if err != nil {
		t.Fatal(err)
	}
	cp := NewCachedLichessProber(srv.URL)
	for i := 0; i < 3; i++ {
		cp.Probe(context.Background(), pos)
		cp.ProbeRoot(context.Background(), pos)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server saw %d calls, want 2", n)
	}
	if cp.HitRate() <= 0 {
		t.Error("expected cache hits")
	}
	cp.Clear()
	if cp.CacheSize() != 0 {
		t.Error("Clear left entries behind")
	}
}

func TestLichessServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	pos, err := board.ParseFEN(kqkFEN)
	if err != nil {
		t.Fatal(err)
	}
	if NewLichessProber(srv.URL).ProbeRoot(context.Background(), pos).Found {
		t.Error("error response reported as found")
	}
}

func TestWDLString(t *testing.T) {
	cases := map[WDL]string{
		WDLLoss:        "loss",
		WDLBlessedLoss: "blessed loss",
		WDLDraw:        "draw",
		WDLCursedWin:   "cursed win",
		WDLWin:         "win",
		WDL(5):         "WDL(5)",
	}
	for wdl, want := range cases {
		if got := wdl.String(); got != want {
			t.Errorf("WDL(%d).String() = %q, want %q", int(wdl), got, want)
		}
	}
}
