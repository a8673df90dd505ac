package uci

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/UoLeevi/uochess/internal/board"
	"github.com/UoLeevi/uochess/internal/engine"
	"github.com/UoLeevi/uochess/internal/tablebase"
)

func newTestUCI(t *testing.T) (*UCI, *bytes.Buffer) {
	t.Helper()
	eng := engine.NewEngine(engine.DefaultOptions(), zerolog.Nop())
	out := &bytes.Buffer{}
	u := New(eng, zerolog.Nop(), strings.NewReader(""), out)
	t.Cleanup(func() {
		u.shutdown()
		eng.Close()
	})
	return u, out
}

// waitSearch blocks until the running search has printed its bestmove.
func waitSearch(t *testing.T, u *UCI) {
	t.Helper()
	done := u.searchDone
	if done == nil {
		t.Fatal("no search running")
	}
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("search did not finish")
	}
	u.searchDone = nil
}

func run(u *UCI, cmds ...string) {
	for _, c := range cmds {
		u.Execute(c)
	}
}

func TestHandshake(t *testing.T) {
	u, out := newTestUCI(t)
	run(u, "uci", "isready")

	got := out.String()
	for _, want := range []string{
		"id name uochess\n",
		"option name Threads type spin default 1 min 1 max 256\n",
		"option name Hash type spin default 16 min 1 max 65536\n",
		"option name Clear Hash type button\n",
		"option name OwnBook type check default false\n",
		"option name SyzygyPath type string default <empty>\n",
		"uciok\nreadyok\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output lacks %q:\n%s", want, got)
		}
	}
}

func TestPosition(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		want    string
		wantErr bool
	}{
		{"startpos", "position startpos", board.StartFEN, false},
		{"startpos moves", "position startpos moves g1f3", "rnbqkbnr/pppppppp/8/8/8/5N2/PPPPPPPP/RNBQKB1R b KQkq - 1 1", false},
		{"fen moves", "position fen 6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1 moves a1a8", "R5k1/5ppp/8/8/8/8/8/6K1 b - - 1 1", false},
		{"castling", "position fen r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1 moves e1g1 e8c8", "2kr3r/8/8/8/8/8/8/R4RK1 w - - 2 2", false},
		{"illegal move", "position startpos moves e2e5", board.StartFEN, true},
		{"bad fen", "position fen 9/8 w - - 0 1", board.StartFEN, true},
		{"missing setup", "position", board.StartFEN, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, out := newTestUCI(t)
			u.Execute(tt.cmd)
			if got := u.position.FEN(); got != tt.want {
				t.Errorf("FEN = %q, want %q", got, tt.want)
			}
			if got := u.engine.Position().FEN(); got != tt.want {
				t.Errorf("engine FEN = %q, want %q", got, tt.want)
			}
			if gotErr := strings.HasPrefix(out.String(), "info string "); gotErr != tt.wantErr {
				t.Errorf("error reported = %v, want %v (%q)", gotErr, tt.wantErr, out.String())
			}
		})
	}
}

func TestParseGo(t *testing.T) {
	pos := board.NewPosition()
	e2e4, _ := pos.ParseMove("e2e4")
	d2d4, _ := pos.ParseMove("d2d4")

	tests := []struct {
		name    string
		args    string
		check   func(engine.Limits) bool
		wantErr bool
	}{
		{"clock", "wtime 60000 btime 30000 winc 1000 binc 500 movestogo 20", func(l engine.Limits) bool {
			return l.Time[board.White] == time.Minute && l.Time[board.Black] == 30*time.Second &&
				l.Inc[board.White] == time.Second && l.Inc[board.Black] == 500*time.Millisecond &&
				l.MovesToGo == 20
		}, false},
		{"depth nodes", "depth 7 nodes 5000", func(l engine.Limits) bool {
			return l.Depth == 7 && l.Nodes == 5000
		}, false},
		{"movetime", "movetime 250", func(l engine.Limits) bool { return l.MoveTime == 250*time.Millisecond }, false},
		{"mate", "mate 2", func(l engine.Limits) bool { return l.Depth == 3 }, false},
		{"infinite ponder", "ponder infinite", func(l engine.Limits) bool { return l.Ponder && l.Infinite }, false},
		{"searchmoves", "searchmoves e2e4 d2d4 depth 3", func(l engine.Limits) bool {
			return len(l.SearchMoves) == 2 && l.SearchMoves[0] == e2e4 && l.SearchMoves[1] == d2d4 && l.Depth == 3
		}, false},
		{"missing value", "depth", nil, true},
		{"bad number", "nodes lots", nil, true},
		{"illegal searchmove", "searchmoves e2e5", nil, true},
		{"unknown", "fast", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := parseGo(pos, strings.Fields(tt.args))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(l) {
				t.Errorf("unexpected limits %+v", l)
			}
		})
	}
}

func TestGoFindsMate(t *testing.T) {
	u, out := newTestUCI(t)
	run(u, "position fen 6k1/5ppp/8/8/8/8/5PPP/3R2K1 w - - 0 1", "go depth 3")
	waitSearch(t, u)

	got := out.String()
	if !strings.Contains(got, "score mate 1") {
		t.Errorf("no mate score in output:\n%s", got)
	}
	if !strings.HasSuffix(got, "bestmove d1d8\n") {
		t.Errorf("want bestmove d1d8, got:\n%s", got)
	}
}

func TestGoPrintsPonder(t *testing.T) {
	u, out := newTestUCI(t)
	run(u, "position startpos", "go depth 4")
	waitSearch(t, u)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	last := strings.Fields(lines[len(lines)-1])
	if len(last) != 4 || last[0] != "bestmove" || last[2] != "ponder" {
		t.Fatalf("bad bestmove line %q", lines[len(lines)-1])
	}
	pos := board.NewPosition()
	m, err := pos.ParseMove(last[1])
	if err != nil {
		t.Fatal(err)
	}
	pos.MakeMove(m)
	if _, err := pos.ParseMove(last[3]); err != nil {
		t.Errorf("ponder move: %v", err)
	}
	if !strings.HasPrefix(lines[0], "info depth 1 seldepth ") {
		t.Errorf("first line %q is not an info line", lines[0])
	}
}

func TestStopInfinite(t *testing.T) {
	u, out := newTestUCI(t)
	run(u, "position startpos", "go infinite")
	time.Sleep(50 * time.Millisecond)
	u.outMu.Lock()
	early := strings.Contains(out.String(), "bestmove")
	u.outMu.Unlock()
	if early {
		t.Fatal("bestmove printed before stop")
	}
	u.Execute("stop")
	if u.searchDone != nil {
		t.Fatal("stop returned with the search still registered")
	}
	if !strings.Contains(out.String(), "bestmove ") {
		t.Errorf("no bestmove after stop:\n%s", out.String())
	}
}

func TestSetOption(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		wantErr bool
	}{
		{"hash", "setoption name Hash value 32", false},
		{"threads", "setoption name Threads value 2", false},
		{"overhead", "setoption name Move Overhead value 30", false},
		{"clear hash", "setoption name Clear Hash", false},
		{"own book", "setoption name OwnBook value true", false},
		{"lichess", "setoption name SyzygyPath value lichess", false},
		{"empty syzygy", "setoption name SyzygyPath value <empty>", false},
		{"local syzygy", "setoption name SyzygyPath value /tb/syzygy", true},
		{"hash too small", "setoption name Hash value 0", true},
		{"multipv", "setoption name MultiPV value 3", true},
		{"bad check", "setoption name Ponder value maybe", true},
		{"unknown", "setoption name Contempt value 10", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, _ := newTestUCI(t)
			err := u.handleSetOption(strings.Fields(tt.cmd)[1:])
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrOption) {
				t.Errorf("err = %v, want ErrOption", err)
			}
		})
	}

	u, _ := newTestUCI(t)
	run(u,
		"setoption name Hash value 32",
		"setoption name Threads value 3",
		"setoption name move overhead value 25",
		"setoption name OwnBook value true",
	)
	opts := u.engine.Options()
	if opts.HashMB != 32 || opts.Threads != 3 || opts.MoveOverhead != 25*time.Millisecond || !opts.OwnBook {
		t.Errorf("options not applied: %+v", opts)
	}
}

func TestParseSetOption(t *testing.T) {
	tests := []struct {
		args        string
		name, value string
	}{
		{"name Hash value 64", "Hash", "64"},
		{"name Move Overhead value 100", "Move Overhead", "100"},
		{"name Clear Hash", "Clear Hash", ""},
		{"name BookFile value /tmp/my book", "BookFile", "/tmp/my book"},
		{"name SyzygyPath value <empty>", "SyzygyPath", ""},
	}
	for _, tt := range tests {
		name, value := parseSetOption(strings.Fields(tt.args))
		if name != tt.name || value != tt.value {
			t.Errorf("parseSetOption(%q) = %q, %q; want %q, %q", tt.args, name, value, tt.name, tt.value)
		}
	}
}

func TestBookFileOption(t *testing.T) {
	dir := t.TempDir() // before newTestUCI, so the book is closed before removal
	u, out := newTestUCI(t)
	run(u,
		"setoption name BookFile value "+dir,
		"setoption name OwnBook value true",
	)
	if u.book == nil {
		t.Fatalf("book not opened:\n%s", out.String())
	}

	pos := board.NewPosition()
	m, err := pos.ParseMove("b1c3")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := u.book.AddPosition(pos, m, 10, 12); err != nil {
		t.Fatal(err)
	}

	run(u, "position startpos", "go depth 5")
	waitSearch(t, u)
	got := out.String()
	if !strings.HasSuffix(got, "info string book move\nbestmove b1c3\n") {
		t.Errorf("book move not played:\n%s", got)
	}
}

func TestPerftCommand(t *testing.T) {
	u, out := newTestUCI(t)
	run(u, "position startpos", "perft 2")

	got := out.String()
	for _, want := range []string{"e2e4: 20\n", "g1f3: 20\n", "Nodes: 400\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("output lacks %q:\n%s", want, got)
		}
	}
}

func TestEvalAndDisplay(t *testing.T) {
	u, out := newTestUCI(t)
	run(u, "position startpos", "d", "eval")

	got := out.String()
	if !strings.Contains(got, "Fen: "+board.StartFEN) {
		t.Errorf("d output lacks FEN:\n%s", got)
	}
	if !strings.Contains(got, "Evaluation: ") || !strings.Contains(got, "(w to move)") {
		t.Errorf("eval output missing:\n%s", got)
	}
}

type wdlProber struct{ wdl tablebase.WDL }

func (p wdlProber) Probe(context.Context, *board.Position) tablebase.ProbeResult {
	return tablebase.ProbeResult{Found: true, WDL: p.wdl, DTZ: 12}
}

func (wdlProber) ProbeRoot(context.Context, *board.Position) tablebase.RootResult {
	return tablebase.RootResult{}
}

func (wdlProber) MaxPieces() int  { return 5 }
func (wdlProber) Available() bool { return true }

func TestEvalTablebase(t *testing.T) {
	u, out := newTestUCI(t)
	u.engine.SetTablebase(wdlProber{wdl: tablebase.WDLCursedWin})

	run(u, "position startpos", "eval")
	if strings.Contains(out.String(), "Tablebase:") {
		t.Errorf("tablebase line for the start position:\n%s", out.String())
	}

	out.Reset()
	run(u, "position fen 8/8/8/8/8/2k5/8/K1Q5 b - - 0 1", "eval")
	if !strings.Contains(out.String(), "Tablebase: cursed win dtz 12\n") {
		t.Errorf("eval output lacks the tablebase line:\n%s", out.String())
	}
}

func TestDebugLogFile(t *testing.T) {
	u, _ := newTestUCI(t)
	path := filepath.Join(t.TempDir(), "debug.log")

	run(u, "setoption name Debug Log File value "+path, "go depth 1")
	waitSearch(t, u)
	run(u, "setoption name Debug Log File value <empty>")
	if u.logFile != nil {
		t.Fatal("log file still open")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"setoption", "search started", "search finished"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("debug log lacks %q:\n%s", want, data)
		}
	}
}

func TestBench(t *testing.T) {
	if testing.Short() {
		t.Skip("bench is slow")
	}
	u, out := newTestUCI(t)
	run(u, "position fen 8/8/4k3/8/2p5/8/B2K4/8 w - - 0 1", "bench 2")

	got := out.String()
	if !strings.Contains(got, "Nodes searched  : ") {
		t.Errorf("no bench summary:\n%s", got)
	}
	if n := strings.Count(got, "Position "); n != len(benchPositions) {
		t.Errorf("%d positions reported, want %d", n, len(benchPositions))
	}
	if got := u.engine.Position().FEN(); got != "8/8/4k3/8/2p5/8/B2K4/8 w - - 0 1" {
		t.Errorf("bench did not restore the position: %s", got)
	}
}

func TestRunStopsAtQuit(t *testing.T) {
	eng := engine.NewEngine(engine.DefaultOptions(), zerolog.Nop())
	t.Cleanup(func() { eng.Close() })
	out := &bytes.Buffer{}
	in := strings.NewReader("uci\n\nposition startpos moves e2e4\ngo depth 2\nquit\nisready\n")
	u := New(eng, zerolog.Nop(), in, out)

	if err := u.Run(); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.Contains(got, "uciok\n") || !strings.Contains(got, "bestmove ") {
		t.Errorf("unexpected output:\n%s", got)
	}
	if strings.Contains(got, "readyok") {
		t.Errorf("command after quit was handled:\n%s", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	u, out := newTestUCI(t)
	if !u.Execute("xyzzy") {
		t.Fatal("unknown command ended the loop")
	}
	if !strings.Contains(out.String(), "info string unknown command") {
		t.Errorf("unexpected output %q", out.String())
	}
}
