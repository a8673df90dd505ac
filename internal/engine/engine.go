package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/UoLeevi/uochess/internal/board"
	"github.com/UoLeevi/uochess/internal/book"
	"github.com/UoLeevi/uochess/internal/tablebase"
)

// ErrSearching is returned when a search is started while another runs.
var ErrSearching = errors.New("engine: search already running")

// tbProbeTimeout bounds a root tablebase query.
const tbProbeTimeout = time.Second

// tbWinScore is reported for a tablebase win. It stays below the mate
// range since the distance to mate is unknown.
const tbWinScore = MateBound - 1

// Source tells where a Result came from.
type Source uint8

const (
	SourceSearch Source = iota
	SourceBook
	SourceTablebase
)

func (s Source) String() string {
	switch s {
	case SourceBook:
		return "book"
	case SourceTablebase:
		return "tablebase"
	}
	return "search"
}

// Result is the outcome of a search. Moves are relative to the side to
// move of the searched position; Color converts them.
type Result struct {
	Move   board.Move
	Ponder board.Move
	Score  int
	Depth  int
	Nodes  uint64
	PV     []board.Move
	Color  board.Color
	Source Source
}

// BestMoveUCI returns the best move in UCI notation, or "0000" when the
// position has no legal move.
func (r Result) BestMoveUCI() string {
	if r.Move == board.NoMove {
		return "0000"
	}
	return r.Move.UCI(r.Color)
}

// PonderUCI returns the expected reply, or "" when there is none.
func (r Result) PonderUCI() string {
	if r.Ponder == board.NoMove {
		return ""
	}
	return r.Ponder.UCI(r.Color.Other())
}

// SearchInfo contains information about the current search.
type SearchInfo struct {
	Depth     int
	SelDepth  int
	Score     int
	Nodes     uint64
	Nps       uint64
	Time      time.Duration
	HashFull  int // Permille of hash table used
	PV        []board.Move
	Color     board.Color // side to move at the root, for printing PV
	Completed bool        // the depth was searched fully
}

// Book supplies precomputed moves by position key.
type Book interface {
	Lookup(key uint64) (book.Entry, bool)
}

// Engine owns everything a search needs: the position, the shared
// transposition table, the thread pool and the optional book and
// tablebase. It replaces any process-wide state, so several engines can
// live side by side.
type Engine struct {
	log  zerolog.Logger
	opts Options
	tt   *TranspositionTable
	eval Evaluator
	pool *Pool
	book Book
	tb   tablebase.Prober

	mu  sync.Mutex
	pos *board.Position

	stop      atomic.Bool
	completed atomic.Int32
	done      chan struct{}
	result    Result
	tm        *timeManager

	// OnInfo, when set, receives progress from the main thread.
	OnInfo func(SearchInfo)
}

// NewEngine creates an engine set up with opts.
func NewEngine(opts Options, log zerolog.Logger) *Engine {
	opts = opts.normalized()
	e := &Engine{
		log:  log,
		opts: opts,
		tt:   NewTranspositionTable(opts.HashMB),
		eval: MaterialEvaluator{},
		tb:   tablebase.NoopProber{},
		pos:  board.NewPosition(),
	}
	e.pool = newPool(e, opts.Threads, log)
	return e
}

// Options returns the current settings.
func (e *Engine) Options() Options {
	return e.opts
}

// SetPosition replaces the position the next search starts from. The
// engine keeps its own copy.
func (e *Engine) SetPosition(pos *board.Position) {
	e.mu.Lock()
	e.pos = pos.Clone()
	e.mu.Unlock()
}

// Position returns a copy of the current position.
func (e *Engine) Position() *board.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos.Clone()
}

func (e *Engine) searching() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done == nil {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

// Go starts a search in the background. Use Wait for the result.
func (e *Engine) Go(limits Limits) error {
	if e.searching() {
		return ErrSearching
	}

	e.mu.Lock()
	main := e.pool.Main()
	main.pos.CopyFrom(e.pos)
	e.pool.reset()
	e.tt.NewSearch()
	e.stop.Store(false)
	e.completed.Store(0)
	main.rootOnly = append(main.rootOnly[:0], limits.SearchMoves...)
	tm := newTimeManager(limits, main.pos.SideToMove(), e.opts.MoveOverhead)
	e.tm = tm
	done := make(chan struct{})
	e.done = done
	e.mu.Unlock()

	e.log.Debug().
		Str("fen", main.pos.FEN()).
		Int("depth", limits.Depth).
		Dur("budget", tm.budget).
		Bool("ponder", limits.Ponder).
		Bool("infinite", limits.Infinite).
		Msg("search started")

	go func() {
		res := e.run(limits, tm)
		// UCI forbids a bestmove before stop while pondering or in
		// infinite mode.
		for !e.stop.Load() && (limits.Infinite || tm.pondering.Load()) {
			time.Sleep(timerTick)
		}
		e.log.Debug().
			Str("move", res.BestMoveUCI()).
			Int("score", res.Score).
			Int("depth", res.Depth).
			Uint64("nodes", res.Nodes).
			Int("researches", main.researches).
			Stringer("source", res.Source).
			Msg("search finished")
		e.mu.Lock()
		e.result = res
		e.mu.Unlock()
		close(done)
	}()
	return nil
}

// run answers from the book or the tablebase when possible and searches
// otherwise.
func (e *Engine) run(limits Limits, tm *timeManager) Result {
	main := e.pool.Main()
	pos := main.pos
	res := Result{Color: pos.SideToMove()}

	allowed := func(m board.Move) bool {
		return pos.IsLegal(m) && (len(main.rootOnly) == 0 || len(restrict([]board.Move{m}, main.rootOnly)) == 1)
	}

	if e.opts.OwnBook && e.book != nil {
		if entry, ok := e.book.Lookup(pos.Key()); ok && allowed(entry.Move) {
			res.Move, res.Score, res.Depth = entry.Move, int(entry.Score), int(entry.Depth)
			res.PV = []board.Move{entry.Move}
			res.Source = SourceBook
			return res
		}
	}

	if tablebase.Covers(e.tb, pos) {
		ctx, cancel := context.WithTimeout(context.Background(), tbProbeTimeout)
		rr := e.tb.ProbeRoot(ctx, pos)
		cancel()
		if rr.Found && allowed(rr.Move) {
			res.Move, res.Score = rr.Move, wdlScore(rr.WDL)
			res.PV = []board.Move{rr.Move}
			res.Source = SourceTablebase
			return res
		}
	}

	done := make(chan struct{})
	go tm.watch(e, done)
	defer close(done)
	return e.iterate(limits, tm)
}

func wdlScore(wdl tablebase.WDL) int {
	switch wdl {
	case tablebase.WDLWin:
		return tbWinScore
	case tablebase.WDLLoss:
		return -tbWinScore
	case tablebase.WDLCursedWin:
		return 1
	case tablebase.WDLBlessedLoss:
		return -1
	}
	return DrawScore
}

// report publishes the state of the main thread after a depth.
func (e *Engine) report(depth, score int, pv []board.Move, tm *timeManager, completed bool) {
	if e.OnInfo == nil {
		return
	}
	elapsed := tm.Elapsed()
	nodes := e.pool.Nodes()
	var nps uint64
	if ms := elapsed.Milliseconds(); ms > 0 {
		nps = nodes * 1000 / uint64(ms)
	}
	e.OnInfo(SearchInfo{
		Depth:     depth,
		SelDepth:  e.pool.SelDepth(),
		Score:     score,
		Nodes:     nodes,
		Nps:       nps,
		Time:      elapsed,
		HashFull:  e.tt.Hashfull(),
		PV:        append([]board.Move(nil), pv...),
		Color:     e.pool.Main().pos.SideToMove(),
		Completed: completed,
	})
}

// Stop ends the running search. Wait still has to collect the result.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// PonderHit tells a ponder search that the expected move was played, so
// the clock now runs.
func (e *Engine) PonderHit() {
	e.mu.Lock()
	tm := e.tm
	e.mu.Unlock()
	if tm != nil {
		tm.ponderHit()
	}
}

// Wait blocks until the running search ends and returns its result. It
// returns the previous result when nothing is running.
func (e *Engine) Wait() Result {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// Search runs a search to completion.
func (e *Engine) Search(limits Limits) (Result, error) {
	if err := e.Go(limits); err != nil {
		return Result{}, err
	}
	return e.Wait(), nil
}

// Nodes returns the nodes searched by the current or last search.
func (e *Engine) Nodes() uint64 {
	return e.pool.Nodes()
}

// NewGame forgets everything learned from earlier positions.
func (e *Engine) NewGame() {
	e.tt.Clear()
	e.pool.clearHistory()
}

// ClearHash empties the transposition table.
func (e *Engine) ClearHash() {
	e.tt.Clear()
}

// SetHash resizes the transposition table. It must not be called during
// a search.
func (e *Engine) SetHash(mb int) {
	e.opts.HashMB = mb
	e.opts = e.opts.normalized()
	e.tt.Resize(e.opts.HashMB)
	e.log.Debug().Int("mb", e.opts.HashMB).Int("slots", e.tt.Len()).Msg("hash resized")
}

// SetThreads rebuilds the pool with n threads. It must not be called
// during a search.
func (e *Engine) SetThreads(n int) error {
	e.opts.Threads = n
	e.opts = e.opts.normalized()
	if e.opts.Threads == e.pool.Size() {
		return nil
	}
	if err := e.pool.Close(); err != nil {
		return err
	}
	e.pool = newPool(e, e.opts.Threads, e.log)
	return nil
}

// SetMoveOverhead sets the time reserved per move.
func (e *Engine) SetMoveOverhead(d time.Duration) {
	e.opts.MoveOverhead = max(d, 0)
}

// SetOwnBook enables or disables book moves.
func (e *Engine) SetOwnBook(on bool) {
	e.opts.OwnBook = on
}

// SetBook installs the opening book, or removes it when b is nil.
func (e *Engine) SetBook(b Book) {
	e.book = b
}

// SetTablebase installs the root tablebase oracle; nil disables it.
func (e *Engine) SetTablebase(p tablebase.Prober) {
	if p == nil {
		p = tablebase.NoopProber{}
	}
	e.tb = p
}

// TablebaseWDL looks up the current position in the tablebase. ok is
// false when the position has too many pieces or the oracle has no answer.
func (e *Engine) TablebaseWDL(ctx context.Context) (res tablebase.ProbeResult, ok bool) {
	pos := e.Position()
	if !tablebase.Covers(e.tb, pos) {
		return res, false
	}
	ctx, cancel := context.WithTimeout(ctx, tbProbeTimeout)
	defer cancel()
	res = e.tb.Probe(ctx, pos)
	return res, res.Found
}

// SetLogger replaces the logger of the engine and its thread pool. It
// must not be called during a search.
func (e *Engine) SetLogger(log zerolog.Logger) {
	e.log = log
	e.pool.log = log
}

// SetEvaluator replaces the static evaluation.
func (e *Engine) SetEvaluator(ev Evaluator) {
	e.eval = ev
}

// Evaluate returns the static evaluation of the current position.
func (e *Engine) Evaluate() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eval.Evaluate(e.pos)
}

// Close stops any search and shuts the thread pool down.
func (e *Engine) Close() error {
	e.Stop()
	e.Wait()
	if c, ok := e.tb.(interface{ HitRate() float64 }); ok {
		e.log.Debug().Float64("hit_rate", c.HitRate()).Msg("tablebase cache") // percent
	}
	return e.pool.Close()
}
