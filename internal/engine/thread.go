package engine

import (
	"sync/atomic"

	"github.com/UoLeevi/uochess/internal/board"
)

// task is one sibling move handed to a helper.
type task struct {
	queue *SearchQueue
	move  board.Move
	ply   int // ply of the node the move is played from
	depth int // remaining depth after the move
	alpha int
	beta  int
}

// Thread is a search thread. Thread 0 runs iterative deepening; the
// others are helpers that sit idle in the pool until a node delegates a
// sibling move to them.
type Thread struct {
	id  int
	eng *Engine
	pos *board.Position

	sem    chan task
	owner  atomic.Pointer[Thread]
	cutoff atomic.Bool
	result helperResult

	nodes    atomic.Uint64
	seldepth atomic.Int32

	moveOrderer

	moves  [MaxPly + 1][board.MoveBufferSize]board.Move
	scores [MaxPly + 1][board.MaxMoves]int32
	queues [MaxPly + 1]SearchQueue

	pv    [MaxPly + 1][MaxPly + 1]board.Move
	pvLen [MaxPly + 1]int

	// Root bookkeeping of the main thread for the running iteration.
	rootMove  board.Move
	rootScore int
	rootPV    []board.Move
	rootOnly  []board.Move

	researches int // aspiration re-searches since the last reset
}

func newThread(id int, eng *Engine) *Thread {
	return &Thread{
		id:  id,
		eng: eng,
		pos: board.NewPosition(),
	}
}

// ID returns the thread's index in the pool.
func (t *Thread) ID() int { return t.id }

// Nodes returns the nodes searched since the last reset.
func (t *Thread) Nodes() uint64 { return t.nodes.Load() }

func (t *Thread) reset() {
	t.nodes.Store(0)
	t.seldepth.Store(0)
	t.cutoff.Store(false)
	t.researches = 0
	t.moveOrderer.reset()
}

// stopped reports whether the thread should abandon its current work:
// the search was stopped, or this thread or any thread it works for was
// cut off.
func (t *Thread) stopped() bool {
	if t.eng.stop.Load() {
		return true
	}
	for th := t; th != nil; th = th.owner.Load() {
		if th.cutoff.Load() {
			return true
		}
	}
	return false
}

func (t *Thread) evaluate() int {
	return t.eng.eval.Evaluate(t.pos)
}

func (t *Thread) updateSelDepth(ply int) {
	if int32(ply) > t.seldepth.Load() {
		t.seldepth.Store(int32(ply))
	}
}

// setPV makes m followed by line the principal variation at ply.
func (t *Thread) setPV(ply int, m board.Move, line []board.Move) {
	t.pv[ply][ply] = m
	n := copy(t.pv[ply][ply+1:], line)
	t.pvLen[ply] = ply + 1 + n
}

func (t *Thread) childPV(ply int) []board.Move {
	return t.pv[ply+1][ply+1:t.pvLen[ply+1]]
}

// loop serves tasks until the semaphore is closed.
func (t *Thread) loop() {
	for tk := range t.sem {
		t.run(tk)
	}
}

// run searches one delegated move, null window first and full window
// when that fails high inside the owner's window, and posts the result.
func (t *Thread) run(tk task) {
	ply := tk.ply
	t.pvLen[ply+1] = ply + 1

	t.pos.MakeMove(tk.move)
	score := -t.search(ply+1, tk.depth, -tk.alpha-1, -tk.alpha, true)
	if score > tk.alpha && score < tk.beta && !t.stopped() {
		score = -t.search(ply+1, tk.depth, -tk.beta, -tk.alpha, true)
	}
	t.pos.UnmakeMove()

	r := &t.result
	r.thread = t
	r.move = tk.move
	r.score = score
	r.incomplete = t.stopped()
	r.pvLen = copy(r.pv[:], t.childPV(ply))

	tk.queue.Push(r)
	t.owner.Store(nil)
	t.eng.pool.release(t)
}
