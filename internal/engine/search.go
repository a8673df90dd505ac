package engine

import (
	"math"
	"runtime"

	"github.com/UoLeevi/uochess/internal/board"
)

// Search tuning.
const (
	aspirationWindow   = 25
	aspirationRetries  = 4
	aspirationMinDepth = 4
	nullMoveMinDepth   = 2
	lmrMinDepth        = 3
	lmrMinMoves        = 3
	parallelMinDepth   = 4
	parallelMinMoves   = 2
)

// lmrReductions holds the extra reduction on top of one ply, indexed by
// [depth][moves searched].
var lmrReductions [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmrReductions[d][m] = int(math.Log(float64(d)) * math.Log(float64(m)) / 2.5)
		}
	}
}

func lmrReduction(depth, searched int) int {
	return 1 + lmrReductions[min(depth, 63)][min(searched, 63)]
}

// frame is the state of one node's move loop, shared by the serial path
// and the folding of helper results.
type frame struct {
	ply      int
	depth    int
	alpha    int
	beta     int
	best     int
	bestMove board.Move
}

// isDraw reports a draw by the fifty-move rule, repetition or
// insufficient material. Mate on the hundredth half-move still counts.
func (t *Thread) isDraw() bool {
	p := t.pos
	if p.HalfMoveClock() >= 100 && !p.IsCheckmate() {
		return true
	}
	return p.IsRepetition() || p.IsInsufficientMaterial()
}

// improve folds a fully searched move into f and reports a beta cutoff.
func (t *Thread) improve(f *frame, m board.Move, score int, line []board.Move) bool {
	if score <= f.best {
		return false
	}
	f.best = score
	f.bestMove = m
	if score <= f.alpha {
		return false
	}
	f.alpha = score
	t.setPV(f.ply, m, line)
	if f.ply == 0 {
		t.rootMove = m
		t.rootScore = score
		t.rootPV = append(t.rootPV[:0], t.pv[0][:t.pvLen[0]]...)
	}
	return score >= f.beta
}

// foldReady folds every helper result already queued at this node.
func (t *Thread) foldReady(q *SearchQueue, f *frame) bool {
	var r helperResult
	for q.Pending() > 0 && q.Pop(&r) {
		if !r.incomplete && t.improve(f, r.move, r.score, r.line()) {
			return true
		}
	}
	return false
}

// join waits for the helpers still working at this node. After a cutoff
// or a stop they are cancelled and their results discarded.
func (t *Thread) join(q *SearchQueue, f *frame, cut bool) bool {
	if cut {
		q.cancel()
	}
	var r helperResult
	for q.Pending() > 0 {
		if !q.Pop(&r) {
			if !cut && t.stopped() {
				q.cancel()
				cut = true
			}
			runtime.Gosched()
			continue
		}
		if cut || r.incomplete {
			continue
		}
		if t.improve(f, r.move, r.score, r.line()) {
			q.cancel()
			cut = true
		}
	}
	return cut
}

func (t *Thread) canDelegate(q *SearchQueue, depth, remaining int) bool {
	return t.eng.pool.Size() > 1 &&
		depth >= parallelMinDepth &&
		remaining >= parallelMinMoves &&
		q.Pending() < MaxHelpers
}

// delegate hands m to the idle helper h. The position must be at the
// node's state.
func (t *Thread) delegate(h *Thread, q *SearchQueue, m board.Move, f *frame) {
	h.pos.CopyFrom(t.pos)
	h.cutoff.Store(false)
	h.owner.Store(t)
	q.add(h)
	h.sem <- task{
		queue: q,
		move:  m,
		ply:   f.ply,
		depth: f.depth - 1,
		alpha: f.alpha,
		beta:  f.beta,
	}
}

// search is the fail-soft principal variation search. Scores are from
// the side to move's point of view; mate scores count plies from the root.
func (t *Thread) search(ply, depth, alpha, beta int, nullOK bool) int {
	t.pvLen[ply] = ply
	if ply > 0 && t.isDraw() {
		return DrawScore
	}
	if depth <= 0 {
		return t.quiescence(ply, 0, alpha, beta)
	}

	t.nodes.Add(1)
	t.updateSelDepth(ply)
	if t.stopped() {
		return 0
	}
	if ply >= MaxPly {
		return t.evaluate()
	}

	eng := t.eng
	pos := t.pos
	pruning := !eng.opts.DisablePruning
	pvNode := beta-alpha > 1

	entry, hit := eng.tt.Probe(pos.Key(), ply)
	ttMove := entry.Move
	if hit && pruning && !pvNode {
		if score, ok := entry.Cutoff(alpha, beta, depth); ok {
			return score
		}
	}

	inCheck := pos.InCheck()

	if pruning && !pvNode && !inCheck && nullOK && ply > 0 &&
		depth >= nullMoveMinDepth && pos.HasNonPawnMaterial(board.Us) &&
		t.evaluate() >= beta {
		r := 2 + depth/4
		pos.MakeNullMove()
		score := -t.search(ply+1, depth-1-r, -beta, -beta+1, false)
		pos.UnmakeNullMove()
		if t.stopped() {
			return 0
		}
		if score >= beta {
			if IsMateScore(score) {
				score = beta
			}
			return score
		}
	}

	moves, _ := board.GenerateMoves(pos, t.moves[ply][:])
	if ply == 0 && len(t.rootOnly) > 0 {
		moves = restrict(moves, t.rootOnly)
	}
	if len(moves) == 0 {
		if inCheck {
			return MatedIn(ply)
		}
		return DrawScore
	}
	scores := t.scores[ply][:len(moves)]
	t.scoreMoves(pos, moves, scores, ply, ttMove)

	q := &t.queues[ply]
	q.reset()
	f := frame{ply: ply, depth: depth, alpha: alpha, beta: beta, best: -Infinity}
	cut := false
	searched := 0

	for i := range moves {
		if t.foldReady(q, &f) {
			cut = true
			break
		}
		if t.stopped() {
			break
		}
		m := pickMove(moves, scores, i)

		if searched > 0 && t.canDelegate(q, depth, len(moves)-i) {
			if h := eng.pool.acquire(); h != nil {
				t.delegate(h, q, m, &f)
				searched++
				continue
			}
		}

		quiet := !m.IsTactical()
		pos.MakeMove(m)
		newDepth := depth - 1
		var score int
		if searched == 0 {
			score = -t.search(ply+1, newDepth, -f.beta, -f.alpha, true)
		} else {
			r := 0
			if pruning && quiet && !inCheck && !pos.InCheck() &&
				depth >= lmrMinDepth && searched >= lmrMinMoves && !t.isKiller(m, ply) {
				r = min(lmrReduction(depth, searched), newDepth-1)
			}
			score = -t.search(ply+1, newDepth-r, -f.alpha-1, -f.alpha, true)
			if r > 0 && score > f.alpha {
				score = -t.search(ply+1, newDepth, -f.alpha-1, -f.alpha, true)
			}
			if score > f.alpha && score < f.beta {
				score = -t.search(ply+1, newDepth, -f.beta, -f.alpha, true)
			}
		}
		pos.UnmakeMove()
		searched++

		if t.stopped() {
			break
		}
		if t.improve(&f, m, score, t.childPV(ply)) {
			cut = true
			break
		}
	}

	cut = t.join(q, &f, cut)
	if t.stopped() {
		return 0
	}

	bound := BoundExact
	switch {
	case f.best >= beta:
		bound = BoundLower
		if !f.bestMove.IsTactical() {
			t.updateKillers(f.bestMove, ply)
			t.updateHistory(f.bestMove, moves[:searched], depth)
		}
	case f.best <= alpha:
		bound = BoundUpper
	}
	storeMove := f.bestMove
	if bound == BoundUpper {
		storeMove = board.NoMove
	}
	eng.tt.Store(pos.Key(), ply, storeMove, f.best, depth, bound)
	return f.best
}

// restrict keeps the moves listed in only, preserving their order.
func restrict(moves, only []board.Move) []board.Move {
	out := moves[:0]
	for _, m := range moves {
		for _, o := range only {
			if m == o {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// aspiration searches the root at depth with a window around the
// previous iteration's score, widening it on every failure.
func (t *Thread) aspiration(depth, prev int) int {
	alpha, beta := -Infinity, Infinity
	window := aspirationWindow
	if depth >= aspirationMinDepth && !IsMateScore(prev) {
		alpha, beta = prev-window, prev+window
	}
	for fails := 0; ; {
		score := t.search(0, depth, alpha, beta, true)
		if t.stopped() {
			return score
		}
		if (score > alpha && score < beta) || (alpha == -Infinity && beta == Infinity) {
			return score
		}
		fails++
		t.researches++
		window *= 2
		switch {
		case fails >= aspirationRetries:
			alpha, beta = -Infinity, Infinity
		case score <= alpha:
			alpha = max(score-window, -Infinity)
		default:
			beta = min(score+window, Infinity)
		}
	}
}

// iterate runs iterative deepening on the main thread until a limit is
// reached or the search is stopped, reporting each completed depth.
func (e *Engine) iterate(limits Limits, tm *timeManager) Result {
	t := e.pool.Main()
	res := Result{Color: t.pos.SideToMove(), Source: SourceSearch}

	maxDepth := MaxPly - 1
	if limits.Depth > 0 {
		maxDepth = min(limits.Depth, maxDepth)
	}

	prev := 0
	for depth := 1; depth <= maxDepth; depth++ {
		t.rootMove = board.NoMove
		t.rootPV = t.rootPV[:0]

		score := t.aspiration(depth, prev)

		if e.stop.Load() {
			if t.rootMove != board.NoMove {
				res.Move = t.rootMove
				res.Score = t.rootScore
				res.PV = append([]board.Move(nil), t.rootPV...)
			}
			break
		}

		prev = score
		res.Depth = depth
		res.Score = score
		res.PV = append(res.PV[:0], t.pv[0][:t.pvLen[0]]...)
		if len(res.PV) > 0 {
			res.Move = res.PV[0]
		}
		e.completed.Store(int32(depth))
		e.report(depth, score, res.PV, tm, true)

		if res.Move == board.NoMove || IsMateScore(score) || tm.softExpired() {
			break
		}
	}

	if res.Move == board.NoMove {
		var buf [board.MoveBufferSize]board.Move
		moves, _ := board.GenerateMoves(t.pos, buf[:])
		if len(t.rootOnly) > 0 {
			moves = restrict(moves, t.rootOnly)
		}
		if len(moves) > 0 {
			res.Move = moves[0]
			res.PV = []board.Move{moves[0]}
		}
	}
	if len(res.PV) > 1 {
		res.Ponder = res.PV[1]
	}
	res.Nodes = e.pool.Nodes()
	return res
}
