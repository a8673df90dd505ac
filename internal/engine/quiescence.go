package engine

import (
	"github.com/UoLeevi/uochess/internal/board"
)

// deltaMargin is the slack added to a capture's gain before it is
// dismissed as unable to raise alpha.
const deltaMargin = 200

// quiescence resolves captures and promotions so the static evaluation
// is only trusted in quiet positions. qply counts plies since the main
// search ended; quiet checks are tried on the first one.
func (t *Thread) quiescence(ply, qply, alpha, beta int) int {
	t.pvLen[ply] = ply
	t.nodes.Add(1)
	t.updateSelDepth(ply)
	if t.stopped() {
		return 0
	}
	if qply > 0 && t.isDraw() {
		return DrawScore
	}
	if ply >= MaxPly {
		return t.evaluate()
	}

	pos := t.pos
	inCheck := pos.InCheck()
	moves, tactical := board.GenerateMoves(pos, t.moves[ply][:])

	if inCheck {
		if len(moves) == 0 {
			return MatedIn(ply)
		}
		return t.quiescenceMoves(ply, qply, alpha, beta, moves, -Infinity, false)
	}
	if len(moves) == 0 {
		return DrawScore
	}

	standPat := t.evaluate()
	if standPat >= beta {
		return standPat
	}
	alpha = max(alpha, standPat)

	candidates := moves[:tactical]
	if qply == 0 {
		candidates = moves
	}
	return t.quiescenceMoves(ply, qply, alpha, beta, candidates, standPat, true)
}

// quiescenceMoves searches moves from a quiescence node. When filter is
// set the node was not in check, so losing or hopeless captures are
// skipped along with quiet moves that do not give check.
func (t *Thread) quiescenceMoves(ply, qply, alpha, beta int, moves []board.Move, standPat int, filter bool) int {
	pos := t.pos
	best := standPat
	scores := t.scores[ply][:len(moves)]
	t.scoreMoves(pos, moves, scores, ply, board.NoMove)
	delta := filter && !t.eng.opts.DisablePruning

	for i := range moves {
		m := pickMove(moves, scores, i)
		if filter {
			if m.IsTactical() {
				if scores[i] < goodCaptureBase {
					continue
				}
				if delta && standPat+capturedValue(pos, m)+deltaMargin <= alpha {
					continue
				}
			} else if !pos.GivesCheck(m) {
				continue
			}
		}

		pos.MakeMove(m)
		score := -t.quiescence(ply+1, qply+1, -beta, -alpha)
		pos.UnmakeMove()
		if t.stopped() {
			return 0
		}

		if score > best {
			best = score
			if score > alpha {
				alpha = score
				t.setPV(ply, m, t.childPV(ply))
				if score >= beta {
					break
				}
			}
		}
	}
	return best
}

// capturedValue is the material m wins outright: the victim plus any
// promotion gain.
func capturedValue(pos *board.Position, m board.Move) int {
	v := 0
	switch {
	case m.Type() == board.EnPassant:
		v = PawnValue
	case m.IsCapture():
		v = pieceValues[pos.PieceOn(m.To()).Type()]
	}
	if m.IsPromotion() {
		v += pieceValues[m.Promotion()] - PawnValue
	}
	return v
}
