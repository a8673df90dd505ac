package engine

import (
	"github.com/UoLeevi/uochess/internal/board"
)

// Move ordering priorities
const (
	ttMoveScore     int32 = 1 << 30
	goodCaptureBase int32 = 1 << 28
	killerScore1    int32 = 1 << 27
	killerScore2    int32 = killerScore1 - 1
	badCaptureBase  int32 = -(1 << 28)
)

// historyLimit is where the butterfly table is halved.
const historyLimit = 400000

// moveOrderer holds the per-thread heuristics: two killers per ply and
// the butterfly history indexed by [from][to].
type moveOrderer struct {
	killers [MaxPly + 2][2]board.Move
	history [64][64]int32
}

// reset prepares the orderer for a new search. Killers are position
// specific and dropped; history is aged.
func (mo *moveOrderer) reset() {
	clear(mo.killers[:])
	mo.ageHistory()
}

// clear forgets everything, as on a new game.
func (mo *moveOrderer) clear() {
	clear(mo.killers[:])
	clear(mo.history[:])
}

func (mo *moveOrderer) ageHistory() {
	for i := range mo.history {
		for j := range mo.history[i] {
			mo.history[i][j] /= 2
		}
	}
}

// mvvLva ranks captures: most valuable victim first, then least valuable
// attacker.
func mvvLva(victim, attacker board.PieceType) int32 {
	return int32(victim+1)*8 + 7 - int32(attacker)
}

// scoreMoves fills scores for moves at ply. The TT move is only honored
// when it is in the list, which also guards against torn table entries.
func (mo *moveOrderer) scoreMoves(p *board.Position, moves []board.Move, scores []int32, ply int, ttMove board.Move) {
	for i, m := range moves {
		scores[i] = mo.scoreMove(p, m, ply, ttMove)
	}
}

func (mo *moveOrderer) scoreMove(p *board.Position, m board.Move, ply int, ttMove board.Move) int32 {
	if m == ttMove {
		return ttMoveScore
	}

	if m.IsTactical() {
		see := int32(SEE(p, m))
		var order int32
		switch {
		case m.Type() == board.EnPassant:
			order = mvvLva(board.Pawn, board.Pawn)
		case m.IsCapture():
			order = mvvLva(p.PieceOn(m.To()).Type(), p.PieceOn(m.From()).Type())
		default:
			order = int32(m.Promotion())
		}
		if see >= 0 {
			return goodCaptureBase + see*64 + order
		}
		return badCaptureBase + see*64
	}

	switch m {
	case mo.killers[ply][0]:
		return killerScore1
	case mo.killers[ply][1]:
		return killerScore2
	}
	return mo.history[m.From()][m.To()]
}

// pickMove swaps the best remaining move into index and returns it.
// Sorting lazily pays off because most nodes cut early.
func pickMove(moves []board.Move, scores []int32, index int) board.Move {
	best := index
	for j := index + 1; j < len(moves); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves[index], moves[best] = moves[best], moves[index]
		scores[index], scores[best] = scores[best], scores[index]
	}
	return moves[index]
}

func (mo *moveOrderer) isKiller(m board.Move, ply int) bool {
	return m == mo.killers[ply][0] || m == mo.killers[ply][1]
}

// updateKillers adds a quiet move that caused a cutoff at ply.
func (mo *moveOrderer) updateKillers(m board.Move, ply int) {
	if mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// updateHistory rewards the cutoff move and penalizes the quiet moves
// tried before it.
func (mo *moveOrderer) updateHistory(m board.Move, tried []board.Move, depth int) {
	bonus := int32(depth * depth)
	h := &mo.history[m.From()][m.To()]
	*h += bonus
	if *h > historyLimit {
		mo.ageHistory()
	}
	for _, q := range tried {
		if q == m || q.IsTactical() {
			continue
		}
		h := &mo.history[q.From()][q.To()]
		*h = max(*h-bonus, -historyLimit)
	}
}
