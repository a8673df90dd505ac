// Package engine implements the parallel alpha-beta search: the
// transposition table, the search threads and their pool, time
// management and the Engine context that owns them.
package engine

import (
	"github.com/UoLeevi/uochess/internal/board"
)

// Evaluator scores a quiet position from the side to move's point of view.
type Evaluator interface {
	Evaluate(p *board.Position) int
}

// Material values in centipawns.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

// PieceValue returns the material value of pt.
func PieceValue(pt board.PieceType) int {
	return pieceValues[pt]
}

const tempoBonus = 10

// Phase weights; a full set of minor and major pieces sums to totalPhase.
var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

const totalPhase = 24

// Piece-square tables, printed with rank 8 on top from the owner's point
// of view. Index them with pstIndex.

var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMidgamePST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var kingEndgamePST = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

var psts = [5]*[64]int{&pawnPST, &knightPST, &bishopPST, &rookPST, &queenPST}

// pstIndex maps a square in the owner's frame to a row of the printed
// tables. The board is relative to the side to move, so our pieces are
// already in their owner's frame and theirs are mirrored.
func pstIndex(s board.Side, sq board.Square) int {
	if s == board.Us {
		return int(sq ^ 56)
	}
	return int(sq)
}

// MaterialEvaluator is the default Evaluator: material, piece-square
// tables with a tapered king table, and a tempo bonus for the side to move.
type MaterialEvaluator struct{}

// Evaluate implements Evaluator.
func (MaterialEvaluator) Evaluate(p *board.Position) int {
	var mg, eg, phase int
	for s := board.Us; s <= board.Them; s++ {
		sign := 1
		if s == board.Them {
			sign = -1
		}
		for pt := board.Pawn; pt < board.King; pt++ {
			for bb := p.Pieces(s, pt); bb != 0; {
				sq := bb.PopLSB()
				v := pieceValues[pt] + psts[pt][pstIndex(s, sq)]
				mg += sign * v
				eg += sign * v
				phase += phaseWeight[pt]
			}
		}
		ksq := pstIndex(s, p.KingSquare(s))
		mg += sign * kingMidgamePST[ksq]
		eg += sign * kingEndgamePST[ksq]
	}
	phase = min(phase, totalPhase)
	return (mg*phase+eg*(totalPhase-phase))/totalPhase + tempoBonus
}
