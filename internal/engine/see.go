package engine

import (
	"github.com/UoLeevi/uochess/internal/board"
)

// SEE estimates the material outcome of m for the side to move by
// playing out the cheapest recaptures on the destination square.
func SEE(p *board.Position, m board.Move) int {
	from, to := m.From(), m.To()
	occupied := p.Occupied() &^ board.SquareBB(from)

	var gain [32]int
	switch {
	case m.Type() == board.EnPassant:
		gain[0] = PawnValue
		occupied &^= board.SquareBB(to - 8)
	case m.IsCapture():
		gain[0] = pieceValues[p.PieceOn(to).Type()]
	}

	attacker := p.PieceOn(from).Type()
	if m.IsPromotion() {
		attacker = m.Promotion()
		gain[0] += pieceValues[attacker] - PawnValue
	}

	diag := p.Pieces(board.Us, board.Bishop) | p.Pieces(board.Them, board.Bishop) |
		p.Pieces(board.Us, board.Queen) | p.Pieces(board.Them, board.Queen)
	orth := p.Pieces(board.Us, board.Rook) | p.Pieces(board.Them, board.Rook) |
		p.Pieces(board.Us, board.Queen) | p.Pieces(board.Them, board.Queen)

	attackers := p.AttackersTo(to, occupied) & occupied
	side := board.Them
	d := 0
	for d < len(gain)-1 {
		d++
		gain[d] = pieceValues[attacker] - gain[d-1]
		if max(-gain[d-1], gain[d]) < 0 {
			break
		}

		sq, pt, ok := leastValuableAttacker(p, attackers&p.Occupancy(side))
		if !ok {
			break
		}
		occupied &^= board.SquareBB(sq)
		// Removing a piece can uncover a slider behind it.
		attackers |= board.BishopAttacks(to, occupied)&diag | board.RookAttacks(to, occupied)&orth
		attackers &= occupied
		attacker = pt
		side ^= 1
	}

	for d--; d > 0; d-- {
		gain[d-1] = -max(-gain[d-1], gain[d])
	}
	return gain[0]
}

// leastValuableAttacker picks the cheapest piece among attackers.
func leastValuableAttacker(p *board.Position, attackers board.Bitboard) (board.Square, board.PieceType, bool) {
	if attackers == 0 {
		return board.NoSquare, board.NoPieceType, false
	}
	for pt := board.Pawn; pt <= board.King; pt++ {
		if bb := attackers & (p.Pieces(board.Us, pt) | p.Pieces(board.Them, pt)); bb != 0 {
			return bb.LSB(), pt, true
		}
	}
	return board.NoSquare, board.NoPieceType, false
}
