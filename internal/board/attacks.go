package board

var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard // [Side][Square]; Us captures north, Them south

	// Empty-board slider rays, used to find x-ray snipers.
	bishopRays [64]Bitboard
	rookRays   [64]Bitboard

	betweenBB [64][64]Bitboard // strictly between two aligned squares
	lineBB    [64][64]Bitboard // the whole line through two aligned squares
)

func init() {
	initMagics()
	for sq := A1; sq <= H8; sq++ {
		b := SquareBB(sq)

		knightAttacks[sq] = (b<<17)&NotFileA | (b<<15)&NotFileH |
			(b>>17)&NotFileH | (b>>15)&NotFileA |
			(b<<10)&NotFileAB | (b<<6)&NotFileGH |
			(b>>10)&NotFileGH | (b>>6)&NotFileAB

		kingAttacks[sq] = b.North() | b.South() | b.East() | b.West() |
			b.NorthEast() | b.NorthWest() | b.SouthEast() | b.SouthWest()

		pawnAttacks[Us][sq] = b.NorthEast() | b.NorthWest()
		pawnAttacks[Them][sq] = b.SouthEast() | b.SouthWest()

		bishopRays[sq] = BishopAttacks(sq, Empty)
		rookRays[sq] = RookAttacks(sq, Empty)
	}

	for a := A1; a <= H8; a++ {
		for b := A1; b <= H8; b++ {
			ab := SquareBB(a) | SquareBB(b)
			switch {
			case a == b:
			case bishopRays[a].Has(b):
				lineBB[a][b] = bishopRays[a]&bishopRays[b] | ab
				betweenBB[a][b] = BishopAttacks(a, ab) & BishopAttacks(b, ab)
			case rookRays[a].Has(b):
				lineBB[a][b] = rookRays[a]&rookRays[b] | ab
				betweenBB[a][b] = RookAttacks(a, ab) & RookAttacks(b, ab)
			}
		}
	}
}

// KnightAttacks returns the knight jump targets from sq.
func KnightAttacks(sq Square) Bitboard {
	return knightAttacks[sq]
}

// KingAttacks returns the king step targets from sq.
func KingAttacks(sq Square) Bitboard {
	return kingAttacks[sq]
}

// PawnAttacks returns the capture targets of a pawn of side s on sq.
func PawnAttacks(s Side, sq Square) Bitboard {
	return pawnAttacks[s][sq]
}

// Attacks returns the attack set of a piece of the given type on sq.
// Pawns are taken to belong to the side to move.
func Attacks(pt PieceType, sq Square, occupied Bitboard) Bitboard {
	switch pt {
	case Pawn:
		return pawnAttacks[Us][sq]
	case Knight:
		return knightAttacks[sq]
	case Bishop:
		return BishopAttacks(sq, occupied)
	case Rook:
		return RookAttacks(sq, occupied)
	case Queen:
		return QueenAttacks(sq, occupied)
	case King:
		return kingAttacks[sq]
	}
	return Empty
}

// Between returns the squares strictly between a and b, or Empty if they
// do not share a line.
func Between(a, b Square) Bitboard {
	return betweenBB[a][b]
}

// Line returns the full board line through a and b, or Empty.
func Line(a, b Square) Bitboard {
	return lineBB[a][b]
}

// Aligned reports whether c lies on the line through a and b.
func Aligned(a, b, c Square) bool {
	return lineBB[a][b].Has(c)
}

// CheckersAndPins scans every line from the king square. It returns the
// enemy pieces giving check and the own pieces pinned to the king: a piece
// is pinned when it is the only blocker between the king and an enemy
// slider on the same line or diagonal.
func CheckersAndPins(king Square, occupied, own, enemyPawns, enemyKnights, enemyDiag, enemyOrth Bitboard) (checkers, pinned Bitboard) {
	checkers = pawnAttacks[Us][king]&enemyPawns | knightAttacks[king]&enemyKnights

	snipers := bishopRays[king]&enemyDiag | rookRays[king]&enemyOrth
	for snipers != 0 {
		s := snipers.PopLSB()
		blockers := betweenBB[king][s] & occupied
		switch {
		case blockers == 0:
			checkers |= SquareBB(s)
		case !blockers.Several() && blockers&own != 0:
			pinned |= blockers
		}
	}
	return checkers, pinned
}
