package board

// Move packs a move into 16 bits:
//
//	bits 0-5   from square (relative to the mover)
//	bits 6-11  to square (relative to the mover)
//	bits 12-15 MoveType
type Move uint16

// NoMove is the zero move, used as "none" in tables and PVs.
const NoMove Move = 0

// MoveType is the 4-bit tag of a move.
type MoveType uint8

const (
	Quiet         MoveType = 0
	DoublePush    MoveType = 1
	CastleKing    MoveType = 2
	CastleQueen   MoveType = 3
	Capture       MoveType = 4
	EnPassant     MoveType = 5
	PromoKnight   MoveType = 8
	PromoBishop   MoveType = 9
	PromoRook     MoveType = 10
	PromoQueen    MoveType = 11
	PromoKnightX  MoveType = 12
	PromoBishopX  MoveType = 13
	PromoRookX    MoveType = 14
	PromoQueenX   MoveType = 15
	promoFlag     MoveType = 8
	promoCaptured MoveType = 4
)

const (
	// MaxMoves bounds the legal moves of any reachable position (218 is the known maximum).
	MaxMoves = 256
	// TacticalBound is where the generator starts writing quiet moves.
	TacticalBound = 128
	// MoveBufferSize is the length of the buffer GenerateMoves expects.
	MoveBufferSize = TacticalBound + MaxMoves
)

// NewMove encodes a move.
func NewMove(from, to Square, t MoveType) Move {
	return Move(from) | Move(to)<<6 | Move(t)<<12
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square(m>>6) & 0x3F
}

// Type returns the move tag.
func (m Move) Type() MoveType {
	return MoveType(m >> 12)
}

// IsCapture reports whether the move removes an enemy piece (en passant included).
func (m Move) IsCapture() bool {
	t := m.Type()
	return t == Capture || t == EnPassant || t >= PromoKnightX
}

// IsPromotion reports whether a pawn promotes.
func (m Move) IsPromotion() bool {
	return m.Type()&promoFlag != 0
}

// IsTactical reports whether the move belongs to the tactical region of a move list.
func (m Move) IsTactical() bool {
	return m.IsCapture() || m.IsPromotion()
}

// IsCastle reports whether the move is a castle.
func (m Move) IsCastle() bool {
	t := m.Type()
	return t == CastleKing || t == CastleQueen
}

// Promotion returns the piece promoted to, or NoPieceType.
func (m Move) Promotion() PieceType {
	if !m.IsPromotion() {
		return NoPieceType
	}
	return Knight + PieceType(m.Type()&3)
}

// Flip mirrors both squares; the tag is unchanged.
func (m Move) Flip() Move {
	return m ^ (56 | 56<<6)
}

// String returns UCI text in relative coordinates, as seen by White.
func (m Move) String() string {
	return m.UCI(White)
}

// UCI returns the move in UCI notation for a mover of the given color.
func (m Move) UCI(mover Color) string {
	if m == NoMove {
		return "0000"
	}
	if mover == Black {
		m = m.Flip()
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}
	return s
}

// promotionType returns the tag for a promotion to pt, plain or capturing.
func promotionType(pt PieceType, capture bool) MoveType {
	t := promoFlag | MoveType(pt-Knight)
	if capture {
		t |= promoCaptured
	}
	return t
}
