package board

// Color is an absolute player color.
type Color uint8

const (
	White Color = iota
	Black
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

func (c Color) String() string {
	if c == White {
		return "w"
	}
	return "b"
}

// Side names a player relative to the side to move.
type Side uint8

const (
	Us Side = iota
	Them
)

// PieceType is a colorless piece kind.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceType PieceType = 6
)

// Char returns the lowercase letter for the piece type.
func (pt PieceType) Char() byte {
	if pt >= NoPieceType {
		return ' '
	}
	return "pnbrqk"[pt]
}

// PieceTypeFromChar parses a lowercase or uppercase piece letter.
func PieceTypeFromChar(c byte) PieceType {
	switch c | 0x20 {
	case 'p':
		return Pawn
	case 'n':
		return Knight
	case 'b':
		return Bishop
	case 'r':
		return Rook
	case 'q':
		return Queen
	case 'k':
		return King
	}
	return NoPieceType
}

// Piece is a piece type owned by a relative side, encoded as
// type + side*6. Entries of the per-square array are Pieces.
type Piece uint8

// NoPiece marks an empty square.
const NoPiece Piece = 12

// MakePiece combines a side and a piece type.
func MakePiece(s Side, pt PieceType) Piece {
	return Piece(pt) + Piece(s)*6
}

// Type returns the piece type, or NoPieceType for NoPiece.
func (p Piece) Type() PieceType {
	if p >= NoPiece {
		return NoPieceType
	}
	return PieceType(p % 6)
}

// Side returns the owner of the piece relative to the side to move.
func (p Piece) Side() Side {
	return Side(p / 6)
}

// Flip swaps the owner. NoPiece is unchanged.
func (p Piece) Flip() Piece {
	if p >= NoPiece {
		return p
	}
	if p < 6 {
		return p + 6
	}
	return p - 6
}
