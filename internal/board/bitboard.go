package board

import (
	"math/bits"
	"strings"
)

// Bitboard is a set of squares, one bit per square.
// Bit 0 = A1, bit 7 = H1, bit 56 = A8, bit 63 = H8 (little-endian rank-file).
type Bitboard uint64

// File masks
const (
	FileA Bitboard = 0x0101010101010101
	FileB Bitboard = FileA << 1
	FileG Bitboard = FileA << 6
	FileH Bitboard = FileA << 7
)

// Rank masks
const (
	Rank1 Bitboard = 0x00000000000000FF
	Rank2 Bitboard = Rank1 << (8 * 1)
	Rank3 Bitboard = Rank1 << (8 * 2)
	Rank4 Bitboard = Rank1 << (8 * 3)
	Rank5 Bitboard = Rank1 << (8 * 4)
	Rank6 Bitboard = Rank1 << (8 * 5)
	Rank7 Bitboard = Rank1 << (8 * 6)
	Rank8 Bitboard = Rank1 << (8 * 7)
)

const (
	Empty    Bitboard = 0
	Universe Bitboard = ^Empty

	NotFileA  Bitboard = ^FileA
	NotFileH  Bitboard = ^FileH
	NotFileAB Bitboard = ^(FileA | FileB)
	NotFileGH Bitboard = ^(FileG | FileH)
)

// FileMask returns the mask of a file (0-7).
var FileMask = [8]Bitboard{
	FileA, FileA << 1, FileA << 2, FileA << 3,
	FileA << 4, FileA << 5, FileA << 6, FileA << 7,
}

// RankMask returns the mask of a rank (0-7).
var RankMask = [8]Bitboard{Rank1, Rank2, Rank3, Rank4, Rank5, Rank6, Rank7, Rank8}

// SquareBB returns a bitboard with only sq set.
func SquareBB(sq Square) Bitboard {
	return 1 << sq
}

// Has reports whether sq is in the set.
func (b Bitboard) Has(sq Square) bool {
	return b&(1<<sq) != 0
}

// PopCount returns the number of set bits.
func (b Bitboard) PopCount() int {
	return bits.OnesCount64(uint64(b))
}

// LSB returns the lowest set square, or NoSquare for an empty board.
func (b Bitboard) LSB() Square {
	if b == 0 {
		return NoSquare
	}
	return Square(bits.TrailingZeros64(uint64(b)))
}

// PopLSB removes and returns the lowest set square.
func (b *Bitboard) PopLSB() Square {
	sq := Square(bits.TrailingZeros64(uint64(*b)))
	*b &= *b - 1
	return sq
}

// Several reports whether more than one bit is set.
func (b Bitboard) Several() bool {
	return b&(b-1) != 0
}

// Flip mirrors the board vertically: rank 1 swaps with rank 8 and so on.
// Because a rank is one byte, this is a byte reversal.
func (b Bitboard) Flip() Bitboard {
	return Bitboard(bits.ReverseBytes64(uint64(b)))
}

// North shifts one rank up.
func (b Bitboard) North() Bitboard { return b << 8 }

// South shifts one rank down.
func (b Bitboard) South() Bitboard { return b >> 8 }

// East shifts one file toward h.
func (b Bitboard) East() Bitboard { return (b << 1) & NotFileA }

// West shifts one file toward a.
func (b Bitboard) West() Bitboard { return (b >> 1) & NotFileH }

func (b Bitboard) NorthEast() Bitboard { return (b << 9) & NotFileA }
func (b Bitboard) NorthWest() Bitboard { return (b << 7) & NotFileH }
func (b Bitboard) SouthEast() Bitboard { return (b >> 7) & NotFileA }
func (b Bitboard) SouthWest() Bitboard { return (b >> 9) & NotFileH }

// String renders the board with rank 8 on top.
func (b Bitboard) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		sb.WriteByte(byte('1' + rank))
		sb.WriteByte(' ')
		for file := 0; file < 8; file++ {
			if b.Has(NewSquare(file, rank)) {
				sb.WriteString("1 ")
			} else {
				sb.WriteString(". ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h\n")
	return sb.String()
}
