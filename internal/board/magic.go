package board

import "math/bits"

// Sliding attacks are looked up by compacting the blocker bits under a
// square's relevance mask into a dense table index. On BMI2 hardware that
// is PEXT; portable Go has no such intrinsic, so the index is a
// multiply-shift ("magic") hash whose factor is searched at init until it
// maps every blocker subset without a destructive collision.

type magic struct {
	mask    Bitboard
	factor  uint64
	shift   uint8
	attacks []Bitboard
}

func (m *magic) index(occupied Bitboard) uint64 {
	return (uint64(occupied&m.mask) * m.factor) >> m.shift
}

var (
	bishopMagics [64]magic
	rookMagics   [64]magic

	bishopTable [5248]Bitboard
	rookTable   [102400]Bitboard
)

var (
	bishopDirs = [][2]int{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
	rookDirs   = [][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
)

const magicSeed = 0x2545F4914F6CDD1D

func initMagics() {
	rng := newPRNG(magicSeed)
	fillMagics(&bishopMagics, bishopTable[:], bishopMask, bishopDirs, rng)
	fillMagics(&rookMagics, rookTable[:], rookMask, rookDirs, rng)
}

func fillMagics(magics *[64]magic, table []Bitboard, maskOf func(Square) Bitboard, dirs [][2]int, rng *prng) {
	var (
		occupancy [4096]Bitboard
		reference [4096]Bitboard
		epoch     [4096]int
		attempt   int
		offset    int
	)

	for sq := A1; sq <= H8; sq++ {
		m := &magics[sq]
		m.mask = maskOf(sq)
		n := m.mask.PopCount()
		size := 1 << n
		m.shift = uint8(64 - n)
		m.attacks = table[offset : offset+size]
		offset += size

		for i := 0; i < size; i++ {
			occupancy[i] = Bitboard(pdep(uint64(i), uint64(m.mask)))
			reference[i] = slideAttacks(sq, occupancy[i], dirs)
		}

	search:
		for {
			m.factor = rng.sparse()
			if bits.OnesCount64((uint64(m.mask)*m.factor)>>56) < 6 {
				continue
			}
			attempt++
			for i := 0; i < size; i++ {
				idx := m.index(occupancy[i])
				if epoch[idx] < attempt {
					epoch[idx] = attempt
					m.attacks[idx] = reference[i]
				} else if m.attacks[idx] != reference[i] {
					continue search
				}
			}
			break
		}
	}
}

// pext gathers the bits of x selected by mask into the low bits of the result.
func pext(x, mask uint64) uint64 {
	var res uint64
	for bit := uint64(1); mask != 0; bit <<= 1 {
		if x&mask&-mask != 0 {
			res |= bit
		}
		mask &= mask - 1
	}
	return res
}

// pdep scatters the low bits of x into the positions selected by mask.
func pdep(x, mask uint64) uint64 {
	var res uint64
	for bit := uint64(1); mask != 0; bit <<= 1 {
		if x&bit != 0 {
			res |= mask & -mask
		}
		mask &= mask - 1
	}
	return res
}

// slideAttacks casts rays from sq until the board edge or the first blocker.
func slideAttacks(sq Square, occupied Bitboard, dirs [][2]int) Bitboard {
	var attacks Bitboard
	for _, d := range dirs {
		f, r := sq.File()+d[0], sq.Rank()+d[1]
		for f >= 0 && f <= 7 && r >= 0 && r <= 7 {
			s := NewSquare(f, r)
			attacks |= SquareBB(s)
			if occupied.Has(s) {
				break
			}
			f, r = f+d[0], r+d[1]
		}
	}
	return attacks
}

// bishopMask excludes the board edge: an edge blocker never changes the result.
func bishopMask(sq Square) Bitboard {
	return slideAttacks(sq, Empty, bishopDirs) &^ (Rank1 | Rank8 | FileA | FileH)
}

func rookMask(sq Square) Bitboard {
	file := slideAttacks(sq, Empty, rookDirs[:2]) &^ (Rank1 | Rank8)
	rank := slideAttacks(sq, Empty, rookDirs[2:]) &^ (FileA | FileH)
	return file | rank
}

// BishopAttacks returns the squares a bishop on sq attacks given the occupancy.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	m := &bishopMagics[sq]
	return m.attacks[m.index(occupied)]
}

// RookAttacks returns the squares a rook on sq attacks given the occupancy.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	m := &rookMagics[sq]
	return m.attacks[m.index(occupied)]
}

// QueenAttacks is the union of bishop and rook attacks.
func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return BishopAttacks(sq, occupied) | RookAttacks(sq, occupied)
}
