package board

import "math/bits"

// Zobrist keys are laid out so that mirroring a position is a byte
// reversal of its key: the key of an enemy piece on sq is the reversed key
// of the own piece of the same type on sq.Flip(), and the side, castling
// and en-passant keys obey the same rule. Flipping the board therefore
// costs one bits.ReverseBytes64 and one XOR instead of a recomputation.
var (
	zobristPiece    [12][64]uint64 // [Piece][Square]
	zobristCastling [16]uint64
	zobristEP       [8]uint64 // byte palindromes, invariant under reversal
	zobristSide     uint64    // byte palindrome; present when Black is to move
)

func init() {
	rng := newPRNG(0x98F107A2BEEF1234)

	for pt := Pawn; pt <= King; pt++ {
		for sq := A1; sq <= H8; sq++ {
			zobristPiece[MakePiece(Us, pt)][sq] = rng.next()
		}
	}
	for pt := Pawn; pt <= King; pt++ {
		for sq := A1; sq <= H8; sq++ {
			zobristPiece[MakePiece(Them, pt)][sq] = flipKey(zobristPiece[MakePiece(Us, pt)][sq.Flip()])
		}
	}

	var castle [4]uint64
	castle[0] = rng.next()       // our king side
	castle[1] = rng.next()       // our queen side
	castle[2] = flipKey(castle[0])
	castle[3] = flipKey(castle[1])
	for cr := range zobristCastling {
		for i := range castle {
			if cr&(1<<i) != 0 {
				zobristCastling[cr] ^= castle[i]
			}
		}
	}

	for f := range zobristEP {
		zobristEP[f] = rng.palindrome()
	}
	zobristSide = rng.palindrome()
}

func flipKey(k uint64) uint64 {
	return bits.ReverseBytes64(k)
}

type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	return &prng{state: seed}
}

// xorshift64*
func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

// sparse returns a value with roughly an eighth of its bits set.
func (p *prng) sparse() uint64 {
	return p.next() & p.next() & p.next()
}

// palindrome returns a key that reads the same with its bytes reversed.
func (p *prng) palindrome() uint64 {
	lo := p.next() & 0xFFFFFFFF
	return lo | flipKey(lo)
}
