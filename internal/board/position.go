package board

import (
	"errors"
	"fmt"
)

// CastlingRights holds the four castling options relative to the side to move.
type CastlingRights uint8

const (
	OurKingSide CastlingRights = 1 << iota
	OurQueenSide
	TheirKingSide
	TheirQueenSide
	NoCastling CastlingRights = 0
)

// Flip swaps our rights with theirs.
func (cr CastlingRights) Flip() CastlingRights {
	return cr>>2 | (cr&3)<<2
}

// castleMask[sq] lists the rights lost when a piece moves from or to sq.
var castleMask = func() (m [64]CastlingRights) {
	m[E1] = OurKingSide | OurQueenSide
	m[H1] = OurKingSide
	m[A1] = OurQueenSide
	m[E8] = TheirKingSide | TheirQueenSide
	m[H8] = TheirKingSide
	m[A8] = TheirQueenSide
	return m
}()

// Flags packs the irreversible state of a position:
//
//	bits 0-3   castling rights
//	bits 4-7   en-passant file + 1 (0 = none)
//	bits 8-15  halfmove clock
//	bit  16    color to move (1 = Black)
type Flags uint32

const (
	flagEPShift   = 4
	flagHalfShift = 8
	flagBlack     = 1 << 16
)

// Castling returns the castling rights.
func (f Flags) Castling() CastlingRights {
	return CastlingRights(f & 0xF)
}

// EPFile returns the en-passant file, or -1.
func (f Flags) EPFile() int {
	return int(f>>flagEPShift&0xF) - 1
}

// HalfMoves returns the halfmove clock.
func (f Flags) HalfMoves() int {
	return int(f >> flagHalfShift & 0xFF)
}

// Color returns the absolute color to move.
func (f Flags) Color() Color {
	return Color(f >> 16 & 1)
}

func (f Flags) withCastling(cr CastlingRights) Flags {
	return f&^0xF | Flags(cr)
}

func (f Flags) withEPFile(file int) Flags {
	return f&^(0xF<<flagEPShift) | Flags(file+1)<<flagEPShift
}

func (f Flags) withHalfMoves(n int) Flags {
	if n > 0xFF {
		n = 0xFF
	}
	return f&^(0xFF<<flagHalfShift) | Flags(n)<<flagHalfShift
}

// StateInfo is the record pushed by MakeMove and popped by UnmakeMove.
type StateInfo struct {
	Move     Move // NoMove for a null move
	Captured Piece
	Flags    Flags
	Key      uint64
}

// Position is a chess position seen from the side to move. See the
// package comment for the coordinate convention.
type Position struct {
	pieces [6]Bitboard // by piece type, both sides
	sides  [2]Bitboard // [Us], [Them]
	board  [64]Piece

	flags    Flags
	key      uint64
	fullMove int

	history []StateInfo

	// Computed on first use after each move.
	cached   bool
	checkers Bitboard
	pinned   Bitboard
}

// ErrFEN wraps every FEN parsing failure.
var ErrFEN = errors.New("invalid FEN")

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	p, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return p
}

// Clone returns an independent copy, history included.
func (p *Position) Clone() *Position {
	c := *p
	c.history = make([]StateInfo, len(p.history), len(p.history)+MaxPly)
	copy(c.history, p.history)
	return &c
}

// CopyFrom overwrites p with src, reusing p's history storage.
func (p *Position) CopyFrom(src *Position) {
	h := append(p.history[:0], src.history...)
	*p = *src
	p.history = h
}

// MaxPly bounds the search depth in plies, and so the extra history a
// clone reserves.
const MaxPly = 128

// Key returns the Zobrist key.
func (p *Position) Key() uint64 { return p.key }

// Flags returns the packed irreversible state.
func (p *Position) Flags() Flags { return p.flags }

// SideToMove returns the absolute color to move.
func (p *Position) SideToMove() Color { return p.flags.Color() }

// HalfMoveClock returns the plies since the last capture or pawn move.
func (p *Position) HalfMoveClock() int { return p.flags.HalfMoves() }

// FullMoveNumber returns the FEN fullmove counter.
func (p *Position) FullMoveNumber() int { return p.fullMove }

// Ply returns the number of moves made since the position was parsed.
func (p *Position) Ply() int { return len(p.history) }

// CastlingRights returns the relative castling rights.
func (p *Position) CastlingRights() CastlingRights { return p.flags.Castling() }

// EnPassant returns the relative en-passant target square, or NoSquare.
func (p *Position) EnPassant() Square {
	f := p.flags.EPFile()
	if f < 0 {
		return NoSquare
	}
	return NewSquare(f, 5)
}

// LastMove returns the move that led to this position, or NoMove.
func (p *Position) LastMove() Move {
	if len(p.history) == 0 {
		return NoMove
	}
	return p.history[len(p.history)-1].Move
}

// Pieces returns the pieces of side s and type pt.
func (p *Position) Pieces(s Side, pt PieceType) Bitboard {
	return p.pieces[pt] & p.sides[s]
}

// Occupancy returns all pieces of side s.
func (p *Position) Occupancy(s Side) Bitboard { return p.sides[s] }

// Occupied returns every occupied square.
func (p *Position) Occupied() Bitboard { return p.sides[Us] | p.sides[Them] }

// KingSquare returns the king square of side s.
func (p *Position) KingSquare(s Side) Square {
	return (p.pieces[King] & p.sides[s]).LSB()
}

// PieceOn returns the piece on a relative square.
func (p *Position) PieceOn(sq Square) Piece { return p.board[sq] }

// AbsoluteSquare converts a relative square to board coordinates.
func (p *Position) AbsoluteSquare(rel Square) Square {
	if p.SideToMove() == Black {
		return rel.Flip()
	}
	return rel
}

// RelativeSquare converts a board square to the mover's coordinates. The
// mapping is its own inverse, so this mirrors AbsoluteSquare.
func (p *Position) RelativeSquare(abs Square) Square {
	return p.AbsoluteSquare(abs)
}

// PieceAt returns the color and type of the piece on an absolute square.
func (p *Position) PieceAt(abs Square) (Color, PieceType, bool) {
	pc := p.board[p.RelativeSquare(abs)]
	if pc == NoPiece {
		return White, NoPieceType, false
	}
	c := p.SideToMove()
	if pc.Side() == Them {
		c = c.Other()
	}
	return c, pc.Type(), true
}

// HasNonPawnMaterial reports whether side s owns a knight, bishop, rook or queen.
func (p *Position) HasNonPawnMaterial(s Side) bool {
	return (p.pieces[Knight]|p.pieces[Bishop]|p.pieces[Rook]|p.pieces[Queen])&p.sides[s] != 0
}

func (p *Position) put(pc Piece, sq Square) {
	b := SquareBB(sq)
	p.pieces[pc.Type()] |= b
	p.sides[pc.Side()] |= b
	p.board[sq] = pc
}

func (p *Position) remove(sq Square) {
	pc := p.board[sq]
	b := SquareBB(sq)
	p.pieces[pc.Type()] &^= b
	p.sides[pc.Side()] &^= b
	p.board[sq] = NoPiece
}

func (p *Position) relocate(from, to Square) {
	pc := p.board[from]
	b := SquareBB(from) | SquareBB(to)
	p.pieces[pc.Type()] ^= b
	p.sides[pc.Side()] ^= b
	p.board[from] = NoPiece
	p.board[to] = pc
}

// flipBoard mirrors the pieces and swaps their owners.
func (p *Position) flipBoard() {
	for i := range p.pieces {
		p.pieces[i] = p.pieces[i].Flip()
	}
	p.sides[Us], p.sides[Them] = p.sides[Them].Flip(), p.sides[Us].Flip()
	for lo, hi := 0, 56; lo < hi; lo, hi = lo+8, hi-8 {
		for f := 0; f < 8; f++ {
			p.board[lo+f], p.board[hi+f] = p.board[hi+f].Flip(), p.board[lo+f].Flip()
		}
	}
	p.cached = false
}

// Flip hands the move to the other side without making a move: the board
// is mirrored, owners are swapped, castling rights and the color to move
// follow, and the key is byte-reversed. The en-passant file is kept so that
// Flip is an involution.
func (p *Position) Flip() {
	p.flipBoard()
	p.flags = p.flags.withCastling(p.flags.Castling().Flip()) ^ flagBlack
	p.key = flipKey(p.key) ^ zobristSide
}

// Checkers returns the enemy pieces giving check.
func (p *Position) Checkers() Bitboard {
	p.updateCache()
	return p.checkers
}

// Pinned returns the own pieces pinned to the king.
func (p *Position) Pinned() Bitboard {
	p.updateCache()
	return p.pinned
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	return p.Checkers() != 0
}

func (p *Position) updateCache() {
	if p.cached {
		return
	}
	them := p.sides[Them]
	p.checkers, p.pinned = CheckersAndPins(
		p.KingSquare(Us),
		p.Occupied(),
		p.sides[Us],
		p.pieces[Pawn]&them,
		p.pieces[Knight]&them,
		(p.pieces[Bishop]|p.pieces[Queen])&them,
		(p.pieces[Rook]|p.pieces[Queen])&them,
	)
	p.cached = true
}

// attackedByThem reports whether the enemy attacks sq with the given occupancy.
func (p *Position) attackedByThem(sq Square, occupied Bitboard) bool {
	them := p.sides[Them]
	return pawnAttacks[Us][sq]&p.pieces[Pawn]&them != 0 ||
		knightAttacks[sq]&p.pieces[Knight]&them != 0 ||
		kingAttacks[sq]&p.pieces[King]&them != 0 ||
		BishopAttacks(sq, occupied)&(p.pieces[Bishop]|p.pieces[Queen])&them != 0 ||
		RookAttacks(sq, occupied)&(p.pieces[Rook]|p.pieces[Queen])&them != 0
}

// AttackersTo returns the pieces of both sides attacking sq.
func (p *Position) AttackersTo(sq Square, occupied Bitboard) Bitboard {
	return pawnAttacks[Us][sq]&p.pieces[Pawn]&p.sides[Them] |
		pawnAttacks[Them][sq]&p.pieces[Pawn]&p.sides[Us] |
		knightAttacks[sq]&p.pieces[Knight] |
		kingAttacks[sq]&p.pieces[King] |
		BishopAttacks(sq, occupied)&(p.pieces[Bishop]|p.pieces[Queen]) |
		RookAttacks(sq, occupied)&(p.pieces[Rook]|p.pieces[Queen])
}

// ComputeKey recomputes the Zobrist key from scratch.
func (p *Position) ComputeKey() uint64 {
	var k uint64
	for occ := p.Occupied(); occ != 0; {
		sq := occ.PopLSB()
		k ^= zobristPiece[p.board[sq]][sq]
	}
	k ^= zobristCastling[p.flags.Castling()]
	if f := p.flags.EPFile(); f >= 0 {
		k ^= zobristEP[f]
	}
	if p.SideToMove() == Black {
		k ^= zobristSide
	}
	return k
}

// IsRepetition reports whether the current position occurred before with
// the same side to move, scanning back no further than the halfmove clock
// or the last null move.
func (p *Position) IsRepetition() bool {
	n := len(p.history)
	limit := min(p.flags.HalfMoves(), n)
	for i := 2; i <= limit; i += 2 {
		if p.history[n-i+1].Move == NoMove || p.history[n-i].Move == NoMove {
			return false
		}
		if p.history[n-i].Key == p.key {
			return true
		}
	}
	return false
}

// IsInsufficientMaterial reports positions where neither side can mate:
// bare kings, or a single minor piece against a bare king.
func (p *Position) IsInsufficientMaterial() bool {
	if p.pieces[Pawn]|p.pieces[Rook]|p.pieces[Queen] != 0 {
		return false
	}
	return (p.pieces[Knight] | p.pieces[Bishop]).PopCount() <= 1
}

// Validate checks the structural invariants of the position.
func (p *Position) Validate() error {
	for s := Us; s <= Them; s++ {
		if n := (p.pieces[King] & p.sides[s]).PopCount(); n != 1 {
			return fmt.Errorf("side %d has %d kings", s, n)
		}
	}
	if p.sides[Us]&p.sides[Them] != 0 {
		return errors.New("own and enemy occupancy overlap")
	}
	var all Bitboard
	for pt := Pawn; pt <= King; pt++ {
		if all&p.pieces[pt] != 0 {
			return fmt.Errorf("%c bitboard overlaps another piece type", pt.Char())
		}
		all |= p.pieces[pt]
	}
	if all != p.Occupied() {
		return errors.New("piece bitboards do not match occupancy")
	}
	for sq := A1; sq <= H8; sq++ {
		pc := p.board[sq]
		if pc == NoPiece {
			if all.Has(sq) {
				return fmt.Errorf("square %s occupied but empty in array", sq)
			}
			continue
		}
		if !p.pieces[pc.Type()].Has(sq) || !p.sides[pc.Side()].Has(sq) {
			return fmt.Errorf("square %s array entry disagrees with bitboards", sq)
		}
	}
	if p.pieces[Pawn]&(Rank1|Rank8) != 0 {
		return errors.New("pawn on first or last rank")
	}
	if p.isEnemyKingAttacked() {
		return errors.New("side not to move is in check")
	}
	if k := p.ComputeKey(); k != p.key {
		return fmt.Errorf("key %016x, expected %016x", p.key, k)
	}
	return nil
}

// isEnemyKingAttacked reports whether the side to move could capture the enemy king.
func (p *Position) isEnemyKingAttacked() bool {
	ksq := p.KingSquare(Them)
	us := p.sides[Us]
	occ := p.Occupied()
	return pawnAttacks[Them][ksq]&p.pieces[Pawn]&us != 0 ||
		knightAttacks[ksq]&p.pieces[Knight]&us != 0 ||
		kingAttacks[ksq]&p.pieces[King]&us != 0 ||
		BishopAttacks(ksq, occ)&(p.pieces[Bishop]|p.pieces[Queen])&us != 0 ||
		RookAttacks(ksq, occ)&(p.pieces[Rook]|p.pieces[Queen])&us != 0
}
