package board

// moveBuilder fills a move buffer from two cursors: tactical moves grow
// from the start, quiet moves grow from TacticalBound. finish packs the
// quiet region down behind the tactical one.
type moveBuilder struct {
	buf      []Move
	tactical int
	quiet    int
}

func (b *moveBuilder) addTactical(m Move) {
	if b.tactical == TacticalBound {
		panic("board: tactical move region overflow")
	}
	b.buf[b.tactical] = m
	b.tactical++
}

func (b *moveBuilder) addQuiet(m Move) {
	b.buf[b.quiet] = m
	b.quiet++
}

func (b *moveBuilder) add(from, to Square, capture bool) {
	if capture {
		b.addTactical(NewMove(from, to, Capture))
	} else {
		b.addQuiet(NewMove(from, to, Quiet))
	}
}

func (b *moveBuilder) addPromotions(from, to Square, capture bool) {
	for pt := Queen; pt >= Knight; pt-- {
		b.addTactical(NewMove(from, to, promotionType(pt, capture)))
	}
}

func (b *moveBuilder) finish() ([]Move, int) {
	n := copy(b.buf[b.tactical:], b.buf[TacticalBound:b.quiet])
	return b.buf[:b.tactical+n], b.tactical
}

// GenerateMoves writes every legal move of p into buf, which must hold at
// least MoveBufferSize moves. It returns the moves and the length of the
// leading tactical run (captures, en passant and promotions).
func GenerateMoves(p *Position, buf []Move) ([]Move, int) {
	if len(buf) < MoveBufferSize {
		panic("board: move buffer too small")
	}
	b := moveBuilder{buf: buf, quiet: TacticalBound}

	us, them := p.sides[Us], p.sides[Them]
	occ := us | them
	ksq := p.KingSquare(Us)
	checkers, pinned := p.Checkers(), p.Pinned()

	// The king must not step onto a square attacked through its own
	// current square, hence the occupancy without it.
	withoutKing := occ &^ SquareBB(ksq)
	for targets := kingAttacks[ksq] &^ us; targets != 0; {
		to := targets.PopLSB()
		if !p.attackedByThem(to, withoutKing) {
			b.add(ksq, to, them.Has(to))
		}
	}
	if checkers.Several() {
		return b.finish()
	}

	target := ^us
	if checkers != 0 {
		target = checkers | betweenBB[ksq][checkers.LSB()]
	} else {
		genCastling(p, &b, occ)
	}

	for pcs := p.pieces[Knight] & us &^ pinned; pcs != 0; {
		from := pcs.PopLSB()
		for to := knightAttacks[from] & target; to != 0; {
			sq := to.PopLSB()
			b.add(from, sq, them.Has(sq))
		}
	}

	for pcs := (p.pieces[Bishop] | p.pieces[Queen]) & us; pcs != 0; {
		from := pcs.PopLSB()
		to := BishopAttacks(from, occ) & target
		if pinned.Has(from) {
			to &= lineBB[ksq][from]
		}
		for to != 0 {
			sq := to.PopLSB()
			b.add(from, sq, them.Has(sq))
		}
	}

	for pcs := (p.pieces[Rook] | p.pieces[Queen]) & us; pcs != 0; {
		from := pcs.PopLSB()
		to := RookAttacks(from, occ) & target
		if pinned.Has(from) {
			to &= lineBB[ksq][from]
		}
		for to != 0 {
			sq := to.PopLSB()
			b.add(from, sq, them.Has(sq))
		}
	}

	genPawnMoves(p, &b, target, ksq, pinned)
	return b.finish()
}

func genPawnMoves(p *Position, b *moveBuilder, target Bitboard, ksq Square, pinned Bitboard) {
	us, them := p.sides[Us], p.sides[Them]
	occ := us | them
	pawns := p.pieces[Pawn] & us

	onPinLine := func(from, to Square) bool {
		return !pinned.Has(from) || lineBB[ksq][from].Has(to)
	}

	single := pawns.North() &^ occ
	double := (single & Rank3).North() &^ occ

	for to := single & target; to != 0; {
		sq := to.PopLSB()
		from := sq - 8
		if !onPinLine(from, sq) {
			continue
		}
		if sq.Rank() == 7 {
			b.addPromotions(from, sq, false)
		} else {
			b.addQuiet(NewMove(from, sq, Quiet))
		}
	}
	for to := double & target; to != 0; {
		sq := to.PopLSB()
		from := sq - 16
		if onPinLine(from, sq) {
			b.addQuiet(NewMove(from, sq, DoublePush))
		}
	}

	for _, c := range [2]struct {
		to    Bitboard
		delta Square
	}{
		{pawns.NorthWest() & them & target, 7},
		{pawns.NorthEast() & them & target, 9},
	} {
		for to := c.to; to != 0; {
			sq := to.PopLSB()
			from := sq - c.delta
			if !onPinLine(from, sq) {
				continue
			}
			if sq.Rank() == 7 {
				b.addPromotions(from, sq, true)
			} else {
				b.addTactical(NewMove(from, sq, Capture))
			}
		}
	}

	ep := p.EnPassant()
	if ep == NoSquare {
		return
	}
	captured := ep - 8
	if !target.Has(ep) && !target.Has(captured) {
		return
	}
	// Replay the capture on the occupancy: this covers ordinary pins as
	// well as the rank pin where both pawns leave the king's rank at once.
	diag := (p.pieces[Bishop] | p.pieces[Queen]) & them
	orth := (p.pieces[Rook] | p.pieces[Queen]) & them
	for from := pawnAttacks[Them][ep] & pawns; from != 0; {
		sq := from.PopLSB()
		after := occ&^(SquareBB(sq)|SquareBB(captured)) | SquareBB(ep)
		if BishopAttacks(ksq, after)&diag != 0 || RookAttacks(ksq, after)&orth != 0 {
			continue
		}
		b.addTactical(NewMove(sq, ep, EnPassant))
	}
}

func genCastling(p *Position, b *moveBuilder, occ Bitboard) {
	cr := p.CastlingRights()
	if cr&OurKingSide != 0 && occ&(SquareBB(F1)|SquareBB(G1)) == 0 &&
		!p.attackedByThem(F1, occ) && !p.attackedByThem(G1, occ) {
		b.addQuiet(NewMove(E1, G1, CastleKing))
	}
	if cr&OurQueenSide != 0 && occ&(SquareBB(B1)|SquareBB(C1)|SquareBB(D1)) == 0 &&
		!p.attackedByThem(D1, occ) && !p.attackedByThem(C1, occ) {
		b.addQuiet(NewMove(E1, C1, CastleQueen))
	}
}

// HasLegalMove reports whether the side to move has any legal move.
func (p *Position) HasLegalMove() bool {
	var buf [MoveBufferSize]Move
	moves, _ := GenerateMoves(p, buf[:])
	return len(moves) > 0
}

// IsCheckmate reports whether the side to move is mated.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMove()
}

// IsStalemate reports whether the side to move has no move and is not in check.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMove()
}
