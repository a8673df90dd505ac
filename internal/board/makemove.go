package board

// MakeMove plays a legal move and hands the position to the opponent.
// The move must come from GenerateMoves for this position.
func (p *Position) MakeMove(m Move) {
	from, to, t := m.From(), m.To(), m.Type()
	pc := p.board[from]
	assert(pc != NoPiece && pc.Side() == Us, "move from a square without an own piece")

	st := StateInfo{Move: m, Captured: NoPiece, Flags: p.flags, Key: p.key}
	key := p.key
	if f := p.flags.EPFile(); f >= 0 {
		key ^= zobristEP[f]
	}

	switch t {
	case Quiet, DoublePush:
		p.relocate(from, to)
		key ^= zobristPiece[pc][from] ^ zobristPiece[pc][to]

	case CastleKing, CastleQueen:
		rookFrom, rookTo := H1, F1
		if t == CastleQueen {
			rookFrom, rookTo = A1, D1
		}
		rook := p.board[rookFrom]
		p.relocate(from, to)
		p.relocate(rookFrom, rookTo)
		key ^= zobristPiece[pc][from] ^ zobristPiece[pc][to] ^
			zobristPiece[rook][rookFrom] ^ zobristPiece[rook][rookTo]

	case EnPassant:
		capSq := to - 8
		st.Captured = p.board[capSq]
		p.remove(capSq)
		p.relocate(from, to)
		key ^= zobristPiece[st.Captured][capSq] ^ zobristPiece[pc][from] ^ zobristPiece[pc][to]

	case Capture:
		st.Captured = p.board[to]
		p.remove(to)
		p.relocate(from, to)
		key ^= zobristPiece[st.Captured][to] ^ zobristPiece[pc][from] ^ zobristPiece[pc][to]

	default:
		if m.IsCapture() {
			st.Captured = p.board[to]
			p.remove(to)
			key ^= zobristPiece[st.Captured][to]
		}
		promoted := MakePiece(Us, m.Promotion())
		p.remove(from)
		p.put(promoted, to)
		key ^= zobristPiece[pc][from] ^ zobristPiece[promoted][to]
	}
	assert(st.Captured == NoPiece || st.Captured.Side() == Them && st.Captured.Type() != King, "bad capture")

	cr := p.flags.Castling()
	if lost := castleMask[from] | castleMask[to]; cr&lost != 0 {
		key ^= zobristCastling[cr] ^ zobristCastling[cr&^lost]
		cr &^= lost
	}

	halfMoves := p.flags.HalfMoves() + 1
	if pc.Type() == Pawn || st.Captured != NoPiece {
		halfMoves = 0
	}
	if p.flags.Color() == Black {
		p.fullMove++
	}

	p.history = append(p.history, st)
	p.flags = p.flags.withCastling(cr).withEPFile(-1).withHalfMoves(halfMoves)
	p.key = key
	p.Flip()

	// The pushed pawn now stands on our fifth rank; record the target only
	// when one of our pawns could take it.
	if t == DoublePush {
		target := NewSquare(from.File(), 5)
		if pawnAttacks[Them][target]&p.pieces[Pawn]&p.sides[Us] != 0 {
			p.flags = p.flags.withEPFile(from.File())
			p.key ^= zobristEP[from.File()]
		}
	}
}

// UnmakeMove takes back the last move made with MakeMove.
func (p *Position) UnmakeMove() {
	n := len(p.history) - 1
	st := p.history[n]
	p.history = p.history[:n]

	p.flipBoard()
	m := st.Move
	from, to := m.From(), m.To()

	switch t := m.Type(); t {
	case Quiet, DoublePush:
		p.relocate(to, from)

	case CastleKing, CastleQueen:
		rookFrom, rookTo := H1, F1
		if t == CastleQueen {
			rookFrom, rookTo = A1, D1
		}
		p.relocate(to, from)
		p.relocate(rookTo, rookFrom)

	case EnPassant:
		p.relocate(to, from)
		p.put(st.Captured, to-8)

	case Capture:
		p.relocate(to, from)
		p.put(st.Captured, to)

	default:
		p.remove(to)
		p.put(MakePiece(Us, Pawn), from)
		if st.Captured != NoPiece {
			p.put(st.Captured, to)
		}
	}

	p.flags = st.Flags
	p.key = st.Key
	if p.flags.Color() == Black {
		p.fullMove--
	}
}

// MakeNullMove passes the turn. It must not be used while in check.
func (p *Position) MakeNullMove() {
	p.history = append(p.history, StateInfo{Move: NoMove, Captured: NoPiece, Flags: p.flags, Key: p.key})
	if f := p.flags.EPFile(); f >= 0 {
		p.key ^= zobristEP[f]
	}
	p.flags = p.flags.withEPFile(-1).withHalfMoves(p.flags.HalfMoves() + 1)
	if p.flags.Color() == Black {
		p.fullMove++
	}
	p.Flip()
}

// UnmakeNullMove takes back MakeNullMove.
func (p *Position) UnmakeNullMove() {
	n := len(p.history) - 1
	st := p.history[n]
	p.history = p.history[:n]
	p.flipBoard()
	p.flags = st.Flags
	p.key = st.Key
	if p.flags.Color() == Black {
		p.fullMove--
	}
}

// GivesCheck reports whether the legal move m checks the opponent.
func (p *Position) GivesCheck(m Move) bool {
	from, to := m.From(), m.To()
	ksq := p.KingSquare(Them)
	us := p.sides[Us]
	occ := p.Occupied()&^SquareBB(from) | SquareBB(to)

	diag := (p.pieces[Bishop] | p.pieces[Queen]) & us &^ SquareBB(from)
	orth := (p.pieces[Rook] | p.pieces[Queen]) & us &^ SquareBB(from)

	pt := p.board[from].Type()
	if m.IsPromotion() {
		pt = m.Promotion()
	}
	switch pt {
	case Pawn:
		if pawnAttacks[Us][to].Has(ksq) {
			return true
		}
	case Knight:
		if knightAttacks[to].Has(ksq) {
			return true
		}
	case Bishop:
		diag |= SquareBB(to)
	case Rook:
		orth |= SquareBB(to)
	case Queen:
		diag |= SquareBB(to)
		orth |= SquareBB(to)
	}

	switch m.Type() {
	case EnPassant:
		occ &^= SquareBB(to - 8)
	case CastleKing:
		occ = occ&^SquareBB(H1) | SquareBB(F1)
		orth = orth&^SquareBB(H1) | SquareBB(F1)
	case CastleQueen:
		occ = occ&^SquareBB(A1) | SquareBB(D1)
		orth = orth&^SquareBB(A1) | SquareBB(D1)
	}

	return BishopAttacks(ksq, occ)&diag != 0 || RookAttacks(ksq, occ)&orth != 0
}
