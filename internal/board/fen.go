package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses a FEN string. The halfmove and fullmove fields are
// optional. On error no Position is returned.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 || len(parts) > 6 {
		return nil, fmt.Errorf("%w: need 4 to 6 fields, got %d", ErrFEN, len(parts))
	}

	// Build the board from White's point of view, then flip if Black moves.
	p := &Position{fullMove: 1}
	for i := range p.board {
		p.board[i] = NoPiece
	}
	if err := parsePlacement(p, parts[0]); err != nil {
		return nil, err
	}

	var black bool
	switch parts[1] {
	case "w":
	case "b":
		black = true
	default:
		return nil, fmt.Errorf("%w: side to move %q", ErrFEN, parts[1])
	}

	var cr CastlingRights
	if parts[2] != "-" {
		for i := 0; i < len(parts[2]); i++ {
			switch parts[2][i] {
			case 'K':
				cr |= OurKingSide
			case 'Q':
				cr |= OurQueenSide
			case 'k':
				cr |= TheirKingSide
			case 'q':
				cr |= TheirQueenSide
			default:
				return nil, fmt.Errorf("%w: castling %q", ErrFEN, parts[2])
			}
		}
	}
	// Drop rights the placement cannot support.
	for sq, lost := range castleMask {
		pc := p.board[sq]
		want := MakePiece(Us, Rook)
		if Square(sq) == E1 || Square(sq) == E8 {
			want = MakePiece(Us, King)
		}
		if Square(sq).Rank() == 7 {
			want = want.Flip()
		}
		if lost != 0 && pc != want {
			cr &^= lost
		}
	}
	p.flags = p.flags.withCastling(cr)

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, fmt.Errorf("%w: en passant: %v", ErrFEN, err)
		}
		wantRank := 5
		if black {
			wantRank = 2
		}
		if sq.Rank() != wantRank {
			return nil, fmt.Errorf("%w: en passant square %s on wrong rank", ErrFEN, sq)
		}
		// The board is still from White's point of view here.
		pushed, origin, mover, taker := sq-8, sq+8, Them, Us
		if black {
			pushed, origin, mover, taker = sq+8, sq-8, Us, Them
		}
		if p.board[pushed] != MakePiece(mover, Pawn) || p.board[sq] != NoPiece || p.board[origin] != NoPiece {
			return nil, fmt.Errorf("%w: en passant square %s without a pushed pawn", ErrFEN, sq)
		}
		// Like MakeMove, keep the target only when a pawn can take it, so
		// the key matches the same position reached by moves.
		if pawnAttacks[mover][sq]&p.pieces[Pawn]&p.sides[taker] != 0 {
			p.flags = p.flags.withEPFile(sq.File())
		}
	}

	if len(parts) > 4 {
		n, err := strconv.Atoi(parts[4])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: halfmove clock %q", ErrFEN, parts[4])
		}
		p.flags = p.flags.withHalfMoves(n)
	}
	if len(parts) > 5 {
		n, err := strconv.Atoi(parts[5])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: fullmove number %q", ErrFEN, parts[5])
		}
		p.fullMove = n
	}

	p.key = p.ComputeKey()
	if black {
		p.Flip()
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFEN, err)
	}
	return p, nil
}

func parsePlacement(p *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: need 8 ranks, got %d", ErrFEN, len(ranks))
	}
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			pt := PieceTypeFromChar(c)
			if pt == NoPieceType {
				return fmt.Errorf("%w: piece %q", ErrFEN, c)
			}
			if file > 7 {
				return fmt.Errorf("%w: rank %d overflows", ErrFEN, rank+1)
			}
			side := Us
			if c >= 'a' {
				side = Them
			}
			p.put(MakePiece(side, pt), NewSquare(file, rank))
			file++
		}
		if file != 8 {
			return fmt.Errorf("%w: rank %d has %d files", ErrFEN, rank+1, file)
		}
	}
	return nil
}

// FEN renders the position in absolute coordinates.
func (p *Position) FEN() string {
	var sb strings.Builder
	stm := p.SideToMove()

	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			c, pt, ok := p.PieceAt(NewSquare(file, rank))
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			ch := pt.Char()
			if c == White {
				ch -= 'a' - 'A'
			}
			sb.WriteByte(ch)
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	sb.WriteString(stm.String())

	sb.WriteByte(' ')
	cr := p.CastlingRights()
	if stm == Black {
		cr = cr.Flip()
	}
	if cr == NoCastling {
		sb.WriteByte('-')
	}
	for i, ch := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(ch)
		}
	}

	sb.WriteByte(' ')
	sb.WriteString(p.AbsoluteSquare(p.EnPassant()).String())

	fmt.Fprintf(&sb, " %d %d", p.HalfMoveClock(), p.fullMove)
	return sb.String()
}

// String returns a diagram of the board with the FEN and key.
func (p *Position) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		sb.WriteString(" +---+---+---+---+---+---+---+---+\n ")
		for file := 0; file < 8; file++ {
			ch := byte(' ')
			if c, pt, ok := p.PieceAt(NewSquare(file, rank)); ok {
				ch = pt.Char()
				if c == White {
					ch -= 'a' - 'A'
				}
			}
			sb.WriteString("| ")
			sb.WriteByte(ch)
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "| %d\n", rank+1)
	}
	sb.WriteString(" +---+---+---+---+---+---+---+---+\n   a   b   c   d   e   f   g   h\n\n")
	fmt.Fprintf(&sb, "Fen: %s\nKey: %016X\n", p.FEN(), p.key)
	return sb.String()
}
