package board

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Perft counts the leaf nodes of the legal move tree to the given depth.
func Perft(p *Position, depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	bufs := make([][MoveBufferSize]Move, depth+1)
	return perft(p, depth, bufs)
}

func perft(p *Position, depth int, bufs [][MoveBufferSize]Move) uint64 {
	moves, _ := GenerateMoves(p, bufs[depth][:])
	if depth == 1 {
		return uint64(len(moves))
	}
	var nodes uint64
	for _, m := range moves {
		p.MakeMove(m)
		nodes += perft(p, depth-1, bufs)
		p.UnmakeMove()
	}
	return nodes
}

// DivideEntry is the node count below one root move.
type DivideEntry struct {
	Move  string // UCI, absolute coordinates
	Nodes uint64
}

// PerftDivide returns per-root-move node counts sorted by move text.
func PerftDivide(p *Position, depth int) []DivideEntry {
	var buf [MoveBufferSize]Move
	moves, _ := GenerateMoves(p, buf[:])
	stm := p.SideToMove()

	out := make([]DivideEntry, 0, len(moves))
	for _, m := range moves {
		p.MakeMove(m)
		out = append(out, DivideEntry{Move: m.UCI(stm), Nodes: Perft(p, depth-1)})
		p.UnmakeMove()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Move < out[j].Move })
	return out
}

// PerftParallel splits the root moves across up to workers goroutines,
// each on its own copy of p. It stops early when ctx is cancelled.
func PerftParallel(ctx context.Context, p *Position, depth, workers int) (uint64, error) {
	if depth <= 1 {
		return Perft(p, depth), nil
	}
	var buf [MoveBufferSize]Move
	moves, _ := GenerateMoves(p, buf[:])
	counts := make([]uint64, len(moves))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, m := range moves {
		root := p.Clone()
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			root.MakeMove(m)
			counts[i] = Perft(root, depth-1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total uint64
	for _, n := range counts {
		total += n
	}
	return total, nil
}
