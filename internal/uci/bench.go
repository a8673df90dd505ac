package uci

import (
	"fmt"
	"strconv"
	"time"

	"github.com/UoLeevi/uochess/internal/board"
	"github.com/UoLeevi/uochess/internal/engine"
)

const defaultBenchDepth = 6

// benchPositions is a small mix of openings, middlegames and endgames.
var benchPositions = []string{
	board.StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3",
	"r2q1rk1/pp2bppp/2n1pn2/3p4/2PP4/2N1PN2/PP2BPPP/R2QK2R w KQ - 0 9",
	"6k1/5ppp/8/8/8/8/5PPP/3R2K1 w - - 0 1",
	"8/8/4k3/8/2p5/8/B2K4/8 w - - 0 1",
	"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
}

// handleBench searches every bench position to a fixed depth and prints
// the node total. The current position and history tables are left
// cleared afterwards.
func (u *UCI) handleBench(args []string) error {
	depth := defaultBenchDepth
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("bench: bad depth %q", args[0])
		}
		depth = n
	}
	u.handleStop()

	onInfo := u.engine.OnInfo
	u.engine.OnInfo = nil
	defer func() {
		u.engine.OnInfo = onInfo
		u.engine.SetPosition(u.position)
		u.engine.NewGame()
	}()

	var total uint64
	start := time.Now()
	for i, fen := range benchPositions {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			return fmt.Errorf("bench: %w", err)
		}
		u.engine.NewGame()
		u.engine.SetPosition(pos)
		res, err := u.engine.Search(engine.Limits{Depth: depth})
		if err != nil {
			return fmt.Errorf("bench: %w", err)
		}
		total += res.Nodes
		u.printf("Position %d/%d: %s nodes %d bestmove %s\n",
			i+1, len(benchPositions), fen, res.Nodes, res.BestMoveUCI())
	}
	elapsed := time.Since(start)

	u.printf("\nTotal time (ms) : %d\nNodes searched  : %d\n", elapsed.Milliseconds(), total)
	if ms := elapsed.Milliseconds(); ms > 0 {
		u.printf("Nodes/second    : %d\n", total*1000/uint64(ms))
	}
	u.log.Info().Int("depth", depth).Uint64("nodes", total).Dur("elapsed", elapsed).Msg("bench finished")
	return nil
}
