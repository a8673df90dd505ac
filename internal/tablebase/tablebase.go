// Package tablebase answers endgame positions from an external oracle.
// The search only consults it at the root. Plain WDL lookups serve
// diagnostics such as the eval command.
package tablebase

import (
	"context"
	"fmt"

	"github.com/UoLeevi/uochess/internal/board"
)

// WDL represents Win/Draw/Loss result.
type WDL int

const (
	WDLLoss        WDL = -2
	WDLBlessedLoss WDL = -1 // loss that the 50-move rule may save
	WDLDraw        WDL = 0
	WDLCursedWin   WDL = 1 // win that the 50-move rule may spoil
	WDLWin         WDL = 2
)

func (w WDL) String() string {
	switch w {
	case WDLLoss:
		return "loss"
	case WDLBlessedLoss:
		return "blessed loss"
	case WDLDraw:
		return "draw"
	case WDLCursedWin:
		return "cursed win"
	case WDLWin:
		return "win"
	}
	return fmt.Sprintf("WDL(%d)", int(w))
}

// ProbeResult contains the result of a tablebase probe.
type ProbeResult struct {
	Found bool
	WDL   WDL
	DTZ   int // distance to the next zeroing move
}

// RootResult is the tablebase's choice of move at the root. Move is
// relative to the side to move of the probed position.
type RootResult struct {
	Found bool
	Move  board.Move
	WDL   WDL
	DTZ   int
}

// Prober is the interface for tablebase probing.
type Prober interface {
	// Probe looks up the win/draw/loss value of pos.
	Probe(ctx context.Context, pos *board.Position) ProbeResult

	// ProbeRoot picks the best move of pos.
	ProbeRoot(ctx context.Context, pos *board.Position) RootResult

	// MaxPieces returns the maximum number of pieces supported.
	MaxPieces() int

	// Available reports whether probes can succeed at all.
	Available() bool
}

// NoopProber is a prober that always returns "not found".
type NoopProber struct{}

func (NoopProber) Probe(context.Context, *board.Position) ProbeResult {
	return ProbeResult{}
}

func (NoopProber) ProbeRoot(context.Context, *board.Position) RootResult {
	return RootResult{}
}

func (NoopProber) MaxPieces() int {
	return 0
}

func (NoopProber) Available() bool {
	return false
}

// CountPieces returns the total number of pieces on the board.
func CountPieces(pos *board.Position) int {
	return pos.Occupied().PopCount()
}

// Covers reports whether p can answer pos.
func Covers(p Prober, pos *board.Position) bool {
	return p != nil && p.Available() && CountPieces(pos) <= p.MaxPieces()
}
