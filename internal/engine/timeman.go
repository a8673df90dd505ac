package engine

import (
	"sync/atomic"
	"time"

	"github.com/UoLeevi/uochess/internal/board"
)

// Limits contains UCI time control parameters.
type Limits struct {
	Time        [2]time.Duration // wtime, btime (remaining time for each color)
	Inc         [2]time.Duration // winc, binc (increment per move)
	MovesToGo   int              // moves until next time control (0 = sudden death)
	MoveTime    time.Duration    // fixed time per move (overrides other time controls)
	Depth       int              // maximum search depth
	Nodes       uint64           // maximum nodes to search
	Infinite    bool             // search until stopped
	Ponder      bool             // ponder mode
	SearchMoves []board.Move     // restrict the root to these moves
}

const (
	timerTick        = 5 * time.Millisecond
	defaultMovesToGo = 30
	minimumMoveTime  = time.Millisecond
)

// allocate returns the time budget for one move, or 0 when the clock
// does not limit the search.
func allocate(limits Limits, us board.Color, overhead time.Duration) time.Duration {
	switch {
	case limits.Infinite:
		return 0
	case limits.MoveTime > 0:
		return max(limits.MoveTime-overhead, minimumMoveTime)
	case limits.Time[us] <= 0:
		return 0
	}

	timeLeft := limits.Time[us]
	mtg := limits.MovesToGo
	if mtg <= 0 {
		mtg = defaultMovesToGo
	}
	budget := timeLeft/time.Duration(mtg) + limits.Inc[us]*3/4
	budget = min(budget, timeLeft/2, timeLeft-overhead)
	return max(budget-overhead, minimumMoveTime)
}

// timeManager turns the clock and node limits into the stop signal.
type timeManager struct {
	start     atomic.Int64 // unix nanoseconds
	budget    time.Duration
	nodes     uint64
	pondering atomic.Bool
}

func newTimeManager(limits Limits, us board.Color, overhead time.Duration) *timeManager {
	tm := &timeManager{
		budget: allocate(limits, us, overhead),
		nodes:  limits.Nodes,
	}
	tm.start.Store(time.Now().UnixNano())
	tm.pondering.Store(limits.Ponder)
	return tm
}

// Elapsed returns the time since the search started, or since the
// ponder hit.
func (tm *timeManager) Elapsed() time.Duration {
	return time.Duration(time.Now().UnixNano() - tm.start.Load())
}

// ponderHit switches a ponder search onto the real clock.
func (tm *timeManager) ponderHit() {
	tm.start.Store(time.Now().UnixNano())
	tm.pondering.Store(false)
}

func (tm *timeManager) clocked() bool {
	return tm.budget > 0 && !tm.pondering.Load()
}

// expired reports whether the whole budget is spent.
func (tm *timeManager) expired() bool {
	return tm.clocked() && tm.Elapsed() >= tm.budget
}

// softExpired reports whether starting another iteration is unlikely to
// finish in time.
func (tm *timeManager) softExpired() bool {
	return tm.clocked() && tm.Elapsed() >= tm.budget/2
}

// watch polls the clock and node count every tick and raises stop once a
// limit is reached and at least one depth is complete. It returns when
// done is closed.
func (tm *timeManager) watch(e *Engine, done <-chan struct{}) {
	ticker := time.NewTicker(timerTick)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if e.completed.Load() == 0 {
				continue
			}
			if tm.expired() || (tm.nodes > 0 && e.pool.Nodes() >= tm.nodes) {
				e.stop.Store(true)
				return
			}
		}
	}
}
