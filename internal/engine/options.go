package engine

import "time"

// Options configures an Engine. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	Threads      int           // search threads, the main one included
	HashMB       int           // transposition table size
	MoveOverhead time.Duration // reserved per move for communication lag
	OwnBook      bool          // play from the opening book when it has the position
	MultiPV      int           // only 1 is supported

	// DisablePruning turns off every heuristic that can change the
	// search value: null move, late move reductions, delta pruning and
	// TT cutoffs. Used to compare against plain alpha-beta.
	DisablePruning bool
}

// DefaultOptions returns the settings advertised over UCI.
func DefaultOptions() Options {
	return Options{
		Threads:      1,
		HashMB:       16,
		MoveOverhead: 10 * time.Millisecond,
		MultiPV:      1,
	}
}

// Option bounds, shared with the UCI front-end.
const (
	MinThreads = 1
	MaxThreads = 256
	MinHashMB  = 1
	MaxHashMB  = 1 << 16
)

func (o Options) normalized() Options {
	o.Threads = min(max(o.Threads, MinThreads), MaxThreads)
	o.HashMB = min(max(o.HashMB, MinHashMB), MaxHashMB)
	o.MoveOverhead = max(o.MoveOverhead, 0)
	o.MultiPV = 1
	return o
}
