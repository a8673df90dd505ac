package engine

import (
	"math/bits"
	"sync/atomic"

	"github.com/UoLeevi/uochess/internal/board"
)

// Bound tells how a stored score relates to the true value.
type Bound uint8

const (
	BoundNone  Bound = 0
	BoundUpper Bound = 1 // failed low: value <= score
	BoundLower Bound = 2 // failed high: value >= score
	BoundExact Bound = BoundUpper | BoundLower
)

// probeLimit is how many consecutive slots a key may occupy.
const probeLimit = 4

// Payload layout:
//
//	bits  0-15  move
//	bits 16-31  score (int16)
//	bits 32-39  depth
//	bits 40-41  bound
//	bits 42-49  generation
const (
	scoreShift = 16
	depthShift = 32
	boundShift = 40
	genShift   = 42
)

// ttSlot is written without locks: the payload first, then the key. A
// reader that races a writer can pair a key with another position's
// payload, so every hit is re-validated and window-clamped by the caller.
type ttSlot struct {
	key  atomic.Uint32
	data atomic.Uint64
}

// Entry is a decoded table hit.
type Entry struct {
	Move  board.Move
	Score int
	Depth int
	Bound Bound
	gen   uint8
}

// Cutoff returns the stored score when it settles a node searched to
// depth with the window (alpha, beta).
func (e Entry) Cutoff(alpha, beta, depth int) (int, bool) {
	if e.Depth < depth {
		return 0, false
	}
	switch {
	case e.Bound == BoundExact:
		return e.Score, true
	case e.Bound == BoundLower && e.Score >= beta:
		return e.Score, true
	case e.Bound == BoundUpper && e.Score <= alpha:
		return e.Score, true
	}
	return 0, false
}

// TranspositionTable is a lock-free hash table shared by all search threads.
type TranspositionTable struct {
	slots []ttSlot
	mask  uint64
	gen   atomic.Uint32
}

// NewTranspositionTable creates a table of at most sizeMB megabytes.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	tt := &TranspositionTable{}
	tt.Resize(sizeMB)
	return tt
}

// Resize reallocates the table, dropping every entry. It must not run
// concurrently with a search.
func (tt *TranspositionTable) Resize(sizeMB int) {
	const slotSize = 16
	n := uint64(max(sizeMB, 1)) << 20 / slotSize
	n = 1 << (63 - bits.LeadingZeros64(n))
	tt.slots = make([]ttSlot, n)
	tt.mask = n - 1
	tt.gen.Store(0)
}

// Len returns the number of slots.
func (tt *TranspositionTable) Len() int {
	return len(tt.slots)
}

// Clear empties the table. Like Resize, it is not safe during a search.
func (tt *TranspositionTable) Clear() {
	clear(tt.slots)
	tt.gen.Store(0)
}

// NewSearch advances the generation so entries from earlier searches
// become preferred victims.
func (tt *TranspositionTable) NewSearch() {
	tt.gen.Add(1)
}

func (tt *TranspositionTable) generation() uint8 {
	return uint8(tt.gen.Load())
}

func pack(m board.Move, score, depth int, bound Bound, gen uint8) uint64 {
	return uint64(m) |
		uint64(uint16(int16(score)))<<scoreShift |
		uint64(uint8(depth))<<depthShift |
		uint64(bound)<<boundShift |
		uint64(gen)<<genShift
}

func unpack(d uint64) Entry {
	return Entry{
		Move:  board.Move(d),
		Score: int(int16(uint16(d >> scoreShift))),
		Depth: int(uint8(d >> depthShift)),
		Bound: Bound(d>>boundShift) & 3,
		gen:   uint8(d >> genShift),
	}
}

func verifier(key uint64) uint32 {
	return uint32(key >> 32)
}

// Probe looks up key for a node at ply. Mate scores come back relative
// to the root. On a miss the stale run of slots in front of the probe
// point is cleared so later stores find room quickly.
func (tt *TranspositionTable) Probe(key uint64, ply int) (Entry, bool) {
	v := verifier(key)
	idx := key & tt.mask
	for i := uint64(0); i < probeLimit; i++ {
		s := &tt.slots[(idx+i)&tt.mask]
		if s.key.Load() != v {
			continue
		}
		d := s.data.Load()
		if s.key.Load() != v || Bound(d>>boundShift)&3 == BoundNone {
			continue
		}
		e := unpack(d)
		e.Score = scoreFromTT(e.Score, ply)
		return e, true
	}
	tt.evict(idx)
	return Entry{}, false
}

// evict walks backward from idx and clears occupied slots from earlier
// generations until it meets an empty or current slot.
func (tt *TranspositionTable) evict(idx uint64) {
	gen := tt.generation()
	for i := uint64(1); i <= probeLimit; i++ {
		s := &tt.slots[(idx-i)&tt.mask]
		d := s.data.Load()
		if Bound(d>>boundShift)&3 == BoundNone || uint8(d>>genShift) == gen {
			return
		}
		s.key.Store(0)
		s.data.Store(0)
	}
}

// Store records a search result for key. The slot is chosen among the
// probeLimit candidates: the key's own slot, else an empty one, else the
// shallowest entry that is stale or strictly shallower than depth.
func (tt *TranspositionTable) Store(key uint64, ply int, m board.Move, score, depth int, bound Bound) {
	v := verifier(key)
	gen := tt.generation()
	idx := key & tt.mask

	var victim *ttSlot
	victimDepth := depth
	for i := uint64(0); i < probeLimit; i++ {
		s := &tt.slots[(idx+i)&tt.mask]
		d := s.data.Load()
		if s.key.Load() == v {
			old := unpack(d)
			if old.gen == gen && old.Depth > depth && bound != BoundExact {
				return
			}
			if m == board.NoMove {
				m = old.Move
			}
			victim = s
			break
		}
		if Bound(d>>boundShift)&3 == BoundNone {
			victim = s
			break
		}
		old := unpack(d)
		if old.gen != gen && victimDepth >= 0 {
			victim, victimDepth = s, -1
		} else if old.Depth < victimDepth {
			victim, victimDepth = s, old.Depth
		}
	}
	if victim == nil {
		return
	}
	victim.data.Store(pack(m, scoreToTT(score, ply), max(depth, 0), bound, gen))
	victim.key.Store(v)
}

// Hashfull estimates table occupancy by the current generation in permille.
func (tt *TranspositionTable) Hashfull() int {
	n := min(1000, len(tt.slots))
	gen := tt.generation()
	used := 0
	for i := 0; i < n; i++ {
		d := tt.slots[i].data.Load()
		if Bound(d>>boundShift)&3 != BoundNone && uint8(d>>genShift) == gen {
			used++
		}
	}
	return used * 1000 / n
}
