package engine

import (
	"runtime"
	"sync/atomic"

	"github.com/UoLeevi/uochess/internal/board"
)

// MaxHelpers bounds the helpers working for one node at a time.
const MaxHelpers = 4

// helperResult is what a helper reports back for the sibling it searched.
type helperResult struct {
	thread     *Thread
	move       board.Move
	score      int
	incomplete bool
	pvLen      int
	pv         [MaxPly + 1]board.Move
}

func (r *helperResult) line() []board.Move {
	return r.pv[:r.pvLen]
}

// SearchQueue collects finished helper results for one search node. The
// owner adds a helper before handing it work; the helper pushes exactly
// one result. Head, tail and pending are guarded by a spinlock since the
// critical sections are a handful of stores.
type SearchQueue struct {
	lock    atomic.Bool
	head    int
	tail    int
	pending int
	threads [MaxHelpers]*Thread
	results [MaxHelpers]helperResult
}

func (q *SearchQueue) acquire() {
	for !q.lock.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (q *SearchQueue) release() {
	q.lock.Store(false)
}

func (q *SearchQueue) reset() {
	q.acquire()
	q.head, q.tail, q.pending = 0, 0, 0
	clear(q.threads[:])
	q.release()
}

// add registers h as working for this node.
func (q *SearchQueue) add(h *Thread) {
	q.acquire()
	for i := range q.threads {
		if q.threads[i] == nil {
			q.threads[i] = h
			break
		}
	}
	q.pending++
	q.release()
}

// Push stores a finished result and unregisters its thread, so a later
// cancel cannot reach the thread once it has been handed other work.
func (q *SearchQueue) Push(r *helperResult) {
	q.acquire()
	q.results[q.tail%MaxHelpers] = *r
	q.tail++
	for i := range q.threads {
		if q.threads[i] == r.thread {
			q.threads[i] = nil
			break
		}
	}
	q.release()
}

// Pop takes the oldest finished result.
func (q *SearchQueue) Pop(r *helperResult) bool {
	q.acquire()
	defer q.release()
	if q.head == q.tail {
		return false
	}
	*r = q.results[q.head%MaxHelpers]
	q.head++
	q.pending--
	return true
}

// Pending returns how many helpers have not yet been popped.
func (q *SearchQueue) Pending() int {
	q.acquire()
	defer q.release()
	return q.pending
}

// cancel raises the cutoff token of every helper still working here.
func (q *SearchQueue) cancel() {
	q.acquire()
	for _, h := range q.threads {
		if h != nil {
			h.cutoff.Store(true)
		}
	}
	q.release()
}
