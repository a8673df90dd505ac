package engine

import (
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Pool owns the search threads. threads[0] is the main thread; every
// other thread is a helper goroutine blocked on its semaphore until a
// node hands it a sibling move.
type Pool struct {
	threads []*Thread
	idle    chan *Thread
	g       errgroup.Group
	log     zerolog.Logger
}

func newPool(eng *Engine, n int, log zerolog.Logger) *Pool {
	p := &Pool{
		threads: make([]*Thread, n),
		idle:    make(chan *Thread, n),
		log:     log,
	}
	for i := range p.threads {
		p.threads[i] = newThread(i, eng)
	}
	for _, h := range p.helpers() {
		h.sem = make(chan task, 1)
		p.idle <- h
		p.g.Go(func() error {
			h.loop()
			return nil
		})
	}
	p.log.Debug().Int("threads", n).Msg("thread pool started")
	return p
}

// Main returns the thread that runs iterative deepening.
func (p *Pool) Main() *Thread {
	return p.threads[0]
}

func (p *Pool) helpers() []*Thread {
	return p.threads[1:]
}

// Size returns the number of threads, the main one included.
func (p *Pool) Size() int {
	return len(p.threads)
}

// acquire takes an idle helper without blocking, or returns nil.
func (p *Pool) acquire() *Thread {
	select {
	case h := <-p.idle:
		return h
	default:
		return nil
	}
}

func (p *Pool) release(h *Thread) {
	p.idle <- h
}

// Nodes sums the node counters of every thread.
func (p *Pool) Nodes() uint64 {
	var n uint64
	for _, t := range p.threads {
		n += t.Nodes()
	}
	return n
}

// SelDepth returns the deepest ply any thread reached.
func (p *Pool) SelDepth() int {
	var d int32
	for _, t := range p.threads {
		d = max(d, t.seldepth.Load())
	}
	return int(d)
}

func (p *Pool) reset() {
	for _, t := range p.threads {
		t.reset()
	}
}

func (p *Pool) clearHistory() {
	for _, t := range p.threads {
		t.moveOrderer.clear()
	}
}

// Close stops the helpers and waits for their goroutines. The pool must
// be idle.
func (p *Pool) Close() error {
	for _, h := range p.helpers() {
		close(h.sem)
	}
	err := p.g.Wait()
	p.log.Debug().Msg("thread pool stopped")
	return err
}
