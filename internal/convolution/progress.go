package convolution

import "sync"

// ProgressFunc receives the completed fraction of a run, in [0, 1].
// Values never decrease and the last call is always exactly 1.0.
type ProgressFunc func(fraction float64)

// progressTracker turns row completions, possibly from several goroutines, into an
// ordered sequence of fractions. The sink is never called concurrently.
type progressTracker struct {
	mu    sync.Mutex
	total int
	done  int
	sink  ProgressFunc
}

func newProgressTracker(total int, sink ProgressFunc) *progressTracker {
	return &progressTracker{total: total, sink: sink}
}

func (p *progressTracker) start() {
	p.report(0)
}

func (p *progressTracker) rowDone() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if p.sink != nil {
		p.sink(float64(p.done) / float64(p.total))
	}
}

func (p *progressTracker) finish() {
	p.report(1.0)
}

func (p *progressTracker) report(fraction float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sink != nil {
		p.sink(fraction)
	}
}
