package sim

import (
	"runtime"
	"sync"
)

// workChunk represents a range of items for a worker to process.
type workChunk struct {
	start, end int
	fn         func(worker, start, end int)
}

// workerPool is a persistent set of goroutines implementing
// systems.ParallelFor. Work below threshold runs inline on the caller.
type workerPool struct {
	numWorkers int
	threshold  int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newWorkerPool(workers, threshold int) *workerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if threshold < 1 {
		threshold = 1
	}
	return &workerPool{
		numWorkers: workers,
		threshold:  threshold,
	}
}

// start launches the worker goroutines.
func (p *workerPool) start() {
	if p.running || p.numWorkers < 2 {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// stop signals all workers to exit and waits for them.
func (p *workerPool) stop() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *workerPool) worker(workerID int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			chunk.fn(workerID, chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// For splits [0, n) into one contiguous chunk per worker and waits for all
// of them. A worker id is held by one goroutine, so per-worker scratch
// indexed by it is never shared.
func (p *workerPool) For(n int, fn func(worker, start, end int)) {
	if n <= 0 {
		return
	}
	if !p.running || n < p.threshold {
		fn(0, 0, n)
		return
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	chunks := 0
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		p.workChan <- workChunk{start: start, end: end, fn: fn}
		chunks++
	}
	for i := 0; i < chunks; i++ {
		<-p.doneChan
	}
}

// Workers returns the number of distinct worker ids For may pass.
func (p *workerPool) Workers() int {
	return p.numWorkers
}
