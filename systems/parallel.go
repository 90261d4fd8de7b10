// Package systems provides the simulation stages: pool, grid, integrator,
// collision resolver, emitters and their helpers.
package systems

// ParallelFor runs fn over [0, n) split into contiguous chunks. worker is in
// [0, Workers()) and identifies per-worker scratch. It returns once every
// chunk has finished. Chunks must not write to each other's items.
type ParallelFor interface {
	For(n int, fn func(worker, start, end int))
	Workers() int
}

// Serial runs every chunk inline on the caller as worker 0.
type Serial struct{}

// For implements ParallelFor.
func (Serial) For(n int, fn func(worker, start, end int)) {
	if n > 0 {
		fn(0, 0, n)
	}
}

// Workers implements ParallelFor.
func (Serial) Workers() int { return 1 }
