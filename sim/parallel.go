package sim

import (
	"runtime"
	"sync"
)

// resolveWorkers maps a configured worker count to an effective one: 0 or
// negative means one worker per CPU, and there are never more workers than items.
func resolveWorkers(workers, items int) int {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// parallelChunks splits [0, n) into contiguous chunks, one per worker, the first
// n%workers workers taking one extra item, and calls fn for every chunk on its
// own goroutine. It returns after all calls complete.
func parallelChunks(n, workers int, fn func(w, start, end int)) {
	workers = resolveWorkers(workers, n)
	per, rem := n/workers, n%workers

	var wg sync.WaitGroup
	wg.Add(workers)
	start := 0
	for w := 0; w < workers; w++ {
		count := per
		if w < rem {
			count++
		}
		go func(wid, lo, hi int) {
			defer wg.Done()
			fn(wid, lo, hi)
		}(w, start, start+count)
		start += count
	}
	wg.Wait()
}
