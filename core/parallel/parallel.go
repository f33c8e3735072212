// Package parallel provides range-splitting helpers for data-parallel loops.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits [0, items) across one goroutine per CPU core and calls
// fn with each worker's half-open range.
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeWithWorkers(items, runtime.NumCPU(), fn)
}

// ParallelizeWithWorkers splits [0, items) across at most numWorkers
// goroutines. numWorkers values below 1 fall back to the CPU count.
func ParallelizeWithWorkers(items, numWorkers int, fn func(start, end int)) {
	if items == 0 {
		return
	}
	if numWorkers < 1 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > items {
		numWorkers = items
	}

	// Ceiling division so the last chunk absorbs the remainder.
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items is at or below threshold, and in parallel otherwise. Small batches
// are not worth the goroutine overhead.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
