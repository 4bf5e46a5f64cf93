package fn

import "sync"

// ParMap applies f to every item with at most workers goroutines,
// preserving input order. workers <= 0 means one goroutine per item.
func ParMap[T, U any](items []T, workers int, f func(T) U) []U {
	out := make([]U, len(items))
	runBounded(len(items), workers, func(i int) {
		out[i] = f(items[i])
	})
	return out
}

// ParMapResult is ParMap for functions that can fail. Results come back
// in input order; pair with Collect to short-circuit on the first error.
func ParMapResult[T, U any](items []T, workers int, f func(T) Result[U]) []Result[U] {
	out := make([]Result[U], len(items))
	runBounded(len(items), workers, func(i int) {
		out[i] = f(items[i])
	})
	return out
}

func runBounded(n, workers int, f func(i int)) {
	if n == 0 {
		return
	}
	if workers <= 0 {
		workers = n
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer func() { <-sem; wg.Done() }()
			f(i)
		}(i)
	}
	wg.Wait()
}
