package utils

import (
	"context"
	"sync"
)

// ForEachLimit runs fn for every item with at most limit goroutines.
// Workers pull the next index from a shared cursor; ctx cancellation stops
// handing out new items but never interrupts a running fn.
func ForEachLimit[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T)) {
	if len(items) == 0 {
		return
	}
	if limit <= 0 {
		limit = 1
	}
	if limit > len(items) {
		limit = len(items)
	}

	var (
		mu     sync.Mutex
		cursor int
		wg     sync.WaitGroup
	)
	next := func() (int, bool) {
		mu.Lock()
		defer mu.Unlock()
		if cursor >= len(items) || ctx.Err() != nil {
			return 0, false
		}
		i := cursor
		cursor++
		return i, true
	}

	for w := 0; w < limit; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i, ok := next()
				if !ok {
					return
				}
				fn(ctx, items[i])
			}
		}()
	}
	wg.Wait()
}
