package sploit

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// HitResult is the reply to one attack, tagged with its position in the
// burst.
type HitResult struct {
	Seq   int
	Reply Reply
	Err   error
}

// Burst fires hits attacks with at most workers in flight and calls report as
// each one finishes. A failed attack is reported, not fatal.
func Burst(ctx context.Context, c *Client, hits, workers int, report func(HitResult)) []HitResult {
	if workers < 1 {
		workers = 1
	}

	var (
		mu      sync.Mutex
		results = make([]HitResult, 0, hits)
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 1; i <= hits; i++ {
		g.Go(func() error {
			reply, err := c.Hit(ctx)
			res := HitResult{Seq: i, Reply: reply, Err: err}

			mu.Lock()
			results = append(results, res)
			if report != nil {
				report(res)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}
