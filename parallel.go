// SPDX-License-Identifier: BSD-3-Clause

// Concurrent multi-page extraction (spec.md §5). Grounded on the
// teacher's processor.go (a semaphore-gated worker pool with ordered
// result collection), rebuilt on golang.org/x/sync/errgroup paired with
// the semaphore package already in the teacher's dependency set, so
// cancellation propagates through one context instead of the teacher's
// manual channel/WaitGroup bookkeeping. Cancellation is checked between
// pages, never mid-operator: a page already in flight when ctx is
// cancelled always finishes.
package pdf

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// PageResult is one page's extraction outcome from a parallel run.
type PageResult struct {
	Index int
	Text  string
	Err   error
}

// ExtractPagesParallel extracts the given page indices concurrently,
// bounded by Config.MaxWorkersPerPDF, returning results in the same
// order as indices regardless of completion order.
func (doc *Document) ExtractPagesParallel(ctx context.Context, indices []int) ([]PageResult, error) {
	results := make([]PageResult, len(indices))
	sem := semaphore.NewWeighted(int64(doc.cfg.MaxWorkersPerPDF))
	g, gctx := errgroup.WithContext(ctx)

	for pos, idx := range indices {
		pos, idx := pos, idx
		if err := sem.Acquire(gctx, 1); err != nil {
			results[pos] = PageResult{Index: idx, Err: newErr(ErrCancelled, "ExtractPagesParallel", err)}
			continue
		}
		g.Go(func() error {
			defer sem.Release(1)
			select {
			case <-gctx.Done():
				results[pos] = PageResult{Index: idx, Err: newErr(ErrCancelled, "ExtractPagesParallel", gctx.Err())}
				return nil
			default:
			}
			text, err := doc.ExtractText(idx)
			results[pos] = PageResult{Index: idx, Text: text, Err: err}
			return nil
		})
	}
	_ = g.Wait() // per-page errors are carried in results, not the group error

	return results, nil
}

// ExtractAllParallel extracts every page of the document concurrently.
func (doc *Document) ExtractAllParallel(ctx context.Context) ([]PageResult, error) {
	indices := make([]int, doc.PageCount())
	for i := range indices {
		indices[i] = i
	}
	return doc.ExtractPagesParallel(ctx, indices)
}
