package index

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// MergeScheduler combines the segments of a writer in order.
type MergeScheduler interface {
	Merge(ctx context.Context, segments []*Segment) (*Segment, error)
}

// SerialMergeScheduler merges on the calling goroutine.
type SerialMergeScheduler struct{}

// Merge folds the segments left to right.
func (SerialMergeScheduler) Merge(ctx context.Context, segments []*Segment) (*Segment, error) {
	out := newSegment()
	for _, s := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = mergeSegments(out, s)
	}
	return out, nil
}

// ConcurrentMergeScheduler merges adjacent pairs of segments in parallel
// rounds until one is left.
type ConcurrentMergeScheduler struct {
	MaxThreads int
}

// NewConcurrentMergeScheduler creates a scheduler using up to maxThreads
// goroutines, or GOMAXPROCS when maxThreads is not positive.
func NewConcurrentMergeScheduler(maxThreads int) *ConcurrentMergeScheduler {
	if maxThreads <= 0 {
		maxThreads = runtime.GOMAXPROCS(0)
	}
	return &ConcurrentMergeScheduler{MaxThreads: maxThreads}
}

// Merge reduces the segments pairwise.
func (c *ConcurrentMergeScheduler) Merge(ctx context.Context, segments []*Segment) (*Segment, error) {
	if len(segments) == 0 {
		return newSegment(), nil
	}
	round := segments
	for len(round) > 1 {
		next := make([]*Segment, (len(round)+1)/2)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.MaxThreads)
		for i := 0; i < len(round); i += 2 {
			if i+1 == len(round) {
				next[i/2] = round[i]
				continue
			}
			a, b, slot := round[i], round[i+1], i/2
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				next[slot] = mergeSegments(a, b)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		round = next
	}
	return mergeSegments(newSegment(), round[0]), nil
}
