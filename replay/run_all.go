// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package replay

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/rendergraph"
)

// EncoderFunc returns the encoder that records queue q.
type EncoderFunc func(q rendergraph.QueueType) BarrierEncoder

// RunAll replays every timeline of g concurrently, one goroutine per queue,
// with a shared TimelineSemaphore enforcing cross-queue waits. The first
// error cancels the remaining queues.
func RunAll(ctx context.Context, g *rendergraph.Graph, encoders EncoderFunc, binds Bindings, fn PassFunc) error {
	sems := NewTimelineSemaphore()
	eg, ctx := errgroup.WithContext(ctx)
	for _, tl := range g.Timelines() {
		q := tl.Queue
		enc := encoders(q)
		eg.Go(func() error {
			return Run(ctx, g, q, enc, binds, fn, WithSemaphores(sems))
		})
	}
	return eg.Wait()
}
