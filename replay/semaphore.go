// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package replay

import (
	"context"
	"sync"

	"github.com/gogpu/rendergraph"
)

// TimelineSemaphore is an in-process timeline semaphore per queue. Values
// only grow; a wait returns once the queue has signalled the value or any
// larger one.
type TimelineSemaphore struct {
	mu      sync.Mutex
	values  map[rendergraph.QueueType]uint64
	changed chan struct{}
}

// NewTimelineSemaphore returns a semaphore with every queue at 0.
func NewTimelineSemaphore() *TimelineSemaphore {
	return &TimelineSemaphore{
		values:  make(map[rendergraph.QueueType]uint64),
		changed: make(chan struct{}),
	}
}

// Signal raises the value of p.Queue to p.Value. Lower values are ignored.
func (s *TimelineSemaphore) Signal(p rendergraph.SemaphorePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Value <= s.values[p.Queue] {
		return nil
	}
	s.values[p.Queue] = p.Value
	close(s.changed)
	s.changed = make(chan struct{})
	return nil
}

// Wait blocks until p.Queue reaches p.Value or ctx is done.
func (s *TimelineSemaphore) Wait(ctx context.Context, p rendergraph.SemaphorePoint) error {
	for {
		s.mu.Lock()
		if s.values[p.Queue] >= p.Value {
			s.mu.Unlock()
			return nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Value returns the current value of queue q.
func (s *TimelineSemaphore) Value(q rendergraph.QueueType) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[q]
}
