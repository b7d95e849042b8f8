// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package replay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogpu/rendergraph"
)

func TestTimelineSemaphoreSignalWait(t *testing.T) {
	s := NewTimelineSemaphore()
	p := rendergraph.SemaphorePoint{Queue: rendergraph.QueueCompute, Value: 2}

	done := make(chan error, 1)
	go func() { done <- s.Wait(context.Background(), p) }()

	_ = s.Signal(rendergraph.SemaphorePoint{Queue: rendergraph.QueueCompute, Value: 1})
	select {
	case <-done:
		t.Fatal("Wait returned before the value was reached")
	case <-time.After(10 * time.Millisecond):
	}

	_ = s.Signal(p)
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Signal")
	}
}

func TestTimelineSemaphoreMonotonic(t *testing.T) {
	s := NewTimelineSemaphore()
	_ = s.Signal(rendergraph.SemaphorePoint{Queue: rendergraph.QueueTransfer, Value: 5})
	_ = s.Signal(rendergraph.SemaphorePoint{Queue: rendergraph.QueueTransfer, Value: 3})

	if got := s.Value(rendergraph.QueueTransfer); got != 5 {
		t.Errorf("Value() = %d, want 5", got)
	}
	if got := s.Value(rendergraph.QueueCompute); got != 0 {
		t.Errorf("Value(compute) = %d, want 0", got)
	}
	// an already reached value returns immediately
	if err := s.Wait(context.Background(), rendergraph.SemaphorePoint{Queue: rendergraph.QueueTransfer, Value: 4}); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestTimelineSemaphoreWaitCanceled(t *testing.T) {
	s := NewTimelineSemaphore()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := s.Wait(ctx, rendergraph.SemaphorePoint{Queue: rendergraph.QueueCompute, Value: 1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}
}
