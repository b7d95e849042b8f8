// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package replay walks the timelines of a finalized render graph and issues
// the synchronization they describe on a HAL command encoder.
//
// Barriers become hal.TextureBarrier or hal.BufferBarrier values built from
// the usage bits of the two accesses. Alias hand-offs become barriers from
// the previous occupant's last usage on the queue, so the new resource
// waits for it before overwriting the slot. Semaphore waits
// and signals go to a Semaphores implementation supplied by the caller;
// RunAll provides an in-process TimelineSemaphore and runs every queue on
// its own goroutine.
//
// The package never records pass work itself. The PassFunc receives each
// step, payload included, after its pre-synchronization has been issued.
package replay
