// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rendergraph"
	"github.com/gogpu/wgpu/hal"
)

// ErrUnbound is returned when a barrier targets a slot with no HAL object.
var ErrUnbound = errors.New("replay: slot has no bound resource")

// BarrierEncoder is the part of hal.CommandEncoder replay needs.
type BarrierEncoder interface {
	TransitionBuffers(barriers []hal.BufferBarrier)
	TransitionTextures(barriers []hal.TextureBarrier)
}

// Bindings resolves storage slots to the HAL objects backing them.
type Bindings interface {
	Texture(slot int) (hal.Texture, bool)
	Buffer(slot int) (hal.Buffer, bool)
}

// SlotBindings is a map-backed Bindings.
type SlotBindings struct {
	Textures map[int]hal.Texture
	Buffers  map[int]hal.Buffer
}

// Texture implements Bindings.
func (b SlotBindings) Texture(slot int) (hal.Texture, bool) {
	t, ok := b.Textures[slot]
	return t, ok
}

// Buffer implements Bindings.
func (b SlotBindings) Buffer(slot int) (hal.Buffer, bool) {
	buf, ok := b.Buffers[slot]
	return buf, ok
}

// Semaphores performs cross-queue waits and signals.
type Semaphores interface {
	Wait(ctx context.Context, p rendergraph.SemaphorePoint) error
	Signal(p rendergraph.SemaphorePoint) error
}

// PassFunc records the work of one step. It runs after the step's waits and
// barriers and before its signals.
type PassFunc func(ctx context.Context, enc BarrierEncoder, step rendergraph.Step) error

// Option configures Run.
type Option func(*runOptions)

type runOptions struct {
	sems Semaphores
}

// WithSemaphores routes wait and signal events to s. Without it they are
// skipped and the caller orders queue submissions itself.
func WithSemaphores(s Semaphores) Option {
	return func(o *runOptions) {
		o.sems = s
	}
}

// Run replays the timeline of queue q. A queue with no work is not an error.
// ctx is checked before every step.
func Run(ctx context.Context, g *rendergraph.Graph, q rendergraph.QueueType,
	enc BarrierEncoder, binds Bindings, fn PassFunc, opts ...Option) error {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	tl, ok := g.Timeline(q)
	if !ok {
		return nil
	}
	log := rendergraph.Logger()
	for _, step := range tl.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		for _, e := range step.Pre {
			if e.Kind != rendergraph.SyncWait || o.sems == nil {
				continue
			}
			log.Debug("replay: wait", "queue", q.String(), "pass", step.Name, "on", e.Semaphore.String())
			if err := o.sems.Wait(ctx, e.Semaphore); err != nil {
				return fmt.Errorf("replay: pass %q: wait %s: %w", step.Name, e.Semaphore, err)
			}
		}

		bufs, texs, err := Convert(g, step.Pre, binds)
		if err != nil {
			return fmt.Errorf("replay: pass %q: %w", step.Name, err)
		}
		if len(bufs) > 0 {
			enc.TransitionBuffers(bufs)
		}
		if len(texs) > 0 {
			enc.TransitionTextures(texs)
		}

		if fn != nil {
			if err := fn(ctx, enc, step); err != nil {
				return fmt.Errorf("replay: pass %q: %w", step.Name, err)
			}
		}

		for _, e := range step.Post {
			if e.Kind != rendergraph.SyncSignal || o.sems == nil {
				continue
			}
			if err := o.sems.Signal(e.Semaphore); err != nil {
				return fmt.Errorf("replay: pass %q: signal %s: %w", step.Name, e.Semaphore, err)
			}
		}
	}
	return nil
}

// Convert translates the barrier and alias events in events into HAL
// barriers. An alias hand-off transitions from the previous occupant's last
// usage on the queue, or from no usage when that occupant ran elsewhere.
// Wait and signal events are ignored.
func Convert(g *rendergraph.Graph, events []rendergraph.SyncEvent, binds Bindings) (
	[]hal.BufferBarrier, []hal.TextureBarrier, error) {
	var bufs []hal.BufferBarrier
	var texs []hal.TextureBarrier

	add := func(res rendergraph.ResourceID, slot int, from, to rendergraph.Usage) error {
		if g.Resource(res).Kind == rendergraph.KindBuffer {
			buf, ok := binds.Buffer(slot)
			if !ok {
				return fmt.Errorf("%w: buffer slot %d (%s)", ErrUnbound, slot, g.ResourceName(res))
			}
			bufs = append(bufs, hal.BufferBarrier{
				Buffer: buf,
				Usage:  hal.BufferUsageTransition{OldUsage: from.BufferUsage(), NewUsage: to.BufferUsage()},
			})
			return nil
		}

		tex, ok := binds.Texture(slot)
		if !ok {
			return fmt.Errorf("%w: texture slot %d (%s)", ErrUnbound, slot, g.ResourceName(res))
		}
		texs = append(texs, hal.TextureBarrier{
			Texture: tex,
			Range:   hal.TextureRange{Aspect: gputypes.TextureAspectAll},
			Usage:   hal.TextureUsageTransition{OldUsage: from.TextureUsage(), NewUsage: to.TextureUsage()},
		})
		return nil
	}

	for _, e := range events {
		var err error
		switch e.Kind {
		case rendergraph.SyncBarrier:
			b := e.Barrier
			err = add(b.Resource, b.Slot, b.From, b.To)
		case rendergraph.SyncAlias:
			a := e.Alias
			err = add(a.Next, a.Slot, a.From, a.Usage)
		}
		if err != nil {
			return nil, nil, err
		}
	}
	return bufs, texs, nil
}
