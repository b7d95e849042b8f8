package rendergraph

import "sort"

// pendingAccess is an access on one queue not yet covered by a barrier.
type pendingAccess struct {
	access Access
	stages PipelineStage
}

// residue is what a resource leaves behind on one queue after its last
// access there: the accesses no barrier has covered yet.
type residue struct {
	pass   PassID
	usage  Usage
	stages PipelineStage
}

// syncPoints collects the events attached to each global position.
type syncPoints struct {
	waits    [][]SyncEvent
	aliases  [][]SyncEvent
	barriers [][]SyncEvent
	post     [][]SyncEvent
}

// synchronize attaches barriers, alias hand-offs and semaphore operations to
// the scheduled passes and splits them into per-queue timelines.
//
// Barriers are decided per resource by replaying its accesses in global
// order. Each queue keeps the accesses made since its last barrier on the
// resource; a new access needs a barrier when it reads after a pending
// write, writes after any pending access, or changes the image layout.
// Accesses on other queues are ordered by semaphores and never add source
// stages to a barrier.
//
// A resource taking over a slot waits for the accesses its predecessor left
// pending on the same queue. Predecessor accesses on other queues already
// happen before it through semaphores.
//
// Every pass with a dependent on another queue signals its queue's timeline
// semaphore once. A consumer waits on the highest value it needs from each
// queue, unless its own queue already waited on that value or a later one.
// A wait on a later value covers earlier signals of the same queue.
func synchronize(g *Graph, p *plan) {
	n := len(p.order)
	sp := syncPoints{
		waits:    make([][]SyncEvent, n),
		aliases:  make([][]SyncEvent, n),
		barriers: make([][]SyncEvent, n),
		post:     make([][]SyncEvent, n),
	}

	accs := make([][]AccessRecord, len(g.resources))
	left := make([]map[QueueType]residue, len(g.resources))
	for i := range g.resources {
		id := ResourceID(i)
		if _, ok := p.aliasing.SlotOf(id); !ok {
			continue
		}
		accs[i] = scheduledAccesses(g, p, id)
		var c int
		left[i], c = syncResource(g, p, id, accs[i], &sp)
		p.barriers += c
	}
	for i := range g.resources {
		if len(accs[i]) > 0 {
			p.barriers += handOff(g, p, ResourceID(i), accs[i][0], left, &sp)
		}
	}
	p.semaphores = insertSemaphores(p, &sp)

	for _, q := range queueOrder {
		var steps []Step
		for pos, id := range p.order {
			if p.queue[id] != q {
				continue
			}
			var pre []SyncEvent
			pre = append(pre, sp.waits[pos]...)
			pre = append(pre, sp.aliases[pos]...)
			pre = append(pre, sp.barriers[pos]...)
			steps = append(steps, Step{Pass: id, Pre: pre, Post: sp.post[pos]})
		}
		if len(steps) > 0 {
			p.timelines = append(p.timelines, Timeline{Queue: q, Steps: steps})
		}
	}
}

// scheduledAccesses returns the accesses of id made by scheduled passes,
// in global order.
func scheduledAccesses(g *Graph, p *plan, id ResourceID) []AccessRecord {
	var accs []AccessRecord
	for _, j := range g.resources[id].accesses {
		if a := g.log[j]; p.position[a.Pass] >= 0 {
			accs = append(accs, a)
		}
	}
	sort.SliceStable(accs, func(i, j int) bool {
		return p.position[accs[i].Pass] < p.position[accs[j].Pass]
	})
	return accs
}

// syncResource emits the barriers of one resource. It returns the
// uncovered accesses per queue and how many barriers it added.
func syncResource(g *Graph, p *plan, id ResourceID, accs []AccessRecord, sp *syncPoints) (map[QueueType]residue, int) {
	slot, _ := p.aliasing.SlotOf(id)
	kind := p.descs[id].Kind

	count := 0
	var layout Layout
	pending := make(map[QueueType][]pendingAccess)
	last := make(map[QueueType]AccessRecord)
	for k, a := range accs {
		pos := p.position[a.Pass]
		q := p.queue[a.Pass]
		access := a.Usage.Access()
		stages := a.Usage.Stages(g.passes[a.Pass].desc.Kind)
		newLayout := a.Usage.layoutFor(kind)

		if k > 0 {
			var h Hazard
			var src PipelineStage
			for _, pa := range pending[q] {
				var ph Hazard
				if pa.access.Writes() && access.Reads() {
					ph |= HazardRAW
				}
				if pa.access.Writes() && access.Writes() {
					ph |= HazardWAW
				}
				if pa.access.Reads() && access.Writes() {
					ph |= HazardWAR
				}
				if ph != 0 {
					h |= ph
					src |= pa.stages
				}
			}
			if newLayout != layout {
				h |= HazardLayout
			}

			if h != 0 {
				prev := accs[k-1]
				sp.barriers[pos] = append(sp.barriers[pos], SyncEvent{
					Kind: SyncBarrier,
					Barrier: Barrier{
						Resource:  id,
						Slot:      slot,
						FromPass:  prev.Pass,
						From:      prev.Usage,
						To:        a.Usage,
						OldLayout: layout,
						NewLayout: newLayout,
						SrcStages: src,
						DstStages: stages,
						Hazard:    h,
					},
				})
				count++
				pending[q] = pending[q][:0]
			}
		}
		layout = newLayout
		pending[q] = append(pending[q], pendingAccess{access: access, stages: stages})
		last[q] = a
	}

	left := make(map[QueueType]residue, len(last))
	for q, a := range last {
		r := residue{pass: a.Pass, usage: a.Usage}
		for _, pa := range pending[q] {
			r.stages |= pa.stages
		}
		left[q] = r
	}
	return left, count
}

// handOff emits the alias transition of id when its slot held another
// resource before. first is the first scheduled access of id.
func handOff(g *Graph, p *plan, id ResourceID, first AccessRecord, left []map[QueueType]residue, sp *syncPoints) int {
	slot, _ := p.aliasing.SlotOf(id)
	prev, ok := previousOccupant(p, slot, id)
	if !ok {
		return 0
	}
	pos := p.position[first.Pass]
	q := p.queue[first.Pass]
	t := AliasTransition{
		Slot:      slot,
		Previous:  prev,
		Next:      id,
		Usage:     first.Usage,
		NewLayout: first.Usage.layoutFor(p.descs[id].Kind),
		DstStages: first.Usage.Stages(g.passes[first.Pass].desc.Kind),
	}
	if r, ok := left[prev][q]; ok {
		t.FromPass = r.pass
		t.From = r.usage
		t.SrcStages = r.stages
	}
	sp.aliases[pos] = append(sp.aliases[pos], SyncEvent{Kind: SyncAlias, Alias: t})
	return 1
}

// previousOccupant returns the resource that held slot before id.
func previousOccupant(p *plan, slot int, id ResourceID) (ResourceID, bool) {
	rs := p.aliasing.Slots[slot].Resources
	for i, r := range rs {
		if r == id && i > 0 {
			return rs[i-1], true
		}
	}
	return 0, false
}

// insertSemaphores adds signal and wait events for cross-queue dependencies
// and returns the number of signals.
func insertSemaphores(p *plan, sp *syncPoints) int {
	n := len(p.order)
	producer := make([]bool, n)
	incoming := make([][]Dependency, n)
	for _, d := range p.deps {
		if p.queue[d.From] == p.queue[d.To] {
			continue
		}
		producer[p.position[d.From]] = true
		to := p.position[d.To]
		incoming[to] = append(incoming[to], d)
	}

	signal := make([]uint64, n)
	next := make(map[QueueType]uint64)
	signals := 0
	for pos, id := range p.order {
		if !producer[pos] {
			continue
		}
		q := p.queue[id]
		next[q]++
		signal[pos] = next[q]
		sp.post[pos] = append(sp.post[pos], SyncEvent{
			Kind:      SyncSignal,
			Semaphore: SemaphorePoint{Queue: q, Value: next[q]},
		})
		signals++
	}

	type queuePair struct{ consumer, producer QueueType }
	waited := make(map[queuePair]uint64)
	for pos, id := range p.order {
		if len(incoming[pos]) == 0 {
			continue
		}
		q := p.queue[id]
		need := make(map[QueueType]uint64)
		for _, d := range incoming[pos] {
			src := p.queue[d.From]
			need[src] = max(need[src], signal[p.position[d.From]])
		}
		for _, src := range queueOrder {
			v, ok := need[src]
			key := queuePair{consumer: q, producer: src}
			if !ok || v <= waited[key] {
				continue
			}
			waited[key] = v
			sp.waits[pos] = append(sp.waits[pos], SyncEvent{
				Kind:      SyncWait,
				Semaphore: SemaphorePoint{Queue: src, Value: v},
			})
		}
	}
	return signals
}
