package rendergraph

import (
	"fmt"
	"sort"

	"github.com/gogpu/gputypes"
)

// happensBefore is the transitive closure of execution order over global
// positions: dependency edges plus submission order within a queue. Row i
// holds the positions that position i is guaranteed to complete before.
type happensBefore struct {
	words int
	rows  []uint64
}

func newHappensBefore(p *plan) *happensBefore {
	n := len(p.order)
	h := &happensBefore{words: (n + 63) / 64}
	h.rows = make([]uint64, n*h.words)

	succ := make([][]int, n)
	for _, d := range p.deps {
		from, to := p.position[d.From], p.position[d.To]
		succ[from] = append(succ[from], to)
	}
	lastOnQueue := make(map[QueueType]int)
	for pos, id := range p.order {
		q := p.queue[id]
		if prev, ok := lastOnQueue[q]; ok {
			succ[prev] = append(succ[prev], pos)
		}
		lastOnQueue[q] = pos
	}

	// successors always sit at later positions, so a reverse sweep sees
	// every row it unions in already complete
	for i := n - 1; i >= 0; i-- {
		row := h.row(i)
		for _, s := range succ[i] {
			row[s/64] |= 1 << (s % 64)
			for w, v := range h.row(s) {
				row[w] |= v
			}
		}
	}
	return h
}

func (h *happensBefore) row(i int) []uint64 {
	return h.rows[i*h.words : (i+1)*h.words]
}

// before reports whether position a completes before position b starts.
func (h *happensBefore) before(a, b int) bool {
	return h.rows[a*h.words+b/64]&(1<<(b%64)) != 0
}

// computeSpans returns the first and last global position at which each
// resource is accessed by a scheduled pass.
func computeSpans(g *Graph, p *plan) []Span {
	spans := make([]Span, len(g.resources))
	for i, r := range g.resources {
		s := Span{First: -1, Last: -1}
		for _, j := range r.accesses {
			pos := p.position[g.log[j].Pass]
			if pos < 0 {
				continue
			}
			if s.First < 0 || pos < s.First {
				s.First = pos
			}
			if pos > s.Last {
				s.Last = pos
			}
		}
		spans[i] = s
	}
	return spans
}

// allocator assigns resources to storage slots.
type allocator struct {
	g         *Graph
	p         *plan
	hb        *happensBefore
	positions [][]int // scheduled access positions per resource
	bytes     []uint64
	slots     []Slot
	slotOf    []int
}

// allocate builds the aliasing plan. Demanded alias groups are placed first;
// the remaining resources go greedily, largest first, into the first slot
// whose descriptor is compatible and whose occupants are all strictly
// ordered against the newcomer. Spans alone are not enough across queues:
// two resources may only share storage when every access of one completes
// before any access of the other.
func allocate(g *Graph, p *plan, hb *happensBefore, demands [][2]ResourceID) error {
	a := &allocator{
		g:         g,
		p:         p,
		hb:        hb,
		positions: make([][]int, len(g.resources)),
		bytes:     make([]uint64, len(g.resources)),
		slotOf:    make([]int, len(g.resources)),
	}
	bb := g.opts.backbuffer
	var pending []ResourceID
	for i := range g.resources {
		id := ResourceID(i)
		a.slotOf[i] = -1
		for _, j := range g.resources[i].accesses {
			if pos := p.position[g.log[j].Pass]; pos >= 0 {
				a.positions[i] = append(a.positions[i], pos)
			}
		}
		sort.Ints(a.positions[i])
		if len(a.positions[i]) == 0 {
			Logger().Warn("rendergraph: resource never accessed", "resource", g.ResourceName(id))
			continue
		}
		a.bytes[i] = p.descs[i].footprint(bb)
		p.dedicated += a.bytes[i]
		pending = append(pending, id)
	}

	grouped, err := a.placeDemands(demands)
	if err != nil {
		return err
	}

	sort.SliceStable(pending, func(i, j int) bool {
		x, y := pending[i], pending[j]
		if a.bytes[x] != a.bytes[y] {
			return a.bytes[x] > a.bytes[y]
		}
		if p.spans[x].First != p.spans[y].First {
			return p.spans[x].First < p.spans[y].First
		}
		return x < y
	})
	for _, id := range pending {
		if grouped[id] {
			continue
		}
		a.place(id)
	}

	for i := range a.slots {
		a.finishSlot(&a.slots[i])
	}
	p.aliasing = AliasingPlan{Slots: a.slots, slotOf: a.slotOf}
	return nil
}

// place puts id into the first fitting slot, or a new one.
func (a *allocator) place(id ResourceID) {
	if a.g.opts.aliasing && !a.p.descs[id].Imported {
		for i := range a.slots {
			if a.fits(&a.slots[i], id) {
				a.add(i, id)
				return
			}
		}
	}
	a.add(a.newSlot(id), id)
}

func (a *allocator) fits(s *Slot, id ResourceID) bool {
	if s.Imported {
		return false
	}
	for _, other := range s.Resources {
		if a.compatible(other, id) != nil {
			return false
		}
		if !a.ordered(other, id) && !a.ordered(id, other) {
			return false
		}
	}
	return true
}

// compatible checks the descriptors of x and y under the alias policy.
func (a *allocator) compatible(x, y ResourceID) error {
	dx, dy := a.p.descs[x], a.p.descs[y]
	differ := func(what string) error {
		return fmt.Errorf("%s differ: %s vs %s", what, dx, dy)
	}
	switch {
	case dx.Imported || dy.Imported:
		return fmt.Errorf("imported resources own their storage")
	case dx.Kind != dy.Kind:
		return differ("kinds")
	case dx.Kind == KindBuffer:
		if a.g.opts.aliasPolicy == AliasExact && dx.Size != dy.Size {
			return differ("sizes")
		}
		return nil
	case dx.Format != dy.Format:
		return differ("formats")
	case dx.Sizing != dy.Sizing:
		return differ("sizing modes")
	case a.g.opts.aliasPolicy == AliasExact:
		bb := a.g.opts.backbuffer
		if dx.extent(bb) != dy.extent(bb) || dx.scale() != dy.scale() {
			return differ("extents")
		}
	}
	return nil
}

// ordered reports whether every access of x completes before any access of y.
func (a *allocator) ordered(x, y ResourceID) bool {
	for _, px := range a.positions[x] {
		for _, py := range a.positions[y] {
			if !a.hb.before(px, py) {
				return false
			}
		}
	}
	return true
}

func (a *allocator) newSlot(id ResourceID) int {
	d := a.p.descs[id]
	a.slots = append(a.slots, Slot{
		Index:    len(a.slots),
		Kind:     d.Kind,
		Format:   d.Format,
		Sizing:   d.Sizing,
		Imported: d.Imported,
	})
	return len(a.slots) - 1
}

func (a *allocator) add(slot int, id ResourceID) {
	a.slots[slot].Resources = append(a.slots[slot].Resources, id)
	a.slotOf[id] = slot
}

// finishSlot orders occupants by span and sizes the slot for the largest.
func (a *allocator) finishSlot(s *Slot) {
	spans := a.p.spans
	sort.SliceStable(s.Resources, func(i, j int) bool {
		return spans[s.Resources[i]].First < spans[s.Resources[j]].First
	})
	bb := a.g.opts.backbuffer
	for _, id := range s.Resources {
		d := a.p.descs[id]
		if d.Kind == KindBuffer {
			s.Bytes = max(s.Bytes, d.Size)
			continue
		}
		e := d.extent(bb)
		s.Extent = gputypes.Extent3D{
			Width:              max(s.Extent.Width, e.Width),
			Height:             max(s.Extent.Height, e.Height),
			DepthOrArrayLayers: max(s.Extent.DepthOrArrayLayers, e.DepthOrArrayLayers),
		}
		if d.Sizing == SizingBackbuffer {
			s.Scale = max(s.Scale, d.scale())
		}
	}
	if s.Kind == KindImage {
		s.Bytes = uint64(s.Extent.Width) * uint64(s.Extent.Height) *
			uint64(s.Extent.DepthOrArrayLayers) * bytesPerTexel(s.Format)
	}
}

// placeDemands gives every RequireAlias group its own slot, failing when a
// pair in the group cannot share storage.
func (a *allocator) placeDemands(demands [][2]ResourceID) ([]bool, error) {
	grouped := make([]bool, len(a.g.resources))
	if len(demands) == 0 {
		return grouped, nil
	}

	parent := make([]ResourceID, len(a.g.resources))
	for i := range parent {
		parent[i] = ResourceID(i)
	}
	find := func(x ResourceID) ResourceID {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for _, d := range demands {
		ra, rb := find(d[0]), find(d[1])
		if ra == rb {
			continue
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	groups := make(map[ResourceID][]ResourceID)
	var roots []ResourceID
	for _, d := range demands {
		for _, id := range d {
			if grouped[id] {
				continue
			}
			grouped[id] = true
			r := find(id)
			if _, ok := groups[r]; !ok {
				roots = append(roots, r)
			}
			groups[r] = append(groups[r], id)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	for _, r := range roots {
		members := groups[r]
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		for i, x := range members {
			if !a.g.opts.aliasing {
				return nil, a.aliasError(x, members[(i+1)%len(members)], "aliasing is disabled")
			}
			if len(a.positions[x]) == 0 {
				return nil, a.aliasError(x, members[(i+1)%len(members)], "resource is never accessed")
			}
			for _, y := range members[i+1:] {
				if err := a.compatible(x, y); err != nil {
					return nil, a.aliasError(x, y, err.Error())
				}
				if !a.ordered(x, y) && !a.ordered(y, x) {
					reason := "live spans overlap"
					if !a.p.spans[x].Overlaps(a.p.spans[y]) {
						reason = "accesses are not ordered across queues"
					}
					return nil, a.aliasError(x, y, reason)
				}
			}
		}
		slot := a.newSlot(members[0])
		for _, id := range members {
			a.add(slot, id)
		}
	}
	return grouped, nil
}

func (a *allocator) aliasError(x, y ResourceID, reason string) error {
	return &IncompatibleAliasError{
		A:      x,
		B:      y,
		Reason: reason,
		aName:  a.g.ResourceName(x),
		bName:  a.g.ResourceName(y),
	}
}
