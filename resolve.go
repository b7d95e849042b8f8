package rendergraph

import (
	"container/heap"
	"slices"
	"strings"
)

// compile derives the plan of a frozen graph. deps are the dependencies the
// registry discovered while recording accesses.
func compile(g *Graph, deps []Dependency, demands [][2]ResourceID) (*plan, error) {
	descs, err := resolveDescriptors(g)
	if err != nil {
		return nil, err
	}
	if err := checkAttachments(g, descs); err != nil {
		return nil, err
	}

	p := &plan{descs: descs}
	if err := schedule(g, deps, p); err != nil {
		return nil, err
	}

	hb := newHappensBefore(p)
	p.spans = computeSpans(g, p)
	if err := allocate(g, p, hb, demands); err != nil {
		return nil, err
	}
	synchronize(g, p)
	return p, nil
}

// resolveDescriptors fills in derived descriptors from the first pass that
// writes each derived resource: the pass's first other resource of the same
// kind with a known size donates its sizing (and format, if unset).
func resolveDescriptors(g *Graph) ([]ResourceDesc, error) {
	descs := make([]ResourceDesc, len(g.resources))
	resolved := make([]bool, len(g.resources))
	pending := 0
	for i, r := range g.resources {
		descs[i] = r.desc
		resolved[i] = r.desc.Sizing != SizingDerived
		if !resolved[i] {
			pending++
		}
	}

	for progress := true; pending > 0 && progress; {
		progress = false
		for i := range descs {
			if resolved[i] {
				continue
			}
			writer, ok := firstWriter(g, ResourceID(i))
			if !ok {
				continue
			}
			for _, j := range g.passes[writer].accesses {
				donor := g.log[j].Resource
				if int(donor) == i || !resolved[donor] || descs[donor].Kind != descs[i].Kind {
					continue
				}
				d := descs[donor]
				descs[i].Sizing = d.Sizing
				descs[i].Extent = d.Extent
				descs[i].Scale = d.Scale
				descs[i].Size = d.Size
				if descs[i].Format == 0 {
					descs[i].Format = d.Format
				}
				resolved[i] = true
				pending--
				progress = true
				break
			}
		}
	}

	for i := range descs {
		if resolved[i] {
			continue
		}
		name := g.ResourceName(ResourceID(i))
		if _, ok := firstWriter(g, ResourceID(i)); !ok {
			return nil, graphErrorf(ErrUnresolvedDescriptor, "%q is never written", name)
		}
		return nil, graphErrorf(ErrUnresolvedDescriptor,
			"first writer of %q accesses no sized %s to derive from", name, descs[i].Kind)
	}
	return descs, nil
}

func firstWriter(g *Graph, id ResourceID) (PassID, bool) {
	for _, j := range g.resources[id].accesses {
		if a := g.log[j]; a.Usage.Access().Writes() {
			return a.Pass, true
		}
	}
	return 0, false
}

// checkAttachments requires the attachments of each graphics pass to share
// one extent.
func checkAttachments(g *Graph, descs []ResourceDesc) error {
	bb := g.opts.backbuffer
	for pid, p := range g.passes {
		if p.desc.Kind != PassGraphics {
			continue
		}
		var want string
		var wantRes ResourceID
		for _, j := range p.accesses {
			a := g.log[j]
			if !a.Usage.isAttachment() {
				continue
			}
			key := descs[a.Resource].sizeKey(bb)
			if want == "" {
				want, wantRes = key, a.Resource
				continue
			}
			if key != want {
				return graphErrorf(ErrAttachmentMismatch, "pass %q: %q is %s but %q is %s",
					g.PassName(PassID(pid)), g.ResourceName(wantRes), want, g.ResourceName(a.Resource), key)
			}
		}
	}
	return nil
}

// schedule culls, assigns queues and orders the passes.
func schedule(g *Graph, deps []Dependency, p *plan) error {
	n := len(g.passes)
	keep, err := cull(g, deps)
	if err != nil {
		return err
	}

	p.queue = make([]QueueType, n)
	for i := range g.passes {
		if !keep[i] {
			continue
		}
		q, err := assignQueue(g, PassID(i))
		if err != nil {
			return err
		}
		p.queue[i] = q
	}

	for _, d := range deps {
		if keep[d.From] && keep[d.To] {
			p.deps = append(p.deps, d)
		}
	}

	order, err := topoSort(g, keep, p.deps)
	if err != nil {
		return err
	}
	p.order = order
	p.position = make([]int, n)
	for i := range p.position {
		p.position[i] = -1
	}
	for pos, id := range order {
		p.position[id] = pos
	}
	return nil
}

// cull returns the passes to schedule. Without culling every pass is kept;
// with it, only passes that access an output or feed one through a
// dependency survive.
func cull(g *Graph, deps []Dependency) ([]bool, error) {
	keep := make([]bool, len(g.passes))
	if !g.opts.culling {
		for i := range keep {
			keep[i] = true
		}
		return keep, nil
	}
	if len(g.outputs) == 0 {
		return nil, ErrNoOutput
	}

	preds := make([][]PassID, len(g.passes))
	for _, d := range deps {
		preds[d.To] = append(preds[d.To], d.From)
	}
	var stack []PassID
	for _, out := range g.outputs {
		for _, j := range g.resources[out].accesses {
			if p := g.log[j].Pass; !keep[p] {
				keep[p] = true
				stack = append(stack, p)
			}
		}
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, pred := range preds[n] {
			if !keep[pred] {
				keep[pred] = true
				stack = append(stack, pred)
			}
		}
	}

	log := Logger()
	for i, k := range keep {
		if !k {
			log.Debug("rendergraph: culled pass", "pass", g.PassName(PassID(i)))
		}
	}
	return keep, nil
}

// assignQueue picks the queue of a pass. A hint must be able to run the pass
// kind; a hinted queue the device lacks folds onto the graphics queue.
// Unhinted passes use the default queue when it exists and can run them,
// otherwise the graphics queue.
func assignQueue(g *Graph, id PassID) (QueueType, error) {
	desc := g.passes[id].desc
	need := desc.Kind.Requires()
	profile := g.opts.queues

	if desc.Queue != QueueAny {
		if !desc.Queue.Caps().Has(need) {
			return 0, &QueueCapabilityError{Pass: id, Queue: desc.Queue, Kind: desc.Kind, passName: g.PassName(id)}
		}
		if !profile.Has(desc.Queue) {
			Logger().Debug("rendergraph: queue not exposed, folding onto graphics",
				"pass", g.PassName(id), "queue", desc.Queue.String())
			return QueueGraphics, nil
		}
		return desc.Queue, nil
	}

	q := g.opts.defaultQueue
	if profile.Has(q) && q.Caps().Has(need) {
		return q, nil
	}
	return QueueGraphics, nil
}

// passHeap is a min-heap of pass ids; popping yields declaration order.
type passHeap []PassID

func (h passHeap) Len() int           { return len(h) }
func (h passHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h passHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *passHeap) Push(x any)        { *h = append(*h, x.(PassID)) }
func (h *passHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// topoSort orders the kept passes with Kahn's algorithm, always releasing
// the ready pass declared first.
func topoSort(g *Graph, keep []bool, deps []Dependency) ([]PassID, error) {
	n := len(g.passes)
	indeg := make([]int, n)
	succ := make([][]int, n) // dependency indices
	for i, d := range deps {
		indeg[d.To]++
		succ[d.From] = append(succ[d.From], i)
	}

	ready := &passHeap{}
	total := 0
	for i := range n {
		if !keep[i] {
			continue
		}
		total++
		if indeg[i] == 0 {
			*ready = append(*ready, PassID(i))
		}
	}
	heap.Init(ready)

	order := make([]PassID, 0, total)
	for ready.Len() > 0 {
		id := heap.Pop(ready).(PassID)
		order = append(order, id)
		for _, e := range succ[id] {
			to := deps[e].To
			indeg[to]--
			if indeg[to] == 0 {
				heap.Push(ready, to)
			}
		}
	}
	if len(order) == total {
		return order, nil
	}
	return nil, findCycle(g, keep, indeg, deps)
}

// findCycle extracts one cycle from the passes Kahn's algorithm could not
// release. Every such pass has a predecessor that is also unreleased, so
// walking predecessors from the lowest id must revisit a pass.
func findCycle(g *Graph, keep []bool, indeg []int, deps []Dependency) error {
	stuck := func(p PassID) bool { return keep[p] && indeg[p] > 0 }

	start := PassID(0)
	for i := range indeg {
		if stuck(PassID(i)) {
			start = PassID(i)
			break
		}
	}

	// back[i+1] -> back[i] via res[i]
	back := []PassID{start}
	var res []ResourceID
	seen := map[PassID]int{start: 0}
	for {
		cur := back[len(back)-1]
		pred, via, found := PassID(0), ResourceID(0), false
		for _, d := range deps {
			if d.To == cur && stuck(d.From) {
				pred, via, found = d.From, d.Resource, true
				break
			}
		}
		if !found {
			return graphErrorf(ErrCyclicDependency, "pass %q cannot be scheduled", g.PassName(cur))
		}
		if k, ok := seen[pred]; ok {
			// pred -> cur closes the loop back[k] ... back[m]
			chain := []PassID{pred, cur}
			vias := []ResourceID{via}
			for i := len(back) - 1; i > k; i-- {
				chain = append(chain, back[i-1])
				vias = append(vias, res[i-1])
			}
			return newCycleError(g, chain, vias)
		}
		seen[pred] = len(back)
		back = append(back, pred)
		res = append(res, via)
	}
}

func newCycleError(g *Graph, chain []PassID, via []ResourceID) error {
	passNames := make([]string, len(chain))
	for i, p := range chain {
		passNames[i] = g.PassName(p)
	}
	resNames := make([]string, len(via))
	for i, r := range via {
		resNames[i] = g.ResourceName(r)
	}
	path := formatCycle(passNames, resNames)
	Logger().Debug("rendergraph: cycle detected", "chain", strings.Join(passNames, ","))
	return &CyclicDependencyError{
		Resource: via[0],
		Chain:    slices.Clone(chain),
		Via:      slices.Clone(via),
		path:     path,
	}
}
