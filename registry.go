package rendergraph

import (
	"fmt"
	"strings"
)

// Hazard classifies why one pass must run after another.
type Hazard uint8

const (
	// HazardRAW orders a read after the write it observes.
	HazardRAW Hazard = 1 << iota
	// HazardWAR orders a write after the reads of the previous contents.
	HazardWAR
	// HazardWAW orders two writes.
	HazardWAW
	// HazardLayout orders an image layout transition.
	HazardLayout
)

func (h Hazard) String() string {
	if h == 0 {
		return "none"
	}
	var parts []string
	for i, name := range [...]string{"RAW", "WAR", "WAW", "Layout"} {
		if h&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// Dependency is a derived edge: To must execute after From because both
// access Resource.
type Dependency struct {
	From     PassID
	To       PassID
	Resource ResourceID
	Hazard   Hazard
}

// AccessRecord is one entry of the access log.
type AccessRecord struct {
	Pass     PassID
	Resource ResourceID
	Usage    Usage
}

type resourceRecord struct {
	desc     ResourceDesc
	accesses []int // indices into Registry.log
	output   bool

	// Edge derivation state, in record order.
	last    int   // last write or layout transition, -1 if none
	readers []int // reads recorded since last
	layout  Layout
}

type passRecord struct {
	desc     PassDesc
	accesses []int // indices into Registry.log
}

type depKey struct {
	from, to PassID
	res      ResourceID
}

// Registry tracks the logical resources of one graph and the access log that
// links them to passes. It derives dependencies as accesses are recorded:
// every access is ordered after the last write (or layout transition) of the
// same resource, and every write after the reads that preceded it.
//
// A Registry is owned by a Builder and is not safe for concurrent use.
type Registry struct {
	resources []resourceRecord
	passes    []passRecord
	log       []AccessRecord

	deps     []Dependency
	depIndex map[depKey]int
	succ     [][]PassID // unique successors per pass

	frozen bool
}

// DeclareResource registers a logical resource and returns its id.
func (r *Registry) DeclareResource(desc ResourceDesc) (ResourceID, error) {
	if r.frozen {
		return 0, ErrGraphFrozen
	}
	if err := desc.validate(); err != nil {
		return 0, err
	}
	id := ResourceID(len(r.resources))
	r.resources = append(r.resources, resourceRecord{desc: desc, last: -1})
	return id, nil
}

// RecordAccess appends an access of res by pass to the log.
//
// It fails with *UnknownResourceError or *UnknownPassError for ids not
// declared on this graph, ErrInvalidUsage when the usage does not fit the
// resource or pass kind, and *UsageConflictError when the pass already
// accesses res or when two exclusive writes race: pass writes res right
// after another pass wrote it, with no read in between and no dependency
// path between the two passes.
func (r *Registry) RecordAccess(res ResourceID, pass PassID, usage Usage) error {
	if r.frozen {
		return ErrGraphFrozen
	}
	if int(res) >= len(r.resources) {
		return &UnknownResourceError{Resource: res}
	}
	if int(pass) >= len(r.passes) {
		return &UnknownPassError{Pass: pass}
	}
	rec := &r.resources[res]
	p := &r.passes[pass]

	switch {
	case !usage.Valid():
		return graphErrorf(ErrInvalidUsage, "usage %d", usage)
	case !usage.AppliesTo(rec.desc.Kind):
		return graphErrorf(ErrInvalidUsage, "%s cannot bind %s %q", usage, rec.desc.Kind, r.resourceName(res))
	case !usage.AllowedIn(p.desc.Kind):
		return graphErrorf(ErrInvalidUsage, "%s is not available in %s pass %q", usage, p.desc.Kind, r.passName(pass))
	}

	for _, i := range rec.accesses {
		if r.log[i].Pass == pass {
			return r.conflict(res, pass, pass, "resource accessed twice by the same pass")
		}
	}

	access := usage.Access()
	if access == AccessWrite && rec.last >= 0 && len(rec.readers) == 0 {
		prev := r.log[rec.last]
		if prev.Usage.Access() == AccessWrite && !r.reachable(prev.Pass, pass) && !r.reachable(pass, prev.Pass) {
			return r.conflict(res, prev.Pass, pass, "exclusive writes with no ordering between them")
		}
	}

	idx := len(r.log)
	r.log = append(r.log, AccessRecord{Pass: pass, Resource: res, Usage: usage})
	first := len(rec.accesses) == 0
	rec.accesses = append(rec.accesses, idx)
	p.accesses = append(p.accesses, idx)

	layout := usage.layoutFor(rec.desc.Kind)
	transition := !first && rec.desc.Kind == KindImage && layout != rec.layout
	rec.layout = layout

	if rec.last >= 0 {
		prev := r.log[rec.last]
		var h Hazard
		if prev.Usage.Access().Writes() {
			if access.Reads() {
				h |= HazardRAW
			}
			if access.Writes() {
				h |= HazardWAW
			}
		} else {
			// last is a read that transitioned the layout
			h |= HazardLayout
			if access.Writes() {
				h |= HazardWAR
			}
		}
		if transition {
			h |= HazardLayout
		}
		if h != 0 {
			r.addDep(prev.Pass, pass, res, h)
		}
	}

	if !access.Writes() && !transition {
		rec.readers = append(rec.readers, idx)
		return nil
	}

	for _, i := range rec.readers {
		var h Hazard
		if access.Writes() {
			h |= HazardWAR
		}
		if transition {
			h |= HazardLayout
		}
		r.addDep(r.log[i].Pass, pass, res, h)
	}
	rec.last = idx
	rec.readers = rec.readers[:0]
	return nil
}

// Resource returns the descriptor of a declared resource.
func (r *Registry) Resource(id ResourceID) (ResourceDesc, bool) {
	if int(id) >= len(r.resources) {
		return ResourceDesc{}, false
	}
	return r.resources[id].desc, true
}

// NumResources returns the number of declared resources.
func (r *Registry) NumResources() int { return len(r.resources) }

// Accesses returns the access records of a resource in record order.
func (r *Registry) Accesses(id ResourceID) []AccessRecord {
	if int(id) >= len(r.resources) {
		return nil
	}
	idx := r.resources[id].accesses
	out := make([]AccessRecord, len(idx))
	for i, j := range idx {
		out[i] = r.log[j]
	}
	return out
}

func (r *Registry) addDep(from, to PassID, res ResourceID, h Hazard) {
	if from == to {
		return
	}
	if r.depIndex == nil {
		r.depIndex = make(map[depKey]int)
	}
	k := depKey{from: from, to: to, res: res}
	if i, ok := r.depIndex[k]; ok {
		r.deps[i].Hazard |= h
		return
	}
	r.depIndex[k] = len(r.deps)
	r.deps = append(r.deps, Dependency{From: from, To: to, Resource: res, Hazard: h})

	for _, s := range r.succ[from] {
		if s == to {
			return
		}
	}
	r.succ[from] = append(r.succ[from], to)
}

// reachable reports whether a dependency path leads from a to b.
func (r *Registry) reachable(a, b PassID) bool {
	if a == b {
		return true
	}
	seen := make([]bool, len(r.passes))
	stack := []PassID{a}
	seen[a] = true
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range r.succ[n] {
			if s == b {
				return true
			}
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return false
}

func (r *Registry) conflict(res ResourceID, first, second PassID, reason string) error {
	return &UsageConflictError{
		Resource:     res,
		First:        first,
		Second:       second,
		Reason:       reason,
		resourceName: r.resourceName(res),
		firstName:    r.passName(first),
		secondName:   r.passName(second),
	}
}

func (r *Registry) resourceName(id ResourceID) string {
	if int(id) < len(r.resources) && r.resources[id].desc.Label != "" {
		return r.resources[id].desc.Label
	}
	return fmt.Sprintf("resource%d", id)
}

func (r *Registry) passName(id PassID) string {
	if int(id) < len(r.passes) && r.passes[id].desc.Name != "" {
		return r.passes[id].desc.Name
	}
	return fmt.Sprintf("pass%d", id)
}
