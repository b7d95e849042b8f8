package rendergraph

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// SyncKind identifies a synchronization event.
type SyncKind uint8

const (
	// SyncBarrier is a same-queue memory and layout transition.
	SyncBarrier SyncKind = iota
	// SyncAlias hands a storage slot from one resource to the next.
	SyncAlias
	// SyncWait blocks a queue until another queue reaches a semaphore value.
	SyncWait
	// SyncSignal advances a queue's semaphore after a pass completes.
	SyncSignal
)

var syncKindNames = [...]string{
	SyncBarrier: "barrier",
	SyncAlias:   "alias",
	SyncWait:    "wait",
	SyncSignal:  "signal",
}

func (k SyncKind) String() string {
	if int(k) < len(syncKindNames) {
		return syncKindNames[k]
	}
	return "unknown"
}

// SemaphorePoint is a value on a queue's timeline semaphore. Values start at 1
// and increase by one per signal; waiting on a value is satisfied by any
// signal of an equal or larger value on that queue.
type SemaphorePoint struct {
	Queue QueueType
	Value uint64
}

func (p SemaphorePoint) String() string {
	return fmt.Sprintf("%s#%d", p.Queue, p.Value)
}

// Barrier is a transition between two accesses of one resource on one queue.
type Barrier struct {
	Resource  ResourceID
	Slot      int
	FromPass  PassID
	From      Usage
	To        Usage
	OldLayout Layout
	NewLayout Layout
	SrcStages PipelineStage
	DstStages PipelineStage
	Hazard    Hazard
}

// AliasTransition hands a storage slot from Previous to Next. Previous
// contents are discarded; Next starts in the layout of its first usage.
//
// FromPass, From and SrcStages describe the accesses Previous left
// uncovered on the queue of Next's first user, which the transition must
// wait for. From is invalid when Previous was never used on that queue;
// semaphores order it instead.
type AliasTransition struct {
	Slot      int
	Previous  ResourceID
	Next      ResourceID
	FromPass  PassID
	From      Usage
	Usage     Usage
	NewLayout Layout
	SrcStages PipelineStage
	DstStages PipelineStage
}

// SyncEvent is one synchronization entry attached before or after a pass.
// Only the field matching Kind is meaningful.
type SyncEvent struct {
	Kind      SyncKind
	Barrier   Barrier
	Alias     AliasTransition
	Semaphore SemaphorePoint
}

// Step is one pass on a queue together with the synchronization the
// execution layer performs before and after it.
type Step struct {
	Pass    PassID
	Name    string
	Kind    PassKind
	Payload any
	Pre     []SyncEvent
	Post    []SyncEvent
}

// Timeline is the ordered work of one hardware queue.
type Timeline struct {
	Queue QueueType
	Steps []Step
}

// EventKind identifies an entry in a flattened timeline.
type EventKind uint8

const (
	EventPass EventKind = iota
	EventBarrier
	EventAlias
	EventWait
	EventSignal
)

var eventKindNames = [...]string{
	EventPass:    "pass",
	EventBarrier: "barrier",
	EventAlias:   "alias",
	EventWait:    "wait",
	EventSignal:  "signal",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

func eventKindOf(k SyncKind) EventKind {
	switch k {
	case SyncBarrier:
		return EventBarrier
	case SyncAlias:
		return EventAlias
	case SyncWait:
		return EventWait
	default:
		return EventSignal
	}
}

// Event is one entry of a flattened timeline. Seq numbers entries of one
// queue from zero; Step indexes the owning step.
type Event struct {
	Seq  int
	Step int
	Kind EventKind
	Pass PassID
	Sync SyncEvent
}

// Events flattens the timeline into pre-sync events, the pass, and post-sync
// events for every step, in submission order.
func (t Timeline) Events() []Event {
	var out []Event
	add := func(step int, kind EventKind, pass PassID, sync SyncEvent) {
		out = append(out, Event{Seq: len(out), Step: step, Kind: kind, Pass: pass, Sync: sync})
	}
	for i, s := range t.Steps {
		for _, e := range s.Pre {
			add(i, eventKindOf(e.Kind), s.Pass, e)
		}
		add(i, EventPass, s.Pass, SyncEvent{})
		for _, e := range s.Post {
			add(i, eventKindOf(e.Kind), s.Pass, e)
		}
	}
	return out
}

// Span is the range of global positions during which a resource is live.
type Span struct {
	First int
	Last  int
}

// Overlaps reports whether two spans share a position.
func (s Span) Overlaps(o Span) bool {
	return s.First <= o.Last && o.First <= s.Last
}

// Slot is one underlying storage allocation.
type Slot struct {
	Index    int
	Kind     ResourceKind
	Format   gputypes.TextureFormat
	Sizing   Sizing
	Scale    float32
	Extent   gputypes.Extent3D
	Bytes    uint64
	Imported bool
	// Resources lists the occupants in span order.
	Resources []ResourceID
}

// AliasingPlan maps logical resources to storage slots.
type AliasingPlan struct {
	Slots  []Slot
	slotOf []int
}

// SlotOf returns the slot of a resource. Resources no pass accesses have no slot.
func (a AliasingPlan) SlotOf(id ResourceID) (int, bool) {
	if int(id) >= len(a.slotOf) || a.slotOf[id] < 0 {
		return -1, false
	}
	return a.slotOf[id], true
}

// Memory summarises the storage the plan needs.
func (a AliasingPlan) Memory() MemoryStats {
	var st MemoryStats
	st.Slots = len(a.Slots)
	for _, s := range a.Slots {
		st.Resources += len(s.Resources)
		st.AliasedBytes += s.Bytes
	}
	return st
}

// MemoryStats compares aliased storage with one allocation per resource.
type MemoryStats struct {
	Resources      int
	Slots          int
	DedicatedBytes uint64
	AliasedBytes   uint64
}

// Saved returns the bytes aliasing saves.
func (s MemoryStats) Saved() uint64 {
	if s.AliasedBytes >= s.DedicatedBytes {
		return 0
	}
	return s.DedicatedBytes - s.AliasedBytes
}

func (s MemoryStats) String() string {
	return fmt.Sprintf("%d resources in %d slots, %.2f MB (dedicated %.2f MB, saved %.2f MB)",
		s.Resources, s.Slots,
		float64(s.AliasedBytes)/(1024*1024),
		float64(s.DedicatedBytes)/(1024*1024),
		float64(s.Saved())/(1024*1024))
}

// plan holds everything derived from a graph's structure. It never refers to
// payloads, so graphs with the same fingerprint can share one plan.
type plan struct {
	order      []PassID
	position   []int // by PassID, -1 when culled
	queue      []QueueType
	deps       []Dependency
	descs      []ResourceDesc // resolved descriptors
	spans      []Span         // by ResourceID, First -1 when unused
	aliasing   AliasingPlan
	dedicated  uint64
	timelines  []Timeline // steps carry no payload
	barriers   int
	semaphores int
}

// Graph is a finalized render graph: frozen topology plus the derived
// schedule, aliasing plan and synchronized timelines. A Graph is immutable
// and safe for concurrent use.
type Graph struct {
	resources   []resourceRecord
	passes      []passRecord
	log         []AccessRecord
	outputs     []ResourceID
	opts        options
	fingerprint uint64

	plan      *plan
	timelines []Timeline
}

// NumPasses returns the number of declared passes, culled ones included.
func (g *Graph) NumPasses() int { return len(g.passes) }

// NumResources returns the number of declared resources.
func (g *Graph) NumResources() int { return len(g.resources) }

// Pass returns the declaration of a pass.
func (g *Graph) Pass(id PassID) PassDesc { return g.passes[id].desc }

// PassName returns the pass name, or "passN" for unnamed passes.
func (g *Graph) PassName(id PassID) string {
	if n := g.passes[id].desc.Name; n != "" {
		return n
	}
	return fmt.Sprintf("pass%d", id)
}

// Resource returns the resolved descriptor of a resource. Derived
// descriptors carry the size and format inferred at finalize.
func (g *Graph) Resource(id ResourceID) ResourceDesc { return g.plan.descs[id] }

// ResourceName returns the resource label, or "resourceN" for unlabelled ones.
func (g *Graph) ResourceName(id ResourceID) string {
	if l := g.resources[id].desc.Label; l != "" {
		return l
	}
	return fmt.Sprintf("resource%d", id)
}

// Accesses returns the accesses of a resource in record order.
func (g *Graph) Accesses(id ResourceID) []AccessRecord {
	idx := g.resources[id].accesses
	out := make([]AccessRecord, len(idx))
	for i, j := range idx {
		out[i] = g.log[j]
	}
	return out
}

// PassAccesses returns the accesses of a pass in record order.
func (g *Graph) PassAccesses(id PassID) []AccessRecord {
	idx := g.passes[id].accesses
	out := make([]AccessRecord, len(idx))
	for i, j := range idx {
		out[i] = g.log[j]
	}
	return out
}

// Outputs returns the resources marked as graph outputs.
func (g *Graph) Outputs() []ResourceID { return append([]ResourceID(nil), g.outputs...) }

// IsOutput reports whether a resource was marked as a graph output.
func (g *Graph) IsOutput(id ResourceID) bool { return g.resources[id].output }

// Order returns the scheduled passes in global order.
func (g *Graph) Order() []PassID { return append([]PassID(nil), g.plan.order...) }

// Position returns the global position of a pass; false when it was culled.
func (g *Graph) Position(id PassID) (int, bool) {
	p := g.plan.position[id]
	return p, p >= 0
}

// Culled reports whether a pass was removed because it feeds no output.
func (g *Graph) Culled(id PassID) bool { return g.plan.position[id] < 0 }

// Queue returns the queue a scheduled pass runs on.
func (g *Graph) Queue(id PassID) QueueType { return g.plan.queue[id] }

// Dependencies returns the derived dependencies between scheduled passes.
func (g *Graph) Dependencies() []Dependency { return append([]Dependency(nil), g.plan.deps...) }

// CrossQueue returns the dependencies whose passes run on different queues.
func (g *Graph) CrossQueue() []Dependency {
	var out []Dependency
	for _, d := range g.plan.deps {
		if g.plan.queue[d.From] != g.plan.queue[d.To] {
			out = append(out, d)
		}
	}
	return out
}

// Timelines returns one timeline per queue that has work, ordered graphics,
// compute, transfer. The returned slices must not be modified.
func (g *Graph) Timelines() []Timeline { return g.timelines }

// Timeline returns the timeline of queue q.
func (g *Graph) Timeline(q QueueType) (Timeline, bool) {
	for _, t := range g.timelines {
		if t.Queue == q {
			return t, true
		}
	}
	return Timeline{}, false
}

// Aliasing returns a copy of the storage aliasing plan. Graphs finalized
// through one PlanCache share the underlying plan.
func (g *Graph) Aliasing() AliasingPlan {
	a := g.plan.aliasing
	slots := make([]Slot, len(a.Slots))
	for i, s := range a.Slots {
		s.Resources = append([]ResourceID(nil), s.Resources...)
		slots[i] = s
	}
	a.Slots = slots
	return a
}

// Span returns the live span of a resource; false when no scheduled pass uses it.
func (g *Graph) Span(id ResourceID) (Span, bool) {
	s := g.plan.spans[id]
	return s, s.First >= 0
}

// Memory returns storage statistics of the aliasing plan.
func (g *Graph) Memory() MemoryStats {
	st := g.plan.aliasing.Memory()
	st.DedicatedBytes = g.plan.dedicated
	return st
}

// Backbuffer returns the back buffer extent and format the graph was built for.
func (g *Graph) Backbuffer() (gputypes.Extent3D, gputypes.TextureFormat) {
	return g.opts.backbuffer, g.opts.backbufferFormat
}

// Fingerprint returns the structural hash of the declarations.
func (g *Graph) Fingerprint() uint64 { return g.fingerprint }

// bindTimelines copies the plan's timelines and fills in payloads and names.
func (g *Graph) bindTimelines() []Timeline {
	out := make([]Timeline, len(g.plan.timelines))
	for i, t := range g.plan.timelines {
		steps := make([]Step, len(t.Steps))
		for j, s := range t.Steps {
			s.Name = g.PassName(s.Pass)
			s.Kind = g.passes[s.Pass].desc.Kind
			s.Payload = g.passes[s.Pass].desc.Payload
			steps[j] = s
		}
		out[i] = Timeline{Queue: t.Queue, Steps: steps}
	}
	return out
}
