package rendergraph

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// PassDesc declares a pass.
type PassDesc struct {
	// Name labels the pass in errors and diagnostics.
	Name string
	// Kind is the class of work the pass records.
	Kind PassKind
	// Queue is the queue hint. QueueAny lets the scheduler choose.
	Queue QueueType
	// Payload is the work itself. The graph hands it back untouched in Step.Payload.
	Payload any
}

// Builder accumulates passes, resources and accesses for one graph.
//
// A Builder is used from one goroutine. Finalize freezes it; afterwards
// every mutating method returns ErrGraphFrozen.
//
// Example:
//
//	b := rendergraph.NewBuilder()
//	color, _ := b.DeclareResource(rendergraph.Image("color", gputypes.TextureFormatRGBA8Unorm, 1920, 1080))
//	draw, _ := b.AddPass(rendergraph.PassDesc{Name: "draw", Kind: rendergraph.PassGraphics})
//	_ = b.UseResource(draw, color, rendergraph.UsageColorAttachment)
//	g, err := b.Finalize()
type Builder struct {
	Registry

	opts    options
	demands [][2]ResourceID
	outputs []ResourceID
}

// NewBuilder creates an empty builder.
func NewBuilder(opts ...Option) *Builder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Builder{opts: o}
}

// AddPass declares a pass and returns its id. Ids follow declaration order,
// which is also the scheduling tie-break.
func (b *Builder) AddPass(desc PassDesc) (PassID, error) {
	if b.frozen {
		return 0, ErrGraphFrozen
	}
	if int(desc.Kind) >= len(passKindNames) {
		return 0, graphErrorf(ErrInvalidUsage, "pass %q has unknown kind %d", desc.Name, desc.Kind)
	}
	if int(desc.Queue) >= len(queueNames) {
		return 0, graphErrorf(ErrInvalidUsage, "pass %q has unknown queue %d", desc.Name, desc.Queue)
	}
	id := PassID(len(b.passes))
	b.passes = append(b.passes, passRecord{desc: desc})
	b.succ = append(b.succ, nil)
	return id, nil
}

// UseResource wires pass to res with the given usage. See RecordAccess.
func (b *Builder) UseResource(pass PassID, res ResourceID, usage Usage) error {
	return b.RecordAccess(res, pass, usage)
}

// RequireAlias demands that a and c share one storage slot. Finalize fails
// with *IncompatibleAliasError if their descriptors or lifetimes forbid it.
func (b *Builder) RequireAlias(a, c ResourceID) error {
	if b.frozen {
		return ErrGraphFrozen
	}
	for _, id := range [...]ResourceID{a, c} {
		if int(id) >= len(b.resources) {
			return &UnknownResourceError{Resource: id}
		}
	}
	if a != c {
		b.demands = append(b.demands, [2]ResourceID{a, c})
	}
	return nil
}

// MarkOutput marks res as a graph output, such as the back buffer. With
// culling enabled, passes that contribute to no output are dropped.
func (b *Builder) MarkOutput(res ResourceID) error {
	if b.frozen {
		return ErrGraphFrozen
	}
	if int(res) >= len(b.resources) {
		return &UnknownResourceError{Resource: res}
	}
	if !b.resources[res].output {
		b.resources[res].output = true
		b.outputs = append(b.outputs, res)
	}
	return nil
}

// NumPasses returns the number of declared passes.
func (b *Builder) NumPasses() int { return len(b.passes) }

// Frozen reports whether Finalize has been called successfully or has
// failed past the empty-graph check.
func (b *Builder) Frozen() bool { return b.frozen }

// Finalize freezes the builder and compiles the graph: dependency
// resolution, queue assignment, lifetime aliasing and synchronization.
//
// With zero passes it returns ErrEmptyGraph and the builder stays open.
// Any other failure is fatal to this builder: no partial Graph is returned
// and later calls return ErrGraphFrozen.
func (b *Builder) Finalize() (*Graph, error) {
	if b.frozen {
		return nil, ErrGraphFrozen
	}
	if len(b.passes) == 0 {
		return nil, ErrEmptyGraph
	}
	b.frozen = true

	canon := b.canonical()
	g := &Graph{
		resources:   b.resources,
		passes:      b.passes,
		log:         b.log,
		outputs:     b.outputs,
		opts:        b.opts,
		fingerprint: fingerprint(canon),
	}

	log := Logger()
	if c := b.opts.cache; c != nil {
		if p, ok := c.lookup(g.fingerprint, canon); ok {
			log.Debug("rendergraph: plan cache hit", "fingerprint", g.fingerprint)
			g.plan = p
			g.timelines = g.bindTimelines()
			return g, nil
		}
	}

	p, err := compile(g, b.deps, b.demands)
	if err != nil {
		return nil, err
	}
	g.plan = p
	g.timelines = g.bindTimelines()

	if c := b.opts.cache; c != nil {
		c.store(g.fingerprint, canon, p)
	}

	log.Info("rendergraph: finalized",
		"passes", len(p.order),
		"queues", len(p.timelines),
		"slots", len(p.aliasing.Slots),
		"barriers", p.barriers,
		"semaphores", p.semaphores)
	return g, nil
}

// Fingerprint hashes the declarations recorded so far: descriptors, pass
// declarations without payloads, the access log, outputs, alias demands and
// options. Two builders fed the same calls have the same fingerprint.
func (b *Builder) Fingerprint() uint64 {
	return fingerprint(b.canonical())
}

func fingerprint(canon []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(canon) // fnv.Write never returns an error
	return h.Sum64()
}

// canonical encodes everything that shapes the compiled plan.
func (b *Builder) canonical() []byte {
	var buf []byte
	u32 := func(v uint32) { buf = binary.LittleEndian.AppendUint32(buf, v) }
	u64 := func(v uint64) { buf = binary.LittleEndian.AppendUint64(buf, v) }
	str := func(s string) {
		u32(uint32(len(s)))
		buf = append(buf, s...)
	}
	flag := func(v bool) {
		if v {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}

	o := b.opts
	buf = append(buf, byte(o.queues), byte(o.defaultQueue), byte(o.aliasPolicy))
	flag(o.aliasing)
	flag(o.culling)
	u32(o.backbuffer.Width)
	u32(o.backbuffer.Height)
	u32(o.backbuffer.DepthOrArrayLayers)
	u32(uint32(o.backbufferFormat))

	u32(uint32(len(b.resources)))
	for _, r := range b.resources {
		d := r.desc
		str(d.Label)
		buf = append(buf, byte(d.Kind), byte(d.Sizing))
		u32(d.Extent.Width)
		u32(d.Extent.Height)
		u32(d.Extent.DepthOrArrayLayers)
		u32(math.Float32bits(d.Scale))
		u32(uint32(d.Format))
		u64(d.Size)
		flag(d.Imported)
		flag(r.output)
	}

	u32(uint32(len(b.passes)))
	for _, p := range b.passes {
		str(p.desc.Name)
		buf = append(buf, byte(p.desc.Kind), byte(p.desc.Queue))
	}

	u32(uint32(len(b.log)))
	for _, a := range b.log {
		u32(uint32(a.Pass))
		u32(uint32(a.Resource))
		buf = append(buf, byte(a.Usage))
	}

	u32(uint32(len(b.demands)))
	for _, d := range b.demands {
		u32(uint32(d[0]))
		u32(uint32(d[1]))
	}
	return buf
}
