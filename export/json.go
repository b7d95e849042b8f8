// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gogpu/rendergraph"
)

// JSON writes the event timeline of every queue together with passes,
// resources, slots and memory statistics.
type JSON struct {
	// Indent, when set, pretty-prints the document.
	Indent string
}

// Name implements Exporter.
func (JSON) Name() string { return NameJSON }

// Document is the JSON export schema.
type Document struct {
	Fingerprint string          `json:"fingerprint"`
	Passes      []PassEntry     `json:"passes"`
	Resources   []ResourceEntry `json:"resources"`
	Slots       []SlotEntry     `json:"slots"`
	Queues      []QueueEntry    `json:"queues"`
	Memory      MemoryEntry     `json:"memory"`
}

// PassEntry describes one declared pass.
type PassEntry struct {
	ID       uint32 `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Queue    string `json:"queue,omitempty"`
	Position int    `json:"position"`
	Culled   bool   `json:"culled,omitempty"`
}

// ResourceEntry describes one declared resource.
type ResourceEntry struct {
	ID     uint32 `json:"id"`
	Name   string `json:"name"`
	Desc   string `json:"desc"`
	Slot   int    `json:"slot"`
	First  int    `json:"first"`
	Last   int    `json:"last"`
	Output bool   `json:"output,omitempty"`
}

// SlotEntry describes one storage slot.
type SlotEntry struct {
	Index     int      `json:"index"`
	Kind      string   `json:"kind"`
	Bytes     uint64   `json:"bytes"`
	Resources []uint32 `json:"resources"`
}

// QueueEntry is the flattened timeline of one queue.
type QueueEntry struct {
	Queue  string       `json:"queue"`
	Events []EventEntry `json:"events"`
}

// EventEntry is one pass or synchronization event.
type EventEntry struct {
	Seq    int    `json:"seq"`
	Kind   string `json:"kind"`
	Pass   string `json:"pass"`
	Detail string `json:"detail,omitempty"`
}

// MemoryEntry summarises the aliasing plan.
type MemoryEntry struct {
	Dedicated uint64 `json:"dedicated"`
	Aliased   uint64 `json:"aliased"`
	Saved     uint64 `json:"saved"`
}

// Export implements Exporter.
func (j JSON) Export(w io.Writer, g *rendergraph.Graph) error {
	enc := json.NewEncoder(w)
	if j.Indent != "" {
		enc.SetIndent("", j.Indent)
	}
	if err := enc.Encode(NewDocument(g)); err != nil {
		return fmt.Errorf("export: encode json: %w", err)
	}
	return nil
}

// NewDocument builds the JSON export schema for g.
func NewDocument(g *rendergraph.Graph) Document {
	doc := Document{
		Fingerprint: fmt.Sprintf("%016x", g.Fingerprint()),
		Passes:      make([]PassEntry, g.NumPasses()),
		Resources:   make([]ResourceEntry, g.NumResources()),
		Slots:       []SlotEntry{},
		Queues:      []QueueEntry{},
	}

	for i := range doc.Passes {
		id := rendergraph.PassID(i)
		e := PassEntry{ID: uint32(id), Name: g.PassName(id), Kind: g.Pass(id).Kind.String(), Position: -1}
		if pos, ok := g.Position(id); ok {
			e.Position = pos
			e.Queue = g.Queue(id).String()
		} else {
			e.Culled = true
		}
		doc.Passes[i] = e
	}

	al := g.Aliasing()
	for i := range doc.Resources {
		id := rendergraph.ResourceID(i)
		e := ResourceEntry{
			ID:     uint32(id),
			Name:   g.ResourceName(id),
			Desc:   g.Resource(id).String(),
			Slot:   -1,
			First:  -1,
			Last:   -1,
			Output: g.IsOutput(id),
		}
		if slot, ok := al.SlotOf(id); ok {
			e.Slot = slot
		}
		if span, ok := g.Span(id); ok {
			e.First, e.Last = span.First, span.Last
		}
		doc.Resources[i] = e
	}

	for _, s := range al.Slots {
		e := SlotEntry{Index: s.Index, Kind: s.Kind.String(), Bytes: s.Bytes, Resources: make([]uint32, len(s.Resources))}
		for k, r := range s.Resources {
			e.Resources[k] = uint32(r)
		}
		doc.Slots = append(doc.Slots, e)
	}

	for _, tl := range g.Timelines() {
		q := QueueEntry{Queue: tl.Queue.String(), Events: []EventEntry{}}
		for _, ev := range tl.Events() {
			q.Events = append(q.Events, EventEntry{
				Seq:    ev.Seq,
				Kind:   ev.Kind.String(),
				Pass:   g.PassName(ev.Pass),
				Detail: eventDetail(g, ev),
			})
		}
		doc.Queues = append(doc.Queues, q)
	}

	m := g.Memory()
	doc.Memory = MemoryEntry{Dedicated: m.DedicatedBytes, Aliased: m.AliasedBytes, Saved: m.Saved()}
	return doc
}

func eventDetail(g *rendergraph.Graph, ev rendergraph.Event) string {
	switch ev.Kind {
	case rendergraph.EventBarrier:
		b := ev.Sync.Barrier
		return fmt.Sprintf("%s %s->%s %s->%s %s", g.ResourceName(b.Resource),
			b.From, b.To, b.OldLayout, b.NewLayout, b.Hazard)
	case rendergraph.EventAlias:
		a := ev.Sync.Alias
		return fmt.Sprintf("slot %d %s->%s", a.Slot, g.ResourceName(a.Previous), g.ResourceName(a.Next))
	case rendergraph.EventWait, rendergraph.EventSignal:
		return ev.Sync.Semaphore.String()
	}
	return ""
}
