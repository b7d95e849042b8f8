// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/gogpu/rendergraph"
)

// Gantt geometry: every global position owns a cell; its pre-sync markers
// sit in the first unit and the pass fills the rest.
const (
	cellWidth = 12
	passWidth = 10
)

// Mermaid renders a gantt chart with one section per queue and a section
// of resource lifetimes. Passes are placed at their global position so
// that work on different queues lines up; barriers, alias hand-offs and
// waits are one-unit critical markers before the pass, signals are
// milestones after it.
type Mermaid struct{}

// Name implements Exporter.
func (Mermaid) Name() string { return NameMermaid }

// Export implements Exporter.
func (Mermaid) Export(w io.Writer, g *rendergraph.Graph) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "gantt")
	fmt.Fprintln(bw, "    title render graph")
	fmt.Fprintln(bw, "    dateFormat X")
	fmt.Fprintln(bw, "    axisFormat %S")

	for _, tl := range g.Timelines() {
		fmt.Fprintf(bw, "    section %s\n", tl.Queue)
		for _, s := range tl.Steps {
			pos, _ := g.Position(s.Pass)
			start := pos * cellWidth
			for _, e := range s.Pre {
				fmt.Fprintf(bw, "    %s :crit, %d, %d\n", syncLabel(g, e), start, start+1)
			}
			fmt.Fprintf(bw, "    %s :p%d, %d, %d\n", text(s.Name), s.Pass, start+1, start+1+passWidth)
			for _, e := range s.Post {
				end := start + 1 + passWidth
				fmt.Fprintf(bw, "    %s :milestone, %d, %d\n", syncLabel(g, e), end, end)
			}
		}
	}

	fmt.Fprintln(bw, "    section lifetimes")
	slots := g.Aliasing()
	for i := range g.NumResources() {
		id := rendergraph.ResourceID(i)
		span, ok := g.Span(id)
		if !ok {
			continue
		}
		slot, _ := slots.SlotOf(id)
		fmt.Fprintf(bw, "    %s slot %d :active, %d, %d\n",
			text(g.ResourceName(id)), slot, span.First*cellWidth, (span.Last+1)*cellWidth)
	}
	return bw.Flush()
}

func syncLabel(g *rendergraph.Graph, e rendergraph.SyncEvent) string {
	switch e.Kind {
	case rendergraph.SyncBarrier:
		b := e.Barrier
		return text(fmt.Sprintf("barrier %s %s to %s", g.ResourceName(b.Resource), b.From, b.To))
	case rendergraph.SyncAlias:
		a := e.Alias
		return text(fmt.Sprintf("alias %s to %s", g.ResourceName(a.Previous), g.ResourceName(a.Next)))
	case rendergraph.SyncWait:
		return text("wait " + e.Semaphore.String())
	default:
		return text("signal " + e.Semaphore.String())
	}
}

// text removes characters that end a gantt task name.
func text(s string) string {
	return strings.NewReplacer(":", " ", ";", " ", "#", " ").Replace(s)
}
