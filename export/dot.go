// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gogpu/rendergraph"
)

// queueColors fills pass boxes by queue.
var queueColors = map[rendergraph.QueueType]string{
	rendergraph.QueueGraphics: "#a6cee3",
	rendergraph.QueueCompute:  "#b2df8a",
	rendergraph.QueueTransfer: "#fdbf6f",
}

// DOT renders the static graph in Graphviz syntax. Passes are boxes
// labelled "[Kind] position - name" and filled by queue; resources are
// ovals with their descriptor and slot. Writes point from pass to
// resource, reads from resource to pass, and derived dependencies are
// dashed edges labelled with their hazard.
type DOT struct{}

// Name implements Exporter.
func (DOT) Name() string { return NameDOT }

// Export implements Exporter.
func (DOT) Export(w io.Writer, g *rendergraph.Graph) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph rendergraph {")
	fmt.Fprintln(bw, "  rankdir=LR;")
	fmt.Fprintln(bw, `  node [fontname="Helvetica", fontsize=10];`)
	fmt.Fprintln(bw, `  edge [fontname="Helvetica", fontsize=9];`)

	for i := range g.NumPasses() {
		id := rendergraph.PassID(i)
		desc := g.Pass(id)
		pos, ok := g.Position(id)
		if !ok {
			label := fmt.Sprintf("[%s] culled - %s", desc.Kind, g.PassName(id))
			fmt.Fprintf(bw, "  p%d [shape=box, style=dashed, label=%s];\n", i, quote(label))
			continue
		}
		label := fmt.Sprintf("[%s] %d - %s", desc.Kind, pos, g.PassName(id))
		fmt.Fprintf(bw, "  p%d [shape=box, style=filled, fillcolor=%q, label=%s];\n",
			i, queueColors[g.Queue(id)], quote(label))
	}

	slots := g.Aliasing()
	for i := range g.NumResources() {
		id := rendergraph.ResourceID(i)
		label := g.ResourceName(id) + "\n" + g.Resource(id).String()
		if slot, ok := slots.SlotOf(id); ok {
			label += "\nslot " + strconv.Itoa(slot)
		} else {
			label += "\nunused"
		}
		shape := "ellipse"
		if g.IsOutput(id) {
			shape = "doublecircle"
		}
		fmt.Fprintf(bw, "  r%d [shape=%s, label=%s];\n", i, shape, quote(label))
	}

	for i := range g.NumPasses() {
		for _, a := range g.PassAccesses(rendergraph.PassID(i)) {
			if a.Usage.Access().Writes() {
				fmt.Fprintf(bw, "  p%d -> r%d [label=%q];\n", a.Pass, a.Resource, a.Usage.String())
			} else {
				fmt.Fprintf(bw, "  r%d -> p%d [label=%q];\n", a.Resource, a.Pass, a.Usage.String())
			}
		}
	}

	for _, d := range g.Dependencies() {
		fmt.Fprintf(bw, "  p%d -> p%d [style=dashed, color=gray40, constraint=false, label=%q];\n",
			d.From, d.To, d.Hazard.String())
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

// quote escapes s as a DOT string, keeping newlines as \n.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return `"` + s + `"`
}
