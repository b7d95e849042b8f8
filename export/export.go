// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package export renders finalized render graphs as diagrams and machine
// readable timelines.
//
// Three formats are registered by default:
//   - "dot": the static graph for Graphviz
//   - "mermaid": a gantt chart of the per-queue timelines and resource lifetimes
//   - "json": the event timeline of every queue, slots and spans
//
// Exporters are looked up by name through a gpucontext registry, so tools
// can add formats of their own with Register.
package export

import (
	"io"
	"sort"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/rendergraph"
)

// Exporter writes one representation of a graph.
type Exporter interface {
	// Name is the registry key and the conventional file extension.
	Name() string
	// Export writes g to w. Output is a pure function of g.
	Export(w io.Writer, g *rendergraph.Graph) error
}

// Names of the built-in exporters.
const (
	NameDOT     = "dot"
	NameMermaid = "mermaid"
	NameJSON    = "json"
)

var registry = gpucontext.NewRegistry[Exporter](
	gpucontext.WithPriority(NameDOT, NameMermaid, NameJSON),
)

func init() {
	Register(NameDOT, func() Exporter { return DOT{} })
	Register(NameMermaid, func() Exporter { return Mermaid{} })
	Register(NameJSON, func() Exporter { return JSON{Indent: "  "} })
}

// Register adds or replaces an exporter factory.
func Register(name string, factory func() Exporter) {
	registry.Register(name, factory)
}

// Lookup returns a new exporter registered under name.
func Lookup(name string) (Exporter, bool) {
	if !registry.Has(name) {
		return nil, false
	}
	e := registry.Get(name)
	return e, e != nil
}

// Names returns the registered exporter names in sorted order.
func Names() []string {
	names := registry.Available()
	sort.Strings(names)
	return names
}

// Default returns the highest priority registered exporter, or nil.
func Default() Exporter {
	return registry.Best()
}
