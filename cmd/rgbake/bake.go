package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/muesli/termenv"

	"github.com/gogpu/rendergraph"
	"github.com/gogpu/rendergraph/export"
	"github.com/gogpu/rendergraph/graphfile"
)

type config struct {
	path    string
	opts    []rendergraph.Option
	outputs map[string]string // exporter name -> file, empty to skip
	color   bool
	cache   *rendergraph.PlanCache // reused across re-bakes in watch mode
}

var queueColors = map[rendergraph.QueueType]string{
	rendergraph.QueueGraphics: "#a6cee3",
	rendergraph.QueueCompute:  "#b2df8a",
	rendergraph.QueueTransfer: "#fdbf6f",
}

// bake loads, finalizes and reports one graph file.
func bake(w io.Writer, cfg config) error {
	doc, err := graphfile.Load(cfg.path)
	if err != nil {
		return err
	}
	opts := cfg.opts
	if cfg.cache != nil {
		opts = append(opts[:len(opts):len(opts)], rendergraph.WithPlanCache(cfg.cache))
	}
	b, _, err := doc.Build(opts...)
	if err != nil {
		return err
	}
	g, err := b.Finalize()
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.path, err)
	}

	out := termenv.NewOutput(w)
	if !cfg.color {
		out = termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))
	}
	printGraph(w, out, cfg.path, g)
	if cfg.cache != nil {
		st := cfg.cache.Stats()
		fmt.Fprintf(w, "plan cache: %d plans, %d hits, %.0f%% hit rate\n", st.Plans, st.Hits, 100*st.HitRate)
	}
	return writeExports(g, cfg.outputs)
}

func printGraph(w io.Writer, out *termenv.Output, path string, g *rendergraph.Graph) {
	fmt.Fprintf(w, "%s: %d passes on %d queues, fingerprint %016x\n",
		out.String(path).Bold(), len(g.Order()), len(g.Timelines()), g.Fingerprint())

	for _, tl := range g.Timelines() {
		title := out.String(tl.Queue.String()).Bold().Foreground(out.Color(queueColors[tl.Queue]))
		fmt.Fprintf(w, "\n%s\n", title)
		for _, s := range tl.Steps {
			for _, e := range s.Pre {
				fmt.Fprintf(w, "      %s\n", out.String(describe(g, e)).Faint())
			}
			pos, _ := g.Position(s.Pass)
			fmt.Fprintf(w, "  %3d %s [%s]\n", pos, s.Name, s.Kind)
			for _, e := range s.Post {
				fmt.Fprintf(w, "      %s\n", out.String(describe(g, e)).Faint())
			}
		}
	}

	var culled []string
	for i := range g.NumPasses() {
		if id := rendergraph.PassID(i); g.Culled(id) {
			culled = append(culled, g.PassName(id))
		}
	}
	if len(culled) > 0 {
		fmt.Fprintf(w, "\nculled: %v\n", culled)
	}
	fmt.Fprintf(w, "\nmemory: %s\n", g.Memory())
}

func describe(g *rendergraph.Graph, e rendergraph.SyncEvent) string {
	switch e.Kind {
	case rendergraph.SyncBarrier:
		b := e.Barrier
		return fmt.Sprintf("barrier %s %s -> %s (%s)", g.ResourceName(b.Resource), b.From, b.To, b.Hazard)
	case rendergraph.SyncAlias:
		a := e.Alias
		return fmt.Sprintf("alias slot %d %s -> %s", a.Slot, g.ResourceName(a.Previous), g.ResourceName(a.Next))
	case rendergraph.SyncWait:
		return "wait " + e.Semaphore.String()
	default:
		return "signal " + e.Semaphore.String()
	}
}

func writeExports(g *rendergraph.Graph, outputs map[string]string) error {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := outputs[name]
		if path == "" {
			continue
		}
		e, ok := export.Lookup(name)
		if !ok {
			return fmt.Errorf("no exporter %q", name)
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := e.Export(f, g); err != nil {
			f.Close()
			return fmt.Errorf("export %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		rendergraph.Logger().Debug("rgbake: wrote export", "format", name, "path", path)
	}
	return nil
}
