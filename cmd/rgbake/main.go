// Command rgbake finalizes a render graph file and prints its schedule.
//
// Usage:
//
//	rgbake [flags] graph.{yaml,toml,hcl}
//
// The per-queue timelines and memory statistics go to stdout. -dot,
// -mermaid and -json additionally write diagrams, and -watch re-bakes
// whenever the file changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/rendergraph"
)

func main() {
	var (
		dotOut     = flag.String("dot", "", "write a Graphviz diagram to `file`")
		mermaidOut = flag.String("mermaid", "", "write a Mermaid gantt chart to `file`")
		jsonOut    = flag.String("json", "", "write the JSON event timeline to `file`")
		adapter    = flag.String("adapter", "", "schedule for an adapter class: discrete, integrated or software")
		queues     = flag.String("queues", "", "comma separated queue families, e.g. graphics,compute")
		alias      = flag.String("alias", "", "alias policy: exact or roundup")
		cull       = flag.Bool("cull", false, "drop passes that do not reach an output")
		watch      = flag.Bool("watch", false, "re-bake when the file changes")
		verbose    = flag.Bool("v", false, "log scheduling decisions")
		noColor    = flag.Bool("no-color", false, "disable colored output")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: rgbake [flags] graph.{yaml,toml,hcl}\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	rendergraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	opts, err := flagOptions(*adapter, *queues, *alias, *cull)
	if err != nil {
		fatal(err)
	}
	cfg := config{
		path:    flag.Arg(0),
		opts:    opts,
		outputs: map[string]string{"dot": *dotOut, "mermaid": *mermaidOut, "json": *jsonOut},
		color:   !*noColor,
	}

	if !*watch {
		if err := bake(os.Stdout, cfg); err != nil {
			fatal(err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := watchFile(ctx, os.Stdout, cfg); err != nil {
		fatal(err)
	}
}

// flagOptions turns the scheduling flags into builder options. They are
// applied after the options of the graph file.
func flagOptions(adapter, queues, alias string, cull bool) ([]rendergraph.Option, error) {
	var opts []rendergraph.Option
	if adapter != "" {
		if queues != "" {
			return nil, fmt.Errorf("-adapter and -queues are mutually exclusive")
		}
		t, ok := rendergraph.ParseAdapterType(adapter)
		if !ok {
			return nil, fmt.Errorf("unknown adapter %q", adapter)
		}
		opts = append(opts, rendergraph.WithQueues(rendergraph.ProfileForAdapter(gpucontext.AdapterInfo{Type: t})))
	}
	if queues != "" {
		var qs []rendergraph.QueueType
		for _, name := range strings.Split(queues, ",") {
			q, ok := rendergraph.ParseQueue(name)
			if !ok || q == rendergraph.QueueAny {
				return nil, fmt.Errorf("unknown queue %q", name)
			}
			qs = append(qs, q)
		}
		opts = append(opts, rendergraph.WithQueues(rendergraph.NewQueueProfile(qs...)))
	}
	if alias != "" {
		p, ok := rendergraph.ParseAliasPolicy(alias)
		if !ok {
			return nil, fmt.Errorf("unknown alias policy %q", alias)
		}
		opts = append(opts, rendergraph.WithAliasPolicy(p))
	}
	if cull {
		opts = append(opts, rendergraph.WithCulling(true))
	}
	return opts, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "rgbake: %v\n", err)
	os.Exit(1)
}
