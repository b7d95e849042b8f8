// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graphfile

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rendergraph"
)

// Names maps the names used in a document to builder ids.
type Names struct {
	Resources map[string]rendergraph.ResourceID
	Passes    map[string]rendergraph.PassID
}

// Options converts the document options. A nil options block yields nil.
func (d *Document) Options() ([]rendergraph.Option, error) {
	o := d.Config
	if o == nil {
		return nil, nil
	}

	var opts []rendergraph.Option
	if o.Adapter != "" {
		if len(o.Queues) > 0 {
			return nil, fmt.Errorf("graphfile: options: adapter and queues are mutually exclusive")
		}
		t, ok := rendergraph.ParseAdapterType(o.Adapter)
		if !ok {
			return nil, fmt.Errorf("graphfile: options: unknown adapter %q", o.Adapter)
		}
		opts = append(opts, rendergraph.WithQueues(rendergraph.ProfileForAdapter(gpucontext.AdapterInfo{Type: t})))
	}
	if len(o.Queues) > 0 {
		qs := make([]rendergraph.QueueType, 0, len(o.Queues))
		for _, name := range o.Queues {
			q, ok := rendergraph.ParseQueue(name)
			if !ok || q == rendergraph.QueueAny {
				return nil, fmt.Errorf("graphfile: options: unknown queue %q", name)
			}
			qs = append(qs, q)
		}
		opts = append(opts, rendergraph.WithQueues(rendergraph.NewQueueProfile(qs...)))
	}
	if o.DefaultQueue != "" {
		q, ok := rendergraph.ParseQueue(o.DefaultQueue)
		if !ok {
			return nil, fmt.Errorf("graphfile: options: unknown default queue %q", o.DefaultQueue)
		}
		opts = append(opts, rendergraph.WithDefaultQueue(q))
	}
	if o.Aliasing != nil {
		opts = append(opts, rendergraph.WithAliasing(*o.Aliasing))
	}
	if o.AliasPolicy != "" {
		p, ok := rendergraph.ParseAliasPolicy(o.AliasPolicy)
		if !ok {
			return nil, fmt.Errorf("graphfile: options: unknown alias policy %q", o.AliasPolicy)
		}
		opts = append(opts, rendergraph.WithAliasPolicy(p))
	}
	if o.Culling {
		opts = append(opts, rendergraph.WithCulling(true))
	}
	if bb := o.Backbuffer; bb != nil {
		format := gputypes.TextureFormatUndefined
		if bb.Format != "" {
			f, ok := rendergraph.ParseFormat(bb.Format)
			if !ok {
				return nil, fmt.Errorf("graphfile: options: unknown back buffer format %q", bb.Format)
			}
			format = f
		}
		opts = append(opts, rendergraph.WithBackbuffer(gputypes.NewExtent2D(bb.Width, bb.Height), format))
	}
	return opts, nil
}

// Build replays the document onto a new builder. Document options are
// applied first, so opts override them.
func (d *Document) Build(opts ...rendergraph.Option) (*rendergraph.Builder, *Names, error) {
	docOpts, err := d.Options()
	if err != nil {
		return nil, nil, err
	}
	b := rendergraph.NewBuilder(append(docOpts, opts...)...)
	names := &Names{
		Resources: make(map[string]rendergraph.ResourceID, len(d.Resources)),
		Passes:    make(map[string]rendergraph.PassID, len(d.Passes)),
	}

	for _, r := range d.Resources {
		if _, dup := names.Resources[r.Name]; dup {
			return nil, nil, fmt.Errorf("graphfile: resource %q declared twice", r.Name)
		}
		desc, err := r.desc()
		if err != nil {
			return nil, nil, err
		}
		id, err := b.DeclareResource(desc)
		if err != nil {
			return nil, nil, fmt.Errorf("graphfile: resource %q: %w", r.Name, err)
		}
		names.Resources[r.Name] = id
	}

	resource := func(ctx, name string) (rendergraph.ResourceID, error) {
		id, ok := names.Resources[name]
		if !ok {
			return 0, fmt.Errorf("graphfile: %s: undeclared resource %q: %w", ctx, name, rendergraph.ErrUnknownResource)
		}
		return id, nil
	}

	for _, p := range d.Passes {
		if _, dup := names.Passes[p.Name]; dup {
			return nil, nil, fmt.Errorf("graphfile: pass %q declared twice", p.Name)
		}
		kind, ok := rendergraph.ParsePassKind(p.Kind)
		if !ok {
			return nil, nil, fmt.Errorf("graphfile: pass %q: unknown kind %q", p.Name, p.Kind)
		}
		queue := rendergraph.QueueAny
		if p.Queue != "" {
			if queue, ok = rendergraph.ParseQueue(p.Queue); !ok {
				return nil, nil, fmt.Errorf("graphfile: pass %q: unknown queue %q", p.Name, p.Queue)
			}
		}
		pid, err := b.AddPass(rendergraph.PassDesc{Name: p.Name, Kind: kind, Queue: queue})
		if err != nil {
			return nil, nil, fmt.Errorf("graphfile: pass %q: %w", p.Name, err)
		}
		names.Passes[p.Name] = pid

		for _, u := range p.Uses {
			res, err := resource("pass "+quote(p.Name), u.Resource)
			if err != nil {
				return nil, nil, err
			}
			usage, ok := rendergraph.ParseUsage(u.Usage)
			if !ok {
				return nil, nil, fmt.Errorf("graphfile: pass %q: unknown usage %q", p.Name, u.Usage)
			}
			if err := b.UseResource(pid, res, usage); err != nil {
				return nil, nil, fmt.Errorf("graphfile: pass %q: %w", p.Name, err)
			}
		}
	}

	for _, name := range d.Outputs {
		id, err := resource("outputs", name)
		if err != nil {
			return nil, nil, err
		}
		if err := b.MarkOutput(id); err != nil {
			return nil, nil, fmt.Errorf("graphfile: output %q: %w", name, err)
		}
	}

	for _, a := range d.Aliases {
		var first rendergraph.ResourceID
		for i, name := range a.Resources {
			id, err := resource("alias", name)
			if err != nil {
				return nil, nil, err
			}
			if i == 0 {
				first = id
				continue
			}
			if err := b.RequireAlias(first, id); err != nil {
				return nil, nil, fmt.Errorf("graphfile: alias %q: %w", name, err)
			}
		}
	}
	return b, names, nil
}

func (r ResourceSpec) desc() (rendergraph.ResourceDesc, error) {
	var d rendergraph.ResourceDesc
	switch r.Kind {
	case "image", "texture":
		d.Kind = rendergraph.KindImage
	case "buffer":
		d.Kind = rendergraph.KindBuffer
	default:
		return d, fmt.Errorf("graphfile: resource %q: unknown kind %q", r.Name, r.Kind)
	}
	sizing, ok := rendergraph.ParseSizing(r.Sizing)
	if !ok {
		return d, fmt.Errorf("graphfile: resource %q: unknown sizing %q", r.Name, r.Sizing)
	}
	if r.Format != "" {
		f, ok := rendergraph.ParseFormat(r.Format)
		if !ok {
			return d, fmt.Errorf("graphfile: resource %q: unknown format %q", r.Name, r.Format)
		}
		d.Format = f
	}

	d.Label = r.Name
	d.Sizing = sizing
	d.Scale = r.Scale
	d.Size = r.Size
	d.Imported = r.Imported
	if d.Kind == rendergraph.KindImage && sizing == rendergraph.SizingFixed {
		d.Extent = gputypes.Extent3D{Width: r.Width, Height: r.Height, DepthOrArrayLayers: max(r.Layers, 1)}
	}
	return d, nil
}

func quote(s string) string { return fmt.Sprintf("%q", s) }
