// Package rendergraph builds and schedules frame render graphs.
//
// # Overview
//
// A frame is described as passes that read and write transient resources.
// The package derives everything the caller would otherwise hand-write: the
// order passes run in, which hardware queue runs each one, which resources
// can share storage, and the barriers and semaphores between them.
//
// # Quick Start
//
//	b := rendergraph.NewBuilder(rendergraph.WithQueues(rendergraph.ProfileAsyncCompute))
//
//	gbuf, _ := b.DeclareResource(rendergraph.BackbufferImage("gbuffer", gputypes.TextureFormatRGBA16Float, 1))
//	hdr, _ := b.DeclareResource(rendergraph.BackbufferImage("hdr", gputypes.TextureFormatRGBA16Float, 1))
//
//	geo, _ := b.AddPass(rendergraph.PassDesc{Name: "geometry", Kind: rendergraph.PassGraphics})
//	light, _ := b.AddPass(rendergraph.PassDesc{Name: "lighting", Kind: rendergraph.PassCompute, Queue: rendergraph.QueueCompute})
//
//	_ = b.UseResource(geo, gbuf, rendergraph.UsageColorAttachment)
//	_ = b.UseResource(light, gbuf, rendergraph.UsageShaderRead)
//	_ = b.UseResource(light, hdr, rendergraph.UsageStorageWrite)
//
//	g, err := b.Finalize()
//
// # Pipeline
//
// Finalize runs four stages over the frozen declarations:
//   - Resolve: derived descriptors, topological order, cycle detection and
//     queue assignment
//   - Lifetimes: live spans and a greedy first-fit aliasing plan
//   - Synchronization: barriers within a queue, timeline semaphores across
//     queues
//   - Timelines: one ordered list of steps per queue
//
// Dependencies are discovered while accesses are recorded, in record order,
// so two exclusive writes that nothing orders are rejected immediately with
// a *UsageConflictError.
//
// # Determinism
//
// Equal declarations produce equal graphs. Ties are always broken by
// declaration order, and Builder.Fingerprint hashes the declarations so
// callers (and PlanCache) can recognise a graph they have seen before.
//
// # Related Packages
//
//   - export renders a Graph as Graphviz DOT, Mermaid or JSON
//   - replay walks a Graph's timelines and issues HAL barriers
//   - graphfile loads graph descriptions from YAML, TOML or HCL
//
// # Logging
//
// The package is silent by default. SetLogger installs a *slog.Logger that
// receives finalize summaries and debug traces.
package rendergraph
