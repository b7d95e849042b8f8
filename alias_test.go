package rendergraph

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"
)

// chain builds passes that each write one resource and read the previous
// one, all on the graphics queue.
func chain(t *testing.T, b *Builder, descs ...ResourceDesc) []ResourceID {
	t.Helper()
	ids := make([]ResourceID, len(descs))
	for i, d := range descs {
		ids[i] = mustResource(t, b, d)
	}
	for i, id := range ids {
		p := mustPass(t, b, "step", PassCompute, QueueAny)
		if i > 0 {
			mustUse(t, b, p, ids[i-1], UsageShaderRead)
		}
		mustUse(t, b, p, id, UsageStorageWrite)
	}
	return ids
}

func TestAliasingSequentialResources(t *testing.T) {
	b := NewBuilder()
	ids := chain(t, b, rgba("a"), rgba("b"), rgba("c"), rgba("d"))
	g := mustFinalize(t, b)

	// a and c, b and d never overlap: a [0,1], b [1,2], c [2,3], d [3,3]
	slots := g.Aliasing().Slots
	if len(slots) != 2 {
		t.Fatalf("len(Slots) = %d, want 2: %+v", len(slots), slots)
	}
	want := [][]ResourceID{{ids[0], ids[2]}, {ids[1], ids[3]}}
	for i, s := range slots {
		if diff := cmp.Diff(want[i], s.Resources); diff != "" {
			t.Errorf("slot %d mismatch (-want +got):\n%s", i, diff)
		}
		if s.Bytes != 64*64*4 {
			t.Errorf("slot %d Bytes = %d, want %d", i, s.Bytes, 64*64*4)
		}
	}

	mem := g.Memory()
	if mem.Resources != 4 || mem.Slots != 2 {
		t.Errorf("Memory() = %+v", mem)
	}
	if mem.DedicatedBytes != 4*64*64*4 || mem.AliasedBytes != 2*64*64*4 || mem.Saved() != 2*64*64*4 {
		t.Errorf("Memory() = %+v", mem)
	}
	if got := mem.String(); got != "4 resources in 2 slots, 0.03 MB (dedicated 0.06 MB, saved 0.03 MB)" {
		t.Errorf("Memory().String() = %q", got)
	}
}

func TestAliasingDisabled(t *testing.T) {
	b := NewBuilder(WithAliasing(false))
	chain(t, b, rgba("a"), rgba("b"), rgba("c"))
	g := mustFinalize(t, b)
	if n := len(g.Aliasing().Slots); n != 3 {
		t.Errorf("len(Slots) = %d, want 3", n)
	}
	if g.Memory().Saved() != 0 {
		t.Errorf("Saved() = %d, want 0", g.Memory().Saved())
	}
}

func TestAliasPolicy(t *testing.T) {
	descs := []ResourceDesc{
		Image("big", gputypes.TextureFormatRGBA8Unorm, 128, 128),
		Image("mid", gputypes.TextureFormatRGBA8Unorm, 128, 64),
		Image("small", gputypes.TextureFormatRGBA8Unorm, 32, 32),
	}
	tests := []struct {
		policy AliasPolicy
		slots  int
	}{
		{AliasExact, 3},
		{AliasRoundUp, 2},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			b := NewBuilder(WithAliasPolicy(tt.policy))
			ids := chain(t, b, descs...)
			g := mustFinalize(t, b)
			slots := g.Aliasing().Slots
			if len(slots) != tt.slots {
				t.Fatalf("len(Slots) = %d, want %d", len(slots), tt.slots)
			}
			if tt.policy != AliasRoundUp {
				return
			}
			// big [0,1] and small [2,2] share; mid [1,2] overlaps both
			s, _ := g.Aliasing().SlotOf(ids[0])
			if other, _ := g.Aliasing().SlotOf(ids[2]); other != s {
				t.Errorf("big in slot %d, small in slot %d; want shared", s, other)
			}
			if got := slots[s].Extent; got != gputypes.NewExtent2D(128, 128) {
				t.Errorf("shared slot extent = %v, want 128x128", got)
			}
		})
	}
}

func TestAliasingRespectsKindAndFormat(t *testing.T) {
	b := NewBuilder(WithAliasPolicy(AliasRoundUp))
	chain(t, b,
		rgba("color"),
		Image("hdr", gputypes.TextureFormatRGBA16Float, 64, 64),
		Buffer("buf", 64*64*4),
		Image("color2", gputypes.TextureFormatRGBA8Unorm, 64, 64),
	)
	g := mustFinalize(t, b)
	for _, s := range g.Aliasing().Slots {
		for _, id := range s.Resources {
			d := g.Resource(id)
			if d.Kind != s.Kind || (d.Kind == KindImage && d.Format != s.Format) {
				t.Errorf("%s (%s) placed in slot %d of %s %s", g.ResourceName(id), d, s.Index, s.Kind, s.Format)
			}
		}
	}
	if n := len(g.Aliasing().Slots); n != 3 {
		t.Errorf("len(Slots) = %d, want 3", n)
	}
}

func TestImportedResourcesOwnStorage(t *testing.T) {
	b := NewBuilder()
	swap := rgba("swapchain")
	swap.Imported = true
	ids := chain(t, b, swap, rgba("a"), rgba("b"))
	g := mustFinalize(t, b)
	s, ok := g.Aliasing().SlotOf(ids[0])
	if !ok {
		t.Fatal("imported resource has no slot")
	}
	slot := g.Aliasing().Slots[s]
	if !slot.Imported || len(slot.Resources) != 1 {
		t.Errorf("imported slot = %+v, want a dedicated imported slot", slot)
	}
}

func TestAliasingAcrossQueues(t *testing.T) {
	b := NewBuilder()
	a := mustResource(t, b, Buffer("a", 1024))
	c := mustResource(t, b, Buffer("c", 1024))
	async := mustPass(t, b, "async", PassCompute, QueueCompute)
	gfx := mustPass(t, b, "gfx", PassCompute, QueueGraphics)
	mustUse(t, b, async, a, UsageStorageWrite)
	mustUse(t, b, gfx, c, UsageStorageWrite)

	g := mustFinalize(t, b)
	sa, _ := g.Span(a)
	sc, _ := g.Span(c)
	if sa.Overlaps(sc) {
		t.Fatalf("spans %v and %v overlap", sa, sc)
	}
	slotA, _ := g.Aliasing().SlotOf(a)
	slotC, _ := g.Aliasing().SlotOf(c)
	if slotA == slotC {
		t.Error("unordered passes on different queues must not share storage")
	}

	// the same pair becomes shareable once gfx waits on async
	b = NewBuilder()
	a = mustResource(t, b, Buffer("a", 1024))
	c = mustResource(t, b, Buffer("c", 1024))
	link := mustResource(t, b, Buffer("link", 16))
	async = mustPass(t, b, "async", PassCompute, QueueCompute)
	gfx = mustPass(t, b, "gfx", PassCompute, QueueGraphics)
	mustUse(t, b, async, a, UsageStorageWrite)
	mustUse(t, b, async, link, UsageStorageWrite)
	mustUse(t, b, gfx, link, UsageShaderRead)
	mustUse(t, b, gfx, c, UsageStorageWrite)

	g = mustFinalize(t, b)
	slotA, _ = g.Aliasing().SlotOf(a)
	slotC, _ = g.Aliasing().SlotOf(c)
	if slotA != slotC {
		t.Error("ordered resources should share storage")
	}
}

func TestRequireAlias(t *testing.T) {
	b := NewBuilder(WithAliasPolicy(AliasRoundUp))
	ids := chain(t, b,
		Image("a", gputypes.TextureFormatRGBA8Unorm, 64, 64),
		Image("b", gputypes.TextureFormatRGBA8Unorm, 64, 64),
		Image("c", gputypes.TextureFormatRGBA8Unorm, 32, 32),
	)
	if err := b.RequireAlias(ids[2], ids[0]); err != nil {
		t.Fatal(err)
	}
	g := mustFinalize(t, b)
	s, _ := g.Aliasing().SlotOf(ids[0])
	if diff := cmp.Diff([]ResourceID{ids[0], ids[2]}, g.Aliasing().Slots[s].Resources); diff != "" {
		t.Errorf("demanded slot mismatch (-want +got):\n%s", diff)
	}
}

func TestRequireAliasErrors(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		build  func(t *testing.T, b *Builder) (ResourceID, ResourceID)
		reason string
	}{
		{"overlap", nil, func(t *testing.T, b *Builder) (ResourceID, ResourceID) {
			x := mustResource(t, b, Buffer("x", 256))
			y := mustResource(t, b, Buffer("y", 256))
			p := mustPass(t, b, "p", PassCompute, QueueAny)
			mustUse(t, b, p, x, UsageStorageWrite)
			mustUse(t, b, p, y, UsageStorageWrite)
			return x, y
		}, "live spans overlap"},
		{"formats", nil, func(t *testing.T, b *Builder) (ResourceID, ResourceID) {
			ids := chain(t, b, rgba("x"), rgba("mid"), Image("y", gputypes.TextureFormatR8Unorm, 64, 64))
			return ids[0], ids[2]
		}, "formats differ"},
		{"exact sizes", nil, func(t *testing.T, b *Builder) (ResourceID, ResourceID) {
			ids := chain(t, b, Buffer("x", 256), Buffer("mid", 8), Buffer("y", 512))
			return ids[0], ids[2]
		}, "sizes differ"},
		{"aliasing disabled", []Option{WithAliasing(false)}, func(t *testing.T, b *Builder) (ResourceID, ResourceID) {
			ids := chain(t, b, rgba("x"), rgba("mid"), rgba("y"))
			return ids[0], ids[2]
		}, "aliasing is disabled"},
		{"never accessed", nil, func(t *testing.T, b *Builder) (ResourceID, ResourceID) {
			ids := chain(t, b, rgba("x"))
			return ids[0], mustResource(t, b, rgba("y"))
		}, "resource is never accessed"},
		{"imported", nil, func(t *testing.T, b *Builder) (ResourceID, ResourceID) {
			swap := rgba("y")
			swap.Imported = true
			ids := chain(t, b, rgba("x"), rgba("mid"), swap)
			return ids[0], ids[2]
		}, "imported resources own their storage"},
		{"unordered queues", nil, func(t *testing.T, b *Builder) (ResourceID, ResourceID) {
			x := mustResource(t, b, Buffer("x", 256))
			y := mustResource(t, b, Buffer("y", 256))
			p := mustPass(t, b, "p", PassCompute, QueueCompute)
			q := mustPass(t, b, "q", PassCompute, QueueGraphics)
			mustUse(t, b, p, x, UsageStorageWrite)
			mustUse(t, b, q, y, UsageStorageWrite)
			return x, y
		}, "accesses are not ordered across queues"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(tt.opts...)
			x, y := tt.build(t, b)
			if err := b.RequireAlias(x, y); err != nil {
				t.Fatal(err)
			}
			_, err := b.Finalize()
			var ae *IncompatibleAliasError
			if !errors.As(err, &ae) {
				t.Fatalf("Finalize() = %v, want IncompatibleAliasError", err)
			}
			if !errors.Is(err, ErrIncompatibleAlias) {
				t.Error("IncompatibleAliasError must unwrap to ErrIncompatibleAlias")
			}
			if !strings.Contains(ae.Reason, tt.reason) {
				t.Errorf("Reason = %q, want %q", ae.Reason, tt.reason)
			}
			if !strings.Contains(err.Error(), `"x"`) || !strings.Contains(err.Error(), `"y"`) {
				t.Errorf("Error() = %q, want both resource names", err.Error())
			}
		})
	}
}
