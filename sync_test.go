package rendergraph

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"
)

func countKind(events []SyncEvent, k SyncKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// P1 writes R, P2 reads R, P3 writes S after the last use of R.
func TestScenarioSingleQueueChain(t *testing.T) {
	b := NewBuilder()
	r := mustResource(t, b, rgba("R"))
	s := mustResource(t, b, rgba("S"))
	p1 := mustPass(t, b, "P1", PassGraphics, QueueAny)
	p2 := mustPass(t, b, "P2", PassGraphics, QueueAny)
	p3 := mustPass(t, b, "P3", PassGraphics, QueueAny)
	mustUse(t, b, p1, r, UsageColorAttachment)
	mustUse(t, b, p2, r, UsageShaderRead)
	mustUse(t, b, p3, s, UsageColorAttachment)

	g := mustFinalize(t, b)
	tls := g.Timelines()
	if len(tls) != 1 {
		t.Fatalf("len(Timelines) = %d, want 1", len(tls))
	}
	steps := tls[0].Steps
	var order []PassID
	for _, st := range steps {
		order = append(order, st.Pass)
	}
	if diff := cmp.Diff([]PassID{p1, p2, p3}, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	if n := countKind(steps[0].Pre, SyncBarrier); n != 0 {
		t.Errorf("P1 has %d barriers, want 0", n)
	}
	if n := countKind(steps[1].Pre, SyncBarrier); n != 1 {
		t.Fatalf("P2 has %d barriers, want 1", n)
	}
	want := Barrier{
		Resource:  r,
		Slot:      0,
		FromPass:  p1,
		From:      UsageColorAttachment,
		To:        UsageShaderRead,
		OldLayout: LayoutColorAttachment,
		NewLayout: LayoutShaderReadOnly,
		SrcStages: StageColorAttachmentOutput,
		DstStages: StageVertexShader | StageFragmentShader,
		Hazard:    HazardRAW | HazardLayout,
	}
	if diff := cmp.Diff(want, steps[1].Pre[0].Barrier); diff != "" {
		t.Errorf("barrier mismatch (-want +got):\n%s", diff)
	}
	if n := countKind(steps[2].Pre, SyncBarrier); n != 0 {
		t.Errorf("P3 has %d barriers, want 0", n)
	}
	for _, st := range steps {
		if len(st.Post) != 0 || countKind(st.Pre, SyncWait) != 0 {
			t.Errorf("%s has semaphore operations on a single queue", st.Name)
		}
	}

	// R and S share a slot; S takes it over with an alias hand-off
	slotR, _ := g.Aliasing().SlotOf(r)
	slotS, _ := g.Aliasing().SlotOf(s)
	if slotR != slotS {
		t.Fatalf("R in slot %d, S in slot %d; want shared", slotR, slotS)
	}
	if len(steps[2].Pre) != 1 || steps[2].Pre[0].Kind != SyncAlias {
		t.Fatalf("P3 Pre = %+v, want one alias hand-off", steps[2].Pre)
	}
	wantAlias := AliasTransition{
		Slot:      slotS,
		Previous:  r,
		Next:      s,
		FromPass:  p2,
		From:      UsageShaderRead,
		Usage:     UsageColorAttachment,
		NewLayout: LayoutColorAttachment,
		SrcStages: StageVertexShader | StageFragmentShader,
		DstStages: StageColorAttachmentOutput,
	}
	if diff := cmp.Diff(wantAlias, steps[2].Pre[0].Alias); diff != "" {
		t.Errorf("alias mismatch (-want +got):\n%s", diff)
	}
}

func TestScenarioSingleQueueChainWithoutAliasing(t *testing.T) {
	b := NewBuilder(WithAliasing(false))
	r := mustResource(t, b, rgba("R"))
	s := mustResource(t, b, rgba("S"))
	p1 := mustPass(t, b, "P1", PassGraphics, QueueAny)
	p2 := mustPass(t, b, "P2", PassGraphics, QueueAny)
	p3 := mustPass(t, b, "P3", PassGraphics, QueueAny)
	mustUse(t, b, p1, r, UsageColorAttachment)
	mustUse(t, b, p2, r, UsageShaderRead)
	mustUse(t, b, p3, s, UsageColorAttachment)

	g := mustFinalize(t, b)
	tl, i := stepOf(t, g, p3)
	if pre := tl.Steps[i].Pre; len(pre) != 0 {
		t.Errorf("P3 Pre = %+v, want none", pre)
	}
}

// P1 on the compute queue writes R; P2 on the graphics queue reads R.
func TestScenarioCrossQueue(t *testing.T) {
	b := NewBuilder()
	r := mustResource(t, b, Buffer("R", 4096))
	p1 := mustPass(t, b, "P1", PassCompute, QueueCompute)
	p2 := mustPass(t, b, "P2", PassGraphics, QueueGraphics)
	mustUse(t, b, p1, r, UsageStorageWrite)
	mustUse(t, b, p2, r, UsageShaderRead)

	g := mustFinalize(t, b)
	tls := g.Timelines()
	if len(tls) != 2 {
		t.Fatalf("len(Timelines) = %d, want 2", len(tls))
	}
	gfx, ok := g.Timeline(QueueGraphics)
	if !ok {
		t.Fatal("no graphics timeline")
	}
	comp, ok := g.Timeline(QueueCompute)
	if !ok {
		t.Fatal("no compute timeline")
	}

	point := SemaphorePoint{Queue: QueueCompute, Value: 1}
	if diff := cmp.Diff([]SyncEvent{{Kind: SyncSignal, Semaphore: point}}, comp.Steps[0].Post); diff != "" {
		t.Errorf("P1 Post mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]SyncEvent{{Kind: SyncWait, Semaphore: point}}, gfx.Steps[0].Pre); diff != "" {
		t.Errorf("P2 Pre mismatch (-want +got):\n%s", diff)
	}

	// signal right after P1, wait right before P2
	ce := comp.Events()
	if len(ce) != 2 || ce[0].Kind != EventPass || ce[1].Kind != EventSignal {
		t.Errorf("compute events = %+v", ce)
	}
	ge := gfx.Events()
	if len(ge) != 2 || ge[0].Kind != EventWait || ge[1].Kind != EventPass || ge[1].Pass != p2 {
		t.Errorf("graphics events = %+v", ge)
	}

	cross := g.CrossQueue()
	if len(cross) != 1 || cross[0].From != p1 || cross[0].To != p2 {
		t.Errorf("CrossQueue() = %+v", cross)
	}
}

func TestCrossQueueImageAddsLayoutBarrier(t *testing.T) {
	b := NewBuilder()
	r := mustResource(t, b, rgba("R"))
	p1 := mustPass(t, b, "P1", PassCompute, QueueCompute)
	p2 := mustPass(t, b, "P2", PassGraphics, QueueGraphics)
	mustUse(t, b, p1, r, UsageStorageWrite)
	mustUse(t, b, p2, r, UsageShaderRead)

	g := mustFinalize(t, b)
	tl, i := stepOf(t, g, p2)
	pre := tl.Steps[i].Pre
	if len(pre) != 2 || pre[0].Kind != SyncWait || pre[1].Kind != SyncBarrier {
		t.Fatalf("P2 Pre = %+v, want wait then barrier", pre)
	}
	br := pre[1].Barrier
	if br.Hazard != HazardLayout || br.SrcStages != 0 {
		t.Errorf("barrier = %+v, want layout only with no source stages", br)
	}
	if br.OldLayout != LayoutGeneral || br.NewLayout != LayoutShaderReadOnly {
		t.Errorf("layouts = %v -> %v", br.OldLayout, br.NewLayout)
	}
}

func TestSemaphoreSharing(t *testing.T) {
	b := NewBuilder()
	data := mustResource(t, b, Buffer("data", 1024))
	more := mustResource(t, b, Buffer("more", 1024))
	prod := mustPass(t, b, "produce", PassCompute, QueueCompute)
	c1 := mustPass(t, b, "consume1", PassGraphics, QueueGraphics)
	c2 := mustPass(t, b, "consume2", PassGraphics, QueueGraphics)
	prod2 := mustPass(t, b, "produce2", PassCompute, QueueCompute)
	c3 := mustPass(t, b, "consume3", PassGraphics, QueueGraphics)
	mustUse(t, b, prod, data, UsageStorageWrite)
	mustUse(t, b, c1, data, UsageShaderRead)
	mustUse(t, b, c2, data, UsageShaderRead)
	mustUse(t, b, prod2, more, UsageStorageWrite)
	mustUse(t, b, c3, more, UsageShaderRead)

	g := mustFinalize(t, b)
	comp, _ := g.Timeline(QueueCompute)
	for i, want := range []uint64{1, 2} {
		post := comp.Steps[i].Post
		if len(post) != 1 || post[0].Semaphore.Value != want {
			t.Errorf("%s Post = %+v, want one signal of %d", comp.Steps[i].Name, post, want)
		}
	}

	waits := map[PassID][]SemaphorePoint{}
	gfx, _ := g.Timeline(QueueGraphics)
	for _, st := range gfx.Steps {
		for _, e := range st.Pre {
			if e.Kind == SyncWait {
				waits[st.Pass] = append(waits[st.Pass], e.Semaphore)
			}
		}
	}
	want := map[PassID][]SemaphorePoint{
		c1: {{Queue: QueueCompute, Value: 1}},
		c3: {{Queue: QueueCompute, Value: 2}},
	}
	if diff := cmp.Diff(want, waits); diff != "" {
		t.Errorf("waits mismatch (-want +got):\n%s", diff)
	}
}

func TestNoBarrierBetweenReads(t *testing.T) {
	b := NewBuilder()
	tex := mustResource(t, b, rgba("tex"))
	params := mustResource(t, b, Buffer("params", 256))
	write := mustPass(t, b, "write", PassCompute, QueueAny)
	read1 := mustPass(t, b, "read1", PassGraphics, QueueAny)
	read2 := mustPass(t, b, "read2", PassGraphics, QueueAny)
	read3 := mustPass(t, b, "read3", PassCompute, QueueAny)
	mustUse(t, b, write, tex, UsageStorageWrite)
	mustUse(t, b, write, params, UsageStorageWrite)
	mustUse(t, b, read1, tex, UsageShaderRead)
	mustUse(t, b, read1, params, UsageUniform)
	mustUse(t, b, read2, tex, UsageShaderRead)
	mustUse(t, b, read2, params, UsageUniform)
	mustUse(t, b, read3, tex, UsageShaderRead)

	g := mustFinalize(t, b)
	tl := g.Timelines()[0]
	if n := countKind(tl.Steps[1].Pre, SyncBarrier); n != 2 {
		t.Errorf("read1 has %d barriers, want 2", n)
	}
	for _, st := range tl.Steps[2:] {
		if len(st.Pre) != 0 {
			t.Errorf("%s Pre = %+v, want none", st.Name, st.Pre)
		}
	}
}

func TestWriteAfterReadBarrier(t *testing.T) {
	b := NewBuilder()
	buf := mustResource(t, b, Buffer("buf", 256))
	read := mustPass(t, b, "read", PassCompute, QueueAny)
	write := mustPass(t, b, "write", PassCompute, QueueAny)
	mustUse(t, b, read, buf, UsageShaderRead)
	mustUse(t, b, write, buf, UsageStorageWrite)

	g := mustFinalize(t, b)
	tl, i := stepOf(t, g, write)
	pre := tl.Steps[i].Pre
	if len(pre) != 1 {
		t.Fatalf("write Pre = %+v, want one barrier", pre)
	}
	br := pre[0].Barrier
	if br.Hazard != HazardWAR || br.SrcStages != StageComputeShader || br.DstStages != StageComputeShader {
		t.Errorf("barrier = %+v, want WAR compute -> compute", br)
	}
	if br.OldLayout != LayoutUndefined || br.NewLayout != LayoutUndefined {
		t.Errorf("buffer barrier carries layouts %v -> %v", br.OldLayout, br.NewLayout)
	}
}

func TestDepthPrepassBarrier(t *testing.T) {
	b := buildTriangle(t, nil)
	g := mustFinalize(t, b)
	steps := g.Timelines()[0].Steps
	if len(steps[1].Pre) != 1 {
		t.Fatalf("draw Pre = %+v", steps[1].Pre)
	}
	br := steps[1].Pre[0].Barrier
	want := Barrier{
		Resource:  0,
		Slot:      br.Slot,
		FromPass:  0,
		From:      UsageDepthAttachment,
		To:        UsageDepthRead,
		OldLayout: LayoutDepthAttachment,
		NewLayout: LayoutDepthReadOnly,
		SrcStages: StageEarlyFragmentTests | StageLateFragmentTests,
		DstStages: StageEarlyFragmentTests | StageLateFragmentTests | StageFragmentShader,
		Hazard:    HazardRAW | HazardLayout,
	}
	if diff := cmp.Diff(want, br); diff != "" {
		t.Errorf("barrier mismatch (-want +got):\n%s", diff)
	}
}

func TestTimelineEvents(t *testing.T) {
	b := NewBuilder()
	r := mustResource(t, b, Image("r", gputypes.TextureFormatRGBA8Unorm, 16, 16))
	p1 := mustPass(t, b, "p1", PassCompute, QueueCompute)
	p2 := mustPass(t, b, "p2", PassGraphics, QueueAny)
	mustUse(t, b, p1, r, UsageStorageWrite)
	mustUse(t, b, p2, r, UsageColorAttachment)

	g := mustFinalize(t, b)
	gfx, _ := g.Timeline(QueueGraphics)
	var kinds []EventKind
	for i, e := range gfx.Events() {
		if e.Seq != i {
			t.Errorf("event %d has Seq %d", i, e.Seq)
		}
		kinds = append(kinds, e.Kind)
	}
	if diff := cmp.Diff([]EventKind{EventWait, EventBarrier, EventPass}, kinds); diff != "" {
		t.Errorf("event kinds mismatch (-want +got):\n%s", diff)
	}
	if got := EventAlias.String(); got != "alias" {
		t.Errorf("EventAlias.String() = %q", got)
	}
	if got := (SemaphorePoint{Queue: QueueCompute, Value: 3}).String(); got != "compute#3" {
		t.Errorf("SemaphorePoint.String() = %q", got)
	}
}

// The previous occupant of a slot only ran on another queue: the hand-off
// has no same-queue source and the semaphore wait orders it.
func TestAliasHandOffAcrossQueues(t *testing.T) {
	b := NewBuilder()
	r := mustResource(t, b, rgba("R"))
	tmp := mustResource(t, b, rgba("T"))
	s := mustResource(t, b, rgba("S"))
	p1 := mustPass(t, b, "P1", PassCompute, QueueCompute)
	p2 := mustPass(t, b, "P2", PassCompute, QueueCompute)
	p3 := mustPass(t, b, "P3", PassGraphics, QueueGraphics)
	mustUse(t, b, p1, r, UsageStorageWrite)
	mustUse(t, b, p2, r, UsageShaderRead)
	mustUse(t, b, p2, tmp, UsageStorageWrite)
	mustUse(t, b, p3, tmp, UsageShaderRead)
	mustUse(t, b, p3, s, UsageColorAttachment)

	g := mustFinalize(t, b)
	slotR, _ := g.Aliasing().SlotOf(r)
	slotS, _ := g.Aliasing().SlotOf(s)
	if slotR != slotS {
		t.Fatalf("R in slot %d, S in slot %d; want shared", slotR, slotS)
	}

	tl, i := stepOf(t, g, p3)
	pre := tl.Steps[i].Pre
	if countKind(pre, SyncWait) != 1 || countKind(pre, SyncAlias) != 1 {
		t.Fatalf("P3 Pre = %+v, want one wait and one alias hand-off", pre)
	}
	want := AliasTransition{
		Slot:      slotS,
		Previous:  r,
		Next:      s,
		Usage:     UsageColorAttachment,
		NewLayout: LayoutColorAttachment,
		DstStages: StageColorAttachmentOutput,
	}
	if diff := cmp.Diff(want, pre[1].Alias); diff != "" {
		t.Errorf("alias mismatch (-want +got):\n%s", diff)
	}
}

// X1 and X2 both feed C. Each producer signals once; C waits only on X2,
// whose value covers X1 on the same timeline.
func TestWaitCoversEarlierSignals(t *testing.T) {
	b := NewBuilder()
	d1 := mustResource(t, b, Buffer("d1", 256))
	d2 := mustResource(t, b, Buffer("d2", 256))
	x1 := mustPass(t, b, "X1", PassCompute, QueueCompute)
	x2 := mustPass(t, b, "X2", PassCompute, QueueCompute)
	c := mustPass(t, b, "C", PassGraphics, QueueGraphics)
	mustUse(t, b, x1, d1, UsageStorageWrite)
	mustUse(t, b, x2, d2, UsageStorageWrite)
	mustUse(t, b, c, d1, UsageShaderRead)
	mustUse(t, b, c, d2, UsageShaderRead)

	g := mustFinalize(t, b)
	for i, id := range []PassID{x1, x2} {
		sig := SemaphorePoint{Queue: QueueCompute, Value: uint64(i + 1)}
		tl, j := stepOf(t, g, id)
		if post := tl.Steps[j].Post; len(post) != 1 || post[0].Semaphore != sig {
			t.Errorf("%s Post = %+v, want one signal of %s", g.PassName(id), post, sig)
		}
	}
	tl, i := stepOf(t, g, c)
	var waits []SemaphorePoint
	for _, e := range tl.Steps[i].Pre {
		if e.Kind == SyncWait {
			waits = append(waits, e.Semaphore)
		}
	}
	want := []SemaphorePoint{{Queue: QueueCompute, Value: 2}}
	if diff := cmp.Diff(want, waits); diff != "" {
		t.Errorf("C waits mismatch (-want +got):\n%s", diff)
	}
}
