package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/rendergraph"
)

const bloomYAML = `
options:
  queues: [graphics, compute]
resources:
  - {name: scene, kind: image, sizing: backbuffer, format: rgba16float}
  - {name: bright, kind: image, sizing: backbuffer, format: rgba16float, scale: 0.5}
  - {name: blur, kind: image, sizing: backbuffer, format: rgba16float, scale: 0.5}
  - {name: swapchain, kind: image, sizing: backbuffer, format: bgra8unorm, imported: true}
  - {name: debug, kind: buffer, size: 1024}
passes:
  - name: draw
    kind: graphics
    uses: [{resource: scene, usage: color_attachment}]
  - name: threshold
    kind: compute
    queue: compute
    uses:
      - {resource: scene, usage: shader_read}
      - {resource: bright, usage: storage_write}
  - name: blur
    kind: compute
    queue: compute
    uses:
      - {resource: bright, usage: shader_read}
      - {resource: blur, usage: storage_write}
  - name: composite
    kind: graphics
    uses:
      - {resource: scene, usage: shader_read}
      - {resource: blur, usage: shader_read}
      - {resource: swapchain, usage: color_attachment}
  - name: stats
    kind: compute
    uses: [{resource: debug, usage: storage_write}]
outputs: [swapchain]
`

func writeGraph(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bloom.yaml")
	if err := os.WriteFile(path, []byte(bloomYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBake(t *testing.T) {
	path := writeGraph(t)
	dir := filepath.Dir(path)
	cfg := config{
		path: path,
		outputs: map[string]string{
			"dot":     filepath.Join(dir, "bloom.dot"),
			"mermaid": filepath.Join(dir, "bloom.mmd"),
			"json":    "",
		},
	}

	var out bytes.Buffer
	if err := bake(&out, cfg); err != nil {
		t.Fatalf("bake() error = %v", err)
	}
	text := out.String()
	for _, want := range []string{
		"5 passes on 2 queues",
		"\ngraphics\n",
		"\ncompute\n",
		"threshold [Compute]",
		"wait graphics#1",
		"signal compute#",
		"memory: ",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "\x1b[") {
		t.Error("colorless output contains escape sequences")
	}

	dot, err := os.ReadFile(cfg.outputs["dot"])
	if err != nil || !strings.HasPrefix(string(dot), "digraph rendergraph {") {
		t.Errorf("dot file = %q, %v", dot, err)
	}
	if _, err := os.Stat(cfg.outputs["mermaid"]); err != nil {
		t.Errorf("mermaid file not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bloom.json")); err == nil {
		t.Error("json written although not requested")
	}
}

func TestBakeCulling(t *testing.T) {
	opts, err := flagOptions("", "", "", true)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := bake(&out, config{path: writeGraph(t), opts: opts}); err != nil {
		t.Fatalf("bake() error = %v", err)
	}
	if !strings.Contains(out.String(), "culled: [stats]") {
		t.Errorf("output does not report the culled pass:\n%s", out.String())
	}
}

func TestBakeUnifiedQueues(t *testing.T) {
	opts, err := flagOptions("", "graphics", "roundup", false)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := bake(&out, config{path: writeGraph(t), opts: opts}); err != nil {
		t.Fatalf("bake() error = %v", err)
	}
	if !strings.Contains(out.String(), "on 1 queues") || strings.Contains(out.String(), "wait ") {
		t.Errorf("unified profile should produce one queue and no waits:\n%s", out.String())
	}
}

func TestFlagOptions(t *testing.T) {
	tests := []struct {
		adapter, queues, alias string
		wantErr                bool
		wantLen                int
	}{
		{"", "", "", false, 0},
		{"", "graphics,compute,transfer", "exact", false, 2},
		{"", "graphics, compute", "", false, 1},
		{"", "graphics,video", "", true, 0},
		{"", "any", "", true, 0},
		{"", "", "loose", true, 0},
		{"software", "", "roundup", false, 2},
		{"quantum", "", "", true, 0},
		{"discrete", "graphics", "", true, 0},
	}
	for _, tt := range tests {
		opts, err := flagOptions(tt.adapter, tt.queues, tt.alias, false)
		if (err != nil) != tt.wantErr {
			t.Errorf("flagOptions(%q, %q, %q) error = %v, wantErr %v", tt.adapter, tt.queues, tt.alias, err, tt.wantErr)
			continue
		}
		if len(opts) != tt.wantLen {
			t.Errorf("flagOptions(%q, %q, %q) = %d options, want %d", tt.adapter, tt.queues, tt.alias, len(opts), tt.wantLen)
		}
	}
}

func TestBakeSoftwareAdapter(t *testing.T) {
	opts, err := flagOptions("software", "", "", false)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := bake(&out, config{path: writeGraph(t), opts: opts}); err != nil {
		t.Fatalf("bake() error = %v", err)
	}
	if !strings.Contains(out.String(), "on 1 queues") {
		t.Errorf("software adapter should schedule on one queue:\n%s", out.String())
	}
}

func TestBakeReusesCachedPlan(t *testing.T) {
	cfg := config{path: writeGraph(t), cache: rendergraph.NewPlanCache(4)}
	var first, second bytes.Buffer
	if err := bake(&first, cfg); err != nil {
		t.Fatalf("bake() error = %v", err)
	}
	if err := bake(&second, cfg); err != nil {
		t.Fatalf("second bake() error = %v", err)
	}
	if !strings.Contains(first.String(), "plan cache: 1 plans, 0 hits, 0% hit rate") {
		t.Errorf("first bake should miss:\n%s", first.String())
	}
	if !strings.Contains(second.String(), "plan cache: 1 plans, 1 hits, 50% hit rate") {
		t.Errorf("second bake should hit:\n%s", second.String())
	}
}

func TestBakeErrors(t *testing.T) {
	var out bytes.Buffer
	if err := bake(&out, config{path: filepath.Join(t.TempDir(), "none.yaml")}); err == nil {
		t.Error("bake() on a missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "nooutput.yaml")
	src := `
resources:
  - {name: a, kind: buffer, size: 16}
passes:
  - name: p
    kind: compute
    uses: [{resource: a, usage: storage_read_write}]
`
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := bake(&out, config{path: path, opts: []rendergraph.Option{rendergraph.WithCulling(true)}}); err == nil {
		t.Error("bake() with culling and no outputs should fail")
	}
}
