// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package graphfile loads declarative render graph descriptions.
//
// The same document can be written in YAML, TOML or HCL. HCL files may use
// expressions over the back buffer size, for example
//
//	resource "bloom_half" {
//	  kind   = "image"
//	  format = "rgba16float"
//	  width  = floor(backbuffer.width / 2)
//	  height = floor(backbuffer.height / 2)
//	}
//
// Document.Build replays the document onto a rendergraph.Builder in
// declaration order, so a file and the equivalent Go calls produce graphs
// with the same fingerprint.
package graphfile

// Document is a decoded graph description.
type Document struct {
	Config    *OptionsSpec   `hcl:"options,block" yaml:"options" toml:"options"`
	Resources []ResourceSpec `hcl:"resource,block" yaml:"resources" toml:"resources"`
	Passes    []PassSpec     `hcl:"pass,block" yaml:"passes" toml:"passes"`
	Outputs   []string       `hcl:"outputs,optional" yaml:"outputs" toml:"outputs"`
	Aliases   []AliasSpec    `hcl:"alias,block" yaml:"aliases" toml:"aliases"`
}

// OptionsSpec maps onto rendergraph options. Unset fields keep the
// builder defaults.
//
// Adapter names the device class ("discrete", "integrated", "software")
// and picks its queue profile. It cannot be combined with Queues.
type OptionsSpec struct {
	Adapter      string          `hcl:"adapter,optional" yaml:"adapter" toml:"adapter"`
	Queues       []string        `hcl:"queues,optional" yaml:"queues" toml:"queues"`
	DefaultQueue string          `hcl:"default_queue,optional" yaml:"default_queue" toml:"default_queue"`
	Aliasing     *bool           `hcl:"aliasing,optional" yaml:"aliasing" toml:"aliasing"`
	AliasPolicy  string          `hcl:"alias_policy,optional" yaml:"alias_policy" toml:"alias_policy"`
	Culling      bool            `hcl:"culling,optional" yaml:"culling" toml:"culling"`
	Backbuffer   *BackbufferSpec `hcl:"backbuffer,block" yaml:"backbuffer" toml:"backbuffer"`
}

// BackbufferSpec is the back buffer that back buffer sized images follow.
type BackbufferSpec struct {
	Width  uint32 `hcl:"width" yaml:"width" toml:"width"`
	Height uint32 `hcl:"height" yaml:"height" toml:"height"`
	Format string `hcl:"format,optional" yaml:"format" toml:"format"`
}

// ResourceSpec declares one resource. Kind is "image" or "buffer"; Sizing
// is "fixed" (the default), "backbuffer" or "derived".
type ResourceSpec struct {
	Name     string  `hcl:"name,label" yaml:"name" toml:"name"`
	Kind     string  `hcl:"kind" yaml:"kind" toml:"kind"`
	Sizing   string  `hcl:"sizing,optional" yaml:"sizing" toml:"sizing"`
	Format   string  `hcl:"format,optional" yaml:"format" toml:"format"`
	Width    uint32  `hcl:"width,optional" yaml:"width" toml:"width"`
	Height   uint32  `hcl:"height,optional" yaml:"height" toml:"height"`
	Layers   uint32  `hcl:"layers,optional" yaml:"layers" toml:"layers"`
	Scale    float32 `hcl:"scale,optional" yaml:"scale" toml:"scale"`
	Size     uint64  `hcl:"size,optional" yaml:"size" toml:"size"`
	Imported bool    `hcl:"imported,optional" yaml:"imported" toml:"imported"`
}

// PassSpec declares one pass and the resources it uses, in order.
type PassSpec struct {
	Name  string    `hcl:"name,label" yaml:"name" toml:"name"`
	Kind  string    `hcl:"kind" yaml:"kind" toml:"kind"`
	Queue string    `hcl:"queue,optional" yaml:"queue" toml:"queue"`
	Uses  []UseSpec `hcl:"use,block" yaml:"uses" toml:"uses"`
}

// UseSpec is one access of a pass.
type UseSpec struct {
	Resource string `hcl:"resource" yaml:"resource" toml:"resource"`
	Usage    string `hcl:"usage" yaml:"usage" toml:"usage"`
}

// AliasSpec demands that the listed resources share one storage slot.
type AliasSpec struct {
	Resources []string `hcl:"resources" yaml:"resources" toml:"resources"`
}
