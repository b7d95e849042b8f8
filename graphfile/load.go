// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graphfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pelletier/go-toml/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/rendergraph"
)

// ErrUnsupportedFormat is returned for file extensions Load does not know.
var ErrUnsupportedFormat = errors.New("graphfile: unsupported file format")

// Load reads and decodes the graph file at path. The format follows the
// extension: .yaml or .yml, .toml, .hcl.
func Load(path string) (*Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graphfile: %w", err)
	}
	return Parse(src, path)
}

// Parse decodes src, picking the format from the extension of filename.
// Unknown fields are errors in every format.
func Parse(src []byte, filename string) (*Document, error) {
	var doc Document
	var err error
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(src))
		dec.KnownFields(true)
		err = dec.Decode(&doc)
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(src))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	case ".hcl":
		err = decodeHCL(src, filename, &doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("graphfile: parse %s: %w", filename, err)
	}
	return &doc, nil
}

// decodeHCL decodes in two steps: the options block first, with no
// variables, then the whole body with the back buffer size and a few
// rounding functions in scope.
func decodeHCL(src []byte, filename string, doc *Document) error {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return diags
	}

	width, height := uint32(rendergraph.DefaultBackbufferWidth), uint32(rendergraph.DefaultBackbufferHeight)
	content, _, diags := f.Body.PartialContent(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{{Type: "options"}},
	})
	if diags.HasErrors() {
		return diags
	}
	if len(content.Blocks) > 0 {
		var opts OptionsSpec
		if diags := gohcl.DecodeBody(content.Blocks[0].Body, nil, &opts); diags.HasErrors() {
			return diags
		}
		if bb := opts.Backbuffer; bb != nil {
			width, height = bb.Width, bb.Height
		}
	}

	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"backbuffer": cty.ObjectVal(map[string]cty.Value{
				"width":  cty.NumberIntVal(int64(width)),
				"height": cty.NumberIntVal(int64(height)),
			}),
		},
		Functions: map[string]function.Function{
			"floor": stdlib.FloorFunc,
			"ceil":  stdlib.CeilFunc,
			"max":   stdlib.MaxFunc,
			"min":   stdlib.MinFunc,
		},
	}
	if diags := gohcl.DecodeBody(f.Body, ctx, doc); diags.HasErrors() {
		return diags
	}
	return nil
}
