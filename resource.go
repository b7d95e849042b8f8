package rendergraph

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

// ResourceID indexes a resource in its graph's arena.
type ResourceID uint32

// PassID indexes a pass in its graph's arena. PassIDs follow declaration order.
type PassID uint32

// ResourceKind distinguishes images from buffers.
type ResourceKind uint8

const (
	KindImage ResourceKind = iota
	KindBuffer
)

func (k ResourceKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindBuffer:
		return "buffer"
	default:
		return "unknown"
	}
}

// Sizing says where a resource's dimensions come from.
type Sizing uint8

const (
	// SizingFixed uses the descriptor's Extent (images) or Size (buffers).
	SizingFixed Sizing = iota
	// SizingBackbuffer sizes an image like the back buffer, times Scale.
	SizingBackbuffer
	// SizingDerived infers the descriptor from the first pass that writes the resource.
	SizingDerived
)

var sizingNames = [...]string{
	SizingFixed:      "fixed",
	SizingBackbuffer: "backbuffer",
	SizingDerived:    "derived",
}

func (s Sizing) String() string {
	if int(s) < len(sizingNames) {
		return sizingNames[s]
	}
	return "unknown"
}

// ParseSizing parses a sizing name as produced by String.
func ParseSizing(s string) (Sizing, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SizingFixed, true
	}
	for i, name := range sizingNames {
		if name == s {
			return Sizing(i), true
		}
	}
	return 0, false
}

// ResourceDesc describes a logical image or buffer.
type ResourceDesc struct {
	Label  string
	Kind   ResourceKind
	Sizing Sizing

	// Extent is the image size for SizingFixed. A zero depth means one layer.
	Extent gputypes.Extent3D
	// Scale multiplies the back buffer extent for SizingBackbuffer. Zero means 1.
	Scale float32
	// Format is the image format. A derived image may leave it undefined to
	// inherit the format as well as the size.
	Format gputypes.TextureFormat
	// Size is the buffer size in bytes for SizingFixed.
	Size uint64

	// Imported resources live outside the graph and are never aliased.
	Imported bool
}

// Image returns a fixed-size 2D image descriptor.
func Image(label string, format gputypes.TextureFormat, width, height uint32) ResourceDesc {
	return ResourceDesc{
		Label:  label,
		Kind:   KindImage,
		Sizing: SizingFixed,
		Extent: gputypes.NewExtent2D(width, height),
		Format: format,
	}
}

// BackbufferImage returns an image descriptor sized like the back buffer.
func BackbufferImage(label string, format gputypes.TextureFormat, scale float32) ResourceDesc {
	return ResourceDesc{
		Label:  label,
		Kind:   KindImage,
		Sizing: SizingBackbuffer,
		Scale:  scale,
		Format: format,
	}
}

// Buffer returns a fixed-size buffer descriptor.
func Buffer(label string, size uint64) ResourceDesc {
	return ResourceDesc{Label: label, Kind: KindBuffer, Sizing: SizingFixed, Size: size}
}

// Derived returns a descriptor whose size (and format, if undefined) is
// inferred from the first pass that writes the resource.
func Derived(label string, kind ResourceKind, format gputypes.TextureFormat) ResourceDesc {
	return ResourceDesc{Label: label, Kind: kind, Sizing: SizingDerived, Format: format}
}

// validate checks the descriptor in isolation.
func (d ResourceDesc) validate() error {
	switch d.Kind {
	case KindImage:
		switch d.Sizing {
		case SizingFixed:
			if d.Extent.Width == 0 || d.Extent.Height == 0 {
				return graphErrorf(ErrInvalidDescriptor, "image %q has zero extent", d.Label)
			}
			if d.Format == gputypes.TextureFormatUndefined {
				return graphErrorf(ErrInvalidDescriptor, "image %q has no format", d.Label)
			}
		case SizingBackbuffer:
			if d.Scale < 0 {
				return graphErrorf(ErrInvalidDescriptor, "image %q has negative scale", d.Label)
			}
			if d.Format == gputypes.TextureFormatUndefined {
				return graphErrorf(ErrInvalidDescriptor, "image %q has no format", d.Label)
			}
		case SizingDerived:
		default:
			return graphErrorf(ErrInvalidDescriptor, "image %q has unknown sizing %d", d.Label, d.Sizing)
		}
	case KindBuffer:
		switch d.Sizing {
		case SizingFixed:
			if d.Size == 0 {
				return graphErrorf(ErrInvalidDescriptor, "buffer %q has zero size", d.Label)
			}
		case SizingDerived:
		default:
			return graphErrorf(ErrInvalidDescriptor, "buffer %q must be fixed or derived, got %s", d.Label, d.Sizing)
		}
	default:
		return graphErrorf(ErrInvalidDescriptor, "resource %q has unknown kind %d", d.Label, d.Kind)
	}
	return nil
}

// scale returns the effective back buffer scale.
func (d ResourceDesc) scale() float32 {
	if d.Scale == 0 {
		return 1
	}
	return d.Scale
}

// extent returns the image extent, resolving back buffer sizing against bb.
func (d ResourceDesc) extent(bb gputypes.Extent3D) gputypes.Extent3D {
	e := d.Extent
	if d.Sizing == SizingBackbuffer {
		s := d.scale()
		e = gputypes.Extent3D{
			Width:              max(1, uint32(float32(bb.Width)*s)),
			Height:             max(1, uint32(float32(bb.Height)*s)),
			DepthOrArrayLayers: 1,
		}
	}
	if e.DepthOrArrayLayers == 0 {
		e.DepthOrArrayLayers = 1
	}
	return e
}

// footprint estimates the storage size in bytes.
func (d ResourceDesc) footprint(bb gputypes.Extent3D) uint64 {
	if d.Kind == KindBuffer {
		return d.Size
	}
	e := d.extent(bb)
	return uint64(e.Width) * uint64(e.Height) * uint64(e.DepthOrArrayLayers) * bytesPerTexel(d.Format)
}

// sizeKey describes the dimensions for attachment comparisons.
func (d ResourceDesc) sizeKey(bb gputypes.Extent3D) string {
	e := d.extent(bb)
	return fmt.Sprintf("%dx%dx%d", e.Width, e.Height, e.DepthOrArrayLayers)
}

// String summarises the descriptor, e.g. "image RGBA8Unorm 1920x1080".
func (d ResourceDesc) String() string {
	switch {
	case d.Kind == KindBuffer && d.Sizing == SizingFixed:
		return fmt.Sprintf("buffer %d bytes", d.Size)
	case d.Kind == KindBuffer:
		return "buffer derived"
	case d.Sizing == SizingBackbuffer:
		return fmt.Sprintf("image %s backbuffer x%g", d.Format, d.scale())
	case d.Sizing == SizingDerived:
		return fmt.Sprintf("image %s derived", d.Format)
	default:
		e := d.extent(gputypes.Extent3D{})
		if e.DepthOrArrayLayers > 1 {
			return fmt.Sprintf("image %s %dx%dx%d", d.Format, e.Width, e.Height, e.DepthOrArrayLayers)
		}
		return fmt.Sprintf("image %s %dx%d", d.Format, e.Width, e.Height)
	}
}

// bytesPerTexel returns the texel size of uncompressed formats. Block
// compressed and unknown formats are costed at 4 bytes.
func bytesPerTexel(f gputypes.TextureFormat) uint64 {
	switch f {
	case gputypes.TextureFormatR8Unorm, gputypes.TextureFormatR8Snorm,
		gputypes.TextureFormatR8Uint, gputypes.TextureFormatR8Sint,
		gputypes.TextureFormatStencil8:
		return 1
	case gputypes.TextureFormatR16Unorm, gputypes.TextureFormatR16Snorm,
		gputypes.TextureFormatR16Uint, gputypes.TextureFormatR16Sint,
		gputypes.TextureFormatR16Float, gputypes.TextureFormatRG8Unorm,
		gputypes.TextureFormatRG8Snorm, gputypes.TextureFormatRG8Uint,
		gputypes.TextureFormatRG8Sint, gputypes.TextureFormatDepth16Unorm:
		return 2
	case gputypes.TextureFormatRG32Float, gputypes.TextureFormatRG32Uint,
		gputypes.TextureFormatRG32Sint, gputypes.TextureFormatRGBA16Unorm,
		gputypes.TextureFormatRGBA16Snorm, gputypes.TextureFormatRGBA16Uint,
		gputypes.TextureFormatRGBA16Sint, gputypes.TextureFormatRGBA16Float,
		gputypes.TextureFormatDepth32FloatStencil8:
		return 8
	case gputypes.TextureFormatRGBA32Float, gputypes.TextureFormatRGBA32Uint,
		gputypes.TextureFormatRGBA32Sint:
		return 16
	default:
		return 4
	}
}

// formatNames maps lower-case gputypes format names to formats.
var formatNames = func() map[string]gputypes.TextureFormat {
	m := make(map[string]gputypes.TextureFormat)
	for f := gputypes.TextureFormatUndefined; f <= gputypes.TextureFormatASTC12x12UnormSrgb; f++ {
		if name := f.String(); name != "Unknown" {
			m[strings.ToLower(name)] = f
		}
	}
	return m
}()

// ParseFormat parses a texture format name such as "rgba8unorm" or
// "Depth32Float". Dashes and underscores are ignored.
func ParseFormat(s string) (gputypes.TextureFormat, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "", "_", "").Replace(s)
	f, ok := formatNames[s]
	return f, ok
}
