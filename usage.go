package rendergraph

import (
	"strings"

	"github.com/gogpu/gputypes"
)

// PassKind is the class of GPU work a pass records.
type PassKind uint8

const (
	// PassGraphics records draws inside a render pass.
	PassGraphics PassKind = iota
	// PassCompute records dispatches.
	PassCompute
	// PassTransfer records copies.
	PassTransfer
	// PassClear clears images or fills buffers.
	PassClear
)

var passKindNames = [...]string{
	PassGraphics: "Graphics",
	PassCompute:  "Compute",
	PassTransfer: "Transfer",
	PassClear:    "Clear",
}

func (k PassKind) String() string {
	if int(k) < len(passKindNames) {
		return passKindNames[k]
	}
	return "Unknown"
}

// ParsePassKind parses a pass kind name, case-insensitively.
func ParsePassKind(s string) (PassKind, bool) {
	for i, name := range passKindNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return PassKind(i), true
		}
	}
	return 0, false
}

// Requires returns the queue capability the pass kind needs.
func (k PassKind) Requires() Capability {
	switch k {
	case PassGraphics:
		return CapGraphics
	case PassCompute, PassClear:
		return CapCompute
	default:
		return CapTransfer
	}
}

// Access is the memory access class of a usage.
type Access uint8

const (
	AccessRead Access = 1 << iota
	AccessWrite
	AccessReadWrite = AccessRead | AccessWrite
)

// Reads reports whether the access observes prior contents.
func (a Access) Reads() bool { return a&AccessRead != 0 }

// Writes reports whether the access modifies contents.
func (a Access) Writes() bool { return a&AccessWrite != 0 }

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessReadWrite:
		return "read-write"
	default:
		return "none"
	}
}

// Layout is the image layout a usage expects. Buffers always report LayoutUndefined.
type Layout uint8

const (
	LayoutUndefined Layout = iota
	LayoutGeneral
	LayoutColorAttachment
	LayoutDepthAttachment
	LayoutDepthReadOnly
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutTransferDst
	LayoutPresent
)

var layoutNames = [...]string{
	LayoutUndefined:       "Undefined",
	LayoutGeneral:         "General",
	LayoutColorAttachment: "ColorAttachment",
	LayoutDepthAttachment: "DepthAttachment",
	LayoutDepthReadOnly:   "DepthReadOnly",
	LayoutShaderReadOnly:  "ShaderReadOnly",
	LayoutTransferSrc:     "TransferSrc",
	LayoutTransferDst:     "TransferDst",
	LayoutPresent:         "Present",
}

func (l Layout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return "Unknown"
}

// PipelineStage is a set of pipeline stages that touch a resource.
type PipelineStage uint16

const (
	StageDrawIndirect PipelineStage = 1 << iota
	StageVertexInput
	StageVertexShader
	StageFragmentShader
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageColorAttachmentOutput
	StageComputeShader
	StageTransfer
	StageBottomOfPipe
)

var stageNames = [...]string{
	"DrawIndirect",
	"VertexInput",
	"VertexShader",
	"FragmentShader",
	"EarlyFragmentTests",
	"LateFragmentTests",
	"ColorAttachmentOutput",
	"ComputeShader",
	"Transfer",
	"BottomOfPipe",
}

func (s PipelineStage) String() string {
	if s == 0 {
		return "None"
	}
	var parts []string
	for i, name := range stageNames {
		if s&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// Usage is the way a pass uses a resource: a bind point with a fixed access
// class, layout and pipeline stages.
type Usage uint8

const (
	usageInvalid Usage = iota

	// UsageShaderRead samples an image or reads a read-only storage buffer.
	UsageShaderRead
	// UsageStorageWrite writes a storage image or buffer.
	UsageStorageWrite
	// UsageStorageReadWrite reads and writes a storage image or buffer.
	UsageStorageReadWrite
	// UsageTransferSrc is the source of a copy.
	UsageTransferSrc
	// UsageTransferDst is the destination of a copy or clear.
	UsageTransferDst
	// UsageColorAttachment renders into an image. Load and blend operations
	// observe prior contents, so it counts as read-write.
	UsageColorAttachment
	// UsageDepthAttachment tests and writes depth.
	UsageDepthAttachment
	// UsageDepthRead tests depth without writing it.
	UsageDepthRead
	// UsageInputAttachment reads an attachment written earlier in the frame.
	UsageInputAttachment
	// UsagePresent hands an image to the presentation engine.
	UsagePresent
	// UsageUniform binds a buffer as uniform data.
	UsageUniform
	// UsageVertex binds a buffer as vertex input.
	UsageVertex
	// UsageIndex binds a buffer as index input.
	UsageIndex
	// UsageIndirect reads draw or dispatch arguments from a buffer.
	UsageIndirect

	usageCount
)

// Generic usage modes.
const (
	UsageRead      = UsageShaderRead
	UsageWrite     = UsageStorageWrite
	UsageReadWrite = UsageStorageReadWrite
)

const (
	kindImageBit  = 1 << KindImage
	kindBufferBit = 1 << KindBuffer
)

const (
	passGraphicsBit = 1 << PassGraphics
	passComputeBit  = 1 << PassCompute
	passTransferBit = 1 << PassTransfer
	passClearBit    = 1 << PassClear
)

type usageInfo struct {
	name   string
	access Access
	layout Layout
	kinds  uint8
	passes uint8
	// shader usages take their stages from the pass kind
	shader bool
	stages PipelineStage
	tex    gputypes.TextureUsage
	buf    gputypes.BufferUsage
}

var usageTable = [usageCount]usageInfo{
	UsageShaderRead: {
		name: "shader_read", access: AccessRead, layout: LayoutShaderReadOnly,
		kinds: kindImageBit | kindBufferBit, passes: passGraphicsBit | passComputeBit, shader: true,
		tex: gputypes.TextureUsageTextureBinding, buf: gputypes.BufferUsageStorage,
	},
	UsageStorageWrite: {
		name: "storage_write", access: AccessWrite, layout: LayoutGeneral,
		kinds: kindImageBit | kindBufferBit, passes: passGraphicsBit | passComputeBit, shader: true,
		tex: gputypes.TextureUsageStorageBinding, buf: gputypes.BufferUsageStorage,
	},
	UsageStorageReadWrite: {
		name: "storage_read_write", access: AccessReadWrite, layout: LayoutGeneral,
		kinds: kindImageBit | kindBufferBit, passes: passGraphicsBit | passComputeBit, shader: true,
		tex: gputypes.TextureUsageStorageBinding, buf: gputypes.BufferUsageStorage,
	},
	UsageTransferSrc: {
		name: "transfer_src", access: AccessRead, layout: LayoutTransferSrc,
		kinds: kindImageBit | kindBufferBit, passes: passTransferBit, stages: StageTransfer,
		tex: gputypes.TextureUsageCopySrc, buf: gputypes.BufferUsageCopySrc,
	},
	UsageTransferDst: {
		name: "transfer_dst", access: AccessWrite, layout: LayoutTransferDst,
		kinds: kindImageBit | kindBufferBit, passes: passTransferBit | passClearBit, stages: StageTransfer,
		tex: gputypes.TextureUsageCopyDst, buf: gputypes.BufferUsageCopyDst,
	},
	UsageColorAttachment: {
		name: "color_attachment", access: AccessReadWrite, layout: LayoutColorAttachment,
		kinds: kindImageBit, passes: passGraphicsBit, stages: StageColorAttachmentOutput,
		tex: gputypes.TextureUsageRenderAttachment,
	},
	UsageDepthAttachment: {
		name: "depth_attachment", access: AccessReadWrite, layout: LayoutDepthAttachment,
		kinds: kindImageBit, passes: passGraphicsBit, stages: StageEarlyFragmentTests | StageLateFragmentTests,
		tex: gputypes.TextureUsageRenderAttachment,
	},
	UsageDepthRead: {
		name: "depth_read", access: AccessRead, layout: LayoutDepthReadOnly,
		kinds: kindImageBit, passes: passGraphicsBit,
		stages: StageEarlyFragmentTests | StageLateFragmentTests | StageFragmentShader,
		tex:    gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
	},
	UsageInputAttachment: {
		name: "input_attachment", access: AccessRead, layout: LayoutShaderReadOnly,
		kinds: kindImageBit, passes: passGraphicsBit, stages: StageFragmentShader,
		tex: gputypes.TextureUsageTextureBinding,
	},
	UsagePresent: {
		name: "present", access: AccessRead, layout: LayoutPresent,
		kinds: kindImageBit, passes: passGraphicsBit, stages: StageBottomOfPipe,
		tex: gputypes.TextureUsageNone,
	},
	UsageUniform: {
		name: "uniform", access: AccessRead,
		kinds: kindBufferBit, passes: passGraphicsBit | passComputeBit, shader: true,
		buf: gputypes.BufferUsageUniform,
	},
	UsageVertex: {
		name: "vertex", access: AccessRead,
		kinds: kindBufferBit, passes: passGraphicsBit, stages: StageVertexInput,
		buf: gputypes.BufferUsageVertex,
	},
	UsageIndex: {
		name: "index", access: AccessRead,
		kinds: kindBufferBit, passes: passGraphicsBit, stages: StageVertexInput,
		buf: gputypes.BufferUsageIndex,
	},
	UsageIndirect: {
		name: "indirect", access: AccessRead,
		kinds: kindBufferBit, passes: passGraphicsBit | passComputeBit, stages: StageDrawIndirect,
		buf: gputypes.BufferUsageIndirect,
	},
}

// usageAliases are extra names accepted by ParseUsage.
var usageAliases = map[string]Usage{
	"read":       UsageRead,
	"sampled":    UsageShaderRead,
	"write":      UsageWrite,
	"read_write": UsageReadWrite,
	"copy_src":   UsageTransferSrc,
	"copy_dst":   UsageTransferDst,
	"color":      UsageColorAttachment,
	"depth":      UsageDepthAttachment,
}

// Valid reports whether u is a known usage.
func (u Usage) Valid() bool { return u > usageInvalid && u < usageCount }

func (u Usage) String() string {
	if !u.Valid() {
		return "invalid"
	}
	return usageTable[u].name
}

// ParseUsage parses a usage name such as "color_attachment" or "read".
// Dashes and case are ignored.
func ParseUsage(s string) (Usage, bool) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if u, ok := usageAliases[s]; ok {
		return u, true
	}
	for u := UsageShaderRead; u < usageCount; u++ {
		if usageTable[u].name == s {
			return u, true
		}
	}
	return usageInvalid, false
}

// Access returns the access class of the usage.
func (u Usage) Access() Access {
	if !u.Valid() {
		return 0
	}
	return usageTable[u].access
}

// Layout returns the image layout the usage expects.
func (u Usage) Layout() Layout {
	if !u.Valid() {
		return LayoutUndefined
	}
	return usageTable[u].layout
}

// layoutFor returns the layout u puts a resource of kind k into.
func (u Usage) layoutFor(k ResourceKind) Layout {
	if k != KindImage {
		return LayoutUndefined
	}
	return u.Layout()
}

// Stages returns the pipeline stages that perform the access inside a pass of kind k.
func (u Usage) Stages(k PassKind) PipelineStage {
	if !u.Valid() {
		return 0
	}
	info := usageTable[u]
	if !info.shader {
		return info.stages
	}
	if k == PassCompute {
		return StageComputeShader
	}
	return StageVertexShader | StageFragmentShader
}

// AppliesTo reports whether the usage can bind a resource of kind k.
func (u Usage) AppliesTo(k ResourceKind) bool {
	return u.Valid() && usageTable[u].kinds&(1<<k) != 0
}

// AllowedIn reports whether a pass of kind k may declare the usage.
func (u Usage) AllowedIn(k PassKind) bool {
	return u.Valid() && usageTable[u].passes&(1<<k) != 0
}

// TextureUsage returns the WebGPU texture usage bits for the bind point.
func (u Usage) TextureUsage() gputypes.TextureUsage {
	if !u.Valid() {
		return gputypes.TextureUsageNone
	}
	return usageTable[u].tex
}

// BufferUsage returns the WebGPU buffer usage bits for the bind point.
func (u Usage) BufferUsage() gputypes.BufferUsage {
	if !u.Valid() {
		return gputypes.BufferUsageNone
	}
	return usageTable[u].buf
}

// isAttachment reports whether u binds a render pass attachment.
func (u Usage) isAttachment() bool {
	switch u {
	case UsageColorAttachment, UsageDepthAttachment, UsageDepthRead, UsageInputAttachment:
		return true
	}
	return false
}
