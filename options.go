package rendergraph

import (
	"strings"

	"github.com/gogpu/gputypes"
)

// Default back buffer used to cost back buffer sized images when the
// caller does not provide one.
const (
	DefaultBackbufferWidth  = 1920
	DefaultBackbufferHeight = 1080
)

// AliasPolicy decides which descriptors may share a storage slot.
type AliasPolicy uint8

const (
	// AliasExact shares slots only between identical descriptors.
	AliasExact AliasPolicy = iota
	// AliasRoundUp shares slots between resources of the same kind, format
	// and sizing mode; the slot grows to the largest member.
	AliasRoundUp
)

func (p AliasPolicy) String() string {
	if p == AliasRoundUp {
		return "roundup"
	}
	return "exact"
}

// ParseAliasPolicy parses "exact" or "roundup" ("round-up" is accepted too).
func ParseAliasPolicy(s string) (AliasPolicy, bool) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "")) {
	case "exact", "":
		return AliasExact, true
	case "roundup":
		return AliasRoundUp, true
	}
	return AliasExact, false
}

// Option configures a Builder.
//
// Example:
//
//	b := rendergraph.NewBuilder(
//	    rendergraph.WithQueues(rendergraph.ProfileAsyncCompute),
//	    rendergraph.WithAliasPolicy(rendergraph.AliasRoundUp),
//	)
type Option func(*options)

// options holds the scheduling configuration of one graph.
type options struct {
	queues           QueueProfile
	defaultQueue     QueueType
	aliasing         bool
	aliasPolicy      AliasPolicy
	backbuffer       gputypes.Extent3D
	backbufferFormat gputypes.TextureFormat
	culling          bool
	cache            *PlanCache
}

// defaultOptions returns the default scheduling configuration: every queue
// family available, unhinted passes on the graphics queue, exact aliasing.
func defaultOptions() options {
	return options{
		queues:           ProfileFull,
		defaultQueue:     QueueGraphics,
		aliasing:         true,
		aliasPolicy:      AliasExact,
		backbuffer:       gputypes.NewExtent2D(DefaultBackbufferWidth, DefaultBackbufferHeight),
		backbufferFormat: gputypes.TextureFormatBGRA8Unorm,
	}
}

// WithQueues sets the queue families the device exposes. Passes hinted at a
// missing queue fold onto the graphics queue.
func WithQueues(p QueueProfile) Option {
	return func(o *options) {
		o.queues = p | ProfileUnified
	}
}

// WithDefaultQueue sets the queue for passes without a hint. If the queue
// cannot run a pass, or the profile lacks it, the graphics queue is used.
func WithDefaultQueue(q QueueType) Option {
	return func(o *options) {
		if q != QueueAny {
			o.defaultQueue = q
		}
	}
}

// WithAliasing enables or disables storage aliasing. Disabled, every
// resource gets a dedicated slot and RequireAlias demands are rejected.
func WithAliasing(enabled bool) Option {
	return func(o *options) {
		o.aliasing = enabled
	}
}

// WithAliasPolicy sets the descriptor compatibility rule for aliasing.
func WithAliasPolicy(p AliasPolicy) Option {
	return func(o *options) {
		o.aliasPolicy = p
	}
}

// WithBackbuffer sets the back buffer extent and format that back buffer
// sized images resolve against.
func WithBackbuffer(extent gputypes.Extent3D, format gputypes.TextureFormat) Option {
	return func(o *options) {
		if extent.DepthOrArrayLayers == 0 {
			extent.DepthOrArrayLayers = 1
		}
		o.backbuffer = extent
		if format != gputypes.TextureFormatUndefined {
			o.backbufferFormat = format
		}
	}
}

// WithCulling drops passes that contribute nothing to a resource marked
// with MarkOutput.
func WithCulling(enabled bool) Option {
	return func(o *options) {
		o.culling = enabled
	}
}

// WithPlanCache reuses compiled schedules across builders that declare the
// same structure, such as the same frame graph rebuilt every frame.
func WithPlanCache(c *PlanCache) Option {
	return func(o *options) {
		o.cache = c
	}
}
