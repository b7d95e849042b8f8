package rendergraph

import (
	"strings"

	"github.com/gogpu/gpucontext"
)

// QueueType identifies a hardware queue family.
type QueueType uint8

const (
	// QueueAny is the absent queue hint: the scheduler picks the queue.
	QueueAny QueueType = iota
	// QueueGraphics supports graphics, compute and transfer work.
	QueueGraphics
	// QueueCompute supports compute and transfer work.
	QueueCompute
	// QueueTransfer supports transfer work only.
	QueueTransfer
)

// queueOrder is the order timelines are reported in.
var queueOrder = [...]QueueType{QueueGraphics, QueueCompute, QueueTransfer}

var queueNames = [...]string{
	QueueAny:      "any",
	QueueGraphics: "graphics",
	QueueCompute:  "compute",
	QueueTransfer: "transfer",
}

// String returns the lower-case queue name.
func (q QueueType) String() string {
	if int(q) < len(queueNames) {
		return queueNames[q]
	}
	return "unknown"
}

// ParseQueue parses a queue name as produced by String.
func ParseQueue(s string) (QueueType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range queueNames {
		if name == s {
			return QueueType(i), true
		}
	}
	return QueueAny, false
}

// Capability is a set of work classes a queue can execute.
type Capability uint8

const (
	CapGraphics Capability = 1 << iota
	CapCompute
	CapTransfer
)

// Has reports whether c contains every bit of need.
func (c Capability) Has(need Capability) bool { return c&need == need }

// Caps returns the capabilities of the queue family.
func (q QueueType) Caps() Capability {
	switch q {
	case QueueGraphics:
		return CapGraphics | CapCompute | CapTransfer
	case QueueCompute:
		return CapCompute | CapTransfer
	case QueueTransfer:
		return CapTransfer
	default:
		return 0
	}
}

// QueueProfile is the set of queue families a device exposes.
// The graphics queue is always present.
type QueueProfile uint8

const (
	// ProfileUnified exposes one graphics queue that runs everything.
	ProfileUnified QueueProfile = 1 << QueueGraphics
	// ProfileAsyncCompute adds a dedicated compute queue.
	ProfileAsyncCompute = ProfileUnified | 1<<QueueCompute
	// ProfileFull adds dedicated compute and transfer queues.
	ProfileFull = ProfileAsyncCompute | 1<<QueueTransfer
)

// NewQueueProfile returns a profile containing the graphics queue and qs.
func NewQueueProfile(qs ...QueueType) QueueProfile {
	p := ProfileUnified
	for _, q := range qs {
		if q != QueueAny {
			p |= 1 << q
		}
	}
	return p
}

// Has reports whether the profile exposes queue q.
func (p QueueProfile) Has(q QueueType) bool {
	return q != QueueAny && p&(1<<q) != 0
}

// Queues returns the exposed queues in reporting order.
func (p QueueProfile) Queues() []QueueType {
	qs := make([]QueueType, 0, len(queueOrder))
	for _, q := range queueOrder {
		if p.Has(q) {
			qs = append(qs, q)
		}
	}
	return qs
}

func (p QueueProfile) String() string {
	names := make([]string, 0, 3)
	for _, q := range p.Queues() {
		names = append(names, q.String())
	}
	return strings.Join(names, ",")
}

// ProfileForAdapter picks a queue profile for the adapter a device provider
// reports. Software and unknown adapters get a single graphics queue.
func ProfileForAdapter(info gpucontext.AdapterInfo) QueueProfile {
	switch info.Type {
	case gpucontext.AdapterTypeDiscrete:
		return ProfileFull
	case gpucontext.AdapterTypeIntegrated:
		return ProfileAsyncCompute
	default:
		return ProfileUnified
	}
}

// ParseAdapterType parses an adapter type name such as "discrete" or
// "Integrated".
func ParseAdapterType(s string) (gpucontext.AdapterType, bool) {
	for _, t := range []gpucontext.AdapterType{
		gpucontext.AdapterTypeDiscrete,
		gpucontext.AdapterTypeIntegrated,
		gpucontext.AdapterTypeSoftware,
		gpucontext.AdapterTypeUnknown,
	} {
		if strings.EqualFold(strings.TrimSpace(s), t.String()) {
			return t, true
		}
	}
	return gpucontext.AdapterTypeUnknown, false
}
