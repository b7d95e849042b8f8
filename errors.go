package rendergraph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors below unwrap to these, so callers can test
// with errors.Is and recover details with errors.As.
var (
	// ErrUnknownResource is returned when a ResourceID was not declared on this graph.
	ErrUnknownResource = errors.New("rendergraph: unknown resource")

	// ErrUnknownPass is returned when a PassID was not added to this graph.
	ErrUnknownPass = errors.New("rendergraph: unknown pass")

	// ErrUsageConflict is returned when two accesses race on the same resource.
	ErrUsageConflict = errors.New("rendergraph: usage conflict")

	// ErrGraphFrozen is returned when the builder is used after Finalize.
	ErrGraphFrozen = errors.New("rendergraph: graph is frozen")

	// ErrEmptyGraph is returned when Finalize is called with zero passes.
	ErrEmptyGraph = errors.New("rendergraph: graph has no passes")

	// ErrCyclicDependency is returned when the derived pass dependencies form a cycle.
	ErrCyclicDependency = errors.New("rendergraph: cyclic dependency")

	// ErrQueueCapability is returned when a queue hint cannot run the pass kind.
	ErrQueueCapability = errors.New("rendergraph: queue lacks capability")

	// ErrIncompatibleAlias is returned when a demanded alias pair cannot share storage.
	ErrIncompatibleAlias = errors.New("rendergraph: incompatible alias")

	// ErrInvalidDescriptor is returned for malformed resource descriptors.
	ErrInvalidDescriptor = errors.New("rendergraph: invalid resource descriptor")

	// ErrInvalidUsage is returned when a usage does not fit the resource or pass kind.
	ErrInvalidUsage = errors.New("rendergraph: invalid usage")

	// ErrAttachmentMismatch is returned when attachments of one graphics pass differ in size.
	ErrAttachmentMismatch = errors.New("rendergraph: attachment size mismatch")

	// ErrUnresolvedDescriptor is returned when a derived descriptor cannot be inferred.
	ErrUnresolvedDescriptor = errors.New("rendergraph: unresolved derived descriptor")

	// ErrNoOutput is returned when culling is enabled but no resource is marked as output.
	ErrNoOutput = errors.New("rendergraph: no output resource")
)

// GraphError carries a sentinel kind and a human readable message.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Msg
}

func (e *GraphError) Unwrap() error { return e.Kind }

func graphErrorf(kind error, format string, args ...any) error {
	return &GraphError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// UnknownResourceError reports an access to a resource id that was never declared.
type UnknownResourceError struct {
	Resource ResourceID
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("rendergraph: unknown resource %d", e.Resource)
}

func (e *UnknownResourceError) Unwrap() error { return ErrUnknownResource }

// UnknownPassError reports an access from a pass id that was never added.
type UnknownPassError struct {
	Pass PassID
}

func (e *UnknownPassError) Error() string {
	return fmt.Sprintf("rendergraph: unknown pass %d", e.Pass)
}

func (e *UnknownPassError) Unwrap() error { return ErrUnknownPass }

// UsageConflictError reports two accesses that cannot both be honoured.
// First is the earlier pass, Second the pass whose declaration was rejected.
type UsageConflictError struct {
	Resource ResourceID
	First    PassID
	Second   PassID
	Reason   string

	resourceName string
	firstName    string
	secondName   string
}

func (e *UsageConflictError) Error() string {
	return fmt.Sprintf("rendergraph: usage conflict on %q between %q and %q: %s",
		e.resourceName, e.firstName, e.secondName, e.Reason)
}

func (e *UsageConflictError) Unwrap() error { return ErrUsageConflict }

// CyclicDependencyError identifies a dependency cycle. Chain starts and ends
// with the same pass; Via[i] is the resource that links Chain[i] to Chain[i+1].
type CyclicDependencyError struct {
	Resource ResourceID
	Chain    []PassID
	Via      []ResourceID

	path string
}

func (e *CyclicDependencyError) Error() string {
	return "rendergraph: cyclic dependency: " + e.path
}

func (e *CyclicDependencyError) Unwrap() error { return ErrCyclicDependency }

// QueueCapabilityError reports a queue hint that cannot execute the pass kind.
type QueueCapabilityError struct {
	Pass  PassID
	Queue QueueType
	Kind  PassKind

	passName string
}

func (e *QueueCapabilityError) Error() string {
	return fmt.Sprintf("rendergraph: pass %q (%s) cannot run on the %s queue", e.passName, e.Kind, e.Queue)
}

func (e *QueueCapabilityError) Unwrap() error { return ErrQueueCapability }

// IncompatibleAliasError reports a demanded alias pair that violates a hard constraint.
type IncompatibleAliasError struct {
	A, B   ResourceID
	Reason string

	aName, bName string
}

func (e *IncompatibleAliasError) Error() string {
	return fmt.Sprintf("rendergraph: cannot alias %q with %q: %s", e.aName, e.bName, e.Reason)
}

func (e *IncompatibleAliasError) Unwrap() error { return ErrIncompatibleAlias }

// formatCycle renders a pass chain as "a" -[r]-> "b" -[s]-> "a".
func formatCycle(passNames, resNames []string) string {
	var sb strings.Builder
	for i, p := range passNames {
		if i > 0 {
			fmt.Fprintf(&sb, " -[%s]-> ", resNames[i-1])
		}
		fmt.Fprintf(&sb, "%q", p)
	}
	return sb.String()
}
