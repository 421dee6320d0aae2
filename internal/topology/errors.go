package topology

import "fmt"

// Kind names the entity type an error pertains to, so callers (the
// admission service) can translate it into the right NAME_IN_USE /
// NAME_NONEXISTENT status-code variant per spec.md §6.
type Kind string

const (
	KindQueue  Kind = "queue"
	KindFlow   Kind = "flow"
	KindClient Kind = "client"
)

// NameInUseError is returned when an add operation's name collides with a
// live entity of the same kind.
type NameInUseError struct {
	Kind Kind
	Name string
}

func (e *NameInUseError) Error() string {
	return fmt.Sprintf("topology: %s name %q already in use", e.Kind, e.Name)
}

// NameNonexistentError is returned when an operation references a name or id
// that does not resolve to a live entity.
type NameNonexistentError struct {
	Kind Kind
	Name string
}

func (e *NameNonexistentError) Error() string {
	return fmt.Sprintf("topology: %s %q does not exist", e.Kind, e.Name)
}

// QueueHasActiveFlowsError is returned by DelQueue when the queue still has
// flows routed through it.
type QueueHasActiveFlowsError struct {
	Name string
}

func (e *QueueHasActiveFlowsError) Error() string {
	return fmt.Sprintf("topology: queue %q has active flows", e.Name)
}
