package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when a node is not found in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidSchema is returned when a schema declaration is malformed.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrUnknownField is returned when a state update names an undeclared field.
	ErrUnknownField = errors.New("unknown state field")

	// ErrTypeMismatch is returned when a state value does not fit the type
	// its field declares.
	ErrTypeMismatch = errors.New("state value does not match field type")

	// ErrJoinIncomplete is returned when a fan-in node is reached without
	// every declared predecessor having completed.
	ErrJoinIncomplete = errors.New("fan-in reached without all predecessors")
)

// TopologyError reports a structural defect in a graph. It is raised while
// the graph is being built, before anything executes.
type TopologyError struct {
	// Node is the node the defect was detected at, if any.
	Node   string
	Reason string
	Err    error
}

func (e *TopologyError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("topology error at %s: %s", e.Node, e.Reason)
	}
	return "topology error: " + e.Reason
}

func (e *TopologyError) Unwrap() error { return e.Err }

func topologyErr(node, format string, args ...any) *TopologyError {
	return &TopologyError{Node: node, Reason: fmt.Sprintf(format, args...)}
}

// UnroutableBranchError is returned when a conditional edge's predicate
// produces a label with no mapped destination. It aborts the run.
type UnroutableBranchError struct {
	Node  string
	Label string
}

func (e *UnroutableBranchError) Error() string {
	return fmt.Sprintf("conditional edge from %s returned unmapped label %q", e.Node, e.Label)
}

// NodeExecutionError records a node whose compute function failed. The
// executor never returns it from Invoke; it is delivered to listeners and
// summarised into the errors field.
type NodeExecutionError struct {
	Node string
	Err  error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("error in node %s: %v", e.Node, e.Err)
}

func (e *NodeExecutionError) Unwrap() error { return e.Err }

// entry is the line appended to the errors field.
func (e *NodeExecutionError) entry() string {
	return fmt.Sprintf("%s: %v", e.Node, e.Err)
}

// PanicError wraps a value recovered from a panicking node.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
