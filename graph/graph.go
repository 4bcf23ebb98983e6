package graph

import (
	"context"
)

// END is a special constant used to represent the end node in the graph.
const END = "END"

// NodeFunc computes a partial state update from a read-only snapshot.
type NodeFunc func(ctx context.Context, state State) (State, error)

// FallbackFunc produces a substitute partial update after the node's
// NodeFunc failed with cause. It must not fail; a panic is recovered and the
// node contributes an empty update.
type FallbackFunc func(ctx context.Context, state State, cause error) State

// ConditionFunc selects a branch label from the post-merge state.
type ConditionFunc func(ctx context.Context, state State) string

// Node represents a node in the graph.
type Node struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes the functionality of the node.
	Description string

	// Function is the function associated with the node.
	Function NodeFunc

	// Fallback is invoked when Function fails. It may be nil.
	Fallback FallbackFunc
}

// NodeOption configures a node when it is added to a graph.
type NodeOption func(*Node)

// WithFallback attaches a fallback to the node.
func WithFallback(fn FallbackFunc) NodeOption {
	return func(n *Node) {
		n.Fallback = fn
	}
}

// Edge represents an edge in the graph.
type Edge struct {
	// From is the name of the node from which the edge originates.
	From string

	// To is the name of the node to which the edge points.
	To string
}

// ConditionalEdge routes from a node to exactly one of its branches.
type ConditionalEdge struct {
	From      string
	Condition ConditionFunc

	// Branches maps each label Condition may return to a destination node.
	Branches map[string]string
}
