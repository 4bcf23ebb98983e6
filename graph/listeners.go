package graph

import (
	"context"
	"sync"
)

// NodeEvent represents different types of node events
type NodeEvent string

const (
	// NodeEventStart indicates a node has started execution
	NodeEventStart NodeEvent = "start"

	// NodeEventComplete indicates a node has completed and its update was accepted
	NodeEventComplete NodeEvent = "complete"

	// NodeEventError indicates a node's compute function failed
	NodeEventError NodeEvent = "error"

	// NodeEventFallback indicates a node's fallback supplied its update
	NodeEventFallback NodeEvent = "fallback"

	// EventRoute indicates a conditional edge selected a branch
	EventRoute NodeEvent = "route"

	// EventJoin indicates every branch of a fan-out has been merged
	EventJoin NodeEvent = "join"
)

// NodeListener defines the interface for node event listeners.
// Listeners are called from branch goroutines and must be safe for
// concurrent use. Each call receives its own copy of the state, so writes
// to it never reach the run.
type NodeListener interface {
	// OnNodeEvent is called when a node event occurs
	OnNodeEvent(ctx context.Context, event NodeEvent, nodeName string, state State, err error)
}

// NodeListenerFunc is a function adapter for NodeListener
type NodeListenerFunc func(ctx context.Context, event NodeEvent, nodeName string, state State, err error)

// OnNodeEvent implements the NodeListener interface
func (f NodeListenerFunc) OnNodeEvent(ctx context.Context, event NodeEvent, nodeName string, state State, err error) {
	f(ctx, event, nodeName, state, err)
}

// Recorder is a NodeListener that keeps every event it sees, in order.
type Recorder struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// RecordedEvent is one event captured by a Recorder.
type RecordedEvent struct {
	Event NodeEvent
	Node  string
	Err   error
}

// OnNodeEvent implements NodeListener.
func (r *Recorder) OnNodeEvent(_ context.Context, event NodeEvent, nodeName string, _ State, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{Event: event, Node: nodeName, Err: err})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Nodes returns the names of nodes that emitted event, in emission order.
func (r *Recorder) Nodes(event NodeEvent) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e.Node)
		}
	}
	return out
}
