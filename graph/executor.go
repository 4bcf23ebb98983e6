package graph

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/smallnest/careergraph/log"
)

// NodeStatus is the lifecycle position of a node within one run.
type NodeStatus int

const (
	StatusPending NodeStatus = iota
	StatusReady
	StatusRunning
	StatusDone
)

func (s NodeStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Runnable is a compiled graph. It is safe to invoke concurrently; every
// Invoke keeps its own execution record.
type Runnable struct {
	graph          *StateGraph
	schema         *Schema
	successors     map[string][]string
	joinOf         map[string]string
	listeners      []NodeListener
	logger         log.Logger
	maxConcurrency int
}

// Schema returns the schema the graph was built with.
func (r *Runnable) Schema() *Schema {
	return r.schema
}

// Graph returns the source graph.
func (r *Runnable) Graph() *StateGraph {
	return r.graph
}

// execution tracks node status for a single Invoke.
type execution struct {
	runID  string
	mu     sync.Mutex
	status map[string]NodeStatus
}

func newExecution(nodes []string) *execution {
	status := make(map[string]NodeStatus, len(nodes))
	for _, n := range nodes {
		status[n] = StatusPending
	}
	return &execution{runID: uuid.NewString(), status: status}
}

// advance moves node one step along pending -> ready -> running -> done.
func (e *execution) advance(node string, to NodeStatus) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	from := e.status[node]
	if to != from+1 {
		return fmt.Errorf("node %s cannot move from %s to %s", node, from, to)
	}
	e.status[node] = to
	return nil
}

// walkResult is what one sequential walk contributes to its caller.
type walkResult struct {
	// updates are the partial updates applied, in application order
	updates []State

	// last is the final node executed before the walk stopped
	last string

	// reached is true when the walk stopped at its stop node
	reached bool
}

// Invoke runs the graph from the entry point and returns the final state.
// Node failures never make Invoke fail; they are summarised in the errors
// field. Invoke returns an error only for routing or join defects and for
// initial states the schema rejects.
func (r *Runnable) Invoke(ctx context.Context, initial State) (State, error) {
	state, err := r.schema.Merge(r.schema.Init(), initial)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state with schema: %w", err)
	}

	exec := newExecution(r.graph.nodeOrder)
	r.logger.Debug("run %s: starting at %s", exec.runID, r.graph.entryPoint)

	final, _, err := r.walk(ctx, exec, r.graph.entryPoint, "", state)
	if err != nil {
		r.logger.Error("run %s: aborted: %v", exec.runID, err)
		return nil, err
	}

	if errs := Errors(final); len(errs) > 0 {
		r.logger.Warn("run %s: finished with %d degraded node(s)", exec.runID, len(errs))
	} else {
		r.logger.Debug("run %s: finished", exec.runID)
	}
	return final, nil
}

// walk executes nodes one after another from start until it reaches stop,
// END, or a node with no outgoing edges. Fan-outs met on the way are run to
// their join before the walk continues.
func (r *Runnable) walk(ctx context.Context, exec *execution, start, stop string, state State) (State, walkResult, error) {
	var res walkResult
	current := start

	for {
		if err := exec.advance(current, StatusReady); err != nil {
			return nil, res, err
		}

		updates, err := r.runNode(ctx, exec, current, state)
		if err != nil {
			return nil, res, err
		}
		for _, u := range updates {
			merged, err := r.schema.Merge(state, u)
			if err != nil {
				return nil, res, fmt.Errorf("failed to merge update of node %s: %w", current, err)
			}
			state = merged
		}
		res.updates = append(res.updates, updates...)
		res.last = current

		next, err := r.next(ctx, current, state)
		if err != nil {
			return nil, res, err
		}

		if len(next) > 1 {
			join := r.joinOf[current]
			var branchUpdates []State
			state, branchUpdates, err = r.fanOut(ctx, exec, current, join, next, state)
			if err != nil {
				return nil, res, err
			}
			res.updates = append(res.updates, branchUpdates...)
			next = []string{join}
		}

		target := next[0]
		switch target {
		case END:
			return state, res, nil
		case stop:
			res.reached = true
			return state, res, nil
		}
		current = target
	}
}

// fanOut runs every branch concurrently against the same snapshot, waits for
// all of them, then merges their updates in branch declaration order.
func (r *Runnable) fanOut(ctx context.Context, exec *execution, from, join string, branches []string, state State) (State, []State, error) {
	r.logger.Debug("run %s: fan-out from %s to %v, join at %s", exec.runID, from, branches, join)

	results := make([]walkResult, len(branches))
	var g errgroup.Group
	if r.maxConcurrency > 0 {
		g.SetLimit(r.maxConcurrency)
	}
	for i, branch := range branches {
		i, branch := i, branch
		snapshot := state.Clone()
		g.Go(func() error {
			_, res, err := r.walk(ctx, exec, branch, join, snapshot)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	required := r.graph.fanIns[join]
	arrived := make([]string, 0, len(results))
	for i, res := range results {
		if !res.reached {
			return nil, nil, fmt.Errorf("%w: branch %s from %s ended before %s", ErrJoinIncomplete, branches[i], from, join)
		}
		if !slices.Contains(arrived, res.last) {
			arrived = append(arrived, res.last)
		}
	}
	for _, p := range required {
		if !slices.Contains(arrived, p) {
			return nil, nil, fmt.Errorf("%w: %s did not complete before %s", ErrJoinIncomplete, p, join)
		}
	}
	for _, a := range arrived {
		if !slices.Contains(required, a) {
			return nil, nil, fmt.Errorf("%w: %s is not a declared predecessor of %s", ErrJoinIncomplete, a, join)
		}
	}

	var applied []State
	for i, res := range results {
		for _, u := range res.updates {
			merged, err := r.schema.Merge(state, u)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to merge branch %s into %s: %w", branches[i], join, err)
			}
			state = merged
		}
		applied = append(applied, res.updates...)
	}

	r.emit(ctx, EventJoin, join, state, nil)
	return state, applied, nil
}

// runNode executes one node and returns the updates it contributes: its own
// partial (or its fallback's) followed by the engine's bookkeeping update.
func (r *Runnable) runNode(ctx context.Context, exec *execution, name string, state State) ([]State, error) {
	node := r.graph.nodes[name]
	if err := exec.advance(name, StatusRunning); err != nil {
		return nil, err
	}
	r.emit(ctx, NodeEventStart, name, state, nil)
	started := time.Now()

	book := State{FieldCurrentNode: name}
	partial, err := r.compute(ctx, node, state)
	if err != nil {
		nodeErr := &NodeExecutionError{Node: name, Err: err}
		r.logger.Warn("run %s: %v", exec.runID, nodeErr)
		r.emit(ctx, NodeEventError, name, state, nodeErr)

		entry := nodeErr.entry()
		partial = nil
		if node.Fallback != nil {
			fb, fbErr := r.fallback(ctx, node, state, err)
			if fbErr != nil {
				r.logger.Error("run %s: fallback of %s failed: %v", exec.runID, name, fbErr)
				entry = fmt.Sprintf("%s (fallback failed: %v)", entry, fbErr)
			} else {
				partial = fb
				r.emit(ctx, NodeEventFallback, name, fb, nodeErr)
			}
		}
		book[FieldErrors] = []string{entry}
	}

	elapsed := float64(time.Since(started).Microseconds()) / 1000
	book[FieldProcessingTime] = map[string]float64{name: elapsed}

	updates := make([]State, 0, 2)
	if len(partial) > 0 {
		updates = append(updates, partial)
	}
	updates = append(updates, book)

	if err := exec.advance(name, StatusDone); err != nil {
		return nil, err
	}
	r.emit(ctx, NodeEventComplete, name, partial, nil)
	return updates, nil
}

// compute calls the node function on a private snapshot and checks that the
// schema accepts its output.
func (r *Runnable) compute(ctx context.Context, node Node, state State) (partial State, err error) {
	defer func() {
		if p := recover(); p != nil {
			partial, err = nil, &PanicError{Value: p}
		}
	}()

	partial, err = node.Function(ctx, state.Clone())
	if err != nil {
		return nil, err
	}
	if err := r.accept(state, partial); err != nil {
		return nil, err
	}
	return partial, nil
}

func (r *Runnable) fallback(ctx context.Context, node Node, state State, cause error) (partial State, err error) {
	defer func() {
		if p := recover(); p != nil {
			partial, err = nil, &PanicError{Value: p}
		}
	}()

	partial = node.Fallback(ctx, state.Clone(), cause)
	if err := r.accept(state, partial); err != nil {
		return nil, err
	}
	return partial, nil
}

// accept reports whether partial merges cleanly onto state.
func (r *Runnable) accept(state, partial State) error {
	if len(partial) == 0 {
		return nil
	}
	if _, err := r.schema.Merge(state, partial); err != nil {
		return fmt.Errorf("invalid update: %w", err)
	}
	return nil
}

// next returns the nodes that follow name. A conditional edge yields exactly
// one destination; a node without outgoing edges yields END.
func (r *Runnable) next(ctx context.Context, name string, state State) ([]string, error) {
	if ce, ok := r.graph.conditionalEdges[name]; ok {
		label, err := evaluate(ctx, ce.Condition, state)
		if err != nil {
			return nil, fmt.Errorf("condition of %s failed: %w", name, err)
		}
		to, ok := ce.Branches[label]
		if !ok {
			return nil, &UnroutableBranchError{Node: name, Label: label}
		}
		r.logger.Debug("route %s -[%s]-> %s", name, label, to)
		r.emit(ctx, EventRoute, to, state, nil)
		return []string{to}, nil
	}

	succ := r.successors[name]
	if len(succ) == 0 {
		return []string{END}, nil
	}
	return succ, nil
}

func evaluate(ctx context.Context, cond ConditionFunc, state State) (label string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p}
		}
	}()
	return cond(ctx, state.Clone()), nil
}

// emit hands every listener its own copy of state.
func (r *Runnable) emit(ctx context.Context, event NodeEvent, node string, state State, err error) {
	for _, l := range r.listeners {
		l.OnNodeEvent(ctx, event, node, state.Clone(), err)
	}
}

// Errors returns the errors field of state.
func Errors(state State) []string {
	errs, _ := state[FieldErrors].([]string)
	return errs
}

// Degraded reports whether any node of the run that produced state failed.
func Degraded(state State) bool {
	return len(Errors(state)) > 0
}
