package graph

import (
	"fmt"
	"slices"
	"sort"

	"github.com/smallnest/careergraph/log"
)

// StateGraph is a builder for one phase of work. Every Add* call validates
// the node names it references; Compile validates the whole topology.
type StateGraph struct {
	// nodes is a map of node names to their corresponding Node objects
	nodes map[string]Node

	// nodeOrder keeps declaration order for deterministic traversal
	nodeOrder []string

	// edges is a slice of Edge objects in declaration order
	edges []Edge

	// conditionalEdges is keyed by source node; at most one per node
	conditionalEdges map[string]ConditionalEdge

	// fanIns maps a join node to the predecessors it waits for
	fanIns map[string][]string

	// entryPoint is the name of the entry point node in the graph
	entryPoint string

	schema *Schema
}

// NewStateGraph creates an empty graph over schema.
func NewStateGraph(schema *Schema) *StateGraph {
	return &StateGraph{
		nodes:            make(map[string]Node),
		conditionalEdges: make(map[string]ConditionalEdge),
		fanIns:           make(map[string][]string),
		schema:           schema,
	}
}

// Schema returns the graph's state schema.
func (g *StateGraph) Schema() *Schema {
	return g.schema
}

// AddNode adds a new node to the state graph with the given name, description and function.
func (g *StateGraph) AddNode(name, description string, fn NodeFunc, opts ...NodeOption) error {
	if name == "" || name == END {
		return topologyErr(name, "invalid node name")
	}
	if fn == nil {
		return topologyErr(name, "node function is nil")
	}
	if _, ok := g.nodes[name]; ok {
		return topologyErr(name, "node declared twice")
	}
	n := Node{Name: name, Description: description, Function: fn}
	for _, opt := range opts {
		opt(&n)
	}
	g.nodes[name] = n
	g.nodeOrder = append(g.nodeOrder, name)
	return nil
}

// AddEdge adds an unconditional edge. Adding several edges from one node
// declares a fan-out; the order of the calls is the branch order used when
// merging the branches at the fan-in.
func (g *StateGraph) AddEdge(from, to string) error {
	if err := g.requireNode(from); err != nil {
		return err
	}
	if to != END {
		if err := g.requireNode(to); err != nil {
			return err
		}
	}
	if _, ok := g.conditionalEdges[from]; ok {
		return topologyErr(from, "node already has a conditional edge")
	}
	for _, e := range g.edges {
		if e.From == from && e.To == to {
			return topologyErr(from, "duplicate edge to %s", to)
		}
	}
	g.edges = append(g.edges, Edge{From: from, To: to})
	return nil
}

// AddConditionalEdge routes from a node to the destination mapped to the
// label returned by condition.
func (g *StateGraph) AddConditionalEdge(from string, condition ConditionFunc, branches map[string]string) error {
	if err := g.requireNode(from); err != nil {
		return err
	}
	if condition == nil {
		return topologyErr(from, "condition is nil")
	}
	if len(branches) == 0 {
		return topologyErr(from, "conditional edge has no branches")
	}
	if _, ok := g.conditionalEdges[from]; ok {
		return topologyErr(from, "node already has a conditional edge")
	}
	if slices.ContainsFunc(g.edges, func(e Edge) bool { return e.From == from }) {
		return topologyErr(from, "node already has unconditional edges")
	}
	copied := make(map[string]string, len(branches))
	for label, to := range branches {
		if to != END {
			if err := g.requireNode(to); err != nil {
				return err
			}
		}
		copied[label] = to
	}
	g.conditionalEdges[from] = ConditionalEdge{From: from, Condition: condition, Branches: copied}
	return nil
}

// AddFanIn declares join as the barrier for predecessors: join runs only
// after every one of them has completed.
func (g *StateGraph) AddFanIn(join string, predecessors ...string) error {
	if err := g.requireNode(join); err != nil {
		return err
	}
	if len(predecessors) < 2 {
		return topologyErr(join, "fan-in needs at least two predecessors")
	}
	if _, ok := g.fanIns[join]; ok {
		return topologyErr(join, "fan-in declared twice")
	}
	for _, p := range predecessors {
		if err := g.requireNode(p); err != nil {
			return err
		}
	}
	g.fanIns[join] = slices.Clone(predecessors)
	return nil
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph) SetEntryPoint(name string) error {
	if err := g.requireNode(name); err != nil {
		return err
	}
	g.entryPoint = name
	return nil
}

func (g *StateGraph) requireNode(name string) error {
	if _, ok := g.nodes[name]; !ok {
		return &TopologyError{Node: name, Reason: "undeclared node", Err: ErrNodeNotFound}
	}
	return nil
}

// CompileOption configures a Runnable.
type CompileOption func(*Runnable)

// WithListener registers a listener notified of node events.
func WithListener(l NodeListener) CompileOption {
	return func(r *Runnable) {
		r.listeners = append(r.listeners, l)
	}
}

// WithLogger sets the logger used by the executor.
func WithLogger(l log.Logger) CompileOption {
	return func(r *Runnable) {
		r.logger = l
	}
}

// WithMaxConcurrency bounds the number of branches of one fan-out that run
// at the same time. Zero means unbounded.
func WithMaxConcurrency(n int) CompileOption {
	return func(r *Runnable) {
		r.maxConcurrency = n
	}
}

// Compile validates the topology and returns an executable Runnable.
func (g *StateGraph) Compile(opts ...CompileOption) (*Runnable, error) {
	if g.schema == nil {
		return nil, fmt.Errorf("%w: graph has no schema", ErrInvalidSchema)
	}
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}

	successors := make(map[string][]string, len(g.nodes))
	for _, e := range g.edges {
		successors[e.From] = append(successors[e.From], e.To)
	}

	order, err := g.topologicalOrder(successors)
	if err != nil {
		return nil, err
	}

	reach := g.reachability(successors, order)
	for _, name := range g.nodeOrder {
		if name != g.entryPoint && !reach[g.entryPoint][name] {
			return nil, topologyErr(name, "not reachable from entry point %s", g.entryPoint)
		}
	}

	for join, preds := range g.fanIns {
		for _, p := range preds {
			if !slices.Contains(g.outgoing(p, successors), join) {
				return nil, topologyErr(join, "fan-in predecessor %s has no edge to it", p)
			}
		}
		for _, from := range g.nodeOrder {
			if slices.Contains(g.outgoing(from, successors), join) && !slices.Contains(preds, from) {
				return nil, topologyErr(join, "edge from %s bypasses the fan-in barrier", from)
			}
		}
	}

	joinOf := make(map[string]string)
	used := make(map[string]bool)
	for _, from := range g.nodeOrder {
		succ := successors[from]
		if len(succ) < 2 {
			continue
		}
		if slices.Contains(succ, END) {
			return nil, topologyErr(from, "fan-out branch cannot target %s", END)
		}
		join := g.findJoin(succ, order, reach)
		if join == "" {
			return nil, topologyErr(from, "fan-out to %v has no declared fan-in reachable from every branch", succ)
		}
		if shared := g.sharedBeforeJoin(succ, join, reach); shared != "" {
			return nil, topologyErr(shared, "reached by more than one branch of %s before %s", from, join)
		}
		if err := g.checkBranches(from, succ, join, successors, reach); err != nil {
			return nil, err
		}
		if used[join] {
			return nil, topologyErr(join, "fan-in is shared by more than one fan-out")
		}
		joinOf[from] = join
		used[join] = true
	}
	for join := range g.fanIns {
		if !used[join] {
			return nil, topologyErr(join, "fan-in is not the join of any fan-out")
		}
	}

	r := &Runnable{
		graph:      g,
		schema:     g.schema,
		successors: successors,
		joinOf:     joinOf,
		logger:     log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// outgoing lists every possible next node, conditional branches included,
// in a stable order.
func (g *StateGraph) outgoing(name string, successors map[string][]string) []string {
	if ce, ok := g.conditionalEdges[name]; ok {
		out := make([]string, 0, len(ce.Branches))
		for _, to := range ce.Branches {
			if !slices.Contains(out, to) {
				out = append(out, to)
			}
		}
		sort.Strings(out)
		return out
	}
	return successors[name]
}

// topologicalOrder returns the nodes in dependency order or a TopologyError
// if the graph has a cycle.
func (g *StateGraph) topologicalOrder(successors map[string][]string) ([]string, error) {
	const (
		unvisited = iota
		visiting
		visited
	)
	marks := make(map[string]int, len(g.nodes))
	order := make([]string, 0, len(g.nodes))

	var visit func(name string) error
	visit = func(name string) error {
		switch marks[name] {
		case visiting:
			return topologyErr(name, "cycle detected")
		case visited:
			return nil
		}
		marks[name] = visiting
		for _, next := range g.outgoing(name, successors) {
			if next == END {
				continue
			}
			if err := visit(next); err != nil {
				return err
			}
		}
		marks[name] = visited
		order = append(order, name)
		return nil
	}

	for _, name := range g.nodeOrder {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	slices.Reverse(order)
	return order, nil
}

// reachability maps every node to the set of nodes reachable from it.
func (g *StateGraph) reachability(successors map[string][]string, order []string) map[string]map[string]bool {
	reach := make(map[string]map[string]bool, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		set := make(map[string]bool)
		for _, next := range g.outgoing(name, successors) {
			if next == END {
				continue
			}
			set[next] = true
			for n := range reach[next] {
				set[n] = true
			}
		}
		reach[name] = set
	}
	return reach
}

// findJoin picks the earliest declared fan-in, in topological order, that
// every branch can reach.
func (g *StateGraph) findJoin(branches, order []string, reach map[string]map[string]bool) string {
	for _, candidate := range order {
		if _, ok := g.fanIns[candidate]; !ok {
			continue
		}
		if slices.Contains(branches, candidate) {
			continue
		}
		all := true
		for _, b := range branches {
			if !reach[b][candidate] {
				all = false
				break
			}
		}
		if all {
			return candidate
		}
	}
	return ""
}

// sharedBeforeJoin returns a node, other than join and what follows it, that
// more than one branch can reach. Such a node would run once per branch.
func (g *StateGraph) sharedBeforeJoin(branches []string, join string, reach map[string]map[string]bool) string {
	owner := make(map[string]int)
	for i, b := range branches {
		nodes := []string{b}
		for n := range reach[b] {
			nodes = append(nodes, n)
		}
		sort.Strings(nodes)
		for _, n := range nodes {
			if n == join || reach[join][n] {
				continue
			}
			if prev, ok := owner[n]; ok && prev != i {
				return n
			}
			owner[n] = i
		}
	}
	return ""
}

// checkBranches rejects a fan-out whose branches can finish without passing
// through join, or can arrive at join from more than one node. Either would
// leave the barrier short of a predecessor depending on the data.
func (g *StateGraph) checkBranches(from string, branches []string, join string, successors map[string][]string, reach map[string]map[string]bool) error {
	for _, b := range branches {
		region := []string{b}
		for n := range reach[b] {
			if n != join && !reach[join][n] {
				region = append(region, n)
			}
		}
		sort.Strings(region)

		var arrivals []string
		for _, n := range region {
			out := g.outgoing(n, successors)
			if len(out) == 0 {
				return topologyErr(n, "branch of %s ends before fan-in %s", from, join)
			}
			for _, to := range out {
				switch {
				case to == join:
					arrivals = append(arrivals, n)
				case to == END:
					return topologyErr(n, "branch of %s can reach %s before fan-in %s", from, END, join)
				case !slices.Contains(region, to):
					return topologyErr(n, "branch of %s skips fan-in %s", from, join)
				}
			}
		}
		if len(arrivals) != 1 {
			return topologyErr(b, "branch of %s reaches fan-in %s from %v, want exactly one node", from, join, arrivals)
		}
	}
	return nil
}
