// Package graph provides the core graph construction and execution engine for careergraph.
//
// A workflow is a directed acyclic graph of named nodes sharing one State.
// Nodes never mutate the state they are given: each receives a snapshot and
// returns a partial update holding only the fields it writes. The executor
// folds every update into the shared state through the reducer the Schema
// declares for each field.
//
// # Core Concepts
//
// ## Schema
// A Schema is the fixed set of fields a state may hold, each tagged with a
// merge Policy:
//
//   - Overwrite replaces the stored value
//   - Append concatenates onto the stored sequence
//   - Merge layers keys onto the stored mapping
//
// Every schema also declares the engine bookkeeping fields errors, warnings,
// processing_time_ms and current_node. Updates naming an undeclared field are
// rejected with ErrUnknownField, and values that do not fit a field's declared
// type with ErrTypeMismatch.
//
// ## Nodes and Edges
// Unconditional edges added from one node declare a fan-out. Every fan-out
// must be closed by a fan-in declared with AddFanIn; the fan-in node runs only
// after all of its predecessors completed, and their updates are merged in
// edge declaration order, so runs are deterministic however the branches are
// scheduled. Compile rejects a branch that could finish without passing
// through its fan-in. A conditional edge routes to exactly one destination chosen by a
// label computed from the post-merge state.
//
// ## Failures
// A node that returns an error, panics, or produces an update the schema
// rejects is degraded instead of aborting the run: its fallback, if any,
// supplies the update, and one entry is appended to the errors field. Only
// routing defects (an unmapped conditional label) and join defects stop
// Invoke with an error.
//
// # Example Usage
//
//	schema := graph.MustSchema(
//		graph.FieldOf[int]("score", graph.Overwrite),
//		graph.FieldOf[[]string]("notes", graph.Append),
//	)
//	g := graph.NewStateGraph(schema)
//
//	g.AddNode("score", "compute a score", func(ctx context.Context, s graph.State) (graph.State, error) {
//		return graph.State{"score": 85}, nil
//	})
//	g.AddNode("deep_dive", "", deepDive)
//	g.AddNode("summary", "", summarize)
//
//	g.SetEntryPoint("score")
//	g.AddConditionalEdge("score", func(ctx context.Context, s graph.State) string {
//		if s["score"].(int) > 80 {
//			return "deep"
//		}
//		return "shallow"
//	}, map[string]string{"deep": "deep_dive", "shallow": "summary"})
//	g.AddEdge("deep_dive", "summary")
//	g.AddEdge("summary", graph.END)
//
//	runnable, err := g.Compile()
//	if err != nil {
//		return err
//	}
//	final, err := runnable.Invoke(ctx, graph.State{})
//
// # Visualization
//
// Exporter renders a graph as Mermaid, Graphviz DOT or an ASCII tree.
package graph
