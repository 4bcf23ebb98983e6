package graph

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notesSchema() *Schema {
	return MustSchema(
		FieldOf[[]string]("notes", Append),
		FieldOf[string]("winner", Overwrite),
		FieldOf[int]("score", Overwrite),
		FieldOf[string]("path", Overwrite),
		FieldOf[map[string]string]("seen", Merge),
	)
}

func note(name string) NodeFunc {
	return func(_ context.Context, _ State) (State, error) {
		return State{"notes": []string{name}}, nil
	}
}

func TestRunnable_Invoke_Sequential(t *testing.T) {
	g := NewStateGraph(notesSchema())
	require.NoError(t, g.AddNode("a", "first", note("a")))
	require.NoError(t, g.AddNode("b", "second", note("b")))
	require.NoError(t, g.SetEntryPoint("a"))
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", END))

	r, err := g.Compile()
	require.NoError(t, err)

	final, err := r.Invoke(context.Background(), State{"notes": []string{"init"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"init", "a", "b"}, final["notes"])
	assert.Equal(t, "b", final[FieldCurrentNode])
	assert.Empty(t, Errors(final))
	assert.False(t, Degraded(final))

	times := final[FieldProcessingTime].(map[string]float64)
	assert.Contains(t, times, "a")
	assert.Contains(t, times, "b")
}

func TestRunnable_Invoke_InitialStateRejected(t *testing.T) {
	g := NewStateGraph(notesSchema())
	require.NoError(t, g.AddNode("a", "", noop))
	require.NoError(t, g.SetEntryPoint("a"))
	r, err := g.Compile()
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), State{"bogus": true})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestRunnable_Invoke_SnapshotIsolation(t *testing.T) {
	g := NewStateGraph(notesSchema())
	require.NoError(t, g.AddNode("vandal", "", func(_ context.Context, s State) (State, error) {
		s["winner"] = "vandal"
		s["notes"].([]string)[0] = "overwritten"
		return nil, nil
	}))
	var seen State
	require.NoError(t, g.AddNode("observer", "", func(_ context.Context, s State) (State, error) {
		seen = s
		return nil, nil
	}))
	require.NoError(t, g.SetEntryPoint("vandal"))
	require.NoError(t, g.AddEdge("vandal", "observer"))

	r, err := g.Compile()
	require.NoError(t, err)
	_, err = r.Invoke(context.Background(), State{"winner": "nobody", "notes": []string{"kept"}})
	require.NoError(t, err)

	assert.Equal(t, "nobody", seen["winner"])
	assert.Equal(t, []string{"kept"}, seen["notes"])
}

// fanOutGraph builds a -> {b, c} -> d where b is slower than c.
func fanOutGraph(t *testing.T, opts ...CompileOption) (*Runnable, *Recorder, *atomic.Value) {
	t.Helper()
	g := NewStateGraph(notesSchema())
	var joined atomic.Value

	require.NoError(t, g.AddNode("a", "", note("a")))
	require.NoError(t, g.AddNode("b", "", func(_ context.Context, s State) (State, error) {
		time.Sleep(20 * time.Millisecond)
		if slices.Contains(s["notes"].([]string), "c") {
			return nil, errors.New("saw sibling output")
		}
		return State{"notes": []string{"b"}, "winner": "b", "seen": map[string]string{"b": "yes"}}, nil
	}))
	require.NoError(t, g.AddNode("c", "", func(_ context.Context, s State) (State, error) {
		if slices.Contains(s["notes"].([]string), "b") {
			return nil, errors.New("saw sibling output")
		}
		return State{"notes": []string{"c"}, "winner": "c", "seen": map[string]string{"c": "yes"}}, nil
	}))
	require.NoError(t, g.AddNode("d", "", func(_ context.Context, s State) (State, error) {
		joined.Store(slices.Clone(s["notes"].([]string)))
		return State{"notes": []string{"d"}}, nil
	}))

	require.NoError(t, g.SetEntryPoint("a"))
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("a", "c"))
	require.NoError(t, g.AddEdge("b", "d"))
	require.NoError(t, g.AddEdge("c", "d"))
	require.NoError(t, g.AddFanIn("d", "b", "c"))
	require.NoError(t, g.AddEdge("d", END))

	rec := &Recorder{}
	r, err := g.Compile(append(opts, WithListener(rec))...)
	require.NoError(t, err)
	return r, rec, &joined
}

func TestRunnable_Invoke_FanOut(t *testing.T) {
	r, rec, joined := fanOutGraph(t)

	final, err := r.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, Errors(final))

	// Branch updates merge in declaration order, not completion order.
	assert.Equal(t, []string{"a", "b", "c", "d"}, final["notes"])
	assert.Equal(t, "c", final["winner"])
	assert.Equal(t, map[string]string{"b": "yes", "c": "yes"}, final["seen"])
	assert.Equal(t, []string{"a", "b", "c"}, joined.Load())
	assert.Equal(t, "d", final[FieldCurrentNode])

	// The join starts only after both branches completed.
	events := rec.Events()
	startD := slices.IndexFunc(events, func(e RecordedEvent) bool { return e.Event == NodeEventStart && e.Node == "d" })
	for _, branch := range []string{"b", "c"} {
		done := slices.IndexFunc(events, func(e RecordedEvent) bool { return e.Event == NodeEventComplete && e.Node == branch })
		require.NotEqual(t, -1, done)
		assert.Less(t, done, startD)
	}
	assert.Equal(t, []string{"d"}, rec.Nodes(EventJoin))
}

func TestRunnable_Invoke_FanOutDeterministic(t *testing.T) {
	r, _, _ := fanOutGraph(t, WithMaxConcurrency(1))
	var first State
	for i := 0; i < 10; i++ {
		final, err := r.Invoke(context.Background(), nil)
		require.NoError(t, err)
		delete(final, FieldProcessingTime)
		if i == 0 {
			first = final
			continue
		}
		assert.Equal(t, first, final)
	}
}

func TestRunnable_Invoke_FanOutCollidingKeys(t *testing.T) {
	g := NewStateGraph(notesSchema())
	require.NoError(t, g.AddNode("a", "", note("a")))
	require.NoError(t, g.AddNode("slow", "", func(context.Context, State) (State, error) {
		time.Sleep(20 * time.Millisecond)
		return State{"seen": map[string]string{"k": "slow", "slow": "yes"}, "winner": "slow"}, nil
	}))
	require.NoError(t, g.AddNode("fast", "", func(context.Context, State) (State, error) {
		return State{"seen": map[string]string{"k": "fast", "fast": "yes"}, "winner": "fast"}, nil
	}))
	require.NoError(t, g.AddNode("d", "", note("d")))
	require.NoError(t, g.SetEntryPoint("a"))
	require.NoError(t, g.AddEdge("a", "slow"))
	require.NoError(t, g.AddEdge("a", "fast"))
	require.NoError(t, g.AddEdge("slow", "d"))
	require.NoError(t, g.AddEdge("fast", "d"))
	require.NoError(t, g.AddFanIn("d", "slow", "fast"))

	r, err := g.Compile()
	require.NoError(t, err)

	// fast finishes first but is declared last, so it wins every run.
	for _iter := 0; _iter < 5; _iter++ {
		final, err := r.Invoke(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"k": "fast", "slow": "yes", "fast": "yes"}, final["seen"])
		assert.Equal(t, "fast", final["winner"])
	}
}

func TestRunnable_Invoke_ListenerWritesDoNotReachState(t *testing.T) {
	vandal := NodeListenerFunc(func(_ context.Context, _ NodeEvent, _ string, s State, _ error) {
		s["winner"] = "listener"
		if notes, ok := s["notes"].([]string); ok && len(notes) > 0 {
			notes[0] = "overwritten"
		}
	})
	r, _, _ := fanOutGraph(t, WithListener(vandal))

	final, err := r.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, final["notes"])
	assert.Equal(t, "c", final["winner"])
}

func TestRunnable_Invoke_UpdateConformsToFieldType(t *testing.T) {
	t.Run("Untyped slice is converted", func(t *testing.T) {
		g := NewStateGraph(notesSchema())
		require.NoError(t, g.AddNode("a", "", func(context.Context, State) (State, error) {
			return State{FieldErrors: []any{"a: upstream timeout"}, "notes": []any{"a"}}, nil
		}))
		require.NoError(t, g.AddNode("b", "", func(context.Context, State) (State, error) {
			return nil, errors.New("boom")
		}))
		require.NoError(t, g.SetEntryPoint("a"))
		require.NoError(t, g.AddEdge("a", "b"))

		r, err := g.Compile()
		require.NoError(t, err)
		final, err := r.Invoke(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a: upstream timeout", "b: boom"}, Errors(final))
		assert.True(t, Degraded(final))
		assert.Equal(t, []string{"a"}, final["notes"])
	})

	t.Run("Wrong type fails the node", func(t *testing.T) {
		g := NewStateGraph(notesSchema())
		require.NoError(t, g.AddNode("a", "", func(context.Context, State) (State, error) {
			return State{FieldCurrentNode: 42, "notes": []string{"a"}}, nil
		}))
		require.NoError(t, g.AddNode("b", "", note("b")))
		require.NoError(t, g.SetEntryPoint("a"))
		require.NoError(t, g.AddEdge("a", "b"))

		r, err := g.Compile()
		require.NoError(t, err)
		final, err := r.Invoke(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, Errors(final), 1)
		assert.Contains(t, Errors(final)[0], "a: invalid update")
		assert.Contains(t, Errors(final)[0], ErrTypeMismatch.Error())
		assert.Equal(t, []string{"b"}, final["notes"])
		assert.Equal(t, "b", final[FieldCurrentNode])
	})
}

func gapGraph(t *testing.T) (*Runnable, *Recorder) {
	t.Helper()
	g := NewStateGraph(notesSchema())
	require.NoError(t, g.AddNode("analyze", "", func(_ context.Context, s State) (State, error) {
		return State{"score": s["score"].(int)}, nil
	}))
	require.NoError(t, g.AddNode("remediation", "", func(context.Context, State) (State, error) {
		return State{"path": "remediation"}, nil
	}))
	require.NoError(t, g.AddNode("direct", "", func(_ context.Context, s State) (State, error) {
		if s["path"] == nil {
			return State{"path": "direct"}, nil
		}
		return nil, nil
	}))
	require.NoError(t, g.SetEntryPoint("analyze"))
	require.NoError(t, g.AddConditionalEdge("analyze", func(_ context.Context, s State) string {
		if s["score"].(int) > 80 {
			return "high"
		}
		return "low"
	}, map[string]string{"high": "remediation", "low": "direct"}))
	require.NoError(t, g.AddEdge("remediation", "direct"))
	require.NoError(t, g.AddEdge("direct", END))

	rec := &Recorder{}
	r, err := g.Compile(WithListener(rec))
	require.NoError(t, err)
	return r, rec
}

func TestRunnable_Invoke_ConditionalRouting(t *testing.T) {
	tests := []struct {
		score    int
		wantPath string
		wantRun  bool
	}{
		{score: 85, wantPath: "remediation", wantRun: true},
		{score: 80, wantPath: "direct", wantRun: false},
		{score: 50, wantPath: "direct", wantRun: false},
	}
	for _, tt := range tests {
		r, rec := gapGraph(t)
		final, err := r.Invoke(context.Background(), State{"score": tt.score})
		require.NoError(t, err)
		assert.Equal(t, tt.wantPath, final["path"], "score %d", tt.score)
		assert.Equal(t, tt.wantRun, slices.Contains(rec.Nodes(NodeEventStart), "remediation"), "score %d", tt.score)
	}
}

func TestRunnable_Invoke_RouteEvent(t *testing.T) {
	r, rec := gapGraph(t)
	_, err := r.Invoke(context.Background(), State{"score": 90})
	require.NoError(t, err)
	assert.Equal(t, []string{"remediation"}, rec.Nodes(EventRoute))
}

func TestRunnable_Invoke_UnroutableBranch(t *testing.T) {
	g := NewStateGraph(notesSchema())
	require.NoError(t, g.AddNode("a", "", noop))
	require.NoError(t, g.AddNode("b", "", noop))
	require.NoError(t, g.SetEntryPoint("a"))
	require.NoError(t, g.AddConditionalEdge("a", func(context.Context, State) string { return "unknown" },
		map[string]string{"known": "b"}))
	r, err := g.Compile()
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), nil)
	var unroutable *UnroutableBranchError
	require.True(t, errors.As(err, &unroutable))
	assert.Equal(t, "a", unroutable.Node)
	assert.Equal(t, "unknown", unroutable.Label)
}

func TestRunnable_Invoke_ConditionPanics(t *testing.T) {
	g := NewStateGraph(notesSchema())
	require.NoError(t, g.AddNode("a", "", noop))
	require.NoError(t, g.SetEntryPoint("a"))
	require.NoError(t, g.AddConditionalEdge("a", func(context.Context, State) string { panic("bad predicate") },
		map[string]string{"x": END}))
	r, err := g.Compile()
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), nil)
	var pe *PanicError
	assert.True(t, errors.As(err, &pe))
}

func TestRunnable_Invoke_Failures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		fn        NodeFunc
		opts      []NodeOption
		wantEntry string
		wantPath  any
		wantEvent []NodeEvent
	}{
		{
			name:      "Error without fallback",
			fn:        func(context.Context, State) (State, error) { return nil, boom },
			wantEntry: "flaky: boom",
			wantEvent: []NodeEvent{NodeEventStart, NodeEventError, NodeEventComplete},
		},
		{
			name: "Error with fallback",
			fn:   func(context.Context, State) (State, error) { return nil, boom },
			opts: []NodeOption{WithFallback(func(_ context.Context, _ State, cause error) State {
				return State{"path": "fallback: " + cause.Error()}
			})},
			wantEntry: "flaky: boom",
			wantPath:  "fallback: boom",
			wantEvent: []NodeEvent{NodeEventStart, NodeEventError, NodeEventFallback, NodeEventComplete},
		},
		{
			name: "Fallback panics",
			fn:   func(context.Context, State) (State, error) { return nil, boom },
			opts: []NodeOption{WithFallback(func(context.Context, State, error) State {
				panic("fallback broke")
			})},
			wantEntry: "flaky: boom (fallback failed: panic: fallback broke)",
			wantEvent: []NodeEvent{NodeEventStart, NodeEventError, NodeEventComplete},
		},
		{
			name:      "Node panics",
			fn:        func(context.Context, State) (State, error) { panic("kaboom") },
			wantEntry: "flaky: panic: kaboom",
			wantEvent: []NodeEvent{NodeEventStart, NodeEventError, NodeEventComplete},
		},
		{
			name: "Update with unknown field",
			fn: func(context.Context, State) (State, error) {
				return State{"path": "partial", "bogus": 1}, nil
			},
			wantEntry: "flaky: invalid update: unknown state field: [bogus]",
			wantEvent: []NodeEvent{NodeEventStart, NodeEventError, NodeEventComplete},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewStateGraph(notesSchema())
			require.NoError(t, g.AddNode("flaky", "", tt.fn, tt.opts...))
			require.NoError(t, g.AddNode("after", "", note("after")))
			require.NoError(t, g.SetEntryPoint("flaky"))
			require.NoError(t, g.AddEdge("flaky", "after"))

			var events []NodeEvent
			var nodeErr *NodeExecutionError
			r, err := g.Compile(WithListener(NodeListenerFunc(func(_ context.Context, e NodeEvent, n string, _ State, err error) {
				if n != "flaky" {
					return
				}
				events = append(events, e)
				if err != nil {
					errors.As(err, &nodeErr)
				}
			})))
			require.NoError(t, err)

			final, err := r.Invoke(context.Background(), nil)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.wantEntry}, Errors(final))
			assert.True(t, Degraded(final))
			assert.Equal(t, tt.wantPath, final["path"])
			assert.Equal(t, []string{"after"}, final["notes"], "downstream nodes still run")
			assert.Equal(t, tt.wantEvent, events)
			require.NotNil(t, nodeErr)
			assert.Equal(t, "flaky", nodeErr.Node)
		})
	}
}

func TestRunnable_Invoke_BranchFailureIsolated(t *testing.T) {
	g := NewStateGraph(notesSchema())
	require.NoError(t, g.AddNode("a", "", note("a")))
	require.NoError(t, g.AddNode("b", "", func(context.Context, State) (State, error) {
		return nil, errors.New("branch down")
	}, WithFallback(func(context.Context, State, error) State {
		return State{"notes": []string{"b-fallback"}}
	})))
	require.NoError(t, g.AddNode("c", "", note("c")))
	require.NoError(t, g.AddNode("d", "", note("d")))
	require.NoError(t, g.SetEntryPoint("a"))
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("a", "c"))
	require.NoError(t, g.AddEdge("b", "d"))
	require.NoError(t, g.AddEdge("c", "d"))
	require.NoError(t, g.AddFanIn("d", "b", "c"))

	r, err := g.Compile()
	require.NoError(t, err)
	final, err := r.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b-fallback", "c", "d"}, final["notes"])
	assert.Equal(t, []string{"b: branch down"}, Errors(final))
}

func TestRunnable_Invoke_Concurrent(t *testing.T) {
	r, _, _ := fanOutGraph(t)
	errs := make(chan error, 5)
	for _iter := 0; _iter < 5; _iter++ {
		go func() {
			_, err := r.Invoke(context.Background(), nil)
			errs <- err
		}()
	}
	for _iter := 0; _iter < 5; _iter++ {
		assert.NoError(t, <-errs)
	}
}

func TestWithRetry(t *testing.T) {
	var calls atomic.Int32
	g := NewStateGraph(notesSchema())
	require.NoError(t, g.AddNode("retry", "", func(context.Context, State) (State, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("transient")
		}
		return State{"path": "ok"}, nil
	}, WithRetry(&RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2})))
	require.NoError(t, g.SetEntryPoint("retry"))
	r, err := g.Compile()
	require.NoError(t, err)

	final, err := r.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", final["path"])
	assert.Equal(t, int32(3), calls.Load())
	assert.Empty(t, Errors(final))
}

func TestWithRetry_NonRetryable(t *testing.T) {
	var calls atomic.Int32
	permanent := errors.New("permanent")
	g := NewStateGraph(notesSchema())
	require.NoError(t, g.AddNode("retry", "", func(context.Context, State) (State, error) {
		calls.Add(1)
		return nil, permanent
	}, WithRetry(&RetryConfig{
		MaxAttempts:     5,
		InitialDelay:    time.Millisecond,
		BackoffFactor:   1,
		RetryableErrors: func(err error) bool { return !errors.Is(err, permanent) },
	})))
	require.NoError(t, g.SetEntryPoint("retry"))
	r, err := g.Compile()
	require.NoError(t, err)

	final, err := r.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, Errors(final), 1)
	assert.Contains(t, Errors(final)[0], "non-retryable")
}

func TestWithTimeout(t *testing.T) {
	g := NewStateGraph(notesSchema())
	require.NoError(t, g.AddNode("slow", "", func(context.Context, State) (State, error) {
		time.Sleep(200 * time.Millisecond)
		return State{"path": "late"}, nil
	}, WithTimeout(10*time.Millisecond)))
	require.NoError(t, g.SetEntryPoint("slow"))
	r, err := g.Compile()
	require.NoError(t, err)

	final, err := r.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, final["path"])
	require.Len(t, Errors(final), 1)
	assert.Contains(t, Errors(final)[0], "timed out")
}

func TestNodeStatus_String(t *testing.T) {
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "done", StatusDone.String())
	assert.Equal(t, "status(7)", NodeStatus(7).String())
}

func TestExecution_Advance(t *testing.T) {
	exec := newExecution([]string{"a"})
	require.NoError(t, exec.advance("a", StatusReady))
	assert.Error(t, exec.advance("a", StatusDone), "running cannot be skipped")
	require.NoError(t, exec.advance("a", StatusRunning))
	require.NoError(t, exec.advance("a", StatusDone))
	assert.Error(t, exec.advance("a", StatusReady), "a node runs at most once")
}
