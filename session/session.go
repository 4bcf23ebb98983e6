package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/smallnest/careergraph/graph"
	"github.com/smallnest/careergraph/log"
	"github.com/smallnest/careergraph/store"
)

// Fields written by the orchestrator. The shared schema must declare them.
const (
	FieldSelectedIndex = "selected_index"
	FieldSelected      = "selected"
	FieldStage         = "stage"
)

// Stage values stored under FieldStage.
const (
	StageMatching   = "matching"
	StageSimulation = "simulation"
)

// ErrCheckpointNotFound is returned by ResumePhaseTwo when the checkpoint is
// unknown, expired or already consumed.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// InvalidSelectionError is returned when a selection falls outside the
// ranked options captured in a checkpoint.
type InvalidSelectionError struct {
	Selection int
	Count     int
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid selection %d: valid range is [0, %d)", e.Selection, e.Count)
}

// PrepareFunc returns extra fields folded into the checkpointed state after
// the selection has been validated and before phase two runs.
type PrepareFunc func(state graph.State, selection int, option any) graph.State

// PhaseOneResult is what BeginPhaseOne hands back to the caller.
type PhaseOneResult struct {
	CheckpointID string
	Options      []any
	State        graph.State
}

// Orchestrator drives phase one, stores its result and resumes phase two
// from it. It holds no state between calls besides the store, so several
// orchestrators may share one store.
type Orchestrator struct {
	phaseOne     *graph.Runnable
	phaseTwo     *graph.Runnable
	schema       *graph.Schema
	store        store.CheckpointStore
	optionsField string
	prepare      PrepareFunc
	logger       log.Logger
	newID        func() string
	now          func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPrepare sets the function that folds the chosen option into state.
func WithPrepare(fn PrepareFunc) Option {
	return func(o *Orchestrator) {
		o.prepare = fn
	}
}

// WithLogger sets the orchestrator's logger.
func WithLogger(l log.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithIDGenerator replaces the uuid based checkpoint id generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		o.newID = fn
	}
}

// NewOrchestrator creates an orchestrator for two graphs compiled against
// the same schema. optionsField names the slice field phase one ranks its
// options into.
func NewOrchestrator(phaseOne, phaseTwo *graph.Runnable, s store.CheckpointStore, optionsField string, opts ...Option) (*Orchestrator, error) {
	if phaseOne == nil || phaseTwo == nil {
		return nil, errors.New("both phases are required")
	}
	if s == nil {
		return nil, errors.New("checkpoint store is required")
	}
	schema := phaseOne.Schema()
	if phaseTwo.Schema() != schema {
		return nil, errors.New("phases must share one schema")
	}
	for _, name := range []string{optionsField, FieldSelectedIndex, FieldSelected, FieldStage} {
		if _, ok := schema.Field(name); !ok {
			return nil, fmt.Errorf("%w: schema does not declare %q", graph.ErrInvalidSchema, name)
		}
	}

	o := &Orchestrator{
		phaseOne:     phaseOne,
		phaseTwo:     phaseTwo,
		schema:       schema,
		store:        s,
		optionsField: optionsField,
		logger:       log.GetDefaultLogger(),
		newID:        uuid.NewString,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// BeginPhaseOne runs phase one on input and saves its final state. The
// returned options are the ranked list phase one produced.
func (o *Orchestrator) BeginPhaseOne(ctx context.Context, input graph.State) (*PhaseOneResult, error) {
	initial := input.Clone()
	initial[FieldStage] = StageMatching

	final, err := o.phaseOne.Invoke(ctx, initial)
	if err != nil {
		return nil, fmt.Errorf("phase one failed: %w", err)
	}

	options, err := optionsOf(final, o.optionsField)
	if err != nil {
		return nil, err
	}

	data, err := o.schema.Marshal(final)
	if err != nil {
		return nil, fmt.Errorf("failed to encode phase one state: %w", err)
	}

	node, _ := final[graph.FieldCurrentNode].(string)
	cp := &store.Checkpoint{
		ID:       o.newID(),
		NodeName: node,
		State:    data,
		Metadata: map[string]string{
			"stage":         StageMatching,
			"options_field": o.optionsField,
			"options":       strconv.Itoa(len(options)),
		},
		Timestamp: o.now(),
		Version:   store.CurrentVersion,
	}
	if err := o.store.Save(ctx, cp); err != nil {
		return nil, fmt.Errorf("failed to save checkpoint: %w", err)
	}
	o.logger.Info("checkpoint %s saved with %d option(s)", cp.ID, len(options))

	return &PhaseOneResult{CheckpointID: cp.ID, Options: options, State: final}, nil
}

// ResumePhaseTwo consumes the checkpoint and runs phase two with the option
// at index selection. The checkpoint is consumed even when the selection is
// rejected; the caller recovers by running phase one again.
func (o *Orchestrator) ResumePhaseTwo(ctx context.Context, checkpointID string, selection int) (graph.State, error) {
	cp, err := store.Take(ctx, o.store, checkpointID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, checkpointID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take checkpoint %s: %w", checkpointID, err)
	}

	state, err := o.schema.Unmarshal(cp.State)
	if err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", checkpointID, err)
	}

	option, err := ValidateSelection(state, o.optionsField, selection)
	if err != nil {
		o.logger.Warn("checkpoint %s: %v", checkpointID, err)
		return nil, err
	}

	state, err = o.schema.Merge(state, graph.State{
		FieldSelectedIndex: selection,
		FieldSelected:      option,
		FieldStage:         StageSimulation,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply selection: %w", err)
	}
	if o.prepare != nil {
		state, err = o.schema.Merge(state, o.prepare(state.Clone(), selection, option))
		if err != nil {
			return nil, fmt.Errorf("failed to prepare phase two: %w", err)
		}
	}

	o.logger.Info("checkpoint %s: resuming with selection %d", checkpointID, selection)
	final, err := o.phaseTwo.Invoke(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("phase two failed: %w", err)
	}
	return final, nil
}

// ValidateSelection returns the option at index selection of the ranked
// list stored under field, or an *InvalidSelectionError.
func ValidateSelection(state graph.State, field string, selection int) (any, error) {
	options, err := optionsOf(state, field)
	if err != nil {
		return nil, err
	}
	if selection < 0 || selection >= len(options) {
		return nil, &InvalidSelectionError{Selection: selection, Count: len(options)}
	}
	return options[selection], nil
}

// optionsOf reads the slice stored under field. A missing field is an empty
// list.
func optionsOf(state graph.State, field string) ([]any, error) {
	v, ok := state[field]
	if !ok || v == nil {
		return []any{}, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("options field %s holds %T, not a slice", field, v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
