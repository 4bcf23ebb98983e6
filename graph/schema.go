package graph

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"sort"
)

// Engine bookkeeping fields declared by every schema.
const (
	// FieldErrors accumulates one human-readable entry per degraded node.
	FieldErrors = "errors"

	// FieldWarnings accumulates non-fatal notices produced by nodes.
	FieldWarnings = "warnings"

	// FieldProcessingTime maps node name to elapsed milliseconds.
	FieldProcessingTime = "processing_time_ms"

	// FieldCurrentNode holds the name of the most recently completed node.
	FieldCurrentNode = "current_node"
)

// State is the shared record flowing through a graph. Nodes receive a
// snapshot and return a partial State holding only the fields they write.
type State map[string]any

// Clone returns a copy of the state that shares no top-level storage with s.
// Slices and maps stored directly under a key are copied one level deep so a
// node appending to or writing into them cannot affect another snapshot.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		cp := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(cp, rv)
		return cp.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		cp := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			cp.SetMapIndex(iter.Key(), iter.Value())
		}
		return cp.Interface()
	default:
		return v
	}
}

// Policy is the merge rule attached to a state field.
type Policy int

const (
	// Overwrite replaces the stored value with the update.
	Overwrite Policy = iota
	// Append concatenates the update onto the stored sequence.
	Append
	// Merge layers the update's keys onto the stored mapping.
	Merge
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	case Append:
		return "append"
	case Merge:
		return "merge"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Reducer returns the reducer implementing the policy.
func (p Policy) Reducer() Reducer {
	switch p {
	case Append:
		return AppendReducer
	case Merge:
		return MergeReducer
	default:
		return OverwriteReducer
	}
}

// Field declares one named state field.
type Field struct {
	Name   string
	Policy Policy

	// Type is the Go type values of this field decode into. A nil Type
	// decodes into whatever encoding/json produces for an any.
	Type reflect.Type
}

// FieldOf declares a field whose values are of type T.
//
//	graph.FieldOf[[]CareerFit]("career_fits", graph.Overwrite)
func FieldOf[T any](name string, policy Policy) Field {
	return Field{Name: name, Policy: policy, Type: reflect.TypeOf((*T)(nil)).Elem()}
}

// coerce returns v as a value of the field's declared type, rebuilding
// slices and maps whose elements are assignable one by one. An Append field
// also accepts a single element. Untyped fields and nil pass through.
func (f Field) coerce(v any) (any, error) {
	if f.Type == nil || v == nil {
		return v, nil
	}
	rv := reflect.ValueOf(v)
	out, err := conform(f.Type, rv)
	if err != nil && f.Policy == Append && f.Type.Kind() == reflect.Slice {
		elem, elemErr := conform(f.Type.Elem(), rv)
		if elemErr != nil {
			return nil, err
		}
		out, err = reflect.Append(reflect.MakeSlice(f.Type, 0, 1), elem), nil
	}
	if err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

// conform returns v as a value assignable to typ.
func conform(typ reflect.Type, v reflect.Value) (reflect.Value, error) {
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if !v.IsValid() {
		switch typ.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(typ), nil
		}
		return reflect.Value{}, fmt.Errorf("%w: nil is not a %s", ErrTypeMismatch, typ)
	}
	if v.Type().AssignableTo(typ) {
		return v, nil
	}

	switch {
	case typ.Kind() == reflect.Slice && v.Kind() == reflect.Slice:
		out := reflect.MakeSlice(typ, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			e, err := conform(typ.Elem(), v.Index(i))
			if err != nil {
				return reflect.Value{}, err
			}
			out = reflect.Append(out, e)
		}
		return out, nil
	case typ.Kind() == reflect.Map && v.Kind() == reflect.Map:
		out := reflect.MakeMapWithSize(typ, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			k, err := conform(typ.Key(), iter.Key())
			if err != nil {
				return reflect.Value{}, err
			}
			e, err := conform(typ.Elem(), iter.Value())
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(k, e)
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s is not a %s", ErrTypeMismatch, v.Type(), typ)
}

// Reducer defines how a state value should be updated.
// It takes the current value and the new value, and returns the merged value.
type Reducer func(current, new any) (any, error)

// Schema is the fixed set of fields a graph's state may hold.
type Schema struct {
	fields map[string]Field
	order  []string
}

// NewSchema creates a schema with the given fields plus the engine
// bookkeeping fields. Redeclaring a bookkeeping field with the same policy is
// allowed; any other duplicate is an error.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{fields: make(map[string]Field)}
	builtin := []Field{
		FieldOf[[]string](FieldErrors, Append),
		FieldOf[[]string](FieldWarnings, Append),
		FieldOf[map[string]float64](FieldProcessingTime, Merge),
		FieldOf[string](FieldCurrentNode, Overwrite),
	}
	for _, f := range builtin {
		s.add(f)
	}

	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: empty field name", ErrInvalidSchema)
		}
		if existing, ok := s.fields[f.Name]; ok {
			if isBookkeeping(f.Name) && existing.Policy == f.Policy {
				continue
			}
			return nil, fmt.Errorf("%w: field %q declared twice", ErrInvalidSchema, f.Name)
		}
		s.add(f)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error. It is intended for
// package-level schema declarations.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) add(f Field) {
	s.fields[f.Name] = f
	s.order = append(s.order, f.Name)
}

func isBookkeeping(name string) bool {
	switch name {
	case FieldErrors, FieldWarnings, FieldProcessingTime, FieldCurrentNode:
		return true
	}
	return false
}

// Field returns the declaration for name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Fields returns the declared fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.fields[name])
	}
	return out
}

// Init returns an empty state with the bookkeeping fields initialised.
func (s *Schema) Init() State {
	return State{
		FieldErrors:         []string{},
		FieldWarnings:       []string{},
		FieldProcessingTime: map[string]float64{},
	}
}

// Validate reports whether every key of partial is a declared field.
func (s *Schema) Validate(partial State) error {
	var unknown []string
	for k := range partial {
		if _, ok := s.fields[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("%w: %v", ErrUnknownField, unknown)
}

// Merge folds partial into base using each field's reducer and returns the
// result. base is never mutated.
func (s *Schema) Merge(base, partial State) (State, error) {
	if err := s.Validate(partial); err != nil {
		return nil, err
	}

	result := make(State, len(base)+len(partial))
	maps.Copy(result, base)

	// Deterministic key order keeps reducer errors reproducible.
	keys := make([]string, 0, len(partial))
	for k := range partial {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		field := s.fields[k]
		update, err := field.coerce(partial[k])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		merged, err := field.Policy.Reducer()(result[k], update)
		if err != nil {
			return nil, fmt.Errorf("failed to reduce key %s: %w", k, err)
		}
		result[k] = merged
	}
	return result, nil
}

// Marshal encodes state as a JSON object keyed by field name.
func (s *Schema) Marshal(state State) ([]byte, error) {
	if err := s.Validate(state); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any(state))
}

// Unmarshal decodes data produced by Marshal, restoring each field into its
// declared Go type.
func (s *Schema) Unmarshal(data []byte) (State, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	state := make(State, len(raw))
	for k, msg := range raw {
		field, ok := s.fields[k]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, k)
		}
		if field.Type == nil {
			var v any
			if err := json.Unmarshal(msg, &v); err != nil {
				return nil, fmt.Errorf("failed to decode field %s: %w", k, err)
			}
			state[k] = v
			continue
		}
		ptr := reflect.New(field.Type)
		if err := json.Unmarshal(msg, ptr.Interface()); err != nil {
			return nil, fmt.Errorf("failed to decode field %s as %s: %w", k, field.Type, err)
		}
		state[k] = ptr.Elem().Interface()
	}
	return state, nil
}

// Common Reducers

// OverwriteReducer replaces the old value with the new one.
func OverwriteReducer(_, new any) (any, error) {
	return new, nil
}

// AppendReducer appends the new value to the current slice.
// It supports appending a slice to a slice, or a single element to a slice.
// Elements are converted to current's element type one by one; an element
// that is not assignable is an error. The result never aliases the backing
// array of current.
func AppendReducer(current, new any) (any, error) {
	if new == nil {
		return current, nil
	}
	newVal := reflect.ValueOf(new)

	if current == nil {
		if newVal.Kind() == reflect.Slice {
			return cloneValue(new), nil
		}
		slice := reflect.MakeSlice(reflect.SliceOf(newVal.Type()), 0, 1)
		return reflect.Append(slice, newVal).Interface(), nil
	}

	currVal := reflect.ValueOf(current)
	if currVal.Kind() != reflect.Slice {
		return nil, fmt.Errorf("current value is not a slice")
	}

	elemType := currVal.Type().Elem()
	if newVal.Kind() != reflect.Slice || (elemType.Kind() != reflect.Interface && newVal.Type().AssignableTo(elemType)) {
		newVal = reflect.Append(reflect.MakeSlice(reflect.SliceOf(newVal.Type()), 0, 1), newVal)
	}

	out := reflect.MakeSlice(currVal.Type(), 0, currVal.Len()+newVal.Len())
	out = reflect.AppendSlice(out, currVal)
	if newVal.Type().Elem() == elemType {
		return reflect.AppendSlice(out, newVal).Interface(), nil
	}
	for i := 0; i < newVal.Len(); i++ {
		e, err := conform(elemType, newVal.Index(i))
		if err != nil {
			return nil, fmt.Errorf("cannot append %s to %s: %w", newVal.Type(), currVal.Type(), err)
		}
		out = reflect.Append(out, e)
	}
	return out.Interface(), nil
}

// MergeReducer layers the keys of new onto current. Colliding keys take the
// value from new. The result is a fresh map of current's type.
func MergeReducer(current, new any) (any, error) {
	if new == nil {
		return current, nil
	}
	newVal := reflect.ValueOf(new)
	if newVal.Kind() != reflect.Map {
		return nil, fmt.Errorf("new value is not a map")
	}
	if current == nil {
		return cloneValue(new), nil
	}

	currVal := reflect.ValueOf(current)
	if currVal.Kind() != reflect.Map {
		return nil, fmt.Errorf("current value is not a map")
	}

	typ := currVal.Type()
	if !newVal.Type().Key().AssignableTo(typ.Key()) || !newVal.Type().Elem().AssignableTo(typ.Elem()) {
		return nil, fmt.Errorf("cannot merge %s into %s", newVal.Type(), typ)
	}

	out := reflect.MakeMapWithSize(typ, currVal.Len()+newVal.Len())
	iter := currVal.MapRange()
	for iter.Next() {
		out.SetMapIndex(iter.Key(), iter.Value())
	}
	iter = newVal.MapRange()
	for iter.Next() {
		out.SetMapIndex(iter.Key(), iter.Value())
	}
	return out.Interface(), nil
}
