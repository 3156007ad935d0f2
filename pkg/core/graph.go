// Package core implements the trace-collection mutation engine: adding,
// deleting, reordering and stream-appending data into the traces of a graph
// document.
//
// Every operation runs in two phases. Validation resolves and checks all
// arguments without touching the document; only when it succeeds is the
// mutation applied, unconditionally. Each applied operation yields the
// Descriptor that undoes it.
//
// Basic usage:
//
//	g := &core.Graph{Data: []core.Trace{{"x": []any{0, 1, 2}}}}
//	inverse, err := core.ExtendTraces(g, core.Update{"x": {[]any{3, 4}}}, core.Index(0), core.Uniform(3))
//	if err != nil {
//	    return err
//	}
//	// g.Data[0]["x"] is now [2 3 4]; core.Apply(g, inverse) restores [0 1 2].
package core

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
)

// Trace is one data series: attribute names mapped to values. Nested objects
// are addressed with dot-separated paths such as "marker.size".
type Trace map[string]any

// Graph is the document whose trace list the operations mutate.
type Graph struct {
	Data   []Trace        `json:"data"`
	Layout map[string]any `json:"layout,omitempty"`
}

// UnmarshalJSON rejects documents whose data field is not an array.
func (g *Graph) UnmarshalJSON(b []byte) error {
	var raw struct {
		Data   json.RawMessage `json:"data"`
		Layout map[string]any  `json:"layout"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	g.Layout = raw.Layout
	g.Data = nil
	data := bytes.TrimSpace(raw.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] != '[' {
		return newError(KindInvalidTarget, "graph data must be an array")
	}
	var traces Traces
	if err := json.Unmarshal(data, &traces); err != nil {
		return err
	}
	g.Data = []Trace(traces)
	return nil
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	out := &Graph{Data: make([]Trace, len(g.Data))}
	for i, t := range g.Data {
		out.Data[i] = t.Clone()
	}
	if g.Layout != nil {
		out.Layout = cloneValue(g.Layout).(map[string]any)
	}
	return out
}

// Clone returns a deep copy of the trace.
func (t Trace) Clone() Trace {
	if t == nil {
		return nil
	}
	out := make(Trace, len(t))
	for k, v := range t {
		out[k] = cloneValue(v)
	}
	return out
}

// Traces is the trace payload of addTraces. In JSON it may be a single
// object or an array of objects.
type Traces []Trace

// UnmarshalJSON accepts one object or an array whose every element is a
// non-array object.
func (ts *Traces) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var t Trace
		if err := json.Unmarshal(b, &t); err != nil {
			return err
		}
		*ts = Traces{t}
		return nil
	}
	if len(b) == 0 || b[0] != '[' {
		return newError(KindInvalidShape, "all values in traces array must be non-array objects")
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Traces, len(raw))
	for i, elem := range raw {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			return newError(KindInvalidShape, "all values in traces array must be non-array objects")
		}
		if err := json.Unmarshal(elem, &out[i]); err != nil {
			return err
		}
	}
	*ts = out
	return nil
}

// cloneValue deep-copies the JSON-like value trees held in traces.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = cloneValue(e)
		}
		return out
	case Trace:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case nil:
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(out, rv)
		return out.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		return out.Interface()
	}
	return v
}

// asSlice views any slice value as []any. Typed slices such as []float64 are
// copied element-wise.
func asSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// asObject views nested objects of either map type.
func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Trace:
		return m, true
	}
	return nil, false
}

// lookupPath returns the value at a dot-separated attribute path.
func lookupPath(t Trace, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur map[string]any = t
	for i, p := range parts {
		v, ok := cur[p]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		if cur, ok = asObject(v); !ok {
			return nil, false
		}
	}
	return nil, false
}

// storePath writes v at a path whose parent objects already exist.
func storePath(t Trace, path string, v any) {
	parts := strings.Split(path, ".")
	var cur map[string]any = t
	for _, p := range parts[:len(parts)-1] {
		cur, _ = asObject(cur[p])
	}
	cur[parts[len(parts)-1]] = v
}

// Get returns the value at a dot-separated attribute path.
func (t Trace) Get(path string) (any, bool) {
	return lookupPath(t, path)
}
