package core

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

// Update maps an attribute path to one payload array per targeted trace.
// Update{"x": {[]any{3, 4}, []any{5}}} appends [3 4] to the first trace's x
// and [5] to the second's.
type Update map[string][]any

// Keys returns the attribute paths in sorted order.
func (u Update) Keys() []string {
	return slices.Sorted(maps.Keys(u))
}

func (u Update) clone() Update {
	if u == nil {
		return nil
	}
	out := make(Update, len(u))
	for k, v := range u {
		out[k] = cloneValue(v).([]any)
	}
	return out
}

// unbounded is the resolved limit for "no window".
const unbounded = -1

// MaxPoints bounds the length of arrays after an extend or prepend.
//
// The zero value is unbounded. Uniform applies one limit to every targeted
// array; PerAttribute supplies one limit per targeted trace for each update
// path. Negative limits are unbounded.
type MaxPoints struct {
	uniform int
	perAttr map[string][]int
	set     bool
}

// Uniform returns a window applying n to every updated array.
func Uniform(n int) MaxPoints {
	return MaxPoints{uniform: n, set: true}
}

// PerAttribute returns a window keyed like the update object.
func PerAttribute(limits map[string][]int) MaxPoints {
	out := make(map[string][]int, len(limits))
	for k, v := range limits {
		out[k] = slices.Clone(v)
	}
	return MaxPoints{perAttr: out, set: true}
}

// IsZero reports whether no window was given.
func (m MaxPoints) IsZero() bool { return !m.set }

// IsPerAttribute reports whether the window is keyed by attribute path.
func (m MaxPoints) IsPerAttribute() bool { return m.set && m.perAttr != nil }

// Limits returns a copy of the per-attribute limits, or nil for other forms.
func (m MaxPoints) Limits() map[string][]int {
	if m.perAttr == nil {
		return nil
	}
	out := make(map[string][]int, len(m.perAttr))
	for k, v := range m.perAttr {
		out[k] = slices.Clone(v)
	}
	return out
}

// limit resolves the window for the j-th targeted trace of path.
func (m MaxPoints) limit(path string, j int) int {
	if !m.set {
		return unbounded
	}
	if m.perAttr == nil {
		return m.uniform
	}
	limits := m.perAttr[path]
	if j >= len(limits) {
		return unbounded
	}
	return limits[j]
}

// MarshalJSON encodes null, a number, or an object of arrays.
func (m MaxPoints) MarshalJSON() ([]byte, error) {
	switch {
	case !m.set:
		return []byte("null"), nil
	case m.perAttr != nil:
		return json.Marshal(m.perAttr)
	default:
		return json.Marshal(m.uniform)
	}
}

// UnmarshalJSON accepts null, an integer, or an object mapping attribute
// paths to integer arrays.
func (m *MaxPoints) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = MaxPoints{}
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var raw map[string][]float64
		if err := json.Unmarshal(data, &raw); err != nil {
			return newError(KindWindowShapeMismatch, "maxPoints object values must be arrays of integers")
		}
		limits := make(map[string][]int, len(raw))
		for k, vs := range raw {
			limits[k] = make([]int, len(vs))
			for i, f := range vs {
				v, ok := asInt(f)
				if !ok {
					return newError(KindWindowShapeMismatch, "maxPoints object values must be arrays of integers")
				}
				limits[k][i] = v
			}
		}
		*m = MaxPoints{perAttr: limits, set: true}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return newError(KindInvalidShape, "maxPoints must be an integer or a key:value object")
	}
	v, ok := asInt(f)
	if !ok {
		return newError(KindInvalidShape, "maxPoints must be an integer or a key:value object")
	}
	*m = Uniform(v)
	return nil
}
