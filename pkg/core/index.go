package core

import (
	"bytes"
	"encoding/json"
	"math"
	"slices"
)

// IndexRef references traces by position: a single integer or a list of
// integers. Negative values count from the end of the list.
//
// The zero value means "omitted". Indices() with no arguments is a set,
// empty reference.
type IndexRef struct {
	values []int
	scalar bool
	set    bool
}

// Index returns a reference to a single trace.
func Index(i int) IndexRef {
	return IndexRef{values: []int{i}, scalar: true, set: true}
}

// Indices returns a list reference.
func Indices(is ...int) IndexRef {
	return IndexRef{values: slices.Clone(is), set: true}
}

// IsSet reports whether the reference was supplied.
func (r IndexRef) IsSet() bool { return r.set }

// IsZero reports whether the reference was omitted.
func (r IndexRef) IsZero() bool { return !r.set }

// IsScalar reports whether the reference was given as a single integer.
func (r IndexRef) IsScalar() bool { return r.scalar }

// Len returns the number of referenced positions.
func (r IndexRef) Len() int { return len(r.values) }

// Values returns a copy of the raw, unresolved values.
func (r IndexRef) Values() []int { return slices.Clone(r.values) }

// MarshalJSON encodes a scalar reference as a number, a list as an array and
// an omitted reference as null.
func (r IndexRef) MarshalJSON() ([]byte, error) {
	switch {
	case !r.set:
		return []byte("null"), nil
	case r.scalar:
		return json.Marshal(r.values[0])
	default:
		if r.values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(r.values)
	}
}

// UnmarshalJSON accepts null, an integer, or an array of integers.
func (r *IndexRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = IndexRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var raw []float64
		if err := json.Unmarshal(data, &raw); err != nil {
			return newError(KindInvalidShape, "indices must be an integer or array of integers")
		}
		values := make([]int, len(raw))
		for i, f := range raw {
			v, ok := asInt(f)
			if !ok {
				return newError(KindInvalidShape, "all values in indices must be integers")
			}
			values[i] = v
		}
		*r = IndexRef{values: values, set: true}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return newError(KindInvalidShape, "indices must be an integer or array of integers")
	}
	v, ok := asInt(f)
	if !ok {
		return newError(KindInvalidShape, "all values in indices must be integers")
	}
	*r = Index(v)
	return nil
}

func asInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// resolveIndices maps raw references onto offsets into a list of length n.
// name is the argument name used in error messages.
func resolveIndices(name string, values []int, n int) ([]int, error) {
	resolved := make([]int, len(values))
	for i, v := range values {
		if v < 0 {
			v += n
		}
		if v < 0 || v >= n {
			return nil, newError(KindOutOfBounds, "%s must be valid indices for the trace list", name)
		}
		resolved[i] = v
	}
	return resolved, nil
}

// checkUnique fails when two resolved offsets coincide.
func checkUnique(name string, resolved []int) error {
	seen := make(map[int]struct{}, len(resolved))
	for _, v := range resolved {
		if _, dup := seen[v]; dup {
			return newError(KindDuplicateIndex, "each index in %s must be unique", name)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// NormalizeIndices resolves ref against a list of length n. It does not check
// for duplicates.
func NormalizeIndices(ref IndexRef, n int) ([]int, error) {
	return resolveIndices("indices", ref.values, n)
}

func (r IndexRef) clone() IndexRef {
	r.values = slices.Clone(r.values)
	return r
}
