package core

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexRefJSON(t *testing.T) {
	var r IndexRef
	require.NoError(t, json.Unmarshal([]byte(`3`), &r))
	assert.True(t, r.IsScalar())
	assert.Equal(t, []int{3}, r.Values())

	require.NoError(t, json.Unmarshal([]byte(`[-1, 2]`), &r))
	assert.False(t, r.IsScalar())
	assert.Equal(t, []int{-1, 2}, r.Values())

	require.NoError(t, json.Unmarshal([]byte(`null`), &r))
	assert.False(t, r.IsSet())

	assert.ErrorIs(t, json.Unmarshal([]byte(`1.5`), &r), ErrInvalidShape)
	assert.ErrorIs(t, json.Unmarshal([]byte(`["a"]`), &r), ErrInvalidShape)
}

func TestMaxPointsJSON(t *testing.T) {
	var m MaxPoints
	require.NoError(t, json.Unmarshal([]byte(`5`), &m))
	assert.Equal(t, Uniform(5), m)

	require.NoError(t, json.Unmarshal([]byte(`{"x": [1, 2]}`), &m))
	assert.Equal(t, map[string][]int{"x": {1, 2}}, m.Limits())

	assert.ErrorIs(t, json.Unmarshal([]byte(`{"x": 1}`), &m), ErrWindowShapeMismatch)
	assert.ErrorIs(t, json.Unmarshal([]byte(`"many"`), &m), ErrInvalidShape)
}

func TestTracesJSON(t *testing.T) {
	var ts Traces
	require.NoError(t, json.Unmarshal([]byte(`{"name": "a"}`), &ts))
	assert.Len(t, ts, 1)

	require.NoError(t, json.Unmarshal([]byte(`[{"name": "a"}, {"name": "b"}]`), &ts))
	assert.Len(t, ts, 2)

	assert.ErrorIs(t, json.Unmarshal([]byte(`[{"name": "a"}, [1]]`), &ts), ErrInvalidShape)
	assert.ErrorIs(t, json.Unmarshal([]byte(`1`), &ts), ErrInvalidShape)
}

func TestGraphJSONRejectsNonArrayData(t *testing.T) {
	var g Graph
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"data": "meow"}`), &g), ErrInvalidTarget)
	require.NoError(t, json.Unmarshal([]byte(`{"data": [{"x": [1]}]}`), &g))
	assert.Len(t, g.Data, 1)
}

func TestDescriptorRoundTrip(t *testing.T) {
	descriptors := []Descriptor{
		AddOp([]Trace{{"name": "a"}}, Index(0)),
		DeleteOp(Indices(2, 0)),
		MoveOp(Indices(3, 0), IndexRef{}),
		ExtendOp(Update{"x": {[]any{1.0, 2.0}}}, Indices(1), Uniform(10)),
		PrependOp(Update{"x": {[]any{}}}, Indices(0), PerAttribute(map[string][]int{"x": {3}})),
		AddOp([]Trace{}, IndexRef{}),
		ExtendOp(Update{}, Index(0), MaxPoints{}),
	}
	opts := cmp.AllowUnexported(IndexRef{}, MaxPoints{})
	for _, d := range descriptors {
		t.Run(string(d.Op), func(t *testing.T) {
			raw, err := json.Marshal(d)
			require.NoError(t, err)

			var got Descriptor
			require.NoError(t, json.Unmarshal(raw, &got))
			if diff := cmp.Diff(d, got, opts); diff != "" {
				t.Errorf("descriptor changed over JSON (-want +got):\n%s", diff)
			}
		})
	}
}
