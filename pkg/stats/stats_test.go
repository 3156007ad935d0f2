package stats

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanonone/tracekit/pkg/core"
)

func TestNumbers(t *testing.T) {
	values, skipped, ok := Numbers([]any{1, 2.5, nil, "x", json.Number("4"), math.NaN()})
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2.5, 4}, values)
	assert.Equal(t, 3, skipped)

	values, _, ok = Numbers([]float64{3, 1})
	require.True(t, ok)
	assert.Equal(t, []float64{3, 1}, values)

	_, _, ok = Numbers("not an array")
	assert.False(t, ok)
	_, _, ok = Numbers(nil)
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{4, 1, 3, 2, 5})
	assert.Equal(t, 5, s.Count)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.InDelta(t, 3.0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), s.StdDev, 1e-12)
	assert.Equal(t, 3.0, s.Median)

	single := Summarize([]float64{7})
	assert.Equal(t, 7.0, single.Median)
	assert.Zero(t, single.StdDev)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestGraphAndAutorange(t *testing.T) {
	g := &core.Graph{Data: []core.Trace{
		{"y": []any{1, 2, 3}},
		{"marker": map[string]any{"size": []any{5}}, "y": []any{-1, nil}},
		{"y": "categorical"},
		{},
	}}

	ys := Graph(g, "y")
	require.Len(t, ys, 4)
	assert.True(t, ys[0].Present)
	assert.Equal(t, 3, ys[0].Summary.Count)
	assert.Equal(t, 1, ys[1].Summary.Skipped)
	assert.False(t, ys[2].Present)
	assert.False(t, ys[3].Present)
	assert.Equal(t, 3, ys[3].Trace)

	lo, hi, ok := Autorange(ys, 0.1)
	require.True(t, ok)
	assert.InDelta(t, -1.4, lo, 1e-12)
	assert.InDelta(t, 3.4, hi, 1e-12)

	sizes := Graph(g, "marker.size")
	lo, hi, ok = Autorange(sizes, 0.1)
	require.True(t, ok)
	assert.Equal(t, 4.0, lo)
	assert.Equal(t, 6.0, hi)

	_, _, ok = Autorange(Graph(g, "z"), 0.1)
	assert.False(t, ok)
}
