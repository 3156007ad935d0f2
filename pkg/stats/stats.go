// Package stats summarizes the numeric arrays held in trace attributes, for
// axis autoranging and for the inspection endpoints.
package stats

import (
	"encoding/json"
	"math"
	"reflect"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sanonone/tracekit/pkg/core"
)

// Summary describes the finite numeric values of one array. Non-numeric
// entries (nulls, strings, booleans) are counted in Skipped.
type Summary struct {
	Count   int     `json:"count"`
	Skipped int     `json:"skipped"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stddev"`
	Median  float64 `json:"median"`
}

// TraceSummary is the Summary of one trace's attribute.
type TraceSummary struct {
	Trace   int     `json:"trace"`
	Present bool    `json:"present"`
	Summary Summary `json:"summary"`
}

// Numbers extracts the finite numeric entries of an array value. ok is false
// when v is not an array.
func Numbers(v any) (values []float64, skipped int, ok bool) {
	if v == nil {
		return nil, 0, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, 0, false
	}
	values = make([]float64, 0, rv.Len())
	for i := range rv.Len() {
		f, isNum := toFloat(rv.Index(i).Interface())
		if !isNum || math.IsNaN(f) || math.IsInf(f, 0) {
			skipped++
			continue
		}
		values = append(values, f)
	}
	return values, skipped, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Summarize computes a Summary. An empty input yields a zero Summary.
func Summarize(values []float64) Summary {
	s := Summary{Count: len(values)}
	if len(values) == 0 {
		return s
	}
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		s.StdDev = 0
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return s
}

// Graph summarizes the attribute at path for every trace of g. Traces whose
// attribute is missing or not an array are reported with Present == false.
func Graph(g *core.Graph, path string) []TraceSummary {
	out := make([]TraceSummary, len(g.Data))
	for i, t := range g.Data {
		out[i].Trace = i
		v, found := t.Get(path)
		if !found {
			continue
		}
		values, skipped, ok := Numbers(v)
		if !ok {
			continue
		}
		out[i].Present = true
		out[i].Summary = Summarize(values)
		out[i].Summary.Skipped = skipped
	}
	return out
}

// Autorange returns the [lo, hi] interval covering every present summary,
// widened by pad (a fraction of the span) on both sides. A degenerate span
// is widened by one unit. ok is false when no trace holds a value.
func Autorange(summaries []TraceSummary, pad float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, ts := range summaries {
		if !ts.Present || ts.Summary.Count == 0 {
			continue
		}
		lo = math.Min(lo, ts.Summary.Min)
		hi = math.Max(hi, ts.Summary.Max)
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	span := hi - lo
	if span == 0 {
		return lo - 1, hi + 1, true
	}
	return lo - span*pad, hi + span*pad, true
}
