package core

import (
	"cmp"
	"slices"
)

// removeTraces deletes the traces at the given descending offsets and
// returns them in the same order.
func removeTraces(g *Graph, desc []int) []Trace {
	removed := make([]Trace, len(desc))
	for i, idx := range desc {
		removed[i] = g.Data[idx]
		g.Data = slices.Delete(g.Data, idx, idx+1)
	}
	return removed
}

// appendTraces adds traces to the end of the list and returns their offsets.
func appendTraces(g *Graph, traces []Trace) []int {
	start := len(g.Data)
	g.Data = append(g.Data, traces...)
	positions := make([]int, len(traces))
	for i := range positions {
		positions[i] = start + i
	}
	return positions
}

// relocate moves g.Data[current[i]] so it ends up at targets[i]. Traces not
// named in current keep their relative order.
func relocate(g *Graph, current, targets []int) {
	type moving struct {
		to    int
		trace Trace
	}
	moves := make([]moving, len(current))
	skip := make(map[int]struct{}, len(current))
	for i, c := range current {
		moves[i] = moving{to: targets[i], trace: g.Data[c]}
		skip[c] = struct{}{}
	}
	slices.SortFunc(moves, func(a, b moving) int { return cmp.Compare(a.to, b.to) })

	rest := make([]Trace, 0, len(g.Data))
	for i, t := range g.Data {
		if _, ok := skip[i]; !ok {
			rest = append(rest, t)
		}
	}
	// Inserting in ascending target order leaves each trace at its target.
	for _, m := range moves {
		rest = slices.Insert(rest, m.to, m.trace)
	}
	g.Data = rest
}
