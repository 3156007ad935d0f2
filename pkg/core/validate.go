package core

import (
	"slices"
)

// Plans are the output of the validation phase. Building a plan never
// touches the graph; applying one never fails.

type deletePlan struct {
	indices []int // resolved, descending
}

type addPlan struct {
	traces  []Trace // deep copies of the input
	targets []int   // resolved against the post-append length; nil when omitted
}

type movePlan struct {
	current []int
	targets []int
}

// spliceTarget is one (trace, attribute path) pair touched by extend/prepend.
type spliceTarget struct {
	trace  int
	path   string
	old    []any
	insert []any
	limit  int
}

type splicePlan struct {
	indices []int
	targets []spliceTarget // ordered by path, then by position in indices
}

func checkGraph(g *Graph) error {
	if g == nil {
		return newError(KindInvalidTarget, "graph data must be an array")
	}
	return nil
}

func planDelete(g *Graph, indices IndexRef) (deletePlan, error) {
	if err := checkGraph(g); err != nil {
		return deletePlan{}, err
	}
	if !indices.IsSet() {
		return deletePlan{}, newError(KindMissingArgument, "indices must be an integer or array of integers")
	}
	resolved, err := resolveIndices("indices", indices.values, len(g.Data))
	if err != nil {
		return deletePlan{}, err
	}
	if err := checkUnique("indices", resolved); err != nil {
		return deletePlan{}, err
	}
	slices.SortFunc(resolved, func(a, b int) int { return b - a })
	return deletePlan{indices: resolved}, nil
}

func planAdd(g *Graph, traces []Trace, newIndices IndexRef) (addPlan, error) {
	if err := checkGraph(g); err != nil {
		return addPlan{}, err
	}
	if traces == nil {
		return addPlan{}, newError(KindInvalidShape, "all values in traces array must be non-array objects")
	}
	for _, t := range traces {
		if t == nil {
			return addPlan{}, newError(KindInvalidShape, "all values in traces array must be non-array objects")
		}
	}

	var targets []int
	if newIndices.IsSet() {
		if newIndices.Len() != len(traces) {
			return addPlan{}, newError(KindLengthMismatch, "if indices is specified, traces length must equal indices length")
		}
		// Targets address the list as it will be once the traces are appended.
		resolved, err := resolveIndices("newIndices", newIndices.values, len(g.Data)+len(traces))
		if err != nil {
			return addPlan{}, err
		}
		if err := checkUnique("newIndices", resolved); err != nil {
			return addPlan{}, err
		}
		targets = resolved
	}

	copies := make([]Trace, len(traces))
	for i, t := range traces {
		copies[i] = t.Clone()
	}
	return addPlan{traces: copies, targets: targets}, nil
}

func planMove(g *Graph, current, newIndices IndexRef) (movePlan, error) {
	if err := checkGraph(g); err != nil {
		return movePlan{}, err
	}
	if !current.IsSet() {
		return movePlan{}, newError(KindMissingArgument, "currentIndices must be an integer or array of integers")
	}

	targetValues := newIndices.values
	if !newIndices.IsSet() {
		// Omitted targets send the listed traces to the end, in order.
		k := current.Len()
		targetValues = make([]int, k)
		for i := range targetValues {
			targetValues[i] = i - k
		}
	}
	if current.Len() != len(targetValues) {
		return movePlan{}, newError(KindLengthMismatch, "current and new indices must be of equal length")
	}

	n := len(g.Data)
	cur, err := resolveIndices("currentIndices", current.values, n)
	if err != nil {
		return movePlan{}, err
	}
	if err := checkUnique("currentIndices", cur); err != nil {
		return movePlan{}, err
	}
	tgt, err := resolveIndices("newIndices", targetValues, n)
	if err != nil {
		return movePlan{}, err
	}
	if err := checkUnique("newIndices", tgt); err != nil {
		return movePlan{}, err
	}
	return movePlan{current: cur, targets: tgt}, nil
}

func planSplice(g *Graph, update Update, indices IndexRef, maxPoints MaxPoints) (splicePlan, error) {
	if err := checkGraph(g); err != nil {
		return splicePlan{}, err
	}
	if update == nil {
		return splicePlan{}, newError(KindInvalidShape, "update must be a key:value object")
	}
	if !indices.IsSet() {
		return splicePlan{}, newError(KindMissingArgument, "indices must be an integer or array of integers")
	}
	resolved, err := resolveIndices("indices", indices.values, len(g.Data))
	if err != nil {
		return splicePlan{}, err
	}
	if err := checkUnique("indices", resolved); err != nil {
		return splicePlan{}, err
	}

	keys := update.Keys()
	for _, key := range keys {
		if len(update[key]) != len(resolved) {
			return splicePlan{}, newError(KindLengthMismatch, "attribute %s must be an array of length equal to indices array length", key)
		}
		if maxPoints.IsPerAttribute() {
			limits, ok := maxPoints.perAttr[key]
			if !ok || len(limits) != len(update[key]) {
				return splicePlan{}, errWindowShape()
			}
		}
	}
	if maxPoints.IsPerAttribute() && len(maxPoints.perAttr) != len(update) {
		return splicePlan{}, errWindowShape()
	}

	targets := make([]spliceTarget, 0, len(keys)*len(resolved))
	for _, key := range keys {
		for j, idx := range resolved {
			current, ok := lookupPath(g.Data[idx], key)
			old, isArray := asSlice(current)
			if !ok || !isArray {
				return splicePlan{}, newError(KindMissingAttribute, "cannot extend missing or non-array attribute: %s", key)
			}
			insert, isArray := asSlice(update[key][j])
			if !isArray {
				return splicePlan{}, newError(KindInvalidShape, "attribute %s index %d must be an array", key, j)
			}
			targets = append(targets, spliceTarget{
				trace:  idx,
				path:   key,
				old:    old,
				insert: insert,
				limit:  maxPoints.limit(key, j),
			})
		}
	}
	return splicePlan{indices: resolved, targets: targets}, nil
}

func errWindowShape() *Error {
	return newError(KindWindowShapeMismatch,
		"when maxPoints is set as a key:value object it must contain a 1:1 correspondence with the keys and number of traces in the update object")
}
