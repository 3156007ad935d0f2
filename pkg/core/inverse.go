package core

import "slices"

// The inverse of every operation is expressed in terms of resolved,
// non-negative offsets so that replaying it does not depend on how the
// caller phrased the original indices.

func invertDelete(plan deletePlan, removed []Trace) Descriptor {
	return AddOp(removed, Indices(plan.indices...))
}

func invertAdd(positions []int) Descriptor {
	return DeleteOp(Indices(positions...))
}

func invertMove(plan movePlan) Descriptor {
	return MoveOp(Indices(plan.targets...), Indices(plan.current...))
}

// invertSplice undoes an extend with a prepend and vice versa. The opposite
// operation re-inserts whatever the window dropped and its per-attribute
// window trims each array back to its previous length.
func invertSplice(op Op, plan splicePlan, res spliceResult) Descriptor {
	indices := Indices(slices.Clone(plan.indices)...)
	window := PerAttribute(res.lengths)
	if op == OpExtendTraces {
		return PrependOp(res.removed, indices, window)
	}
	return ExtendOp(res.removed, indices, window)
}
