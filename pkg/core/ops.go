package core

// DeleteTraces removes the traces at indices. Negative indices count from the
// end. The returned descriptor re-adds the removed traces at their original
// positions.
func DeleteTraces(g *Graph, indices IndexRef) (Descriptor, error) {
	plan, err := planDelete(g, indices)
	if err != nil {
		return Descriptor{}, err
	}
	removed := removeTraces(g, plan.indices)
	return invertDelete(plan, removed), nil
}

// AddTraces appends deep copies of traces. When newIndices is set the new
// traces are then moved so they end up at those positions, resolved against
// the list length after the append.
func AddTraces(g *Graph, traces []Trace, newIndices IndexRef) (Descriptor, error) {
	plan, err := planAdd(g, traces, newIndices)
	if err != nil {
		return Descriptor{}, err
	}
	positions := appendTraces(g, plan.traces)
	if plan.targets == nil {
		return invertAdd(positions), nil
	}
	relocate(g, positions, plan.targets)
	return invertAdd(plan.targets), nil
}

// MoveTraces moves the traces at current so they end up at newIndices. An
// omitted newIndices moves them to the end of the list in the given order.
func MoveTraces(g *Graph, current, newIndices IndexRef) (Descriptor, error) {
	plan, err := planMove(g, current, newIndices)
	if err != nil {
		return Descriptor{}, err
	}
	relocate(g, plan.current, plan.targets)
	return invertMove(plan), nil
}

// ExtendTraces appends update payloads to array attributes of the traces at
// indices, trimming from the front to honor maxPoints.
func ExtendTraces(g *Graph, update Update, indices IndexRef, maxPoints MaxPoints) (Descriptor, error) {
	return spliceTraces(OpExtendTraces, g, update, indices, maxPoints)
}

// PrependTraces inserts update payloads at the front of array attributes,
// trimming from the back to honor maxPoints.
func PrependTraces(g *Graph, update Update, indices IndexRef, maxPoints MaxPoints) (Descriptor, error) {
	return spliceTraces(OpPrependTraces, g, update, indices, maxPoints)
}

func spliceTraces(op Op, g *Graph, update Update, indices IndexRef, maxPoints MaxPoints) (Descriptor, error) {
	plan, err := planSplice(g, update, indices, maxPoints)
	if err != nil {
		return Descriptor{}, err
	}
	res := splice(g, plan, op == OpPrependTraces)
	return invertSplice(op, plan, res), nil
}
