package core

import "fmt"

// Op names a public trace operation.
type Op string

const (
	OpAddTraces     Op = "addTraces"
	OpDeleteTraces  Op = "deleteTraces"
	OpMoveTraces    Op = "moveTraces"
	OpExtendTraces  Op = "extendTraces"
	OpPrependTraces Op = "prependTraces"
)

// Descriptor records one invocation of a public operation, enough to replay
// it with Apply. Only the fields used by Op are populated:
//
//	addTraces      Traces, NewIndices
//	deleteTraces   Indices
//	moveTraces     CurrentIndices, NewIndices
//	extendTraces   Update, Indices, MaxPoints
//	prependTraces  Update, Indices, MaxPoints
type Descriptor struct {
	Op             Op        `json:"op"`
	Traces         Traces    `json:"traces,omitzero"`
	Indices        IndexRef  `json:"indices,omitzero"`
	CurrentIndices IndexRef  `json:"current_indices,omitzero"`
	NewIndices     IndexRef  `json:"new_indices,omitzero"`
	Update         Update    `json:"update,omitzero"`
	MaxPoints      MaxPoints `json:"max_points,omitzero"`
}

// AddOp describes addTraces(traces, newIndices).
func AddOp(traces []Trace, newIndices IndexRef) Descriptor {
	return Descriptor{Op: OpAddTraces, Traces: Traces(traces), NewIndices: newIndices}
}

// DeleteOp describes deleteTraces(indices).
func DeleteOp(indices IndexRef) Descriptor {
	return Descriptor{Op: OpDeleteTraces, Indices: indices}
}

// MoveOp describes moveTraces(current, newIndices).
func MoveOp(current, newIndices IndexRef) Descriptor {
	return Descriptor{Op: OpMoveTraces, CurrentIndices: current, NewIndices: newIndices}
}

// ExtendOp describes extendTraces(update, indices, maxPoints).
func ExtendOp(update Update, indices IndexRef, maxPoints MaxPoints) Descriptor {
	return Descriptor{Op: OpExtendTraces, Update: update, Indices: indices, MaxPoints: maxPoints}
}

// PrependOp describes prependTraces(update, indices, maxPoints).
func PrependOp(update Update, indices IndexRef, maxPoints MaxPoints) Descriptor {
	return Descriptor{Op: OpPrependTraces, Update: update, Indices: indices, MaxPoints: maxPoints}
}

func (d Descriptor) String() string {
	switch d.Op {
	case OpAddTraces:
		return fmt.Sprintf("%s(%d traces, %v)", d.Op, len(d.Traces), d.NewIndices.values)
	case OpDeleteTraces:
		return fmt.Sprintf("%s(%v)", d.Op, d.Indices.values)
	case OpMoveTraces:
		return fmt.Sprintf("%s(%v, %v)", d.Op, d.CurrentIndices.values, d.NewIndices.values)
	case OpExtendTraces, OpPrependTraces:
		return fmt.Sprintf("%s(%v, %v)", d.Op, d.Update.Keys(), d.Indices.values)
	}
	return string(d.Op)
}

// Apply replays d against g and returns the descriptor that undoes it.
func Apply(g *Graph, d Descriptor) (Descriptor, error) {
	switch d.Op {
	case OpAddTraces:
		return AddTraces(g, d.Traces, d.NewIndices)
	case OpDeleteTraces:
		return DeleteTraces(g, d.Indices)
	case OpMoveTraces:
		return MoveTraces(g, d.CurrentIndices, d.NewIndices)
	case OpExtendTraces:
		return ExtendTraces(g, d.Update, d.Indices, d.MaxPoints)
	case OpPrependTraces:
		return PrependTraces(g, d.Update, d.Indices, d.MaxPoints)
	}
	return Descriptor{}, newError(KindInvalidShape, "unknown operation %q", d.Op)
}

// Validate reports the error Apply would return for d against g without
// changing g.
func Validate(g *Graph, d Descriptor) error {
	var err error
	switch d.Op {
	case OpAddTraces:
		_, err = planAdd(g, d.Traces, d.NewIndices)
	case OpDeleteTraces:
		_, err = planDelete(g, d.Indices)
	case OpMoveTraces:
		_, err = planMove(g, d.CurrentIndices, d.NewIndices)
	case OpExtendTraces, OpPrependTraces:
		_, err = planSplice(g, d.Update, d.Indices, d.MaxPoints)
	default:
		err = newError(KindInvalidShape, "unknown operation %q", d.Op)
	}
	return err
}

// Clone returns a deep copy of d, detached from any caller-owned payloads.
func (d Descriptor) Clone() Descriptor {
	out := d
	if d.Traces != nil {
		out.Traces = make(Traces, len(d.Traces))
		for i, t := range d.Traces {
			out.Traces[i] = t.Clone()
		}
	}
	out.Indices = d.Indices.clone()
	out.CurrentIndices = d.CurrentIndices.clone()
	out.NewIndices = d.NewIndices.clone()
	out.Update = d.Update.clone()
	if d.MaxPoints.perAttr != nil {
		out.MaxPoints = PerAttribute(d.MaxPoints.perAttr)
	}
	return out
}
