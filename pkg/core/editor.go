package core

import (
	"log/slog"
)

// Redrawer re-renders a graph after its trace list changed.
type Redrawer interface {
	Redraw(g *Graph)
}

// RedrawFunc adapts a function to Redrawer.
type RedrawFunc func(g *Graph)

func (f RedrawFunc) Redraw(g *Graph) { f(g) }

// Queue records undoable operations.
type Queue interface {
	Add(g *Graph, forward, inverse Descriptor)
}

// Editor runs trace operations against graphs and notifies its collaborators
// after each successful one: the redrawer first, then the undo queue.
// A failed operation notifies nobody.
type Editor struct {
	redrawer Redrawer
	queue    Queue
	logger   *slog.Logger
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithRedrawer sets the redrawer notified after each successful operation.
func WithRedrawer(r Redrawer) EditorOption {
	return func(e *Editor) { e.redrawer = r }
}

// WithQueue sets the undo queue that receives each forward and inverse pair.
func WithQueue(q Queue) EditorOption {
	return func(e *Editor) { e.queue = q }
}

// WithLogger sets the logger for operation debug records.
func WithLogger(l *slog.Logger) EditorOption {
	return func(e *Editor) { e.logger = l }
}

// NewEditor returns an Editor logging to slog.Default unless configured otherwise.
func NewEditor(opts ...EditorOption) *Editor {
	e := &Editor{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddTraces runs addTraces against g.
func (e *Editor) AddTraces(g *Graph, traces []Trace, newIndices IndexRef) error {
	_, err := e.Apply(g, AddOp(traces, newIndices))
	return err
}

// DeleteTraces runs deleteTraces against g.
func (e *Editor) DeleteTraces(g *Graph, indices IndexRef) error {
	_, err := e.Apply(g, DeleteOp(indices))
	return err
}

// MoveTraces runs moveTraces against g.
func (e *Editor) MoveTraces(g *Graph, current, newIndices IndexRef) error {
	_, err := e.Apply(g, MoveOp(current, newIndices))
	return err
}

// ExtendTraces runs extendTraces against g.
func (e *Editor) ExtendTraces(g *Graph, update Update, indices IndexRef, maxPoints MaxPoints) error {
	_, err := e.Apply(g, ExtendOp(update, indices, maxPoints))
	return err
}

// PrependTraces runs prependTraces against g.
func (e *Editor) PrependTraces(g *Graph, update Update, indices IndexRef, maxPoints MaxPoints) error {
	_, err := e.Apply(g, PrependOp(update, indices, maxPoints))
	return err
}

// Apply runs d against g and returns its inverse. The graph is redrawn
// exactly once per successful call, including an add that repositions the
// new traces.
func (e *Editor) Apply(g *Graph, d Descriptor) (Descriptor, error) {
	forward := d.Clone()
	inverse, err := Apply(g, d)
	if err != nil {
		e.logger.Debug("trace operation rejected", "op", d.Op, "error", err)
		return Descriptor{}, err
	}
	e.logger.Debug("trace operation applied", "op", d.Op, "traces", len(g.Data))

	if e.redrawer != nil {
		e.redrawer.Redraw(g)
	}
	if e.queue != nil {
		e.queue.Add(g, forward, inverse)
	}
	return inverse, nil
}
