// This file implements the public operations of the Engine. Each change is
// validated, appended to the journal and only then applied in memory, all
// under the engine lock, so the journal order is the order in which changes
// became visible.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/sanonone/tracekit/pkg/core"
	"github.com/sanonone/tracekit/pkg/metrics"
	"github.com/sanonone/tracekit/pkg/stats"
)

func validName(name string) error {
	if name == "" || len(name) > 256 || strings.ContainsAny(name, "/\\ \t\n") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (e *Engine) lookupLocked(name string) (*document, error) {
	if e.isClosed.Load() {
		return nil, ErrClosed
	}
	doc, ok := e.docs.Get(&document{name: name})
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}
	return doc, nil
}

// --- Documents ---

// CreateDocument registers a new document holding a copy of g. A nil g
// creates an empty document.
func (e *Engine) CreateDocument(name string, g *core.Graph) error {
	if err := validName(name); err != nil {
		return err
	}
	if g == nil {
		g = &core.Graph{}
	} else {
		g = g.Clone()
	}
	if g.Data == nil {
		g.Data = []core.Trace{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isClosed.Load() {
		return ErrClosed
	}
	if _, ok := e.docs.Get(&document{name: name}); ok {
		return fmt.Errorf("%w: %s", ErrDocumentExists, name)
	}

	at := time.Now()
	if err := e.journalLocked(record{Kind: recPut, Doc: name, At: at, Graph: g, Created: at}); err != nil {
		return err
	}
	e.docs.Set(e.newDocument(name, g, at))

	metrics.Documents.Set(float64(e.docs.Len()))
	metrics.Traces.WithLabelValues(name).Set(float64(len(g.Data)))
	return nil
}

// DropDocument removes a document and its history.
func (e *Engine) DropDocument(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.lookupLocked(name); err != nil {
		return err
	}
	if err := e.journalLocked(record{Kind: recDrop, Doc: name, At: time.Now()}); err != nil {
		return err
	}
	e.docs.Delete(&document{name: name})

	metrics.Documents.Set(float64(e.docs.Len()))
	metrics.Traces.DeleteLabelValues(name)
	return nil
}

// Document returns a deep copy of the named document.
func (e *Engine) Document(name string) (Document, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc, err := e.lookupLocked(name)
	if err != nil {
		return Document{}, err
	}
	return Document{DocumentInfo: doc.info(), Graph: doc.graph.Clone()}, nil
}

// ListDocuments returns every document in name order.
func (e *Engine) ListDocuments() []DocumentInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]DocumentInfo, 0, e.docs.Len())
	e.docs.Scan(func(doc *document) bool {
		out = append(out, doc.info())
		return true
	})
	return out
}

// Revision returns the number of redraws the document has seen.
func (e *Engine) Revision(name string) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc, err := e.lookupLocked(name)
	if err != nil {
		return 0, err
	}
	return doc.revision, nil
}

// --- Trace operations ---

func (e *Engine) AddTraces(name string, traces []core.Trace, newIndices core.IndexRef) (Result, error) {
	return e.Apply(name, core.AddOp(traces, newIndices))
}

func (e *Engine) DeleteTraces(name string, indices core.IndexRef) (Result, error) {
	return e.Apply(name, core.DeleteOp(indices))
}

func (e *Engine) MoveTraces(name string, current, newIndices core.IndexRef) (Result, error) {
	return e.Apply(name, core.MoveOp(current, newIndices))
}

func (e *Engine) ExtendTraces(name string, update core.Update, indices core.IndexRef, maxPoints core.MaxPoints) (Result, error) {
	return e.Apply(name, core.ExtendOp(update, indices, maxPoints))
}

func (e *Engine) PrependTraces(name string, update core.Update, indices core.IndexRef, maxPoints core.MaxPoints) (Result, error) {
	return e.Apply(name, core.PrependOp(update, indices, maxPoints))
}

// Apply runs d against the named document, records it for undo and journals
// it. The operation is validated and journaled before the document changes,
// so a rejected operation or a failed journal write leaves it untouched.
// Validation failures are returned as *core.Error.
func (e *Engine) Apply(name string, d core.Descriptor) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, err := e.lookupLocked(name)
	if err != nil {
		return Result{}, err
	}

	if err := core.Validate(doc.graph, d); err != nil {
		metrics.OperationsTotal.WithLabelValues(string(d.Op), outcome(err)).Inc()
		return Result{}, err
	}
	if err := e.journalLocked(record{Kind: recApply, Doc: name, At: time.Now(), Op: &d}); err != nil {
		metrics.OperationsTotal.WithLabelValues(string(d.Op), "error").Inc()
		return Result{}, err
	}

	inverse, err := doc.editor.Apply(doc.graph, d)
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(string(d.Op), outcome(err)).Inc()
		return Result{}, err
	}
	metrics.OperationsTotal.WithLabelValues(string(d.Op), "ok").Inc()
	return Result{Op: d.Op, Revision: doc.revision, Traces: len(doc.graph.Data), Inverse: inverse}, nil
}

func outcome(err error) string {
	if kind, ok := core.KindOf(err); ok {
		return kind.String()
	}
	return "error"
}

// --- History ---

// Undo reverts the most recent change to the named document. The Result
// carries the operation that was undone as its Inverse, i.e. what Redo would
// apply.
func (e *Engine) Undo(name string) (Result, error) {
	return e.step(name, recUndo)
}

// Redo re-applies the most recently undone change.
func (e *Engine) Redo(name string) (Result, error) {
	return e.step(name, recRedo)
}

func (e *Engine) step(name string, kind recordKind) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, err := e.lookupLocked(name)
	if err != nil {
		return Result{}, err
	}
	if err := doc.checkStep(kind); err != nil {
		return Result{}, err
	}
	if err := e.journalLocked(record{Kind: kind, Doc: name, At: time.Now()}); err != nil {
		return Result{}, err
	}
	return doc.step(kind)
}

// checkStep reports whether an undo or redo would apply cleanly.
func (d *document) checkStep(kind recordKind) error {
	if kind == recUndo {
		entry, err := d.history.PeekUndo()
		if err != nil {
			return err
		}
		return core.Validate(d.graph, entry.Inverse)
	}
	entry, err := d.history.PeekRedo()
	if err != nil {
		return err
	}
	return core.Validate(d.graph, entry.Forward)
}

func (d *document) step(kind recordKind) (Result, error) {
	if kind == recUndo {
		entry, err := d.history.Undo(d.graph)
		if err != nil {
			return Result{}, err
		}
		d.redraw()
		return Result{Op: entry.Forward.Op, Revision: d.revision, Traces: len(d.graph.Data), Inverse: entry.Forward}, nil
	}
	entry, err := d.history.Redo(d.graph)
	if err != nil {
		return Result{}, err
	}
	d.redraw()
	return Result{Op: entry.Forward.Op, Revision: d.revision, Traces: len(d.graph.Data), Inverse: entry.Inverse}, nil
}

// History returns the document's undo and redo stacks.
func (e *Engine) History(name string) (HistoryInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc, err := e.lookupLocked(name)
	if err != nil {
		return HistoryInfo{}, err
	}
	undo, redo := doc.history.Entries()
	return HistoryInfo{Undo: undo, Redo: redo}, nil
}

// --- Inspection ---

// Stats summarizes the numeric array at path in every trace of the document.
func (e *Engine) Stats(name, path string) ([]stats.TraceSummary, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc, err := e.lookupLocked(name)
	if err != nil {
		return nil, err
	}
	return stats.Graph(doc.graph, path), nil
}
