package engine

import (
	"time"

	"github.com/tidwall/btree"

	"github.com/sanonone/tracekit/pkg/core"
	"github.com/sanonone/tracekit/pkg/history"
	"github.com/sanonone/tracekit/pkg/metrics"
)

// document is one named graph with its history. Guarded by Engine.mu.
type document struct {
	name     string
	graph    *core.Graph
	history  *history.History
	editor   *core.Editor
	revision uint64
	created  time.Time
	updated  time.Time
}

func newDocumentTree() *btree.BTreeG[*document] {
	return btree.NewBTreeGOptions(func(a, b *document) bool {
		return a.name < b.name
	}, btree.Options{NoLocks: true})
}

func (e *Engine) newDocument(name string, g *core.Graph, at time.Time) *document {
	doc := &document{
		name:    name,
		graph:   g,
		history: history.New(e.opts.HistoryDepth),
		created: at,
		updated: at,
	}
	doc.editor = core.NewEditor(
		core.WithRedrawer(core.RedrawFunc(func(*core.Graph) { doc.redraw() })),
		core.WithQueue(doc.history),
		core.WithLogger(e.logger.With("document", name)),
	)
	return doc
}

// redraw marks a visible change: the revision moves forward and observers
// polling it re-render.
func (d *document) redraw() {
	d.revision++
	d.updated = time.Now()
	metrics.RedrawsTotal.Inc()
	metrics.Traces.WithLabelValues(d.name).Set(float64(len(d.graph.Data)))
}

func (d *document) info() DocumentInfo {
	undo, redo := d.history.Len()
	return DocumentInfo{
		Name:      d.name,
		Traces:    len(d.graph.Data),
		Revision:  d.revision,
		UndoDepth: undo,
		RedoDepth: redo,
		Created:   d.created,
		Updated:   d.updated,
	}
}

// DocumentInfo summarizes a document without its data.
type DocumentInfo struct {
	Name      string    `json:"name"`
	Traces    int       `json:"traces"`
	Revision  uint64    `json:"revision"`
	UndoDepth int       `json:"undo_depth"`
	RedoDepth int       `json:"redo_depth"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
}

// Document is a detached copy of a document's graph and metadata.
type Document struct {
	DocumentInfo
	Graph *core.Graph `json:"graph"`
}

// Result reports a successful change.
type Result struct {
	Op       core.Op         `json:"op"`
	Revision uint64          `json:"revision"`
	Traces   int             `json:"traces"`
	Inverse  core.Descriptor `json:"inverse"`
}

// HistoryInfo lists a document's undo and redo stacks, oldest first.
type HistoryInfo struct {
	Undo []history.Entry `json:"undo"`
	Redo []history.Entry `json:"redo"`
}
