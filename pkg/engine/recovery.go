package engine

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/sanonone/tracekit/pkg/core"
	"github.com/sanonone/tracekit/pkg/history"
	"github.com/sanonone/tracekit/pkg/metrics"
	"github.com/sanonone/tracekit/pkg/persistence"
)

func init() {
	// Concrete types that appear behind `any` inside trace attributes.
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register(core.Trace{})
}

type recordKind string

const (
	recPut   recordKind = "put"
	recDrop  recordKind = "drop"
	recApply recordKind = "apply"
	recUndo  recordKind = "undo"
	recRedo  recordKind = "redo"
)

// record is the JSON payload of one journal frame.
type record struct {
	Kind recordKind `json:"kind"`
	Doc  string     `json:"doc"`
	At   time.Time  `json:"at"`

	// put
	Graph    *core.Graph     `json:"graph,omitempty"`
	Revision uint64          `json:"revision,omitempty"`
	Created  time.Time       `json:"created,omitzero"`
	Undo     []history.Entry `json:"undo,omitempty"`
	Redo     []history.Entry `json:"redo,omitempty"`

	// apply
	Op *core.Descriptor `json:"op,omitempty"`
}

// checkpoint is the payload of the frame that opens a journal truncated by a
// snapshot.
type checkpoint struct {
	SavedAt   time.Time `json:"saved_at"`
	Documents int       `json:"documents"`
}

func (e *Engine) journalLocked(rec record) error {
	if e.replaying {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode journal record: %w", err)
	}
	if err := e.journal.Append(persistence.OpCodeRecord, payload); err != nil {
		return fmt.Errorf("persistence error (journal write failed): %w", err)
	}
	if e.opts.SyncWrites {
		if err := e.journal.Flush(); err != nil {
			return fmt.Errorf("CRITICAL: persistence flush failed: %w", err)
		}
	}
	atomic.AddInt64(&e.dirtyCounter, 1)
	return nil
}

// replayJournal rebuilds the documents recorded after the snapshot. A torn or
// corrupted tail is cut off so new frames append after the last good one.
func (e *Engine) replayJournal(aof *persistence.AOFWriter) error {
	f, err := os.Open(e.aofPath)
	if err != nil {
		return err
	}
	defer f.Close()

	e.replaying = true
	defer func() { e.replaying = false }()

	res, err := persistence.Scan(f, func(fr persistence.Frame) error {
		switch fr.Op {
		case persistence.OpCodeCheckpoint:
			var cp checkpoint
			if err := json.Unmarshal(fr.Payload, &cp); err == nil {
				e.logger.Debug("journal checkpoint", "saved_at", cp.SavedAt, "documents", cp.Documents)
			}
			return nil
		case persistence.OpCodeRecord:
			var rec record
			if err := json.Unmarshal(fr.Payload, &rec); err != nil {
				return fmt.Errorf("malformed journal record: %w", err)
			}
			e.replayRecord(rec)
			return nil
		}
		e.logger.Warn("skipping journal frame with unknown opcode", "opcode", fr.Op)
		return nil
	})
	if err != nil {
		return err
	}

	if res.Err != nil {
		e.logger.Warn("journal has a damaged tail, truncating",
			"error", res.Err, "frames", res.Frames, "valid_bytes", res.Valid)
		if err := aof.TruncateTo(res.Valid); err != nil {
			return fmt.Errorf("failed to truncate damaged journal: %w", err)
		}
	}
	if res.Frames > 0 {
		e.logger.Info("journal replayed", "frames", res.Frames, "documents", e.docs.Len())
	}
	return nil
}

func (e *Engine) replayRecord(rec record) {
	log := e.logger.With("record", rec.Kind, "document", rec.Doc)

	if rec.Kind == recPut {
		g := rec.Graph
		if g == nil {
			g = &core.Graph{}
		}
		if g.Data == nil {
			g.Data = []core.Trace{}
		}
		created := rec.Created
		if created.IsZero() {
			created = rec.At
		}
		doc := e.newDocument(rec.Doc, g, created)
		doc.updated = rec.At
		doc.revision = rec.Revision
		doc.history.Restore(rec.Undo, rec.Redo)
		e.docs.Set(doc)
		return
	}

	doc, ok := e.docs.Get(&document{name: rec.Doc})
	if !ok {
		log.Warn("journal references unknown document")
		return
	}

	switch rec.Kind {
	case recDrop:
		e.docs.Delete(doc)
	case recApply:
		if rec.Op == nil {
			log.Warn("apply record without operation")
			return
		}
		if _, err := doc.editor.Apply(doc.graph, *rec.Op); err != nil {
			log.Error("journaled operation no longer applies", "op", rec.Op.Op, "error", err)
		}
	case recUndo, recRedo:
		if _, err := doc.step(rec.Kind); err != nil {
			log.Error("journaled history step failed", "error", err)
		}
	default:
		log.Warn("unknown journal record")
	}
}

// --- Snapshots ---

type snapshotFile struct {
	Version   int
	SavedAt   time.Time
	Documents []snapshotDocument
}

type snapshotDocument struct {
	Name     string
	Graph    core.Graph
	Revision uint64
	Created  time.Time
	Updated  time.Time
	Undo     []history.Entry
	Redo     []history.Entry
}

const snapshotVersion = 1

func (e *Engine) loadSnapshot() error {
	var snap snapshotFile
	found, err := persistence.ReadFile(e.snapPath, func(r io.Reader) error {
		return gob.NewDecoder(r).Decode(&snap)
	})
	if err != nil || !found {
		return err
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	for _, sd := range snap.Documents {
		g := sd.Graph
		if g.Data == nil {
			g.Data = []core.Trace{}
		}
		doc := e.newDocument(sd.Name, &g, sd.Created)
		doc.updated = sd.Updated
		doc.revision = sd.Revision
		doc.history.Restore(sd.Undo, sd.Redo)
		e.docs.Set(doc)
	}
	e.lastSaveTime = snap.SavedAt
	e.logger.Info("snapshot loaded", "documents", len(snap.Documents), "saved_at", snap.SavedAt)
	return nil
}

// SaveSnapshot writes every document to the snapshot file and truncates the
// journal.
func (e *Engine) SaveSnapshot() error {
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isClosed.Load() {
		return ErrClosed
	}

	snap := snapshotFile{Version: snapshotVersion, SavedAt: time.Now()}
	e.docs.Scan(func(doc *document) bool {
		undo, redo := doc.history.Entries()
		snap.Documents = append(snap.Documents, snapshotDocument{
			Name:     doc.name,
			Graph:    *doc.graph,
			Revision: doc.revision,
			Created:  doc.created,
			Updated:  doc.updated,
			Undo:     undo,
			Redo:     redo,
		})
		return true
	})

	err := persistence.WriteFileAtomic(e.snapPath, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(&snap)
	})
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := e.journal.Truncate(); err != nil {
		return err
	}
	cp, _ := json.Marshal(checkpoint{SavedAt: snap.SavedAt, Documents: len(snap.Documents)})
	if err := e.journal.Append(persistence.OpCodeCheckpoint, cp); err != nil {
		return err
	}
	if err := e.journal.Flush(); err != nil {
		return err
	}

	atomic.StoreInt64(&e.dirtyCounter, 0)
	e.lastSaveTime = snap.SavedAt
	e.aofBaseSize, _ = e.journal.Size()
	metrics.JournalBytes.Set(float64(e.aofBaseSize))
	e.logger.Info("snapshot saved", "documents", len(snap.Documents), "path", e.snapPath)
	return nil
}

// RewriteAOF compacts the journal into one put record per document.
func (e *Engine) RewriteAOF() error {
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isClosed.Load() {
		return ErrClosed
	}

	tmp, err := os.CreateTemp(e.opts.DataDir, "rewrite-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	fw := persistence.NewFrameWriter(tmp)
	var writeErr error
	e.docs.Scan(func(doc *document) bool {
		undo, redo := doc.history.Entries()
		payload, err := json.Marshal(record{
			Kind:     recPut,
			Doc:      doc.name,
			At:       doc.updated,
			Graph:    doc.graph,
			Revision: doc.revision,
			Created:  doc.created,
			Undo:     undo,
			Redo:     redo,
		})
		if err == nil {
			err = fw.WriteFrame(persistence.OpCodeRecord, payload)
		}
		writeErr = err
		return err == nil
	})
	if writeErr != nil {
		tmp.Close()
		return fmt.Errorf("failed to write compacted journal: %w", writeErr)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := e.journal.ReplaceWith(tmpPath); err != nil {
		return err
	}
	e.aofBaseSize, _ = e.journal.Size()
	metrics.JournalBytes.Set(float64(e.aofBaseSize))
	e.logger.Info("journal rewritten", "path", filepath.Base(e.aofPath), "bytes", e.aofBaseSize)
	return nil
}
