// Package history keeps the undo and redo stacks of a graph document. It
// plugs into core.Editor as its Queue.
package history

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sanonone/tracekit/pkg/core"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// DefaultDepth bounds the undo stack when New is given a non-positive depth.
const DefaultDepth = 100

// Entry is one undoable operation.
type Entry struct {
	ID      string          `json:"id"`
	Forward core.Descriptor `json:"forward"`
	Inverse core.Descriptor `json:"inverse"`
	At      time.Time       `json:"at"`
}

// History is safe for concurrent use.
type History struct {
	mu    sync.Mutex
	undo  []Entry
	redo  []Entry
	depth int
	now   func() time.Time
}

var _ core.Queue = (*History)(nil)

func New(depth int) *History {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &History{depth: depth, now: time.Now}
}

// Add records a freshly applied operation. Any redo entries are discarded and
// the oldest undo entry is evicted once the stack exceeds its depth.
func (h *History) Add(_ *core.Graph, forward, inverse core.Descriptor) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pushUndo(Entry{
		ID:      uuid.NewString(),
		Forward: forward,
		Inverse: inverse,
		At:      h.now(),
	})
	h.redo = nil
}

func (h *History) pushUndo(e Entry) {
	h.undo = append(h.undo, e)
	if over := len(h.undo) - h.depth; over > 0 {
		clear(h.undo[:over])
		h.undo = h.undo[over:]
	}
}

// Undo applies the inverse of the most recent operation to g and moves the
// entry onto the redo stack. If the inverse fails to apply, typically because
// g was changed outside the editor, the entry is dropped and the error
// returned.
func (h *History) Undo(g *core.Graph) (Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undo) == 0 {
		return Entry{}, ErrNothingToUndo
	}
	e := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]

	if _, err := core.Apply(g, e.Inverse); err != nil {
		return Entry{}, err
	}
	h.redo = append(h.redo, e)
	return e, nil
}

// Redo re-applies the most recently undone operation and returns the entry
// as pushed back onto the undo stack, carrying a fresh inverse.
func (h *History) Redo(g *core.Graph) (Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.redo) == 0 {
		return Entry{}, ErrNothingToRedo
	}
	e := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]

	inverse, err := core.Apply(g, e.Forward)
	if err != nil {
		return Entry{}, err
	}
	e.Inverse = inverse
	e.At = h.now()
	h.pushUndo(e)
	return e, nil
}

// PeekUndo returns the entry Undo would revert, without moving it.
func (h *History) PeekUndo() (Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undo) == 0 {
		return Entry{}, ErrNothingToUndo
	}
	return h.undo[len(h.undo)-1], nil
}

// PeekRedo returns the entry Redo would re-apply, without moving it.
func (h *History) PeekRedo() (Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.redo) == 0 {
		return Entry{}, ErrNothingToRedo
	}
	return h.redo[len(h.redo)-1], nil
}

// Len returns the sizes of the undo and redo stacks.
func (h *History) Len() (undo, redo int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo), len(h.redo)
}

// Entries returns copies of both stacks, oldest first.
func (h *History) Entries() (undo, redo []Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneEntries(h.undo), cloneEntries(h.redo)
}

// Restore replaces both stacks, e.g. when loading a snapshot.
func (h *History) Restore(undo, redo []Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = cloneEntries(undo)
	h.redo = cloneEntries(redo)
	if over := len(h.undo) - h.depth; over > 0 {
		h.undo = h.undo[over:]
	}
}

// Clear empties both stacks.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo, h.redo = nil, nil
}

func cloneEntries(in []Entry) []Entry {
	if len(in) == 0 {
		return nil
	}
	out := make([]Entry, len(in))
	for i, e := range in {
		e.Forward = e.Forward.Clone()
		e.Inverse = e.Inverse.Clone()
		out[i] = e
	}
	return out
}
