package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanonone/tracekit/pkg/core"
)

func graph() *core.Graph {
	return &core.Graph{Data: []core.Trace{
		{"name": "a", "y": []any{1, 2, 3}},
		{"name": "b", "y": []any{4, 5, 6}},
	}}
}

func TestUndoRedo(t *testing.T) {
	h := New(10)
	e := core.NewEditor(core.WithQueue(h))
	g := graph()

	require.NoError(t, e.ExtendTraces(g, core.Update{"y": {[]any{7}}}, core.Index(1), core.Uniform(3)))
	require.NoError(t, e.DeleteTraces(g, core.Index(0)))
	afterBoth := g.Clone()

	undo, redo := h.Len()
	assert.Equal(t, 2, undo)
	assert.Zero(t, redo)

	entry, err := h.Undo(g)
	require.NoError(t, err)
	assert.Equal(t, core.OpDeleteTraces, entry.Forward.Op)
	require.Len(t, g.Data, 2)

	_, err = h.Undo(g)
	require.NoError(t, err)
	assert.Equal(t, graph(), g)

	_, err = h.Undo(g)
	assert.ErrorIs(t, err, ErrNothingToUndo)

	_, err = h.Redo(g)
	require.NoError(t, err)
	entry, err = h.Redo(g)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, afterBoth, g)

	_, err = h.Redo(g)
	assert.ErrorIs(t, err, ErrNothingToRedo)
}

func TestAddClearsRedo(t *testing.T) {
	h := New(10)
	e := core.NewEditor(core.WithQueue(h))
	g := graph()

	require.NoError(t, e.MoveTraces(g, core.Index(0), core.Index(1)))
	_, err := h.Undo(g)
	require.NoError(t, err)

	require.NoError(t, e.AddTraces(g, []core.Trace{{"name": "c"}}, core.IndexRef{}))
	_, redo := h.Len()
	assert.Zero(t, redo)
}

func TestDepthEvictsOldest(t *testing.T) {
	h := New(2)
	e := core.NewEditor(core.WithQueue(h))
	g := graph()

	for i := range 3 {
		require.NoError(t, e.ExtendTraces(g, core.Update{"y": {[]any{i}}}, core.Index(0), core.MaxPoints{}))
	}
	undo, _ := h.Len()
	assert.Equal(t, 2, undo)

	_, err := h.Undo(g)
	require.NoError(t, err)
	_, err = h.Undo(g)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3, 0}, g.Data[0]["y"])
}

func TestUndoAfterExternalChange(t *testing.T) {
	h := New(0)
	e := core.NewEditor(core.WithQueue(h))
	g := graph()

	require.NoError(t, e.AddTraces(g, []core.Trace{{"name": "c"}}, core.IndexRef{}))
	g.Data = g.Data[:1]

	_, err := h.Undo(g)
	assert.ErrorIs(t, err, core.ErrOutOfBounds)
	undo, redo := h.Len()
	assert.Zero(t, undo)
	assert.Zero(t, redo)
}

func TestRestore(t *testing.T) {
	src := New(5)
	e := core.NewEditor(core.WithQueue(src))
	g := graph()
	require.NoError(t, e.DeleteTraces(g, core.Index(1)))

	undo, redo := src.Entries()
	dst := New(5)
	dst.Restore(undo, redo)

	_, err := dst.Undo(g)
	require.NoError(t, err)
	assert.Equal(t, graph(), g)

	dst.Clear()
	n, _ := dst.Len()
	assert.Zero(t, n)
}

func TestPeekLeavesStacks(t *testing.T) {
	h := New(10)
	e := core.NewEditor(core.WithQueue(h))
	g := graph()

	_, err := h.PeekUndo()
	assert.ErrorIs(t, err, ErrNothingToUndo)
	_, err = h.PeekRedo()
	assert.ErrorIs(t, err, ErrNothingToRedo)

	require.NoError(t, e.DeleteTraces(g, core.Index(0)))
	peeked, err := h.PeekUndo()
	require.NoError(t, err)
	assert.Equal(t, core.OpAddTraces, peeked.Inverse.Op)
	undo, _ := h.Len()
	assert.Equal(t, 1, undo)

	entry, err := h.Undo(g)
	require.NoError(t, err)
	assert.Equal(t, peeked.ID, entry.ID)

	peeked, err = h.PeekRedo()
	require.NoError(t, err)
	assert.Equal(t, entry.ID, peeked.ID)
	_, redo := h.Len()
	assert.Equal(t, 1, redo)
}
