package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedAdd struct {
	forward, inverse Descriptor
}

type recordingQueue struct {
	adds []recordedAdd
}

func (q *recordingQueue) Add(_ *Graph, forward, inverse Descriptor) {
	q.adds = append(q.adds, recordedAdd{forward, inverse})
}

func newRecordingEditor() (*Editor, *int, *recordingQueue) {
	redraws := 0
	q := &recordingQueue{}
	e := NewEditor(
		WithRedrawer(RedrawFunc(func(*Graph) { redraws++ })),
		WithQueue(q),
	)
	return e, &redraws, q
}

func TestEditorNotifiesOnSuccess(t *testing.T) {
	e, redraws, q := newRecordingEditor()
	g := namedGraph("a", "b")

	require.NoError(t, e.AddTraces(g, []Trace{{"name": "c"}}, Index(0)))
	assert.Equal(t, []string{"c", "a", "b"}, names(g))
	assert.Equal(t, 1, *redraws, "add with new indices redraws once")
	require.Len(t, q.adds, 1)
	assert.Equal(t, OpAddTraces, q.adds[0].forward.Op)
	assert.Equal(t, DeleteOp(Indices(0)), q.adds[0].inverse)

	require.NoError(t, e.MoveTraces(g, Index(0), IndexRef{}))
	require.NoError(t, e.DeleteTraces(g, Index(-1)))
	assert.Equal(t, []string{"a", "b"}, names(g))
	assert.Equal(t, 3, *redraws)
	assert.Len(t, q.adds, 3)
}

func TestEditorSilentOnFailure(t *testing.T) {
	e, redraws, q := newRecordingEditor()
	g := namedGraph("a", "b")

	assert.ErrorIs(t, e.DeleteTraces(g, Index(5)), ErrOutOfBounds)
	assert.ErrorIs(t, e.ExtendTraces(g, Update{"x": {[]any{1}}}, Index(0), MaxPoints{}), ErrMissingAttribute)
	assert.ErrorIs(t, e.PrependTraces(g, nil, Index(0), MaxPoints{}), ErrInvalidShape)
	assert.Zero(t, *redraws)
	assert.Empty(t, q.adds)
}

func TestEditorQueuedDescriptorsReplay(t *testing.T) {
	e, _, q := newRecordingEditor()
	g := streamGraph()

	update := streamUpdate()
	require.NoError(t, e.ExtendTraces(g, update, Indices(0, 1), Uniform(3)))
	after := g.Clone()

	// Mutating the caller's payload must not leak into the recorded operation.
	update["x"][0].([]any)[0] = 100

	require.Len(t, q.adds, 1)
	_, err := Apply(g, q.adds[0].inverse)
	require.NoError(t, err)
	assert.Equal(t, streamGraph(), g)

	_, err = Apply(g, q.adds[0].forward)
	require.NoError(t, err)
	assert.Equal(t, after, g)
}

func TestEditorWithoutCollaborators(t *testing.T) {
	e := NewEditor()
	g := namedGraph("a")
	inv, err := e.Apply(g, AddOp([]Trace{{"name": "b"}}, IndexRef{}))
	require.NoError(t, err)
	assert.Equal(t, DeleteOp(Indices(1)), inv)

	_, err = e.Apply(g, Descriptor{Op: "relayout"})
	assert.ErrorIs(t, err, ErrInvalidShape)
}
