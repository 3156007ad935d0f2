package client

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanonone/tracekit/internal/logging"
	"github.com/sanonone/tracekit/internal/server"
	"github.com/sanonone/tracekit/pkg/core"
	"github.com/sanonone/tracekit/pkg/engine"
)

const token = "client-test-token"

// newTestClient starts a real server over a temporary engine.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	opts := engine.DefaultOptions(t.TempDir())
	opts.AutoSaveInterval = 0
	opts.AofRewritePercentage = 0
	opts.SyncWrites = true
	opts.Logger = logging.Discard()

	eng, err := engine.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	srv := server.NewServer(eng, "", token, logging.Discard())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return NewWithURL(ts.URL, token)
}

func traceNames(doc *engine.Document) []string {
	out := make([]string, len(doc.Graph.Data))
	for i, tr := range doc.Graph.Data {
		out[i], _ = tr["name"].(string)
	}
	return out
}

func TestDocuments(t *testing.T) {
	c := newTestClient(t)

	info, err := c.CreateDocument("latency", &core.Graph{
		Data:   []core.Trace{{"name": "p50", "y": []any{1.0}}},
		Layout: map[string]any{"title": "latency"},
	})
	require.NoError(t, err)
	assert.Equal(t, "latency", info.Name)
	assert.Equal(t, 1, info.Traces)

	_, err = c.CreateDocument("empty", nil)
	require.NoError(t, err)

	docs, err := c.ListDocuments()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "empty", docs[0].Name)

	doc, err := c.GetDocument("latency")
	require.NoError(t, err)
	assert.Equal(t, "latency", doc.Graph.Layout["title"])

	require.NoError(t, c.DeleteDocument("empty"))
	_, err = c.GetDocument("empty")
	assert.True(t, IsNotFound(err))
}

func TestTraceOperations(t *testing.T) {
	c := newTestClient(t)
	_, err := c.CreateDocument("d", &core.Graph{Data: []core.Trace{
		{"name": "a", "x": []any{1.0, 2.0}},
		{"name": "b", "x": []any{1.0}},
	}})
	require.NoError(t, err)

	res, err := c.AddTraces("d", []core.Trace{{"name": "c", "x": []any{}}}, core.Index(0))
	require.NoError(t, err)
	assert.Equal(t, core.OpAddTraces, res.Op)
	assert.Equal(t, core.OpDeleteTraces, res.Inverse.Op)

	_, err = c.MoveTraces("d", core.Indices(0), core.IndexRef{})
	require.NoError(t, err)

	_, err = c.ExtendTraces("d", core.Update{"x": {[]any{3.0}, []any{2.0}}}, core.Indices(0, 1), core.Uniform(2))
	require.NoError(t, err)

	_, err = c.PrependTraces("d", core.Update{"x": {[]any{0.0}}}, core.Index(-1), core.MaxPoints{})
	require.NoError(t, err)

	doc, err := c.GetDocument("d")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, traceNames(doc))
	assert.Empty(t, cmp.Diff([]any{2.0, 3.0}, doc.Graph.Data[0]["x"]))
	assert.Empty(t, cmp.Diff([]any{1.0, 2.0}, doc.Graph.Data[1]["x"]))
	assert.Empty(t, cmp.Diff([]any{0.0}, doc.Graph.Data[2]["x"]))

	res, err = c.DeleteTraces("d", core.Indices(0, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Traces)

	// The returned inverse can be sent back as an ordinary operation.
	_, err = c.Apply("d", res.Inverse)
	require.NoError(t, err)
	doc, err = c.GetDocument("d")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, traceNames(doc))
}

func TestValidationErrors(t *testing.T) {
	c := newTestClient(t)
	_, err := c.CreateDocument("d", &core.Graph{Data: []core.Trace{{"x": []any{}}}})
	require.NoError(t, err)

	_, err = c.DeleteTraces("d", core.IndexRef{})
	assert.True(t, IsKind(err, core.KindMissingArgument), "%v", err)

	_, err = c.DeleteTraces("d", core.Index(5))
	assert.True(t, IsKind(err, core.KindOutOfBounds), "%v", err)

	_, err = c.MoveTraces("d", core.Indices(0, 0), core.IndexRef{})
	assert.True(t, IsKind(err, core.KindDuplicateIndex), "%v", err)

	_, err = c.ExtendTraces("d", core.Update{"y": {[]any{1.0}}}, core.Index(0), core.MaxPoints{})
	assert.True(t, IsKind(err, core.KindMissingAttribute), "%v", err)

	_, err = c.CreateDocument("d", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestHistoryAndStats(t *testing.T) {
	c := newTestClient(t)
	_, err := c.CreateDocument("d", &core.Graph{Data: []core.Trace{{"y": []any{1.0, 2.0, 3.0}}}})
	require.NoError(t, err)

	_, err = c.ExtendTraces("d", core.Update{"y": {[]any{9.0}}}, core.Index(0), core.Uniform(2))
	require.NoError(t, err)

	undo, redo, err := c.History("d")
	require.NoError(t, err)
	assert.Len(t, undo, 1)
	assert.Empty(t, redo)

	_, err = c.Undo("d")
	require.NoError(t, err)

	st, err := c.Stats("d", "y")
	require.NoError(t, err)
	require.Len(t, st.Traces, 1)
	assert.Equal(t, 3, st.Traces[0].Summary.Count)
	assert.InDelta(t, 2.0, st.Traces[0].Summary.Mean, 1e-9)

	_, err = c.Redo("d")
	require.NoError(t, err)
	_, err = c.Redo("d")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestMaintenance(t *testing.T) {
	c := newTestClient(t)
	_, err := c.CreateDocument("d", nil)
	require.NoError(t, err)

	require.NoError(t, c.Save())

	task, err := c.AOFRewrite()
	require.NoError(t, err)
	assert.Equal(t, "aof-rewrite", task.Kind)
	require.NoError(t, task.Wait(10*time.Millisecond, 5*time.Second))
	assert.Equal(t, "completed", task.Status)
}

func TestUnauthorized(t *testing.T) {
	c := newTestClient(t)
	c.token = ""

	_, err := c.ListDocuments()
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
