package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanonone/tracekit/internal/logging"
	"github.com/sanonone/tracekit/pkg/engine"
)

const testToken = "test-secret-token"

func newTestServer(t *testing.T, token string) (*Server, *httptest.Server) {
	t.Helper()
	opts := engine.DefaultOptions(t.TempDir())
	opts.AutoSaveInterval = 0
	opts.AofRewritePercentage = 0
	opts.SyncWrites = true
	opts.Logger = logging.Discard()

	eng, err := engine.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	s := NewServer(eng, "", token, logging.Discard())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

// call sends body (JSON-encoded unless it is a string) and returns the
// status and raw response body.
func call(t *testing.T, ts *httptest.Server, method, path string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func getDoc(t *testing.T, ts *httptest.Server, name string) engine.Document {
	t.Helper()
	status, raw := call(t, ts, http.MethodGet, "/docs/"+name, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	return decode[engine.Document](t, raw)
}

func createSeries(t *testing.T, ts *httptest.Server, name string) {
	t.Helper()
	status, raw := call(t, ts, http.MethodPost, "/docs", `{
		"name": "`+name+`",
		"graph": {"data": [
			{"name": "a", "x": [1, 2, 3], "y": [10, 20, 30]},
			{"name": "b", "x": [1, 2], "y": [5, 6]}
		]}
	}`)
	require.Equal(t, http.StatusCreated, status, string(raw))
}

func names(doc engine.Document) []string {
	out := make([]string, len(doc.Graph.Data))
	for i, tr := range doc.Graph.Data {
		out[i], _ = tr["name"].(string)
	}
	return out
}

func TestHealthzAndAuth(t *testing.T) {
	_, ts := newTestServer(t, testToken)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/docs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/docs", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	status, _ := call(t, ts, http.MethodGet, "/docs", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestNoTokenDisablesAuth(t *testing.T) {
	_, ts := newTestServer(t, "")

	resp, err := http.Get(ts.URL + "/docs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDocumentLifecycle(t *testing.T) {
	_, ts := newTestServer(t, testToken)
	createSeries(t, ts, "cpu")

	status, raw := call(t, ts, http.MethodPost, "/docs", `{"name": "cpu"}`)
	assert.Equal(t, http.StatusConflict, status, string(raw))

	status, raw = call(t, ts, http.MethodPost, "/docs", `{"name": "bad name"}`)
	assert.Equal(t, http.StatusBadRequest, status, string(raw))

	status, raw = call(t, ts, http.MethodPost, "/docs", `{"name": "x", "graph": {"data": {}}}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "InvalidTarget", decode[ErrorResponse](t, raw).Kind)

	status, raw = call(t, ts, http.MethodGet, "/docs", nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[struct {
		Documents []engine.DocumentInfo `json:"documents"`
	}](t, raw)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "cpu", list.Documents[0].Name)
	assert.Equal(t, 2, list.Documents[0].Traces)

	doc := getDoc(t, ts, "cpu")
	assert.Equal(t, []string{"a", "b"}, names(doc))

	status, _ = call(t, ts, http.MethodDelete, "/docs/cpu", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, raw = call(t, ts, http.MethodGet, "/docs/cpu", nil)
	assert.Equal(t, http.StatusNotFound, status, string(raw))
}

func TestTraceOperations(t *testing.T) {
	_, ts := newTestServer(t, testToken)
	createSeries(t, ts, "cpu")

	status, raw := call(t, ts, http.MethodPost, "/docs/cpu/traces/add",
		`{"traces": [{"name": "c", "x": []}], "new_indices": [0]}`)
	require.Equal(t, http.StatusOK, status, string(raw))
	res := decode[engine.Result](t, raw)
	assert.Equal(t, 3, res.Traces)
	assert.Equal(t, []string{"c", "a", "b"}, names(getDoc(t, ts, "cpu")))

	status, raw = call(t, ts, http.MethodPost, "/docs/cpu/traces/move",
		`{"current_indices": [0]}`)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, []string{"a", "b", "c"}, names(getDoc(t, ts, "cpu")))

	status, raw = call(t, ts, http.MethodPost, "/docs/cpu/traces/extend",
		`{"update": {"x": [[4, 5], [3]]}, "indices": [0, 1], "max_points": 3}`)
	require.Equal(t, http.StatusOK, status, string(raw))
	doc := getDoc(t, ts, "cpu")
	assert.Empty(t, cmp.Diff([]any{3.0, 4.0, 5.0}, doc.Graph.Data[0]["x"]))
	assert.Empty(t, cmp.Diff([]any{1.0, 2.0, 3.0}, doc.Graph.Data[1]["x"]))

	status, raw = call(t, ts, http.MethodPost, "/docs/cpu/traces/prepend",
		`{"update": {"x": [[0]]}, "indices": -1}`)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Empty(t, cmp.Diff([]any{0.0}, getDoc(t, ts, "cpu").Graph.Data[2]["x"]))

	status, raw = call(t, ts, http.MethodPost, "/docs/cpu/traces/delete", `{"indices": [0, -1]}`)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, []string{"b"}, names(getDoc(t, ts, "cpu")))
}

func TestTraceOperationErrors(t *testing.T) {
	_, ts := newTestServer(t, testToken)
	createSeries(t, ts, "cpu")

	cases := []struct {
		name   string
		path   string
		body   string
		status int
		kind   string
	}{
		{"delete without indices", "/docs/cpu/traces/delete", ``, http.StatusBadRequest, "MissingArgument"},
		{"delete out of bounds", "/docs/cpu/traces/delete", `{"indices": 10}`, http.StatusBadRequest, "OutOfBounds"},
		{"delete duplicates", "/docs/cpu/traces/delete", `{"indices": [0, 0]}`, http.StatusBadRequest, "DuplicateIndex"},
		{"add nested array", "/docs/cpu/traces/add", `{"traces": [[{}]]}`, http.StatusBadRequest, "InvalidShape"},
		{"add length mismatch", "/docs/cpu/traces/add", `{"traces": [{}], "new_indices": [0, 1]}`, http.StatusBadRequest, "LengthMismatch"},
		{"move without current", "/docs/cpu/traces/move", `{}`, http.StatusBadRequest, "MissingArgument"},
		{"extend missing attribute", "/docs/cpu/traces/extend", `{"update": {"z": [[1]]}, "indices": [0]}`, http.StatusBadRequest, "MissingAttribute"},
		{"extend window shape", "/docs/cpu/traces/extend", `{"update": {"x": [[1]]}, "indices": [0], "max_points": {"y": [1]}}`, http.StatusBadRequest, "WindowShapeMismatch"},
		{"prepend without update", "/docs/cpu/traces/prepend", `{"indices": [0]}`, http.StatusBadRequest, "InvalidShape"},
		{"invalid json", "/docs/cpu/traces/delete", `{"indices":`, http.StatusBadRequest, ""},
		{"unknown op", "/docs/cpu/traces/shuffle", `{}`, http.StatusNotFound, ""},
		{"unknown document", "/docs/nope/traces/delete", `{"indices": 0}`, http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, raw := call(t, ts, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.status, status, string(raw))
			assert.Equal(t, tc.kind, decode[ErrorResponse](t, raw).Kind)
		})
	}

	doc := getDoc(t, ts, "cpu")
	assert.Equal(t, []string{"a", "b"}, names(doc))
	assert.Equal(t, uint64(0), doc.Revision)
}

func TestUndoRedo(t *testing.T) {
	_, ts := newTestServer(t, testToken)
	createSeries(t, ts, "cpu")

	status, _ := call(t, ts, http.MethodPost, "/docs/cpu/undo", nil)
	assert.Equal(t, http.StatusConflict, status)

	status, raw := call(t, ts, http.MethodPost, "/docs/cpu/traces/extend",
		`{"update": {"y": [[40, 50]]}, "indices": 0, "max_points": 2}`)
	require.Equal(t, http.StatusOK, status, string(raw))

	status, raw = call(t, ts, http.MethodGet, "/docs/cpu/history", nil)
	require.Equal(t, http.StatusOK, status)
	hist := decode[engine.HistoryInfo](t, raw)
	assert.Len(t, hist.Undo, 1)
	assert.Empty(t, hist.Redo)

	status, raw = call(t, ts, http.MethodPost, "/docs/cpu/undo", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Empty(t, cmp.Diff([]any{10.0, 20.0, 30.0}, getDoc(t, ts, "cpu").Graph.Data[0]["y"]))

	status, raw = call(t, ts, http.MethodPost, "/docs/cpu/redo", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Empty(t, cmp.Diff([]any{40.0, 50.0}, getDoc(t, ts, "cpu").Graph.Data[0]["y"]))

	status, _ = call(t, ts, http.MethodPost, "/docs/cpu/redo", nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestStatsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, testToken)
	createSeries(t, ts, "cpu")

	status, raw := call(t, ts, http.MethodGet, "/docs/cpu/stats?pad=0", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	resp := decode[StatsResponse](t, raw)
	assert.Equal(t, "y", resp.Attr)
	require.Len(t, resp.Traces, 2)
	assert.Equal(t, 3, resp.Traces[0].Summary.Count)
	assert.InDelta(t, 20.0, resp.Traces[0].Summary.Mean, 1e-9)
	require.NotNil(t, resp.Range)
	assert.Equal(t, [2]float64{5, 30}, *resp.Range)

	status, _ = call(t, ts, http.MethodGet, "/docs/cpu/stats?pad=-1", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSystemEndpoints(t *testing.T) {
	_, ts := newTestServer(t, testToken)
	createSeries(t, ts, "cpu")

	status, raw := call(t, ts, http.MethodPost, "/system/save", nil)
	assert.Equal(t, http.StatusOK, status, string(raw))

	status, raw = call(t, ts, http.MethodPost, "/system/aof-rewrite?async=true", nil)
	require.Equal(t, http.StatusAccepted, status, string(raw))
	task := decode[TaskView](t, raw)
	assert.Equal(t, "aof-rewrite", task.Kind)

	require.Eventually(t, func() bool {
		status, raw := call(t, ts, http.MethodGet, "/system/tasks/"+task.ID, nil)
		return status == http.StatusOK && decode[TaskView](t, raw).Status == TaskStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	status, _ = call(t, ts, http.MethodGet, "/system/tasks/unknown", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRecoveryMiddleware(t *testing.T) {
	s, _ := newTestServer(t, "")
	h := s.RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClosedEngine(t *testing.T) {
	s, ts := newTestServer(t, testToken)
	require.NoError(t, s.Engine.Close())

	status, _ := call(t, ts, http.MethodGet, "/docs/cpu", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
