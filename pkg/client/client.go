// Package client provides a Go client for the tracekit HTTP API.
//
// It covers document management, the five trace operations, undo and redo,
// attribute statistics and the maintenance endpoints. Requests and responses
// use the same core types as the engine, so index references and window
// limits keep their scalar-or-list JSON forms.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sanonone/tracekit/pkg/core"
	"github.com/sanonone/tracekit/pkg/engine"
	"github.com/sanonone/tracekit/pkg/history"
	"github.com/sanonone/tracekit/pkg/stats"
)

// --- Custom Errors ---

// APIError represents an error returned by the API (status >= 400). Kind is
// set for validation failures and names the core error kind.
type APIError struct {
	StatusCode int
	Message    string
	Kind       string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("API error (status %d, %s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// IsKind reports whether err is an APIError carrying the given core kind.
func IsKind(err error, kind core.Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind.String()
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// --- JSON Response Structs ---

// StatsResult is the reply of Stats.
type StatsResult struct {
	Attr   string               `json:"attr"`
	Traces []stats.TraceSummary `json:"traces"`
	Range  *[2]float64          `json:"range,omitempty"`
}

// Task represents an asynchronous maintenance operation on the server.
type Task struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`

	client *Client
}

// --- Client ---

// Client is the Go client for a tracekit server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for http://host:port. An empty token sends no
// Authorization header.
func New(host string, port int, token string) *Client {
	return NewWithURL(fmt.Sprintf("http://%s:%d", host, port), token)
}

// NewWithURL creates a client for an explicit base URL.
func NewWithURL(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// jsonRequest executes a request against the API and decodes a successful
// reply into out, when out is non-nil.
func (c *Client) jsonRequest(method, endpoint string, payload, out any) error {
	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal JSON payload: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error, Kind: errResp.Kind}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("invalid JSON response for %s %s: %w", method, endpoint, err)
	}
	return nil
}

func docPath(name string, rest string) string {
	return "/docs/" + url.PathEscape(name) + rest
}

// Refresh updates the task's status by querying the server.
func (t *Task) Refresh() error {
	if t.client == nil {
		return fmt.Errorf("client is not associated with the task")
	}
	updated, err := t.client.GetTaskStatus(t.ID)
	if err != nil {
		return err
	}
	t.Status = updated.Status
	t.Error = updated.Error
	return nil
}

// Wait blocks until the task is completed, checking its status at regular intervals.
func (t *Task) Wait(interval, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-timer.C:
			return fmt.Errorf("timeout exceeded while waiting for task %s", t.ID)
		case <-ticker.C:
			if err := t.Refresh(); err != nil {
				return err
			}
			switch t.Status {
			case "completed":
				return nil
			case "failed":
				return fmt.Errorf("task %s failed with error: %s", t.ID, t.Error)
			case "running":
			default:
				return fmt.Errorf("unknown task status: %s", t.Status)
			}
		}
	}
}

// --- Document Methods ---

// CreateDocument creates a document. g may be nil for an empty one.
func (c *Client) CreateDocument(name string, g *core.Graph) (*engine.DocumentInfo, error) {
	payload := map[string]any{"name": name}
	if g != nil {
		payload["graph"] = g
	}
	var info engine.DocumentInfo
	if err := c.jsonRequest(http.MethodPost, "/docs", payload, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListDocuments returns every document on the server.
func (c *Client) ListDocuments() ([]engine.DocumentInfo, error) {
	var resp struct {
		Documents []engine.DocumentInfo `json:"documents"`
	}
	if err := c.jsonRequest(http.MethodGet, "/docs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// GetDocument fetches a document with its traces.
func (c *Client) GetDocument(name string) (*engine.Document, error) {
	var doc engine.Document
	if err := c.jsonRequest(http.MethodGet, docPath(name, ""), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument drops a document and its history.
func (c *Client) DeleteDocument(name string) error {
	return c.jsonRequest(http.MethodDelete, docPath(name, ""), nil, nil)
}

// --- Trace Methods ---

func (c *Client) traceOp(name, op string, payload any) (*engine.Result, error) {
	var res engine.Result
	if err := c.jsonRequest(http.MethodPost, docPath(name, "/traces/"+op), payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// tracePayload is the body of every trace operation; each op reads only its
// own fields.
type tracePayload struct {
	Traces         core.Traces    `json:"traces,omitzero"`
	Indices        core.IndexRef  `json:"indices,omitzero"`
	CurrentIndices core.IndexRef  `json:"current_indices,omitzero"`
	NewIndices     core.IndexRef  `json:"new_indices,omitzero"`
	Update         core.Update    `json:"update,omitzero"`
	MaxPoints      core.MaxPoints `json:"max_points,omitzero"`
}

// AddTraces inserts traces. A zero newIndices appends them.
func (c *Client) AddTraces(name string, traces []core.Trace, newIndices core.IndexRef) (*engine.Result, error) {
	return c.traceOp(name, "add", tracePayload{Traces: traces, NewIndices: newIndices})
}

// DeleteTraces removes the traces at indices.
func (c *Client) DeleteTraces(name string, indices core.IndexRef) (*engine.Result, error) {
	return c.traceOp(name, "delete", tracePayload{Indices: indices})
}

// MoveTraces reorders traces. A zero newIndices moves them to the end.
func (c *Client) MoveTraces(name string, current, newIndices core.IndexRef) (*engine.Result, error) {
	return c.traceOp(name, "move", tracePayload{CurrentIndices: current, NewIndices: newIndices})
}

// ExtendTraces appends points, keeping at most maxPoints per array when set.
func (c *Client) ExtendTraces(name string, update core.Update, indices core.IndexRef, maxPoints core.MaxPoints) (*engine.Result, error) {
	return c.traceOp(name, "extend", tracePayload{Update: update, Indices: indices, MaxPoints: maxPoints})
}

// PrependTraces prepends points, keeping at most maxPoints per array when set.
func (c *Client) PrependTraces(name string, update core.Update, indices core.IndexRef, maxPoints core.MaxPoints) (*engine.Result, error) {
	return c.traceOp(name, "prepend", tracePayload{Update: update, Indices: indices, MaxPoints: maxPoints})
}

// Apply sends a recorded descriptor, e.g. one returned as an inverse.
func (c *Client) Apply(name string, d core.Descriptor) (*engine.Result, error) {
	switch d.Op {
	case core.OpAddTraces:
		return c.AddTraces(name, d.Traces, d.NewIndices)
	case core.OpDeleteTraces:
		return c.DeleteTraces(name, d.Indices)
	case core.OpMoveTraces:
		return c.MoveTraces(name, d.CurrentIndices, d.NewIndices)
	case core.OpExtendTraces:
		return c.ExtendTraces(name, d.Update, d.Indices, d.MaxPoints)
	case core.OpPrependTraces:
		return c.PrependTraces(name, d.Update, d.Indices, d.MaxPoints)
	}
	return nil, fmt.Errorf("unknown operation %q", d.Op)
}

// --- History Methods ---

func (c *Client) Undo(name string) (*engine.Result, error) {
	var res engine.Result
	if err := c.jsonRequest(http.MethodPost, docPath(name, "/undo"), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Redo(name string) (*engine.Result, error) {
	var res engine.Result
	if err := c.jsonRequest(http.MethodPost, docPath(name, "/redo"), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// History returns the undo and redo stacks, oldest first.
func (c *Client) History(name string) (undo, redo []history.Entry, err error) {
	var info engine.HistoryInfo
	if err := c.jsonRequest(http.MethodGet, docPath(name, "/history"), nil, &info); err != nil {
		return nil, nil, err
	}
	return info.Undo, info.Redo, nil
}

// Stats summarizes the numeric attribute attr across the document's traces.
func (c *Client) Stats(name, attr string) (*StatsResult, error) {
	endpoint := docPath(name, "/stats")
	if attr != "" {
		endpoint += "?attr=" + url.QueryEscape(attr)
	}
	var res StatsResult
	if err := c.jsonRequest(http.MethodGet, endpoint, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- System Methods ---

// Save writes a snapshot synchronously.
func (c *Client) Save() error {
	return c.jsonRequest(http.MethodPost, "/system/save", nil, nil)
}

// AOFRewrite starts a background journal compaction.
func (c *Client) AOFRewrite() (*Task, error) {
	var task Task
	if err := c.jsonRequest(http.MethodPost, "/system/aof-rewrite?async=true", nil, &task); err != nil {
		return nil, err
	}
	task.client = c
	return &task, nil
}

// GetTaskStatus retrieves the status of an asynchronous task.
func (c *Client) GetTaskStatus(taskID string) (*Task, error) {
	var task Task
	if err := c.jsonRequest(http.MethodGet, "/system/tasks/"+url.PathEscape(taskID), nil, &task); err != nil {
		return nil, err
	}
	task.client = c
	return &task, nil
}
