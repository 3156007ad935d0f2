package server

import (
	"github.com/sanonone/tracekit/pkg/core"
	"github.com/sanonone/tracekit/pkg/stats"
)

// CreateDocumentRequest defines the body of POST /docs. Graph may be omitted
// to start from an empty trace list.
type CreateDocumentRequest struct {
	Name  string      `json:"name"`
	Graph *core.Graph `json:"graph,omitempty"`
}

// AddTracesRequest defines the body of POST /docs/{name}/traces/add.
type AddTracesRequest struct {
	Traces     core.Traces   `json:"traces"`
	NewIndices core.IndexRef `json:"new_indices,omitzero"`
}

// DeleteTracesRequest defines the body of POST /docs/{name}/traces/delete.
type DeleteTracesRequest struct {
	Indices core.IndexRef `json:"indices,omitzero"`
}

// MoveTracesRequest defines the body of POST /docs/{name}/traces/move.
type MoveTracesRequest struct {
	CurrentIndices core.IndexRef `json:"current_indices,omitzero"`
	NewIndices     core.IndexRef `json:"new_indices,omitzero"`
}

// StreamRequest defines the body of the extend and prepend endpoints.
// MaxPoints is either a number or an object shaped like Update.
type StreamRequest struct {
	Update    core.Update    `json:"update"`
	Indices   core.IndexRef  `json:"indices,omitzero"`
	MaxPoints core.MaxPoints `json:"max_points,omitzero"`
}

// StatsResponse is returned by GET /docs/{name}/stats.
type StatsResponse struct {
	Attr   string               `json:"attr"`
	Traces []stats.TraceSummary `json:"traces"`
	Range  *[2]float64          `json:"range,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply from the API.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
