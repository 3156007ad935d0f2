package mcp

// --- Tool Arguments ---

// Indices fields are plain integer lists here; an omitted list is passed to
// the engine as a missing argument.

type DocumentArgs struct {
	Document string `json:"document" jsonschema:"Name of the graph document"`
}

type CreateDocumentArgs struct {
	Document string           `json:"document" jsonschema:"Name of the new document. No spaces or slashes"`
	Traces   []map[string]any `json:"traces,omitempty" jsonschema:"Initial traces, each an object of attributes such as x, y and name"`
	Layout   map[string]any   `json:"layout,omitempty" jsonschema:"Optional layout object stored alongside the traces"`
}

type AddTracesArgs struct {
	Document   string           `json:"document" jsonschema:"Name of the graph document"`
	Traces     []map[string]any `json:"traces" jsonschema:"Traces to insert. Each must be an object"`
	NewIndices []int            `json:"new_indices,omitempty" jsonschema:"Final positions of the new traces. Negative values count from the end. Defaults to appending"`
}

type DeleteTracesArgs struct {
	Document string `json:"document" jsonschema:"Name of the graph document"`
	Indices  []int  `json:"indices" jsonschema:"Positions of the traces to delete. Negative values count from the end"`
}

type MoveTracesArgs struct {
	Document       string `json:"document" jsonschema:"Name of the graph document"`
	CurrentIndices []int  `json:"current_indices" jsonschema:"Positions of the traces to move"`
	NewIndices     []int  `json:"new_indices,omitempty" jsonschema:"Target positions, one per current index. Defaults to moving the traces to the end"`
}

type StreamArgs struct {
	Document              string           `json:"document" jsonschema:"Name of the graph document"`
	Update                map[string][]any `json:"update" jsonschema:"Attribute path to a list of point arrays, one array per entry of indices"`
	Indices               []int            `json:"indices" jsonschema:"Positions of the traces receiving the points"`
	MaxPoints             *int             `json:"max_points,omitempty" jsonschema:"Keep at most this many points in every updated array"`
	MaxPointsPerAttribute map[string][]int `json:"max_points_per_attribute,omitempty" jsonschema:"Per attribute and per trace point limits, shaped like update. Overrides max_points"`
}

type StatsArgs struct {
	Document string `json:"document" jsonschema:"Name of the graph document"`
	Attr     string `json:"attr,omitempty" jsonschema:"Attribute path to summarize. Defaults to y"`
}

// --- Tool Results ---

type DocumentSummary struct {
	Name      string `json:"name"`
	Traces    int    `json:"traces"`
	Revision  uint64 `json:"revision"`
	UndoDepth int    `json:"undo_depth"`
	RedoDepth int    `json:"redo_depth"`
}

type ListDocumentsResult struct {
	Documents []DocumentSummary `json:"documents"`
}

type GetDocumentResult struct {
	Document DocumentSummary  `json:"document"`
	Data     []map[string]any `json:"data"`
	Layout   map[string]any   `json:"layout,omitempty"`
}

// OperationResult reports an applied change. Inverse is a one-line
// description of the operation that undoes it.
type OperationResult struct {
	Op       string `json:"op"`
	Revision uint64 `json:"revision"`
	Traces   int    `json:"traces"`
	Inverse  string `json:"inverse"`
}

type AttributeStats struct {
	Trace   int     `json:"trace"`
	Present bool    `json:"present"`
	Count   int     `json:"count"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stddev"`
	Median  float64 `json:"median"`
}

type StatsResult struct {
	Attr   string           `json:"attr"`
	Traces []AttributeStats `json:"traces"`
}
