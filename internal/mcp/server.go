// Package mcp exposes the trace operations as Model Context Protocol tools,
// so an assistant can build and edit chart documents.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sanonone/tracekit/pkg/engine"
)

func NewMCPServer(eng *engine.Engine, version string) *mcp.Server {
	service := NewService(eng)

	s := mcp.NewServer(&mcp.Implementation{
		Name:    "tracekit",
		Version: version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the graph documents with their trace counts and revisions.",
	}, service.ListDocuments)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_document",
		Description: "Return the traces and layout of a graph document.",
	}, service.GetDocument)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "create_document",
		Description: "Create a new graph document, optionally seeded with traces.",
	}, service.CreateDocument)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "add_traces",
		Description: "Insert traces into a document, appended or at the given positions.",
	}, service.AddTraces)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "delete_traces",
		Description: "Delete traces by position.",
	}, service.DeleteTraces)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "move_traces",
		Description: "Reorder traces. Without new_indices the traces move to the end.",
	}, service.MoveTraces)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "extend_traces",
		Description: "Append points to trace arrays, keeping only the newest max_points.",
	}, service.ExtendTraces)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "prepend_traces",
		Description: "Prepend points to trace arrays, keeping only the first max_points.",
	}, service.PrependTraces)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "undo",
		Description: "Revert the most recent change to a document.",
	}, service.Undo)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "redo",
		Description: "Re-apply the most recently undone change.",
	}, service.Redo)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "trace_stats",
		Description: "Summarize a numeric attribute (min, max, mean, stddev, median) across every trace.",
	}, service.Stats)

	return s
}
