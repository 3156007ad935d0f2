package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sanonone/tracekit/pkg/core"
	"github.com/sanonone/tracekit/pkg/engine"
)

// Service adapts the Engine to typed MCP tool handlers.
type Service struct {
	engine *engine.Engine
}

func NewService(eng *engine.Engine) *Service {
	return &Service{engine: eng}
}

func indexRef(values []int) core.IndexRef {
	if values == nil {
		return core.IndexRef{}
	}
	return core.Indices(values...)
}

func toTraces(in []map[string]any) []core.Trace {
	if in == nil {
		return nil
	}
	out := make([]core.Trace, len(in))
	for i, t := range in {
		out[i] = core.Trace(t)
	}
	return out
}

func fromTraces(in []core.Trace) []map[string]any {
	out := make([]map[string]any, len(in))
	for i, t := range in {
		out[i] = map[string]any(t)
	}
	return out
}

func summary(info engine.DocumentInfo) DocumentSummary {
	return DocumentSummary{
		Name:      info.Name,
		Traces:    info.Traces,
		Revision:  info.Revision,
		UndoDepth: info.UndoDepth,
		RedoDepth: info.RedoDepth,
	}
}

func operationResult(res engine.Result) OperationResult {
	return OperationResult{
		Op:       string(res.Op),
		Revision: res.Revision,
		Traces:   res.Traces,
		Inverse:  res.Inverse.String(),
	}
}

// --- Tool Handlers ---

func (s *Service) ListDocuments(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, ListDocumentsResult, error) {
	infos := s.engine.ListDocuments()
	out := ListDocumentsResult{Documents: make([]DocumentSummary, len(infos))}
	for i, info := range infos {
		out.Documents[i] = summary(info)
	}
	return nil, out, nil
}

func (s *Service) GetDocument(ctx context.Context, req *mcp.CallToolRequest, args DocumentArgs) (*mcp.CallToolResult, GetDocumentResult, error) {
	doc, err := s.engine.Document(args.Document)
	if err != nil {
		return nil, GetDocumentResult{}, err
	}
	return nil, GetDocumentResult{
		Document: summary(doc.DocumentInfo),
		Data:     fromTraces(doc.Graph.Data),
		Layout:   doc.Graph.Layout,
	}, nil
}

func (s *Service) CreateDocument(ctx context.Context, req *mcp.CallToolRequest, args CreateDocumentArgs) (*mcp.CallToolResult, DocumentSummary, error) {
	g := &core.Graph{Data: toTraces(args.Traces), Layout: args.Layout}
	for i, t := range g.Data {
		if t == nil {
			g.Data[i] = core.Trace{}
		}
	}
	if err := s.engine.CreateDocument(args.Document, g); err != nil {
		return nil, DocumentSummary{}, err
	}
	doc, err := s.engine.Document(args.Document)
	if err != nil {
		return nil, DocumentSummary{}, err
	}
	return nil, summary(doc.DocumentInfo), nil
}

func (s *Service) AddTraces(ctx context.Context, req *mcp.CallToolRequest, args AddTracesArgs) (*mcp.CallToolResult, OperationResult, error) {
	res, err := s.engine.AddTraces(args.Document, toTraces(args.Traces), indexRef(args.NewIndices))
	if err != nil {
		return nil, OperationResult{}, err
	}
	return nil, operationResult(res), nil
}

func (s *Service) DeleteTraces(ctx context.Context, req *mcp.CallToolRequest, args DeleteTracesArgs) (*mcp.CallToolResult, OperationResult, error) {
	res, err := s.engine.DeleteTraces(args.Document, indexRef(args.Indices))
	if err != nil {
		return nil, OperationResult{}, err
	}
	return nil, operationResult(res), nil
}

func (s *Service) MoveTraces(ctx context.Context, req *mcp.CallToolRequest, args MoveTracesArgs) (*mcp.CallToolResult, OperationResult, error) {
	res, err := s.engine.MoveTraces(args.Document, indexRef(args.CurrentIndices), indexRef(args.NewIndices))
	if err != nil {
		return nil, OperationResult{}, err
	}
	return nil, operationResult(res), nil
}

func (s *Service) ExtendTraces(ctx context.Context, req *mcp.CallToolRequest, args StreamArgs) (*mcp.CallToolResult, OperationResult, error) {
	res, err := s.engine.ExtendTraces(args.Document, core.Update(args.Update), indexRef(args.Indices), args.maxPoints())
	if err != nil {
		return nil, OperationResult{}, err
	}
	return nil, operationResult(res), nil
}

func (s *Service) PrependTraces(ctx context.Context, req *mcp.CallToolRequest, args StreamArgs) (*mcp.CallToolResult, OperationResult, error) {
	res, err := s.engine.PrependTraces(args.Document, core.Update(args.Update), indexRef(args.Indices), args.maxPoints())
	if err != nil {
		return nil, OperationResult{}, err
	}
	return nil, operationResult(res), nil
}

func (a StreamArgs) maxPoints() core.MaxPoints {
	switch {
	case a.MaxPointsPerAttribute != nil:
		return core.PerAttribute(a.MaxPointsPerAttribute)
	case a.MaxPoints != nil:
		return core.Uniform(*a.MaxPoints)
	}
	return core.MaxPoints{}
}

func (s *Service) Undo(ctx context.Context, req *mcp.CallToolRequest, args DocumentArgs) (*mcp.CallToolResult, OperationResult, error) {
	res, err := s.engine.Undo(args.Document)
	if err != nil {
		return nil, OperationResult{}, err
	}
	return nil, operationResult(res), nil
}

func (s *Service) Redo(ctx context.Context, req *mcp.CallToolRequest, args DocumentArgs) (*mcp.CallToolResult, OperationResult, error) {
	res, err := s.engine.Redo(args.Document)
	if err != nil {
		return nil, OperationResult{}, err
	}
	return nil, operationResult(res), nil
}

func (s *Service) Stats(ctx context.Context, req *mcp.CallToolRequest, args StatsArgs) (*mcp.CallToolResult, StatsResult, error) {
	attr := args.Attr
	if attr == "" {
		attr = "y"
	}
	summaries, err := s.engine.Stats(args.Document, attr)
	if err != nil {
		return nil, StatsResult{}, err
	}
	out := StatsResult{Attr: attr, Traces: make([]AttributeStats, len(summaries))}
	for i, ts := range summaries {
		out.Traces[i] = AttributeStats{
			Trace:   ts.Trace,
			Present: ts.Present,
			Count:   ts.Summary.Count,
			Min:     ts.Summary.Min,
			Max:     ts.Summary.Max,
			Mean:    ts.Summary.Mean,
			StdDev:  ts.Summary.StdDev,
			Median:  ts.Summary.Median,
		}
	}
	return nil, out, nil
}
