package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/sanonone/tracekit/pkg/core"
	"github.com/sanonone/tracekit/pkg/engine"
	"github.com/sanonone/tracekit/pkg/history"
	"github.com/sanonone/tracekit/pkg/stats"
)

// maxBodyBytes caps request bodies. Stream updates can be large, but not
// unbounded.
const maxBodyBytes = 32 << 20

// registerHTTPHandlers sets up the REST routes.
func (s *Server) registerHTTPHandlers(mux *http.ServeMux) {
	// --- Documents ---
	mux.HandleFunc("GET /docs", s.handleListDocuments)
	mux.HandleFunc("POST /docs", s.handleCreateDocument)
	mux.HandleFunc("GET /docs/{name}", s.handleGetDocument)
	mux.HandleFunc("DELETE /docs/{name}", s.handleDropDocument)

	// --- Trace operations ---
	mux.HandleFunc("POST /docs/{name}/traces/{op}", s.handleTraceOp)

	// --- History ---
	mux.HandleFunc("POST /docs/{name}/undo", s.handleUndo)
	mux.HandleFunc("POST /docs/{name}/redo", s.handleRedo)
	mux.HandleFunc("GET /docs/{name}/history", s.handleHistory)

	// --- Inspection ---
	mux.HandleFunc("GET /docs/{name}/stats", s.handleStats)

	// --- System ---
	mux.HandleFunc("POST /system/save", s.handleSave)
	mux.HandleFunc("POST /system/aof-rewrite", s.handleAOFRewrite)
	mux.HandleFunc("GET /system/tasks/{id}", s.handleGetTask)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Documents ---

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, map[string]any{"documents": s.Engine.ListDocuments()})
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := s.Engine.CreateDocument(req.Name, req.Graph); err != nil {
		s.writeEngineError(w, err)
		return
	}
	doc, err := s.Engine.Document(req.Name)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusCreated, doc.DocumentInfo)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Engine.Document(r.PathValue("name"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, doc)
}

func (s *Server) handleDropDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.DropDocument(r.PathValue("name")); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Trace operations ---

// handleTraceOp decodes the body for {op} into a Descriptor and applies it.
func (s *Server) handleTraceOp(w http.ResponseWriter, r *http.Request) {
	var desc core.Descriptor
	switch op := r.PathValue("op"); op {
	case "add":
		var req AddTracesRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		desc = core.AddOp(req.Traces, req.NewIndices)
	case "delete":
		var req DeleteTracesRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		desc = core.DeleteOp(req.Indices)
	case "move":
		var req MoveTracesRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		desc = core.MoveOp(req.CurrentIndices, req.NewIndices)
	case "extend", "prepend":
		var req StreamRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		if op == "extend" {
			desc = core.ExtendOp(req.Update, req.Indices, req.MaxPoints)
		} else {
			desc = core.PrependOp(req.Update, req.Indices, req.MaxPoints)
		}
	default:
		s.writeHTTPError(w, http.StatusNotFound, fmt.Sprintf("unknown trace operation '%s'", op), "")
		return
	}

	res, err := s.Engine.Apply(r.PathValue("name"), desc)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, res)
}

// --- History ---

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	res, err := s.Engine.Undo(r.PathValue("name"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, res)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	res, err := s.Engine.Redo(r.PathValue("name"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	info, err := s.Engine.History(r.PathValue("name"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, info)
}

// --- Inspection ---

// handleStats summarizes ?attr= (default "y") across the document's traces.
// ?pad= sets the fractional padding of the suggested axis range.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	attr := r.URL.Query().Get("attr")
	if attr == "" {
		attr = "y"
	}
	pad := 0.05
	if raw := r.URL.Query().Get("pad"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil || p < 0 {
			s.writeHTTPError(w, http.StatusBadRequest, "pad must be a non-negative number", "")
			return
		}
		pad = p
	}

	summaries, err := s.Engine.Stats(r.PathValue("name"), attr)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	resp := StatsResponse{Attr: attr, Traces: summaries}
	if lo, hi, ok := stats.Autorange(summaries, pad); ok {
		resp.Range = &[2]float64{lo, hi}
	}
	s.writeHTTPResponse(w, http.StatusOK, resp)
}

// --- System ---

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	s.runMaintenance(w, r, "save", s.Engine.SaveSnapshot, "snapshot written")
}

func (s *Server) handleAOFRewrite(w http.ResponseWriter, r *http.Request) {
	s.runMaintenance(w, r, "aof-rewrite", s.Engine.RewriteAOF, "journal rewritten")
}

// runMaintenance runs fn inline, or as a tracked task when ?async=true.
func (s *Server) runMaintenance(w http.ResponseWriter, r *http.Request, kind string, fn func() error, done string) {
	if r.URL.Query().Get("async") == "true" {
		task := s.taskManager.Run(kind, func() error {
			err := fn()
			if err != nil {
				s.logger.Error("maintenance task failed", "kind", kind, "error", err)
			}
			return err
		})
		s.writeHTTPResponse(w, http.StatusAccepted, task.View())
		return
	}

	if err := fn(); err != nil {
		s.logger.Error("maintenance failed", "kind", kind, "error", err)
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "OK", "message": done})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.taskManager.GetTask(r.PathValue("id"))
	if !ok {
		s.writeHTTPError(w, http.StatusNotFound, "task not found", "")
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, task.View())
}

// --- HTTP response helpers ---

// decodeBody reads a JSON body into v. An empty body leaves v at its zero
// value, so omitted arguments reach the engine and fail with
// MissingArgument rather than a decode error.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	if kind, ok := core.KindOf(err); ok {
		s.writeHTTPError(w, http.StatusBadRequest, err.Error(), kind.String())
		return false
	}
	s.writeHTTPError(w, http.StatusBadRequest, "invalid JSON: "+err.Error(), "")
	return false
}

// statusFor maps an engine error to its HTTP status.
func statusFor(err error) (int, string) {
	if kind, ok := core.KindOf(err); ok {
		return http.StatusBadRequest, kind.String()
	}
	switch {
	case errors.Is(err, engine.ErrDocumentNotFound):
		return http.StatusNotFound, ""
	case errors.Is(err, engine.ErrDocumentExists):
		return http.StatusConflict, ""
	case errors.Is(err, engine.ErrInvalidName):
		return http.StatusBadRequest, ""
	case errors.Is(err, history.ErrNothingToUndo), errors.Is(err, history.ErrNothingToRedo):
		return http.StatusConflict, ""
	case errors.Is(err, engine.ErrClosed):
		return http.StatusServiceUnavailable, ""
	default:
		return http.StatusInternalServerError, ""
	}
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	status, kind := statusFor(err)
	s.writeHTTPError(w, status, err.Error(), kind)
}

func (s *Server) writeHTTPResponse(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *Server) writeHTTPError(w http.ResponseWriter, statusCode int, message, kind string) {
	s.writeHTTPResponse(w, statusCode, ErrorResponse{Error: message, Kind: kind})
}
