// Package handler provides HTTP request handlers for TabSess.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/yndnr/tabsess-go/internal/core/service"
)

// handleCreateSession handles POST /sessions.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "TS-SYS-4000", "invalid request body", nil)
		return
	}

	svcReq := &service.InitializeRequest{
		OwnerID:   owner,
		DatasetID: req.DatasetID,
	}
	if req.TTLSeconds > 0 {
		svcReq.TTL = time.Duration(req.TTLSeconds) * time.Second
	}

	resp, err := h.sessions.Initialize(r.Context(), svcReq)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.SessionsOpened.Inc()
		h.metrics.SessionsActive.Inc()
	}

	h.writeJSON(w, r, http.StatusCreated, CreateSessionResponse{
		SessionID: resp.Session.ID,
		DatasetID: resp.Session.DatasetID,
		Schema:    resp.Schema,
		RowCount:  resp.RowCount,
		ColCount:  resp.ColCount,
		ExpiresAt: time.UnixMilli(resp.ExpiresAt),
	})
}

// handleGetSession handles GET /sessions/{id}.
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	resp, err := h.sessions.Status(r.Context(), &service.StatusRequest{
		SessionID: r.PathValue("id"),
		OwnerID:   owner,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	sess := resp.Session
	h.writeJSON(w, r, http.StatusOK, SessionStateResponse{
		SessionID:  sess.ID,
		DatasetID:  sess.DatasetID,
		Schema:     resp.Schema,
		RowCount:   resp.RowCount,
		ColCount:   resp.ColCount,
		Position:   sess.History.ActivePosition(),
		CanUndo:    resp.CanUndo,
		CanRedo:    resp.CanRedo,
		ExpiresAt:  time.UnixMilli(sess.ExpiresAt),
		LastActive: time.UnixMilli(sess.LastActive),
	})
}

// handleHistory handles GET /sessions/{id}/history.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	resp, err := h.sessions.History(r.Context(), &service.HistoryRequest{
		SessionID: r.PathValue("id"),
		OwnerID:   owner,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	entries := make([]OperationRecordResponse, len(resp.Entries))
	for i, rec := range resp.Entries {
		entries[i] = recordToResponse(rec)
	}

	h.writeJSON(w, r, http.StatusOK, HistoryListResponse{
		Entries:  entries,
		Pointer:  resp.Pointer,
		Position: resp.Position,
		CanUndo:  resp.CanUndo,
		CanRedo:  resp.CanRedo,
	})
}

// handleApplyOperation handles POST /sessions/{id}/operations.
func (h *Handler) handleApplyOperation(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	var req ApplyOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "TS-SYS-4000", "invalid request body", nil)
		return
	}
	if req.Type == "" {
		h.writeError(w, r, http.StatusBadRequest, "TS-ARG-1002", "operation type is required", nil)
		return
	}

	resp, err := h.sessions.Apply(r.Context(), &service.ApplyRequest{
		SessionID: r.PathValue("id"),
		OwnerID:   owner,
		Type:      req.Type,
		Params:    req.Params,
	})
	if err != nil {
		if h.metrics != nil {
			h.metrics.OperationsTotal.WithLabelValues(req.Type, "error").Inc()
		}
		h.handleServiceError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.OperationsTotal.WithLabelValues(req.Type, "ok").Inc()
		h.metrics.SnapshotBytes.Observe(float64(resp.Record.Snapshot.ByteSize))
	}

	h.writeJSON(w, r, http.StatusOK, ApplyOperationResponse{
		Operation: recordToResponse(resp.Record),
		Schema:    resp.Schema,
		RowCount:  resp.RowCount,
		ColCount:  resp.ColCount,
		CanUndo:   resp.CanUndo,
		CanRedo:   resp.CanRedo,
	})
}

// handleUndo handles POST /sessions/{id}/undo.
func (h *Handler) handleUndo(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	steps, ok := h.decodeSteps(w, r)
	if !ok {
		return
	}

	resp, err := h.sessions.Undo(r.Context(), &service.UndoRequest{
		SessionID: r.PathValue("id"),
		OwnerID:   owner,
		Steps:     steps,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.HistorySeeks.WithLabelValues("undo").Inc()
	}
	h.writeJSON(w, r, http.StatusOK, seekToResponse(resp))
}

// handleRedo handles POST /sessions/{id}/redo.
func (h *Handler) handleRedo(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	steps, ok := h.decodeSteps(w, r)
	if !ok {
		return
	}

	resp, err := h.sessions.Redo(r.Context(), &service.RedoRequest{
		SessionID: r.PathValue("id"),
		OwnerID:   owner,
		Steps:     steps,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.HistorySeeks.WithLabelValues("redo").Inc()
	}
	h.writeJSON(w, r, http.StatusOK, seekToResponse(resp))
}

// handleCloseSession handles POST /sessions/{id}/close.
func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	// Close without a body means close without persisting.
	var req CloseSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, r, http.StatusBadRequest, "TS-SYS-4000", "invalid request body", nil)
			return
		}
	}

	resp, err := h.sessions.Close(r.Context(), &service.CloseRequest{
		SessionID: r.PathValue("id"),
		OwnerID:   owner,
		Commit:    req.Persist,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.SessionsClosed.Inc()
		h.metrics.SessionsActive.Dec()
	}

	out := CloseSessionResponse{Closed: resp.Closed}
	if resp.Committed != nil {
		out.NewDatasetID = resp.Committed.ID
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

// decodeSteps parses the optional seek body. When the body is
// malformed it writes the error response and reports false.
func (h *Handler) decodeSteps(w http.ResponseWriter, r *http.Request) (int, bool) {
	if r.ContentLength <= 0 {
		return 0, true
	}
	var req SeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "TS-SYS-4000", "invalid request body", nil)
		return 0, false
	}
	return req.Steps, true
}

// seekToResponse converts a service seek result to its API form.
func seekToResponse(resp *service.SeekResponse) SeekResponse {
	return SeekResponse{
		Position: resp.Position,
		Stepped:  resp.Stepped,
		Schema:   resp.Schema,
		RowCount: resp.RowCount,
		ColCount: resp.ColCount,
		CanUndo:  resp.CanUndo,
		CanRedo:  resp.CanRedo,
	}
}
