// Package handler provides HTTP request handlers for TabSess.
package handler

import (
	"time"

	"github.com/yndnr/tabsess-go/internal/core/domain"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"` // Additional error details
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// CreateSessionRequest is the request body for POST /sessions.
type CreateSessionRequest struct {
	DatasetID  string `json:"dataset_id"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
}

// CreateSessionResponse is the response body for POST /sessions.
type CreateSessionResponse struct {
	SessionID string              `json:"session_id"`
	DatasetID string              `json:"dataset_id"`
	Schema    []domain.ColumnSpec `json:"schema"`
	RowCount  int                 `json:"row_count"`
	ColCount  int                 `json:"col_count"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// SessionStateResponse describes a session's current frame shape and
// history cursor. It is the body for GET /sessions/{id} and the shared
// tail of every mutating response.
type SessionStateResponse struct {
	SessionID  string              `json:"session_id"`
	DatasetID  string              `json:"dataset_id"`
	Schema     []domain.ColumnSpec `json:"schema"`
	RowCount   int                 `json:"row_count"`
	ColCount   int                 `json:"col_count"`
	Position   int                 `json:"position"`
	CanUndo    bool                `json:"can_undo"`
	CanRedo    bool                `json:"can_redo"`
	ExpiresAt  time.Time           `json:"expires_at"`
	LastActive time.Time           `json:"last_active"`
}

// ApplyOperationRequest is the request body for POST /sessions/{id}/operations.
type ApplyOperationRequest struct {
	Type   string            `json:"type"`
	Params map[string]string `json:"params,omitempty"`
}

// ApplyOperationResponse is the response body for POST /sessions/{id}/operations.
type ApplyOperationResponse struct {
	Operation OperationRecordResponse `json:"operation"`
	Schema    []domain.ColumnSpec     `json:"schema"`
	RowCount  int                     `json:"row_count"`
	ColCount  int                     `json:"col_count"`
	CanUndo   bool                    `json:"can_undo"`
	CanRedo   bool                    `json:"can_redo"`
}

// OperationRecordResponse represents one history entry in API responses.
type OperationRecordResponse struct {
	Index        int               `json:"index"`
	Type         string            `json:"type"`
	Params       map[string]string `json:"params,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
	RowsAffected int               `json:"rows_affected"`
	Warnings     int               `json:"warnings"`
}

// SeekRequest is the request body for POST /sessions/{id}/undo and /redo.
type SeekRequest struct {
	Steps int `json:"steps,omitempty"`
}

// SeekResponse is the response body for POST /sessions/{id}/undo and /redo.
type SeekResponse struct {
	Position int                 `json:"position"`
	Stepped  int                 `json:"stepped"`
	Schema   []domain.ColumnSpec `json:"schema"`
	RowCount int                 `json:"row_count"`
	ColCount int                 `json:"col_count"`
	CanUndo  bool                `json:"can_undo"`
	CanRedo  bool                `json:"can_redo"`
}

// HistoryListResponse is the response body for GET /sessions/{id}/history.
type HistoryListResponse struct {
	Entries  []OperationRecordResponse `json:"entries"`
	Pointer  int                       `json:"pointer"`
	Position int                       `json:"position"`
	CanUndo  bool                      `json:"can_undo"`
	CanRedo  bool                      `json:"can_redo"`
}

// CloseSessionRequest is the request body for POST /sessions/{id}/close.
type CloseSessionRequest struct {
	// Persist saves the session's current frame as a new dataset
	// version before the session is torn down.
	Persist bool `json:"persist,omitempty"`
}

// CloseSessionResponse is the response body for POST /sessions/{id}/close.
type CloseSessionResponse struct {
	Closed       bool   `json:"closed"`
	NewDatasetID string `json:"new_dataset_id,omitempty"`
}

// ColumnPayload is one column of an uploaded dataset. Values are the
// canonical string forms for the declared type; null cells are JSON null.
type ColumnPayload struct {
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	Values []*string `json:"values"`
}

// RegisterDatasetRequest is the request body for POST /datasets.
type RegisterDatasetRequest struct {
	Name    string          `json:"name"`
	Columns []ColumnPayload `json:"columns"`
}

// DatasetResponse represents a dataset record in API responses.
type DatasetResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	State     string    `json:"state"`
	ParentID  string    `json:"parent_id,omitempty"`
	RowCount  int       `json:"row_count"`
	ColCount  int       `json:"col_count"`
	CreatedAt time.Time `json:"created_at"`
}

// recordToResponse converts a domain.OperationRecord to its API form.
func recordToResponse(rec domain.OperationRecord) OperationRecordResponse {
	return OperationRecordResponse{
		Index:        rec.Index,
		Type:         string(rec.Type),
		Params:       rec.Params,
		Timestamp:    time.UnixMilli(rec.Timestamp),
		RowsAffected: rec.RowsAffected,
		Warnings:     rec.Warnings,
	}
}

// datasetToResponse converts a domain.Dataset to its API form.
func datasetToResponse(ds *domain.Dataset) DatasetResponse {
	return DatasetResponse{
		ID:        ds.ID,
		Name:      ds.Name,
		OwnerID:   ds.OwnerID,
		State:     string(ds.State),
		ParentID:  ds.ParentID,
		RowCount:  ds.RowCount,
		ColCount:  ds.ColCount,
		CreatedAt: time.UnixMilli(ds.CreatedAt),
	}
}
