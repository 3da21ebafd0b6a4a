// Package handler provides HTTP request handlers for TabSess.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yndnr/tabsess-go/internal/core/domain"
	"github.com/yndnr/tabsess-go/internal/core/service"
	"github.com/yndnr/tabsess-go/internal/storage/catalog"
	"github.com/yndnr/tabsess-go/internal/telemetry/metric"
)

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	sessions *service.SessionService
	catalog  *catalog.Catalog
	metrics  *metric.Metrics
	logger   *slog.Logger
	mux      *http.ServeMux
}

// New creates a new Handler. metrics may be nil, in which case no
// instruments are updated.
func New(sessions *service.SessionService, cat *catalog.Catalog, metrics *metric.Metrics, logger *slog.Logger) *Handler {
	h := &Handler{
		sessions: sessions,
		catalog:  cat,
		metrics:  metrics,
		logger:   logger,
		mux:      http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	// Health endpoints
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	// Dataset endpoints
	h.mux.HandleFunc("POST /datasets", h.handleRegisterDataset)
	h.mux.HandleFunc("GET /datasets/{id}", h.handleGetDataset)

	// Session endpoints
	h.mux.HandleFunc("POST /sessions", h.handleCreateSession)
	h.mux.HandleFunc("GET /sessions/{id}", h.handleGetSession)
	h.mux.HandleFunc("GET /sessions/{id}/history", h.handleHistory)
	h.mux.HandleFunc("POST /sessions/{id}/operations", h.handleApplyOperation)
	h.mux.HandleFunc("POST /sessions/{id}/undo", h.handleUndo)
	h.mux.HandleFunc("POST /sessions/{id}/redo", h.handleRedo)
	h.mux.HandleFunc("POST /sessions/{id}/close", h.handleCloseSession)
}

// ownerID extracts the caller identity from the X-User-ID header.
// An empty value is rejected before any service call is made.
func (h *Handler) ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if owner == "" {
		h.writeError(w, r, http.StatusBadRequest, "TS-ARG-1002", "X-User-ID header is required", nil)
		return "", false
	}
	return owner, true
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := getRequestID(r)
	response := NewErrorResponse(requestID, code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// getRequestID extracts request ID from the header set by middleware.
func getRequestID(r *http.Request) string {
	return r.Header.Get("X-Request-ID")
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	// Expired sessions surface here from every session operation, so
	// this is the one place the counter sees them all.
	if h.metrics != nil && errors.Is(err, domain.ErrSessionExpired) {
		h.metrics.SessionsExpired.Inc()
	}

	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		status := errorCodeToHTTPStatus(code)
		if status >= 500 {
			h.logger.Error("request failed", "code", code, "error", err)
		}
		h.writeError(w, r, status, code, err.Error(), nil)
		return
	}

	// Generic internal error
	h.logger.Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, "TS-SYS-5000", "internal server error", nil)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"), strings.HasSuffix(code, "-4041"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"), strings.HasSuffix(code, "-4091"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4220"):
		return http.StatusUnprocessableEntity
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4001"), strings.HasSuffix(code, "-4002"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "TS-ARG-"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "TS-SYS-5"), strings.HasPrefix(code, "TS-SNAP-5"):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
