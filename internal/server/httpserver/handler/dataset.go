// Package handler provides HTTP request handlers for TabSess.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yndnr/tabsess-go/internal/core/domain"
)

// handleRegisterDataset handles POST /datasets.
//
// The uploaded columns become the dataset's payload and the dataset is
// immediately ready for sessions.
func (h *Handler) handleRegisterDataset(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	var req RegisterDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "TS-SYS-4000", "invalid request body", nil)
		return
	}
	if req.Name == "" {
		h.writeError(w, r, http.StatusBadRequest, "TS-ARG-1002", "name is required", nil)
		return
	}

	frame, err := frameFromPayload(req.Columns)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	id, err := domain.GenerateDatasetID()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	ds := &domain.Dataset{
		ID:        id,
		Name:      req.Name,
		OwnerID:   owner,
		CreatedAt: time.Now().UnixMilli(),
	}

	if err := h.catalog.Register(r.Context(), ds, frame); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("dataset registered",
		"dataset_id", ds.ID,
		"owner_id", owner,
		"rows", ds.RowCount,
		"cols", ds.ColCount,
	)
	h.writeJSON(w, r, http.StatusCreated, datasetToResponse(ds))
}

// handleGetDataset handles GET /datasets/{id}.
func (h *Handler) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.ownerID(w, r); !ok {
		return
	}

	ds, err := h.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, datasetToResponse(ds))
}

// frameFromPayload builds a typed frame from uploaded columns. Every
// cell must parse as its column's declared type; null cells stay null.
func frameFromPayload(cols []ColumnPayload) (*domain.Frame, error) {
	if len(cols) == 0 {
		return nil, domain.ErrValidation.WithDetails("at least one column is required")
	}

	frame := &domain.Frame{Columns: make([]domain.Column, len(cols))}
	for i, col := range cols {
		typ, ok := domain.ParseColumnType(col.Type)
		if !ok {
			return nil, domain.ErrValidation.WithDetails(
				fmt.Sprintf("column %q has unknown type %q", col.Name, col.Type),
			)
		}

		values := make([]domain.Value, len(col.Values))
		for j, raw := range col.Values {
			if raw == nil {
				values[j] = domain.NullValue(typ)
				continue
			}
			v, err := domain.DecodeValue(typ, *raw)
			if err != nil {
				return nil, domain.ErrValidation.WithDetails(
					fmt.Sprintf("column %q row %d: %v", col.Name, j, err),
				).WithCause(err)
			}
			values[j] = v
		}

		frame.Columns[i] = domain.Column{Name: col.Name, Type: typ, Values: values}
	}

	if err := frame.Validate(); err != nil {
		return nil, err
	}
	return frame, nil
}
