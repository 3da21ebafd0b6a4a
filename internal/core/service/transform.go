// Package service implements the TabSess application services.
//
// This file contains the transformation engine: parameter validation,
// dispatch to the pure frame operations, and the apply pipeline that
// records each successful operation in session history.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/yndnr/tabsess-go/internal/core/domain"
)

// ============================================================================
// Apply Operation
// ============================================================================

// ApplyRequest describes one transformation to apply.
type ApplyRequest struct {
	SessionID string
	OwnerID   string
	Type      string            // Operation type name
	Params    map[string]string // Operation parameters
}

// ApplyResponse describes the outcome of an applied transformation.
type ApplyResponse struct {
	Record   domain.OperationRecord
	Schema   []domain.ColumnSpec
	RowCount int
	ColCount int
	CanUndo  bool
	CanRedo  bool
}

// Apply runs one transformation against the session's current frame.
// On success the result becomes a new snapshot one position past the
// pointer; any redo tail is discarded first. Failed transformations
// leave session state untouched.
func (s *SessionService) Apply(ctx context.Context, req *ApplyRequest) (*ApplyResponse, error) {
	unlock := s.locks.acquire(req.SessionID)
	defer unlock()

	// 1. Authorize and load
	sess, err := s.authorize(ctx, req.SessionID, req.OwnerID)
	if err != nil {
		return nil, err
	}

	opType, ok := domain.ParseOpType(req.Type)
	if !ok {
		return nil, domain.ErrValidation.WithDetails("unknown operation type: " + req.Type)
	}

	frame, err := s.repo.GetSnapshot(ctx, sess.ID, sess.History.ActivePosition())
	if err != nil {
		return nil, err
	}

	// 2. Run the pure transformation
	result, rowsAffected, warnings, err := applyTransformation(frame, opType, req.Params)
	if err != nil {
		return nil, err
	}

	// 3. Write the new snapshot before mutating history, so a storage
	// failure leaves the session consistent.
	oldVersion := sess.Version
	newPos := sess.History.ActivePosition() + 1

	meta, err := s.repo.PutSnapshot(ctx, sess, newPos, result)
	if err != nil {
		return nil, err
	}

	// 4. Record the operation and bound retained history. The redo tail
	// and any evicted window base are only collected here; their
	// snapshots are deleted after the commit below. Position newPos is
	// excluded: the write above already replaced it.
	var stale []int
	for _, pos := range sess.History.ForwardPositions() {
		if pos != newPos {
			stale = append(stale, pos)
		}
	}

	record := domain.OperationRecord{
		Index:        newPos,
		Type:         opType,
		Params:       copyParams(req.Params),
		Timestamp:    time.Now().UnixMilli(),
		Success:      true,
		RowsAffected: rowsAffected,
		Warnings:     warnings,
		Snapshot:     *meta,
	}
	sess.History.Apply(record)

	if overflow := sess.History.Len() - s.cfg.MaxHistoryDepth; overflow > 0 {
		stale = append(stale, sess.History.TrimBase(overflow)...)
	}

	// 5. Persist with optimistic locking; the access slides the TTL.
	// This is the single visibility point: until the record commits, the
	// stored session still references every snapshot position it did
	// before, so a failure here leaves the history navigable. When a
	// redo tail existed, the write above has already replaced the bytes
	// at newPos, so a failed commit trades that one redo state for the
	// rejected result; the record itself never moves.
	sess.Touch()
	sess.IncrVersion()
	if err := s.repo.Update(ctx, sess, oldVersion); err != nil {
		return nil, err
	}

	// 6. Drop snapshots the committed record no longer references. A
	// cleanup failure is not an apply failure; the keys expire with the
	// session TTL.
	if len(stale) > 0 {
		if err := s.repo.DeleteSnapshots(ctx, sess.ID, stale); err != nil {
			s.logger.Warn("stale snapshot cleanup failed",
				"session_id", sess.ID,
				"positions", stale,
				"error", err,
			)
		}
	}

	s.logger.Info("transformation applied",
		"session_id", sess.ID,
		"op", string(opType),
		"rows_affected", rowsAffected,
		"warnings", warnings,
		"position", newPos,
	)

	return &ApplyResponse{
		Record:   record,
		Schema:   result.Schema(),
		RowCount: result.NumRows(),
		ColCount: result.NumCols(),
		CanUndo:  sess.History.CanUndo(),
		CanRedo:  sess.History.CanRedo(),
	}, nil
}

// ============================================================================
// Transformation Dispatch
// ============================================================================

// applyTransformation validates parameters and runs the operation
// against the frame, returning the new frame, the number of rows (or
// cells) affected, and the number of lossy-conversion warnings.
func applyTransformation(frame *domain.Frame, opType domain.OpType, params map[string]string) (*domain.Frame, int, int, error) {
	switch opType {
	case domain.OpRenameColumn:
		column, err := requireParam(params, "column")
		if err != nil {
			return nil, 0, 0, err
		}
		newName, err := requireParam(params, "new_name")
		if err != nil {
			return nil, 0, 0, err
		}
		out, err := frame.RenameColumn(column, newName)
		if err != nil {
			return nil, 0, 0, err
		}
		return out, 0, 0, nil

	case domain.OpChangeType:
		column, err := requireParam(params, "column")
		if err != nil {
			return nil, 0, 0, err
		}
		typeName, err := requireParam(params, "type")
		if err != nil {
			return nil, 0, 0, err
		}
		target, ok := domain.ParseColumnType(typeName)
		if !ok {
			return nil, 0, 0, domain.ErrValidation.WithDetails("unknown column type: " + typeName)
		}
		out, converted, warnings, err := frame.ConvertColumn(column, target)
		if err != nil {
			return nil, 0, 0, err
		}
		return out, converted, warnings, nil

	case domain.OpFillMissing:
		column, err := requireParam(params, "column")
		if err != nil {
			return nil, 0, 0, err
		}
		strategyName, err := requireParam(params, "strategy")
		if err != nil {
			return nil, 0, 0, err
		}
		strategy, ok := domain.ParseFillStrategy(strategyName)
		if !ok {
			return nil, 0, 0, domain.ErrValidation.WithDetails("unknown fill strategy: " + strategyName)
		}
		constant := params["value"]
		if strategy == domain.FillConstant && constant == "" {
			if _, present := params["value"]; !present {
				return nil, 0, 0, domain.ErrValidation.WithDetails("fill strategy constant requires a value")
			}
		}
		out, filled, err := frame.FillMissing(column, strategy, constant)
		if err != nil {
			return nil, 0, 0, err
		}
		return out, filled, 0, nil

	case domain.OpDropColumns:
		raw, err := requireParam(params, "columns")
		if err != nil {
			return nil, 0, 0, err
		}
		var names []string
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		out, err := frame.DropColumns(names)
		if err != nil {
			return nil, 0, 0, err
		}
		return out, 0, 0, nil

	case domain.OpSortRows:
		column, err := requireParam(params, "column")
		if err != nil {
			return nil, 0, 0, err
		}
		descending := false
		switch order := params["order"]; order {
		case "", "asc":
		case "desc":
			descending = true
		default:
			return nil, 0, 0, domain.ErrValidation.WithDetails("order must be asc or desc, got " + order)
		}
		out, err := frame.SortRows(column, descending)
		if err != nil {
			return nil, 0, 0, err
		}
		return out, out.NumRows(), 0, nil

	case domain.OpDropDuplicates:
		out, removed := frame.DropDuplicates()
		return out, removed, 0, nil

	default:
		return nil, 0, 0, domain.ErrValidation.WithDetails("unknown operation type: " + string(opType))
	}
}

func requireParam(params map[string]string, key string) (string, error) {
	v, ok := params[key]
	if !ok || v == "" {
		return "", domain.ErrValidation.WithDetails("missing required parameter: " + key)
	}
	return v, nil
}

func copyParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
