// Package service implements the TabSess application services.
//
// This file contains history navigation (Undo, Redo) and session
// teardown (Close with optional commit).
package service

import (
	"context"
	"errors"

	"github.com/yndnr/tabsess-go/internal/core/domain"
)

// ============================================================================
// Undo / Redo Operations
// ============================================================================

// UndoRequest asks to move the history pointer backwards.
type UndoRequest struct {
	SessionID string
	OwnerID   string
	Steps     int // Optional, defaults to 1
}

// RedoRequest asks to move the history pointer forwards.
type RedoRequest struct {
	SessionID string
	OwnerID   string
	Steps     int // Optional, defaults to 1
}

// SeekResponse describes the frame state after an undo or redo.
type SeekResponse struct {
	Position int
	Stepped  int
	Schema   []domain.ColumnSpec
	RowCount int
	ColCount int
	CanUndo  bool
	CanRedo  bool
}

// Undo moves the pointer back up to Steps positions. The first step
// must be possible or the call fails with ErrNothingToUndo; further
// steps stop silently at the retention boundary.
func (s *SessionService) Undo(ctx context.Context, req *UndoRequest) (*SeekResponse, error) {
	return s.seek(ctx, req.SessionID, req.OwnerID, req.Steps, false)
}

// Redo moves the pointer forward up to Steps positions. The first step
// must be possible or the call fails with ErrNothingToRedo.
func (s *SessionService) Redo(ctx context.Context, req *RedoRequest) (*SeekResponse, error) {
	return s.seek(ctx, req.SessionID, req.OwnerID, req.Steps, true)
}

func (s *SessionService) seek(ctx context.Context, sessionID, ownerID string, steps int, forward bool) (*SeekResponse, error) {
	if steps == 0 {
		steps = 1
	}
	if steps < 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("steps must be positive")
	}

	unlock := s.locks.acquire(sessionID)
	defer unlock()

	sess, err := s.authorize(ctx, sessionID, ownerID)
	if err != nil {
		return nil, err
	}

	// 1. Move the pointer. Only the first step is mandatory; a larger
	// request clamps at the history boundary.
	oldVersion := sess.Version
	stepped := 0
	for i := 0; i < steps; i++ {
		var stepErr error
		if forward {
			stepErr = sess.History.Redo()
		} else {
			stepErr = sess.History.Undo()
		}
		if stepErr != nil {
			if stepped == 0 {
				return nil, stepErr
			}
			break
		}
		stepped++
	}

	// 2. The snapshot at the new position must decode; a corrupted or
	// vanished snapshot fails the call before history is persisted.
	frame, err := s.repo.GetSnapshot(ctx, sess.ID, sess.History.ActivePosition())
	if err != nil {
		return nil, err
	}

	// 3. Persist the moved pointer
	sess.Touch()
	sess.IncrVersion()
	if err := s.repo.Update(ctx, sess, oldVersion); err != nil {
		return nil, err
	}

	op := "undo"
	if forward {
		op = "redo"
	}
	s.logger.Info("history seek",
		"session_id", sess.ID,
		"op", op,
		"steps", stepped,
		"position", sess.History.ActivePosition(),
	)

	return &SeekResponse{
		Position: sess.History.ActivePosition(),
		Stepped:  stepped,
		Schema:   frame.Schema(),
		RowCount: frame.NumRows(),
		ColCount: frame.NumCols(),
		CanUndo:  sess.History.CanUndo(),
		CanRedo:  sess.History.CanRedo(),
	}, nil
}

// ============================================================================
// Close Operation
// ============================================================================

// CloseRequest asks to terminate a session.
type CloseRequest struct {
	SessionID string
	OwnerID   string

	// Commit persists the session's current frame as a new dataset
	// version derived from the session's source dataset.
	Commit bool
}

// CloseResponse describes the teardown outcome.
type CloseResponse struct {
	Closed bool

	// Committed is the new dataset version, set only when the request
	// asked for a commit and the session still existed.
	Committed *domain.Dataset
}

// Close terminates a session and releases its snapshots. Closing a
// session that already expired or never existed succeeds: the caller
// wants it gone and it is. A commit, however, requires live state.
func (s *SessionService) Close(ctx context.Context, req *CloseRequest) (*CloseResponse, error) {
	unlock := s.locks.acquire(req.SessionID)
	deleted := false
	defer func() {
		unlock()
		if deleted {
			s.locks.forget(req.SessionID)
		}
	}()

	sess, err := s.authorize(ctx, req.SessionID, req.OwnerID)
	if err != nil {
		// Idempotent teardown: a vanished session is already closed.
		// A commit against it cannot succeed and keeps the error.
		if errors.Is(err, domain.ErrSessionExpired) && !req.Commit {
			return &CloseResponse{Closed: true}, nil
		}
		return nil, err
	}

	resp := &CloseResponse{Closed: true}

	if req.Commit {
		frame, err := s.repo.GetSnapshot(ctx, sess.ID, sess.History.ActivePosition())
		if err != nil {
			return nil, err
		}
		committed, err := s.catalog.Commit(ctx, sess.DatasetID, sess.OwnerID, frame)
		if err != nil {
			return nil, err
		}
		resp.Committed = committed
	}

	if err := s.repo.Delete(ctx, sess); err != nil {
		return nil, err
	}
	deleted = true

	s.logger.Info("session closed",
		"session_id", sess.ID,
		"owner_id", sess.OwnerID,
		"committed", resp.Committed != nil,
	)
	return resp, nil
}
