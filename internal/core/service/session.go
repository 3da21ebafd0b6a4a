// Package service implements the TabSess application services.
//
// SessionService handles the editing-session lifecycle.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yndnr/tabsess-go/internal/core/domain"
)

// Service defaults, applied when Config leaves a field zero.
const (
	DefaultSessionTTL      = 30 * time.Minute
	MaxSessionTTL          = 24 * time.Hour
	DefaultMaxHistoryDepth = 64
)

// SessionRepository defines the storage interface for session state.
type SessionRepository interface {
	// Create persists a new session with its initial snapshot.
	Create(ctx context.Context, sess *domain.Session, frame *domain.Frame) (*domain.SnapshotMeta, error)

	// Get retrieves a session by ID. Missing or expired sessions are
	// reported as domain.ErrSessionExpired.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Update persists a session with optimistic locking.
	Update(ctx context.Context, sess *domain.Session, expectedVersion uint64) error

	// Touch slides the session's TTL window after a read-only access.
	Touch(ctx context.Context, sess *domain.Session) error

	// Delete removes a session and its snapshots.
	Delete(ctx context.Context, sess *domain.Session) error

	// PutSnapshot stores a frame at a history position.
	PutSnapshot(ctx context.Context, sess *domain.Session, pos int, frame *domain.Frame) (*domain.SnapshotMeta, error)

	// GetSnapshot loads the frame at a history position.
	GetSnapshot(ctx context.Context, sessionID string, pos int) (*domain.Frame, error)

	// DeleteSnapshots removes snapshots at the given positions.
	DeleteSnapshots(ctx context.Context, sessionID string, positions []int) error

	// CountByOwner returns the number of live sessions for an owner.
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

// DatasetCatalog defines the catalog interface the service needs.
type DatasetCatalog interface {
	// Get retrieves a dataset record by ID.
	Get(ctx context.Context, id string) (*domain.Dataset, error)

	// Frame loads the payload of a ready dataset.
	Frame(ctx context.Context, id string) (*domain.Frame, error)

	// Commit persists a frame as a new dataset version derived from
	// the given parent.
	Commit(ctx context.Context, parentID, ownerID string, frame *domain.Frame) (*domain.Dataset, error)
}

// Config tunes the session service.
type Config struct {
	// DefaultTTL is applied when a request does not specify one.
	DefaultTTL time.Duration

	// MaxTTL caps client-requested TTLs.
	MaxTTL time.Duration

	// MaxHistoryDepth bounds retained undo history per session; older
	// entries are evicted together with their snapshots.
	MaxHistoryDepth int

	// MaxSessionsPerOwner bounds concurrent sessions per owner.
	MaxSessionsPerOwner int
}

func (c Config) withDefaults() Config {
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = DefaultSessionTTL
	}
	if c.MaxTTL <= 0 {
		c.MaxTTL = MaxSessionTTL
	}
	if c.MaxHistoryDepth <= 0 {
		c.MaxHistoryDepth = DefaultMaxHistoryDepth
	}
	if c.MaxSessionsPerOwner <= 0 {
		c.MaxSessionsPerOwner = domain.MaxSessionsPerOwner
	}
	return c
}

// SessionService handles editing-session lifecycle operations.
type SessionService struct {
	repo    SessionRepository
	catalog DatasetCatalog
	locks   *sessionLocks
	logger  *slog.Logger
	cfg     Config
}

// NewSessionService creates a session service.
func NewSessionService(repo SessionRepository, catalog DatasetCatalog, logger *slog.Logger, cfg Config) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		repo:    repo,
		catalog: catalog,
		locks:   newSessionLocks(),
		logger:  logger,
		cfg:     cfg.withDefaults(),
	}
}

// ============================================================================
// Session Initialize Operation
// ============================================================================

// InitializeRequest contains parameters for opening a session.
type InitializeRequest struct {
	OwnerID   string        // Required
	DatasetID string        // Required
	TTL       time.Duration // Optional, defaults to config value
}

// InitializeResponse describes the opened session.
type InitializeResponse struct {
	Session   *domain.Session
	Schema    []domain.ColumnSpec
	RowCount  int
	ColCount  int
	ExpiresAt int64
}

// Initialize opens an editing session on a ready dataset. The dataset
// payload becomes snapshot zero of the session's history.
func (s *SessionService) Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResponse, error) {
	// 1. Validate input
	if req.OwnerID == "" {
		return nil, domain.ErrMissingArgument.WithDetails("owner_id is required")
	}
	if len(req.OwnerID) > domain.MaxOwnerIDLength {
		return nil, domain.ErrInvalidArgument.WithDetails("owner_id exceeds 128 characters")
	}
	if req.DatasetID == "" {
		return nil, domain.ErrMissingArgument.WithDetails("dataset_id is required")
	}

	// 2. Check owner quota
	count, err := s.repo.CountByOwner(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	if count >= s.cfg.MaxSessionsPerOwner {
		return nil, domain.ErrSessionQuotaExceeded.WithDetails(
			fmt.Sprintf("owner has %d sessions (max %d)", count, s.cfg.MaxSessionsPerOwner),
		)
	}

	// 3. Load the dataset payload; this surfaces not-found and
	// still-processing states before any session exists.
	frame, err := s.catalog.Frame(ctx, req.DatasetID)
	if err != nil {
		return nil, err
	}

	// 4. Create the session entity
	sess, err := domain.NewSession(req.OwnerID, req.DatasetID)
	if err != nil {
		return nil, err
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}
	if ttl > s.cfg.MaxTTL {
		ttl = s.cfg.MaxTTL
	}
	sess.SetExpiration(ttl)

	if err := sess.Validate(); err != nil {
		return nil, err
	}

	// 5. Persist session and snapshot zero
	if _, err := s.repo.Create(ctx, sess, frame); err != nil {
		return nil, err
	}

	s.logger.Info("session initialized",
		"session_id", sess.ID,
		"owner_id", sess.OwnerID,
		"dataset_id", sess.DatasetID,
		"rows", frame.NumRows(),
		"cols", frame.NumCols(),
	)

	return &InitializeResponse{
		Session:   sess,
		Schema:    frame.Schema(),
		RowCount:  frame.NumRows(),
		ColCount:  frame.NumCols(),
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// ============================================================================
// Session Query Operations
// ============================================================================

// StatusRequest identifies a session for a status query.
type StatusRequest struct {
	SessionID string
	OwnerID   string
}

// StatusResponse describes the session's current state.
type StatusResponse struct {
	Session  *domain.Session
	Schema   []domain.ColumnSpec
	RowCount int
	ColCount int
	CanUndo  bool
	CanRedo  bool
}

// Status reports the session's current frame shape and history state.
// The access slides the session's TTL window.
func (s *SessionService) Status(ctx context.Context, req *StatusRequest) (*StatusResponse, error) {
	unlock := s.locks.acquire(req.SessionID)
	defer unlock()

	sess, err := s.authorize(ctx, req.SessionID, req.OwnerID)
	if err != nil {
		return nil, err
	}

	frame, err := s.repo.GetSnapshot(ctx, sess.ID, sess.History.ActivePosition())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Touch(ctx, sess); err != nil {
		return nil, err
	}

	return &StatusResponse{
		Session:  sess,
		Schema:   frame.Schema(),
		RowCount: frame.NumRows(),
		ColCount: frame.NumCols(),
		CanUndo:  sess.History.CanUndo(),
		CanRedo:  sess.History.CanRedo(),
	}, nil
}

// HistoryRequest identifies a session for a history listing.
type HistoryRequest struct {
	SessionID string
	OwnerID   string
}

// HistoryResponse lists the retained operation history.
type HistoryResponse struct {
	Entries  []domain.OperationRecord
	Pointer  int
	Position int
	CanUndo  bool
	CanRedo  bool
}

// History returns the session's retained operation log in application
// order, together with the pointer into it.
func (s *SessionService) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	unlock := s.locks.acquire(req.SessionID)
	defer unlock()

	sess, err := s.authorize(ctx, req.SessionID, req.OwnerID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Touch(ctx, sess); err != nil {
		return nil, err
	}

	h := sess.History.Clone()
	return &HistoryResponse{
		Entries:  h.Entries,
		Pointer:  h.Pointer,
		Position: h.ActivePosition(),
		CanUndo:  h.CanUndo(),
		CanRedo:  h.CanRedo(),
	}, nil
}

// authorize loads a session and verifies the caller owns it. A
// session owned by someone else is reported as not found so the
// response does not confirm the ID exists.
func (s *SessionService) authorize(ctx context.Context, sessionID, ownerID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, domain.ErrMissingArgument.WithDetails("session_id is required")
	}
	if ownerID == "" {
		return nil, domain.ErrMissingArgument.WithDetails("owner_id is required")
	}

	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.OwnerID != ownerID {
		return nil, domain.ErrSessionNotFound.WithDetails("session " + sessionID)
	}
	return sess, nil
}
