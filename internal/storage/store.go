package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/yndnr/tabsess-go/internal/core/domain"
	"github.com/yndnr/tabsess-go/internal/storage/snapshot"
)

// Cache key prefixes. Session records and snapshots share the
// session's sliding TTL so they expire together.
const (
	sessionKeyPrefix  = "sess:"
	snapshotKeyPrefix = "snap:"
)

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func snapshotKey(sessionID string, pos int) string {
	return snapshotKeyPrefix + sessionID + ":" + strconv.Itoa(pos)
}

// SessionStore persists session records and frame snapshots in a TTL
// cache. A session record lives under "sess:{id}"; each snapshot of
// its history lives under "snap:{id}:{position}".
//
// The store does not serialize concurrent writers; callers hold a
// per-session lock and pass the version they read so lost updates
// surface as domain.ErrSessionVersionConflict.
type SessionStore struct {
	cache  CacheClient
	codec  *snapshot.Codec
	owners *OwnerIndex
	logger *slog.Logger
}

// NewSessionStore creates a session store on top of a cache backend.
func NewSessionStore(cache CacheClient, codec *snapshot.Codec, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		cache:  cache,
		codec:  codec,
		owners: NewOwnerIndex(),
		logger: logger,
	}
}

// Create persists a new session together with its initial snapshot at
// the session's active position.
func (s *SessionStore) Create(ctx context.Context, sess *domain.Session, frame *domain.Frame) (*domain.SnapshotMeta, error) {
	meta, err := s.PutSnapshot(ctx, sess, sess.History.ActivePosition(), frame)
	if err != nil {
		return nil, err
	}
	if err := s.putRecord(ctx, sess); err != nil {
		// Best-effort rollback of the orphaned snapshot.
		if derr := s.cache.Delete(ctx, snapshotKey(sess.ID, sess.History.ActivePosition())); derr != nil {
			s.logger.Warn("failed to clean up orphaned snapshot",
				"session_id", sess.ID, "error", derr)
		}
		return nil, err
	}
	s.owners.Add(sess.OwnerID, sess.ID)
	return meta, nil
}

// Get loads a session record. A missing or expired record is reported
// as domain.ErrSessionExpired; the caller cannot tell the difference
// and should not be able to.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	raw, err := s.cache.Get(ctx, sessionKey(sessionID))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, domain.ErrSessionExpired.WithDetails("session " + sessionID)
	}
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, domain.ErrStorageError.WithDetails("session record is not valid JSON").WithCause(err)
	}
	if sess.IsExpired() {
		// The record outlived its logical deadline (clock skew between
		// cache TTL and session expiry); treat it as gone.
		if derr := s.Delete(ctx, &sess); derr != nil {
			s.logger.Warn("failed to evict logically expired session",
				"session_id", sess.ID, "error", derr)
		}
		return nil, domain.ErrSessionExpired.WithDetails("session " + sessionID)
	}
	return &sess, nil
}

// Update persists a modified session, enforcing optimistic locking
// against the version the caller read. The caller bumps the session's
// version before calling.
func (s *SessionStore) Update(ctx context.Context, sess *domain.Session, expectedVersion uint64) error {
	current, err := s.Get(ctx, sess.ID)
	if err != nil {
		return err
	}
	if current.Version != expectedVersion {
		return domain.ErrSessionVersionConflict.WithDetails(
			fmt.Sprintf("expected version %d, found %d", expectedVersion, current.Version))
	}

	if err := s.putRecord(ctx, sess); err != nil {
		return err
	}
	return s.slideSnapshots(ctx, sess)
}

// Touch slides the session's TTL window after a read-only access and
// persists the refreshed deadlines.
func (s *SessionStore) Touch(ctx context.Context, sess *domain.Session) error {
	sess.Touch()
	if err := s.putRecord(ctx, sess); err != nil {
		return err
	}
	return s.slideSnapshots(ctx, sess)
}

// Delete removes a session and all of its snapshots. Deleting an
// already-gone session is not an error.
func (s *SessionStore) Delete(ctx context.Context, sess *domain.Session) error {
	for _, pos := range retainedPositions(&sess.History) {
		if err := s.cache.Delete(ctx, snapshotKey(sess.ID, pos)); err != nil {
			return domain.ErrStorageError.WithCause(err)
		}
	}
	if err := s.cache.Delete(ctx, sessionKey(sess.ID)); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	s.owners.Remove(sess.OwnerID, sess.ID)
	return nil
}

// PutSnapshot encodes and stores a frame at a history position,
// bound to the session's TTL.
func (s *SessionStore) PutSnapshot(ctx context.Context, sess *domain.Session, pos int, frame *domain.Frame) (*domain.SnapshotMeta, error) {
	encoded, meta, err := s.codec.Encode(frame)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, snapshotKey(sess.ID, pos), encoded, sess.TTLDuration()); err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return meta, nil
}

// GetSnapshot loads and decodes the frame at a history position.
// A missing snapshot for a live session means its TTL raced the
// session record's; both present to the caller as expiry.
func (s *SessionStore) GetSnapshot(ctx context.Context, sessionID string, pos int) (*domain.Frame, error) {
	raw, err := s.cache.Get(ctx, snapshotKey(sessionID, pos))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, domain.ErrSessionExpired.WithDetails(
			fmt.Sprintf("snapshot %d of session %s", pos, sessionID))
	}
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return s.codec.Decode(raw)
}

// DeleteSnapshots removes the snapshots at the given history
// positions, tolerating ones already gone.
func (s *SessionStore) DeleteSnapshots(ctx context.Context, sessionID string, positions []int) error {
	for _, pos := range positions {
		if err := s.cache.Delete(ctx, snapshotKey(sessionID, pos)); err != nil {
			return domain.ErrStorageError.WithCause(err)
		}
	}
	return nil
}

// CountByOwner returns the number of live sessions indexed for an
// owner, pruning entries whose records have expired.
func (s *SessionStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	count := 0
	for _, id := range s.owners.Sessions(ownerID) {
		ok, err := s.cache.Has(ctx, sessionKey(id))
		if err != nil {
			return 0, domain.ErrStorageError.WithCause(err)
		}
		if !ok {
			s.owners.Remove(ownerID, id)
			continue
		}
		count++
	}
	return count, nil
}

// Stats exposes the underlying cache statistics.
func (s *SessionStore) Stats(ctx context.Context) (CacheStats, error) {
	return s.cache.Stats(ctx)
}

func (s *SessionStore) putRecord(ctx context.Context, sess *domain.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return domain.ErrStorageError.WithDetails("marshal session record").WithCause(err)
	}
	if err := s.cache.Set(ctx, sessionKey(sess.ID), raw, sess.TTLDuration()); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// slideSnapshots refreshes the TTL of every retained snapshot so they
// stay alive as long as the record. A snapshot the cache already
// reclaimed is skipped; the session fails later only if that position
// is actually revisited.
func (s *SessionStore) slideSnapshots(ctx context.Context, sess *domain.Session) error {
	ttl := sess.TTLDuration()
	for _, pos := range retainedPositions(&sess.History) {
		err := s.cache.Expire(ctx, snapshotKey(sess.ID, pos), ttl)
		if err != nil && !errors.Is(err, ErrKeyNotFound) {
			return domain.ErrStorageError.WithCause(err)
		}
	}
	return nil
}

// retainedPositions lists every history position that has a snapshot:
// the base position plus one per recorded operation.
func retainedPositions(h *domain.History) []int {
	positions := make([]int, 0, h.Len()+1)
	for p := h.Base; p <= h.Base+h.Len(); p++ {
		positions = append(positions, p)
	}
	return positions
}
