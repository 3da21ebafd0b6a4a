// Package domain defines the core domain models for TabSess.
package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Session constraints.
const (
	MaxOwnerIDLength    = 128
	MaxSessionsPerOwner = 20

	// SessionIDPrefix is the prefix for session IDs.
	SessionIDPrefix = "tses-"
)

// Session is the metadata record for an editing session. The dataset
// snapshots themselves live in the cache under snapshot keys; the session
// holds only the history and the active pointer.
type Session struct {
	// ID is the unique identifier for the session.
	// Format: tses-{ulid_lowercase}, 31 characters total.
	ID string `json:"id"`

	// OwnerID identifies the user who owns this session. Only the owner
	// may see or mutate the session.
	OwnerID string `json:"owner_id"`

	// DatasetID references the source dataset the session was opened on.
	DatasetID string `json:"dataset_id"`

	// CreatedAt is the session creation timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`

	// LastActive is the last access timestamp (Unix milliseconds).
	LastActive int64 `json:"last_active"`

	// ExpiresAt is the sliding expiration timestamp (Unix milliseconds).
	ExpiresAt int64 `json:"expires_at"`

	// TTL is the sliding TTL in milliseconds, refreshed on every access.
	TTL int64 `json:"ttl"`

	// History is the linear undo/redo state machine.
	History History `json:"history"`

	// Version is the optimistic lock version number.
	Version uint64 `json:"version"`
}

// NewSession creates a new Session with a generated ID.
func NewSession(ownerID, datasetID string) (*Session, error) {
	id, err := GenerateSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	return &Session{
		ID:         id,
		OwnerID:    ownerID,
		DatasetID:  datasetID,
		CreatedAt:  now,
		LastActive: now,
		Version:    1,
	}, nil
}

// GenerateSessionID generates a new session ID using ULID.
// Format: tses-{ulid_lowercase}, 31 characters total.
func GenerateSessionID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return SessionIDPrefix + strings.ToLower(id.String()), nil
}

// IsValidSessionID checks if a string is a valid session ID format.
func IsValidSessionID(id string) bool {
	id = strings.ToLower(id)
	if !strings.HasPrefix(id, SessionIDPrefix) {
		return false
	}
	// tses- (5) + ULID (26) = 31 characters
	if len(id) != 31 {
		return false
	}
	_, err := ulid.Parse(strings.ToUpper(id[len(SessionIDPrefix):]))
	return err == nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return time.Now().UnixMilli() > s.ExpiresAt
}

// TTLDuration returns the remaining time-to-live as a duration.
// Returns 0 if expired or no expiration is set.
func (s *Session) TTLDuration() time.Duration {
	if s.ExpiresAt == 0 {
		return 0
	}
	remaining := s.ExpiresAt - time.Now().UnixMilli()
	if remaining < 0 {
		return 0
	}
	return time.Duration(remaining) * time.Millisecond
}

// SetExpiration sets the expiration time from a TTL duration.
func (s *Session) SetExpiration(ttl time.Duration) {
	s.ExpiresAt = time.Now().Add(ttl).UnixMilli()
	s.TTL = ttl.Milliseconds()
}

// Touch refreshes LastActive and slides the expiration window forward.
func (s *Session) Touch() {
	s.LastActive = time.Now().UnixMilli()
	if s.TTL > 0 {
		s.ExpiresAt = s.LastActive + s.TTL
	}
}

// IncrVersion increments the version number for optimistic locking.
func (s *Session) IncrVersion() {
	s.Version++
}

// Clone creates a deep copy of the session.
func (s *Session) Clone() *Session {
	clone := *s
	clone.History = *s.History.Clone()
	return &clone
}

// Validate validates the session fields against constraints.
func (s *Session) Validate() error {
	var violations []string

	if s.OwnerID == "" {
		violations = append(violations, "owner_id is required")
	}
	if len(s.OwnerID) > MaxOwnerIDLength {
		violations = append(violations, "owner_id exceeds 128 characters")
	}
	if s.DatasetID == "" {
		violations = append(violations, "dataset_id is required")
	}
	if s.History.Pointer < 0 || s.History.Pointer > len(s.History.Entries) {
		violations = append(violations, "history pointer out of range")
	}

	if len(violations) > 0 {
		return ErrSessionValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// CreatedAtTime returns CreatedAt as time.Time.
func (s *Session) CreatedAtTime() time.Time {
	return time.UnixMilli(s.CreatedAt)
}

// LastActiveTime returns LastActive as time.Time.
func (s *Session) LastActiveTime() time.Time {
	return time.UnixMilli(s.LastActive)
}
