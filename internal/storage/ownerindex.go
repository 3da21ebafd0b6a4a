package storage

import (
	"sync"

	"github.com/yndnr/tabsess-go/pkg/cmap"
)

// sessionSet is a concurrent-safe set of session IDs.
type sessionSet struct {
	mu    sync.RWMutex
	items map[string]struct{}
}

func newSessionSet() *sessionSet {
	return &sessionSet{items: make(map[string]struct{})}
}

func (s *sessionSet) add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = struct{}{}
}

func (s *sessionSet) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

func (s *sessionSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *sessionSet) ids() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	return ids
}

// OwnerIndex maps an owner ID to the set of that owner's live session
// IDs, enabling quota checks and bulk lookups without scanning the
// cache.
//
// The index is advisory: entries for sessions that expired in the
// cache are pruned lazily when the owner's sessions are next listed.
type OwnerIndex struct {
	index *cmap.Map[string, *sessionSet]
}

// NewOwnerIndex creates an empty owner index.
func NewOwnerIndex() *OwnerIndex {
	return &OwnerIndex{index: cmap.New[string, *sessionSet]()}
}

// Add records a session under its owner.
func (i *OwnerIndex) Add(ownerID, sessionID string) {
	set, _ := i.index.GetOrSet(ownerID, newSessionSet())
	set.add(sessionID)
}

// Remove drops a session from its owner's set.
func (i *OwnerIndex) Remove(ownerID, sessionID string) {
	set, ok := i.index.Get(ownerID)
	if !ok {
		return
	}
	set.remove(sessionID)
	if set.len() == 0 {
		i.index.Delete(ownerID)
	}
}

// Sessions returns all recorded session IDs for an owner.
func (i *OwnerIndex) Sessions(ownerID string) []string {
	set, ok := i.index.Get(ownerID)
	if !ok {
		return nil
	}
	return set.ids()
}

// Count returns the number of recorded sessions for an owner.
func (i *OwnerIndex) Count(ownerID string) int {
	set, ok := i.index.Get(ownerID)
	if !ok {
		return 0
	}
	return set.len()
}
