package service

import (
	"sync"

	"github.com/yndnr/tabsess-go/pkg/cmap"
)

// sessionLocks hands out one mutex per session ID so operations on the
// same session serialize while different sessions proceed in parallel.
type sessionLocks struct {
	locks *cmap.Map[string, *sync.Mutex]
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: cmap.New[string, *sync.Mutex]()}
}

// acquire locks the session's mutex and returns the unlock function.
func (l *sessionLocks) acquire(sessionID string) func() {
	mu, _ := l.locks.GetOrSet(sessionID, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}

// forget drops the mutex of a closed session. Callers must not hold
// it. A goroutine already blocked on the dropped mutex can briefly
// overlap a fresh acquire for the same ID; the session record is gone
// by then, so both callers just observe the expired session, and the
// store's version check rejects any straggling write.
func (l *sessionLocks) forget(sessionID string) {
	l.locks.Delete(sessionID)
}
