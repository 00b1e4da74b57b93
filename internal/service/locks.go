package service

import "sync"

// groupLocks serializes mutating operations per group. Operations on
// different groups proceed in parallel; two operations on the same group
// never interleave their load-validate-apply-persist sequence.
type groupLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newGroupLocks() *groupLocks {
	return &groupLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for the given group and returns its unlock
// function. Callers must defer the unlock so it runs on every exit path.
func (l *groupLocks) acquire(groupID string) func() {
	l.mu.Lock()
	m, ok := l.locks[groupID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[groupID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
