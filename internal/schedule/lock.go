package schedule

import "sync"

// therapistLocks serializes check-and-insert sequences per therapist.
// Without this, two concurrent requests for overlapping windows could both
// pass the conflict scan and double-book the therapist.
type therapistLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newTherapistLocks() *therapistLocks {
	return &therapistLocks{locks: make(map[int64]*sync.Mutex)}
}

// acquire locks the mutex for the given therapist, creating it on first use,
// and returns it for the caller to unlock.
func (t *therapistLocks) acquire(therapistID int64) *sync.Mutex {
	t.mu.Lock()
	m, ok := t.locks[therapistID]
	if !ok {
		m = &sync.Mutex{}
		t.locks[therapistID] = m
	}
	t.mu.Unlock()
	m.Lock()
	return m
}
