package delivery

import "sync"

// learnerLocks serializes profile read-modify-write per learner, so
// concurrent ticks or manual triggers can't double-deliver. Locks are
// created on first use and never released; the population is bounded by the
// learner count.
type learnerLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newLearnerLocks() *learnerLocks {
	return &learnerLocks{locks: make(map[int64]*sync.Mutex)}
}

// lock acquires the learner's lock and returns its release function.
func (k *learnerLocks) lock(id int64) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
