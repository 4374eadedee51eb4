package icssync

import "sync"

// serialLocks hands out one mutex per terminal serial. Entries are dropped
// once nobody holds or waits for them.
type serialLocks struct {
	mu    sync.Mutex
	locks map[string]*serialLock
}

type serialLock struct {
	sync.Mutex
	refs int
}

func newSerialLocks() *serialLocks {
	return &serialLocks{locks: make(map[string]*serialLock)}
}

// lock blocks until serial is free and returns the matching unlock.
func (l *serialLocks) lock(serial string) func() {
	l.mu.Lock()
	sl, ok := l.locks[serial]
	if !ok {
		sl = &serialLock{}
		l.locks[serial] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.Lock()
	return func() {
		sl.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, serial)
		}
		l.mu.Unlock()
	}
}

func (l *serialLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
