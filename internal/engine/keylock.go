package engine

import "sync"

// keyLocks serializes work per key while leaving distinct keys fully
// parallel. Entries are reference-counted so the map does not grow with
// every (team, scenario) pair ever seen.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{
		locks: make(map[string]*lockEntry),
	}
}

// Lock blocks until the key's lock is held and returns the unlock func.
func (kl *keyLocks) Lock(key string) (unlock func()) {
	kl.mu.Lock()
	e, ok := kl.locks[key]
	if !ok {
		e = &lockEntry{}
		kl.locks[key] = e
	}
	e.refs++
	kl.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		kl.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(kl.locks, key)
		}
		kl.mu.Unlock()
	}
}
