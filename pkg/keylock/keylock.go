// Package keylock provides mutual exclusion scoped to a string key.
//
// A KeyLock hands out one mutex per key on demand and reclaims it once the
// last holder releases, so the map does not grow with the number of keys ever
// seen. It is used to serialize read-check-mutate-write sequences on the same
// order without blocking work on other orders.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyLock is a set of mutexes addressed by key. The zero value is not usable;
// call New.
type KeyLock struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{entries: make(map[string]*entry)}
}

// Lock acquires the mutex for key, blocking until it is free. The returned
// function releases the mutex and must be called exactly once, on every exit
// path of the guarded section.
func (k *KeyLock) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
