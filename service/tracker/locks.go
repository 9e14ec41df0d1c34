package tracker

import "sync"

// keyedMutex serializes the open/close critical section per (wallet, token)
// pair: lookup open position -> decide buy-vs-sell -> write must not
// interleave for the same pair. Entries are retained for the process
// lifetime; the key space is bounded by tracked wallets times traded mints.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
