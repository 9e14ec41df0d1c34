package tracker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursors(t *testing.T) {
	c := NewCursors()

	_, ok := c.LastSeen("wallet-a")
	assert.False(t, ok)

	c.Advance("wallet-a", "sig-1")
	sig, ok := c.LastSeen("wallet-a")
	assert.True(t, ok)
	assert.Equal(t, "sig-1", sig)

	// Watermarks are independent per wallet.
	_, ok = c.LastSeen("wallet-b")
	assert.False(t, ok)

	c.Advance("wallet-a", "sig-2")
	sig, _ = c.LastSeen("wallet-a")
	assert.Equal(t, "sig-2", sig)
}

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	km := newKeyedMutex()

	var mu sync.Mutex
	counters := map[string]int{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		key := "a"
		if i%2 == 0 {
			key = "b"
		}
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			unlock := km.Lock(key)
			defer unlock()

			mu.Lock()
			counters[key]++
			mu.Unlock()
		}(key)
	}
	wg.Wait()

	assert.Equal(t, 25, counters["a"])
	assert.Equal(t, 25, counters["b"])
}
