package tracker

import "sync"

// Cursors holds the per-wallet high-watermark: the newest transaction
// signature already scanned for each wallet. It is a volatile optimization —
// rebuilt empty on process restart — and is never the source of truth for
// dedup; the durable processed-signature ledger is.
type Cursors struct {
	mu   sync.RWMutex
	last map[string]string
}

// NewCursors creates an empty cursor map.
func NewCursors() *Cursors {
	return &Cursors{last: make(map[string]string)}
}

// LastSeen returns the watermark signature for a wallet, if one is set.
func (c *Cursors) LastSeen(wallet string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sig, ok := c.last[wallet]
	return sig, ok
}

// Advance moves the watermark for a wallet to the given signature.
// The watermark always moves to the newest fetched signature, regardless of
// how many transactions in the batch were actually new.
func (c *Cursors) Advance(wallet, signature string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[wallet] = signature
}
