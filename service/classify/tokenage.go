package classify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rickscode/whaling/service/helius"
)

// AgeSource resolves the oldest known activity for a mint address.
type AgeSource interface {
	OldestKnownTransaction(ctx context.Context, address string) (time.Time, error)
}

type ageEntry struct {
	createdAt time.Time
	known     bool
}

// TokenAges caches token creation times, keyed by mint. Each mint is looked
// up from the source at most once per process lifetime; both found and
// not-found outcomes are memoized. Transient source failures are not cached
// so a later transaction can retry the lookup.
type TokenAges struct {
	source AgeSource
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]ageEntry
}

// NewTokenAges creates a creation-time cache backed by source.
func NewTokenAges(source AgeSource, logger *slog.Logger) *TokenAges {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenAges{
		source:  source,
		logger:  logger,
		entries: make(map[string]ageEntry),
	}
}

// CreationTime returns the memoized creation time for mint. The second
// result is false when the creation time is unknown, which callers must
// treat as fail-open.
func (a *TokenAges) CreationTime(ctx context.Context, mint string) (time.Time, bool) {
	a.mu.Lock()
	if entry, ok := a.entries[mint]; ok {
		a.mu.Unlock()
		return entry.createdAt, entry.known
	}
	a.mu.Unlock()

	createdAt, err := a.source.OldestKnownTransaction(ctx, mint)
	if err != nil {
		if errors.Is(err, helius.ErrUnknownAge) {
			a.mu.Lock()
			a.entries[mint] = ageEntry{}
			a.mu.Unlock()
			return time.Time{}, false
		}
		// Transport-level failure: stay fail-open and let a future
		// transaction retry.
		a.logger.WarnContext(ctx, "token age lookup failed",
			"mint", mint,
			"error", err,
		)
		return time.Time{}, false
	}

	a.mu.Lock()
	a.entries[mint] = ageEntry{createdAt: createdAt, known: true}
	a.mu.Unlock()

	return createdAt, true
}
