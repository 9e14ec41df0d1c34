package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickscode/whaling/service/db"
	"github.com/rickscode/whaling/service/helius"
	"github.com/rickscode/whaling/service/metrics"
	"github.com/rickscode/whaling/service/tracker"
)

// PollWalletInput contains the input parameters for one wallet poll cycle.
type PollWalletInput struct {
	WalletAddress string `json:"wallet_address"`
	WalletLabel   string `json:"wallet_label,omitempty"`
	FetchLimit    int    `json:"fetch_limit,omitempty"`
}

// PollWalletResult summarizes one workflow run.
type PollWalletResult struct {
	Address   string    `json:"address"`
	PollTime  time.Time `json:"poll_time"`
	Fetched   int       `json:"fetched"`
	New       int       `json:"new"`
	Processed int       `json:"processed"`
	Opened    int       `json:"opened"`
	Closed    int       `json:"closed"`
	Notified  int       `json:"notified"`
	Error     *string   `json:"error,omitempty"`
}

// FetchTransactionsInput contains parameters for the FetchTransactions activity.
type FetchTransactionsInput struct {
	WalletAddress string `json:"wallet_address"`
	Limit         int    `json:"limit"`
}

// FetchTransactionsResult contains the fetched history, newest first.
type FetchTransactionsResult struct {
	Transactions []helius.Transaction `json:"transactions"`
}

// ProcessTransactionsInput contains parameters for the ProcessTransactions
// activity. Transactions are passed through in the source's newest-first order.
type ProcessTransactionsInput struct {
	WalletAddress string               `json:"wallet_address"`
	WalletLabel   string               `json:"wallet_label,omitempty"`
	Transactions  []helius.Transaction `json:"transactions"`
}

// SourceInterface defines the transaction source operations needed by
// activities. This allows for easy mocking in tests.
type SourceInterface interface {
	RecentTransactions(ctx context.Context, address string, limit int) ([]helius.Transaction, error)
}

// TrackerInterface defines the pipeline operations needed by activities.
// This allows for easy mocking in tests.
type TrackerInterface interface {
	Process(ctx context.Context, wallet db.Wallet, batch []helius.Transaction) (*tracker.PollResult, error)
}

// StoreInterface defines the database operations needed by activities.
// This allows for easy mocking in tests.
type StoreInterface interface {
	UpdateWalletPollTime(ctx context.Context, address string, pollTime time.Time) error
}

// Activities holds the dependencies needed by Temporal activities.
// All dependencies are explicit.
type Activities struct {
	source  SourceInterface
	tracker TrackerInterface
	store   StoreInterface
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// If metrics is nil, no metrics will be recorded.
func NewActivities(
	source SourceInterface,
	trk TrackerInterface,
	store StoreInterface,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		source:  source,
		tracker: trk,
		store:   store,
		metrics: m,
		logger:  logger,
	}
}

// FetchTransactions fetches recent transaction history for a wallet from the
// upstream source.
func (a *Activities) FetchTransactions(ctx context.Context, input FetchTransactionsInput) (*FetchTransactionsResult, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordActivityDuration("FetchTransactions", time.Since(start).Seconds())
		}
	}()

	a.logger.DebugContext(ctx, "fetching transactions",
		"address", input.WalletAddress,
		"limit", input.Limit,
	)

	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}

	transactions, err := a.source.RecentTransactions(ctx, input.WalletAddress, limit)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to fetch transactions",
			"address", input.WalletAddress,
			"error", err,
		)
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	if a.metrics != nil {
		a.metrics.RecordTransactionsFetched(input.WalletAddress, len(transactions))
	}

	a.logger.InfoContext(ctx, "fetched transactions",
		"address", input.WalletAddress,
		"count", len(transactions),
	)

	return &FetchTransactionsResult{Transactions: transactions}, nil
}

// ProcessTransactions runs the fetched batch through the pipeline: watermark
// selection, dedup, classification, position recording, and notification.
// It updates the wallet's poll time afterwards.
func (a *Activities) ProcessTransactions(ctx context.Context, input ProcessTransactionsInput) (*tracker.PollResult, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordActivityDuration("ProcessTransactions", time.Since(start).Seconds())
		}
	}()

	wallet := db.Wallet{
		Address: input.WalletAddress,
		Label:   input.WalletLabel,
	}

	result, err := a.tracker.Process(ctx, wallet, input.Transactions)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to process transactions",
			"address", input.WalletAddress,
			"error", err,
		)
		return nil, fmt.Errorf("failed to process transactions: %w", err)
	}

	if err := a.store.UpdateWalletPollTime(ctx, input.WalletAddress, time.Now().UTC()); err != nil {
		// Poll-time bookkeeping is advisory; the pipeline's effects are
		// already durable.
		a.logger.WarnContext(ctx, "failed to update wallet poll time",
			"address", input.WalletAddress,
			"error", err,
		)
	}

	return result, nil
}
