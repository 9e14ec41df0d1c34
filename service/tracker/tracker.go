package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickscode/whaling/service/alert"
	"github.com/rickscode/whaling/service/classify"
	"github.com/rickscode/whaling/service/db"
	"github.com/rickscode/whaling/service/helius"
	"github.com/rickscode/whaling/service/metrics"
	natspkg "github.com/rickscode/whaling/service/nats"
)

// Source fetches recent transaction history for an address, newest first.
type Source interface {
	RecentTransactions(ctx context.Context, address string, limit int) ([]helius.Transaction, error)
}

// Store defines the ledger operations the tracker needs.
// This allows for easy substitution with fakes in tests.
type Store interface {
	IsSignatureProcessed(ctx context.Context, signature string) (bool, error)
	MarkSignatureProcessed(ctx context.Context, signature, walletAddress string) error
	GetOpenPosition(ctx context.Context, walletAddress, tokenMint string) (*db.Position, error)
	RecordBuy(ctx context.Context, params db.RecordBuyParams) (*db.Position, error)
	RecordSell(ctx context.Context, params db.RecordSellParams) (*db.Position, error)
	UpdateWalletPollTime(ctx context.Context, address string, pollTime time.Time) error
}

// Publisher publishes ledger mutations to the event bus.
type Publisher interface {
	PublishPositionEvent(ctx context.Context, event *natspkg.PositionEvent) error
}

// Config contains the tracker's explicit dependencies.
type Config struct {
	Source     Source
	Store      Store
	Classifier *classify.Classifier
	Filter     alert.Filter
	Notifier   alert.Notifier     // optional: nil disables notifications
	Publisher  Publisher          // optional: nil disables event publishing
	Metrics    *metrics.Metrics   // optional: nil disables metrics
	Logger     *slog.Logger
	FetchLimit int
}

// Tracker drives the poll pipeline for one wallet at a time: fetch history,
// select transactions past the watermark, and walk them oldest-first through
// dedup check -> classify -> position record -> filter -> notify -> mark
// processed, advancing the watermark at the end.
type Tracker struct {
	source     Source
	store      Store
	classifier *classify.Classifier
	filter     alert.Filter
	notifier   alert.Notifier
	publisher  Publisher
	cursors    *Cursors
	locks      *keyedMutex
	metrics    *metrics.Metrics
	logger     *slog.Logger
	fetchLimit int
}

// New creates a Tracker with fresh (empty) watermarks.
func New(cfg Config) *Tracker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fetchLimit := cfg.FetchLimit
	if fetchLimit <= 0 {
		fetchLimit = 50
	}
	return &Tracker{
		source:     cfg.Source,
		store:      cfg.Store,
		classifier: cfg.Classifier,
		filter:     cfg.Filter,
		notifier:   cfg.Notifier,
		publisher:  cfg.Publisher,
		cursors:    NewCursors(),
		locks:      newKeyedMutex(),
		metrics:    cfg.Metrics,
		logger:     logger,
		fetchLimit: fetchLimit,
	}
}

// PollResult summarizes one poll cycle for a wallet.
type PollResult struct {
	WalletAddress string `json:"wallet_address"`
	Fetched       int    `json:"fetched"`
	New           int    `json:"new"`
	Processed     int    `json:"processed"`
	Opened        int    `json:"opened"`
	Closed        int    `json:"closed"`
	Notified      int    `json:"notified"`
	OrphanSells   int    `json:"orphan_sells"`
}

// Poll runs one full cycle for a wallet. A returned error means the cycle
// should be retried later; the durable signature ledger makes retries safe.
func (t *Tracker) Poll(ctx context.Context, wallet db.Wallet) (*PollResult, error) {
	start := time.Now()
	defer func() {
		if t.metrics != nil {
			t.metrics.RecordPollDuration(wallet.Address, time.Since(start).Seconds())
		}
	}()

	batch, err := t.source.RecentTransactions(ctx, wallet.Address, t.fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions for %s: %w", wallet.Address, err)
	}
	if t.metrics != nil {
		t.metrics.RecordTransactionsFetched(wallet.Address, len(batch))
	}

	result, err := t.Process(ctx, wallet, batch)
	if err != nil {
		return nil, err
	}

	if err := t.store.UpdateWalletPollTime(ctx, wallet.Address, time.Now().UTC()); err != nil {
		// Poll-time bookkeeping is advisory; the cycle's effects are durable.
		t.logger.WarnContext(ctx, "failed to update wallet poll time",
			"wallet", wallet.Address,
			"error", err,
		)
	}

	return result, nil
}

// Process runs the pipeline over an already-fetched batch (newest first).
// Split from Poll so the fetch and the processing can run as separate
// workflow activities with independent retry policies.
func (t *Tracker) Process(ctx context.Context, wallet db.Wallet, batch []helius.Transaction) (*PollResult, error) {
	result := &PollResult{
		WalletAddress: wallet.Address,
		Fetched:       len(batch),
	}

	if len(batch) == 0 {
		t.logger.DebugContext(ctx, "no transactions fetched", "wallet", wallet.Address)
		return result, nil
	}

	fresh := t.selectNew(wallet.Address, batch)
	result.New = len(fresh)
	if t.metrics != nil {
		t.metrics.RecordTransactionsSkipped(wallet.Address, "watermark", len(batch)-len(fresh))
	}

	for i := range fresh {
		tx := &fresh[i]

		if err := t.handle(ctx, wallet, tx, result); err != nil {
			// Stop the walk without advancing the watermark so the
			// remainder of the batch is revisited next cycle.
			return result, err
		}
	}

	// The watermark always advances to the newest fetched signature, even
	// when nothing in the batch was new.
	t.cursors.Advance(wallet.Address, batch[0].Signature)

	t.logger.InfoContext(ctx, "poll cycle complete",
		"wallet", wallet.Address,
		"fetched", result.Fetched,
		"new", result.New,
		"processed", result.Processed,
		"opened", result.Opened,
		"closed", result.Closed,
		"notified", result.Notified,
	)

	return result, nil
}

// selectNew returns the transactions strictly newer than the wallet's
// watermark, reversed into chronological (oldest-first) order. When the
// watermark signature is absent from the batch — first cycle, process
// restart, or a gap — the whole batch is returned and the durable ledger
// absorbs any replays.
func (t *Tracker) selectNew(wallet string, batch []helius.Transaction) []helius.Transaction {
	cut := len(batch)
	if lastSeen, ok := t.cursors.LastSeen(wallet); ok {
		for i := range batch {
			if batch[i].Signature == lastSeen {
				cut = i
				break
			}
		}
	}

	fresh := make([]helius.Transaction, 0, cut)
	for i := cut - 1; i >= 0; i-- {
		fresh = append(fresh, batch[i])
	}
	return fresh
}

// handle runs one transaction through the pipeline. Storage effects complete
// before the signature is marked processed; notification failures are logged
// but never block the pipeline.
func (t *Tracker) handle(ctx context.Context, wallet db.Wallet, tx *helius.Transaction, result *PollResult) error {
	processed, err := t.store.IsSignatureProcessed(ctx, tx.Signature)
	if err != nil {
		return fmt.Errorf("dedup check for %s: %w", tx.Signature, err)
	}
	if processed {
		if t.metrics != nil {
			t.metrics.RecordTransactionsSkipped(wallet.Address, "already_processed", 1)
		}
		return nil
	}

	transfer := t.classifier.Classify(ctx, tx, wallet.Address)
	if transfer == nil {
		if t.metrics != nil {
			t.metrics.RecordTransactionsSkipped(wallet.Address, "not_a_trade", 1)
		}
		// Still recorded in the ledger so it is never re-classified.
		return t.markProcessed(ctx, wallet.Address, tx.Signature, result)
	}

	switch transfer.Direction {
	case classify.DirectionBuy:
		if err := t.handleBuy(ctx, wallet, transfer, result); err != nil {
			return err
		}
	case classify.DirectionSell:
		if err := t.handleSell(ctx, wallet, transfer, result); err != nil {
			return err
		}
	}

	return t.markProcessed(ctx, wallet.Address, tx.Signature, result)
}

func (t *Tracker) handleBuy(ctx context.Context, wallet db.Wallet, transfer *classify.Transfer, result *PollResult) error {
	unlock := t.locks.Lock(wallet.Address + "/" + transfer.TokenMint)
	defer unlock()

	open, err := t.store.GetOpenPosition(ctx, wallet.Address, transfer.TokenMint)
	if err != nil {
		return fmt.Errorf("open position lookup: %w", err)
	}

	if open != nil {
		// The ledger tracks one round trip per (wallet, token); an
		// additional entry while a position is open is observed but not
		// recorded.
		t.logger.DebugContext(ctx, "buy while position already open, not recording",
			"wallet", wallet.Address,
			"mint", transfer.TokenMint,
			"signature", transfer.Signature,
		)
	} else {
		position, err := t.store.RecordBuy(ctx, db.RecordBuyParams{
			WalletAddress: wallet.Address,
			TokenMint:     transfer.TokenMint,
			Signature:     transfer.Signature,
			Timestamp:     time.Unix(transfer.Timestamp, 0).UTC(),
			PriceUSD:      transfer.PriceUSD,
			Amount:        transfer.Amount,
			ValueUSD:      transfer.ValueUSD,
		})
		switch {
		case errors.Is(err, db.ErrDuplicateSignature), errors.Is(err, db.ErrOpenPositionExists):
			// Benign idempotent retry; the effects already exist.
			t.logger.DebugContext(ctx, "buy already recorded",
				"signature", transfer.Signature,
			)
		case err != nil:
			return fmt.Errorf("record buy %s: %w", transfer.Signature, err)
		default:
			result.Opened++
			if t.metrics != nil {
				t.metrics.RecordPositionOpened(wallet.Address)
			}
			t.publish(ctx, natspkg.FromPosition(natspkg.EventPositionOpened, wallet.Label, position))
		}
	}

	if !t.filter.ShouldNotifyBuy(transfer.ValueUSD) {
		if t.metrics != nil {
			t.metrics.RecordNotificationFiltered("buy")
		}
		return nil
	}

	if t.notifier != nil {
		err := t.notifier.NotifyBuy(ctx, alert.BuyAlert{
			WalletAddress: wallet.Address,
			WalletLabel:   wallet.Label,
			TokenMint:     transfer.TokenMint,
			Amount:        transfer.Amount,
			PriceUSD:      transfer.PriceUSD,
			ValueUSD:      transfer.ValueUSD,
			Signature:     transfer.Signature,
		})
		if err != nil {
			t.logger.WarnContext(ctx, "buy notification failed",
				"signature", transfer.Signature,
				"error", err,
			)
			return nil
		}
		result.Notified++
		if t.metrics != nil {
			t.metrics.RecordNotificationSent("buy")
		}
	}

	return nil
}

func (t *Tracker) handleSell(ctx context.Context, wallet db.Wallet, transfer *classify.Transfer, result *PollResult) error {
	unlock := t.locks.Lock(wallet.Address + "/" + transfer.TokenMint)
	defer unlock()

	position, err := t.store.RecordSell(ctx, db.RecordSellParams{
		WalletAddress: wallet.Address,
		TokenMint:     transfer.TokenMint,
		Signature:     transfer.Signature,
		Timestamp:     time.Unix(transfer.Timestamp, 0).UTC(),
		PriceUSD:      transfer.PriceUSD,
		Amount:        transfer.Amount,
		ValueUSD:      transfer.ValueUSD,
	})
	if errors.Is(err, db.ErrNoOpenPosition) {
		// Likely the matching buy predates tracking. Logged and marked
		// processed so it is not retried forever.
		t.logger.WarnContext(ctx, "sell with no open position",
			"wallet", wallet.Address,
			"mint", transfer.TokenMint,
			"signature", transfer.Signature,
		)
		result.OrphanSells++
		if t.metrics != nil {
			t.metrics.RecordOrphanSell(wallet.Address)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("record sell %s: %w", transfer.Signature, err)
	}

	result.Closed++
	if t.metrics != nil {
		t.metrics.RecordPositionClosed(wallet.Address)
	}
	t.publish(ctx, natspkg.FromPosition(natspkg.EventPositionClosed, wallet.Label, position))

	if !t.filter.ShouldNotifySell() {
		return nil
	}

	if t.notifier != nil {
		sellAlert := alert.SellAlert{
			WalletAddress:     wallet.Address,
			WalletLabel:       wallet.Label,
			TokenMint:         transfer.TokenMint,
			Amount:            transfer.Amount,
			BuyPriceUSD:       position.BuyPriceUSD,
			BuyValueUSD:       position.BuyValueUSD,
			SellPriceUSD:      transfer.PriceUSD,
			SellValueUSD:      transfer.ValueUSD,
			ProfitLossPercent: position.ProfitLossPercent,
			Signature:         transfer.Signature,
		}
		if position.ProfitLossUSD != nil {
			sellAlert.ProfitLossUSD = *position.ProfitLossUSD
		}
		if position.HoldDurationSeconds != nil {
			sellAlert.HoldDurationSeconds = *position.HoldDurationSeconds
		}

		if err := t.notifier.NotifySell(ctx, sellAlert); err != nil {
			t.logger.WarnContext(ctx, "sell notification failed",
				"signature", transfer.Signature,
				"error", err,
			)
			return nil
		}
		result.Notified++
		if t.metrics != nil {
			t.metrics.RecordNotificationSent("sell")
		}
	}

	return nil
}

func (t *Tracker) markProcessed(ctx context.Context, walletAddress, signature string, result *PollResult) error {
	if err := t.store.MarkSignatureProcessed(ctx, signature, walletAddress); err != nil {
		return fmt.Errorf("mark processed %s: %w", signature, err)
	}
	result.Processed++
	if t.metrics != nil {
		t.metrics.RecordTransactionProcessed(walletAddress)
	}
	return nil
}

// publish sends a ledger mutation to the event bus. Publishing is
// best-effort: the position is already persisted.
func (t *Tracker) publish(ctx context.Context, event *natspkg.PositionEvent) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.PublishPositionEvent(ctx, event); err != nil {
		t.logger.ErrorContext(ctx, "failed to publish position event",
			"kind", event.Kind,
			"buy_signature", event.BuySignature,
			"error", err,
		)
	}
}
