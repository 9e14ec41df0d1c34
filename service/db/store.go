package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Store provides database operations for the service: the tracked wallet set,
// the position ledger, and the durable processed-signature dedup table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate applies the embedded schema. Statements are idempotent so this is
// safe to run on every deploy.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Wallet is a tracked wallet. The active flag gates whether the poll
// orchestrator visits it.
type Wallet struct {
	Address      string     `json:"address"`
	Label        string     `json:"label,omitempty"`
	Active       bool       `json:"active"`
	LastPollTime *time.Time `json:"last_poll_time,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Position is one buy, optionally matched with the sell that closed it.
// All sell-derived fields are nil exactly while IsOpen; they become non-nil
// together on close and are never changed again.
type Position struct {
	ID                  int64      `json:"id"`
	WalletAddress       string     `json:"wallet_address"`
	TokenMint           string     `json:"token_mint"`
	BuySignature        string     `json:"buy_signature"`
	BuyTimestamp        time.Time  `json:"buy_timestamp"`
	BuyPriceUSD         float64    `json:"buy_price_usd"`
	BuyAmount           float64    `json:"buy_amount"`
	BuyValueUSD         float64    `json:"buy_value_usd"`
	SellSignature       *string    `json:"sell_signature,omitempty"`
	SellTimestamp       *time.Time `json:"sell_timestamp,omitempty"`
	SellPriceUSD        *float64   `json:"sell_price_usd,omitempty"`
	SellAmount          *float64   `json:"sell_amount,omitempty"`
	SellValueUSD        *float64   `json:"sell_value_usd,omitempty"`
	HoldDurationSeconds *int64     `json:"hold_duration_seconds,omitempty"`
	ProfitLossUSD       *float64   `json:"profit_loss_usd,omitempty"`
	// ProfitLossPercent is nil on a closed position when the buy price was
	// zero, since the percentage is undefined in that case.
	ProfitLossPercent *float64  `json:"profit_loss_percent,omitempty"`
	IsOpen            bool      `json:"is_open"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

const positionColumns = `id, wallet_address, token_mint,
	buy_signature, buy_timestamp, buy_price_usd, buy_amount, buy_value_usd,
	sell_signature, sell_timestamp, sell_price_usd, sell_amount, sell_value_usd,
	hold_duration_seconds, profit_loss_usd, profit_loss_percent,
	is_open, created_at, updated_at`

// UpsertWallet registers a wallet for tracking, or updates its label and
// active flag if it is already registered.
func (s *Store) UpsertWallet(ctx context.Context, address, label string, active bool) (*Wallet, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO wallets (address, label, active)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE
		SET label = EXCLUDED.label, active = EXCLUDED.active, updated_at = now()
		RETURNING address, label, active, last_poll_time, created_at, updated_at`,
		address, label, active,
	)
	return scanWallet(row)
}

// GetWallet retrieves a wallet by address.
func (s *Store) GetWallet(ctx context.Context, address string) (*Wallet, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, label, active, last_poll_time, created_at, updated_at
		FROM wallets WHERE address = $1`,
		address,
	)
	wallet, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	return wallet, err
}

// ListWallets retrieves all registered wallets.
func (s *Store) ListWallets(ctx context.Context) ([]*Wallet, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, label, active, last_poll_time, created_at, updated_at
		FROM wallets ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWallets(rows)
}

// ListActiveWallets retrieves the wallets the poll orchestrator should visit.
func (s *Store) ListActiveWallets(ctx context.Context) ([]*Wallet, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, label, active, last_poll_time, created_at, updated_at
		FROM wallets WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWallets(rows)
}

// SetWalletActive flips a wallet's active flag.
func (s *Store) SetWalletActive(ctx context.Context, address string, active bool) (*Wallet, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE wallets SET active = $2, updated_at = now()
		WHERE address = $1
		RETURNING address, label, active, last_poll_time, created_at, updated_at`,
		address, active,
	)
	return scanWallet(row)
}

// UpdateWalletPollTime records when a wallet was last polled.
func (s *Store) UpdateWalletPollTime(ctx context.Context, address string, pollTime time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE wallets SET last_poll_time = $2, updated_at = now()
		WHERE address = $1`,
		address, pollTime,
	)
	return err
}

// DeleteWallet removes a wallet from tracking. Its positions are retained.
func (s *Store) DeleteWallet(ctx context.Context, address string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM wallets WHERE address = $1`, address)
	return err
}

// RecordBuyParams contains the classified buy fields persisted on open.
type RecordBuyParams struct {
	WalletAddress string
	TokenMint     string
	Signature     string
	Timestamp     time.Time
	PriceUSD      float64
	Amount        float64
	ValueUSD      float64
}

// RecordBuy opens a new position. It fails with ErrDuplicateSignature when
// this buy was already recorded, and with ErrOpenPositionExists when the
// (wallet, token) pair already holds an open position.
func (s *Store) RecordBuy(ctx context.Context, params RecordBuyParams) (*Position, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO positions (
			wallet_address, token_mint,
			buy_signature, buy_timestamp, buy_price_usd, buy_amount, buy_value_usd
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+positionColumns,
		params.WalletAddress, params.TokenMint,
		params.Signature, params.Timestamp, params.PriceUSD, params.Amount, params.ValueUSD,
	)

	position, err := scanPosition(row)
	if err != nil {
		switch constraintViolated(err) {
		case "positions_buy_signature_key":
			return nil, ErrDuplicateSignature
		case "idx_positions_single_open":
			return nil, ErrOpenPositionExists
		}
		return nil, fmt.Errorf("record buy: %w", err)
	}
	return position, nil
}

// RecordSellParams contains the classified sell fields persisted on close.
type RecordSellParams struct {
	WalletAddress string
	TokenMint     string
	Signature     string
	Timestamp     time.Time
	PriceUSD      float64
	Amount        float64
	ValueUSD      float64
}

// RecordSell closes the open position for (wallet, token). The open row is
// selected under a row lock, the derived metrics are computed, and all sell
// fields are written in one update, so the close is atomic and append-once.
// Returns ErrNoOpenPosition when the pair holds no open position.
func (s *Store) RecordSell(ctx context.Context, params RecordSellParams) (*Position, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin record sell: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT id, buy_timestamp, buy_price_usd, buy_value_usd
		FROM positions
		WHERE wallet_address = $1 AND token_mint = $2 AND is_open
		ORDER BY buy_timestamp DESC
		LIMIT 1
		FOR UPDATE`,
		params.WalletAddress, params.TokenMint,
	)

	var (
		id          int64
		buyTime     time.Time
		buyPriceUSD float64
		buyValueUSD float64
	)
	if err := row.Scan(&id, &buyTime, &buyPriceUSD, &buyValueUSD); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoOpenPosition
		}
		return nil, fmt.Errorf("lookup open position: %w", err)
	}

	holdSeconds := int64(params.Timestamp.Sub(buyTime) / time.Second)
	profitLossUSD := params.ValueUSD - buyValueUSD

	// Percentage is undefined when the entry price was zero; persist NULL
	// rather than crashing or storing an infinity.
	var profitLossPercent *float64
	if buyPriceUSD != 0 {
		pct := (params.PriceUSD - buyPriceUSD) / buyPriceUSD * 100
		profitLossPercent = &pct
	}

	updated := tx.QueryRow(ctx, `
		UPDATE positions SET
			sell_signature = $2,
			sell_timestamp = $3,
			sell_price_usd = $4,
			sell_amount = $5,
			sell_value_usd = $6,
			hold_duration_seconds = $7,
			profit_loss_usd = $8,
			profit_loss_percent = $9,
			is_open = FALSE,
			updated_at = now()
		WHERE id = $1
		RETURNING `+positionColumns,
		id,
		params.Signature, params.Timestamp, params.PriceUSD, params.Amount, params.ValueUSD,
		holdSeconds, profitLossUSD, profitLossPercent,
	)

	position, err := scanPosition(updated)
	if err != nil {
		return nil, fmt.Errorf("close position: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit record sell: %w", err)
	}
	return position, nil
}

// GetOpenPosition returns the open position for (wallet, token), or nil when
// there is none. The unique partial index guarantees at most one row.
func (s *Store) GetOpenPosition(ctx context.Context, walletAddress, tokenMint string) (*Position, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+positionColumns+`
		FROM positions
		WHERE wallet_address = $1 AND token_mint = $2 AND is_open
		ORDER BY buy_timestamp DESC
		LIMIT 1`,
		walletAddress, tokenMint,
	)

	position, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return position, nil
}

// ListPositionsParams contains filters for listing positions.
type ListPositionsParams struct {
	WalletAddress string // empty matches all wallets
	OpenOnly      bool
	Limit         int32
	Offset        int32
}

// ListPositions retrieves positions, newest buys first.
func (s *Store) ListPositions(ctx context.Context, params ListPositionsParams) ([]*Position, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+positionColumns+`
		FROM positions
		WHERE ($1 = '' OR wallet_address = $1)
		  AND (NOT $2 OR is_open)
		ORDER BY buy_timestamp DESC
		LIMIT $3 OFFSET $4`,
		params.WalletAddress, params.OpenOnly, limit, params.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*Position
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}
	return positions, rows.Err()
}

// IsSignatureProcessed reports whether a transaction signature has already
// been fully handled. Consulted before any side-effecting action.
func (s *Store) IsSignatureProcessed(ctx context.Context, signature string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM processed_signatures WHERE signature = $1)`,
		signature,
	).Scan(&exists)
	return exists, err
}

// MarkSignatureProcessed records a signature as fully handled. Inserting the
// same signature twice is a no-op, so retries never error the pipeline.
func (s *Store) MarkSignatureProcessed(ctx context.Context, signature, walletAddress string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processed_signatures (signature, wallet_address)
		VALUES ($1, $2)
		ON CONFLICT (signature) DO NOTHING`,
		signature, walletAddress,
	)
	return err
}

// row abstracts pgx.Row and pgx.Rows for the scan helpers.
type row interface {
	Scan(dest ...any) error
}

func scanWallet(r row) (*Wallet, error) {
	var (
		w        Wallet
		lastPoll pgtype.Timestamptz
	)
	if err := r.Scan(&w.Address, &w.Label, &w.Active, &lastPoll, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	if lastPoll.Valid {
		w.LastPollTime = &lastPoll.Time
	}
	return &w, nil
}

func scanWallets(rows pgx.Rows) ([]*Wallet, error) {
	var wallets []*Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func scanPosition(r row) (*Position, error) {
	var (
		p             Position
		sellSignature pgtype.Text
		sellTimestamp pgtype.Timestamptz
		sellPriceUSD  pgtype.Float8
		sellAmount    pgtype.Float8
		sellValueUSD  pgtype.Float8
		holdSeconds   pgtype.Int8
		plUSD         pgtype.Float8
		plPercent     pgtype.Float8
	)

	err := r.Scan(
		&p.ID, &p.WalletAddress, &p.TokenMint,
		&p.BuySignature, &p.BuyTimestamp, &p.BuyPriceUSD, &p.BuyAmount, &p.BuyValueUSD,
		&sellSignature, &sellTimestamp, &sellPriceUSD, &sellAmount, &sellValueUSD,
		&holdSeconds, &plUSD, &plPercent,
		&p.IsOpen, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sellSignature.Valid {
		p.SellSignature = &sellSignature.String
	}
	if sellTimestamp.Valid {
		p.SellTimestamp = &sellTimestamp.Time
	}
	if sellPriceUSD.Valid {
		p.SellPriceUSD = &sellPriceUSD.Float64
	}
	if sellAmount.Valid {
		p.SellAmount = &sellAmount.Float64
	}
	if sellValueUSD.Valid {
		p.SellValueUSD = &sellValueUSD.Float64
	}
	if holdSeconds.Valid {
		p.HoldDurationSeconds = &holdSeconds.Int64
	}
	if plUSD.Valid {
		p.ProfitLossUSD = &plUSD.Float64
	}
	if plPercent.Valid {
		p.ProfitLossPercent = &plPercent.Float64
	}

	return &p, nil
}
