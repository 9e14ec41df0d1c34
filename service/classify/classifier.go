package classify

import (
	"context"
	"log/slog"
	"time"

	"github.com/rickscode/whaling/service/helius"
)

// Direction tags a classified transfer as an entry or an exit.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Well-known mints on mainnet.
const (
	// WrappedSOLMint is the wrapped native asset; transfers of it are the
	// pricing leg of a swap, never the subject of a position.
	WrappedSOLMint = "So11111111111111111111111111111111111111112"

	// USDCMint and USDTMint are the stablecoins whose amounts are taken as
	// USD value verbatim.
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// LamportsPerSOL is the native asset's fixed decimal exponent.
const LamportsPerSOL = 1_000_000_000

// Transfer is a classified trade derived from one transaction. It is
// ephemeral: consumed once by the pipeline and never persisted directly.
type Transfer struct {
	Direction Direction
	TokenMint string
	Amount    float64
	PriceUSD  float64
	ValueUSD  float64
	Signature string
	Timestamp int64
}

// Classifier decides whether a raw transaction is a token buy or sell for a
// given wallet and derives its USD value. It is a pure function of the
// transaction apart from the optional token-age lookup.
type Classifier struct {
	oracle      PriceOracle
	ages        *TokenAges    // nil disables the age filter
	maxTokenAge time.Duration // 0 disables the age filter
	logger      *slog.Logger
}

// NewClassifier creates a classifier. ages may be nil and maxTokenAge may be
// zero; either disables the buy-side token age filter.
func NewClassifier(oracle PriceOracle, ages *TokenAges, maxTokenAge time.Duration, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		oracle:      oracle,
		ages:        ages,
		maxTokenAge: maxTokenAge,
		logger:      logger,
	}
}

// Classify maps one raw transaction to a Transfer, or nil when the
// transaction is irrelevant to the wallet: not a swap, failed on chain, or
// containing no eligible token movement.
//
// The subject transfer is chosen by scanning tokenTransfers in source order,
// skipping the wrapped native asset and stablecoins (those are pricing legs).
// The first transfer received by the wallet wins as a buy; only if no buy
// matched does the first transfer sent by the wallet count as a sell. Source
// order is implementation-defined by the upstream API, not amount-sorted.
func (c *Classifier) Classify(ctx context.Context, tx *helius.Transaction, wallet string) *Transfer {
	if tx.Type != "SWAP" || tx.Failed() {
		return nil
	}

	var subject *helius.TokenTransfer
	var direction Direction

	for i := range tx.TokenTransfers {
		tt := &tx.TokenTransfers[i]
		if tt.Mint == WrappedSOLMint || isStablecoin(tt.Mint) {
			continue
		}
		if tt.ToUserAccount == wallet {
			subject = tt
			direction = DirectionBuy
			break
		}
		if subject == nil && tt.FromUserAccount == wallet {
			subject = tt
			direction = DirectionSell
		}
	}

	if subject == nil {
		return nil
	}

	if direction == DirectionBuy && c.tooOld(ctx, subject.Mint, tx.Timestamp) {
		c.logger.DebugContext(ctx, "discarding buy of aged token",
			"mint", subject.Mint,
			"signature", tx.Signature,
		)
		return nil
	}

	valueUSD := c.deriveValueUSD(tx, wallet, direction)

	// Zero-amount transfers have no defined price. The trade still opens or
	// closes a position with zero value; the filter keeps it from alerting.
	priceUSD := 0.0
	if subject.TokenAmount != 0 {
		priceUSD = valueUSD / subject.TokenAmount
	}

	return &Transfer{
		Direction: direction,
		TokenMint: subject.Mint,
		Amount:    subject.TokenAmount,
		PriceUSD:  priceUSD,
		ValueUSD:  valueUSD,
		Signature: tx.Signature,
		Timestamp: tx.Timestamp,
	}
}

// deriveValueUSD derives the trade's USD value in priority order: stablecoin
// leg, wrapped native leg at the oracle price, raw native balance transfers
// at the oracle price, else zero.
func (c *Classifier) deriveValueUSD(tx *helius.Transaction, wallet string, direction Direction) float64 {
	// (1) A stablecoin moving consistent with the wallet's role is the USD
	// value exactly: sent by the wallet on a buy, received on a sell.
	for i := range tx.TokenTransfers {
		tt := &tx.TokenTransfers[i]
		if !isStablecoin(tt.Mint) {
			continue
		}
		if direction == DirectionBuy && tt.FromUserAccount == wallet {
			return tt.TokenAmount
		}
		if direction == DirectionSell && tt.ToUserAccount == wallet {
			return tt.TokenAmount
		}
	}

	at := tx.BlockTime()

	// (2) Wrapped native leg, direction-consistent first, else any.
	var anyWrapped *helius.TokenTransfer
	for i := range tx.TokenTransfers {
		tt := &tx.TokenTransfers[i]
		if tt.Mint != WrappedSOLMint {
			continue
		}
		if direction == DirectionBuy && tt.FromUserAccount == wallet {
			return tt.TokenAmount * c.oracle.NativeAssetUSDPrice(at)
		}
		if direction == DirectionSell && tt.ToUserAccount == wallet {
			return tt.TokenAmount * c.oracle.NativeAssetUSDPrice(at)
		}
		if anyWrapped == nil {
			anyWrapped = tt
		}
	}
	if anyWrapped != nil {
		return anyWrapped.TokenAmount * c.oracle.NativeAssetUSDPrice(at)
	}

	// (3) Raw native transfers in lamports.
	var lamports int64
	for _, nt := range tx.NativeTransfers {
		if direction == DirectionBuy && nt.FromUserAccount == wallet {
			lamports += nt.Amount
		}
		if direction == DirectionSell && nt.ToUserAccount == wallet {
			lamports += nt.Amount
		}
	}
	if lamports > 0 {
		return float64(lamports) / LamportsPerSOL * c.oracle.NativeAssetUSDPrice(at)
	}

	// (4) Nothing to price against.
	return 0
}

// tooOld reports whether the token's known creation time predates the
// transaction by more than the configured maximum. Unknown ages pass through
// unfiltered.
func (c *Classifier) tooOld(ctx context.Context, mint string, txTimestamp int64) bool {
	if c.ages == nil || c.maxTokenAge <= 0 {
		return false
	}

	createdAt, known := c.ages.CreationTime(ctx, mint)
	if !known {
		return false
	}

	age := time.Unix(txTimestamp, 0).UTC().Sub(createdAt)
	return age > c.maxTokenAge
}

func isStablecoin(mint string) bool {
	return mint == USDCMint || mint == USDTMint
}
