package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWallet = "Wha1eWa11et111111111111111111111111111111111"
	testMint   = "TokenMint1111111111111111111111111111111111"
	otherMint  = "TokenMint2222222222222222222222222222222222"
)

func buyParams(signature string, ts time.Time) RecordBuyParams {
	return RecordBuyParams{
		WalletAddress: testWallet,
		TokenMint:     testMint,
		Signature:     signature,
		Timestamp:     ts,
		PriceUSD:      0.025,
		Amount:        1000,
		ValueUSD:      25.00,
	}
}

func TestWalletLifecycle(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)
	ctx := context.Background()

	wallet, err := ts.UpsertWallet(ctx, testWallet, "whale one", true)
	require.NoError(t, err)
	assert.Equal(t, testWallet, wallet.Address)
	assert.Equal(t, "whale one", wallet.Label)
	assert.True(t, wallet.Active)
	assert.Nil(t, wallet.LastPollTime)

	// Upsert is idempotent and updates the label in place.
	wallet, err = ts.UpsertWallet(ctx, testWallet, "renamed", true)
	require.NoError(t, err)
	assert.Equal(t, "renamed", wallet.Label)

	wallets, err := ts.ListWallets(ctx)
	require.NoError(t, err)
	assert.Len(t, wallets, 1)

	wallet, err = ts.SetWalletActive(ctx, testWallet, false)
	require.NoError(t, err)
	assert.False(t, wallet.Active)
	active, err := ts.ListActiveWallets(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	pollTime := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, ts.UpdateWalletPollTime(ctx, testWallet, pollTime))
	wallet, err = ts.GetWallet(ctx, testWallet)
	require.NoError(t, err)
	require.NotNil(t, wallet.LastPollTime)
	assert.WithinDuration(t, pollTime, *wallet.LastPollTime, time.Millisecond)

	require.NoError(t, ts.DeleteWallet(ctx, testWallet))
	_, err = ts.GetWallet(ctx, testWallet)
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestRecordBuy_Constraints(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)
	ctx := context.Background()

	_, err := ts.UpsertWallet(ctx, testWallet, "", true)
	require.NoError(t, err)

	buyTime := time.Now().UTC().Add(-time.Hour)
	position, err := ts.RecordBuy(ctx, buyParams("sig-buy", buyTime))
	require.NoError(t, err)
	assert.True(t, position.IsOpen)
	assert.Equal(t, 25.00, position.BuyValueUSD)

	// Same signature again is a replay.
	_, err = ts.RecordBuy(ctx, buyParams("sig-buy", buyTime))
	assert.ErrorIs(t, err, ErrDuplicateSignature)

	// A different buy into the same open pair violates the one-open-position
	// rule.
	_, err = ts.RecordBuy(ctx, buyParams("sig-buy-2", buyTime.Add(time.Minute)))
	assert.ErrorIs(t, err, ErrOpenPositionExists)

	// A different mint is an independent position.
	params := buyParams("sig-other-mint", buyTime)
	params.TokenMint = otherMint
	_, err = ts.RecordBuy(ctx, params)
	require.NoError(t, err)
}

func TestRecordSell_ComputesOutcome(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)
	ctx := context.Background()

	_, err := ts.UpsertWallet(ctx, testWallet, "", true)
	require.NoError(t, err)

	buyTime := time.Now().UTC().Add(-187200 * time.Second).Truncate(time.Microsecond)
	_, err = ts.RecordBuy(ctx, buyParams("sig-buy", buyTime))
	require.NoError(t, err)

	position, err := ts.RecordSell(ctx, RecordSellParams{
		WalletAddress: testWallet,
		TokenMint:     testMint,
		Signature:     "sig-sell",
		Timestamp:     buyTime.Add(187200 * time.Second),
		PriceUSD:      0.035,
		Amount:        1000,
		ValueUSD:      35.00,
	})
	require.NoError(t, err)

	assert.False(t, position.IsOpen)
	require.NotNil(t, position.ProfitLossUSD)
	assert.InDelta(t, 10.00, *position.ProfitLossUSD, 1e-9)
	require.NotNil(t, position.ProfitLossPercent)
	assert.InDelta(t, 40.0, *position.ProfitLossPercent, 1e-9)
	require.NotNil(t, position.HoldDurationSeconds)
	assert.Equal(t, int64(187200), *position.HoldDurationSeconds)

	// The pair can now open again.
	open, err := ts.GetOpenPosition(ctx, testWallet, testMint)
	require.NoError(t, err)
	assert.Nil(t, open)

	_, err = ts.RecordBuy(ctx, buyParams("sig-rebuy", time.Now().UTC()))
	require.NoError(t, err)
}

func TestRecordSell_NoOpenPosition(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)
	ctx := context.Background()

	_, err := ts.UpsertWallet(ctx, testWallet, "", true)
	require.NoError(t, err)

	_, err = ts.RecordSell(ctx, RecordSellParams{
		WalletAddress: testWallet,
		TokenMint:     testMint,
		Signature:     "sig-orphan",
		Timestamp:     time.Now().UTC(),
		PriceUSD:      0.035,
		Amount:        1000,
		ValueUSD:      35.00,
	})
	assert.ErrorIs(t, err, ErrNoOpenPosition)
}

func TestRecordSell_ZeroBuyPriceHasNilPercent(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)
	ctx := context.Background()

	_, err := ts.UpsertWallet(ctx, testWallet, "", true)
	require.NoError(t, err)

	params := buyParams("sig-airdrop", time.Now().UTC().Add(-time.Hour))
	params.PriceUSD = 0
	params.ValueUSD = 0
	_, err = ts.RecordBuy(ctx, params)
	require.NoError(t, err)

	position, err := ts.RecordSell(ctx, RecordSellParams{
		WalletAddress: testWallet,
		TokenMint:     testMint,
		Signature:     "sig-cash-out",
		Timestamp:     time.Now().UTC(),
		PriceUSD:      0.05,
		Amount:        1000,
		ValueUSD:      50.00,
	})
	require.NoError(t, err)

	require.NotNil(t, position.ProfitLossUSD)
	assert.InDelta(t, 50.00, *position.ProfitLossUSD, 1e-9)
	// Percentage gain from a zero-cost entry is undefined.
	assert.Nil(t, position.ProfitLossPercent)
}

func TestListPositions_Filters(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)
	ctx := context.Background()

	otherWallet := "Wha1eWa11et222222222222222222222222222222222"
	_, err := ts.UpsertWallet(ctx, testWallet, "", true)
	require.NoError(t, err)
	_, err = ts.UpsertWallet(ctx, otherWallet, "", true)
	require.NoError(t, err)

	buyTime := time.Now().UTC().Add(-time.Hour)
	_, err = ts.RecordBuy(ctx, buyParams("sig-open", buyTime))
	require.NoError(t, err)

	closedParams := buyParams("sig-closed", buyTime)
	closedParams.TokenMint = otherMint
	_, err = ts.RecordBuy(ctx, closedParams)
	require.NoError(t, err)
	_, err = ts.RecordSell(ctx, RecordSellParams{
		WalletAddress: testWallet,
		TokenMint:     otherMint,
		Signature:     "sig-closed-sell",
		Timestamp:     buyTime.Add(time.Minute),
		PriceUSD:      0.05,
		Amount:        1000,
		ValueUSD:      50.00,
	})
	require.NoError(t, err)

	theirParams := buyParams("sig-theirs", buyTime)
	theirParams.WalletAddress = otherWallet
	_, err = ts.RecordBuy(ctx, theirParams)
	require.NoError(t, err)

	all, err := ts.ListPositions(ctx, ListPositionsParams{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := ts.ListPositions(ctx, ListPositionsParams{WalletAddress: testWallet, Limit: 100})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	open, err := ts.ListPositions(ctx, ListPositionsParams{OpenOnly: true, Limit: 100})
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, p := range open {
		assert.True(t, p.IsOpen)
	}
}

func TestProcessedSignatures(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)
	ctx := context.Background()

	_, err := ts.UpsertWallet(ctx, testWallet, "", true)
	require.NoError(t, err)

	processed, err := ts.IsSignatureProcessed(ctx, "sig-1")
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, ts.MarkSignatureProcessed(ctx, "sig-1", testWallet))
	processed, err = ts.IsSignatureProcessed(ctx, "sig-1")
	require.NoError(t, err)
	assert.True(t, processed)

	// Marking twice is a no-op, not an error.
	require.NoError(t, ts.MarkSignatureProcessed(ctx, "sig-1", testWallet))
}
