package classify

import (
	"context"
	"testing"
	"time"

	"github.com/rickscode/whaling/service/helius"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWallet = "Wha1eWa11et111111111111111111111111111111111"
	testMint   = "TokenMint1111111111111111111111111111111111"
	otherMint  = "TokenMint2222222222222222222222222222222222"
)

func newTestClassifier(price float64) *Classifier {
	return NewClassifier(StaticOracle{Price: price}, nil, 0, nil)
}

func swapTx(signature string, timestamp int64) helius.Transaction {
	return helius.Transaction{
		Signature: signature,
		Timestamp: timestamp,
		Type:      "SWAP",
		Source:    "RAYDIUM",
	}
}

func TestClassify_BuyWithStablecoinLeg(t *testing.T) {
	c := newTestClassifier(200)

	tx := swapTx("sig-buy", 1700000000)
	tx.TokenTransfers = []helius.TokenTransfer{
		{FromUserAccount: testWallet, ToUserAccount: "pool", Mint: USDCMint, TokenAmount: 25.0},
		{FromUserAccount: "pool", ToUserAccount: testWallet, Mint: testMint, TokenAmount: 1000.0},
	}

	transfer := c.Classify(context.Background(), &tx, testWallet)
	require.NotNil(t, transfer)

	assert.Equal(t, DirectionBuy, transfer.Direction)
	assert.Equal(t, testMint, transfer.TokenMint)
	assert.Equal(t, 1000.0, transfer.Amount)
	assert.Equal(t, 25.0, transfer.ValueUSD)
	assert.InDelta(t, 0.025, transfer.PriceUSD, 1e-12)
	assert.Equal(t, "sig-buy", transfer.Signature)
	assert.Equal(t, int64(1700000000), transfer.Timestamp)
}

func TestClassify_SellWithStablecoinLeg(t *testing.T) {
	c := newTestClassifier(200)

	tx := swapTx("sig-sell", 1700187200)
	tx.TokenTransfers = []helius.TokenTransfer{
		{FromUserAccount: testWallet, ToUserAccount: "pool", Mint: testMint, TokenAmount: 1000.0},
		{FromUserAccount: "pool", ToUserAccount: testWallet, Mint: USDCMint, TokenAmount: 35.0},
	}

	transfer := c.Classify(context.Background(), &tx, testWallet)
	require.NotNil(t, transfer)

	assert.Equal(t, DirectionSell, transfer.Direction)
	assert.Equal(t, testMint, transfer.TokenMint)
	assert.Equal(t, 35.0, transfer.ValueUSD)
	assert.InDelta(t, 0.035, transfer.PriceUSD, 1e-12)
}

func TestClassify_USDTLegIsAlsoVerbatim(t *testing.T) {
	c := newTestClassifier(200)

	tx := swapTx("sig-usdt", 1700000000)
	tx.TokenTransfers = []helius.TokenTransfer{
		{FromUserAccount: testWallet, ToUserAccount: "pool", Mint: USDTMint, TokenAmount: 50.0},
		{FromUserAccount: "pool", ToUserAccount: testWallet, Mint: testMint, TokenAmount: 10.0},
	}

	transfer := c.Classify(context.Background(), &tx, testWallet)
	require.NotNil(t, transfer)
	assert.Equal(t, DirectionBuy, transfer.Direction)
	assert.Equal(t, 50.0, transfer.ValueUSD)
}

func TestClassify_BuyWithWrappedSOLLeg(t *testing.T) {
	c := newTestClassifier(200)

	tx := swapTx("sig-wsol", 1700000000)
	tx.TokenTransfers = []helius.TokenTransfer{
		{FromUserAccount: testWallet, ToUserAccount: "pool", Mint: WrappedSOLMint, TokenAmount: 2.0},
		{FromUserAccount: "pool", ToUserAccount: testWallet, Mint: testMint, TokenAmount: 500.0},
	}

	transfer := c.Classify(context.Background(), &tx, testWallet)
	require.NotNil(t, transfer)

	assert.Equal(t, DirectionBuy, transfer.Direction)
	assert.Equal(t, 400.0, transfer.ValueUSD) // 2 SOL * $200
	assert.InDelta(t, 0.8, transfer.PriceUSD, 1e-12)
}

func TestClassify_StablecoinLegWinsOverWrappedSOL(t *testing.T) {
	c := newTestClassifier(200)

	// Routed swap touching both a wrapped SOL hop and a USDC leg. The
	// stablecoin amount is the authoritative value.
	tx := swapTx("sig-routed", 1700000000)
	tx.TokenTransfers = []helius.TokenTransfer{
		{FromUserAccount: testWallet, ToUserAccount: "pool", Mint: USDCMint, TokenAmount: 100.0},
		{FromUserAccount: "pool-a", ToUserAccount: "pool-b", Mint: WrappedSOLMint, TokenAmount: 3.0},
		{FromUserAccount: "pool-b", ToUserAccount: testWallet, Mint: testMint, TokenAmount: 50.0},
	}

	transfer := c.Classify(context.Background(), &tx, testWallet)
	require.NotNil(t, transfer)
	assert.Equal(t, 100.0, transfer.ValueUSD)
}

func TestClassify_SellValuedFromNativeTransfers(t *testing.T) {
	c := newTestClassifier(200)

	tx := swapTx("sig-native", 1700000000)
	tx.TokenTransfers = []helius.TokenTransfer{
		{FromUserAccount: testWallet, ToUserAccount: "pool", Mint: testMint, TokenAmount: 100.0},
	}
	tx.NativeTransfers = []helius.NativeTransfer{
		{FromUserAccount: "pool", ToUserAccount: testWallet, Amount: 1_500_000_000}, // 1.5 SOL
	}

	transfer := c.Classify(context.Background(), &tx, testWallet)
	require.NotNil(t, transfer)

	assert.Equal(t, DirectionSell, transfer.Direction)
	assert.Equal(t, 300.0, transfer.ValueUSD) // 1.5 SOL * $200
}

func TestClassify_NoPricingLegYieldsZeroValue(t *testing.T) {
	c := newTestClassifier(200)

	tx := swapTx("sig-airdroppy", 1700000000)
	tx.TokenTransfers = []helius.TokenTransfer{
		{FromUserAccount: "somewhere", ToUserAccount: testWallet, Mint: testMint, TokenAmount: 42.0},
	}

	transfer := c.Classify(context.Background(), &tx, testWallet)
	require.NotNil(t, transfer)

	assert.Equal(t, 0.0, transfer.ValueUSD)
	assert.Equal(t, 0.0, transfer.PriceUSD)
}

func TestClassify_ZeroAmountHasZeroPrice(t *testing.T) {
	c := newTestClassifier(200)

	tx := swapTx("sig-zero", 1700000000)
	tx.TokenTransfers = []helius.TokenTransfer{
		{FromUserAccount: testWallet, ToUserAccount: "pool", Mint: USDCMint, TokenAmount: 10.0},
		{FromUserAccount: "pool", ToUserAccount: testWallet, Mint: testMint, TokenAmount: 0.0},
	}

	transfer := c.Classify(context.Background(), &tx, testWallet)
	require.NotNil(t, transfer)

	assert.Equal(t, 0.0, transfer.Amount)
	assert.Equal(t, 0.0, transfer.PriceUSD)
	assert.Equal(t, 10.0, transfer.ValueUSD)
}

func TestClassify_Irrelevant(t *testing.T) {
	c := newTestClassifier(200)

	tests := []struct {
		name string
		tx   helius.Transaction
	}{
		{
			name: "not a swap",
			tx: helius.Transaction{
				Signature: "sig-transfer",
				Timestamp: 1700000000,
				Type:      "TRANSFER",
				TokenTransfers: []helius.TokenTransfer{
					{FromUserAccount: "x", ToUserAccount: testWallet, Mint: testMint, TokenAmount: 1},
				},
			},
		},
		{
			name: "failed on chain",
			tx: helius.Transaction{
				Signature:        "sig-failed",
				Timestamp:        1700000000,
				Type:             "SWAP",
				TransactionError: &helius.TransactionError{Error: "InstructionError"},
				TokenTransfers: []helius.TokenTransfer{
					{FromUserAccount: "x", ToUserAccount: testWallet, Mint: testMint, TokenAmount: 1},
				},
			},
		},
		{
			name: "wallet not involved",
			tx: helius.Transaction{
				Signature: "sig-other",
				Timestamp: 1700000000,
				Type:      "SWAP",
				TokenTransfers: []helius.TokenTransfer{
					{FromUserAccount: "x", ToUserAccount: "y", Mint: testMint, TokenAmount: 1},
				},
			},
		},
		{
			name: "only pricing legs move",
			tx: helius.Transaction{
				Signature: "sig-wsol-only",
				Timestamp: 1700000000,
				Type:      "SWAP",
				TokenTransfers: []helius.TokenTransfer{
					{FromUserAccount: testWallet, ToUserAccount: "pool", Mint: WrappedSOLMint, TokenAmount: 1},
					{FromUserAccount: "pool", ToUserAccount: testWallet, Mint: USDCMint, TokenAmount: 200},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, c.Classify(context.Background(), &tt.tx, testWallet))
		})
	}
}

func TestClassify_FirstIncomingTransferWins(t *testing.T) {
	c := newTestClassifier(200)

	tx := swapTx("sig-multi", 1700000000)
	tx.TokenTransfers = []helius.TokenTransfer{
		{FromUserAccount: "pool", ToUserAccount: testWallet, Mint: testMint, TokenAmount: 10.0},
		{FromUserAccount: "pool", ToUserAccount: testWallet, Mint: otherMint, TokenAmount: 99999.0},
	}

	transfer := c.Classify(context.Background(), &tx, testWallet)
	require.NotNil(t, transfer)
	assert.Equal(t, testMint, transfer.TokenMint)
	assert.Equal(t, 10.0, transfer.Amount)
}

func TestClassify_BuyPreferredOverEarlierSell(t *testing.T) {
	c := newTestClassifier(200)

	// Token-to-token swap: the wallet sends one token and receives another.
	// The received side wins as the subject.
	tx := swapTx("sig-rotate", 1700000000)
	tx.TokenTransfers = []helius.TokenTransfer{
		{FromUserAccount: testWallet, ToUserAccount: "pool", Mint: otherMint, TokenAmount: 5.0},
		{FromUserAccount: "pool", ToUserAccount: testWallet, Mint: testMint, TokenAmount: 7.0},
	}

	transfer := c.Classify(context.Background(), &tx, testWallet)
	require.NotNil(t, transfer)
	assert.Equal(t, DirectionBuy, transfer.Direction)
	assert.Equal(t, testMint, transfer.TokenMint)
}

// fakeAgeSource resolves token creation times from a fixed map.
type fakeAgeSource struct {
	created map[string]time.Time
}

func (f *fakeAgeSource) OldestKnownTransaction(_ context.Context, address string) (time.Time, error) {
	createdAt, ok := f.created[address]
	if !ok {
		return time.Time{}, helius.ErrUnknownAge
	}
	return createdAt, nil
}

func TestClassify_TokenAgeFilter(t *testing.T) {
	txTime := time.Unix(1700000000, 0).UTC()
	source := &fakeAgeSource{created: map[string]time.Time{
		testMint:  txTime.Add(-48 * time.Hour), // too old for a 24h window
		otherMint: txTime.Add(-1 * time.Hour),
	}}

	ages := NewTokenAges(source, nil)
	c := NewClassifier(StaticOracle{Price: 200}, ages, 24*time.Hour, nil)

	buyOf := func(mint string) helius.Transaction {
		tx := swapTx("sig-"+mint, txTime.Unix())
		tx.TokenTransfers = []helius.TokenTransfer{
			{FromUserAccount: testWallet, ToUserAccount: "pool", Mint: USDCMint, TokenAmount: 10.0},
			{FromUserAccount: "pool", ToUserAccount: testWallet, Mint: mint, TokenAmount: 1.0},
		}
		return tx
	}

	t.Run("buy of aged token is discarded", func(t *testing.T) {
		tx := buyOf(testMint)
		assert.Nil(t, c.Classify(context.Background(), &tx, testWallet))
	})

	t.Run("buy of fresh token passes", func(t *testing.T) {
		tx := buyOf(otherMint)
		assert.NotNil(t, c.Classify(context.Background(), &tx, testWallet))
	})

	t.Run("unknown age fails open", func(t *testing.T) {
		tx := buyOf("UnknownMint11111111111111111111111111111111")
		assert.NotNil(t, c.Classify(context.Background(), &tx, testWallet))
	})

	t.Run("sells are never age filtered", func(t *testing.T) {
		tx := swapTx("sig-old-sell", txTime.Unix())
		tx.TokenTransfers = []helius.TokenTransfer{
			{FromUserAccount: testWallet, ToUserAccount: "pool", Mint: testMint, TokenAmount: 1.0},
			{FromUserAccount: "pool", ToUserAccount: testWallet, Mint: USDCMint, TokenAmount: 5.0},
		}
		transfer := c.Classify(context.Background(), &tx, testWallet)
		require.NotNil(t, transfer)
		assert.Equal(t, DirectionSell, transfer.Direction)
	})
}
