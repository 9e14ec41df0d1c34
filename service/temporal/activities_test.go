package temporal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rickscode/whaling/service/db"
	"github.com/rickscode/whaling/service/helius"
	"github.com/rickscode/whaling/service/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	transactions []helius.Transaction
	err          error
	gotLimit     int
}

func (s *fakeSource) RecentTransactions(_ context.Context, _ string, limit int) ([]helius.Transaction, error) {
	s.gotLimit = limit
	return s.transactions, s.err
}

type fakeTracker struct {
	result    *tracker.PollResult
	err       error
	gotWallet db.Wallet
	gotBatch  []helius.Transaction
}

func (f *fakeTracker) Process(_ context.Context, wallet db.Wallet, batch []helius.Transaction) (*tracker.PollResult, error) {
	f.gotWallet = wallet
	f.gotBatch = batch
	return f.result, f.err
}

type fakePollTimeStore struct {
	updated int
	err     error
}

func (s *fakePollTimeStore) UpdateWalletPollTime(_ context.Context, _ string, _ time.Time) error {
	s.updated++
	return s.err
}

func TestFetchTransactions(t *testing.T) {
	source := &fakeSource{transactions: []helius.Transaction{{Signature: "sig-1"}}}
	activities := NewActivities(source, &fakeTracker{}, &fakePollTimeStore{}, nil, nil)

	result, err := activities.FetchTransactions(context.Background(), FetchTransactionsInput{
		WalletAddress: testWallet,
		Limit:         25,
	})
	require.NoError(t, err)

	assert.Equal(t, 25, source.gotLimit)
	require.Len(t, result.Transactions, 1)
}

func TestFetchTransactions_DefaultLimit(t *testing.T) {
	source := &fakeSource{}
	activities := NewActivities(source, &fakeTracker{}, &fakePollTimeStore{}, nil, nil)

	_, err := activities.FetchTransactions(context.Background(), FetchTransactionsInput{
		WalletAddress: testWallet,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, source.gotLimit)
}

func TestFetchTransactions_SourceError(t *testing.T) {
	source := &fakeSource{err: errors.New("upstream 500")}
	activities := NewActivities(source, &fakeTracker{}, &fakePollTimeStore{}, nil, nil)

	_, err := activities.FetchTransactions(context.Background(), FetchTransactionsInput{
		WalletAddress: testWallet,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch transactions")
}

func TestProcessTransactions(t *testing.T) {
	trk := &fakeTracker{result: &tracker.PollResult{WalletAddress: testWallet, Processed: 2}}
	store := &fakePollTimeStore{}
	activities := NewActivities(&fakeSource{}, trk, store, nil, nil)

	batch := []helius.Transaction{{Signature: "sig-2"}, {Signature: "sig-1"}}
	result, err := activities.ProcessTransactions(context.Background(), ProcessTransactionsInput{
		WalletAddress: testWallet,
		WalletLabel:   "whale one",
		Transactions:  batch,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, db.Wallet{Address: testWallet, Label: "whale one"}, trk.gotWallet)
	assert.Equal(t, batch, trk.gotBatch)
	assert.Equal(t, 1, store.updated)
}

func TestProcessTransactions_TrackerError(t *testing.T) {
	trk := &fakeTracker{err: errors.New("database unavailable")}
	store := &fakePollTimeStore{}
	activities := NewActivities(&fakeSource{}, trk, store, nil, nil)

	_, err := activities.ProcessTransactions(context.Background(), ProcessTransactionsInput{
		WalletAddress: testWallet,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process transactions")
	assert.Equal(t, 0, store.updated)
}

func TestProcessTransactions_PollTimeFailureIsAdvisory(t *testing.T) {
	trk := &fakeTracker{result: &tracker.PollResult{WalletAddress: testWallet}}
	store := &fakePollTimeStore{err: errors.New("connection reset")}
	activities := NewActivities(&fakeSource{}, trk, store, nil, nil)

	result, err := activities.ProcessTransactions(context.Background(), ProcessTransactionsInput{
		WalletAddress: testWallet,
	})
	require.NoError(t, err)
	assert.NotNil(t, result)
}
