package helius

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "So11111111111111111111111111111111111111112"

func serveTransactions(t *testing.T, txns []Transaction) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/addresses/"+testAddress+"/transactions", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api-key"))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(txns))
	}
}

func TestRecentTransactions(t *testing.T) {
	txns := []Transaction{
		{Signature: "sig-newest", Timestamp: 1700000100, Type: "SWAP"},
		{Signature: "sig-oldest", Timestamp: 1700000000, Type: "TRANSFER"},
	}
	server := httptest.NewServer(serveTransactions(t, txns))
	defer server.Close()

	client := NewClient(server.URL, "test-key", nil, nil)
	got, err := client.RecentTransactions(context.Background(), testAddress, 50)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "sig-newest", got[0].Signature)
	assert.Equal(t, int64(1700000100), got[0].Timestamp)
}

func TestRecentTransactions_InvalidAddress(t *testing.T) {
	client := NewClient("http://unused", "test-key", nil, nil)

	_, err := client.RecentTransactions(context.Background(), "not-base58!!", 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid wallet address")
}

func TestRecentTransactions_RetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		serveTransactions(t, []Transaction{{Signature: "sig-1"}})(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", nil, nil)
	got, err := client.RecentTransactions(context.Background(), testAddress, 50)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	require.Len(t, got, 1)
}

func TestRecentTransactions_RateLimitBacksOff(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		serveTransactions(t, []Transaction{{Signature: "sig-1"}})(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", nil, nil)

	start := time.Now()
	_, err := client.RecentTransactions(context.Background(), testAddress, 50)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	// Rate limits back off harder than plain server errors (2s first step).
	assert.GreaterOrEqual(t, time.Since(start), 2*time.Second)
}

func TestRecentTransactions_ClientErrorIsNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", nil, nil)
	_, err := client.RecentTransactions(context.Background(), testAddress, 50)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 401")
	assert.Equal(t, 1, calls)
}

func TestRecentTransactions_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	client := NewClient(server.URL, "test-key", nil, nil)
	_, err := client.RecentTransactions(ctx, testAddress, 50)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOldestKnownTransaction(t *testing.T) {
	txns := []Transaction{
		{Signature: "sig-newest", Timestamp: 1700000200},
		{Signature: "sig-middle", Timestamp: 1700000100},
		{Signature: "sig-oldest", Timestamp: 1700000000},
	}
	server := httptest.NewServer(serveTransactions(t, txns))
	defer server.Close()

	client := NewClient(server.URL, "test-key", nil, nil)
	got, err := client.OldestKnownTransaction(context.Background(), testAddress)
	require.NoError(t, err)

	assert.Equal(t, time.Unix(1700000000, 0).UTC(), got.UTC())
}

func TestOldestKnownTransaction_NoHistory(t *testing.T) {
	server := httptest.NewServer(serveTransactions(t, []Transaction{}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", nil, nil)
	_, err := client.OldestKnownTransaction(context.Background(), testAddress)

	assert.ErrorIs(t, err, ErrUnknownAge)
}
