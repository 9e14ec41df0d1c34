package helius

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rickscode/whaling/service/metrics"
)

// ErrUnknownAge is returned by OldestKnownTransaction when the source has no
// history for the address, so no creation time can be derived.
var ErrUnknownAge = errors.New("helius: no transaction history for address")

// Client fetches enhanced transaction history from a Helius-style REST API.
// It is the system's only view of the chain; everything downstream consumes
// the typed Transaction it returns.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewClient creates a new enhanced-transactions client.
// If m is nil, no metrics will be recorded.
func NewClient(baseURL, apiKey string, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		metrics: m,
		logger:  logger,
	}
}

// RecentTransactions returns up to limit transactions for address, newest
// first. The address must be a valid base58 public key; rejecting it here
// keeps garbage out of the rest of the pipeline.
func (c *Client) RecentTransactions(ctx context.Context, address string, limit int) ([]Transaction, error) {
	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return nil, fmt.Errorf("invalid wallet address %q: %w", address, err)
	}
	if limit <= 0 {
		limit = 50
	}

	query := url.Values{}
	query.Set("api-key", c.apiKey)
	query.Set("limit", strconv.Itoa(limit))

	txns, err := c.fetchTransactions(ctx, address, query)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "fetched transaction history",
		"address", address,
		"count", len(txns),
	)
	return txns, nil
}

// OldestKnownTransaction returns the timestamp of the oldest transaction on
// the first history page for address. This is the token-creation-time
// heuristic: the page is fetched without a type filter and its last item is
// assumed to be the genesis activity. That assumption is unverified against
// deep histories, which is why callers treat the result as best-effort.
func (c *Client) OldestKnownTransaction(ctx context.Context, address string) (time.Time, error) {
	query := url.Values{}
	query.Set("api-key", c.apiKey)
	query.Set("limit", "100")
	query.Set("type", "any")

	txns, err := c.fetchTransactions(ctx, address, query)
	if err != nil {
		return time.Time{}, err
	}
	if len(txns) == 0 {
		return time.Time{}, ErrUnknownAge
	}

	oldest := txns[len(txns)-1]
	return oldest.BlockTime(), nil
}

// fetchTransactions performs the GET with retry and backoff. Rate limits
// (429) back off harder than transient server errors, mirroring how we treat
// public RPC endpoints elsewhere.
func (c *Client) fetchTransactions(ctx context.Context, address string, query url.Values) ([]Transaction, error) {
	endpoint := fmt.Sprintf("%s/v0/addresses/%s/transactions?%s", c.baseURL, address, query.Encode())

	const maxAttempts = 3
	var lastErr error

	for attempt := range maxAttempts {
		start := time.Now()
		txns, retryable, err := c.doFetch(ctx, endpoint)
		duration := time.Since(start).Seconds()

		status := "success"
		if err != nil {
			status = "error"
		}
		if c.metrics != nil {
			c.metrics.RecordSourceCall("GetAddressTransactions", status, duration)
		}

		if err == nil {
			return txns, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second // 1s, 2s, 4s
		if errors.Is(err, errRateLimited) {
			backoff = time.Duration(2<<uint(attempt)) * time.Second // 2s, 4s, 8s
			if c.metrics != nil {
				c.metrics.RecordRateLimitHit()
			}
		}
		if c.metrics != nil {
			c.metrics.RecordSourceRetry("GetAddressTransactions")
		}

		c.logger.WarnContext(ctx, "transaction history fetch failed, backing off",
			"address", address,
			"attempt", attempt+1,
			"backoff_seconds", backoff.Seconds(),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("fetch transactions for %s: %w", address, lastErr)
}

var errRateLimited = errors.New("helius: rate limited")

// doFetch performs a single request. The bool result reports whether the
// failure is worth retrying.
func (c *Client) doFetch(ctx context.Context, endpoint string) ([]Transaction, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return nil, true, errRateLimited
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("server error: status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var txns []Transaction
	if err := json.NewDecoder(resp.Body).Decode(&txns); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}

	return txns, false, nil
}
