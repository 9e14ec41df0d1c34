package helius

import "time"

// Transaction is one entry from the enhanced transaction history of an address.
// The signature is the natural key across the whole system.
type Transaction struct {
	Signature        string            `json:"signature"`
	Timestamp        int64             `json:"timestamp"` // unix seconds
	Type             string            `json:"type"`      // "SWAP", "TRANSFER", ...
	Source           string            `json:"source,omitempty"`
	Fee              int64             `json:"fee,omitempty"`
	TransactionError *TransactionError `json:"transactionError,omitempty"`
	TokenTransfers   []TokenTransfer   `json:"tokenTransfers"`
	NativeTransfers  []NativeTransfer  `json:"nativeTransfers"`
}

// TransactionError is the on-chain failure payload. A non-nil value means the
// transaction failed and is inert for classification purposes.
type TransactionError struct {
	Error string `json:"error,omitempty"`
}

// TokenTransfer is an SPL token movement between user-level accounts.
// TokenAmount is already scaled by the mint's decimals.
type TokenTransfer struct {
	FromUserAccount string  `json:"fromUserAccount"`
	ToUserAccount   string  `json:"toUserAccount"`
	Mint            string  `json:"mint"`
	TokenAmount     float64 `json:"tokenAmount"`
	TokenStandard   string  `json:"tokenStandard,omitempty"`
}

// NativeTransfer is a SOL movement. Amount is in lamports.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"`
}

// Failed reports whether the transaction errored on chain.
func (t *Transaction) Failed() bool {
	return t.TransactionError != nil
}

// BlockTime returns the transaction timestamp as a time.Time.
func (t *Transaction) BlockTime() time.Time {
	return time.Unix(t.Timestamp, 0).UTC()
}
