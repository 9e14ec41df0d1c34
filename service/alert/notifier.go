package alert

import (
	"context"
	"fmt"
)

// BuyAlert carries the fields of an entry notification.
type BuyAlert struct {
	WalletAddress string
	WalletLabel   string
	TokenMint     string
	Amount        float64
	PriceUSD      float64
	ValueUSD      float64
	Signature     string
}

// SellAlert carries the fields of an exit notification: the original entry
// plus the realized outcome.
type SellAlert struct {
	WalletAddress       string
	WalletLabel         string
	TokenMint           string
	Amount              float64
	BuyPriceUSD         float64
	BuyValueUSD         float64
	SellPriceUSD        float64
	SellValueUSD        float64
	ProfitLossUSD       float64
	ProfitLossPercent   *float64 // nil when the entry price was zero
	HoldDurationSeconds int64
	Signature           string
}

// Notifier delivers buy/sell events to a messaging channel. Delivery failure
// is surfaced to the caller; the caller decides whether to retry.
type Notifier interface {
	NotifyBuy(ctx context.Context, a BuyAlert) error
	NotifySell(ctx context.Context, a SellAlert) error
}

// FormatHoldDuration renders a hold time in seconds as a compact human
// string, e.g. 187200 -> "2d 4h".
func FormatHoldDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}

	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// ShortAddress abbreviates a base58 address for display.
func ShortAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "…" + address[len(address)-4:]
}

// WalletDisplay renders a wallet for a message: its label when present,
// otherwise the shortened address.
func WalletDisplay(address, label string) string {
	if label != "" {
		return fmt.Sprintf("%s (%s)", label, ShortAddress(address))
	}
	return ShortAddress(address)
}
