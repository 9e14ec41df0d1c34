package nats

import (
	"time"

	"github.com/rickscode/whaling/service/db"
)

// Event kinds published to the POSITIONS stream.
const (
	EventPositionOpened = "position_opened"
	EventPositionClosed = "position_closed"
)

// PositionEvent is a ledger mutation published to the subject
// "positions.{wallet_address}" in JetStream. Downstream consumers get every
// open and close, independent of the notification filter.
type PositionEvent struct {
	Kind          string `json:"kind"`
	WalletAddress string `json:"wallet_address"`
	WalletLabel   string `json:"wallet_label,omitempty"`
	TokenMint     string `json:"token_mint"`

	BuySignature string    `json:"buy_signature"`
	BuyTimestamp time.Time `json:"buy_timestamp"`
	BuyPriceUSD  float64   `json:"buy_price_usd"`
	BuyAmount    float64   `json:"buy_amount"`
	BuyValueUSD  float64   `json:"buy_value_usd"`

	SellSignature       *string    `json:"sell_signature,omitempty"`
	SellTimestamp       *time.Time `json:"sell_timestamp,omitempty"`
	SellPriceUSD        *float64   `json:"sell_price_usd,omitempty"`
	SellAmount          *float64   `json:"sell_amount,omitempty"`
	SellValueUSD        *float64   `json:"sell_value_usd,omitempty"`
	HoldDurationSeconds *int64     `json:"hold_duration_seconds,omitempty"`
	ProfitLossUSD       *float64   `json:"profit_loss_usd,omitempty"`
	ProfitLossPercent   *float64   `json:"profit_loss_percent,omitempty"`

	PublishedAt time.Time `json:"published_at"`
}

// FromPosition converts a ledger position into a publishable event.
func FromPosition(kind string, label string, p *db.Position) *PositionEvent {
	return &PositionEvent{
		Kind:                kind,
		WalletAddress:       p.WalletAddress,
		WalletLabel:         label,
		TokenMint:           p.TokenMint,
		BuySignature:        p.BuySignature,
		BuyTimestamp:        p.BuyTimestamp,
		BuyPriceUSD:         p.BuyPriceUSD,
		BuyAmount:           p.BuyAmount,
		BuyValueUSD:         p.BuyValueUSD,
		SellSignature:       p.SellSignature,
		SellTimestamp:       p.SellTimestamp,
		SellPriceUSD:        p.SellPriceUSD,
		SellAmount:          p.SellAmount,
		SellValueUSD:        p.SellValueUSD,
		HoldDurationSeconds: p.HoldDurationSeconds,
		ProfitLossUSD:       p.ProfitLossUSD,
		ProfitLossPercent:   p.ProfitLossPercent,
		PublishedAt:         time.Now().UTC(),
	}
}
