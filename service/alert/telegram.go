package alert

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// telegramAPI is the slice of the bot API we use, extracted so tests can
// substitute a fake without a live bot token.
type telegramAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier formats buy/sell alerts and delivers them to a Telegram
// chat. It implements Notifier.
type TelegramNotifier struct {
	api    telegramAPI
	chatID string
	logger *slog.Logger
}

// NewTelegramNotifier creates a notifier for the given bot token and chat.
func NewTelegramNotifier(token, chatID string, logger *slog.Logger) (*TelegramNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	logger.Info("telegram notifier initialized", "chat_id", chatID)

	return &TelegramNotifier{
		api:    b,
		chatID: chatID,
		logger: logger,
	}, nil
}

// NotifyBuy delivers an entry alert.
func (n *TelegramNotifier) NotifyBuy(ctx context.Context, a BuyAlert) error {
	if err := n.send(ctx, BuildBuyMessage(a)); err != nil {
		return fmt.Errorf("send buy alert: %w", err)
	}

	n.logger.InfoContext(ctx, "sent buy alert",
		"wallet", a.WalletAddress,
		"mint", a.TokenMint,
		"value_usd", a.ValueUSD,
	)
	return nil
}

// NotifySell delivers an exit alert.
func (n *TelegramNotifier) NotifySell(ctx context.Context, a SellAlert) error {
	if err := n.send(ctx, BuildSellMessage(a)); err != nil {
		return fmt.Errorf("send sell alert: %w", err)
	}

	n.logger.InfoContext(ctx, "sent sell alert",
		"wallet", a.WalletAddress,
		"mint", a.TokenMint,
		"profit_loss_usd", a.ProfitLossUSD,
	)
	return nil
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	_, err := n.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	return err
}

// BuildBuyMessage renders the entry alert body.
func BuildBuyMessage(a BuyAlert) string {
	var sb strings.Builder

	sb.WriteString("🐋 <b>Whale Buy</b>\n\n")
	fmt.Fprintf(&sb, "<b>Wallet:</b> %s\n", escapeHTML(WalletDisplay(a.WalletAddress, a.WalletLabel)))
	fmt.Fprintf(&sb, "<b>Token:</b> <code>%s</code>\n", escapeHTML(a.TokenMint))
	fmt.Fprintf(&sb, "<b>Amount:</b> %s\n", formatAmount(a.Amount))
	fmt.Fprintf(&sb, "<b>Price:</b> %s\n", formatPrice(a.PriceUSD))
	fmt.Fprintf(&sb, "<b>Value:</b> %s\n\n", formatUSD(a.ValueUSD))
	fmt.Fprintf(&sb, `<a href="https://solscan.io/tx/%s">View transaction</a>`, a.Signature)

	return sb.String()
}

// BuildSellMessage renders the exit alert body.
func BuildSellMessage(a SellAlert) string {
	var sb strings.Builder

	arrow := "🟢"
	if a.ProfitLossUSD < 0 {
		arrow = "🔴"
	}

	sb.WriteString("🐋 <b>Whale Sell</b>\n\n")
	fmt.Fprintf(&sb, "<b>Wallet:</b> %s\n", escapeHTML(WalletDisplay(a.WalletAddress, a.WalletLabel)))
	fmt.Fprintf(&sb, "<b>Token:</b> <code>%s</code>\n", escapeHTML(a.TokenMint))
	fmt.Fprintf(&sb, "<b>Amount:</b> %s\n", formatAmount(a.Amount))
	fmt.Fprintf(&sb, "<b>Entry:</b> %s at %s\n", formatUSD(a.BuyValueUSD), formatPrice(a.BuyPriceUSD))
	fmt.Fprintf(&sb, "<b>Exit:</b> %s at %s\n", formatUSD(a.SellValueUSD), formatPrice(a.SellPriceUSD))

	if a.ProfitLossPercent != nil {
		fmt.Fprintf(&sb, "%s <b>P&amp;L:</b> %s (%.2f%%)\n", arrow, formatUSD(a.ProfitLossUSD), *a.ProfitLossPercent)
	} else {
		fmt.Fprintf(&sb, "%s <b>P&amp;L:</b> %s\n", arrow, formatUSD(a.ProfitLossUSD))
	}

	fmt.Fprintf(&sb, "<b>Held:</b> %s\n\n", FormatHoldDuration(a.HoldDurationSeconds))
	fmt.Fprintf(&sb, `<a href="https://solscan.io/tx/%s">View transaction</a>`, a.Signature)

	return sb.String()
}

func formatUSD(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}

func formatPrice(p float64) string {
	return "$" + strconv.FormatFloat(p, 'f', -1, 64)
}

func formatAmount(a float64) string {
	return strconv.FormatFloat(a, 'f', -1, 64)
}

func escapeHTML(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return replacer.Replace(s)
}
