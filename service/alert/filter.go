package alert

// Filter decides which classified trades are worth forwarding to the
// notification channel.
type Filter struct {
	// MinBuyValueUSD suppresses noise from small or test-sized entries.
	MinBuyValueUSD float64
}

// ShouldNotifyBuy reports whether a buy of the given USD value clears the
// configured threshold.
func (f Filter) ShouldNotifyBuy(valueUSD float64) bool {
	return valueUSD >= f.MinBuyValueUSD
}

// ShouldNotifySell always reports true. Every exit from a tracked whale is
// signal-worthy regardless of size: exits reveal conviction changes that
// entries alone don't.
func (f Filter) ShouldNotifySell() bool {
	return true
}
