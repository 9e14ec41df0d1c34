package classify

import "time"

// PriceOracle supplies the USD price of the chain's native asset. The
// classifier only needs it when a trade has no stablecoin leg to price
// against, so the derived value is explicitly an estimate.
type PriceOracle interface {
	NativeAssetUSDPrice(at time.Time) float64
}

// StaticOracle returns a fixed price regardless of the requested time.
// It stands in until a real feed is integrated; swapping it out does not
// touch the classifier.
type StaticOracle struct {
	Price float64
}

// NativeAssetUSDPrice returns the configured static price.
func (o StaticOracle) NativeAssetUSDPrice(time.Time) float64 {
	return o.Price
}
