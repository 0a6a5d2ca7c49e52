package types

import (
	"github.com/shopspring/decimal"
)

// PriceLevel is a single price+size entry in an orderbook. Prices are in
// dollars on the [0,1] probability scale for both venues.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Orderbook is a point-in-time snapshot of resting liquidity for one
// instrument. Polymarket books carry Bids/Asks directly. Kalshi binary books
// carry the resting bids of both outcome sides; the ask side of one outcome
// is derived from the opposing outcome's bids (price = 1 - opposing bid).
type Orderbook struct {
	Platform   Platform
	Instrument string
	Timestamp  int64 // unix seconds of the snapshot

	// Polymarket, sorted best to worst.
	Bids []PriceLevel
	Asks []PriceLevel

	// Kalshi, sorted best to worst.
	YesBids []PriceLevel
	NoBids  []PriceLevel
}
