package types

// Platform identifies the prediction-market venue a piece of data or a
// trade belongs to. Fee schedules and orderbook shapes are venue specific.
type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformKalshi     Platform = "kalshi"
)

// MarketClass selects the Polymarket fee tier. Kalshi ignores it.
type MarketClass string

const (
	// MarketClassGlobal is the fee-free global platform.
	MarketClassGlobal MarketClass = "global"
	// MarketClassUS is the regulated US venue (QCEX), taker fee only.
	MarketClassUS MarketClass = "us"
	// MarketClassCrypto15Min is the short-window crypto market class with
	// taker fees and maker rebates.
	MarketClassCrypto15Min MarketClass = "crypto_15min"
)
