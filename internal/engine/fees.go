package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tweidv/backtest-service/types"
)

var PriceOutOfRangeErr = errors.New("contract price must be between 0 and 1")

var (
	polymarketUSTakerRate     = decimal.NewFromFloat(0.0001) // 0.01%
	polymarketCryptoTakerRate = decimal.NewFromFloat(0.001)  // 0.1%
	polymarketCryptoMakerRate = decimal.NewFromFloat(0.0005) // 0.05% rebate

	kalshiFeeRate = decimal.NewFromFloat(0.07)
	oneHundred    = decimal.NewFromInt(100)
)

// CalculatePolymarketFee returns the fee for a trade of the given value on
// the given market class. The global platform charges nothing. The US venue
// charges takers only. Short-window crypto markets charge takers and pay
// makers a rebate, returned as a negative fee.
func CalculatePolymarketFee(tradeValue decimal.Decimal, class types.MarketClass, liq types.Liquidity) decimal.Decimal {
	switch class {
	case types.MarketClassUS:
		if liq == types.LiquidityTaker {
			return tradeValue.Mul(polymarketUSTakerRate)
		}
		return decimal.Zero
	case types.MarketClassCrypto15Min:
		if liq == types.LiquidityTaker {
			return tradeValue.Mul(polymarketCryptoTakerRate)
		}
		return tradeValue.Mul(polymarketCryptoMakerRate).Neg()
	default:
		// MarketClassGlobal and anything unknown: no fee.
		return decimal.Zero
	}
}

// CalculateKalshiFee implements the official Kalshi fee formula
//
//	round_up(0.07 * contracts * price * (1 - price))
//
// rounded up to the next cent. The quadratic term peaks at 50c, so 50/50
// contracts pay the most and longshots the least. Price is in dollars on
// [0,1]; anything outside that range is an error.
func CalculateKalshiFee(contracts, price decimal.Decimal) (decimal.Decimal, error) {
	if price.IsNegative() || price.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%w, got %s", PriceOutOfRangeErr, price)
	}

	fee := kalshiFeeRate.Mul(contracts).Mul(price).Mul(decimal.NewFromInt(1).Sub(price))

	// Round up to the nearest cent, never to nearest.
	return fee.Mul(oneHundred).Ceil().Div(oneHundred), nil
}
