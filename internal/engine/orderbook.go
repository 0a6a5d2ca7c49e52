package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tweidv/backtest-service/types"
)

// MarketDataSource is the collaborator boundary: it answers point-in-time
// questions about historical markets. Implementations fetch from the
// historical data API or from a local snapshot store; either way every
// response is bounded by the at-or-before timestamp, which is how the
// no-lookahead invariant is enforced.
type MarketDataSource interface {
	OrderbookAt(ctx context.Context, platform types.Platform, instrument string, atOrBefore int64) (*types.Orderbook, error)
	LastPriceAt(ctx context.Context, platform types.Platform, instrument string, at int64) (decimal.Decimal, error)
	Markets(ctx context.Context, platform types.Platform, startAfter, endBefore int64, status string) ([]types.Market, error)
}

// OrderbookSimulator answers fill and price queries against historical
// snapshots. Snapshots are cached per (instrument, timestamp) so repeated
// lookups within one tick hit the source once. A failed fetch is surfaced
// as a missing book, which the order manager treats as no liquidity.
type OrderbookSimulator struct {
	source MarketDataSource
	cache  map[string]*types.Orderbook
}

func NewOrderbookSimulator(source MarketDataSource) *OrderbookSimulator {
	return &OrderbookSimulator{
		source: source,
		cache:  make(map[string]*types.Orderbook),
	}
}

// GetOrderbook returns the most recent snapshot at or before the given time,
// or nil when none exists or the fetch failed.
func (s *OrderbookSimulator) GetOrderbook(ctx context.Context, platform types.Platform, instrument string, atOrBefore int64) (*types.Orderbook, error) {
	key := fmt.Sprintf("%s:%s:%d", platform, instrument, atOrBefore)
	if ob, ok := s.cache[key]; ok {
		return ob, nil
	}

	ticker := instrument
	if platform == types.PlatformKalshi {
		ticker, _ = splitKalshiInstrument(instrument)
	}

	ob, err := s.source.OrderbookAt(ctx, platform, ticker, atOrBefore)
	if err != nil {
		return nil, err
	}
	s.cache[key] = ob
	return ob, nil
}

// CanFill reports whether the cumulative contra-side quantity at prices
// at-or-better than the limit covers the full requested size. The model
// fills entirely at the limit price; it deliberately does not walk price
// levels for a volume-weighted average.
func (s *OrderbookSimulator) CanFill(ob *types.Orderbook, instrument string, side types.Side, limitPrice, size decimal.Decimal) bool {
	return s.AvailableAt(ob, instrument, side, limitPrice).GreaterThanOrEqual(size)
}

// AvailableAt sums the contra-side quantity executable at or better than
// the limit price.
func (s *OrderbookSimulator) AvailableAt(ob *types.Orderbook, instrument string, side types.Side, limitPrice decimal.Decimal) decimal.Decimal {
	if ob == nil {
		return decimal.Zero
	}

	available := decimal.Zero
	switch ob.Platform {
	case types.PlatformPolymarket:
		if side == types.SideTypeBuy {
			// Buying: sellers at or below the limit.
			for _, lvl := range ob.Asks {
				if lvl.Price.LessThanOrEqual(limitPrice) {
					available = available.Add(lvl.Size)
				}
			}
		} else {
			// Selling: buyers at or above the limit.
			for _, lvl := range ob.Bids {
				if lvl.Price.GreaterThanOrEqual(limitPrice) {
					available = available.Add(lvl.Size)
				}
			}
		}

	case types.PlatformKalshi:
		_, outcome := splitKalshiInstrument(instrument)
		same, opposing := kalshiSides(ob, outcome)
		if side == types.SideTypeBuy {
			// Buying one outcome consumes the opposing outcome's bids:
			// a resting NO bid at q sells YES at 1-q.
			for _, lvl := range opposing {
				if decimal.NewFromInt(1).Sub(lvl.Price).LessThanOrEqual(limitPrice) {
					available = available.Add(lvl.Size)
				}
			}
		} else {
			// Selling hits the direct bids for the same outcome.
			for _, lvl := range same {
				if lvl.Price.GreaterThanOrEqual(limitPrice) {
					available = available.Add(lvl.Size)
				}
			}
		}
	}
	return available
}

// BestPrice returns the best executable contra price for the side: the
// lowest ask analog for buys, the highest bid analog for sells. Kalshi
// buys derive their price from the opposing side's best bid. The second
// return is false when there is no liquidity at all.
func (s *OrderbookSimulator) BestPrice(ob *types.Orderbook, instrument string, side types.Side) (decimal.Decimal, bool) {
	if ob == nil {
		return decimal.Zero, false
	}

	switch ob.Platform {
	case types.PlatformPolymarket:
		if side == types.SideTypeBuy {
			if len(ob.Asks) == 0 {
				return decimal.Zero, false
			}
			return ob.Asks[0].Price, true
		}
		if len(ob.Bids) == 0 {
			return decimal.Zero, false
		}
		return ob.Bids[0].Price, true

	case types.PlatformKalshi:
		_, outcome := splitKalshiInstrument(instrument)
		same, opposing := kalshiSides(ob, outcome)
		if side == types.SideTypeBuy {
			if len(opposing) == 0 {
				return decimal.Zero, false
			}
			return decimal.NewFromInt(1).Sub(opposing[0].Price), true
		}
		if len(same) == 0 {
			return decimal.Zero, false
		}
		return same[0].Price, true
	}
	return decimal.Zero, false
}

// kalshiSides returns the resting bids for the instrument's own outcome and
// for the opposing outcome.
func kalshiSides(ob *types.Orderbook, outcome string) (same, opposing []types.PriceLevel) {
	if outcome == "NO" {
		return ob.NoBids, ob.YesBids
	}
	return ob.YesBids, ob.NoBids
}

// splitKalshiInstrument splits a composite "TICKER:YES" instrument ID into
// ticker and outcome. A bare ticker defaults to the YES side.
func splitKalshiInstrument(instrument string) (ticker, outcome string) {
	if i := strings.LastIndex(instrument, ":"); i >= 0 {
		return instrument[:i], strings.ToUpper(instrument[i+1:])
	}
	return instrument, "YES"
}
