package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/tweidv/backtest-service/types"
)

// orderbooksResponse is the wire shape of the orderbooks endpoint. Both
// venues return a list of snapshots newest-first; levels are [price, size]
// pairs. Polymarket prices are dollar strings, Kalshi prices are integer
// cents under a yes/no structure.
type orderbooksResponse struct {
	Snapshots []orderbookSnapshot `json:"snapshots"`
}

type orderbookSnapshot struct {
	Timestamp int64             `json:"timestamp"` // milliseconds
	Bids      [][2]decValue     `json:"bids,omitempty"`
	Asks      [][2]decValue     `json:"asks,omitempty"`
	Orderbook *kalshiBookLevels `json:"orderbook,omitempty"`
}

type kalshiBookLevels struct {
	Yes [][2]decValue `json:"yes"`
	No  [][2]decValue `json:"no"`
}

// decValue accepts the number-or-string values the upstream API emits for
// prices and sizes.
type decValue struct {
	value decimal.Decimal
}

func (j *decValue) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("parse level value %q: %w", s, err)
	}
	j.value = d
	return nil
}

// OrderbookAt fetches the most recent orderbook snapshot at or before the
// given unix-seconds timestamp. It returns (nil, nil) when no snapshot
// exists, which the simulation treats as no liquidity.
func (c *Client) OrderbookAt(ctx context.Context, platform types.Platform, instrument string, atOrBefore int64) (*types.Orderbook, error) {
	query := url.Values{}
	query.Set("end_time", strconv.FormatInt(atOrBefore*1000, 10)) // API uses milliseconds
	query.Set("limit", "1")
	switch platform {
	case types.PlatformPolymarket:
		query.Set("token_id", instrument)
	case types.PlatformKalshi:
		query.Set("ticker", instrument)
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}

	var resp orderbooksResponse
	err := c.get(ctx, fmt.Sprintf("/v1/%s/orderbooks", platform), query, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	for _, snapshot := range resp.Snapshots {
		if snapshot.Timestamp > atOrBefore*1000 {
			continue
		}
		return convertOrderbook(platform, instrument, snapshot), nil
	}
	return nil, nil
}

func convertOrderbook(platform types.Platform, instrument string, snapshot orderbookSnapshot) *types.Orderbook {
	ob := &types.Orderbook{
		Platform:   platform,
		Instrument: instrument,
		Timestamp:  snapshot.Timestamp / 1000,
	}

	switch platform {
	case types.PlatformPolymarket:
		ob.Bids = convertLevels(snapshot.Bids, decimal.NewFromInt(1))
		ob.Asks = convertLevels(snapshot.Asks, decimal.NewFromInt(1))
	case types.PlatformKalshi:
		if snapshot.Orderbook != nil {
			// Kalshi levels are priced in cents.
			cents := decimal.NewFromInt(100)
			ob.YesBids = convertLevels(snapshot.Orderbook.Yes, cents)
			ob.NoBids = convertLevels(snapshot.Orderbook.No, cents)
		}
	}
	return ob
}

func convertLevels(levels [][2]decValue, priceScale decimal.Decimal) []types.PriceLevel {
	out := make([]types.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, types.PriceLevel{
			Price: lvl[0].value.Div(priceScale),
			Size:  lvl[1].value,
		})
	}
	return out
}
