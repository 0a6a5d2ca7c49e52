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

type marketsResponse struct {
	Markets []marketRecord `json:"markets"`
}

type marketRecord struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	StartTime    int64  `json:"start_time"`
	CloseTime    int64  `json:"close_time"`
	ResolvedTime int64  `json:"resolved_time"`
	Status       string `json:"status"`
	Outcome      string `json:"outcome"`
}

type lastPriceResponse struct {
	Price     decValue `json:"price"`
	Timestamp int64    `json:"timestamp"`
}

// Markets lists markets whose lifetime overlaps the given window,
// optionally filtered by status.
func (c *Client) Markets(ctx context.Context, platform types.Platform, startAfter, endBefore int64, status string) ([]types.Market, error) {
	query := url.Values{}
	if startAfter > 0 {
		query.Set("start_time", strconv.FormatInt(startAfter, 10))
	}
	if endBefore > 0 {
		query.Set("end_time", strconv.FormatInt(endBefore, 10))
	}
	if status != "" {
		query.Set("status", status)
	}

	var resp marketsResponse
	if err := c.get(ctx, fmt.Sprintf("/v1/%s/markets", platform), query, &resp); err != nil {
		return nil, err
	}

	out := make([]types.Market, 0, len(resp.Markets))
	for _, m := range resp.Markets {
		out = append(out, types.Market{
			Platform:     platform,
			ID:           m.ID,
			Title:        m.Title,
			StartTime:    m.StartTime,
			CloseTime:    m.CloseTime,
			ResolvedTime: m.ResolvedTime,
			Status:       m.Status,
			Outcome:      m.Outcome,
		})
	}
	return out, nil
}

// LastPriceAt returns the last traded price at or before the given
// unix-seconds timestamp. ErrNotFound when the instrument never traded
// before that time.
func (c *Client) LastPriceAt(ctx context.Context, platform types.Platform, instrument string, at int64) (decimal.Decimal, error) {
	query := url.Values{}
	query.Set("instrument", instrument)
	query.Set("at", strconv.FormatInt(at*1000, 10)) // API uses milliseconds

	var resp lastPriceResponse
	err := c.get(ctx, fmt.Sprintf("/v1/%s/prices/last", platform), query, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return decimal.Zero, fmt.Errorf("%w: %s at %d", ErrNotFound, instrument, at)
		}
		return decimal.Zero, err
	}
	return resp.Price.value, nil
}
