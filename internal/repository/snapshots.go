package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/tweidv/backtest-service/types"
)

// OrderbookAt returns the most recent recorded snapshot for the instrument
// at or before the given unix-seconds timestamp, or (nil, nil) when the
// store has none, matching the remote client's contract.
func (db *Database) OrderbookAt(ctx context.Context, platform types.Platform, instrument string, atOrBefore int64) (*types.Orderbook, error) {
	row := db.conn.QueryRow(ctx, `
		SELECT ts, bids, asks, yes_bids, no_bids
		FROM orderbook_snapshots
		WHERE platform = $1 AND instrument = $2 AND ts <= $3
		ORDER BY ts DESC
		LIMIT 1`,
		string(platform), instrument, atOrBefore,
	)

	var (
		ts     int64
		levels [4][]byte
	)
	if err := row.Scan(&ts, &levels[0], &levels[1], &levels[2], &levels[3]); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query orderbook snapshot: %w", err)
	}

	ob := &types.Orderbook{
		Platform:   platform,
		Instrument: instrument,
		Timestamp:  ts,
	}
	for i, dst := range []*[]types.PriceLevel{&ob.Bids, &ob.Asks, &ob.YesBids, &ob.NoBids} {
		parsed, err := decodeLevels(levels[i])
		if err != nil {
			return nil, fmt.Errorf("decode snapshot levels: %w", err)
		}
		*dst = parsed
	}
	return ob, nil
}

// LastPriceAt returns the latest recorded trade price at or before the
// given timestamp.
func (db *Database) LastPriceAt(ctx context.Context, platform types.Platform, instrument string, at int64) (decimal.Decimal, error) {
	row := db.conn.QueryRow(ctx, `
		SELECT price
		FROM trades
		WHERE platform = $1 AND instrument = $2 AND ts <= $3
		ORDER BY ts DESC
		LIMIT 1`,
		string(platform), instrument, at,
	)

	var price decimal.Decimal
	if err := row.Scan(&price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%s at %d: %w", instrument, at, ErrNoPrice)
		}
		return decimal.Zero, fmt.Errorf("query last price: %w", err)
	}
	return price, nil
}

// Markets lists recorded markets whose lifetime overlaps the window,
// optionally filtered by status.
func (db *Database) Markets(ctx context.Context, platform types.Platform, startAfter, endBefore int64, status string) ([]types.Market, error) {
	rows, err := db.conn.Query(ctx, `
		SELECT id, title, start_time, close_time, resolved_time, status, outcome
		FROM markets
		WHERE platform = $1
		  AND ($2 = 0 OR close_time >= $2)
		  AND ($3 = 0 OR start_time <= $3)
		  AND ($4 = '' OR status = $4)
		ORDER BY start_time`,
		string(platform), startAfter, endBefore, status,
	)
	if err != nil {
		return nil, fmt.Errorf("query markets: %w", err)
	}
	defer rows.Close()

	var out []types.Market
	for rows.Next() {
		m := types.Market{Platform: platform}
		if err := rows.Scan(&m.ID, &m.Title, &m.StartTime, &m.CloseTime, &m.ResolvedTime, &m.Status, &m.Outcome); err != nil {
			return nil, fmt.Errorf("scan market: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// decodeLevels parses a jsonb [[price, size], ...] array. Values are stored
// as strings to keep decimal precision through the round trip.
func decodeLevels(raw []byte) ([]types.PriceLevel, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var pairs [][2]string
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, err
	}

	out := make([]types.PriceLevel, 0, len(pairs))
	for _, pair := range pairs {
		price, err := decimal.NewFromString(pair[0])
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", pair[0], err)
		}
		size, err := decimal.NewFromString(pair[1])
		if err != nil {
			return nil, fmt.Errorf("parse size %q: %w", pair[1], err)
		}
		out = append(out, types.PriceLevel{Price: price, Size: size})
	}
	return out, nil
}
