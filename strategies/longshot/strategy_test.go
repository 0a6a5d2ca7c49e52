package longshot

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tweidv/backtest-service/internal/engine"
	"github.com/tweidv/backtest-service/types"
)

// phasedSource serves a cheap, illiquid book early in the run and a repriced
// one from repriceAt onward.
type phasedSource struct {
	repriceAt int64
	early     *types.Orderbook
	late      *types.Orderbook
}

func (s *phasedSource) OrderbookAt(ctx context.Context, platform types.Platform, instrument string, atOrBefore int64) (*types.Orderbook, error) {
	if atOrBefore < s.repriceAt {
		return s.early, nil
	}
	return s.late, nil
}

func (s *phasedSource) LastPriceAt(ctx context.Context, platform types.Platform, instrument string, at int64) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("no trades recorded")
}

func (s *phasedSource) Markets(ctx context.Context, platform types.Platform, startAfter, endBefore int64, status string) ([]types.Market, error) {
	return nil, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func book(bid, bidSize, ask, askSize string) *types.Orderbook {
	return &types.Orderbook{
		Platform:   types.PlatformPolymarket,
		Instrument: "tok-1",
		Bids:       []types.PriceLevel{{Price: dec(bid), Size: dec(bidSize)}},
		Asks:       []types.PriceLevel{{Price: dec(ask), Size: dec(askSize)}},
	}
}

func TestLongshotRoundTrip(t *testing.T) {
	source := &phasedSource{
		repriceAt: 500,
		early:     book("0.05", "500", "0.10", "500"),
		late:      book("0.60", "500", "0.70", "500"),
	}

	strat := New(Config{
		Platform:    types.PlatformPolymarket,
		Instruments: []string{"tok-1"},
		MarketClass: types.MarketClassGlobal,
		MaxEntry:    dec("0.15"),
		TakeProfit:  dec("0.50"),
		Size:        dec("100"),
	})

	cfg := engine.NewRunConfig(0, 900, 100, dec("1000"), false)
	eng := engine.NewEngine(cfg, strat, source, engine.WithProgressBar(false))

	result, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(result.Trades) != 2 {
		t.Fatalf("trades = %d, want entry and exit", len(result.Trades))
	}
	entry, exit := result.Trades[0], result.Trades[1]
	if entry.Side != types.SideTypeBuy || !entry.Price.Equal(dec("0.10")) {
		t.Errorf("entry = %s @ %s, want BUY @ 0.10", entry.Side, entry.Price)
	}
	if exit.Side != types.SideTypeSell || !exit.Price.Equal(dec("0.60")) {
		t.Errorf("exit = %s @ %s, want SELL @ 0.60", exit.Side, exit.Price)
	}

	// 100 contracts bought at 0.10 and sold at 0.60 on $1,000.
	if !result.FinalValue.Equal(dec("1050")) {
		t.Errorf("final value = %s, want 1050", result.FinalValue)
	}
}

func TestLongshotSkipsExpensiveEntries(t *testing.T) {
	source := &phasedSource{
		repriceAt: 0,
		late:      book("0.40", "500", "0.45", "500"),
	}

	strat := New(Config{
		Platform:    types.PlatformPolymarket,
		Instruments: []string{"tok-1"},
		MaxEntry:    dec("0.15"),
		TakeProfit:  dec("0.50"),
		Size:        dec("100"),
	})

	cfg := engine.NewRunConfig(0, 300, 100, dec("1000"), false)
	eng := engine.NewEngine(cfg, strat, source, engine.WithProgressBar(false))

	result, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.Trades) != 0 {
		t.Errorf("trades = %d, want 0 above the entry threshold", len(result.Trades))
	}
}
