package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tweidv/backtest-service/types"
)

// stubSource is an in-memory MarketDataSource keyed by instrument. It
// records every requested timestamp so tests can assert the no-lookahead
// bound.
type stubSource struct {
	books        map[string]*types.Orderbook
	lastPrices   map[string]decimal.Decimal
	markets      []types.Market
	fetchErr     error
	calls        int
	requestedAts []int64
}

func newStubSource() *stubSource {
	return &stubSource{
		books:      make(map[string]*types.Orderbook),
		lastPrices: make(map[string]decimal.Decimal),
	}
}

func (s *stubSource) OrderbookAt(ctx context.Context, platform types.Platform, instrument string, atOrBefore int64) (*types.Orderbook, error) {
	s.calls++
	s.requestedAts = append(s.requestedAts, atOrBefore)
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.books[instrument], nil
}

func (s *stubSource) LastPriceAt(ctx context.Context, platform types.Platform, instrument string, at int64) (decimal.Decimal, error) {
	s.requestedAts = append(s.requestedAts, at)
	price, ok := s.lastPrices[instrument]
	if !ok {
		return decimal.Zero, errors.New("no price")
	}
	return price, nil
}

func (s *stubSource) Markets(ctx context.Context, platform types.Platform, startAfter, endBefore int64, status string) ([]types.Market, error) {
	return s.markets, nil
}

func levels(pairs ...string) []types.PriceLevel {
	var out []types.PriceLevel
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, types.PriceLevel{
			Price: dec(pairs[i]),
			Size:  dec(pairs[i+1]),
		})
	}
	return out
}

func polymarketBook(instrument string, bids, asks []types.PriceLevel) *types.Orderbook {
	return &types.Orderbook{
		Platform:   types.PlatformPolymarket,
		Instrument: instrument,
		Bids:       bids,
		Asks:       asks,
	}
}

func kalshiBook(ticker string, yesBids, noBids []types.PriceLevel) *types.Orderbook {
	return &types.Orderbook{
		Platform:   types.PlatformKalshi,
		Instrument: ticker,
		YesBids:    yesBids,
		NoBids:     noBids,
	}
}

func TestOrderbookSimulatorCache(t *testing.T) {
	source := newStubSource()
	source.books["tok-1"] = polymarketBook("tok-1", nil, levels("0.40", "100"))
	sim := NewOrderbookSimulator(source)

	for i := 0; i < 3; i++ {
		if _, err := sim.GetOrderbook(context.Background(), types.PlatformPolymarket, "tok-1", 5000); err != nil {
			t.Fatalf("GetOrderbook() error: %v", err)
		}
	}
	if source.calls != 1 {
		t.Errorf("source fetched %d times for identical key, want 1", source.calls)
	}

	// A different timestamp is a different cache key.
	if _, err := sim.GetOrderbook(context.Background(), types.PlatformPolymarket, "tok-1", 6000); err != nil {
		t.Fatalf("GetOrderbook() error: %v", err)
	}
	if source.calls != 2 {
		t.Errorf("source fetched %d times after new timestamp, want 2", source.calls)
	}
}

func TestPolymarketCanFill(t *testing.T) {
	sim := NewOrderbookSimulator(newStubSource())
	book := polymarketBook("tok-1",
		levels("0.38", "50", "0.35", "200"),
		levels("0.42", "60", "0.45", "100"),
	)

	tests := []struct {
		name  string
		side  types.Side
		limit string
		size  string
		want  bool
	}{
		{"buy within best ask depth", types.SideTypeBuy, "0.42", "60", true},
		{"buy exceeding level needs higher limit", types.SideTypeBuy, "0.42", "61", false},
		{"buy across two levels", types.SideTypeBuy, "0.45", "160", true},
		{"buy limit below all asks", types.SideTypeBuy, "0.40", "1", false},
		{"sell into best bid", types.SideTypeSell, "0.38", "50", true},
		{"sell across bids", types.SideTypeSell, "0.35", "250", true},
		{"sell limit above all bids", types.SideTypeSell, "0.39", "1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sim.CanFill(book, "tok-1", tt.side, dec(tt.limit), dec(tt.size))
			if got != tt.want {
				t.Errorf("CanFill(%s %s@%s) = %v, want %v", tt.side, tt.size, tt.limit, got, tt.want)
			}
		})
	}
}

func TestKalshiCrossSideConversion(t *testing.T) {
	sim := NewOrderbookSimulator(newStubSource())
	// NO bids at 55c mean YES is buyable at 45c.
	book := kalshiBook("ELEC",
		levels("0.40", "100"), // YES bids
		levels("0.55", "80"),  // NO bids
	)

	price, ok := sim.BestPrice(book, "ELEC:YES", types.SideTypeBuy)
	if !ok || !price.Equal(dec("0.45")) {
		t.Errorf("YES buy price = %s (%v), want 0.45 from NO bid", price, ok)
	}

	price, ok = sim.BestPrice(book, "ELEC:YES", types.SideTypeSell)
	if !ok || !price.Equal(dec("0.40")) {
		t.Errorf("YES sell price = %s (%v), want direct YES bid 0.40", price, ok)
	}

	price, ok = sim.BestPrice(book, "ELEC:NO", types.SideTypeBuy)
	if !ok || !price.Equal(dec("0.60")) {
		t.Errorf("NO buy price = %s (%v), want 0.60 from YES bid", price, ok)
	}

	if !sim.CanFill(book, "ELEC:YES", types.SideTypeBuy, dec("0.45"), dec("80")) {
		t.Error("YES buy at 0.45 for 80 should fill from NO bids")
	}
	if sim.CanFill(book, "ELEC:YES", types.SideTypeBuy, dec("0.44"), dec("1")) {
		t.Error("YES buy below converted price should not fill")
	}
	if sim.CanFill(book, "ELEC:YES", types.SideTypeBuy, dec("0.45"), dec("81")) {
		t.Error("YES buy beyond NO bid depth should not fill")
	}
}

func TestKalshiNoLiquidityEitherSide(t *testing.T) {
	sim := NewOrderbookSimulator(newStubSource())
	book := kalshiBook("EMPTY", nil, nil)

	if _, ok := sim.BestPrice(book, "EMPTY:YES", types.SideTypeBuy); ok {
		t.Error("empty book should have no buy price")
	}
	if _, ok := sim.BestPrice(book, "EMPTY:YES", types.SideTypeSell); ok {
		t.Error("empty book should have no sell price")
	}
}

func TestNilOrderbookQueries(t *testing.T) {
	sim := NewOrderbookSimulator(newStubSource())

	if sim.CanFill(nil, "tok-1", types.SideTypeBuy, dec("0.50"), dec("1")) {
		t.Error("nil book should never fill")
	}
	if _, ok := sim.BestPrice(nil, "tok-1", types.SideTypeBuy); ok {
		t.Error("nil book should have no price")
	}
}

func TestOrderbookFetchErrorPropagates(t *testing.T) {
	source := newStubSource()
	source.fetchErr = errors.New("upstream down")
	sim := NewOrderbookSimulator(source)

	if _, err := sim.GetOrderbook(context.Background(), types.PlatformPolymarket, "tok-1", 5000); err == nil {
		t.Error("expected fetch error to propagate")
	}
}
