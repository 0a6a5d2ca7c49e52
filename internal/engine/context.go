package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tweidv/backtest-service/types"
)

// SimulationContext bundles the per-run simulation state: clock, ledger,
// orderbook simulator and order manager are constructed together at run
// start and live exactly as long as the run. It is the object handed to the
// strategy callback each tick.
type SimulationContext struct {
	clock  *SimulationClock
	ledger *ledger
	books  *OrderbookSimulator
	orders *OrderManager
	source MarketDataSource
}

// Now returns the current simulated time in unix seconds.
func (s *SimulationContext) Now() int64 {
	return s.clock.Now()
}

// Portfolio returns a read-only snapshot of the ledger.
func (s *SimulationContext) Portfolio() types.PortfolioView {
	return s.ledger.GetPortfolioSnapshot()
}

// Position returns a snapshot of one position, or false when none is held.
func (s *SimulationContext) Position(instrument string) (types.PositionSnapshot, bool) {
	pos := s.ledger.Position(instrument)
	if pos == nil {
		return types.PositionSnapshot{}, false
	}
	return types.PositionSnapshot{
		Instrument: pos.Instrument,
		Platform:   pos.Platform,
		Quantity:   pos.Quantity,
		AvgPrice:   pos.AvgPrice,
		CostBasis:  pos.CostBasis,
	}, true
}

// Buy executes an immediate taker buy against the ledger at the given
// price. Strategies that want book-aware matching use CreateOrder instead.
func (s *SimulationContext) Buy(platform types.Platform, instrument string, quantity, price decimal.Decimal, class types.MarketClass) error {
	return s.ledger.Buy(platform, instrument, quantity, price, s.clock.Now(), types.LiquidityTaker, class)
}

// Sell executes an immediate taker sell against the ledger at the given price.
func (s *SimulationContext) Sell(platform types.Platform, instrument string, quantity, price decimal.Decimal, class types.MarketClass) error {
	return s.ledger.Sell(platform, instrument, quantity, price, s.clock.Now(), types.LiquidityTaker, class)
}

// CreateOrder submits an order to the order manager.
func (s *SimulationContext) CreateOrder(ctx context.Context, req OrderRequest) (*SimulatedOrder, error) {
	return s.orders.CreateOrder(ctx, req)
}

// CancelOrder cancels a resting order by ID.
func (s *SimulationContext) CancelOrder(orderID string) *SimulatedOrder {
	return s.orders.CancelOrder(orderID)
}

// PendingOrders lists the currently resting orders.
func (s *SimulationContext) PendingOrders() []*SimulatedOrder {
	return s.orders.PendingOrders()
}

// Orderbook returns the most recent snapshot at or before the simulated now.
func (s *SimulationContext) Orderbook(ctx context.Context, platform types.Platform, instrument string) (*types.Orderbook, error) {
	return s.books.GetOrderbook(ctx, platform, instrument, s.clock.Now())
}

// BestPrice returns the best executable price for the side, or false when
// the book has no liquidity.
func (s *SimulationContext) BestPrice(ctx context.Context, platform types.Platform, instrument string, side types.Side) (decimal.Decimal, bool) {
	ob, err := s.books.GetOrderbook(ctx, platform, instrument, s.clock.Now())
	if err != nil {
		return decimal.Zero, false
	}
	return s.books.BestPrice(ob, instrument, side)
}

// LastPrice returns the last traded price at or before the simulated now.
// It is the fallback when no orderbook snapshot exists.
func (s *SimulationContext) LastPrice(ctx context.Context, platform types.Platform, instrument string) (decimal.Decimal, error) {
	return s.source.LastPriceAt(ctx, platform, instrument, s.clock.Now())
}

// Markets lists markets for strategy discovery. The simulation core itself
// never calls this.
func (s *SimulationContext) Markets(ctx context.Context, platform types.Platform, startAfter, endBefore int64, status string) ([]types.Market, error) {
	return s.source.Markets(ctx, platform, startAfter, endBefore, status)
}
