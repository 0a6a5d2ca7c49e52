package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tweidv/backtest-service/types"
)

var InvalidOrderErr = errors.New("invalid order parameters")

// OrderRequest carries the strategy-supplied parameters for a new order.
// A nil LimitPrice means a market order.
type OrderRequest struct {
	Platform    types.Platform
	Instrument  string
	Side        types.Side
	Size        decimal.Decimal
	LimitPrice  *decimal.Decimal
	Type        types.OrderType
	Expiration  int64 // unix seconds, required for GTD
	MarketClass types.MarketClass
}

// SimulatedOrder is the order manager's view of one order. Only the order
// manager mutates it; once the status is terminal it never changes again.
// WasMaker is fixed at the first fill attempt: an order that rests on the
// book is a maker for every later fill, an order that matches immediately
// is a taker.
type SimulatedOrder struct {
	ID          string
	Platform    types.Platform
	Instrument  string
	Side        types.Side
	Size        decimal.Decimal
	LimitPrice  *decimal.Decimal
	Type        types.OrderType
	Status      types.OrderStatus
	FilledSize  decimal.Decimal
	FillPrice   decimal.Decimal
	CreatedTime int64
	Expiration  int64
	MarketClass types.MarketClass
	WasMaker    bool
}

func (o *SimulatedOrder) remaining() decimal.Decimal {
	return o.Size.Sub(o.FilledSize)
}

// OrderManager accepts order requests, attempts immediate fills against the
// orderbook simulator and queues resting limit orders for later matching.
// Every fill performs exactly one ledger Buy or Sell.
type OrderManager struct {
	clock   *SimulationClock
	ledger  *ledger
	books   *OrderbookSimulator
	pending []*SimulatedOrder
	logger  *slog.Logger
}

func NewOrderManager(clock *SimulationClock, ledger *ledger, books *OrderbookSimulator, logger *slog.Logger) *OrderManager {
	return &OrderManager{
		clock:  clock,
		ledger: ledger,
		books:  books,
		logger: logger,
	}
}

func validateRequest(req OrderRequest) error {
	switch req.Type {
	case types.TypeMarket, types.TypeFOK, types.TypeGTC, types.TypeGTD:
	default:
		return fmt.Errorf("%w: unknown order type %q", InvalidOrderErr, req.Type)
	}
	if req.Type == types.TypeGTD && req.Expiration == 0 {
		return fmt.Errorf("%w: GTD order requires an expiration time", InvalidOrderErr)
	}
	if !req.Size.IsPositive() {
		return fmt.Errorf("%w: size must be positive, got %s", InvalidOrderErr, req.Size)
	}
	if req.LimitPrice != nil &&
		(req.LimitPrice.IsNegative() || req.LimitPrice.GreaterThan(decimal.NewFromInt(1))) {
		return fmt.Errorf("%w: limit price must be in [0,1], got %s", InvalidOrderErr, req.LimitPrice)
	}
	if req.Type == types.TypeFOK && req.LimitPrice == nil {
		return fmt.Errorf("%w: FOK order requires a limit price", InvalidOrderErr)
	}
	if (req.Type == types.TypeGTC || req.Type == types.TypeGTD) && req.LimitPrice == nil {
		return fmt.Errorf("%w: %s order requires a limit price", InvalidOrderErr, req.Type)
	}
	return nil
}

// CreateOrder validates the request, attempts an immediate fill and
// otherwise enqueues GTC/GTD orders as resting makers. Validation failures
// surface before any state is touched. Market and FOK orders that cannot
// fill entirely are rejected; they never partially fill.
func (m *OrderManager) CreateOrder(ctx context.Context, req OrderRequest) (*SimulatedOrder, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	order := &SimulatedOrder{
		ID:          uuid.NewString(),
		Platform:    req.Platform,
		Instrument:  req.Instrument,
		Side:        req.Side,
		Size:        req.Size,
		LimitPrice:  req.LimitPrice,
		Type:        req.Type,
		Status:      types.OrderPending,
		CreatedTime: m.clock.Now(),
		Expiration:  req.Expiration,
		MarketClass: req.MarketClass,
	}

	m.tryFill(ctx, order, types.LiquidityTaker)

	if order.Status == types.OrderPending {
		// Did not cross the book: rests as a maker from here on.
		order.WasMaker = true
		m.pending = append(m.pending, order)
	}
	return order, nil
}

// tryFill attempts to match the order against the current snapshot. Orders
// that cannot match are left PENDING for GTC/GTD and REJECTED for
// market/FOK. A fetch failure counts as no liquidity, never as a run error.
func (m *OrderManager) tryFill(ctx context.Context, order *SimulatedOrder, liq types.Liquidity) {
	ob, err := m.books.GetOrderbook(ctx, order.Platform, order.Instrument, m.clock.Now())
	if err != nil {
		m.logger.Warn("orderbook fetch failed, treating as no liquidity",
			"instrument", order.Instrument, "error", err)
		ob = nil
	}

	if order.Type == types.TypeMarket || order.LimitPrice == nil {
		best, ok := m.books.BestPrice(ob, order.Instrument, order.Side)
		if !ok {
			order.Status = types.OrderRejected
			return
		}
		available := m.books.AvailableAt(ob, order.Instrument, order.Side, marketLimit(order.Side))
		if available.LessThan(order.Size) {
			order.Status = types.OrderRejected
			return
		}
		m.executeFill(order, order.Size, best, liq)
		return
	}

	limit := *order.LimitPrice
	switch order.Type {
	case types.TypeFOK:
		if m.books.CanFill(ob, order.Instrument, order.Side, limit, order.Size) {
			m.executeFill(order, order.Size, limit, liq)
		} else {
			order.Status = types.OrderRejected
		}

	case types.TypeGTC, types.TypeGTD:
		if m.books.CanFill(ob, order.Instrument, order.Side, limit, order.remaining()) {
			m.executeFill(order, order.remaining(), limit, liq)
		}
		// Otherwise stays PENDING; immediate calls enqueue it, resting
		// orders are handled by ProcessPending.

	default:
		order.Status = types.OrderRejected
	}
}

// executeFill applies one fill to the ledger and advances the order state.
// A ledger rejection (insufficient cash or position) rejects the order and
// leaves the ledger unchanged.
func (m *OrderManager) executeFill(order *SimulatedOrder, size, price decimal.Decimal, liq types.Liquidity) {
	var err error
	if order.Side == types.SideTypeBuy {
		err = m.ledger.Buy(order.Platform, order.Instrument, size, price, m.clock.Now(), liq, order.MarketClass)
	} else {
		err = m.ledger.Sell(order.Platform, order.Instrument, size, price, m.clock.Now(), liq, order.MarketClass)
	}
	if err != nil {
		m.logger.Debug("fill rejected by ledger", "order", order.ID, "error", err)
		order.Status = types.OrderRejected
		return
	}

	order.FilledSize = order.FilledSize.Add(size)
	order.FillPrice = price
	if order.FilledSize.Equal(order.Size) {
		order.Status = types.OrderFilled
	} else {
		order.Status = types.OrderPartiallyFilled
	}
}

// ProcessPending is called once per tick. It expires GTD orders past their
// expiration, retries matching for the rest and fills as much as the book
// allows: a full match completes the order, a partial match fills the
// available size at the limit price and keeps the remainder resting.
// Resting orders fill as makers.
func (m *OrderManager) ProcessPending(ctx context.Context) {
	var remaining []*SimulatedOrder

	for _, order := range m.pending {
		if order.Type == types.TypeGTD && m.clock.Now() > order.Expiration {
			order.Status = types.OrderExpired
			continue
		}

		ob, err := m.books.GetOrderbook(ctx, order.Platform, order.Instrument, m.clock.Now())
		if err != nil {
			m.logger.Warn("orderbook fetch failed, order stays pending",
				"instrument", order.Instrument, "error", err)
			remaining = append(remaining, order)
			continue
		}

		limit := *order.LimitPrice
		available := m.books.AvailableAt(ob, order.Instrument, order.Side, limit)
		if !available.IsPositive() {
			remaining = append(remaining, order)
			continue
		}

		fillSize := decimal.Min(available, order.remaining())
		m.executeFill(order, fillSize, limit, types.LiquidityMaker)

		if order.Status == types.OrderPartiallyFilled {
			remaining = append(remaining, order)
		}
	}

	m.pending = remaining
}

// CancelOrder removes a resting order from the queue and marks it
// CANCELLED. It has no ledger effect. Returns nil when no pending order
// has the given ID.
func (m *OrderManager) CancelOrder(orderID string) *SimulatedOrder {
	for i, order := range m.pending {
		if order.ID == orderID {
			order.Status = types.OrderCancelled
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return order
		}
	}
	return nil
}

// PendingOrders returns a copy of the resting order queue.
func (m *OrderManager) PendingOrders() []*SimulatedOrder {
	out := make([]*SimulatedOrder, len(m.pending))
	copy(out, m.pending)
	return out
}

// marketLimit is the widest acceptable price for a market order: buys take
// anything up to $1, sells anything down to $0.
func marketLimit(side types.Side) decimal.Decimal {
	if side == types.SideTypeBuy {
		return decimal.NewFromInt(1)
	}
	return decimal.Zero
}
