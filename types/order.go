package types

type Side string

type OrderType string

type OrderStatus string

// Liquidity classifies a fill for fee purposes. It is fixed at the moment
// the order first hits the book and never recomputed afterwards.
type Liquidity string

const (
	SideTypeBuy  Side = "BUY"
	SideTypeSell Side = "SELL"

	TypeMarket OrderType = "MARKET"
	TypeFOK    OrderType = "FOK"
	TypeGTC    OrderType = "GTC"
	TypeGTD    OrderType = "GTD"

	OrderPending         OrderStatus = "ORDER_PENDING"
	OrderFilled          OrderStatus = "ORDER_FILLED"
	OrderPartiallyFilled OrderStatus = "ORDER_PARTIALLY_FILLED"
	OrderRejected        OrderStatus = "ORDER_REJECTED"
	OrderCancelled       OrderStatus = "ORDER_CANCELLED"
	OrderExpired         OrderStatus = "ORDER_EXPIRED"

	LiquidityMaker Liquidity = "maker"
	LiquidityTaker Liquidity = "taker"
)

// Terminal reports whether an order in this status can never transition again.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderFilled, OrderRejected, OrderCancelled, OrderExpired:
		return true
	}
	return false
}
