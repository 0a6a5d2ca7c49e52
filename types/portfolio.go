package types

import (
	"github.com/shopspring/decimal"
)

// PortfolioView is a read-only copy of ledger state handed to strategies.
type PortfolioView struct {
	Cash          decimal.Decimal
	Positions     map[string]PositionSnapshot
	TotalFeesPaid decimal.Decimal
}

type PositionSnapshot struct {
	Instrument string
	Platform   Platform
	Quantity   decimal.Decimal
	AvgPrice   decimal.Decimal
	CostBasis  decimal.Decimal
}

// Value returns quantity * avg entry price.
func (p PositionSnapshot) Value() decimal.Decimal {
	return p.Quantity.Mul(p.AvgPrice)
}

// EquityPoint is one (timestamp, portfolio value) sample of the equity curve.
type EquityPoint struct {
	Timestamp int64
	Value     decimal.Decimal
}
