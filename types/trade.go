package types

import (
	"github.com/shopspring/decimal"
)

// Trade is the immutable record of one executed fill.
type Trade struct {
	Timestamp  int64
	Platform   Platform
	Instrument string
	Side       Side
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Fee        decimal.Decimal
}

// Value returns quantity * price, before fees.
func (t Trade) Value() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// NetValue is the cash impact of the trade: value plus fee for buys,
// value minus fee for sells.
func (t Trade) NetValue() decimal.Decimal {
	if t.Side == SideTypeBuy {
		return t.Value().Add(t.Fee)
	}
	return t.Value().Sub(t.Fee)
}
