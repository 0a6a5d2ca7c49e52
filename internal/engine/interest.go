package engine

import (
	"github.com/shopspring/decimal"
)

// PayoutPolicy controls when accrued interest is credited to cash.
type PayoutPolicy string

const (
	// PayoutDaily credits each day's interest to cash the same day. Real
	// accounts pay monthly; same-day crediting is the documented backtest
	// simplification and the default.
	PayoutDaily PayoutPolicy = "daily"
	// PayoutMonthly batches accrued interest and credits it on the first
	// tick of the next calendar month.
	PayoutMonthly PayoutPolicy = "monthly"
)

var daysPerYear = decimal.NewFromInt(365)

// InterestAccrual tracks daily interest on a Kalshi account. Interest
// accrues on net portfolio value (cash + open positions) once the balance
// meets the minimum, at apy/365 per day.
type InterestAccrual struct {
	apy        decimal.Decimal
	dailyRate  decimal.Decimal
	minBalance decimal.Decimal
	policy     PayoutPolicy

	accrued   decimal.Decimal
	totalPaid decimal.Decimal
}

func NewInterestAccrual(apy, minBalance decimal.Decimal, policy PayoutPolicy) *InterestAccrual {
	return &InterestAccrual{
		apy:        apy,
		dailyRate:  apy.Div(daysPerYear),
		minBalance: minBalance,
		policy:     policy,
	}
}

// DailyInterest returns the interest earned for one day on the given net
// value, zero when the balance is below the minimum.
func (ia *InterestAccrual) DailyInterest(netValue decimal.Decimal) decimal.Decimal {
	if netValue.LessThan(ia.minBalance) {
		return decimal.Zero
	}
	return netValue.Mul(ia.dailyRate)
}

// Accrue adds one day's interest for the given net value and returns it.
func (ia *InterestAccrual) Accrue(netValue decimal.Decimal) decimal.Decimal {
	earned := ia.DailyInterest(netValue)
	ia.accrued = ia.accrued.Add(earned)
	return earned
}

// Payout drains the accrued balance into the paid total and returns the
// amount to credit to cash.
func (ia *InterestAccrual) Payout() decimal.Decimal {
	paid := ia.accrued
	ia.totalPaid = ia.totalPaid.Add(paid)
	ia.accrued = decimal.Zero
	return paid
}

func (ia *InterestAccrual) Accrued() decimal.Decimal {
	return ia.accrued
}

func (ia *InterestAccrual) TotalPaid() decimal.Decimal {
	return ia.totalPaid
}

func (ia *InterestAccrual) Policy() PayoutPolicy {
	return ia.policy
}
