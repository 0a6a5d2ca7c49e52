package engine

import (
	"github.com/shopspring/decimal"

	"github.com/tweidv/backtest-service/types"
)

// BacktestResult is the transient output of one run. Nothing is persisted;
// callers print a report or export trades from here.
type BacktestResult struct {
	InitialCash         decimal.Decimal
	FinalValue          decimal.Decimal
	EquityCurve         []types.EquityPoint
	Trades              []types.Trade
	TotalFeesPaid       decimal.Decimal
	TotalInterestEarned decimal.Decimal
}

func (r *BacktestResult) TotalReturn() decimal.Decimal {
	return r.FinalValue.Sub(r.InitialCash)
}

func (r *BacktestResult) TotalReturnPct() decimal.Decimal {
	if r.InitialCash.IsZero() {
		return decimal.Zero
	}
	return r.TotalReturn().Div(r.InitialCash).Mul(decimal.NewFromInt(100))
}
