package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tweidv/backtest-service/types"
)

var InsufficientFundsErr = errors.New("insufficient cash for buy")
var InsufficientPositionErr = errors.New("insufficient position for sell")

// Position tracks one held instrument. CostBasis is cumulative and
// fee-inclusive; AvgPrice is the weighted-average entry price excluding fees.
type Position struct {
	Instrument string
	Platform   types.Platform
	Quantity   decimal.Decimal
	AvgPrice   decimal.Decimal
	CostBasis  decimal.Decimal
}

// Value returns quantity * average entry price.
func (p *Position) Value() decimal.Decimal {
	return p.Quantity.Mul(p.AvgPrice)
}

// UnrealizedPnL is current value minus fee-inclusive cost basis.
func (p *Position) UnrealizedPnL(currentPrice decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(currentPrice).Sub(p.CostBasis)
}

// ledger owns cash and position bookkeeping for one run. Cash is only
// mutated by Buy, Sell and interest credits; every successful Buy/Sell
// appends exactly one trade. A rejected operation leaves the ledger
// untouched.
type ledger struct {
	cash          decimal.Decimal
	positions     map[string]*Position
	trades        []types.Trade
	totalFeesPaid decimal.Decimal

	enableFees bool
	interest   *InterestAccrual
}

func newLedger(initialCash decimal.Decimal, enableFees bool, interest *InterestAccrual) *ledger {
	return &ledger{
		cash:       initialCash,
		positions:  make(map[string]*Position),
		enableFees: enableFees,
		interest:   interest,
	}
}

func (l *ledger) fee(platform types.Platform, quantity, price decimal.Decimal, class types.MarketClass, liq types.Liquidity) (decimal.Decimal, error) {
	if !l.enableFees {
		return decimal.Zero, nil
	}
	switch platform {
	case types.PlatformKalshi:
		return CalculateKalshiFee(quantity, price)
	case types.PlatformPolymarket:
		return CalculatePolymarketFee(quantity.Mul(price), class, liq), nil
	}
	return decimal.Zero, nil
}

// Buy debits cost+fee from cash, creates or scales the position and appends
// a trade. Fails with InsufficientFundsErr when cost+fee exceeds cash;
// nothing is mutated on failure.
func (l *ledger) Buy(platform types.Platform, instrument string, quantity, price decimal.Decimal, timestamp int64, liq types.Liquidity, class types.MarketClass) error {
	cost := quantity.Mul(price)
	fee, err := l.fee(platform, quantity, price, class, liq)
	if err != nil {
		return err
	}
	total := cost.Add(fee)

	if total.GreaterThan(l.cash) {
		return fmt.Errorf("%w: need %s (cost %s, fee %s), have %s",
			InsufficientFundsErr, total, cost, fee, l.cash)
	}

	l.cash = l.cash.Sub(total)
	l.totalFeesPaid = l.totalFeesPaid.Add(fee)

	pos := l.positions[instrument]
	if pos == nil {
		l.positions[instrument] = &Position{
			Instrument: instrument,
			Platform:   platform,
			Quantity:   quantity,
			AvgPrice:   price,
			CostBasis:  total,
		}
	} else {
		newQty := pos.Quantity.Add(quantity)
		pos.AvgPrice = weightedAvg(pos.AvgPrice, pos.Quantity, price, quantity)
		pos.CostBasis = pos.CostBasis.Add(total)
		pos.Quantity = newQty
	}

	l.trades = append(l.trades, types.Trade{
		Timestamp:  timestamp,
		Platform:   platform,
		Instrument: instrument,
		Side:       types.SideTypeBuy,
		Quantity:   quantity,
		Price:      price,
		Fee:        fee,
	})
	return nil
}

// Sell credits proceeds net of fee to cash, reduces the position's cost
// basis proportionally and appends a trade. The position is deleted when
// its quantity reaches exactly zero. Fails with InsufficientPositionErr
// when quantity exceeds the held amount; nothing is mutated on failure.
func (l *ledger) Sell(platform types.Platform, instrument string, quantity, price decimal.Decimal, timestamp int64, liq types.Liquidity, class types.MarketClass) error {
	pos := l.positions[instrument]
	held := decimal.Zero
	if pos != nil {
		held = pos.Quantity
	}
	if quantity.GreaterThan(held) {
		return fmt.Errorf("%w: need %s, have %s", InsufficientPositionErr, quantity, held)
	}

	proceeds := quantity.Mul(price)
	fee, err := l.fee(platform, quantity, price, class, liq)
	if err != nil {
		return err
	}

	l.cash = l.cash.Add(proceeds.Sub(fee))
	l.totalFeesPaid = l.totalFeesPaid.Add(fee)

	soldBasis := pos.CostBasis.Mul(quantity).Div(held)
	pos.CostBasis = pos.CostBasis.Sub(soldBasis)
	pos.Quantity = pos.Quantity.Sub(quantity)
	if pos.Quantity.IsZero() {
		delete(l.positions, instrument)
	}

	l.trades = append(l.trades, types.Trade{
		Timestamp:  timestamp,
		Platform:   platform,
		Instrument: instrument,
		Side:       types.SideTypeSell,
		Quantity:   quantity,
		Price:      price,
		Fee:        fee,
	})
	return nil
}

// Value returns cash plus the mark of every position against the supplied
// price map. Instruments absent from the map contribute zero, which keeps
// the valuation conservative rather than sticky on stale entry prices.
func (l *ledger) Value(prices map[string]decimal.Decimal) decimal.Decimal {
	value := l.cash
	for instrument, pos := range l.positions {
		price, ok := prices[instrument]
		if !ok {
			continue
		}
		value = value.Add(pos.Quantity.Mul(price))
	}
	return value
}

// AccrueDailyInterest accrues one day of interest on cash plus the given
// positions value. Under the daily payout policy the interest is credited
// to cash immediately; under the monthly policy it stays accrued until
// PayoutInterest is called.
func (l *ledger) AccrueDailyInterest(positionsValue decimal.Decimal) decimal.Decimal {
	if l.interest == nil {
		return decimal.Zero
	}
	earned := l.interest.Accrue(l.cash.Add(positionsValue))
	if l.interest.Policy() == PayoutDaily {
		l.cash = l.cash.Add(l.interest.Payout())
	}
	return earned
}

// PayoutInterest credits all accrued interest to cash. The run loop calls
// this on month rollover under the monthly payout policy.
func (l *ledger) PayoutInterest() decimal.Decimal {
	if l.interest == nil {
		return decimal.Zero
	}
	paid := l.interest.Payout()
	l.cash = l.cash.Add(paid)
	return paid
}

func (l *ledger) TotalInterestEarned() decimal.Decimal {
	if l.interest == nil {
		return decimal.Zero
	}
	return l.interest.TotalPaid().Add(l.interest.Accrued())
}

func (l *ledger) Position(instrument string) *Position {
	return l.positions[instrument]
}

func (l *ledger) GetPortfolioSnapshot() types.PortfolioView {
	view := types.PortfolioView{
		Cash:          l.cash,
		Positions:     make(map[string]types.PositionSnapshot, len(l.positions)),
		TotalFeesPaid: l.totalFeesPaid,
	}
	for instrument, pos := range l.positions {
		view.Positions[instrument] = types.PositionSnapshot{
			Instrument: pos.Instrument,
			Platform:   pos.Platform,
			Quantity:   pos.Quantity,
			AvgPrice:   pos.AvgPrice,
			CostBasis:  pos.CostBasis,
		}
	}
	return view
}

func weightedAvg(existingAvgPrice, existingQty, newPrice, newQty decimal.Decimal) decimal.Decimal {
	if existingQty.IsZero() {
		return newPrice
	}
	return existingAvgPrice.Mul(existingQty).
		Add(newPrice.Mul(newQty)).
		Div(existingQty.Add(newQty))
}
