package engine

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tweidv/backtest-service/types"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLedgerBuySellScenario(t *testing.T) {
	// Buy 100 @ $0.40 fee-free, then sell 50 @ $0.60.
	l := newLedger(dec("10000"), true, nil)

	err := l.Buy(types.PlatformPolymarket, "tok-1", dec("100"), dec("0.40"), 1000, types.LiquidityTaker, types.MarketClassGlobal)
	if err != nil {
		t.Fatalf("Buy() error: %v", err)
	}
	if !l.cash.Equal(dec("9960")) {
		t.Errorf("cash after buy = %s, want 9960", l.cash)
	}
	pos := l.Position("tok-1")
	if pos == nil || !pos.Quantity.Equal(dec("100")) || !pos.AvgPrice.Equal(dec("0.40")) {
		t.Fatalf("position after buy = %+v, want 100 @ 0.40", pos)
	}

	err = l.Sell(types.PlatformPolymarket, "tok-1", dec("50"), dec("0.60"), 2000, types.LiquidityTaker, types.MarketClassGlobal)
	if err != nil {
		t.Fatalf("Sell() error: %v", err)
	}
	if !l.cash.Equal(dec("9990")) {
		t.Errorf("cash after sell = %s, want 9990", l.cash)
	}
	pos = l.Position("tok-1")
	if pos == nil || !pos.Quantity.Equal(dec("50")) || !pos.AvgPrice.Equal(dec("0.40")) {
		t.Fatalf("position after sell = %+v, want 50 @ 0.40", pos)
	}
	if len(l.trades) != 2 {
		t.Errorf("trade log length = %d, want 2", len(l.trades))
	}
}

func TestLedgerKalshiBuyScenario(t *testing.T) {
	// 10 contracts @ $0.50: fee = ceil(0.07*10*0.25*100)/100 = $0.18,
	// cash debited by 5.18.
	l := newLedger(dec("100"), true, nil)

	err := l.Buy(types.PlatformKalshi, "TICKER:YES", dec("10"), dec("0.50"), 1000, types.LiquidityTaker, types.MarketClassGlobal)
	if err != nil {
		t.Fatalf("Buy() error: %v", err)
	}
	if !l.cash.Equal(dec("94.82")) {
		t.Errorf("cash = %s, want 94.82", l.cash)
	}
	if !l.totalFeesPaid.Equal(dec("0.18")) {
		t.Errorf("totalFeesPaid = %s, want 0.18", l.totalFeesPaid)
	}
	pos := l.Position("TICKER:YES")
	if pos == nil || !pos.CostBasis.Equal(dec("5.18")) {
		t.Fatalf("position = %+v, want cost basis 5.18", pos)
	}
}

func TestLedgerRejections(t *testing.T) {
	tests := []struct {
		name    string
		run     func(l *ledger) error
		wantErr error
	}{
		{
			"buy exceeding cash",
			func(l *ledger) error {
				return l.Buy(types.PlatformPolymarket, "tok-1", dec("1000"), dec("0.50"), 1, types.LiquidityTaker, types.MarketClassGlobal)
			},
			InsufficientFundsErr,
		},
		{
			"sell without position",
			func(l *ledger) error {
				return l.Sell(types.PlatformPolymarket, "tok-1", dec("1"), dec("0.50"), 1, types.LiquidityTaker, types.MarketClassGlobal)
			},
			InsufficientPositionErr,
		},
		{
			"kalshi price out of range",
			func(l *ledger) error {
				return l.Buy(types.PlatformKalshi, "T:YES", dec("1"), dec("1.50"), 1, types.LiquidityTaker, types.MarketClassGlobal)
			},
			PriceOutOfRangeErr,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(dec("100"), true, nil)
			err := tt.run(l)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			// Atomic rejection: nothing changed.
			if !l.cash.Equal(dec("100")) {
				t.Errorf("cash mutated on rejection: %s", l.cash)
			}
			if len(l.trades) != 0 || len(l.positions) != 0 {
				t.Errorf("state mutated on rejection: %d trades, %d positions", len(l.trades), len(l.positions))
			}
		})
	}
}

func TestLedgerWeightedAverageScaleIn(t *testing.T) {
	l := newLedger(dec("1000"), false, nil)

	mustBuy(t, l, "tok-1", "10", "0.40")
	mustBuy(t, l, "tok-1", "10", "0.60")

	pos := l.Position("tok-1")
	if !pos.Quantity.Equal(dec("20")) {
		t.Errorf("quantity = %s, want 20", pos.Quantity)
	}
	if !pos.AvgPrice.Equal(dec("0.5")) {
		t.Errorf("avg price = %s, want 0.5", pos.AvgPrice)
	}
	if !pos.CostBasis.Equal(dec("10")) {
		t.Errorf("cost basis = %s, want 10", pos.CostBasis)
	}
}

func TestLedgerProportionalCostBasisOnSell(t *testing.T) {
	l := newLedger(dec("1000"), false, nil)

	mustBuy(t, l, "tok-1", "100", "0.40") // cost basis 40
	if err := l.Sell(types.PlatformPolymarket, "tok-1", dec("25"), dec("0.50"), 2, types.LiquidityTaker, types.MarketClassGlobal); err != nil {
		t.Fatalf("Sell() error: %v", err)
	}

	pos := l.Position("tok-1")
	if !pos.CostBasis.Equal(dec("30")) {
		t.Errorf("cost basis = %s, want 30 (75%% of 40)", pos.CostBasis)
	}
	if !pos.Quantity.Equal(dec("75")) {
		t.Errorf("quantity = %s, want 75", pos.Quantity)
	}
}

func TestLedgerPositionDeletedAtZero(t *testing.T) {
	l := newLedger(dec("1000"), false, nil)

	mustBuy(t, l, "tok-1", "10", "0.40")
	if err := l.Sell(types.PlatformPolymarket, "tok-1", dec("10"), dec("0.40"), 2, types.LiquidityTaker, types.MarketClassGlobal); err != nil {
		t.Fatalf("Sell() error: %v", err)
	}
	if l.Position("tok-1") != nil {
		t.Error("position should be deleted at zero quantity")
	}
}

// Buying then selling the same quantity at the same price with fees off
// must return cash to its pre-trade value exactly.
func TestLedgerRoundTripIdempotence(t *testing.T) {
	l := newLedger(dec("543.21"), false, nil)

	mustBuy(t, l, "tok-1", "37", "0.123")
	if err := l.Sell(types.PlatformPolymarket, "tok-1", dec("37"), dec("0.123"), 2, types.LiquidityTaker, types.MarketClassGlobal); err != nil {
		t.Fatalf("Sell() error: %v", err)
	}
	if !l.cash.Equal(dec("543.21")) {
		t.Errorf("cash after round trip = %s, want 543.21", l.cash)
	}
}

func TestLedgerValueConservative(t *testing.T) {
	l := newLedger(dec("100"), false, nil)

	mustBuy(t, l, "tok-1", "10", "0.40")
	mustBuy(t, l, "tok-2", "10", "0.40")

	// Only tok-1 is priced; tok-2 contributes zero by design.
	value := l.Value(map[string]decimal.Decimal{"tok-1": dec("0.50")})
	if !value.Equal(dec("97")) {
		t.Errorf("value = %s, want 97 (92 cash + 5 tok-1)", value)
	}
}

func TestLedgerFeeAccumulatorMatchesTradeLog(t *testing.T) {
	l := newLedger(dec("1000"), true, nil)

	steps := []struct {
		side  types.Side
		qty   string
		price string
	}{
		{types.SideTypeBuy, "100", "0.50"},
		{types.SideTypeBuy, "50", "0.30"},
		{types.SideTypeSell, "120", "0.60"},
	}
	prev := decimal.Zero
	for _, s := range steps {
		var err error
		if s.side == types.SideTypeBuy {
			err = l.Buy(types.PlatformKalshi, "T:YES", dec(s.qty), dec(s.price), 1, types.LiquidityTaker, types.MarketClassGlobal)
		} else {
			err = l.Sell(types.PlatformKalshi, "T:YES", dec(s.qty), dec(s.price), 1, types.LiquidityTaker, types.MarketClassGlobal)
		}
		if err != nil {
			t.Fatalf("step %+v error: %v", s, err)
		}
		if l.totalFeesPaid.LessThan(prev) {
			t.Fatalf("totalFeesPaid decreased: %s -> %s", prev, l.totalFeesPaid)
		}
		prev = l.totalFeesPaid
	}

	sum := decimal.Zero
	for _, trade := range l.trades {
		sum = sum.Add(trade.Fee)
	}
	if !l.totalFeesPaid.Equal(sum) {
		t.Errorf("totalFeesPaid = %s, trade log fees sum to %s", l.totalFeesPaid, sum)
	}
}

func mustBuy(t *testing.T, l *ledger, instrument, qty, price string) {
	t.Helper()
	err := l.Buy(types.PlatformPolymarket, instrument, dec(qty), dec(price), 1, types.LiquidityTaker, types.MarketClassGlobal)
	if err != nil {
		t.Fatalf("Buy(%s %s@%s) error: %v", instrument, qty, price, err)
	}
}
