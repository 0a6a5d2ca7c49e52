package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tweidv/backtest-service/types"
)

// Report is the derived summary of a finished run.
type Report struct {
	StartDate   time.Time
	TotalPeriod time.Duration
	TotalTrades int

	NetProfit      decimal.Decimal
	TotalReturnPct decimal.Decimal

	MaxDrawdown         decimal.Decimal
	MaxDrawdownPercent  decimal.Decimal
	MaxDrawdownDuration time.Duration

	BuyVolume  decimal.Decimal
	SellVolume decimal.Decimal

	TotalFees     decimal.Decimal
	TotalInterest decimal.Decimal
}

// BuildReport computes the report metrics from a result.
func BuildReport(result *BacktestResult) *Report {
	report := &Report{
		TotalTrades:    len(result.Trades),
		NetProfit:      result.TotalReturn(),
		TotalReturnPct: result.TotalReturnPct(),
		TotalFees:      result.TotalFeesPaid,
		TotalInterest:  result.TotalInterestEarned,
	}

	if len(result.EquityCurve) > 0 {
		first := result.EquityCurve[0]
		last := result.EquityCurve[len(result.EquityCurve)-1]
		report.StartDate = time.Unix(first.Timestamp, 0).UTC()
		report.TotalPeriod = time.Duration(last.Timestamp-first.Timestamp) * time.Second
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		report.MaxDrawdown, report.MaxDrawdownPercent, report.MaxDrawdownDuration = calcDrawdownMetrics(result.EquityCurve, &wg)
	}()
	go func() {
		report.BuyVolume, report.SellVolume = calcTradeVolumes(result.Trades, &wg)
	}()
	wg.Wait()

	return report
}

func calcDrawdownMetrics(curve []types.EquityPoint, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal, time.Duration) {
	defer wg.Done()

	if len(curve) == 0 {
		return decimal.Zero, decimal.Zero, 0
	}

	peak := decimal.Zero
	var peakTime int64

	maxDD := decimal.Zero
	maxDDPct := decimal.Zero
	var maxDDDuration time.Duration

	for i, point := range curve {
		if i == 0 || point.Value.GreaterThan(peak) || peak.IsZero() {
			peak = point.Value
			peakTime = point.Timestamp
		}

		if peak.GreaterThan(decimal.Zero) {
			dd := peak.Sub(point.Value)
			if dd.GreaterThan(maxDD) {
				maxDD = dd
				maxDDPct = dd.Div(peak)
				maxDDDuration = time.Duration(point.Timestamp-peakTime) * time.Second
			}
		}
	}

	return maxDD, maxDDPct, maxDDDuration
}

func calcTradeVolumes(trades []types.Trade, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal) {
	defer wg.Done()

	buys := decimal.Zero
	sells := decimal.Zero
	for _, trade := range trades {
		switch trade.Side {
		case types.SideTypeBuy:
			buys = buys.Add(trade.Value())
		case types.SideTypeSell:
			sells = sells.Add(trade.Value())
		}
	}
	return buys, sells
}

// PrintReport writes the report to stdout.
func PrintReport(report *Report) {
	fmt.Println("===== Backtest Report =====")
	fmt.Printf("Start Date:            %s\n", report.StartDate.Format("2006-01-02"))
	fmt.Printf("Total Period:          %d days\n", int(report.TotalPeriod.Hours()/24))
	fmt.Printf("Total Trades:          %d\n", report.TotalTrades)

	fmt.Println("\n-- Performance --")
	fmt.Printf("Net Profit:            %s\n", report.NetProfit)
	fmt.Printf("Total Return:          %s%%\n", report.TotalReturnPct.StringFixed(2))

	fmt.Println("\n-- Drawdown --")
	fmt.Printf("Max Drawdown:          %s\n", report.MaxDrawdown)
	fmt.Printf("Max Drawdown %%:        %s\n", report.MaxDrawdownPercent)
	fmt.Printf("Max Drawdown Duration: %v\n", report.MaxDrawdownDuration)

	fmt.Println("\n-- Volume --")
	fmt.Printf("Buy Volume:            %s\n", report.BuyVolume)
	fmt.Printf("Sell Volume:           %s\n", report.SellVolume)

	fmt.Println("\n-- Costs & Income --")
	fmt.Printf("Total Fees:            %s\n", report.TotalFees)
	fmt.Printf("Total Interest:        %s\n", report.TotalInterest)

	fmt.Println("===========================")
}
