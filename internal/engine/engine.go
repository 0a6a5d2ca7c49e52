package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"

	"github.com/tweidv/backtest-service/types"
)

type strategy interface {
	Init(sim *SimulationContext) error
	OnTick(ctx context.Context, sim *SimulationContext) error
}

// PriceFunc maps held instruments to marks for equity valuation. Instruments
// it omits are valued at zero.
type PriceFunc func(ctx context.Context, sim *SimulationContext) map[string]decimal.Decimal

// Engine drives a backtest run: each tick it invokes the strategy, drains
// resting orders, values the portfolio and records an equity point. Interest
// accrues on UTC day rollover. A strategy error skips to the next tick;
// only configuration and collaborator-independent invariants abort a run.
type Engine struct {
	cfg      *RunConfig
	strategy strategy
	source   MarketDataSource
	prices   PriceFunc
	logger   *slog.Logger
	progress bool
}

type EngineOption func(*Engine)

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

func WithPriceFunc(fn PriceFunc) EngineOption {
	return func(e *Engine) { e.prices = fn }
}

func WithProgressBar(enabled bool) EngineOption {
	return func(e *Engine) { e.progress = enabled }
}

func NewEngine(cfg *RunConfig, strat strategy, source MarketDataSource, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:      cfg,
		strategy: strat,
		source:   source,
		logger:   slog.Default(),
		progress: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.prices == nil {
		e.prices = defaultPrices
	}
	return e
}

// Run executes the backtest and returns the result. Each call constructs a
// fresh SimulationContext; rerunning the engine never reuses simulation
// state from a previous run.
func (e *Engine) Run(ctx context.Context) (*BacktestResult, error) {
	if err := e.cfg.validate(); err != nil {
		return nil, err
	}

	var interest *InterestAccrual
	if e.cfg.interest != nil {
		interest = e.cfg.interest.build()
	}

	clock := NewSimulationClock(e.cfg.start)
	led := newLedger(e.cfg.initialCash, e.cfg.enableFees, interest)
	books := NewOrderbookSimulator(e.source)
	orders := NewOrderManager(clock, led, books, e.logger)
	sim := &SimulationContext{
		clock:  clock,
		ledger: led,
		books:  books,
		orders: orders,
		source: e.source,
	}

	if err := e.strategy.Init(sim); err != nil {
		return nil, err
	}

	bar := e.initProgressBar(int((e.cfg.end-e.cfg.start)/e.cfg.step) + 1)

	var equityCurve []types.EquityPoint
	lastDay := unixDay(clock.Now())
	lastMonth := unixMonth(clock.Now())

	for clock.Now() <= e.cfg.end {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := e.strategy.OnTick(ctx, sim); err != nil {
			e.logger.Warn("strategy error, continuing run", "time", clock.Now(), "error", err)
		}

		orders.ProcessPending(ctx)

		prices := e.prices(ctx, sim)
		value := led.Value(prices)
		equityCurve = append(equityCurve, types.EquityPoint{Timestamp: clock.Now(), Value: value})

		if day := unixDay(clock.Now()); day != lastDay {
			led.AccrueDailyInterest(value.Sub(led.cash))
			lastDay = day
		}
		if interest != nil && interest.Policy() == PayoutMonthly {
			if month := unixMonth(clock.Now()); month != lastMonth {
				led.PayoutInterest()
				lastMonth = month
			}
		}

		clock.AdvanceBy(e.cfg.step)
		if bar != nil {
			bar.Add(1)
		}
	}

	// The clock has advanced past the window; revaluing here would read
	// data beyond it. The last recorded equity point is the final value.
	finalValue := e.cfg.initialCash
	if len(equityCurve) > 0 {
		finalValue = equityCurve[len(equityCurve)-1].Value
	}

	return &BacktestResult{
		InitialCash:         e.cfg.initialCash,
		FinalValue:          finalValue,
		EquityCurve:         equityCurve,
		Trades:              led.trades,
		TotalFeesPaid:       led.totalFeesPaid,
		TotalInterestEarned: led.TotalInterestEarned(),
	}, nil
}

// defaultPrices marks every held position at the best sell-side book price,
// falling back to the last traded price. Instruments with neither stay
// unpriced and value at zero.
func defaultPrices(ctx context.Context, sim *SimulationContext) map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal)
	for instrument, pos := range sim.Portfolio().Positions {
		if price, ok := sim.BestPrice(ctx, pos.Platform, instrument, types.SideTypeSell); ok {
			prices[instrument] = price
			continue
		}
		if price, err := sim.LastPrice(ctx, pos.Platform, instrument); err == nil {
			prices[instrument] = price
		}
	}
	return prices
}

func unixDay(ts int64) int64 {
	return ts / 86400
}

func unixMonth(ts int64) int {
	t := time.Unix(ts, 0).UTC()
	return t.Year()*12 + int(t.Month())
}

func (e *Engine) initProgressBar(maxTicks int) *progressbar.ProgressBar {
	if !e.progress {
		return nil
	}
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
