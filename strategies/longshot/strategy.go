// Package longshot implements a simple reference strategy: buy outcome
// tokens trading below an entry threshold and take profit once the market
// reprices them. It exists to exercise the engine end to end and as a
// template for real strategies.
package longshot

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tweidv/backtest-service/internal/engine"
	"github.com/tweidv/backtest-service/types"
)

type Config struct {
	Platform    types.Platform
	Instruments []string
	MarketClass types.MarketClass

	// MaxEntry is the highest price worth paying for a longshot.
	MaxEntry decimal.Decimal
	// TakeProfit is the price at which the position is closed.
	TakeProfit decimal.Decimal
	// Size is the contract count per entry.
	Size decimal.Decimal
}

type Strategy struct {
	cfg Config
}

func New(cfg Config) *Strategy {
	return &Strategy{cfg: cfg}
}

func (s *Strategy) Init(sim *engine.SimulationContext) error {
	return nil
}

func (s *Strategy) OnTick(ctx context.Context, sim *engine.SimulationContext) error {
	for _, instrument := range s.cfg.Instruments {
		if pos, ok := sim.Position(instrument); ok {
			s.maybeExit(ctx, sim, instrument, pos)
			continue
		}
		s.maybeEnter(ctx, sim, instrument)
	}
	return nil
}

func (s *Strategy) maybeEnter(ctx context.Context, sim *engine.SimulationContext, instrument string) {
	ask, ok := sim.BestPrice(ctx, s.cfg.Platform, instrument, types.SideTypeBuy)
	if !ok || ask.GreaterThan(s.cfg.MaxEntry) {
		return
	}

	limit := ask
	_, err := sim.CreateOrder(ctx, engine.OrderRequest{
		Platform:    s.cfg.Platform,
		Instrument:  instrument,
		Side:        types.SideTypeBuy,
		Size:        s.cfg.Size,
		LimitPrice:  &limit,
		Type:        types.TypeGTC,
		MarketClass: s.cfg.MarketClass,
	})
	_ = err // insufficient cash just means we skip this entry
}

func (s *Strategy) maybeExit(ctx context.Context, sim *engine.SimulationContext, instrument string, pos types.PositionSnapshot) {
	bid, ok := sim.BestPrice(ctx, s.cfg.Platform, instrument, types.SideTypeSell)
	if !ok || bid.LessThan(s.cfg.TakeProfit) {
		return
	}

	limit := bid
	_, err := sim.CreateOrder(ctx, engine.OrderRequest{
		Platform:    s.cfg.Platform,
		Instrument:  instrument,
		Side:        types.SideTypeSell,
		Size:        pos.Quantity,
		LimitPrice:  &limit,
		Type:        types.TypeGTC,
		MarketClass: s.cfg.MarketClass,
	})
	_ = err
}
