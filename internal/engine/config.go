package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var InvalidConfigErr = errors.New("invalid run config")

// RunConfig fixes the time window and portfolio parameters for one run.
// Everything is explicit; there is no environment fallback and nothing is
// wired lazily at first use.
type RunConfig struct {
	start       int64 // unix seconds
	end         int64
	step        int64 // seconds per tick
	initialCash decimal.Decimal
	enableFees  bool
	interest    *InterestConfig
}

func NewRunConfig(start, end, step int64, initialCash decimal.Decimal, enableFees bool) *RunConfig {
	return &RunConfig{
		start:       start,
		end:         end,
		step:        step,
		initialCash: initialCash,
		enableFees:  enableFees,
	}
}

// WithInterest enables Kalshi-style interest accrual for the run.
func (c *RunConfig) WithInterest(ic *InterestConfig) *RunConfig {
	c.interest = ic
	return c
}

func (c *RunConfig) validate() error {
	if c.end < c.start {
		return fmt.Errorf("%w: end %d before start %d", InvalidConfigErr, c.end, c.start)
	}
	if c.step <= 0 {
		return fmt.Errorf("%w: step must be positive, got %d", InvalidConfigErr, c.step)
	}
	if c.initialCash.IsNegative() {
		return fmt.Errorf("%w: initial cash must not be negative, got %s", InvalidConfigErr, c.initialCash)
	}
	return nil
}

// InterestConfig holds the account interest parameters. Defaults mirror the
// published Kalshi terms: 4% APY, $250 minimum balance.
type InterestConfig struct {
	apy        decimal.Decimal
	minBalance decimal.Decimal
	policy     PayoutPolicy
}

func NewInterestConfig(apy, minBalance decimal.Decimal, policy PayoutPolicy) *InterestConfig {
	if policy == "" {
		policy = PayoutDaily
	}
	return &InterestConfig{
		apy:        apy,
		minBalance: minBalance,
		policy:     policy,
	}
}

func DefaultInterestConfig() *InterestConfig {
	return NewInterestConfig(
		decimal.NewFromFloat(0.04),
		decimal.NewFromInt(250),
		PayoutDaily,
	)
}

func (c *InterestConfig) build() *InterestAccrual {
	return NewInterestAccrual(c.apy, c.minBalance, c.policy)
}
