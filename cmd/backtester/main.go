package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/tweidv/backtest-service/internal/engine"
	"github.com/tweidv/backtest-service/internal/marketdata"
	"github.com/tweidv/backtest-service/internal/repository"
	"github.com/tweidv/backtest-service/strategies/longshot"
	"github.com/tweidv/backtest-service/types"
)

// Decimal-valued fields are strings in the file so yaml parsing never goes
// through binary floats.
type fileConfig struct {
	Source struct {
		Kind        string `yaml:"kind"` // "api" or "postgres"
		BaseURL     string `yaml:"base_url"`
		APIKey      string `yaml:"api_key"`
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"source"`

	Run struct {
		Start       int64  `yaml:"start"`
		End         int64  `yaml:"end"`
		Step        int64  `yaml:"step"`
		InitialCash string `yaml:"initial_cash"`
		EnableFees  bool   `yaml:"enable_fees"`
		Interest    *struct {
			APY        string `yaml:"apy"`
			MinBalance string `yaml:"min_balance"`
			Payout     string `yaml:"payout"`
		} `yaml:"interest"`
	} `yaml:"run"`

	Strategy struct {
		Platform    string   `yaml:"platform"`
		Instruments []string `yaml:"instruments"`
		MarketClass string   `yaml:"market_class"`
		MaxEntry    string   `yaml:"max_entry"`
		TakeProfit  string   `yaml:"take_profit"`
		Size        string   `yaml:"size"`
	} `yaml:"strategy"`

	Output struct {
		TradesCSV string `yaml:"trades_csv"`
	} `yaml:"output"`
}

func loadConfig(path string) (*fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

func parseDecimal(name, value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		log.Fatalf("config field %s: %v", name, err)
	}
	return d
}

func buildSource(cfg *fileConfig, logger *slog.Logger) (engine.MarketDataSource, func(), error) {
	switch cfg.Source.Kind {
	case "postgres":
		db, err := repository.NewDatabase(cfg.Source.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	case "api", "":
		client := marketdata.NewClient(cfg.Source.BaseURL, cfg.Source.APIKey,
			marketdata.WithLogger(logger))
		return client, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to run config")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	source, closeSource, err := buildSource(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer closeSource()

	runCfg := engine.NewRunConfig(
		cfg.Run.Start, cfg.Run.End, cfg.Run.Step,
		parseDecimal("run.initial_cash", cfg.Run.InitialCash),
		cfg.Run.EnableFees,
	)
	if ic := cfg.Run.Interest; ic != nil {
		runCfg.WithInterest(engine.NewInterestConfig(
			parseDecimal("run.interest.apy", ic.APY),
			parseDecimal("run.interest.min_balance", ic.MinBalance),
			engine.PayoutPolicy(ic.Payout),
		))
	}

	strat := longshot.New(longshot.Config{
		Platform:    types.Platform(cfg.Strategy.Platform),
		Instruments: cfg.Strategy.Instruments,
		MarketClass: types.MarketClass(cfg.Strategy.MarketClass),
		MaxEntry:    parseDecimal("strategy.max_entry", cfg.Strategy.MaxEntry),
		TakeProfit:  parseDecimal("strategy.take_profit", cfg.Strategy.TakeProfit),
		Size:        parseDecimal("strategy.size", cfg.Strategy.Size),
	})

	eng := engine.NewEngine(runCfg, strat, source, engine.WithLogger(logger))
	result, err := eng.Run(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println()
	engine.PrintReport(engine.BuildReport(result))

	if cfg.Output.TradesCSV != "" {
		if err := engine.WriteTradesCSVFile(cfg.Output.TradesCSV, result.Trades); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("trades written to %s\n", cfg.Output.TradesCSV)
	}
}
