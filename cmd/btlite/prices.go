package main

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/config"
	"github.com/peter-kozarec/btlite/pkg/data/duckdb"
	"github.com/peter-kozarec/btlite/pkg/datasource"
	"github.com/peter-kozarec/btlite/pkg/datasource/historical"
	"github.com/peter-kozarec/btlite/pkg/datasource/synthetic"
	"github.com/peter-kozarec/btlite/pkg/utility/fixed"
)

func loadPrices(ctx context.Context, logger *zap.Logger, cfg *config.Config) (*common.PriceTable, error) {
	prices := common.NewPriceTable()

	var (
		n   int
		err error
	)
	switch cfg.Data.Kind {
	case config.DataKindDuckDB:
		n, err = loadDuckDBPrices(ctx, prices, cfg)
	case config.DataKindBinary:
		n, err = loadBinaryPrices(prices, cfg)
	case config.DataKindSynthetic:
		n, err = loadSyntheticPrices(prices, cfg)
	default:
		err = fmt.Errorf("unknown data kind %q: %w", cfg.Data.Kind, config.ErrInvalidConfig)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("prices loaded",
		zap.String("kind", cfg.Data.Kind),
		zap.Int("points", n),
		zap.Strings("symbols", prices.Symbols()))
	return prices, nil
}

func loadDuckDBPrices(ctx context.Context, prices *common.PriceTable, cfg *config.Config) (int, error) {
	reader, err := duckdb.NewReader(cfg.Data.Path, cfg.Data.Table)
	if err != nil {
		return 0, err
	}
	if err := reader.Connect(ctx); err != nil {
		return 0, err
	}
	defer reader.Close()

	symbols := make([]string, 0, len(cfg.Contracts))
	for _, contract := range cfg.Contracts {
		symbols = append(symbols, contract.Symbol)
	}
	return reader.LoadInto(ctx, prices, symbols, cfg.Simulation.From, cfg.Simulation.To)
}

func loadBinaryPrices(prices *common.PriceTable, cfg *config.Config) (int, error) {
	total := 0
	for _, file := range cfg.Data.Files {
		n, err := loadBinaryFile(prices, file, cfg.Simulation.From, cfg.Simulation.To)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func loadBinaryFile(prices *common.PriceTable, file config.FileConfig, from, to time.Time) (int, error) {
	source := historical.NewSource[historical.BinaryPrice](file.Path)
	if err := source.Open(); err != nil {
		return 0, err
	}
	defer source.Close()

	reader := historical.NewPriceReader(source, file.Symbol, from, to)
	n, err := datasource.Drain(datasource.CreatePriceDispatcher(prices, reader))
	if err != nil {
		return n, fmt.Errorf("unable to read prices of %s from %s: %w", file.Symbol, file.Path, err)
	}
	return n, nil
}

func loadSyntheticPrices(prices *common.PriceTable, cfg *config.Config) (int, error) {
	rng := rand.New(rand.NewSource(cfg.Data.Seed)) // #nosec G404

	total := 0
	for _, contract := range cfg.Contracts {
		generator := synthetic.NewPriceGenerator(
			contract.Symbol,
			rng,
			cfg.Simulation.From,
			fixed.FromFloat64(cfg.Data.StartPrice),
			fixed.FromFloat64(cfg.Data.Mu),
			fixed.FromFloat64(cfg.Data.Sigma),
			cfg.Data.Interval,
			cfg.SyntheticSteps())
		if contract.TickSize > 0 {
			generator.SetPriceDigits(tickDigits(contract.TickSize))
		}

		n, err := datasource.Drain(datasource.CreatePriceDispatcher(prices, generator))
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// tickDigits is the number of decimal places needed to express tickSize.
func tickDigits(tickSize float64) int {
	formatted := strconv.FormatFloat(tickSize, 'f', -1, 64)
	if idx := strings.IndexByte(formatted, '.'); idx >= 0 {
		return len(formatted) - idx - 1
	}
	return 0
}

// periodTimestamps are the quoted timestamps within the simulation period,
// expressed in the configured location so that sessions follow its dates.
func periodTimestamps(prices *common.PriceTable, cfg *config.Config) []time.Time {
	loc := cfg.Location()

	var timeStamps []time.Time
	for _, ts := range prices.Timestamps() {
		if ts.Before(cfg.Simulation.From) || ts.After(cfg.Simulation.To) {
			continue
		}
		timeStamps = append(timeStamps, ts.In(loc))
	}
	return timeStamps
}
