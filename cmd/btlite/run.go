package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/peter-kozarec/btlite/examples/strategy"
	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/config"
	"github.com/peter-kozarec/btlite/pkg/exchange/sandbox"
	"github.com/peter-kozarec/btlite/pkg/middleware"
	"github.com/peter-kozarec/btlite/pkg/simulation"
	"github.com/peter-kozarec/btlite/pkg/tools/store"
	"github.com/peter-kozarec/btlite/pkg/utility"
	"github.com/peter-kozarec/btlite/pkg/utility/fixed"
)

const (
	entryRuleName = "entry"
	exitRuleName  = "exit"
)

var ErrNoTimestamps = errors.New("no price timestamps within the simulation period")

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "runs a backtest described by a configuration file",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    "path to the YAML configuration",
			Required: true,
		},
	},
	Action: runAction,
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	logger, err := utility.NewLogger(cfg.Log.Development, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	logger.Info(fmt.Sprintf("btlite %s", Version))
	defer logger.Info("done")

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return runBacktest(ctx, logger, cfg)
}

// backtest bundles the strategy with the collaborators inspected after a run.
type backtest struct {
	strategy    *simulation.Strategy
	audit       *simulation.Audit
	telemetry   *middleware.Telemetry
	performance *middleware.Performance
}

func runBacktest(ctx context.Context, logger *zap.Logger, cfg *config.Config) error {
	prices, err := loadPrices(ctx, logger, cfg)
	if err != nil {
		return err
	}

	bt, err := newBacktest(logger, cfg, prices)
	if err != nil {
		return err
	}
	defer bt.performance.PrintStatistics()
	defer bt.telemetry.PrintStatistics()

	if err := bt.strategy.Run(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Warn("run interrupted", zap.Time("now", bt.strategy.Now()))
	}

	summary, err := bt.strategy.Summary(prices.Snapshot(bt.strategy.Now()))
	if err != nil {
		return fmt.Errorf("unable to create run summary: %w", err)
	}
	summary.Print(logger)
	logger.Info("audit",
		zap.Int("trades", len(bt.audit.Trades())),
		zap.Int("account_snapshots", len(bt.audit.AccountSnapshots())))
	return nil
}

func newBacktest(logger *zap.Logger, cfg *config.Config, prices *common.PriceTable) (*backtest, error) {
	contracts, err := store.NewContractStore(cfg.Contracts...)
	if err != nil {
		return nil, err
	}
	contract, err := contracts.Get(cfg.Strategy.Symbol)
	if err != nil {
		return nil, err
	}
	entryTimeInForce, err := cfg.Strategy.TimeInForce()
	if err != nil {
		return nil, err
	}

	timeStamps := periodTimestamps(prices, cfg)
	if len(timeStamps) == 0 {
		return nil, fmt.Errorf("%s - %s: %w", cfg.Simulation.From, cfg.Simulation.To, ErrNoTimestamps)
	}

	s, err := simulation.NewStrategy(cfg.Simulation.InitialCash,
		simulation.WithLogger(logger),
		simulation.WithTradeLag(cfg.Simulation.TradeLag),
		simulation.WithContracts(contracts))
	if err != nil {
		return nil, err
	}
	if err := s.SetTimestamps(timeStamps); err != nil {
		return nil, err
	}

	monitor := middleware.NewMonitor(logger, cfg.MonitorFlags())
	telemetry := middleware.NewTelemetry(logger)
	performance := middleware.NewPerformance(logger)

	withRule := middleware.Chain(telemetry.WithRule, performance.WithRule, monitor.WithRule)
	withSimulator := middleware.Chain(telemetry.WithMarketSimulator, performance.WithMarketSimulator, monitor.WithMarketSimulator)
	withTradeCallback := middleware.Chain(telemetry.WithTradeCallback, performance.WithTradeCallback, monitor.WithTradeCallback)
	withStepCallback := middleware.Chain(telemetry.WithStepCallback, performance.WithStepCallback, monitor.WithStepCallback)

	opens, closes := strategy.SessionBounds(timeStamps)
	entry := strategy.NewEntryRule(contract.Symbol, cfg.Strategy.Fraction, entryTimeInForce, prices)
	exit := strategy.NewExitRule(contract.Symbol)

	if err := s.AddRule(entryRuleName, withRule(entry.Evaluate)); err != nil {
		return nil, err
	}
	if err := s.AddRule(exitRuleName, withRule(exit.Evaluate)); err != nil {
		return nil, err
	}
	if err := s.EnableRule(entryRuleName, opens); err != nil {
		return nil, err
	}
	if err := s.EnableRule(exitRuleName, closes); err != nil {
		return nil, err
	}

	sim, err := newSimulator(logger, cfg, prices)
	if err != nil {
		return nil, err
	}
	if err := s.AddMarketSimulator(withSimulator(sim)); err != nil {
		return nil, err
	}

	audit := simulation.NewAudit(cfg.Simulation.SnapshotInterval)
	if err := s.AddTradeCallback(withTradeCallback(audit.OnTrade)); err != nil {
		return nil, err
	}
	s.AddStepCallback(withStepCallback(audit.OnStep))

	logger.Info("backtest created",
		zap.String("execution_id", s.ExecutionID().String()),
		zap.String("symbol", contract.Symbol),
		zap.Int("timestamps", len(timeStamps)),
		zap.Int("sessions", len(opens)))

	return &backtest{
		strategy:    s,
		audit:       audit,
		telemetry:   telemetry,
		performance: performance,
	}, nil
}

func newSimulator(logger *zap.Logger, cfg *config.Config, prices *common.PriceTable) (*sandbox.Simulator, error) {
	options := []sandbox.Option{
		sandbox.WithLogger(logger),
		sandbox.WithSlippage(fixed.FromFloat64(cfg.Sandbox.Slippage)),
	}
	if cfg.Sandbox.TickRounding {
		options = append(options, sandbox.WithTickRounding())
	}
	if cfg.Sandbox.MaxFillQty > 0 {
		options = append(options, sandbox.WithMaxFillQty(cfg.Sandbox.MaxFillQty))
	}
	return sandbox.NewSimulator(prices, options...)
}
