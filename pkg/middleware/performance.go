package middleware

import (
	"context"
	"time"

	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/simulation"
	"go.uber.org/zap"
)

// Performance measures wall clock time spent inside wrapped handlers. The
// measurements never feed back into the simulation.
type Performance struct {
	logger *zap.Logger

	totalRuleDur          time.Duration
	totalSimulatorDur     time.Duration
	totalTradeCallbackDur time.Duration
	totalStepCallbackDur  time.Duration
}

func NewPerformance(logger *zap.Logger) *Performance {
	return &Performance{
		logger: logger,
	}
}

func (p *Performance) WithRule(rule simulation.Rule) simulation.Rule {
	return func(ctx context.Context, view simulation.View, t time.Time) ([]*common.Order, error) {
		startTime := time.Now()
		defer func() { p.totalRuleDur += time.Since(startTime) }()
		return rule(ctx, view, t)
	}
}

func (p *Performance) WithMarketSimulator(sim simulation.MarketSimulator) simulation.MarketSimulator {
	return simulation.MarketSimulatorFunc(func(ctx context.Context, t time.Time, ready []*common.Order) ([]common.Trade, error) {
		startTime := time.Now()
		defer func() { p.totalSimulatorDur += time.Since(startTime) }()
		return sim.Simulate(ctx, t, ready)
	})
}

func (p *Performance) WithTradeCallback(callback simulation.TradeCallback) simulation.TradeCallback {
	return func(ctx context.Context, view simulation.View, t time.Time, trade common.Trade) {
		startTime := time.Now()
		callback(ctx, view, t, trade)
		p.totalTradeCallbackDur += time.Since(startTime)
	}
}

func (p *Performance) WithStepCallback(callback simulation.StepCallback) simulation.StepCallback {
	return func(ctx context.Context, view simulation.View, t time.Time) {
		startTime := time.Now()
		callback(ctx, view, t)
		p.totalStepCallbackDur += time.Since(startTime)
	}
}

func (p *Performance) PrintStatistics() {
	p.logger.Info("handler durations",
		zap.Duration("rules", p.totalRuleDur),
		zap.Duration("market_simulators", p.totalSimulatorDur),
		zap.Duration("trade_callbacks", p.totalTradeCallbackDur),
		zap.Duration("step_callbacks", p.totalStepCallbackDur))
}
