package middleware

import (
	"context"
	"time"

	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/simulation"
	"go.uber.org/zap"
)

type Telemetry struct {
	logger *zap.Logger

	ruleCallCounter      int64
	orderCounter         int64
	simulatorCallCounter int64
	readyOrderCounter    int64
	tradeEventCounter    int64
	stepEventCounter     int64
}

func NewTelemetry(logger *zap.Logger) *Telemetry {
	return &Telemetry{
		logger: logger,
	}
}

func (t *Telemetry) WithRule(rule simulation.Rule) simulation.Rule {
	return func(ctx context.Context, view simulation.View, ts time.Time) ([]*common.Order, error) {
		t.ruleCallCounter++
		orders, err := rule(ctx, view, ts)
		t.orderCounter += int64(len(orders))
		return orders, err
	}
}

func (t *Telemetry) WithMarketSimulator(sim simulation.MarketSimulator) simulation.MarketSimulator {
	return simulation.MarketSimulatorFunc(func(ctx context.Context, ts time.Time, ready []*common.Order) ([]common.Trade, error) {
		t.simulatorCallCounter++
		t.readyOrderCounter += int64(len(ready))
		return sim.Simulate(ctx, ts, ready)
	})
}

func (t *Telemetry) WithTradeCallback(callback simulation.TradeCallback) simulation.TradeCallback {
	return func(ctx context.Context, view simulation.View, ts time.Time, trade common.Trade) {
		t.tradeEventCounter++
		callback(ctx, view, ts, trade)
	}
}

func (t *Telemetry) WithStepCallback(callback simulation.StepCallback) simulation.StepCallback {
	return func(ctx context.Context, view simulation.View, ts time.Time) {
		t.stepEventCounter++
		callback(ctx, view, ts)
	}
}

func (t *Telemetry) PrintStatistics() {
	t.logger.Info("event statistics",
		zap.Int64("rule_calls", t.ruleCallCounter),
		zap.Int64("orders", t.orderCounter),
		zap.Int64("simulator_calls", t.simulatorCallCounter),
		zap.Int64("ready_orders", t.readyOrderCounter),
		zap.Int64("trade_events", t.tradeEventCounter),
		zap.Int64("step_events", t.stepEventCounter))
}
