package middleware

import (
	"context"
	"time"

	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/simulation"
	"go.uber.org/zap"
)

type MonitorFlags uint16

//goland:noinspection GoUnusedConst
const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorOrders
	MonitorReadyOrders
	MonitorTrades
	MonitorSteps
)

var monitorFlagNames = map[string]MonitorFlags{
	"none":         MonitorNone,
	"all":          MonitorAll,
	"orders":       MonitorOrders,
	"ready_orders": MonitorReadyOrders,
	"trades":       MonitorTrades,
	"steps":        MonitorSteps,
}

// ParseMonitorFlags combines flag names as used in configuration files.
// Unknown names are reported through ok.
func ParseMonitorFlags(names ...string) (flags MonitorFlags, ok bool) {
	ok = true
	for _, name := range names {
		flag, found := monitorFlagNames[name]
		if !found {
			ok = false
			continue
		}
		flags |= flag
	}
	return flags, ok
}

type Monitor struct {
	logger *zap.Logger
	flags  MonitorFlags
}

func NewMonitor(logger *zap.Logger, flags MonitorFlags) *Monitor {
	return &Monitor{
		logger: logger,
		flags:  flags,
	}
}

func (m *Monitor) enabled(flag MonitorFlags) bool {
	return m.flags&flag != 0 || m.flags&MonitorAll != 0
}

func (m *Monitor) WithRule(rule simulation.Rule) simulation.Rule {
	return func(ctx context.Context, view simulation.View, t time.Time) ([]*common.Order, error) {
		orders, err := rule(ctx, view, t)
		if m.enabled(MonitorOrders) {
			for _, order := range orders {
				if order != nil {
					m.logger.Info("event", append(order.Fields(), zap.String("event", "order"), zap.Time("ts", t))...)
				}
			}
		}
		return orders, err
	}
}

func (m *Monitor) WithMarketSimulator(sim simulation.MarketSimulator) simulation.MarketSimulator {
	return simulation.MarketSimulatorFunc(func(ctx context.Context, t time.Time, ready []*common.Order) ([]common.Trade, error) {
		if m.enabled(MonitorReadyOrders) {
			for _, order := range ready {
				m.logger.Info("event", append(order.Fields(), zap.String("event", "ready_order"), zap.Time("ts", t))...)
			}
		}
		return sim.Simulate(ctx, t, ready)
	})
}

func (m *Monitor) WithTradeCallback(callback simulation.TradeCallback) simulation.TradeCallback {
	return func(ctx context.Context, view simulation.View, t time.Time, trade common.Trade) {
		if m.enabled(MonitorTrades) {
			m.logger.Info("event", append(trade.Fields(), zap.String("event", "trade"))...)
		}
		callback(ctx, view, t, trade)
	}
}

func (m *Monitor) WithStepCallback(callback simulation.StepCallback) simulation.StepCallback {
	return func(ctx context.Context, view simulation.View, t time.Time) {
		if m.enabled(MonitorSteps) {
			m.logger.Info("event",
				zap.String("event", "step"),
				zap.Time("ts", t),
				zap.Float64("cash", view.Cash()),
				zap.Int("live_orders", len(view.LiveOrders())))
		}
		callback(ctx, view, t)
	}
}
