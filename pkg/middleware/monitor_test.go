package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/simulation"
)

var (
	testTime     = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	testContract = common.Contract{Symbol: "X", Multiplier: 1}
)

func orderRule(qty float64) simulation.Rule {
	return func(_ context.Context, _ simulation.View, t time.Time) ([]*common.Order, error) {
		return []*common.Order{common.NewOrder(0, testContract, t, qty, "test", common.TimeInForceGoodTillCancel)}, nil
	}
}

func newObservedMonitor(flags MonitorFlags) (*Monitor, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return NewMonitor(zap.New(core), flags), logs
}

func TestMiddlewareMonitor_ParseMonitorFlags(t *testing.T) {
	flags, ok := ParseMonitorFlags("orders", "trades")
	assert.True(t, ok)
	assert.Equal(t, MonitorOrders|MonitorTrades, flags)

	flags, ok = ParseMonitorFlags("orders", "bogus")
	assert.False(t, ok)
	assert.Equal(t, MonitorOrders, flags)
}

func TestMiddlewareMonitor_WithRule(t *testing.T) {
	tests := []struct {
		name    string
		flags   MonitorFlags
		wantLog int
	}{
		{"orders", MonitorOrders, 1},
		{"all", MonitorAll, 1},
		{"trades only", MonitorTrades, 0},
		{"none", MonitorNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, logs := newObservedMonitor(tt.flags)

			orders, err := m.WithRule(orderRule(5))(context.Background(), nil, testTime)
			require.NoError(t, err)
			assert.Len(t, orders, 1)
			assert.Equal(t, tt.wantLog, logs.Len())
		})
	}
}

func TestMiddlewareMonitor_WithMarketSimulator(t *testing.T) {
	m, logs := newObservedMonitor(MonitorReadyOrders)

	order := common.NewOrder(1, testContract, testTime, 5, "", common.TimeInForceGoodTillCancel)
	called := false
	sim := simulation.MarketSimulatorFunc(func(context.Context, time.Time, []*common.Order) ([]common.Trade, error) {
		called = true
		return nil, nil
	})

	_, err := m.WithMarketSimulator(sim).Simulate(context.Background(), testTime, []*common.Order{order})
	require.NoError(t, err)
	assert.True(t, called)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "ready_order", logs.All()[0].ContextMap()["event"])
}

func TestMiddlewareMonitor_WithTradeCallback(t *testing.T) {
	m, logs := newObservedMonitor(MonitorTrades)

	order := common.NewOrder(1, testContract, testTime, 5, "", common.TimeInForceGoodTillCancel)
	called := false
	callback := m.WithTradeCallback(func(context.Context, simulation.View, time.Time, common.Trade) {
		called = true
	})
	callback(context.Background(), nil, testTime, common.NewTrade(order, testTime, 5, 10))

	assert.True(t, called)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "X", logs.All()[0].ContextMap()["symbol"])
}

func TestMiddleware_WrappedStrategyRun(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	monitor := NewMonitor(logger, MonitorOrders|MonitorTrades)
	telemetry := NewTelemetry(logger)
	performance := NewPerformance(logger)

	s, err := simulation.NewStrategy(1000, simulation.WithTradeLag(0), simulation.WithContracts(staticContracts{}))
	require.NoError(t, err)
	require.NoError(t, s.SetTimestamps([]time.Time{testTime}))

	rule := Chain(monitor.WithRule, telemetry.WithRule, performance.WithRule)(orderRule(5))
	require.NoError(t, s.AddRule("entry", rule))
	require.NoError(t, s.EnableRule("entry", []time.Time{testTime}))

	sim := simulation.MarketSimulatorFunc(func(_ context.Context, t time.Time, ready []*common.Order) ([]common.Trade, error) {
		var trades []common.Trade
		for _, order := range ready {
			trades = append(trades, common.NewTrade(order, t, order.Qty, 10))
		}
		return trades, nil
	})
	require.NoError(t, s.AddMarketSimulator(Chain(telemetry.WithMarketSimulator, performance.WithMarketSimulator)(sim)))
	require.NoError(t, s.AddTradeCallback(Chain(monitor.WithTradeCallback, telemetry.WithTradeCallback)(NoopTradeCallback)))
	s.AddStepCallback(Chain(telemetry.WithStepCallback, performance.WithStepCallback)(NoopStepCallback))

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 950.0, s.Cash())

	assert.Equal(t, int64(1), telemetry.ruleCallCounter)
	assert.Equal(t, int64(1), telemetry.orderCounter)
	assert.Equal(t, int64(1), telemetry.simulatorCallCounter)
	assert.Equal(t, int64(1), telemetry.tradeEventCounter)
	assert.Equal(t, int64(1), telemetry.stepEventCounter)

	assert.Equal(t, 2, logs.FilterMessage("event").Len())

	telemetry.PrintStatistics()
	performance.PrintStatistics()
	assert.Equal(t, 1, logs.FilterMessage("event statistics").Len())
	assert.Equal(t, 1, logs.FilterMessage("handler durations").Len())
}

type staticContracts struct{}

func (staticContracts) Get(symbol string) (common.Contract, error) {
	return common.Contract{Symbol: symbol, Multiplier: 1}, nil
}
