package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/simulation"
	"github.com/peter-kozarec/btlite/pkg/tools/store"
	"github.com/peter-kozarec/btlite/pkg/utility/fixed"
)

var (
	t0      = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	eurUsd  = common.Contract{Symbol: "EURUSD", Multiplier: 100000, TickSize: 0.00001}
	spy     = common.Contract{Symbol: "SPY", Multiplier: 1, TickSize: 0.01}
	noPrice = common.Contract{Symbol: "QQQ", Multiplier: 1, TickSize: 0.01}
)

func createTestPrices() *common.PriceTable {
	prices := common.NewPriceTable()
	prices.Set("EURUSD", t0, 1.1)
	prices.Set("SPY", t0, 470.123)
	prices.Set("SPY", t0.Add(time.Minute), 471)
	return prices
}

func openOrder(t *testing.T, contract common.Contract, qty float64) *common.Order {
	t.Helper()
	order := common.NewOrder(1, contract, t0, qty, "", common.TimeInForceGoodTillCancel)
	_, err := order.ApplyDueModification(t0, 0)
	require.NoError(t, err)
	return order
}

func TestSandboxSimulator_NewSimulator(t *testing.T) {
	_, err := NewSimulator(nil)
	assert.ErrorIs(t, err, ErrNoPriceProvider)

	_, err = NewSimulator(createTestPrices(), WithMaxFillQty(-1))
	assert.Error(t, err)
}

func TestSandboxSimulator_Simulate(t *testing.T) {
	tests := []struct {
		name      string
		options   []Option
		contract  common.Contract
		qty       float64
		wantQty   float64
		wantPrice float64
		wantTrade bool
	}{
		{
			name:      "buy at reference price",
			contract:  spy,
			qty:       10,
			wantQty:   10,
			wantPrice: 470.123,
			wantTrade: true,
		},
		{
			name:      "buy with slippage",
			options:   []Option{WithSlippage(fixed.FromFloat64(0.05))},
			contract:  spy,
			qty:       10,
			wantQty:   10,
			wantPrice: 470.173,
			wantTrade: true,
		},
		{
			name:      "sell with slippage",
			options:   []Option{WithSlippage(fixed.FromFloat64(0.05))},
			contract:  spy,
			qty:       -10,
			wantQty:   -10,
			wantPrice: 470.073,
			wantTrade: true,
		},
		{
			name:      "tick rounding",
			options:   []Option{WithTickRounding()},
			contract:  spy,
			qty:       10,
			wantQty:   10,
			wantPrice: 470.12,
			wantTrade: true,
		},
		{
			name:      "max fill quantity on sell",
			options:   []Option{WithMaxFillQty(4)},
			contract:  spy,
			qty:       -10,
			wantQty:   -4,
			wantPrice: 470.123,
			wantTrade: true,
		},
		{
			name:      "forex",
			contract:  eurUsd,
			qty:       0.1,
			wantQty:   0.1,
			wantPrice: 1.1,
			wantTrade: true,
		},
		{
			name:     "no price",
			contract: noPrice,
			qty:      10,
		},
		{
			name:     "slippage below zero",
			options:  []Option{WithSlippage(fixed.FromInt64(2, 0))},
			contract: eurUsd,
			qty:      -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, err := NewSimulator(createTestPrices(), tt.options...)
			require.NoError(t, err)

			order := openOrder(t, tt.contract, tt.qty)
			trades, err := sim.Simulate(context.Background(), t0, []*common.Order{order})
			require.NoError(t, err)

			if !tt.wantTrade {
				assert.Empty(t, trades)
				return
			}
			require.Len(t, trades, 1)
			assert.Same(t, order, trades[0].Order)
			assert.Equal(t, tt.wantQty, trades[0].Qty)
			assert.InDelta(t, tt.wantPrice, trades[0].Price, 1e-9)
			assert.Equal(t, t0, trades[0].TimeStamp)
		})
	}
}

func TestSandboxSimulator_SlippageHandler(t *testing.T) {
	sim, err := NewSimulator(createTestPrices(), WithSlippageHandler(func(order *common.Order) fixed.Point {
		return fixed.FromFloat64(0.01 * order.Qty)
	}))
	require.NoError(t, err)

	trades, err := sim.Simulate(context.Background(), t0, []*common.Order{openOrder(t, spy, 100)})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.InDelta(t, 471.123, trades[0].Price, 1e-9)
}

func TestSandboxSimulator_StrategyRun(t *testing.T) {
	contracts, err := store.NewContractStore(spy)
	require.NoError(t, err)

	s, err := simulation.NewStrategy(100_000, simulation.WithContracts(contracts))
	require.NoError(t, err)
	require.NoError(t, s.SetTimestamps([]time.Time{t0, t0.Add(time.Minute), t0.Add(2 * time.Minute)}))
	require.NoError(t, s.AddRule("entry", func(_ context.Context, _ simulation.View, ts time.Time) ([]*common.Order, error) {
		return []*common.Order{common.NewOrder(0, spy, ts, 10, "entry", common.TimeInForceGoodTillCancel)}, nil
	}))
	require.NoError(t, s.EnableRule("entry", []time.Time{t0}))

	sim, err := NewSimulator(createTestPrices(), WithMaxFillQty(6), WithTickRounding())
	require.NoError(t, err)
	require.NoError(t, s.AddMarketSimulator(sim))

	require.NoError(t, s.Run(context.Background()))

	trades := s.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, 6.0, trades[0].Qty)
	assert.Equal(t, 471.0, trades[0].Price)
	assert.Equal(t, 6.0, s.Position("SPY"))
	assert.InDelta(t, 100_000-6*471.0, s.Cash(), 1e-9)

	live := s.LiveOrders()
	require.Len(t, live, 1)
	assert.Equal(t, common.OrderStatusPartiallyFilled, live[0].Status)
}

func TestSandboxSimulator_NilLoggerKeepsDefault(t *testing.T) {
	sim, err := NewSimulator(createTestPrices(), WithLogger(nil))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		trades, err := sim.Simulate(context.Background(), t0, []*common.Order{openOrder(t, noPrice, 1)})
		assert.NoError(t, err)
		assert.Empty(t, trades)
	})
}
