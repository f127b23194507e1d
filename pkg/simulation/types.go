package simulation

import (
	"context"
	"time"

	"github.com/peter-kozarec/btlite/pkg/common"
)

// View is the read-only picture of the strategy that rules and callbacks
// receive. Rules express intent only through the orders they return.
type View interface {
	Now() time.Time
	TradeLag() time.Duration
	Cash() float64
	Position(symbol string) float64
	Positions() map[string]float64
	CurrentEquity(prices map[string]float64) (float64, error)
	Contract(symbol string) (common.Contract, error)
	LiveOrders() []common.Order
}

// Rule is a named decision function. Orders it returns are built with
// common.NewOrder; the strategy assigns their ids on acceptance.
type Rule func(ctx context.Context, view View, t time.Time) ([]*common.Order, error)

// MarketSimulator turns the orders ready at t into trades. Trades must only
// reference orders from the ready list. The ready orders belong to the
// strategy and must not be modified.
type MarketSimulator interface {
	Simulate(ctx context.Context, t time.Time, ready []*common.Order) ([]common.Trade, error)
}

type MarketSimulatorFunc func(ctx context.Context, t time.Time, ready []*common.Order) ([]common.Trade, error)

func (f MarketSimulatorFunc) Simulate(ctx context.Context, t time.Time, ready []*common.Order) ([]common.Trade, error) {
	return f(ctx, t, ready)
}

// TradeCallback receives every applied trade. The trade's order is a copy.
type TradeCallback func(ctx context.Context, view View, t time.Time, trade common.Trade)

type StepCallback func(ctx context.Context, view View, t time.Time)
