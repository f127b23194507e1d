package middleware

import (
	"context"
	"time"

	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/simulation"
)

//goland:noinspection ALL
var (
	NoopRule          simulation.Rule          = func(context.Context, simulation.View, time.Time) ([]*common.Order, error) { return nil, nil }
	NoopTradeCallback simulation.TradeCallback = func(context.Context, simulation.View, time.Time, common.Trade) {}
	NoopStepCallback  simulation.StepCallback  = func(context.Context, simulation.View, time.Time) {}
)
