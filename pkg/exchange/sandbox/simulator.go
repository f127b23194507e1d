package sandbox

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/utility/fixed"
	"go.uber.org/zap"
)

var ErrNoPriceProvider = errors.New("price provider is not set")

// Simulator is the reference market simulator. It fills every ready order
// whose symbol has a price at the step timestamp.
type Simulator struct {
	logger *zap.Logger
	prices PriceProvider

	slippageHandler SlippageHandler
	tickRounding    bool
	maxFillQty      float64
}

func NewSimulator(prices PriceProvider, options ...Option) (*Simulator, error) {
	if prices == nil {
		return nil, ErrNoPriceProvider
	}

	s := &Simulator{
		logger:          zap.NewNop(),
		prices:          prices,
		slippageHandler: func(*common.Order) fixed.Point { return fixed.Zero },
	}

	for _, option := range options {
		option(s)
	}

	if s.maxFillQty < 0 || math.IsNaN(s.maxFillQty) {
		return nil, fmt.Errorf("max fill quantity %v must not be negative", s.maxFillQty)
	}
	return s, nil
}

func (s *Simulator) Simulate(_ context.Context, t time.Time, ready []*common.Order) ([]common.Trade, error) {
	var trades []common.Trade
	for _, order := range ready {
		price, ok := s.prices.Get(order.Contract.Symbol, t)
		if !ok {
			s.logger.Debug("no price for order, skipping", append(order.Fields(), zap.Time("ts", t))...)
			continue
		}

		fillPrice := s.fillPrice(order, price)
		if fillPrice.Sign() <= 0 {
			s.logger.Warn("fill price is not positive, skipping",
				append(order.Fields(), zap.Time("ts", t), zap.String("fill_price", fillPrice.String()))...)
			continue
		}

		trades = append(trades, common.NewTrade(order, t, s.fillQty(order), fillPrice.Float64()))
	}
	return trades, nil
}

func (s *Simulator) fillPrice(order *common.Order, price float64) fixed.Point {
	p := fixed.FromFloat64(price)

	slippage := s.slippageHandler(order).Abs()
	if order.IsBuy() {
		p = p.Add(slippage)
	} else {
		p = p.Sub(slippage)
	}

	if s.tickRounding && order.Contract.TickSize > 0 {
		p = p.RoundToStep(fixed.FromFloat64(order.Contract.TickSize))
	}
	return p
}

func (s *Simulator) fillQty(order *common.Order) float64 {
	if s.maxFillQty > 0 && math.Abs(order.Qty) > s.maxFillQty {
		return math.Copysign(s.maxFillQty, order.Qty)
	}
	return order.Qty
}
