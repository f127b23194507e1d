package sandbox

import (
	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/utility/fixed"
	"go.uber.org/zap"
)

type Option func(*Simulator)

// SlippageHandler returns the price distance moved against the order.
type SlippageHandler func(*common.Order) fixed.Point

func WithSlippage(slippage fixed.Point) Option {
	return func(s *Simulator) {
		s.slippageHandler = func(*common.Order) fixed.Point { return slippage }
	}
}

func WithSlippageHandler(slippageHandler SlippageHandler) Option {
	return func(s *Simulator) {
		s.slippageHandler = slippageHandler
	}
}

// WithTickRounding rounds fill prices to the contract tick size.
func WithTickRounding() Option {
	return func(s *Simulator) {
		s.tickRounding = true
	}
}

// WithMaxFillQty caps the absolute quantity filled per order and step.
// Orders above the cap fill partially over several steps.
func WithMaxFillQty(maxFillQty float64) Option {
	return func(s *Simulator) {
		s.maxFillQty = maxFillQty
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}
