package common

import (
	"errors"

	"go.uber.org/zap"
)

var (
	ErrSymbolNotPresent = errors.New("symbol is not present in contract table")
)

// Contract is the static description of a tradable instrument.
type Contract struct {
	Symbol     string  `json:"symbol" mapstructure:"symbol"`
	Multiplier float64 `json:"multiplier" mapstructure:"multiplier"`
	TickSize   float64 `json:"tick_size,omitempty" mapstructure:"tick_size"`
}

// ContractLookup resolves a symbol into its contract. Implementations must
// return an error wrapping ErrSymbolNotPresent for unknown symbols. The
// returned Contract.Symbol is the canonical key positions are booked under,
// and looking it up again must resolve to the same contract.
type ContractLookup interface {
	Get(symbol string) (Contract, error)
}

func (c Contract) Fields() []zap.Field {
	return []zap.Field{
		zap.String("symbol", c.Symbol),
		zap.Float64("multiplier", c.Multiplier),
		zap.Float64("tick_size", c.TickSize),
	}
}
