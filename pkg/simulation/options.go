package simulation

import (
	"time"

	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/timeline"
	"go.uber.org/zap"
)

const DefaultTradeLag = time.Minute

type Option func(*Strategy)

func WithTradeLag(lag time.Duration) Option {
	return func(s *Strategy) {
		s.tradeLag = lag
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Strategy) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithContracts(contracts common.ContractLookup) Option {
	return func(s *Strategy) {
		s.contracts = contracts
	}
}

func WithTimeline(tl timeline.Timeline) Option {
	return func(s *Strategy) {
		s.timeline = tl
	}
}
