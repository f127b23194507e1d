package simulation

import (
	"context"
	"time"

	"github.com/peter-kozarec/btlite/pkg/common"
)

type AccountSnapshot struct {
	TimeStamp time.Time
	Cash      float64
	Positions map[string]float64
}

// Audit records every applied trade and account snapshots taken at the end
// of visited steps, at most one per minSnapshotInterval.
type Audit struct {
	minSnapshotInterval time.Duration

	accountSnapshots []AccountSnapshot
	trades           []common.Trade
}

func NewAudit(minSnapshotInterval time.Duration) *Audit {
	return &Audit{
		minSnapshotInterval: minSnapshotInterval,
	}
}

// Attach registers the audit callbacks on the strategy.
func (a *Audit) Attach(s *Strategy) error {
	if err := s.AddTradeCallback(a.OnTrade); err != nil {
		return err
	}
	s.AddStepCallback(a.OnStep)
	return nil
}

func (a *Audit) OnTrade(_ context.Context, _ View, _ time.Time, trade common.Trade) {
	a.trades = append(a.trades, trade)
}

func (a *Audit) OnStep(_ context.Context, view View, t time.Time) {
	if len(a.accountSnapshots) == 0 ||
		t.Sub(a.accountSnapshots[len(a.accountSnapshots)-1].TimeStamp) >= a.minSnapshotInterval {
		a.accountSnapshots = append(a.accountSnapshots, AccountSnapshot{
			TimeStamp: t,
			Cash:      view.Cash(),
			Positions: view.Positions(),
		})
	}
}

func (a *Audit) Trades() []common.Trade {
	return a.trades
}

func (a *Audit) AccountSnapshots() []AccountSnapshot {
	return a.accountSnapshots
}
