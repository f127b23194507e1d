package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/utility/fixed"
)

func TestAudit_RecordsTradesAndSnapshots(t *testing.T) {
	sim := &recordingSim{price: 10, fill: fillAll}
	s := newOrderStrategy(t, 1_000_000, minutes(2), orderRule("X", 100, common.TimeInForceGoodTillCancel), sim)

	audit := NewAudit(0)
	require.NoError(t, audit.Attach(s))
	require.NoError(t, s.Run(context.Background()))

	require.Len(t, audit.Trades(), 1)
	assert.Equal(t, 100.0, audit.Trades()[0].Qty)

	snapshots := audit.AccountSnapshots()
	require.Len(t, snapshots, 2)
	assert.Equal(t, t0, snapshots[0].TimeStamp)
	assert.Equal(t, 1_000_000.0, snapshots[0].Cash)
	assert.Equal(t, 999_000.0, snapshots[1].Cash)
	assert.Equal(t, 100.0, snapshots[1].Positions["X"])
}

func TestAudit_MinSnapshotInterval(t *testing.T) {
	s := newTestStrategy(t, 1000)
	require.NoError(t, s.SetTimestamps(minutes(10)))
	require.NoError(t, s.AddRule("noop", func(context.Context, View, time.Time) ([]*common.Order, error) {
		return nil, nil
	}))
	require.NoError(t, s.EnableRuleGlobally("noop"))

	audit := NewAudit(5 * time.Minute)
	require.NoError(t, audit.Attach(s))
	require.NoError(t, s.Run(context.Background()))

	snapshots := audit.AccountSnapshots()
	require.Len(t, snapshots, 2)
	assert.Equal(t, t0.Add(5*time.Minute), snapshots[1].TimeStamp)
}

func TestStrategy_Summary(t *testing.T) {
	sim := &recordingSim{price: 10, fill: fillAll}
	s := newOrderStrategy(t, 1_000_000, minutes(2), orderRule("X", 100, common.TimeInForceGoodTillCancel), sim)
	require.NoError(t, s.Run(context.Background()))

	summary, err := s.Summary(map[string]float64{"X": 12})
	require.NoError(t, err)

	assert.Equal(t, s.ExecutionID(), summary.ExecutionId)
	assert.Equal(t, t0, summary.StartDate)
	assert.Equal(t, t0.Add(time.Minute), summary.EndDate)
	assert.Equal(t, 2, summary.Steps)
	assert.True(t, summary.FinalCash.Eq(fixed.FromInt64(999_000, 0)))
	assert.True(t, summary.FinalEquity.Eq(fixed.FromInt64(1_000_200, 0)))
	assert.True(t, summary.TotalReturn.Eq(fixed.FromInt64(2, 2)), summary.TotalReturn.String())
	assert.Equal(t, 1, summary.TotalTrades)
	assert.Equal(t, 1, summary.FilledOrders)
	assert.Equal(t, map[string]float64{"X": 100}, summary.Positions)

	core, logs := observer.New(zap.InfoLevel)
	summary.Print(zap.New(core))
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "run summary", logs.All()[0].Message)
	assert.Equal(t, "1000200.00", logs.All()[0].ContextMap()["final_equity"])

	_, err = s.Summary(nil)
	assert.Error(t, err)
}
