package simulation

import (
	"fmt"
	"time"

	"github.com/peter-kozarec/btlite/pkg/utility"
	"github.com/peter-kozarec/btlite/pkg/utility/fixed"
	"go.uber.org/zap"
)

type Summary struct {
	ExecutionId     utility.ExecutionID
	StartDate       time.Time
	EndDate         time.Time
	Steps           int
	InitialCash     fixed.Point
	FinalCash       fixed.Point
	FinalEquity     fixed.Point
	TotalReturn     fixed.Point
	TotalTrades     int
	FilledOrders    int
	CancelledOrders int
	LiveOrders      int
	Positions       map[string]float64
}

// Summary values the account at prices and collects the run counters.
func (s *Strategy) Summary(prices map[string]float64) (Summary, error) {
	equity, err := s.CurrentEquity(prices)
	if err != nil {
		return Summary{}, fmt.Errorf("unable to build summary: %w", err)
	}

	summary := Summary{
		ExecutionId:     s.executionId,
		StartDate:       s.start,
		EndDate:         s.now,
		Steps:           s.steps,
		InitialCash:     fixed.FromFloat64(s.initialCash),
		FinalCash:       fixed.FromFloat64(s.account.Cash()),
		FinalEquity:     fixed.FromFloat64(equity),
		TotalReturn:     fixed.Zero,
		TotalTrades:     len(s.trades),
		FilledOrders:    len(s.filledOrders),
		CancelledOrders: len(s.cancelledOrders),
		LiveOrders:      len(s.liveOrders),
		Positions:       s.account.Positions(),
	}
	if summary.InitialCash.Gt(fixed.Zero) {
		summary.TotalReturn = summary.FinalEquity.Div(summary.InitialCash).Sub(fixed.One).Mul(fixed.Hundred).Round(2)
	}
	return summary, nil
}

func (summary Summary) Print(logger *zap.Logger) {
	logger.Info("run summary",
		zap.Stringer("execution_id", summary.ExecutionId),
		zap.Time("start_date", summary.StartDate),
		zap.Time("end_date", summary.EndDate),
		zap.Int("steps", summary.Steps),
		zap.String("initial_cash", summary.InitialCash.Rescale(2).String()),
		zap.String("final_cash", summary.FinalCash.Rescale(2).String()),
		zap.String("final_equity", summary.FinalEquity.Rescale(2).String()),
		zap.String("total_return", fmt.Sprintf("%s%%", summary.TotalReturn.String())),
	)

	logger.Info("order statistics",
		zap.Int("total_trades", summary.TotalTrades),
		zap.Int("filled_orders", summary.FilledOrders),
		zap.Int("cancelled_orders", summary.CancelledOrders),
		zap.Int("live_orders", summary.LiveOrders),
		zap.Any("positions", summary.Positions),
	)
}
