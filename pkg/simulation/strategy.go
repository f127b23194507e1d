package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/peter-kozarec/btlite/pkg/account"
	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/timeline"
	"github.com/peter-kozarec/btlite/pkg/tools/store"
	"github.com/peter-kozarec/btlite/pkg/utility"
	"go.uber.org/zap"
)

var (
	ErrInvalidTradeLag      = errors.New("trade lag cannot be negative")
	ErrInvalidCash          = errors.New("initial cash must be a finite non-negative number")
	ErrInvalidTrade         = errors.New("invalid trade")
	ErrAlreadyStarted       = errors.New("strategy run has already started")
	ErrInvalidSimulator     = errors.New("market simulator is nil")
	ErrInvalidTradeCallback = errors.New("trade callback is nil")
	ErrUnknownOrder         = errors.New("order is not live")
)

// Strategy owns every piece of mutable simulation state: the rule registry,
// the order lists, the account and the clock. It is driven by a single
// goroutine and produces identical histories for identical inputs.
type Strategy struct {
	logger      *zap.Logger
	executionId utility.ExecutionID

	tradeLag  time.Duration
	contracts common.ContractLookup
	timeline  timeline.Timeline

	registry       *ruleRegistry
	marketSims     []MarketSimulator
	tradeCallbacks []TradeCallback
	stepCallbacks  []StepCallback

	initialCash     float64
	account         *account.Account
	orderIdCounter  common.OrderId
	liveOrders      []*common.Order
	filledOrders    []*common.Order
	cancelledOrders []*common.Order
	trades          []common.Trade

	start   time.Time
	now     time.Time
	started bool
	steps   int
}

func NewStrategy(initialCash float64, options ...Option) (*Strategy, error) {
	if initialCash < 0 || math.IsNaN(initialCash) || math.IsInf(initialCash, 0) {
		return nil, fmt.Errorf("initial cash %v: %w", initialCash, ErrInvalidCash)
	}

	s := &Strategy{
		logger:      zap.NewNop(),
		executionId: utility.NewExecutionID(),
		tradeLag:    DefaultTradeLag,
		registry:    newRuleRegistry(),
		initialCash: initialCash,
		account:     account.New(initialCash),
	}

	for _, option := range options {
		option(s)
	}

	if s.tradeLag < 0 {
		return nil, fmt.Errorf("trade lag %v: %w", s.tradeLag, ErrInvalidTradeLag)
	}
	if s.contracts == nil {
		contracts, _ := store.NewContractStore()
		s.contracts = contracts
	}
	return s, nil
}

func (s *Strategy) ExecutionID() utility.ExecutionID {
	return s.executionId
}

// SetTimestamps replaces the timeline. Timestamps must be strictly increasing.
func (s *Strategy) SetTimestamps(timeStamps []time.Time) error {
	if s.started {
		return ErrAlreadyStarted
	}
	tl, err := timeline.New(timeStamps)
	if err != nil {
		return fmt.Errorf("unable to set timestamps: %w", err)
	}
	s.timeline = tl
	return nil
}

// SetMarketCalendar builds the timeline from a trading calendar.
func (s *Strategy) SetMarketCalendar(calendar timeline.Calendar, from, to time.Time, freq time.Duration) error {
	if s.started {
		return ErrAlreadyStarted
	}
	tl, err := timeline.FromCalendar(calendar, from, to, freq)
	if err != nil {
		return fmt.Errorf("unable to set market calendar: %w", err)
	}
	s.timeline = tl
	return nil
}

func (s *Strategy) Timeline() timeline.Timeline {
	return s.timeline
}

func (s *Strategy) AddRule(name string, rule Rule) error {
	return s.registry.add(name, rule)
}

// EnableRule schedules the rule at every given timestamp, merging with
// rules already scheduled there.
func (s *Strategy) EnableRule(name string, timeStamps []time.Time) error {
	return s.registry.enable(name, timeStamps)
}

// EnableRuleGlobally makes the rule run at every visited timestamp.
func (s *Strategy) EnableRuleGlobally(name string) error {
	return s.registry.enableGlobally(name)
}

// DisableRule removes global enablement only. Timestamp schedules stay.
func (s *Strategy) DisableRule(name string) error {
	return s.registry.disable(name)
}

func (s *Strategy) Rules() []string {
	return s.registry.names()
}

func (s *Strategy) AddMarketSimulator(sim MarketSimulator) error {
	if sim == nil {
		return ErrInvalidSimulator
	}
	s.marketSims = append(s.marketSims, sim)
	return nil
}

func (s *Strategy) AddTradeCallback(callback TradeCallback) error {
	if callback == nil {
		return ErrInvalidTradeCallback
	}
	s.tradeCallbacks = append(s.tradeCallbacks, callback)
	return nil
}

func (s *Strategy) AddStepCallback(callback StepCallback) {
	if callback != nil {
		s.stepCallbacks = append(s.stepCallbacks, callback)
	}
}

func (s *Strategy) Now() time.Time          { return s.now }
func (s *Strategy) TradeLag() time.Duration { return s.tradeLag }
func (s *Strategy) Cash() float64           { return s.account.Cash() }
func (s *Strategy) InitialCash() float64    { return s.initialCash }
func (s *Strategy) Steps() int              { return s.steps }

// Position returns the position of the contract symbol resolves to, or of
// symbol as given when the lookup does not know it.
func (s *Strategy) Position(symbol string) float64 {
	if contract, err := s.contracts.Get(symbol); err == nil {
		symbol = contract.Symbol
	}
	return s.account.Position(symbol)
}

func (s *Strategy) Positions() map[string]float64 {
	return s.account.Positions()
}

func (s *Strategy) CurrentEquity(prices map[string]float64) (float64, error) {
	return s.account.Equity(prices, s.contracts)
}

func (s *Strategy) Contract(symbol string) (common.Contract, error) {
	return s.contracts.Get(symbol)
}

func (s *Strategy) LiveOrders() []common.Order      { return copyOrders(s.liveOrders) }
func (s *Strategy) FilledOrders() []common.Order    { return copyOrders(s.filledOrders) }
func (s *Strategy) CancelledOrders() []common.Order { return copyOrders(s.cancelledOrders) }

// Trades returns the applied trades. Their orders are detached copies.
func (s *Strategy) Trades() []common.Trade {
	trades := make([]common.Trade, len(s.trades))
	for idx, trade := range s.trades {
		trades[idx] = detachTrade(trade)
	}
	return trades
}

// RequestModification stamps a modification request on a live order at the
// current simulation time. It takes effect once it has aged by the trade lag.
func (s *Strategy) RequestModification(id common.OrderId, kind common.ModificationKind) error {
	for _, order := range s.liveOrders {
		if order.Id == id {
			return order.RequestModification(common.ModificationRequest{Kind: kind, RequestTime: s.now})
		}
	}
	return fmt.Errorf("unable to modify order %d: %w", id, ErrUnknownOrder)
}

// Run steps through the schedule and the timeline until nothing is left to
// visit. The first invariant violation aborts the run.
func (s *Strategy) Run(ctx context.Context) error {
	s.logger.Info("run started",
		zap.Stringer("execution_id", s.executionId),
		zap.Float64("initial_cash", s.initialCash),
		zap.Duration("trade_lag", s.tradeLag),
		zap.Int("timeline", s.timeline.Len()),
		zap.Int("scheduled", s.registry.schedule.len()),
		zap.Strings("rules", s.registry.names()))

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("run interrupted", zap.Stringer("execution_id", s.executionId), zap.Error(err))
			return err
		}
		visited, err := s.Step(ctx)
		if err != nil {
			s.logger.Error("run aborted",
				zap.Stringer("execution_id", s.executionId),
				zap.Time("ts", s.now),
				zap.Error(err))
			return err
		}
		if !visited {
			break
		}
	}

	s.archiveTerminalOrders()

	s.logger.Info("run finished",
		append([]zap.Field{
			zap.Stringer("execution_id", s.executionId),
			zap.Int("steps", s.steps),
			zap.Int("trades", len(s.trades)),
			zap.Int("filled_orders", len(s.filledOrders)),
			zap.Int("cancelled_orders", len(s.cancelledOrders)),
			zap.Int("live_orders", len(s.liveOrders)),
		}, s.account.Fields()...)...)
	return nil
}

// Step processes the next timestamp. It reports false once nothing is left
// to visit.
func (s *Strategy) Step(ctx context.Context) (bool, error) {
	t, scheduled, ok := s.next()
	if !ok {
		return false, nil
	}
	if !s.started {
		s.start = t
		s.started = true
	}
	s.now = t
	s.steps++
	if !s.timeline.Contains(t) {
		s.logger.Debug("visiting scheduled timestamp outside the timeline", zap.Time("ts", t))
	}

	orders, err := s.newOrders(ctx, t, scheduled)
	if err != nil {
		return false, err
	}
	s.liveOrders = append(s.liveOrders, orders...)

	if err := s.applyDueModifications(t); err != nil {
		return false, err
	}
	if err := s.expireDueOrders(t); err != nil {
		return false, err
	}

	ready := s.updateOrderLists()

	trades, err := s.simulateMarket(ctx, t, ready)
	if err != nil {
		return false, err
	}
	if err := s.applyTrades(trades, ready); err != nil {
		return false, err
	}
	s.killUnfilled(ready)

	for _, trade := range trades {
		for _, callback := range s.tradeCallbacks {
			callback(ctx, s, t, detachTrade(trade))
		}
	}
	for _, callback := range s.stepCallbacks {
		callback(ctx, s, t)
	}

	s.logger.Debug("step processed",
		zap.Time("ts", t),
		zap.Int("new_orders", len(orders)),
		zap.Int("ready_orders", len(ready)),
		zap.Int("trades", len(trades)),
		zap.Float64("cash", s.account.Cash()))
	return true, nil
}

// next picks the smallest of the next scheduled timestamp and the next
// timeline timestamp. The timeline only counts while live orders or
// globally enabled rules exist.
func (s *Strategy) next() (time.Time, map[string]struct{}, bool) {
	for s.started {
		ts, ok := s.registry.schedule.peek()
		if !ok || ts.After(s.now) {
			break
		}
		_, names, _ := s.registry.schedule.pop()
		s.logger.Warn("skipping schedule entry in the past", zap.Time("ts", ts), zap.Int("rules", len(names)))
	}

	scheduledTs, hasScheduled := s.registry.schedule.peek()

	var (
		timelineTs  time.Time
		hasTimeline bool
	)
	if s.hasLiveOrders() || s.registry.hasGlobal() {
		if s.started {
			timelineTs, hasTimeline = s.timeline.After(s.now)
		} else {
			timelineTs, hasTimeline = s.timeline.First()
		}
	}

	switch {
	case hasScheduled && (!hasTimeline || !timelineTs.Before(scheduledTs)):
		ts, names, _ := s.registry.schedule.pop()
		return ts, names, true
	case hasTimeline:
		return timelineTs, nil, true
	default:
		return time.Time{}, nil, false
	}
}

func (s *Strategy) hasLiveOrders() bool {
	for _, order := range s.liveOrders {
		if !order.IsTerminal() {
			return true
		}
	}
	return false
}

// newOrders runs the active rules in registration order. Orders of one rule
// are not visible to the rules that follow it within the same step.
func (s *Strategy) newOrders(ctx context.Context, t time.Time, scheduled map[string]struct{}) ([]*common.Order, error) {
	var orders []*common.Order
	for _, nr := range s.registry.active(scheduled) {
		ruleOrders, err := nr.rule(ctx, s, t)
		if err != nil {
			return nil, fmt.Errorf("rule %q failed at %v: %w", nr.name, t, err)
		}
		for _, order := range ruleOrders {
			if err := s.acceptOrder(order, t); err != nil {
				return nil, fmt.Errorf("rule %q at %v: %w", nr.name, t, err)
			}
			s.logger.Debug("order created", append(order.Fields(), zap.String("rule", nr.name))...)
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (s *Strategy) acceptOrder(order *common.Order, t time.Time) error {
	if order == nil {
		return fmt.Errorf("nil order: %w", common.ErrInvalidOrder)
	}
	if err := order.Validate(); err != nil {
		return err
	}
	contract, err := s.contracts.Get(order.Contract.Symbol)
	if err != nil {
		return fmt.Errorf("unable to resolve contract for order: %w", err)
	}

	if !order.TimeStamp.IsZero() && !order.TimeStamp.Equal(t) {
		s.logger.Debug("order timestamp replaced by step time",
			append(order.Fields(), zap.Time("ts", t))...)
	}

	s.orderIdCounter++
	order.Id = s.orderIdCounter
	order.Contract = contract
	order.TimeStamp = t
	order.Pending = &common.ModificationRequest{Kind: common.ModificationOpen, RequestTime: t}
	return nil
}

func (s *Strategy) applyDueModifications(t time.Time) error {
	for _, order := range s.liveOrders {
		applied, err := order.ApplyDueModification(t, s.tradeLag)
		if err != nil {
			return err
		}
		if applied {
			s.logger.Debug("order modification applied", order.Fields()...)
		}
	}
	return nil
}

func (s *Strategy) expireDueOrders(t time.Time) error {
	for _, order := range s.liveOrders {
		expired, err := order.Expired(t, s.tradeLag)
		if err != nil {
			return err
		}
		if expired {
			order.Cancel()
			s.logger.Debug("order expired", order.Fields()...)
		}
	}
	return nil
}

// updateOrderLists moves terminal orders to the archives and returns the
// ready orders in creation order.
func (s *Strategy) updateOrderLists() []*common.Order {
	var (
		live  = s.liveOrders[:0]
		ready []*common.Order
	)
	for _, order := range s.liveOrders {
		switch {
		case order.Status == common.OrderStatusFilled:
			s.filledOrders = append(s.filledOrders, order)
		case order.Status == common.OrderStatusCancelled:
			s.cancelledOrders = append(s.cancelledOrders, order)
		default:
			live = append(live, order)
			if order.IsReady() {
				ready = append(ready, order)
			}
		}
	}
	for idx := len(live); idx < len(s.liveOrders); idx++ {
		s.liveOrders[idx] = nil
	}
	s.liveOrders = live
	return ready
}

func (s *Strategy) archiveTerminalOrders() {
	s.updateOrderLists()
}

func (s *Strategy) simulateMarket(ctx context.Context, t time.Time, ready []*common.Order) ([]common.Trade, error) {
	if len(ready) == 0 {
		return nil, nil
	}
	var trades []common.Trade
	for idx, sim := range s.marketSims {
		simTrades, err := sim.Simulate(ctx, t, ready)
		if err != nil {
			return nil, fmt.Errorf("market simulator %d failed at %v: %w", idx, t, err)
		}
		trades = append(trades, simTrades...)
	}
	return trades, nil
}

// applyTrades validates each trade against its order and the account before
// mutating either, then books fill, cash and position together.
func (s *Strategy) applyTrades(trades []common.Trade, ready []*common.Order) error {
	offered := make(map[*common.Order]struct{}, len(ready))
	for _, order := range ready {
		offered[order] = struct{}{}
	}

	for idx := range trades {
		trade := &trades[idx]
		if err := s.checkTrade(trade, offered); err != nil {
			return err
		}
		if err := trade.Order.CheckFill(trade.Qty); err != nil {
			return fmt.Errorf("unable to apply trade: %w", err)
		}
		if err := s.account.CanApply(*trade); err != nil {
			return fmt.Errorf("unable to apply trade: %w", err)
		}

		if err := trade.Order.Fill(trade.Qty); err != nil {
			return fmt.Errorf("unable to apply trade: %w", err)
		}
		if err := s.account.Apply(*trade); err != nil {
			return fmt.Errorf("unable to apply trade: %w", err)
		}
		s.trades = append(s.trades, *trade)
		s.logger.Debug("trade applied", trade.Fields()...)
	}
	return nil
}

func (s *Strategy) checkTrade(trade *common.Trade, offered map[*common.Order]struct{}) error {
	if trade.Order == nil {
		return fmt.Errorf("trade without order: %w", ErrInvalidTrade)
	}
	if _, ok := offered[trade.Order]; !ok {
		return fmt.Errorf("trade references order %d which was not offered: %w", trade.Order.Id, ErrInvalidTrade)
	}
	if trade.Contract.Symbol != "" && trade.Contract.Symbol != trade.Order.Contract.Symbol {
		return fmt.Errorf("trade symbol %s does not match order %d symbol %s: %w",
			trade.Contract.Symbol, trade.Order.Id, trade.Order.Contract.Symbol, ErrInvalidTrade)
	}
	if trade.Price < 0 || math.IsNaN(trade.Price) || math.IsInf(trade.Price, 0) {
		return fmt.Errorf("trade on order %d has price %v: %w", trade.Order.Id, trade.Price, ErrInvalidTrade)
	}
	trade.Contract = trade.Order.Contract
	return nil
}

// killUnfilled cancels fill-or-kill orders that were offered in this step and
// did not fill completely.
func (s *Strategy) killUnfilled(ready []*common.Order) {
	for _, order := range ready {
		if order.TimeInForce == common.TimeInForceFillOrKill && order.Status != common.OrderStatusFilled {
			order.Cancel()
			s.logger.Debug("fill or kill order killed", order.Fields()...)
		}
	}
}

func copyOrders(orders []*common.Order) []common.Order {
	result := make([]common.Order, len(orders))
	for idx, order := range orders {
		result[idx] = order.Clone()
	}
	return result
}

func detachTrade(trade common.Trade) common.Trade {
	if trade.Order != nil {
		order := trade.Order.Clone()
		trade.Order = &order
	}
	return trade
}
