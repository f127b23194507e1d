package account

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/peter-kozarec/btlite/pkg/common"
	"go.uber.org/zap"
)

var (
	ErrNegativeCash = errors.New("cash cannot go below zero")
	ErrMissingPrice = errors.New("price is missing")
)

// Account is a cash and position ledger. It is only mutated through trade
// application and never allows the cash balance to turn negative.
type Account struct {
	cash      float64
	positions map[string]float64
}

func New(cash float64) *Account {
	return &Account{
		cash:      cash,
		positions: make(map[string]float64),
	}
}

func (a *Account) Cash() float64 {
	return a.cash
}

// UpdateCash adds delta to the balance. The balance is left unchanged when the
// result would be negative.
func (a *Account) UpdateCash(delta float64) error {
	cash := a.cash + delta
	if cash < 0 {
		return fmt.Errorf("cash %v with delta %v would be %v: %w", a.cash, delta, cash, ErrNegativeCash)
	}
	a.cash = cash
	return nil
}

// UpdatePosition changes the position keyed by symbol exactly as given.
// Callers pass the symbol of the contract the lookup resolved.
func (a *Account) UpdatePosition(symbol string, delta float64) {
	a.positions[symbol] += delta
}

func (a *Account) Position(symbol string) float64 {
	return a.positions[symbol]
}

func (a *Account) Positions() map[string]float64 {
	positions := make(map[string]float64, len(a.positions))
	for symbol, qty := range a.positions {
		positions[symbol] = qty
	}
	return positions
}

// Symbols returns the sorted symbols with a non-zero position.
func (a *Account) Symbols() []string {
	symbols := make([]string, 0, len(a.positions))
	for symbol, qty := range a.positions {
		if qty != 0 {
			symbols = append(symbols, symbol)
		}
	}
	slices.Sort(symbols)
	return symbols
}

// CanApply checks whether the trade keeps the balance non-negative.
func (a *Account) CanApply(trade common.Trade) error {
	if cash := a.cash - trade.Value(); cash < 0 {
		return fmt.Errorf("trade %s qty %v at %v would leave cash at %v: %w",
			trade.Contract.Symbol, trade.Qty, trade.Price, cash, ErrNegativeCash)
	}
	return nil
}

// Apply books the trade's cash flow and position change together.
func (a *Account) Apply(trade common.Trade) error {
	if err := a.UpdateCash(-trade.Value()); err != nil {
		return fmt.Errorf("unable to apply trade on %s: %w", trade.Contract.Symbol, err)
	}
	a.UpdatePosition(trade.Contract.Symbol, trade.Qty)
	return nil
}

// Equity is cash plus the market value of every held position. Contracts are
// resolved with the position symbol as booked. Price keys that differ from it
// only in case are accepted, since price tables normalise symbols.
func (a *Account) Equity(prices map[string]float64, contracts common.ContractLookup) (float64, error) {
	equity := a.cash
	for _, symbol := range a.Symbols() {
		price, ok := lookupPrice(prices, symbol)
		if !ok {
			return 0, fmt.Errorf("unable to value position in %s: %w", symbol, ErrMissingPrice)
		}
		contract, err := contracts.Get(symbol)
		if err != nil {
			return 0, fmt.Errorf("unable to value position in %s: %w", symbol, err)
		}
		equity += price * a.positions[symbol] * contract.Multiplier
	}
	return equity, nil
}

func (a *Account) Fields() []zap.Field {
	fields := []zap.Field{zap.Float64("cash", a.cash)}
	for _, symbol := range a.Symbols() {
		fields = append(fields, zap.Float64("position_"+strings.ToLower(symbol), a.positions[symbol]))
	}
	return fields
}

func lookupPrice(prices map[string]float64, symbol string) (float64, bool) {
	if price, ok := prices[symbol]; ok {
		return price, true
	}
	for key, price := range prices {
		if strings.EqualFold(key, symbol) {
			return price, true
		}
	}
	return 0, false
}
